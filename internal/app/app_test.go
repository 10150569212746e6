package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"order-listing/internal/config"
	"order-listing/internal/execution"
	"order-listing/internal/mockexchange"
	"order-listing/internal/monitor"
	"order-listing/internal/store"
)

const ordersCSV = `Pair,Direction,Price,Quantity,Value,Account
JTOUSDT,BUY,2.00012345,3.7224567,7.44,1
JTOUSDT,SELL,2.00198765,3.0671234,6.14,2
JTOUSDT,BUY,1.5,10.04,15.06,1.0
`

const precisionCSV = `Account,Price Precision,Quantity Precision
1,4,1
2,2,3
`

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	orders := filepath.Join(dir, "Orders.csv")
	precision := filepath.Join(dir, "Precision.csv")
	if err := os.WriteFile(orders, []byte(ordersCSV), 0o644); err != nil {
		t.Fatalf("write orders: %v", err)
	}
	if err := os.WriteFile(precision, []byte(precisionCSV), 0o644); err != nil {
		t.Fatalf("write precision: %v", err)
	}
	return orders, precision
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	orders, precision := writeInputs(t)
	return &config.Config{
		App:      config.AppConfig{Environment: "test"},
		Exchange: config.ExchangeConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Run:      config.RunConfig{RateLimit: 1000, BackoffFactor: 1, RetryAttempts: 2},
		Input:    config.InputConfig{OrdersPath: orders, PrecisionPath: precision},
		Credentials: []config.CredentialConfig{
			{APIKey: "DEMO_API_KEY_1", APISecret: "API_SECRET_1", Account: "ACC1"},
			{APIKey: "DEMO_API_KEY_2", APISecret: "API_SECRET_2", Account: "ACC2"},
		},
	}
}

func newMemoryStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestApp_RunSubmitsBatchAgainstMockExchange(t *testing.T) {
	venue := mockexchange.NewServer(mockexchange.DefaultAccounts(), mockexchange.WithSignatureCheck())
	srv := httptest.NewServer(venue.Handler())
	defer srv.Close()

	st := newMemoryStore(t)
	application := New(testConfig(t, srv.URL), nil, st)

	report, err := application.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Confirmed != 3 || report.Summary() != "all orders confirmed" {
		t.Errorf("unexpected report: %+v", report)
	}

	fills := venue.Fills()
	if len(fills) != 3 {
		t.Fatalf("expected 3 fills, got %d", len(fills))
	}
	want := []mockexchange.Fill{
		{APIKey: "DEMO_API_KEY_1", Pair: "JTOUSDT", Type: "buy", Price: "2.0001", Quantity: "3.7", Account: "ACC1"},
		{APIKey: "DEMO_API_KEY_2", Pair: "JTOUSDT", Type: "sell", Price: "2.00", Quantity: "3.067", Account: "ACC2"},
		{APIKey: "DEMO_API_KEY_1", Pair: "JTOUSDT", Type: "buy", Price: "1.5000", Quantity: "10.0", Account: "ACC1"},
	}
	for i := range want {
		if fills[i] != want[i] {
			t.Errorf("fill %d = %+v, want %+v", i, fills[i], want[i])
		}
	}

	svc, err := monitor.NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	events, err := svc.ListEvents(context.Background(), monitor.Filter{RunID: report.RunID})
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("expected 3 confirmations and 1 run summary, got %d events", len(events))
	}
}

func TestApp_RunHaltsOnRejectedOrder(t *testing.T) {
	venue := mockexchange.NewServer(mockexchange.DefaultAccounts())
	srv := httptest.NewServer(venue.Handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Run.RetryAttempts = 1
	// 第二笔订单价格超过模拟交易所阈值。
	if err := os.WriteFile(cfg.Input.OrdersPath, []byte(`Pair,Direction,Price,Quantity,Account
JTOUSDT,BUY,2,1,1
JTOUSDT,BUY,150,1,2
JTOUSDT,BUY,2,1,1
`), 0o644); err != nil {
		t.Fatalf("rewrite orders: %v", err)
	}

	report, err := New(cfg, nil, nil).Run(context.Background())
	if !errors.Is(err, execution.ErrRetryExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if report.HaltedAt != 1 || report.Confirmed != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(venue.Fills()) != 1 {
		t.Errorf("orders after the failed one must not be submitted, got %d fills", len(venue.Fills()))
	}
}

func TestApp_RunRequiresCredentials(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Credentials = []config.CredentialConfig{{APIKey: "only-key"}}

	_, err := New(cfg, nil, nil).Run(context.Background())
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestApp_DryRunDoesNotContactExchange(t *testing.T) {
	venue := mockexchange.NewServer(mockexchange.DefaultAccounts())
	srv := httptest.NewServer(venue.Handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Run.DryRun = true

	report, err := New(cfg, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.DryRun || report.Previewed != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if venue.Requests() != 0 {
		t.Errorf("dry run must not reach the exchange, got %d requests", venue.Requests())
	}
}
