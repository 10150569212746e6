package mockexchange

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"order-listing/internal/exchange"
)

func postOrder(t *testing.T, h http.Handler, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, exchange.PathOrder, strings.NewReader(body))
	req.Header.Set(exchange.APIKeyHeader, apiKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RejectsUnknownAPIKey(t *testing.T) {
	s := NewServer(DefaultAccounts())
	rec := postOrder(t, s.Handler(), "nobody", `{"pair":"JTOUSDT","type":"buy","price":1,"quantity":1,"account":"ACC1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServer_DebitsBalanceOnFill(t *testing.T) {
	s := NewServer(DefaultAccounts())
	rec := postOrder(t, s.Handler(), "DEMO_API_KEY_3", `{"pair":"JTOUSDT","type":"sell","price":2.5,"quantity":4,"account":"ACC3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	balance, ok := s.Balance("DEMO_API_KEY_3")
	if !ok || !balance.Equal(decimal.NewFromInt(11990)) {
		t.Errorf("unexpected balance: %v", balance)
	}
	if s.Requests() != 1 || len(s.Fills()) != 1 {
		t.Errorf("expected one request and one fill")
	}
}

func TestServer_RejectsBadSignature(t *testing.T) {
	s := NewServer(DefaultAccounts(), WithSignatureCheck())
	rec := postOrder(t, s.Handler(), "DEMO_API_KEY_1", `{"pair":"JTOUSDT","type":"buy","price":1,"quantity":1,"account":"ACC1","signature":"deadbeef"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(s.Fills()) != 0 {
		t.Errorf("unsigned order must not be filled")
	}
}
