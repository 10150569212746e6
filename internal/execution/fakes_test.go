package execution

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"order-listing/internal/exchange"
	"order-listing/internal/order"
)

type fakeClient struct {
	mu sync.Mutex

	// responses 按调用顺序消费，nil 表示成功；耗尽后沿用 fallback。
	responses  []error
	fallback   error
	accountErr error

	placed       []order.Order
	accountCalls int
	closeCalls   int
}

func (f *fakeClient) PlaceOrder(_ context.Context, o order.Order) (exchange.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, o)

	err := f.fallback
	if len(f.responses) > 0 {
		err = f.responses[0]
		f.responses = f.responses[1:]
	}
	if err != nil {
		return exchange.Result{}, err
	}
	return exchange.Result{Message: "Order placed successfully"}, nil
}

func (f *fakeClient) GetAccount(context.Context) (exchange.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	if f.accountErr != nil {
		return exchange.AccountInfo{}, f.accountErr
	}
	return exchange.AccountInfo{Balance: decimal.NewFromInt(10000)}, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeClient) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type recordingObserver struct {
	mu        sync.Mutex
	attempts  []AttemptEvent
	confirmed []OrderEvent
	failed    []OrderEvent
	reports   []Report
	runErrs   []error
}

func (o *recordingObserver) AttemptFailed(_ context.Context, ev AttemptEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, ev)
}

func (o *recordingObserver) OrderConfirmed(_ context.Context, ev OrderEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.confirmed = append(o.confirmed, ev)
}

func (o *recordingObserver) OrderFailed(_ context.Context, ev OrderEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, ev)
}

func (o *recordingObserver) RunFinished(_ context.Context, report Report, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, report)
	o.runErrs = append(o.runErrs, err)
}

func unknownErr() error {
	return &exchange.Error{Kind: exchange.KindUnknown, Op: "place_order", Code: -1003, Message: "Too many requests"}
}

func networkErr() error {
	return &exchange.Error{Kind: exchange.KindNetwork, Op: "place_order", Err: context.DeadlineExceeded}
}

func credentialErr() error {
	return &exchange.Error{Kind: exchange.KindCredentialValidation, Op: "get_account", Status: 401}
}

func testOrder(account string) order.Order {
	return order.Order{
		Pair:      "JTOUSDT",
		Direction: order.DirectionBuy,
		Price:     decimal.RequireFromString("2.00198765"),
		Quantity:  decimal.RequireFromString("3.0671234"),
		Account:   account,
	}
}
