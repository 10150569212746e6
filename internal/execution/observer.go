package execution

import (
	"context"
	"time"

	"order-listing/internal/exchange"
	"order-listing/internal/order"
)

// AttemptEvent 描述一次失败的下单尝试。
type AttemptEvent struct {
	RunID   string
	Index   int
	Order   order.Order
	Attempt int
	Wait    time.Duration
	Final   bool
	Kind    exchange.ErrorKind
	Err     error
}

// OrderEvent 描述一笔订单的最终结果。
type OrderEvent struct {
	RunID    string
	Index    int
	Order    order.Order
	Attempts int
	Result   exchange.Result
	Err      error
}

// Observer 接收运行过程中的事件，实现方不得阻塞执行流。
type Observer interface {
	AttemptFailed(ctx context.Context, ev AttemptEvent)
	OrderConfirmed(ctx context.Context, ev OrderEvent)
	OrderFailed(ctx context.Context, ev OrderEvent)
	RunFinished(ctx context.Context, report Report, err error)
}

// NopObserver 忽略所有事件。
type NopObserver struct{}

func (NopObserver) AttemptFailed(context.Context, AttemptEvent) {}
func (NopObserver) OrderConfirmed(context.Context, OrderEvent)  {}
func (NopObserver) OrderFailed(context.Context, OrderEvent)     {}
func (NopObserver) RunFinished(context.Context, Report, error)  {}

// Observers 将事件依次分发给多个观察者。
type Observers []Observer

func (o Observers) AttemptFailed(ctx context.Context, ev AttemptEvent) {
	for _, obs := range o {
		obs.AttemptFailed(ctx, ev)
	}
}

func (o Observers) OrderConfirmed(ctx context.Context, ev OrderEvent) {
	for _, obs := range o {
		obs.OrderConfirmed(ctx, ev)
	}
}

func (o Observers) OrderFailed(ctx context.Context, ev OrderEvent) {
	for _, obs := range o {
		obs.OrderFailed(ctx, ev)
	}
}

func (o Observers) RunFinished(ctx context.Context, report Report, err error) {
	for _, obs := range o {
		obs.RunFinished(ctx, report, err)
	}
}
