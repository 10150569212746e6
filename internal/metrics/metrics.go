package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"order-listing/internal/execution"
)

const namespace = "order_listing"

// Recorder 将运行事件转换为 Prometheus 指标。
type Recorder struct {
	registry        *prometheus.Registry
	orders          *prometheus.CounterVec
	attemptFailures *prometheus.CounterVec
	backoff         prometheus.Histogram
	lastRun         *prometheus.GaugeVec
}

var _ execution.Observer = (*Recorder)(nil)

// NewRecorder 创建独立注册表上的指标集合。
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders processed by outcome.",
		}, []string{"outcome"}),
		attemptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_failures_total",
			Help:      "Failed order submission attempts by error kind.",
		}, []string{"kind"}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backoff_seconds",
			Help:      "Backoff waits scheduled between retries.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_orders",
			Help:      "Order counts of the most recent run.",
		}, []string{"state"}),
	}

	r.registry.MustRegister(
		r.orders,
		r.attemptFailures,
		r.backoff,
		r.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry 返回指标注册表，供 /metrics 使用。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) AttemptFailed(_ context.Context, ev execution.AttemptEvent) {
	r.attemptFailures.WithLabelValues(ev.Kind.String()).Inc()
	if !ev.Final {
		r.backoff.Observe(ev.Wait.Seconds())
	}
}

func (r *Recorder) OrderConfirmed(context.Context, execution.OrderEvent) {
	r.orders.WithLabelValues("confirmed").Inc()
}

func (r *Recorder) OrderFailed(context.Context, execution.OrderEvent) {
	r.orders.WithLabelValues("failed").Inc()
}

func (r *Recorder) RunFinished(_ context.Context, report execution.Report, _ error) {
	r.orders.WithLabelValues("skipped").Add(float64(report.Skipped))
	r.orders.WithLabelValues("previewed").Add(float64(report.Previewed))

	r.lastRun.WithLabelValues("total").Set(float64(report.Total))
	r.lastRun.WithLabelValues("confirmed").Set(float64(report.Confirmed + report.Skipped))
	halted := 0.0
	if report.HaltedAt >= 0 {
		halted = float64(report.Total - report.HaltedAt)
	}
	r.lastRun.WithLabelValues("abandoned").Set(halted)
}
