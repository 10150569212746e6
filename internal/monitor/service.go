package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"order-listing/internal/execution"
	"order-listing/internal/order"
	"order-listing/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service 将运行事件写入审计表。
// 审计表只追加，不参与断点续跑。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ execution.Observer = (*Service)(nil)

// NewService 初始化审计服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    time.Now,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS run_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	order_index INTEGER NOT NULL DEFAULT -1,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_run_events_type ON run_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单条事件，payload 为任意可序列化的值。
func (s *Service) Record(ctx context.Context, runID string, typ EventType, index int, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, event_type, order_index, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(typ), index, string(raw), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// AttemptFailed 记录失败的尝试。
func (s *Service) AttemptFailed(ctx context.Context, ev execution.AttemptEvent) {
	s.record(ctx, ev.RunID, EventAttemptFailed, ev.Index, AttemptPayload{
		Pair:        ev.Order.Pair,
		Account:     ev.Order.Account,
		Attempt:     ev.Attempt,
		Kind:        ev.Kind.String(),
		WaitSeconds: ev.Wait.Seconds(),
		Final:       ev.Final,
		Error:       errString(ev.Err),
	})
}

// OrderConfirmed 记录成功提交的订单。
func (s *Service) OrderConfirmed(ctx context.Context, ev execution.OrderEvent) {
	payload := orderPayload(ev.Order, ev.Attempts)
	payload.Message = ev.Result.Message
	if ev.Result.NewBalance != nil {
		payload.NewBalance = ev.Result.NewBalance.String()
	}
	s.record(ctx, ev.RunID, EventOrderConfirmed, ev.Index, payload)
}

// OrderFailed 记录放弃的订单。
func (s *Service) OrderFailed(ctx context.Context, ev execution.OrderEvent) {
	payload := orderPayload(ev.Order, ev.Attempts)
	payload.Error = errString(ev.Err)
	s.record(ctx, ev.RunID, EventOrderFailed, ev.Index, payload)
}

// RunFinished 记录运行汇总。
func (s *Service) RunFinished(ctx context.Context, report execution.Report, err error) {
	s.record(ctx, report.RunID, EventRunFinished, -1, RunPayload{
		Total:      report.Total,
		Confirmed:  report.Confirmed,
		Skipped:    report.Skipped,
		Previewed:  report.Previewed,
		HaltedAt:   report.HaltedAt,
		DryRun:     report.DryRun,
		Summary:    report.Summary(),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Error:      errString(err),
	})
}

// record 失败只记日志，不影响执行流。
func (s *Service) record(ctx context.Context, runID string, typ EventType, index int, payload interface{}) {
	// 运行被取消时仍需留下审计记录。
	ctx = context.WithoutCancel(ctx)
	if err := s.Record(ctx, runID, typ, index, payload); err != nil {
		s.logger.Warn("记录审计事件失败",
			zap.String("type", string(typ)),
			zap.Int("index", index),
			zap.Error(err),
		)
	}
}

// ListEvents 按条件检索最近事件，按写入顺序倒序返回。
func (s *Service) ListEvents(ctx context.Context, filter Filter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT run_id, event_type, order_index, payload, created_at FROM run_events WHERE 1 = 1`
	args := make([]interface{}, 0, 3)
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			ev      Event
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&ev.RunID, &typ, &ev.OrderIndex, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ev.Type = EventType(typ)
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		ev.Payload = jsoniter.RawMessage(payload)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}

func orderPayload(o order.Order, attempts int) OrderPayload {
	return OrderPayload{
		Pair:      o.Pair,
		Direction: string(o.Direction),
		Price:     o.Price.String(),
		Quantity:  o.Quantity.String(),
		Account:   o.Account,
		Attempts:  attempts,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
