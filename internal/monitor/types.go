package monitor

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// EventType 表示审计事件类型。
type EventType string

const (
	EventAttemptFailed  EventType = "attempt_failed"
	EventOrderConfirmed EventType = "order_confirmed"
	EventOrderFailed    EventType = "order_failed"
	EventRunFinished    EventType = "run_finished"
)

// Event 为一条审计记录。OrderIndex 为 -1 表示运行级事件。
type Event struct {
	RunID      string              `json:"run_id"`
	Type       EventType           `json:"type"`
	OrderIndex int                 `json:"order_index"`
	Timestamp  time.Time           `json:"timestamp"`
	Payload    jsoniter.RawMessage `json:"payload"`
}

// Filter 限定 ListEvents 的查询范围，零值表示不过滤。
type Filter struct {
	RunID string
	Type  EventType
	Limit int
}

// OrderPayload 记录订单内容与提交结果。
type OrderPayload struct {
	Pair       string `json:"pair"`
	Direction  string `json:"direction"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	Account    string `json:"account"`
	Attempts   int    `json:"attempts,omitempty"`
	Message    string `json:"message,omitempty"`
	NewBalance string `json:"new_balance,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AttemptPayload 记录一次失败的尝试。
type AttemptPayload struct {
	Pair        string  `json:"pair"`
	Account     string  `json:"account"`
	Attempt     int     `json:"attempt"`
	Kind        string  `json:"kind"`
	WaitSeconds float64 `json:"wait_seconds"`
	Final       bool    `json:"final"`
	Error       string  `json:"error"`
}

// RunPayload 记录运行汇总。
type RunPayload struct {
	Total      int       `json:"total"`
	Confirmed  int       `json:"confirmed"`
	Skipped    int       `json:"skipped"`
	Previewed  int       `json:"previewed"`
	HaltedAt   int       `json:"halted_at"`
	DryRun     bool      `json:"dry_run"`
	Summary    string    `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}
