package exchange

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

const (
	// APIKeyHeader 为交易所鉴权头。
	APIKeyHeader = "X-APP-APIKEY"

	PathOrder   = "/v1/order"
	PathAccount = "/v1/account"
)

// Credential 为单个账户的 API 凭证三元组。
type Credential struct {
	APIKey    string
	APISecret string
	Account   string
}

// Complete 判断凭证是否齐全。
func (c Credential) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Account != ""
}

// ClientConfig 描述交易所连接参数。
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Result 为下单成功后的交易所响应。
type Result struct {
	Message    string              `json:"message"`
	NewBalance *decimal.Decimal    `json:"new_balance,omitempty"`
	Raw        jsoniter.RawMessage `json:"-"`
}

// AccountInfo 为账户查询结果。
type AccountInfo struct {
	Balance decimal.Decimal     `json:"balance"`
	Email   string              `json:"email"`
	Raw     jsoniter.RawMessage `json:"-"`
}

type placeOrderRequest struct {
	Pair      string          `json:"pair"`
	Type      string          `json:"type"`
	Price     jsoniter.Number `json:"price"`
	Quantity  jsoniter.Number `json:"quantity"`
	Account   string          `json:"account"`
	Signature string          `json:"signature"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
