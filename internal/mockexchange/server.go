package mockexchange

import (
	"io"
	"net/http"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-listing/internal/exchange"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	codeInvalidSignature = -1022
	codeUnauthorized     = -2015
)

// 单笔订单价格上限。
var priceThreshold = decimal.NewFromInt(100)

// Account 为模拟交易所中的账户。
type Account struct {
	APIKey  string
	Secret  string
	Email   string
	Balance decimal.Decimal
}

// DefaultAccounts 返回三个演示账户。
func DefaultAccounts() []Account {
	return []Account{
		{APIKey: "DEMO_API_KEY_1", Secret: "API_SECRET_1", Email: "account1@example.com", Balance: decimal.NewFromInt(10000)},
		{APIKey: "DEMO_API_KEY_2", Secret: "API_SECRET_2", Email: "account2@example.com", Balance: decimal.NewFromInt(15000)},
		{APIKey: "DEMO_API_KEY_3", Secret: "API_SECRET_3", Email: "account3@example.com", Balance: decimal.NewFromInt(12000)},
	}
}

// Fill 记录一笔被接受的订单。
type Fill struct {
	APIKey   string
	Pair     string
	Type     string
	Price    string
	Quantity string
	Account  string
}

type injectedFailure struct {
	status int
	code   int
	msg    string
}

// Server 为模拟交易所的内存状态与 HTTP 处理器。
type Server struct {
	logger          *zap.Logger
	verifySignature bool

	mu       sync.Mutex
	accounts map[string]*Account
	fills    []Fill
	requests int
	failures []injectedFailure
}

// Option 调整 Server 行为。
type Option func(*Server)

// WithSignatureCheck 要求请求签名与账户 secret 匹配。
func WithSignatureCheck() Option {
	return func(s *Server) { s.verifySignature = true }
}

// WithLogger 设置日志实例。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer 以给定账户创建模拟交易所。
func NewServer(accounts []Account, opts ...Option) *Server {
	s := &Server{
		logger:   zap.NewNop(),
		accounts: make(map[string]*Account, len(accounts)),
	}
	for i := range accounts {
		acc := accounts[i]
		s.accounts[acc.APIKey] = &acc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回挂载了 /v1/order 与 /v1/account 的路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+exchange.PathOrder, s.handlePlaceOrder)
	mux.HandleFunc("GET "+exchange.PathAccount, s.handleGetAccount)
	return mux
}

// FailNext 让接下来的 n 次下单请求返回指定错误码。
func (s *Server) FailNext(n int, status, code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, injectedFailure{status: status, code: code, msg: msg})
	}
}

// Fills 返回已成交订单的副本。
func (s *Server) Fills() []Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fill(nil), s.fills...)
}

// Requests 返回收到的请求总数。
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Balance 返回账户余额。
func (s *Server) Balance(apiKey string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[apiKey]
	if !ok {
		return decimal.Zero, false
	}
	return acc.Balance, true
}

type orderRequest struct {
	Pair      string          `json:"pair"`
	Type      string          `json:"type"`
	Price     jsoniter.Number `json:"price"`
	Quantity  jsoniter.Number `json:"quantity"`
	Account   string          `json:"account"`
	Signature string          `json:"signature"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	acc, ok := s.accounts[r.Header.Get(exchange.APIKeyHeader)]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": codeUnauthorized, "msg": "Authentication failed"})
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": -1, "msg": "unreadable body"})
		return
	}
	var req orderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": -1, "msg": "malformed order"})
		return
	}

	if s.verifySignature {
		params := exchange.Params{}.
			Add("pair", req.Pair).
			Add("type", req.Type).
			Add("price", req.Price.String()).
			Add("quantity", req.Quantity.String()).
			Add("account", req.Account)
		if exchange.Sign(params, acc.Secret) != req.Signature {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": codeInvalidSignature, "msg": "Signature for this request is not valid."})
			return
		}
	}

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		writeJSON(w, f.status, map[string]interface{}{"code": f.code, "msg": f.msg})
		return
	}

	price, perr := decimal.NewFromString(req.Price.String())
	quantity, qerr := decimal.NewFromString(req.Quantity.String())
	if perr != nil || qerr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": -1, "msg": "invalid price or quantity"})
		return
	}
	amount := price.Mul(quantity)

	s.logger.Info("模拟成交",
		zap.String("pair", req.Pair),
		zap.String("price", price.String()),
		zap.String("quantity", quantity.String()),
		zap.String("cash_value", amount.String()),
		zap.String("email", acc.Email),
	)

	switch {
	case amount.GreaterThan(acc.Balance):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": exchange.CodeInsufficientBalance, "msg": "Insufficient balance"})
		return
	case price.GreaterThan(priceThreshold):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": exchange.CodePriceOrQuantityExceedsLimit, "msg": "Price exceeds the threshold"})
		return
	}

	acc.Balance = acc.Balance.Sub(amount)
	s.fills = append(s.fills, Fill{
		APIKey:   acc.APIKey,
		Pair:     req.Pair,
		Type:     req.Type,
		Price:    req.Price.String(),
		Quantity: req.Quantity.String(),
		Account:  req.Account,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Order placed successfully",
		"new_balance": acc.Balance,
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	acc, ok := s.accounts[r.Header.Get(exchange.APIKeyHeader)]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": codeUnauthorized, "msg": "Authentication failed"})
		return
	}

	if s.verifySignature {
		q := r.URL.Query()
		params := exchange.Params{}.Add("timestamp", q.Get("timestamp"))
		if exchange.Sign(params, acc.Secret) != q.Get("signature") {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": codeInvalidSignature, "msg": "Signature for this request is not valid."})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": acc.Balance,
		"email":   acc.Email,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
