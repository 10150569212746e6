package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-listing/internal/order"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client 对应单个交易账户，持有独立的 HTTP 连接上下文。
// 不同账户的客户端之间不共享任何可变状态。
type Client struct {
	cfg       ClientConfig
	cred      Credential
	logger    *zap.Logger
	transport *http.Transport
	http      *http.Client
	now       func() time.Time

	closeOnce sync.Once
}

// NewClient 构造账户客户端，凭证三元组必须齐全。
func NewClient(cfg ClientConfig, cred Credential, logger *zap.Logger) (*Client, error) {
	if !cred.Complete() {
		return nil, errors.New("exchange: 凭证不完整")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("exchange: base_url 不能为空")
	}
	cfg.BaseURL = base
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Client{
		cfg:       cfg,
		cred:      cred,
		logger:    logger.With(zap.String("account_ref", cred.Account)),
		transport: transport,
		http:      &http.Client{Transport: transport, Timeout: cfg.Timeout},
		now:       time.Now,
	}, nil
}

// Account 返回交易所侧账户标识。
func (c *Client) Account() string {
	return c.cred.Account
}

// PlaceOrder 提交一笔已规整的订单。
// 非 200 响应按错误码归类为余额不足、价格/数量超限或未知错误；是否重试由调用方决定。
func (c *Client) PlaceOrder(ctx context.Context, o order.Order) (Result, error) {
	const op = "place_order"

	price := formatDecimal(o.Price)
	quantity := formatDecimal(o.Quantity)

	params := Params{}.
		Add("pair", o.Pair).
		Add("type", o.Direction.WireType()).
		Add("price", price).
		Add("quantity", quantity).
		Add("account", c.cred.Account)

	body, err := json.Marshal(placeOrderRequest{
		Pair:      o.Pair,
		Type:      o.Direction.WireType(),
		Price:     jsoniter.Number(price),
		Quantity:  jsoniter.Number(quantity),
		Account:   c.cred.Account,
		Signature: Sign(params, c.cred.APISecret),
	})
	if err != nil {
		return Result{}, fmt.Errorf("exchange: 序列化订单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+PathOrder, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("exchange: 构造下单请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload, err := c.do(req)
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	if status != http.StatusOK {
		return Result{}, classifyOrderFailure(op, status, payload)
	}

	var result Result
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			c.logger.Warn("下单响应无法解析", zap.Int("status", status), zap.Error(err))
		}
	}
	result.Raw = payload

	return result, nil
}

// GetAccount 通过带时间戳签名的查询验证凭证并返回账户信息。
func (c *Client) GetAccount(ctx context.Context) (AccountInfo, error) {
	const op = "get_account"

	params := Params{}.Add("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params = params.Add("signature", Sign(params, c.cred.APISecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+PathAccount+"?"+params.Encode(), nil)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("exchange: 构造账户请求失败: %w", err)
	}

	status, payload, err := c.do(req)
	if err != nil {
		return AccountInfo{}, &Error{Kind: KindCredentialValidation, Op: op, Err: err}
	}
	if status != http.StatusOK {
		return AccountInfo{}, &Error{Kind: KindCredentialValidation, Op: op, Status: status}
	}

	var info AccountInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return AccountInfo{}, &Error{Kind: KindCredentialValidation, Op: op, Status: status, Err: err}
	}
	info.Raw = payload

	return info, nil
}

// Close 释放底层连接，可重复调用。
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.transport.CloseIdleConnections()
		c.logger.Debug("交易所连接已释放")
	})
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set(APIKeyHeader, c.cred.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("读取响应失败: %w", err)
	}

	c.logger.Debug("交易所请求完成",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	return resp.StatusCode, payload, nil
}

func classifyOrderFailure(op string, status int, payload []byte) error {
	var body errorResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return &Error{
			Kind:    KindUnknown,
			Op:      op,
			Status:  status,
			Message: fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(payload))),
		}
	}

	message := body.Msg
	if message == "" {
		message = "Unknown error"
	}

	return &Error{
		Kind:    KindForCode(body.Code),
		Op:      op,
		Status:  status,
		Code:    body.Code,
		Message: message,
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("请求超时: %w", err)
	}
	return err
}

// formatDecimal 按数值自身的小数位输出，保留规整后的尾随零。
func formatDecimal(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}
