package exchange

import (
	"errors"
	"fmt"
)

// 交易所定义的业务错误码。
const (
	CodeInsufficientBalance         = -2001
	CodePriceOrQuantityExceedsLimit = -2002
)

// ErrorKind 为交易所调用失败的分类标签。
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindInsufficientBalance
	KindPriceOrQuantityExceedsThreshold
	KindNetwork
	KindCredentialValidation
)

var (
	ErrUnknownExchange                 = errors.New("error from exchange")
	ErrInsufficientBalance             = errors.New("insufficient balance")
	ErrPriceOrQuantityExceedsThreshold = errors.New("price or quantity exceeds the threshold")
	ErrNetwork                         = errors.New("network error")
	ErrCredentialValidation            = errors.New("credential validation failed")
)

var kindSentinels = map[ErrorKind]error{
	KindUnknown:                         ErrUnknownExchange,
	KindInsufficientBalance:             ErrInsufficientBalance,
	KindPriceOrQuantityExceedsThreshold: ErrPriceOrQuantityExceedsThreshold,
	KindNetwork:                         ErrNetwork,
	KindCredentialValidation:            ErrCredentialValidation,
}

var kindByCode = map[int]ErrorKind{
	CodeInsufficientBalance:         KindInsufficientBalance,
	CodePriceOrQuantityExceedsLimit: KindPriceOrQuantityExceedsThreshold,
}

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindPriceOrQuantityExceedsThreshold:
		return "price_or_quantity_exceeds_threshold"
	case KindNetwork:
		return "network"
	case KindCredentialValidation:
		return "credential_validation"
	default:
		return "unknown"
	}
}

// KindForCode 将交易所错误码映射为错误分类，未识别的码归为 KindUnknown。
func KindForCode(code int) ErrorKind {
	if kind, ok := kindByCode[code]; ok {
		return kind
	}
	return KindUnknown
}

// Error 为交易所调用失败的带标签结果。
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := kindSentinels[e.Kind].Error()
	switch {
	case e.Kind == KindUnknown && e.Message != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	case e.Status != 0 && e.Kind == KindCredentialValidation:
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap 暴露分类哨兵错误以及底层错误。
func (e *Error) Unwrap() []error {
	sentinel := kindSentinels[e.Kind]
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// KindOf 提取错误分类；非交易所错误返回 false。
func KindOf(err error) (ErrorKind, bool) {
	var exErr *Error
	if errors.As(err, &exErr) {
		return exErr.Kind, true
	}
	return KindUnknown, false
}
