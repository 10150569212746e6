package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation 匹配所有订单校验错误。
	ErrValidation = errors.New("order validation failed")

	ErrMissingColumns      = errors.New("missing columns")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrNegativePrice       = errors.New("price cannot be negative")
	ErrNonPositiveQuantity = errors.New("quantity must be greater than zero")
	ErrUnknownAccount      = errors.New("account not found in precision data")
)

// ValidationError 描述首个校验失败的行及原因。
// Row 为 -1 表示表头级错误。
type ValidationError struct {
	Kind    error
	Row     int
	Columns []string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Columns, ", "))
	}
	if e.Detail == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Kind)
	}
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Kind, e.Detail)
}

// Unwrap 同时暴露 ErrValidation 与具体的错误类别。
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Kind}
}

func rowError(kind error, row int, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Row: row, Detail: detail}
}
