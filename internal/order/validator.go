package order

import (
	"fmt"
)

// Validate 校验订单集合并按账户精度就地规整价格与数量。
//
// 按行序返回第一个违规项；表头缺列时不检查任何行。通过校验的行
// 在此处被改写一次，之后重试不会重复取整。对已规整的集合再次调用是无操作。
func Validate(set *OrderSet, table *PrecisionTable) error {
	if set == nil {
		return &ValidationError{Kind: ErrMissingColumns, Row: -1, Columns: RequiredColumns()}
	}

	if missing := set.MissingColumns(); len(missing) > 0 {
		return &ValidationError{Kind: ErrMissingColumns, Row: -1, Columns: missing}
	}

	for i := range set.Orders {
		o := &set.Orders[i]

		if !o.Direction.Valid() {
			return rowError(ErrInvalidDirection, i, string(o.Direction))
		}
		if o.Price.IsNegative() {
			return rowError(ErrNegativePrice, i, "")
		}
		if !o.Quantity.IsPositive() {
			return rowError(ErrNonPositiveQuantity, i, "")
		}

		rule, ok := table.Lookup(o.Account)
		if !ok {
			return rowError(ErrUnknownAccount, i, fmt.Sprintf("(account=%s)", o.Account))
		}

		o.Price = Round(o.Price, rule.PricePrecision)
		o.Quantity = Round(o.Quantity, rule.QuantityPrecision)
	}

	return nil
}
