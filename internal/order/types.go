package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction 表示下单方向。
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid 判断方向是否为 BUY 或 SELL（区分大小写）。
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// WireType 返回交易所接口使用的小写方向。
func (d Direction) WireType() string {
	return strings.ToLower(string(d))
}

// 订单表必须包含的列。
const (
	ColumnPair      = "Pair"
	ColumnDirection = "Direction"
	ColumnPrice     = "Price"
	ColumnQuantity  = "Quantity"
	ColumnAccount   = "Account"
)

// RequiredColumns 返回订单表的必需列，顺序固定。
func RequiredColumns() []string {
	return []string{ColumnPair, ColumnDirection, ColumnPrice, ColumnQuantity, ColumnAccount}
}

// Order 对应订单表中的一行。
type Order struct {
	Pair      string
	Direction Direction
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Account   string
}

// OrderSet 为待提交订单及其输入表头。
type OrderSet struct {
	Columns []string
	Orders  []Order
}

// NewOrderSet 使用完整表头构造订单集合，便于在代码中直接组装订单。
func NewOrderSet(orders ...Order) *OrderSet {
	return &OrderSet{
		Columns: RequiredColumns(),
		Orders:  orders,
	}
}

// Len 返回订单数量。
func (s *OrderSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Orders)
}

// MissingColumns 返回表头中缺失的必需列。
func (s *OrderSet) MissingColumns() []string {
	present := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		present[strings.TrimSpace(col)] = struct{}{}
	}

	var missing []string
	for _, col := range RequiredColumns() {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
