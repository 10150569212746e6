package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PrecisionRule 描述账户可接受的价格与数量小数位。
type PrecisionRule struct {
	Account           string
	PricePrecision    int32
	QuantityPrecision int32
}

// PrecisionTable 保留输入行序，同时按账户索引。
// 行序决定凭证槽位：第 n 行对应 API_KEY_n。
type PrecisionTable struct {
	rules     []PrecisionRule
	byAccount map[string]int
}

// NewPrecisionTable 构造精度表，账户重复或精度为负时返回错误。
func NewPrecisionTable(rules ...PrecisionRule) (*PrecisionTable, error) {
	table := &PrecisionTable{
		rules:     make([]PrecisionRule, 0, len(rules)),
		byAccount: make(map[string]int, len(rules)),
	}

	for i, rule := range rules {
		if rule.Account == "" {
			return nil, fmt.Errorf("order: 精度表第 %d 行账户为空", i)
		}
		if rule.PricePrecision < 0 || rule.QuantityPrecision < 0 {
			return nil, fmt.Errorf("order: 精度表第 %d 行精度不能为负 (account=%s)", i, rule.Account)
		}
		if _, dup := table.byAccount[rule.Account]; dup {
			return nil, fmt.Errorf("order: 精度表账户重复: %s", rule.Account)
		}
		table.byAccount[rule.Account] = len(table.rules)
		table.rules = append(table.rules, rule)
	}

	return table, nil
}

// Lookup 按账户查询精度规则。
func (t *PrecisionTable) Lookup(account string) (PrecisionRule, bool) {
	if t == nil {
		return PrecisionRule{}, false
	}
	idx, ok := t.byAccount[account]
	if !ok {
		return PrecisionRule{}, false
	}
	return t.rules[idx], true
}

// Rules 按输入顺序返回全部规则的副本。
func (t *PrecisionTable) Rules() []PrecisionRule {
	if t == nil {
		return nil
	}
	return append([]PrecisionRule(nil), t.rules...)
}

// Len 返回规则数量。
func (t *PrecisionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Round 将数值四舍五入（远离零）到 places 位小数。
// 结果是 Round 的不动点：Round(Round(x, p), p) == Round(x, p)。
func Round(value decimal.Decimal, places int32) decimal.Decimal {
	return value.Round(places)
}
