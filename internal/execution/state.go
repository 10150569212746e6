package execution

import "github.com/bits-and-blooms/bitset"

// State 记录本次运行中已确认成功的订单行号，只增不减。
// 只由单一执行流修改，不需要加锁。
type State struct {
	confirmed *bitset.BitSet
}

// NewState 创建空的执行状态。
func NewState() *State {
	return &State{confirmed: bitset.New(0)}
}

// Has 判断行号是否已确认。
func (s *State) Has(index int) bool {
	if index < 0 {
		return false
	}
	return s.confirmed.Test(uint(index))
}

// Mark 标记行号为已确认，重复标记返回 false。
func (s *State) Mark(index int) bool {
	if index < 0 || s.Has(index) {
		return false
	}
	s.confirmed.Set(uint(index))
	return true
}

// Len 返回已确认的订单数量。
func (s *State) Len() int {
	return int(s.confirmed.Count())
}

// Indices 按升序返回已确认的行号。
func (s *State) Indices() []int {
	out := make([]int, 0, s.Len())
	for i, ok := s.confirmed.NextSet(0); ok; i, ok = s.confirmed.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}
