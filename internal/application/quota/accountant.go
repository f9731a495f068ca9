package quota

import (
	"context"
	"strings"

	"solidwriter-api/internal/domain/entity"
)

// Measure 以空白分隔的词数作为字数
func Measure(text string) int64 {
	return int64(len(strings.Fields(text)))
}

// Accountant 计算生成消耗并记入账本
type Accountant struct {
	ledger *Ledger
}

// NewAccountant 创建计费器
func NewAccountant(ledger *Ledger) *Accountant {
	return &Accountant{ledger: ledger}
}

// Charge 成文模式按字数计费，其余模式收取固定费用
func (a *Accountant) Charge(mode entity.Mode, text string) int64 {
	if mode.IsFinalContent() {
		return Measure(text)
	}
	return a.ledger.Policy().FlatCharge
}

// Settle 计算并提交本次消耗，返回扣费与更新后的用户
func (a *Accountant) Settle(ctx context.Context, user *entity.User, mode entity.Mode, text string) (int64, *entity.User, error) {
	units := a.Charge(mode, text)
	updated, err := a.ledger.Commit(ctx, user, units)
	if err != nil {
		return 0, nil, err
	}
	return units, updated, nil
}
