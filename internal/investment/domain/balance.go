// Package domain 投资人回报余额
package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestorBalance 投资人在单个融资请求下的回报余额
// 不变式：held + completed <= total_accrued，available >= 0
type InvestorBalance struct {
	gorm.Model
	// 融资请求 ID
	InvestmentID string `gorm:"column:investment_id;type:varchar(32);uniqueIndex:idx_balance_cell;not null" json:"investment_id"`
	// 投资人用户 ID
	InvestorID string `gorm:"column:investor_id;type:varchar(32);uniqueIndex:idx_balance_cell;not null" json:"investor_id"`
	// 累计应计回报
	TotalAccrued decimal.Decimal `gorm:"column:total_accrued;type:decimal(32,18);default:0;not null" json:"total_accrued"`
	// 提现冻结中金额
	Held decimal.Decimal `gorm:"column:held;type:decimal(32,18);default:0;not null" json:"held"`
	// 已完成提现金额
	Completed decimal.Decimal `gorm:"column:completed;type:decimal(32,18);default:0;not null" json:"completed"`
	// 乐观锁版本号
	Version int64 `gorm:"column:version;default:0;not null" json:"-"`
}

// TableName 表名
func (InvestorBalance) TableName() string {
	return "investor_balances"
}

// NewInvestorBalance 创建零值余额单元
func NewInvestorBalance(investmentID, investorID string) *InvestorBalance {
	return &InvestorBalance{
		InvestmentID: investmentID,
		InvestorID:   investorID,
		TotalAccrued: decimal.Zero,
		Held:         decimal.Zero,
		Completed:    decimal.Zero,
	}
}

// Available 可提金额 = total_accrued - held - completed
func (b *InvestorBalance) Available() decimal.Decimal {
	return b.TotalAccrued.Sub(b.Held).Sub(b.Completed)
}

// Accrue 计提回报
func (b *InvestorBalance) Accrue(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationErrors{"amount": "accrual amount must be positive"}
	}
	b.TotalAccrued = b.TotalAccrued.Add(amount)
	return nil
}

// Hold 冻结提现金额，可提不足时返回 ErrInsufficientFunds
func (b *InvestorBalance) Hold(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationErrors{"amount": "withdrawal amount must be positive"}
	}
	if amount.GreaterThan(b.Available()) {
		return ErrInsufficientFunds
	}
	b.Held = b.Held.Add(amount)
	return nil
}

// SettleHold 提现获批，冻结金额转为已完成
func (b *InvestorBalance) SettleHold(amount decimal.Decimal) error {
	if amount.GreaterThan(b.Held) {
		return ErrInsufficientFunds
	}
	b.Held = b.Held.Sub(amount)
	b.Completed = b.Completed.Add(amount)
	return nil
}

// ReleaseHold 提现被拒，释放冻结金额
func (b *InvestorBalance) ReleaseHold(amount decimal.Decimal) error {
	if amount.GreaterThan(b.Held) {
		return ErrInsufficientFunds
	}
	b.Held = b.Held.Sub(amount)
	return nil
}
