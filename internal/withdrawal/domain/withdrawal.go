// Package domain 提现服务的领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	"gorm.io/gorm"
)

// WithdrawalStatus 提现请求状态
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"   // 待审批
	WithdrawalStatusCompleted WithdrawalStatus = "COMPLETED" // 已完成
	WithdrawalStatusRejected  WithdrawalStatus = "REJECTED"  // 已拒绝
)

// WithdrawalRequest 提现请求聚合根
// 投资人提取已计提回报，终态后不可再变更，记录永不删除
type WithdrawalRequest struct {
	gorm.Model
	// 提现请求 ID (业务主键)，全局唯一
	WithdrawalID string `gorm:"column:withdrawal_id;type:varchar(32);uniqueIndex;not null" json:"withdrawal_id"`
	// 融资请求 ID
	InvestmentID string `gorm:"column:investment_id;type:varchar(32);index;not null" json:"investment_id"`
	// 投资人用户 ID
	InvestorID string `gorm:"column:investor_id;type:varchar(32);index;not null" json:"investor_id"`
	// 提现金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`

	// 收款银行信息，仅要求提供，不做格式校验
	BankName          string `gorm:"column:bank_name;type:varchar(128);not null" json:"bank_name"`
	BankAccountName   string `gorm:"column:bank_account_name;type:varchar(128);not null" json:"bank_account_name"`
	BankAccountNumber string `gorm:"column:bank_account_number;type:varchar(64);not null" json:"bank_account_number"`
	IFSCCode          string `gorm:"column:ifsc_code;type:varchar(32);not null" json:"ifsc_code"`

	// 状态
	Status WithdrawalStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING'" json:"status"`
	// 拒绝原因
	RejectReason string `gorm:"column:reject_reason;type:varchar(255)" json:"reject_reason,omitempty"`
	// 审批人用户 ID
	DecidedBy string `gorm:"column:decided_by;type:varchar(32)" json:"decided_by,omitempty"`
	// 审批时间
	DecidedAt *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`

	// 领域事件
	domainEvents []DomainEvent `gorm:"-" json:"-"`
}

// TableName 表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// NewWithdrawalRequest 创建待审批的提现请求
func NewWithdrawalRequest(withdrawalID, investmentID, investorID string, amount decimal.Decimal, bankName, accountName, accountNumber, ifscCode string) *WithdrawalRequest {
	req := &WithdrawalRequest{
		WithdrawalID:      withdrawalID,
		InvestmentID:      investmentID,
		InvestorID:        investorID,
		Amount:            amount,
		BankName:          bankName,
		BankAccountName:   accountName,
		BankAccountNumber: accountNumber,
		IFSCCode:          ifscCode,
		Status:            WithdrawalStatusPending,
		domainEvents:      make([]DomainEvent, 0),
	}

	req.addEvent(&WithdrawalSubmittedEvent{
		WithdrawalID: withdrawalID,
		InvestmentID: investmentID,
		InvestorID:   investorID,
		Amount:       amount,
		Timestamp:    time.Now(),
	})

	return req
}

// Approve 审批通过，仅 PENDING 状态允许
func (w *WithdrawalRequest) Approve(deciderID string) error {
	if w.Status != WithdrawalStatusPending {
		return &invdomain.StateError{
			Entity: "withdrawal", ID: w.WithdrawalID,
			Current: string(w.Status), Action: "approve",
		}
	}

	now := time.Now()
	w.Status = WithdrawalStatusCompleted
	w.DecidedBy = deciderID
	w.DecidedAt = &now

	w.addEvent(&WithdrawalApprovedEvent{
		WithdrawalID: w.WithdrawalID,
		InvestmentID: w.InvestmentID,
		InvestorID:   w.InvestorID,
		Amount:       w.Amount,
		DeciderID:    deciderID,
		Timestamp:    now,
	})

	return nil
}

// Reject 审批拒绝，仅 PENDING 状态允许
func (w *WithdrawalRequest) Reject(deciderID, reason string) error {
	if w.Status != WithdrawalStatusPending {
		return &invdomain.StateError{
			Entity: "withdrawal", ID: w.WithdrawalID,
			Current: string(w.Status), Action: "reject",
		}
	}

	now := time.Now()
	w.Status = WithdrawalStatusRejected
	w.DecidedBy = deciderID
	w.RejectReason = reason
	w.DecidedAt = &now

	w.addEvent(&WithdrawalRejectedEvent{
		WithdrawalID: w.WithdrawalID,
		InvestmentID: w.InvestmentID,
		InvestorID:   w.InvestorID,
		Amount:       w.Amount,
		DeciderID:    deciderID,
		Reason:       reason,
		Timestamp:    now,
	})

	return nil
}

// IsTerminal 是否处于终态
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status != WithdrawalStatusPending
}

func (w *WithdrawalRequest) addEvent(event DomainEvent) {
	w.domainEvents = append(w.domainEvents, event)
}

func (w *WithdrawalRequest) GetDomainEvents() []DomainEvent {
	return w.domainEvents
}

func (w *WithdrawalRequest) ClearDomainEvents() {
	w.domainEvents = nil
}
