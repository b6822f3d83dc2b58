// Package domain 提现服务领域事件
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// WithdrawalSubmittedEvent 提现提交事件
type WithdrawalSubmittedEvent struct {
	WithdrawalID string          `json:"withdrawal_id"`
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *WithdrawalSubmittedEvent) EventName() string     { return "withdrawal.submitted" }
func (e *WithdrawalSubmittedEvent) OccurredAt() time.Time { return e.Timestamp }

// WithdrawalApprovedEvent 提现通过事件
type WithdrawalApprovedEvent struct {
	WithdrawalID string          `json:"withdrawal_id"`
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	DeciderID    string          `json:"decider_id"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *WithdrawalApprovedEvent) EventName() string     { return "withdrawal.approved" }
func (e *WithdrawalApprovedEvent) OccurredAt() time.Time { return e.Timestamp }

// WithdrawalRejectedEvent 提现拒绝事件
type WithdrawalRejectedEvent struct {
	WithdrawalID string          `json:"withdrawal_id"`
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	DeciderID    string          `json:"decider_id"`
	Reason       string          `json:"reason"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *WithdrawalRejectedEvent) EventName() string     { return "withdrawal.rejected" }
func (e *WithdrawalRejectedEvent) OccurredAt() time.Time { return e.Timestamp }
