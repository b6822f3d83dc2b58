// Package domain 融资服务领域事件
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// InvestmentCreatedEvent 融资请求发布事件
type InvestmentCreatedEvent struct {
	InvestmentID string          `json:"investment_id"`
	SeekerID     string          `json:"seeker_id"`
	Amount       decimal.Decimal `json:"amount"`
	TermsType    TermsType       `json:"terms_type"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *InvestmentCreatedEvent) EventName() string     { return "investment.created" }
func (e *InvestmentCreatedEvent) OccurredAt() time.Time { return e.Timestamp }

// ContributionRecordedEvent 出资事件
type ContributionRecordedEvent struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	TotalRaised  decimal.Decimal `json:"total_raised"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *ContributionRecordedEvent) EventName() string     { return "investment.contribution_recorded" }
func (e *ContributionRecordedEvent) OccurredAt() time.Time { return e.Timestamp }

// InvestmentFundedEvent 募集达标事件
type InvestmentFundedEvent struct {
	InvestmentID string          `json:"investment_id"`
	TotalRaised  decimal.Decimal `json:"total_raised"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *InvestmentFundedEvent) EventName() string     { return "investment.funded" }
func (e *InvestmentFundedEvent) OccurredAt() time.Time { return e.Timestamp }

// ReturnsAccruedEvent 回报计提事件
type ReturnsAccruedEvent struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *ReturnsAccruedEvent) EventName() string     { return "investment.returns_accrued" }
func (e *ReturnsAccruedEvent) OccurredAt() time.Time { return e.Timestamp }

// InvestmentCompletedEvent 结项事件
type InvestmentCompletedEvent struct {
	InvestmentID string    `json:"investment_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *InvestmentCompletedEvent) EventName() string     { return "investment.completed" }
func (e *InvestmentCompletedEvent) OccurredAt() time.Time { return e.Timestamp }

// InvestmentCancelledEvent 撤回事件
type InvestmentCancelledEvent struct {
	InvestmentID string    `json:"investment_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *InvestmentCancelledEvent) EventName() string     { return "investment.cancelled" }
func (e *InvestmentCancelledEvent) OccurredAt() time.Time { return e.Timestamp }

// InvestmentExpiredEvent 过期事件
type InvestmentExpiredEvent struct {
	InvestmentID string    `json:"investment_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *InvestmentExpiredEvent) EventName() string     { return "investment.expired" }
func (e *InvestmentExpiredEvent) OccurredAt() time.Time { return e.Timestamp }
