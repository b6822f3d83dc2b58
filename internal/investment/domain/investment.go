// Package domain 融资请求聚合根与出资记录
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestmentStatus 融资请求状态
type InvestmentStatus string

const (
	InvestmentStatusOpen      InvestmentStatus = "OPEN"      // 募集中
	InvestmentStatusFunded    InvestmentStatus = "FUNDED"    // 已达标
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED" // 已结项
	InvestmentStatusExpired   InvestmentStatus = "EXPIRED"   // 已过期
	InvestmentStatusCancelled InvestmentStatus = "CANCELLED" // 已取消
)

// Investment 融资请求聚合根
// 筹资方发布的募资需求，记录募集进度与回报条款
type Investment struct {
	gorm.Model
	// 融资请求 ID (业务主键)，全局唯一
	InvestmentID string `gorm:"column:investment_id;type:varchar(32);uniqueIndex;not null" json:"investment_id"`
	// 筹资方用户 ID
	SeekerID string `gorm:"column:seeker_id;type:varchar(32);index;not null" json:"seeker_id"`
	// 标题
	Title string `gorm:"column:title;type:varchar(100);not null" json:"title"`
	// 详细描述
	Description string `gorm:"column:description;type:varchar(300);not null" json:"description"`
	// 目标金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	// 募集截止时间
	Deadline time.Time `gorm:"column:deadline;not null" json:"deadline"`
	// 回报条款类型（EQUITY, LOAN, DONATION）
	TermsType TermsType `gorm:"column:terms_type;type:varchar(16);not null" json:"terms_type"`
	// 股权分成比例或借贷年化利率（百分比）
	TermsRate decimal.Decimal `gorm:"column:terms_rate;type:decimal(10,4);default:0" json:"terms_rate"`
	// 捐赠影响力说明
	TermsImpact string `gorm:"column:terms_impact;type:varchar(300)" json:"terms_impact"`
	// 状态
	Status InvestmentStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	// 已募集总额
	TotalRaised decimal.Decimal `gorm:"column:total_raised;type:decimal(32,18);default:0;not null" json:"total_raised"`
	// 乐观锁版本号
	Version int64 `gorm:"column:version;default:0;not null" json:"-"`

	// 领域事件
	domainEvents []DomainEvent `gorm:"-" json:"-"`
}

// TableName 表名
func (Investment) TableName() string {
	return "investments"
}

// NewInvestment 创建融资请求，terms 必须已通过 ValidateNewInvestment
func NewInvestment(investmentID, seekerID, title, description string, amount decimal.Decimal, deadline time.Time, terms ReturnsTerms) *Investment {
	inv := &Investment{
		InvestmentID: investmentID,
		SeekerID:     seekerID,
		Title:        title,
		Description:  description,
		Amount:       amount,
		Deadline:     deadline,
		TermsType:    terms.Type(),
		Status:       InvestmentStatusOpen,
		TotalRaised:  decimal.Zero,
		domainEvents: make([]DomainEvent, 0),
	}

	switch t := terms.(type) {
	case EquityTerms:
		inv.TermsRate = t.Percentage
	case LoanTerms:
		inv.TermsRate = t.AnnualRate
	case DonationTerms:
		inv.TermsImpact = t.Impact
	}

	inv.addEvent(&InvestmentCreatedEvent{
		InvestmentID: investmentID,
		SeekerID:     seekerID,
		Amount:       amount,
		TermsType:    terms.Type(),
		Timestamp:    time.Now(),
	})

	return inv
}

// Terms 还原回报条款变体
func (i *Investment) Terms() ReturnsTerms {
	switch i.TermsType {
	case TermsTypeEquity:
		return EquityTerms{Percentage: i.TermsRate}
	case TermsTypeLoan:
		return LoanTerms{AnnualRate: i.TermsRate}
	default:
		return DonationTerms{Impact: i.TermsImpact}
	}
}

// RecordContribution 记录一笔出资，达到目标金额时迁移为 FUNDED
func (i *Investment) RecordContribution(investorID string, amount decimal.Decimal, now time.Time) error {
	if i.Status != InvestmentStatusOpen {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "accept contributions"}
	}
	if !amount.IsPositive() {
		return ValidationErrors{"amount": "contribution amount must be positive"}
	}
	if now.After(i.Deadline) {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "accept contributions past deadline"}
	}

	i.TotalRaised = i.TotalRaised.Add(amount)

	i.addEvent(&ContributionRecordedEvent{
		InvestmentID: i.InvestmentID,
		InvestorID:   investorID,
		Amount:       amount,
		TotalRaised:  i.TotalRaised,
		Timestamp:    now,
	})

	if i.TotalRaised.GreaterThanOrEqual(i.Amount) {
		i.Status = InvestmentStatusFunded
		i.addEvent(&InvestmentFundedEvent{
			InvestmentID: i.InvestmentID,
			TotalRaised:  i.TotalRaised,
			Timestamp:    now,
		})
	}

	return nil
}

// Complete 筹资方结项，仅 FUNDED 状态允许
func (i *Investment) Complete(now time.Time) error {
	if i.Status != InvestmentStatusFunded {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "complete"}
	}
	i.Status = InvestmentStatusCompleted
	i.addEvent(&InvestmentCompletedEvent{
		InvestmentID: i.InvestmentID,
		Timestamp:    now,
	})
	return nil
}

// Cancel 筹资方撤回，仅 OPEN 且无出资时允许
func (i *Investment) Cancel(now time.Time) error {
	if i.Status != InvestmentStatusOpen {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "cancel"}
	}
	if i.TotalRaised.IsPositive() {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "cancel with existing contributions"}
	}
	i.Status = InvestmentStatusCancelled
	i.addEvent(&InvestmentCancelledEvent{
		InvestmentID: i.InvestmentID,
		Timestamp:    now,
	})
	return nil
}

// Expire 截止时间已过的募集迁移为 EXPIRED
func (i *Investment) Expire(now time.Time) error {
	if i.Status != InvestmentStatusOpen && i.Status != InvestmentStatusFunded {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "expire"}
	}
	if !now.After(i.Deadline) {
		return &StateError{Entity: "investment", ID: i.InvestmentID, Current: string(i.Status), Action: "expire before deadline"}
	}
	i.Status = InvestmentStatusExpired
	i.addEvent(&InvestmentExpiredEvent{
		InvestmentID: i.InvestmentID,
		Timestamp:    now,
	})
	return nil
}

func (i *Investment) addEvent(event DomainEvent) {
	i.domainEvents = append(i.domainEvents, event)
}

func (i *Investment) GetDomainEvents() []DomainEvent {
	return i.domainEvents
}

func (i *Investment) ClearDomainEvents() {
	i.domainEvents = nil
}

// Contribution 出资记录，写入后不可变更
type Contribution struct {
	gorm.Model
	// 出资记录 ID (业务主键)
	ContributionID string `gorm:"column:contribution_id;type:varchar(32);uniqueIndex;not null" json:"contribution_id"`
	// 融资请求 ID
	InvestmentID string `gorm:"column:investment_id;type:varchar(32);index;not null" json:"investment_id"`
	// 投资人用户 ID
	InvestorID string `gorm:"column:investor_id;type:varchar(32);index;not null" json:"investor_id"`
	// 出资金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	// 出资时间
	ContributedAt time.Time `gorm:"column:contributed_at;not null" json:"contributed_at"`
}

// TableName 表名
func (Contribution) TableName() string {
	return "contributions"
}

// ImpactEntry 捐赠类回报的影响力记录
type ImpactEntry struct {
	gorm.Model
	// 记录 ID (业务主键)
	EntryID string `gorm:"column:entry_id;type:varchar(32);uniqueIndex;not null" json:"entry_id"`
	// 融资请求 ID
	InvestmentID string `gorm:"column:investment_id;type:varchar(32);index;not null" json:"investment_id"`
	// 投资人用户 ID
	InvestorID string `gorm:"column:investor_id;type:varchar(32);index;not null" json:"investor_id"`
	// 影响力说明
	Note string `gorm:"column:note;type:varchar(300);not null" json:"note"`
	// 记录时间
	RecordedAt time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

// TableName 表名
func (ImpactEntry) TableName() string {
	return "impact_entries"
}
