package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/venturelink/funding/internal/investment/domain"
)

// InvestmentDTO 融资请求视图
type InvestmentDTO struct {
	InvestmentID string          `json:"investment_id"`
	SeekerID     string          `json:"seeker_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Deadline     time.Time       `json:"deadline"`
	TermsType    string          `json:"terms_type"`
	Terms        string          `json:"terms"`
	Status       string          `json:"status"`
	TotalRaised  decimal.Decimal `json:"total_raised"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ContributionDTO 出资记录视图
type ContributionDTO struct {
	ContributionID string          `json:"contribution_id"`
	InvestmentID   string          `json:"investment_id"`
	InvestorID     string          `json:"investor_id"`
	Amount         decimal.Decimal `json:"amount"`
	ContributedAt  time.Time       `json:"contributed_at"`
}

// BalanceDTO 投资人余额视图
type BalanceDTO struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
	Held         decimal.Decimal `json:"held"`
	Completed    decimal.Decimal `json:"completed"`
	Available    decimal.Decimal `json:"available"`
}

func toInvestmentDTO(inv *domain.Investment) *InvestmentDTO {
	return &InvestmentDTO{
		InvestmentID: inv.InvestmentID,
		SeekerID:     inv.SeekerID,
		Title:        inv.Title,
		Description:  inv.Description,
		Amount:       inv.Amount,
		Deadline:     inv.Deadline,
		TermsType:    string(inv.TermsType),
		Terms:        inv.Terms().Describe(),
		Status:       string(inv.Status),
		TotalRaised:  inv.TotalRaised,
		CreatedAt:    inv.CreatedAt,
	}
}

func toContributionDTO(c *domain.Contribution) *ContributionDTO {
	return &ContributionDTO{
		ContributionID: c.ContributionID,
		InvestmentID:   c.InvestmentID,
		InvestorID:     c.InvestorID,
		Amount:         c.Amount,
		ContributedAt:  c.ContributedAt,
	}
}

func toBalanceDTO(b *domain.InvestorBalance) *BalanceDTO {
	return &BalanceDTO{
		InvestmentID: b.InvestmentID,
		InvestorID:   b.InvestorID,
		TotalAccrued: b.TotalAccrued,
		Held:         b.Held,
		Completed:    b.Completed,
		Available:    b.Available(),
	}
}
