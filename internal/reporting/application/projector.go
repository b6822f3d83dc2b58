// Package application 报表投影，纯读侧，不参与任何写事务
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	wddomain "github.com/venturelink/funding/internal/withdrawal/domain"
	"github.com/venturelink/funding/pkg/cache"
)

// snapshotTTL 报表快照缓存时长
const snapshotTTL = 30 * time.Second

// InvestorStatement 投资人对账单
type InvestorStatement struct {
	InvestorID string `json:"investor_id"`
	// 已发出的出资
	Sent []StatementEntry `json:"sent"`
	// 已到账的提现
	Received []StatementEntry `json:"received"`
	// 各融资请求下的回报余额
	Balances []BalanceSummary `json:"balances"`
	// 收到的影响力记录
	ImpactEntries []ImpactSummary `json:"impact_entries"`
	// 合计
	TotalSent     decimal.Decimal `json:"total_sent"`
	TotalReceived decimal.Decimal `json:"total_received"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// StatementEntry 对账单条目
type StatementEntry struct {
	InvestmentID string          `json:"investment_id"`
	Amount       decimal.Decimal `json:"amount"`
	At           time.Time       `json:"at"`
}

// BalanceSummary 余额摘要
type BalanceSummary struct {
	InvestmentID string          `json:"investment_id"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
	Held         decimal.Decimal `json:"held"`
	Completed    decimal.Decimal `json:"completed"`
	Available    decimal.Decimal `json:"available"`
}

// ImpactSummary 影响力记录摘要
type ImpactSummary struct {
	InvestmentID string    `json:"investment_id"`
	Note         string    `json:"note"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// SeekerDashboard 筹资方看板
type SeekerDashboard struct {
	SeekerID string `json:"seeker_id"`
	// 发布的融资请求
	Investments []DashboardInvestment `json:"investments"`
	// 待审批的提现队列
	PendingWithdrawals []PendingWithdrawal `json:"pending_withdrawals"`
	// 累计募集总额
	TotalRaised decimal.Decimal `json:"total_raised"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DashboardInvestment 看板中的融资请求摘要
type DashboardInvestment struct {
	InvestmentID  string          `json:"investment_id"`
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TotalRaised   decimal.Decimal `json:"total_raised"`
	Deadline      time.Time       `json:"deadline"`
	Contributions int             `json:"contributions"`
}

// PendingWithdrawal 待审批提现摘要
type PendingWithdrawal struct {
	WithdrawalID string          `json:"withdrawal_id"`
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// ReportingService 报表服务，cache 可为 nil（测试环境），nil 时直接读库
type ReportingService struct {
	investments   invdomain.InvestmentRepository
	contributions invdomain.ContributionRepository
	balances      invdomain.BalanceRepository
	impacts       invdomain.ImpactRepository
	withdrawals   wddomain.WithdrawalRepository
	cache         *cache.RedisCache
	logger        *slog.Logger
}

func NewReportingService(
	investments invdomain.InvestmentRepository,
	contributions invdomain.ContributionRepository,
	balances invdomain.BalanceRepository,
	impacts invdomain.ImpactRepository,
	withdrawals wddomain.WithdrawalRepository,
	cache *cache.RedisCache,
	logger *slog.Logger,
) *ReportingService {
	return &ReportingService{
		investments:   investments,
		contributions: contributions,
		balances:      balances,
		impacts:       impacts,
		withdrawals:   withdrawals,
		cache:         cache,
		logger:        logger.With("module", "reporting"),
	}
}

// InvestorStatement 生成投资人对账单
func (s *ReportingService) InvestorStatement(ctx context.Context, investorID string) (*InvestorStatement, error) {
	cacheKey := fmt.Sprintf("report:investor:%s", investorID)
	if s.cache != nil {
		var cached InvestorStatement
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	contributions, err := s.contributions.GetByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.withdrawals.GetByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances.GetByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	impacts, err := s.impacts.GetByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}

	statement := &InvestorStatement{
		InvestorID:    investorID,
		Sent:          make([]StatementEntry, 0, len(contributions)),
		Received:      make([]StatementEntry, 0),
		Balances:      make([]BalanceSummary, 0, len(balances)),
		ImpactEntries: make([]ImpactSummary, 0, len(impacts)),
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
		GeneratedAt:   time.Now(),
	}

	for _, c := range contributions {
		statement.Sent = append(statement.Sent, StatementEntry{
			InvestmentID: c.InvestmentID,
			Amount:       c.Amount,
			At:           c.ContributedAt,
		})
		statement.TotalSent = statement.TotalSent.Add(c.Amount)
	}

	for _, w := range withdrawals {
		if w.Status != wddomain.WithdrawalStatusCompleted {
			continue
		}
		at := w.CreatedAt
		if w.DecidedAt != nil {
			at = *w.DecidedAt
		}
		statement.Received = append(statement.Received, StatementEntry{
			InvestmentID: w.InvestmentID,
			Amount:       w.Amount,
			At:           at,
		})
		statement.TotalReceived = statement.TotalReceived.Add(w.Amount)
	}

	for _, b := range balances {
		statement.Balances = append(statement.Balances, BalanceSummary{
			InvestmentID: b.InvestmentID,
			TotalAccrued: b.TotalAccrued,
			Held:         b.Held,
			Completed:    b.Completed,
			Available:    b.Available(),
		})
	}

	for _, e := range impacts {
		statement.ImpactEntries = append(statement.ImpactEntries, ImpactSummary{
			InvestmentID: e.InvestmentID,
			Note:         e.Note,
			RecordedAt:   e.RecordedAt,
		})
	}

	s.cacheSnapshot(ctx, cacheKey, statement)
	return statement, nil
}

// SeekerDashboard 生成筹资方看板
func (s *ReportingService) SeekerDashboard(ctx context.Context, seekerID string) (*SeekerDashboard, error) {
	cacheKey := fmt.Sprintf("report:seeker:%s", seekerID)
	if s.cache != nil {
		var cached SeekerDashboard
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	investments, err := s.investments.GetBySeeker(ctx, seekerID)
	if err != nil {
		return nil, err
	}

	dashboard := &SeekerDashboard{
		SeekerID:           seekerID,
		Investments:        make([]DashboardInvestment, 0, len(investments)),
		PendingWithdrawals: make([]PendingWithdrawal, 0),
		TotalRaised:        decimal.Zero,
		GeneratedAt:        time.Now(),
	}

	for _, inv := range investments {
		contributions, err := s.contributions.GetByInvestment(ctx, inv.InvestmentID)
		if err != nil {
			return nil, err
		}

		dashboard.Investments = append(dashboard.Investments, DashboardInvestment{
			InvestmentID:  inv.InvestmentID,
			Title:         inv.Title,
			Status:        string(inv.Status),
			Amount:        inv.Amount,
			TotalRaised:   inv.TotalRaised,
			Deadline:      inv.Deadline,
			Contributions: len(contributions),
		})
		dashboard.TotalRaised = dashboard.TotalRaised.Add(inv.TotalRaised)

		pending, err := s.withdrawals.ListPendingByInvestment(ctx, inv.InvestmentID)
		if err != nil {
			return nil, err
		}
		for _, w := range pending {
			dashboard.PendingWithdrawals = append(dashboard.PendingWithdrawals, PendingWithdrawal{
				WithdrawalID: w.WithdrawalID,
				InvestmentID: w.InvestmentID,
				InvestorID:   w.InvestorID,
				Amount:       w.Amount,
				SubmittedAt:  w.CreatedAt,
			})
		}
	}

	s.cacheSnapshot(ctx, cacheKey, dashboard)
	return dashboard, nil
}

// cacheSnapshot 写缓存失败仅告警，不影响读路径
func (s *ReportingService) cacheSnapshot(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, snapshotTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to cache report snapshot", "key", key, "error", err)
	}
}
