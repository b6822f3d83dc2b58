package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/pkg/metrics"
	"github.com/wyfcoding/pkg/idgen"
)

// maxSaveRetries 乐观锁冲突的最大重试次数
const maxSaveRetries = 3

// CreateInvestmentCommand 发布融资请求命令
type CreateInvestmentCommand struct {
	SeekerID    string
	Title       string
	Description string
	Amount      decimal.Decimal
	Deadline    time.Time
	TermsType   string
	TermsText   string
}

// ContributeCommand 出资命令
type ContributeCommand struct {
	InvestmentID string
	InvestorID   string
	Amount       decimal.Decimal
}

// AccrueReturnsCommand 回报计提命令
// Equity 类使用 Profit（本期利润），Loan 类使用 PeriodDays（计息天数），
// Donation 类使用 Note（影响力说明，为空时沿用条款文本）
type AccrueReturnsCommand struct {
	InvestmentID string
	ActorID      string
	Profit       decimal.Decimal
	PeriodDays   int
	Note         string
}

// InvestmentCommandService 处理融资请求相关的写操作。
type InvestmentCommandService struct {
	investments   domain.InvestmentRepository
	contributions domain.ContributionRepository
	balances      domain.BalanceRepository
	impacts       domain.ImpactRepository
	publisher     domain.EventPublisher
	adminIDs      []string
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewInvestmentCommandService(
	investments domain.InvestmentRepository,
	contributions domain.ContributionRepository,
	balances domain.BalanceRepository,
	impacts domain.ImpactRepository,
	publisher domain.EventPublisher,
	adminIDs []string,
	logger *slog.Logger,
) *InvestmentCommandService {
	return &InvestmentCommandService{
		investments:   investments,
		contributions: contributions,
		balances:      balances,
		impacts:       impacts,
		publisher:     publisher,
		adminIDs:      adminIDs,
		logger:        logger.With("module", "investment_command"),
	}
}

// WithMetrics 挂接业务指标，未挂接时不上报
func (s *InvestmentCommandService) WithMetrics(m *metrics.Metrics) *InvestmentCommandService {
	s.metrics = m
	return s
}

// CreateInvestment 发布融资请求
func (s *InvestmentCommandService) CreateInvestment(ctx context.Context, cmd CreateInvestmentCommand) (*InvestmentDTO, error) {
	terms, verrs := domain.ValidateNewInvestment(domain.NewInvestmentInput{
		SeekerID:    cmd.SeekerID,
		Title:       cmd.Title,
		Description: cmd.Description,
		Amount:      cmd.Amount,
		Deadline:    cmd.Deadline,
		TermsType:   domain.TermsType(cmd.TermsType),
		TermsText:   cmd.TermsText,
	}, time.Now())
	if verrs != nil {
		return nil, verrs
	}

	investmentID := fmt.Sprintf("INV-%d", idgen.GenID())
	investment := domain.NewInvestment(investmentID, cmd.SeekerID, cmd.Title, cmd.Description, cmd.Amount, cmd.Deadline, terms)

	if err := s.investments.Save(ctx, investment); err != nil {
		s.logger.ErrorContext(ctx, "failed to create investment", "error", err)
		return nil, err
	}

	s.publishEvents(ctx, investment)
	if s.metrics != nil {
		s.metrics.InvestmentsCreatedTotal.Inc()
		s.metrics.InvestmentsOpen.Inc()
	}
	s.logger.InfoContext(ctx, "investment created",
		"investment_id", investmentID, "seeker_id", cmd.SeekerID, "amount", cmd.Amount)

	return toInvestmentDTO(investment), nil
}

// Contribute 出资，达标时募集状态迁移为 FUNDED
func (s *InvestmentCommandService) Contribute(ctx context.Context, cmd ContributeCommand) (*ContributionDTO, error) {
	var contribution *domain.Contribution
	var investment *domain.Investment

	err := s.withRetry(ctx, func() error {
		return s.investments.WithTx(ctx, func(txCtx context.Context) error {
			inv, err := s.investments.Get(txCtx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			if inv == nil {
				return domain.ErrNotFound
			}

			now := time.Now()
			if err := inv.RecordContribution(cmd.InvestorID, cmd.Amount, now); err != nil {
				return err
			}

			if err := s.investments.Save(txCtx, inv); err != nil {
				return err
			}

			c := &domain.Contribution{
				ContributionID: fmt.Sprintf("CTB-%d", idgen.GenID()),
				InvestmentID:   cmd.InvestmentID,
				InvestorID:     cmd.InvestorID,
				Amount:         cmd.Amount,
				ContributedAt:  now,
			}
			if err := s.contributions.Save(txCtx, c); err != nil {
				return err
			}

			investment = inv
			contribution = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, investment)
	if s.metrics != nil {
		s.metrics.ContributionsTotal.Inc()
		if investment.Status == domain.InvestmentStatusFunded {
			s.metrics.InvestmentsOpen.Dec()
		}
	}
	s.logger.InfoContext(ctx, "contribution recorded",
		"investment_id", cmd.InvestmentID, "investor_id", cmd.InvestorID, "amount", cmd.Amount)

	return toContributionDTO(contribution), nil
}

// AccrueReturns 按回报条款为所有出资人计提回报
func (s *InvestmentCommandService) AccrueReturns(ctx context.Context, cmd AccrueReturnsCommand) error {
	investment, err := s.investments.Get(ctx, cmd.InvestmentID)
	if err != nil {
		return err
	}
	if investment == nil {
		return domain.ErrNotFound
	}
	// 计提只允许筹资方或平台管理员触发
	if cmd.ActorID != investment.SeekerID && !slices.Contains(s.adminIDs, cmd.ActorID) {
		return &domain.AuthorizationError{UserID: cmd.ActorID, Action: "accrue returns on this investment"}
	}
	if investment.Status != domain.InvestmentStatusFunded && investment.Status != domain.InvestmentStatusCompleted {
		return &domain.StateError{
			Entity: "investment", ID: investment.InvestmentID,
			Current: string(investment.Status), Action: "accrue returns",
		}
	}

	contributions, err := s.contributions.GetByInvestment(ctx, cmd.InvestmentID)
	if err != nil {
		return err
	}
	if len(contributions) == 0 {
		return nil
	}

	switch investment.TermsType {
	case domain.TermsTypeEquity:
		err = s.accrueEquity(ctx, investment, contributions, cmd.Profit)
	case domain.TermsTypeLoan:
		err = s.accrueLoan(ctx, investment, contributions, cmd.PeriodDays)
	case domain.TermsTypeDonation:
		err = s.accrueDonation(ctx, investment, contributions, cmd.Note)
	default:
		err = fmt.Errorf("unknown terms type: %s", investment.TermsType)
	}
	if err == nil && s.metrics != nil {
		s.metrics.AccrualRunsTotal.Inc()
	}
	return err
}

// accrueEquity 本期利润按分成比例形成回报池，再按出资占比分配
func (s *InvestmentCommandService) accrueEquity(ctx context.Context, investment *domain.Investment, contributions []*domain.Contribution, profit decimal.Decimal) error {
	if !profit.IsPositive() {
		return domain.ValidationErrors{"profit": "profit must be positive for equity accrual"}
	}

	pool := profit.Mul(investment.TermsRate).Div(decimal.NewFromInt(100))
	perInvestor := sumByInvestor(contributions)

	for investorID, contributed := range perInvestor {
		share := pool.Mul(contributed).Div(investment.TotalRaised)
		if err := s.accrueToBalance(ctx, investment, investorID, share); err != nil {
			return err
		}
	}
	return nil
}

// accrueLoan 按年化利率对每笔出资计提 periodDays 天的利息
func (s *InvestmentCommandService) accrueLoan(ctx context.Context, investment *domain.Investment, contributions []*domain.Contribution, periodDays int) error {
	if periodDays <= 0 {
		return domain.ValidationErrors{"period_days": "period days must be positive for loan accrual"}
	}

	fraction := decimal.NewFromInt(int64(periodDays)).Div(decimal.NewFromInt(365))
	rate := investment.TermsRate.Div(decimal.NewFromInt(100))

	perInvestor := sumByInvestor(contributions)
	for investorID, contributed := range perInvestor {
		interest := contributed.Mul(rate).Mul(fraction)
		if err := s.accrueToBalance(ctx, investment, investorID, interest); err != nil {
			return err
		}
	}
	return nil
}

// accrueDonation 捐赠类不产生金额回报，仅记录影响力
func (s *InvestmentCommandService) accrueDonation(ctx context.Context, investment *domain.Investment, contributions []*domain.Contribution, note string) error {
	if note == "" {
		note = investment.TermsImpact
	}

	now := time.Now()
	for investorID := range sumByInvestor(contributions) {
		entry := &domain.ImpactEntry{
			EntryID:      fmt.Sprintf("IMP-%d", idgen.GenID()),
			InvestmentID: investment.InvestmentID,
			InvestorID:   investorID,
			Note:         note,
			RecordedAt:   now,
		}
		if err := s.impacts.Save(ctx, entry); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "impact entries recorded", "investment_id", investment.InvestmentID)
	return nil
}

func (s *InvestmentCommandService) accrueToBalance(ctx context.Context, investment *domain.Investment, investorID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}

	err := s.withRetry(ctx, func() error {
		return s.investments.WithTx(ctx, func(txCtx context.Context) error {
			balance, err := s.balances.Get(txCtx, investment.InvestmentID, investorID)
			if err != nil {
				return err
			}
			if balance == nil {
				balance = domain.NewInvestorBalance(investment.InvestmentID, investorID)
			}
			if err := balance.Accrue(amount); err != nil {
				return err
			}
			return s.balances.Save(txCtx, balance)
		})
	})
	if err != nil {
		return err
	}

	if perr := s.publisher.Publish(ctx, investment.InvestmentID, &domain.ReturnsAccruedEvent{
		InvestmentID: investment.InvestmentID,
		InvestorID:   investorID,
		Amount:       amount,
		Timestamp:    time.Now(),
	}); perr != nil {
		s.logger.WarnContext(ctx, "failed to publish accrual event", "error", perr)
	}
	return nil
}

// CompleteInvestment 筹资方结项
func (s *InvestmentCommandService) CompleteInvestment(ctx context.Context, investmentID, seekerID string) error {
	return s.transition(ctx, investmentID, func(inv *domain.Investment) error {
		if inv.SeekerID != seekerID {
			return &domain.AuthorizationError{UserID: seekerID, Action: "complete this investment"}
		}
		return inv.Complete(time.Now())
	})
}

// CancelInvestment 筹资方撤回（仅限无出资的 OPEN 状态）
func (s *InvestmentCommandService) CancelInvestment(ctx context.Context, investmentID, seekerID string) error {
	return s.transition(ctx, investmentID, func(inv *domain.Investment) error {
		if inv.SeekerID != seekerID {
			return &domain.AuthorizationError{UserID: seekerID, Action: "cancel this investment"}
		}
		return inv.Cancel(time.Now())
	})
}

// ExpireInvestment 将截止时间已过的融资请求置为过期
func (s *InvestmentCommandService) ExpireInvestment(ctx context.Context, investmentID string) error {
	return s.transition(ctx, investmentID, func(inv *domain.Investment) error {
		return inv.Expire(time.Now())
	})
}

// ExpireDue 批量过期，返回成功处理的数量，供后台任务调用
func (s *InvestmentCommandService) ExpireDue(ctx context.Context, limit int) (int, error) {
	due, err := s.investments.ListExpirable(ctx, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, inv := range due {
		if err := s.ExpireInvestment(ctx, inv.InvestmentID); err != nil {
			s.logger.WarnContext(ctx, "failed to expire investment",
				"investment_id", inv.InvestmentID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// transition 加载聚合、应用状态迁移并保存，乐观锁冲突时重试
func (s *InvestmentCommandService) transition(ctx context.Context, investmentID string, apply func(*domain.Investment) error) error {
	var investment *domain.Investment
	var prevStatus domain.InvestmentStatus

	err := s.withRetry(ctx, func() error {
		return s.investments.WithTx(ctx, func(txCtx context.Context) error {
			inv, err := s.investments.Get(txCtx, investmentID)
			if err != nil {
				return err
			}
			if inv == nil {
				return domain.ErrNotFound
			}
			prevStatus = inv.Status
			if err := apply(inv); err != nil {
				return err
			}
			if err := s.investments.Save(txCtx, inv); err != nil {
				return err
			}
			investment = inv
			return nil
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil && prevStatus == domain.InvestmentStatusOpen && investment.Status != domain.InvestmentStatusOpen {
		s.metrics.InvestmentsOpen.Dec()
	}
	s.publishEvents(ctx, investment)
	return nil
}

// withRetry 乐观锁冲突时有限重试，耗尽后返回 ErrConflict
func (s *InvestmentCommandService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrConcurrentUpdate) {
			return err
		}
	}
	s.logger.WarnContext(ctx, "retries exhausted on concurrent update", "error", err)
	return domain.ErrConflict
}

// publishEvents 提交后发布领域事件，失败仅告警不回滚业务
func (s *InvestmentCommandService) publishEvents(ctx context.Context, investment *domain.Investment) {
	if investment == nil {
		return
	}
	for _, event := range investment.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, investment.InvestmentID, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish domain event",
				"event", event.EventName(), "investment_id", investment.InvestmentID, "error", err)
		}
	}
	investment.ClearDomainEvents()
}

func sumByInvestor(contributions []*domain.Contribution) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(contributions))
	for _, c := range contributions {
		totals[c.InvestorID] = totals[c.InvestorID].Add(c.Amount)
	}
	return totals
}
