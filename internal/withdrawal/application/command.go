package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/internal/withdrawal/domain"
	"github.com/venturelink/funding/pkg/metrics"
	"github.com/wyfcoding/pkg/idgen"
)

// maxSaveRetries 乐观锁冲突的最大重试次数
const maxSaveRetries = 3

// SubmitWithdrawalCommand 提交提现命令
type SubmitWithdrawalCommand struct {
	InvestmentID      string
	InvestorID        string
	Amount            decimal.Decimal
	BankName          string
	BankAccountName   string
	BankAccountNumber string
	IFSCCode          string
}

// DecideWithdrawalCommand 审批提现命令
type DecideWithdrawalCommand struct {
	WithdrawalID string
	DeciderID    string
	Reason       string
}

// WithdrawalCommandService 处理提现相关的写操作。
type WithdrawalCommandService struct {
	withdrawals domain.WithdrawalRepository
	investments invdomain.InvestmentRepository
	balances    invdomain.BalanceRepository
	contribs    invdomain.ContributionRepository
	publisher   domain.EventPublisher
	adminIDs    []string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewWithdrawalCommandService(
	withdrawals domain.WithdrawalRepository,
	investments invdomain.InvestmentRepository,
	balances invdomain.BalanceRepository,
	contribs invdomain.ContributionRepository,
	publisher domain.EventPublisher,
	adminIDs []string,
	logger *slog.Logger,
) *WithdrawalCommandService {
	return &WithdrawalCommandService{
		withdrawals: withdrawals,
		investments: investments,
		balances:    balances,
		contribs:    contribs,
		publisher:   publisher,
		adminIDs:    adminIDs,
		logger:      logger.With("module", "withdrawal_command"),
	}
}

// WithMetrics 挂接业务指标，未挂接时不上报
func (s *WithdrawalCommandService) WithMetrics(m *metrics.Metrics) *WithdrawalCommandService {
	s.metrics = m
	return s
}

// SubmitWithdrawal 提交提现请求
// 余额校验与冻结、请求落库在同一事务内完成，余额不足时不留下任何请求记录
func (s *WithdrawalCommandService) SubmitWithdrawal(ctx context.Context, cmd SubmitWithdrawalCommand) (*WithdrawalDTO, error) {
	if verrs := validateSubmit(cmd); verrs != nil {
		return nil, verrs
	}

	var request *domain.WithdrawalRequest

	err := s.withRetry(ctx, func() error {
		return s.investments.WithTx(ctx, func(txCtx context.Context) error {
			investment, err := s.investments.Get(txCtx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			if investment == nil {
				return invdomain.ErrNotFound
			}

			count, err := s.contribs.CountByInvestmentAndInvestor(txCtx, cmd.InvestmentID, cmd.InvestorID)
			if err != nil {
				return err
			}
			if count == 0 {
				return &invdomain.AuthorizationError{UserID: cmd.InvestorID, Action: "withdraw from an investment without contributions"}
			}

			balance, err := s.balances.Get(txCtx, cmd.InvestmentID, cmd.InvestorID)
			if err != nil {
				return err
			}
			if balance == nil {
				return invdomain.ErrInsufficientFunds
			}

			if err := balance.Hold(cmd.Amount); err != nil {
				return err
			}
			if err := s.balances.Save(txCtx, balance); err != nil {
				return err
			}

			req := domain.NewWithdrawalRequest(
				fmt.Sprintf("WDR-%d", idgen.GenID()),
				cmd.InvestmentID,
				cmd.InvestorID,
				cmd.Amount,
				cmd.BankName,
				cmd.BankAccountName,
				cmd.BankAccountNumber,
				cmd.IFSCCode,
			)
			if err := s.withdrawals.Save(txCtx, req); err != nil {
				return err
			}

			request = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, request)
	if s.metrics != nil {
		s.metrics.WithdrawalsSubmitted.Inc()
		s.metrics.WithdrawalsPending.Inc()
	}
	s.logger.InfoContext(ctx, "withdrawal submitted",
		"withdrawal_id", request.WithdrawalID,
		"investment_id", cmd.InvestmentID,
		"investor_id", cmd.InvestorID,
		"amount", cmd.Amount)

	return toWithdrawalDTO(request), nil
}

// ApproveWithdrawal 审批通过：冻结金额转为已完成提现
func (s *WithdrawalCommandService) ApproveWithdrawal(ctx context.Context, cmd DecideWithdrawalCommand) error {
	return s.decide(ctx, cmd, "approve", func(request *domain.WithdrawalRequest, balance *invdomain.InvestorBalance) error {
		if err := request.Approve(cmd.DeciderID); err != nil {
			return err
		}
		return balance.SettleHold(request.Amount)
	})
}

// RejectWithdrawal 审批拒绝：释放冻结金额
func (s *WithdrawalCommandService) RejectWithdrawal(ctx context.Context, cmd DecideWithdrawalCommand) error {
	return s.decide(ctx, cmd, "reject", func(request *domain.WithdrawalRequest, balance *invdomain.InvestorBalance) error {
		if err := request.Reject(cmd.DeciderID, cmd.Reason); err != nil {
			return err
		}
		return balance.ReleaseHold(request.Amount)
	})
}

// decide 审批公共流程：鉴权、状态迁移与余额调整在同一事务内完成
func (s *WithdrawalCommandService) decide(ctx context.Context, cmd DecideWithdrawalCommand, action string, apply func(*domain.WithdrawalRequest, *invdomain.InvestorBalance) error) error {
	var request *domain.WithdrawalRequest

	err := s.withRetry(ctx, func() error {
		return s.investments.WithTx(ctx, func(txCtx context.Context) error {
			req, err := s.withdrawals.Get(txCtx, cmd.WithdrawalID)
			if err != nil {
				return err
			}
			if req == nil {
				return invdomain.ErrNotFound
			}

			investment, err := s.investments.Get(txCtx, req.InvestmentID)
			if err != nil {
				return err
			}
			if investment == nil {
				return invdomain.ErrNotFound
			}

			if err := s.authorize(cmd.DeciderID, req, investment, action); err != nil {
				return err
			}

			balance, err := s.balances.Get(txCtx, req.InvestmentID, req.InvestorID)
			if err != nil {
				return err
			}
			if balance == nil {
				return invdomain.ErrInsufficientFunds
			}

			if err := apply(req, balance); err != nil {
				return err
			}

			if err := s.balances.Save(txCtx, balance); err != nil {
				return err
			}
			if err := s.withdrawals.Save(txCtx, req); err != nil {
				return err
			}

			request = req
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.publishEvents(ctx, request)
	if s.metrics != nil {
		s.metrics.WithdrawalsPending.Dec()
	}
	s.logger.InfoContext(ctx, "withdrawal decided",
		"withdrawal_id", cmd.WithdrawalID, "action", action, "decider_id", cmd.DeciderID)
	return nil
}

// authorize 审批人必须是筹资方或平台管理员，且不能是提现申请人本人
func (s *WithdrawalCommandService) authorize(deciderID string, request *domain.WithdrawalRequest, investment *invdomain.Investment, action string) error {
	if deciderID == request.InvestorID {
		return &invdomain.AuthorizationError{UserID: deciderID, Action: action + " their own withdrawal"}
	}
	if deciderID == investment.SeekerID || slices.Contains(s.adminIDs, deciderID) {
		return nil
	}
	return &invdomain.AuthorizationError{UserID: deciderID, Action: action + " this withdrawal"}
}

// withRetry 乐观锁冲突时有限重试，耗尽后返回 ErrConflict
func (s *WithdrawalCommandService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, invdomain.ErrConcurrentUpdate) {
			return err
		}
	}
	if s.metrics != nil {
		s.metrics.WithdrawalConflicts.Inc()
	}
	s.logger.WarnContext(ctx, "retries exhausted on concurrent update", "error", err)
	return invdomain.ErrConflict
}

func (s *WithdrawalCommandService) publishEvents(ctx context.Context, request *domain.WithdrawalRequest) {
	if request == nil {
		return
	}
	for _, event := range request.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, request.WithdrawalID, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish domain event",
				"event", event.EventName(), "withdrawal_id", request.WithdrawalID, "error", err)
		}
	}
	request.ClearDomainEvents()
}

func validateSubmit(cmd SubmitWithdrawalCommand) invdomain.ValidationErrors {
	errs := make(invdomain.ValidationErrors)
	if !cmd.Amount.IsPositive() {
		errs.Add("amount", "withdrawal amount must be positive")
	}
	if strings.TrimSpace(cmd.BankName) == "" {
		errs.Add("bank_name", "bank name is required")
	}
	if strings.TrimSpace(cmd.BankAccountName) == "" {
		errs.Add("bank_account_name", "bank account name is required")
	}
	if strings.TrimSpace(cmd.BankAccountNumber) == "" {
		errs.Add("bank_account_number", "bank account number is required")
	}
	if strings.TrimSpace(cmd.IFSCCode) == "" {
		errs.Add("ifsc_code", "IFSC code is required")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
