package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	invmysql "github.com/venturelink/funding/internal/investment/infrastructure/persistence/mysql"
	"github.com/venturelink/funding/internal/withdrawal/domain"
	wdmysql "github.com/venturelink/funding/internal/withdrawal/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, domain.DomainEvent) error { return nil }

type testEnv struct {
	cmd         *WithdrawalCommandService
	query       *WithdrawalQueryService
	investments invdomain.InvestmentRepository
	balances    invdomain.BalanceRepository
	contribs    invdomain.ContributionRepository
	withdrawals domain.WithdrawalRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&invdomain.Investment{},
		&invdomain.Contribution{},
		&invdomain.InvestorBalance{},
		&domain.WithdrawalRequest{},
	))

	investments := invmysql.NewInvestmentRepository(db)
	contribs := invmysql.NewContributionRepository(db)
	balances := invmysql.NewBalanceRepository(db)
	withdrawals := wdmysql.NewWithdrawalRepository(db)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		cmd: NewWithdrawalCommandService(
			withdrawals, investments, balances, contribs, noopPublisher{}, []string{"admin-1"}, log),
		query:       NewWithdrawalQueryService(withdrawals),
		investments: investments,
		balances:    balances,
		contribs:    contribs,
		withdrawals: withdrawals,
	}
}

// seed 植入一个已达标的融资请求、出资记录和已计提余额
func (env *testEnv) seed(t *testing.T, accrued int64) string {
	t.Helper()
	ctx := context.Background()

	terms, msg := invdomain.ParseTerms(invdomain.TermsTypeEquity, "20%")
	require.Empty(t, msg)
	invID := fmt.Sprintf("INV-%d", time.Now().UnixNano())
	investment := invdomain.NewInvestment(invID, "seeker-1", "Solar farm expansion",
		"We are expanding our community solar farm with 200 new panels to double generation capacity.",
		decimal.NewFromInt(1000), time.Now().AddDate(0, 3, 0), terms)
	require.NoError(t, investment.RecordContribution("user-1", decimal.NewFromInt(1000), time.Now()))
	require.NoError(t, env.investments.Save(ctx, investment))

	require.NoError(t, env.contribs.Save(ctx, &invdomain.Contribution{
		ContributionID: fmt.Sprintf("CTB-%d", time.Now().UnixNano()),
		InvestmentID:   invID,
		InvestorID:     "user-1",
		Amount:         decimal.NewFromInt(1000),
		ContributedAt:  time.Now(),
	}))

	balance := invdomain.NewInvestorBalance(invID, "user-1")
	require.NoError(t, balance.Accrue(decimal.NewFromInt(accrued)))
	require.NoError(t, env.balances.Save(ctx, balance))

	return invID
}

func submitCmd(invID string, amount int64) SubmitWithdrawalCommand {
	return SubmitWithdrawalCommand{
		InvestmentID:      invID,
		InvestorID:        "user-1",
		Amount:            decimal.NewFromInt(amount),
		BankName:          "First National",
		BankAccountName:   "User One",
		BankAccountNumber: "12345678",
		IFSCCode:          "FNAT0001234",
	}
}

func TestSubmitWithdrawal(t *testing.T) {
	t.Run("creates pending request and holds funds", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		invID := env.seed(t, 100)

		dto, err := env.cmd.SubmitWithdrawal(ctx, submitCmd(invID, 60))
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)

		balance, err := env.balances.Get(ctx, invID, "user-1")
		require.NoError(t, err)
		assert.True(t, balance.Held.Equal(decimal.NewFromInt(60)))
		assert.True(t, balance.Available().Equal(decimal.NewFromInt(40)))
	})

	t.Run("insufficient funds leaves no request behind", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		invID := env.seed(t, 100)

		_, err := env.cmd.SubmitWithdrawal(ctx, submitCmd(invID, 101))
		assert.ErrorIs(t, err, invdomain.ErrInsufficientFunds)

		requests, err := env.query.ListByInvestment(ctx, invID)
		require.NoError(t, err)
		assert.Empty(t, requests)

		balance, err := env.balances.Get(ctx, invID, "user-1")
		require.NoError(t, err)
		assert.True(t, balance.Held.IsZero())
	})

	t.Run("requires a prior contribution", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		invID := env.seed(t, 100)

		cmd := submitCmd(invID, 10)
		cmd.InvestorID = "stranger"
		_, err := env.cmd.SubmitWithdrawal(ctx, cmd)
		var authErr *invdomain.AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("missing bank details rejected up front", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		invID := env.seed(t, 100)

		cmd := submitCmd(invID, 10)
		cmd.BankAccountNumber = ""
		_, err := env.cmd.SubmitWithdrawal(ctx, cmd)
		var verrs invdomain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs, "bank_account_number")
	})

	t.Run("missing ifsc code rejected up front", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		invID := env.seed(t, 100)

		cmd := submitCmd(invID, 10)
		cmd.IFSCCode = "   "
		_, err := env.cmd.SubmitWithdrawal(ctx, cmd)
		var verrs invdomain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs, "ifsc_code")

		requests, err := env.query.ListByInvestment(ctx, invID)
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("unknown investment", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.cmd.SubmitWithdrawal(context.Background(), submitCmd("INV-missing", 10))
		assert.ErrorIs(t, err, invdomain.ErrNotFound)
	})
}

func TestApproveWithdrawal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	invID := env.seed(t, 100)

	dto, err := env.cmd.SubmitWithdrawal(ctx, submitCmd(invID, 60))
	require.NoError(t, err)

	t.Run("investor cannot approve their own request", func(t *testing.T) {
		err := env.cmd.ApproveWithdrawal(ctx, DecideWithdrawalCommand{
			WithdrawalID: dto.WithdrawalID, DeciderID: "user-1",
		})
		var authErr *invdomain.AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("stranger cannot approve", func(t *testing.T) {
		err := env.cmd.ApproveWithdrawal(ctx, DecideWithdrawalCommand{
			WithdrawalID: dto.WithdrawalID, DeciderID: "stranger",
		})
		var authErr *invdomain.AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("seeker approves, hold becomes completed payout", func(t *testing.T) {
		require.NoError(t, env.cmd.ApproveWithdrawal(ctx, DecideWithdrawalCommand{
			WithdrawalID: dto.WithdrawalID, DeciderID: "seeker-1",
		}))

		fetched, err := env.query.GetWithdrawal(ctx, dto.WithdrawalID)
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", fetched.Status)
		assert.Equal(t, "seeker-1", fetched.DecidedBy)
		assert.NotNil(t, fetched.DecidedAt)

		balance, err := env.balances.Get(ctx, invID, "user-1")
		require.NoError(t, err)
		assert.True(t, balance.Held.IsZero())
		assert.True(t, balance.Completed.Equal(decimal.NewFromInt(60)))
		assert.True(t, balance.Available().Equal(decimal.NewFromInt(40)))
	})

	t.Run("deciding a terminal request changes nothing", func(t *testing.T) {
		err := env.cmd.ApproveWithdrawal(ctx, DecideWithdrawalCommand{
			WithdrawalID: dto.WithdrawalID, DeciderID: "seeker-1",
		})
		var stateErr *invdomain.StateError
		require.ErrorAs(t, err, &stateErr)

		err = env.cmd.RejectWithdrawal(ctx, DecideWithdrawalCommand{
			WithdrawalID: dto.WithdrawalID, DeciderID: "seeker-1", Reason: "changed my mind",
		})
		require.ErrorAs(t, err, &stateErr)

		balance, err := env.balances.Get(ctx, invID, "user-1")
		require.NoError(t, err)
		assert.True(t, balance.Completed.Equal(decimal.NewFromInt(60)))
		assert.True(t, balance.Held.IsZero())
	})
}

// 拒绝后余额完全恢复，可再次全额提现
func TestRejectRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	invID := env.seed(t, 100)

	dto, err := env.cmd.SubmitWithdrawal(ctx, submitCmd(invID, 100))
	require.NoError(t, err)

	require.NoError(t, env.cmd.RejectWithdrawal(ctx, DecideWithdrawalCommand{
		WithdrawalID: dto.WithdrawalID, DeciderID: "admin-1", Reason: "documentation incomplete",
	}))

	fetched, err := env.query.GetWithdrawal(ctx, dto.WithdrawalID)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", fetched.Status)
	assert.Equal(t, "documentation incomplete", fetched.RejectReason)

	balance, err := env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Held.IsZero())
	assert.True(t, balance.Available().Equal(decimal.NewFromInt(100)))

	// 释放后可再次提交同等金额
	_, err = env.cmd.SubmitWithdrawal(ctx, submitCmd(invID, 100))
	require.NoError(t, err)
}

// 并发提交下，成功数不超过 available / amount
func TestConcurrentSubmitCap(t *testing.T) {
	env := newTestEnv(t)
	invID := env.seed(t, 100)

	const workers = 8
	amount := int64(30) // 100 可提，最多 3 笔成功

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.cmd.SubmitWithdrawal(context.Background(), submitCmd(invID, amount))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			ok := errors.Is(err, invdomain.ErrInsufficientFunds) || errors.Is(err, invdomain.ErrConflict)
			assert.True(t, ok, "unexpected error: %v", err)
		}
	}
	assert.LessOrEqual(t, succeeded, 3)
	assert.Positive(t, succeeded)

	balance, err := env.balances.Get(context.Background(), invID, "user-1")
	require.NoError(t, err)
	assert.True(t, balance.Held.LessThanOrEqual(decimal.NewFromInt(100)))
	assert.False(t, balance.Available().IsNegative())

	requests, err := env.query.ListByInvestment(context.Background(), invID)
	require.NoError(t, err)
	assert.Equal(t, succeeded, len(requests))
}
