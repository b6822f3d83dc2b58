package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/internal/investment/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// noopPublisher 测试用事件发布器
type noopPublisher struct {
	events []domain.DomainEvent
}

func (p *noopPublisher) Publish(_ context.Context, _ string, event domain.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// 每个测试独立的共享内存库，单连接保证事务串行
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Investment{},
		&domain.Contribution{},
		&domain.InvestorBalance{},
		&domain.ImpactEntry{},
	))
	return db
}

type testEnv struct {
	cmd       *InvestmentCommandService
	query     *InvestmentQueryService
	publisher *noopPublisher
	balances  domain.BalanceRepository
	impacts   domain.ImpactRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	investments := mysql.NewInvestmentRepository(db)
	contributions := mysql.NewContributionRepository(db)
	balances := mysql.NewBalanceRepository(db)
	impacts := mysql.NewImpactRepository(db)
	publisher := &noopPublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		cmd:       NewInvestmentCommandService(investments, contributions, balances, impacts, publisher, []string{"admin-1"}, log),
		query:     NewInvestmentQueryService(investments, contributions, balances),
		publisher: publisher,
		balances:  balances,
		impacts:   impacts,
	}
}

func createCmd(termsType, termsText string) CreateInvestmentCommand {
	return CreateInvestmentCommand{
		SeekerID:    "seeker-1",
		Title:       "Solar farm expansion",
		Description: "We are expanding our community solar farm with 200 new panels to double generation capacity.",
		Amount:      decimal.NewFromInt(1000),
		Deadline:    time.Now().AddDate(0, 3, 0),
		TermsType:   termsType,
		TermsText:   termsText,
	}
}

func TestCreateInvestment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("valid input persists and publishes", func(t *testing.T) {
		dto, err := env.cmd.CreateInvestment(ctx, createCmd("EQUITY", "20%"))
		require.NoError(t, err)
		assert.Equal(t, "OPEN", dto.Status)
		assert.Equal(t, "20%", dto.Terms)

		fetched, err := env.query.GetInvestment(ctx, dto.InvestmentID)
		require.NoError(t, err)
		assert.Equal(t, dto.InvestmentID, fetched.InvestmentID)

		require.NotEmpty(t, env.publisher.events)
		assert.Equal(t, "investment.created", env.publisher.events[0].EventName())
	})

	t.Run("invalid input returns field map and persists nothing", func(t *testing.T) {
		cmd := createCmd("EQUITY", "20%")
		cmd.Title = "abc"
		cmd.Amount = decimal.NewFromInt(-1)

		_, err := env.cmd.CreateInvestment(ctx, cmd)
		var verrs domain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs, "title")
		assert.Contains(t, verrs, "amount")
	})
}

func TestContribute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.cmd.CreateInvestment(ctx, createCmd("EQUITY", "20%"))
	require.NoError(t, err)

	t.Run("records contribution and tracks progress", func(t *testing.T) {
		c, err := env.cmd.Contribute(ctx, ContributeCommand{
			InvestmentID: dto.InvestmentID, InvestorID: "user-1", Amount: decimal.NewFromInt(400),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ContributionID)

		fetched, err := env.query.GetInvestment(ctx, dto.InvestmentID)
		require.NoError(t, err)
		assert.Equal(t, "OPEN", fetched.Status)
		assert.True(t, fetched.TotalRaised.Equal(decimal.NewFromInt(400)))
	})

	t.Run("reaching goal flips to funded and closes the gate", func(t *testing.T) {
		_, err := env.cmd.Contribute(ctx, ContributeCommand{
			InvestmentID: dto.InvestmentID, InvestorID: "user-2", Amount: decimal.NewFromInt(600),
		})
		require.NoError(t, err)

		fetched, err := env.query.GetInvestment(ctx, dto.InvestmentID)
		require.NoError(t, err)
		assert.Equal(t, "FUNDED", fetched.Status)

		_, err = env.cmd.Contribute(ctx, ContributeCommand{
			InvestmentID: dto.InvestmentID, InvestorID: "user-3", Amount: decimal.NewFromInt(1),
		})
		var stateErr *domain.StateError
		assert.ErrorAs(t, err, &stateErr)
	})

	t.Run("unknown investment", func(t *testing.T) {
		_, err := env.cmd.Contribute(ctx, ContributeCommand{
			InvestmentID: "INV-missing", InvestorID: "user-1", Amount: decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func fundInvestment(t *testing.T, env *testEnv, termsType, termsText string, amounts map[string]int64) string {
	t.Helper()
	ctx := context.Background()

	cmd := createCmd(termsType, termsText)
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromInt(a))
	}
	cmd.Amount = total

	dto, err := env.cmd.CreateInvestment(ctx, cmd)
	require.NoError(t, err)

	for investor, a := range amounts {
		_, err := env.cmd.Contribute(ctx, ContributeCommand{
			InvestmentID: dto.InvestmentID, InvestorID: investor, Amount: decimal.NewFromInt(a),
		})
		require.NoError(t, err)
	}
	return dto.InvestmentID
}

func TestAccrueReturnsEquity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// user-1 出资 600，user-2 出资 400，分成比例 20%
	invID := fundInvestment(t, env, "EQUITY", "20%", map[string]int64{"user-1": 600, "user-2": 400})

	require.NoError(t, env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: invID, ActorID: "seeker-1", Profit: decimal.NewFromInt(1000),
	}))

	// 回报池 = 1000 * 20% = 200，按出资占比分配
	b1, err := env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, b1)
	assert.True(t, b1.TotalAccrued.Equal(decimal.NewFromInt(120)), "got %s", b1.TotalAccrued)

	b2, err := env.balances.Get(ctx, invID, "user-2")
	require.NoError(t, err)
	require.NotNil(t, b2)
	assert.True(t, b2.TotalAccrued.Equal(decimal.NewFromInt(80)), "got %s", b2.TotalAccrued)
}

func TestAccrueReturnsLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invID := fundInvestment(t, env, "LOAN", "12% annual interest", map[string]int64{"user-1": 1000})

	// 整年计息：1000 * 12% = 120
	require.NoError(t, env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: invID, ActorID: "seeker-1", PeriodDays: 365,
	}))

	b, err := env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.TotalAccrued.Equal(decimal.NewFromInt(120)), "got %s", b.TotalAccrued)

	// 再计提一个周期叠加，管理员同样有权触发
	require.NoError(t, env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: invID, ActorID: "admin-1", PeriodDays: 365,
	}))
	b, err = env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	assert.True(t, b.TotalAccrued.Equal(decimal.NewFromInt(240)), "got %s", b.TotalAccrued)
}

func TestAccrueReturnsDonation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invID := fundInvestment(t, env, "DONATION", "Quarterly impact reports on water access",
		map[string]int64{"user-1": 500, "user-2": 500})

	require.NoError(t, env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: invID, ActorID: "seeker-1", Note: "First well completed, serving 300 households",
	}))

	// 捐赠不产生金额回报，只产生影响力记录
	b, err := env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, b)

	entries, err := env.impacts.GetByInvestor(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "First well completed, serving 300 households", entries[0].Note)
}

func TestAccrueReturnsRequiresFunded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto, err := env.cmd.CreateInvestment(ctx, createCmd("EQUITY", "20%"))
	require.NoError(t, err)

	err = env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: dto.InvestmentID, ActorID: "seeker-1", Profit: decimal.NewFromInt(100),
	})
	var stateErr *domain.StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestAccrueReturnsAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invID := fundInvestment(t, env, "EQUITY", "20%", map[string]int64{"user-1": 1000})

	// 既非筹资方也非管理员的调用方被拒绝，余额不产生任何计提
	err := env.cmd.AccrueReturns(ctx, AccrueReturnsCommand{
		InvestmentID: invID, ActorID: "user-1", Profit: decimal.NewFromInt(1000),
	})
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	b, err := env.balances.Get(ctx, invID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestCompleteAndCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("complete by seeker", func(t *testing.T) {
		invID := fundInvestment(t, env, "EQUITY", "20%", map[string]int64{"user-1": 1000})
		require.NoError(t, env.cmd.CompleteInvestment(ctx, invID, "seeker-1"))

		fetched, err := env.query.GetInvestment(ctx, invID)
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", fetched.Status)
	})

	t.Run("complete by stranger forbidden", func(t *testing.T) {
		invID := fundInvestment(t, env, "EQUITY", "20%", map[string]int64{"user-1": 1000})
		err := env.cmd.CompleteInvestment(ctx, invID, "intruder")
		var authErr *domain.AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("cancel untouched open investment", func(t *testing.T) {
		dto, err := env.cmd.CreateInvestment(ctx, createCmd("EQUITY", "20%"))
		require.NoError(t, err)
		require.NoError(t, env.cmd.CancelInvestment(ctx, dto.InvestmentID, "seeker-1"))

		fetched, err := env.query.GetInvestment(ctx, dto.InvestmentID)
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", fetched.Status)
	})
}

func TestExpireDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 直接植入一条已过期的记录，绕过校验的截止时间下限
	terms, msg := domain.ParseTerms(domain.TermsTypeEquity, "10%")
	require.Empty(t, msg)
	overdue := domain.NewInvestment(fmt.Sprintf("INV-%d", time.Now().UnixNano()), "seeker-1",
		"Solar farm expansion",
		"We are expanding our community solar farm with 200 new panels to double generation capacity.",
		decimal.NewFromInt(1000), time.Now().Add(-24*time.Hour), terms)
	invRepo := env.cmd.investments
	require.NoError(t, invRepo.Save(ctx, overdue))

	expired, err := env.cmd.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	fetched, err := env.query.GetInvestment(ctx, overdue.InvestmentID)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", fetched.Status)
}
