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
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	invmysql "github.com/venturelink/funding/internal/investment/infrastructure/persistence/mysql"
	wddomain "github.com/venturelink/funding/internal/withdrawal/domain"
	wdmysql "github.com/venturelink/funding/internal/withdrawal/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newReportingService(t *testing.T) (*ReportingService, *gorm.DB) {
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
		&invdomain.ImpactEntry{},
		&wddomain.WithdrawalRequest{},
	))

	svc := NewReportingService(
		invmysql.NewInvestmentRepository(db),
		invmysql.NewContributionRepository(db),
		invmysql.NewBalanceRepository(db),
		invmysql.NewImpactRepository(db),
		wdmysql.NewWithdrawalRepository(db),
		nil, // 测试环境不接缓存
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, db
}

func TestInvestorStatement(t *testing.T) {
	svc, db := newReportingService(t)
	ctx := context.Background()
	decided := time.Now().Add(-time.Hour)

	require.NoError(t, db.Create(&invdomain.Contribution{
		ContributionID: "CTB-1", InvestmentID: "INV-1", InvestorID: "user-1",
		Amount: decimal.NewFromInt(300), ContributedAt: time.Now().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&invdomain.Contribution{
		ContributionID: "CTB-2", InvestmentID: "INV-2", InvestorID: "user-1",
		Amount: decimal.NewFromInt(200), ContributedAt: time.Now().Add(-24 * time.Hour),
	}).Error)

	// 只有 COMPLETED 的提现计入已到账
	require.NoError(t, db.Create(&wddomain.WithdrawalRequest{
		WithdrawalID: "WDR-1", InvestmentID: "INV-1", InvestorID: "user-1",
		Amount: decimal.NewFromInt(50), Status: wddomain.WithdrawalStatusCompleted,
		DecidedBy: "seeker-1", DecidedAt: &decided,
	}).Error)
	require.NoError(t, db.Create(&wddomain.WithdrawalRequest{
		WithdrawalID: "WDR-2", InvestmentID: "INV-1", InvestorID: "user-1",
		Amount: decimal.NewFromInt(25), Status: wddomain.WithdrawalStatusPending,
	}).Error)
	require.NoError(t, db.Create(&wddomain.WithdrawalRequest{
		WithdrawalID: "WDR-3", InvestmentID: "INV-1", InvestorID: "user-1",
		Amount: decimal.NewFromInt(10), Status: wddomain.WithdrawalStatusRejected,
	}).Error)

	balance := invdomain.NewInvestorBalance("INV-1", "user-1")
	require.NoError(t, balance.Accrue(decimal.NewFromInt(100)))
	require.NoError(t, balance.Hold(decimal.NewFromInt(25)))
	require.NoError(t, db.Create(balance).Error)

	require.NoError(t, db.Create(&invdomain.ImpactEntry{
		InvestmentID: "INV-2", InvestorID: "user-1",
		Note: "Well construction completed in the northern village", RecordedAt: time.Now(),
	}).Error)

	statement, err := svc.InvestorStatement(ctx, "user-1")
	require.NoError(t, err)

	assert.Len(t, statement.Sent, 2)
	assert.True(t, statement.TotalSent.Equal(decimal.NewFromInt(500)))

	require.Len(t, statement.Received, 1)
	assert.True(t, statement.TotalReceived.Equal(decimal.NewFromInt(50)))
	assert.True(t, statement.Received[0].At.Equal(decided))

	require.Len(t, statement.Balances, 1)
	assert.True(t, statement.Balances[0].Available.Equal(decimal.NewFromInt(75)))

	require.Len(t, statement.ImpactEntries, 1)
	assert.Equal(t, "INV-2", statement.ImpactEntries[0].InvestmentID)
}

func TestInvestorStatementEmpty(t *testing.T) {
	svc, _ := newReportingService(t)

	statement, err := svc.InvestorStatement(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, statement.Sent)
	assert.Empty(t, statement.Received)
	assert.True(t, statement.TotalSent.IsZero())
	assert.True(t, statement.TotalReceived.IsZero())
}

func TestSeekerDashboard(t *testing.T) {
	svc, db := newReportingService(t)
	ctx := context.Background()

	terms, msg := invdomain.ParseTerms(invdomain.TermsTypeEquity, "20%")
	require.Empty(t, msg)

	open := invdomain.NewInvestment("INV-1", "seeker-1", "Solar farm expansion",
		"We are expanding our community solar farm with 200 new panels to double generation capacity.",
		decimal.NewFromInt(1000), time.Now().AddDate(0, 3, 0), terms)
	require.NoError(t, open.RecordContribution("user-1", decimal.NewFromInt(400), time.Now()))
	require.NoError(t, db.Create(open).Error)

	funded := invdomain.NewInvestment("INV-2", "seeker-1", "Bakery equipment upgrade",
		"Replacing two aging ovens and adding a proofing cabinet to triple our daily bread output.",
		decimal.NewFromInt(500), time.Now().AddDate(0, 2, 0), terms)
	require.NoError(t, funded.RecordContribution("user-1", decimal.NewFromInt(500), time.Now()))
	require.NoError(t, db.Create(funded).Error)

	// 其他筹资方的请求不应出现在看板中
	other := invdomain.NewInvestment("INV-3", "seeker-2", "Food truck launch",
		"Launching a food truck serving regional specialties across the downtown lunch district daily.",
		decimal.NewFromInt(800), time.Now().AddDate(0, 1, 0), terms)
	require.NoError(t, db.Create(other).Error)

	require.NoError(t, db.Create(&invdomain.Contribution{
		ContributionID: "CTB-1", InvestmentID: "INV-1", InvestorID: "user-1",
		Amount: decimal.NewFromInt(400), ContributedAt: time.Now(),
	}).Error)
	require.NoError(t, db.Create(&invdomain.Contribution{
		ContributionID: "CTB-2", InvestmentID: "INV-2", InvestorID: "user-1",
		Amount: decimal.NewFromInt(500), ContributedAt: time.Now(),
	}).Error)

	require.NoError(t, db.Create(&wddomain.WithdrawalRequest{
		WithdrawalID: "WDR-1", InvestmentID: "INV-2", InvestorID: "user-1",
		Amount: decimal.NewFromInt(30), Status: wddomain.WithdrawalStatusPending,
	}).Error)

	dashboard, err := svc.SeekerDashboard(ctx, "seeker-1")
	require.NoError(t, err)

	require.Len(t, dashboard.Investments, 2)
	assert.True(t, dashboard.TotalRaised.Equal(decimal.NewFromInt(900)))

	byID := make(map[string]DashboardInvestment, len(dashboard.Investments))
	for _, inv := range dashboard.Investments {
		byID[inv.InvestmentID] = inv
	}
	assert.Equal(t, "OPEN", byID["INV-1"].Status)
	assert.Equal(t, "FUNDED", byID["INV-2"].Status)
	assert.Equal(t, 1, byID["INV-1"].Contributions)

	require.Len(t, dashboard.PendingWithdrawals, 1)
	assert.Equal(t, "WDR-1", dashboard.PendingWithdrawals[0].WithdrawalID)
}
