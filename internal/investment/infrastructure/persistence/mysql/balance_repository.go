package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// balanceRepository 投资人余额仓储实现
type balanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository 创建并返回一个新的 balanceRepository 实例。
func NewBalanceRepository(db *gorm.DB) domain.BalanceRepository {
	return &balanceRepository{db: db}
}

// Save 保存余额单元（更新时带乐观锁）
func (r *balanceRepository) Save(ctx context.Context, balance *domain.InvestorBalance) error {
	db := r.getDB(ctx)

	if balance.ID == 0 {
		return db.WithContext(ctx).Create(balance).Error
	}

	currentVersion := balance.Version
	result := db.WithContext(ctx).Model(&domain.InvestorBalance{}).
		Where("investment_id = ? AND investor_id = ? AND version = ?",
			balance.InvestmentID, balance.InvestorID, currentVersion).
		Updates(map[string]any{
			"total_accrued": balance.TotalAccrued,
			"held":          balance.Held,
			"completed":     balance.Completed,
			"version":       currentVersion + 1,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}

	balance.Version = currentVersion + 1
	balance.UpdatedAt = time.Now()
	return nil
}

func (r *balanceRepository) Get(ctx context.Context, investmentID, investorID string) (*domain.InvestorBalance, error) {
	var balance domain.InvestorBalance
	if err := r.getDB(ctx).WithContext(ctx).
		Where("investment_id = ? AND investor_id = ?", investmentID, investorID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *balanceRepository) GetByInvestor(ctx context.Context, investorID string) ([]*domain.InvestorBalance, error) {
	var balances []*domain.InvestorBalance
	if err := r.getDB(ctx).WithContext(ctx).Where("investor_id = ?", investorID).
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *balanceRepository) GetByInvestment(ctx context.Context, investmentID string) ([]*domain.InvestorBalance, error) {
	var balances []*domain.InvestorBalance
	if err := r.getDB(ctx).WithContext(ctx).Where("investment_id = ?", investmentID).
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *balanceRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
