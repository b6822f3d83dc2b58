// Package mysql 融资服务持久化实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// investmentRepository 融资请求仓储实现
type investmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository 创建并返回一个新的 investmentRepository 实例。
func NewInvestmentRepository(db *gorm.DB) domain.InvestmentRepository {
	return &investmentRepository{db: db}
}

// WithTx 在事务中执行 fn，事务通过 context 传播给所有仓储
func (r *investmentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		return fn(txCtx)
	})
}

// Save 保存融资请求（更新时带乐观锁）
func (r *investmentRepository) Save(ctx context.Context, investment *domain.Investment) error {
	db := r.getDB(ctx)

	if investment.ID == 0 {
		return db.WithContext(ctx).Create(investment).Error
	}

	currentVersion := investment.Version
	result := db.WithContext(ctx).Model(&domain.Investment{}).
		Where("investment_id = ? AND version = ?", investment.InvestmentID, currentVersion).
		Updates(map[string]any{
			"status":       investment.Status,
			"total_raised": investment.TotalRaised,
			"version":      currentVersion + 1,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}

	investment.Version = currentVersion + 1
	investment.UpdatedAt = time.Now()
	return nil
}

func (r *investmentRepository) Get(ctx context.Context, investmentID string) (*domain.Investment, error) {
	var investment domain.Investment
	if err := r.getDB(ctx).WithContext(ctx).Where("investment_id = ?", investmentID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &investment, nil
}

func (r *investmentRepository) GetBySeeker(ctx context.Context, seekerID string) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	if err := r.getDB(ctx).WithContext(ctx).Where("seeker_id = ?", seekerID).
		Order("created_at DESC").Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) ListExpirable(ctx context.Context, limit int) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	if err := r.getDB(ctx).WithContext(ctx).
		Where("status IN ? AND deadline < ?",
			[]domain.InvestmentStatus{domain.InvestmentStatusOpen, domain.InvestmentStatusFunded},
			time.Now()).
		Limit(limit).Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) List(ctx context.Context, status domain.InvestmentStatus, limit, offset int) ([]*domain.Investment, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Investment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var investments []*domain.Investment
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&investments).Error; err != nil {
		return nil, 0, err
	}
	return investments, total, nil
}

func (r *investmentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
