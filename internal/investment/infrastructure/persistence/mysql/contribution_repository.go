package mysql

import (
	"context"

	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// contributionRepository 出资记录仓储实现
type contributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository 创建并返回一个新的 contributionRepository 实例。
func NewContributionRepository(db *gorm.DB) domain.ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Save(ctx context.Context, contribution *domain.Contribution) error {
	return r.getDB(ctx).WithContext(ctx).Create(contribution).Error
}

func (r *contributionRepository) GetByInvestment(ctx context.Context, investmentID string) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	if err := r.getDB(ctx).WithContext(ctx).Where("investment_id = ?", investmentID).
		Order("contributed_at ASC").Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *contributionRepository) GetByInvestor(ctx context.Context, investorID string) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	if err := r.getDB(ctx).WithContext(ctx).Where("investor_id = ?", investorID).
		Order("contributed_at ASC").Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *contributionRepository) CountByInvestmentAndInvestor(ctx context.Context, investmentID, investorID string) (int64, error) {
	var count int64
	if err := r.getDB(ctx).WithContext(ctx).Model(&domain.Contribution{}).
		Where("investment_id = ? AND investor_id = ?", investmentID, investorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *contributionRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// impactRepository 影响力记录仓储实现
type impactRepository struct {
	db *gorm.DB
}

// NewImpactRepository 创建并返回一个新的 impactRepository 实例。
func NewImpactRepository(db *gorm.DB) domain.ImpactRepository {
	return &impactRepository{db: db}
}

func (r *impactRepository) Save(ctx context.Context, entry *domain.ImpactEntry) error {
	return r.getDB(ctx).WithContext(ctx).Create(entry).Error
}

func (r *impactRepository) GetByInvestor(ctx context.Context, investorID string) ([]*domain.ImpactEntry, error) {
	var entries []*domain.ImpactEntry
	if err := r.getDB(ctx).WithContext(ctx).Where("investor_id = ?", investorID).
		Order("recorded_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *impactRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
