// Package mysql 提现服务持久化实现
package mysql

import (
	"context"
	"errors"

	invdomain "github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/internal/withdrawal/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

// withdrawalRepository 提现请求仓储实现
type withdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建并返回一个新的 withdrawalRepository 实例。
func NewWithdrawalRepository(db *gorm.DB) domain.WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

// Save 保存提现请求，更新仅允许从 PENDING 状态迁出
func (r *withdrawalRepository) Save(ctx context.Context, request *domain.WithdrawalRequest) error {
	db := r.getDB(ctx)

	if request.ID == 0 {
		return db.WithContext(ctx).Create(request).Error
	}

	result := db.WithContext(ctx).Model(&domain.WithdrawalRequest{}).
		Where("withdrawal_id = ? AND status = ?", request.WithdrawalID, domain.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":        request.Status,
			"reject_reason": request.RejectReason,
			"decided_by":    request.DecidedBy,
			"decided_at":    request.DecidedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return invdomain.ErrConcurrentUpdate
	}
	return nil
}

func (r *withdrawalRepository) Get(ctx context.Context, withdrawalID string) (*domain.WithdrawalRequest, error) {
	var request domain.WithdrawalRequest
	if err := r.getDB(ctx).WithContext(ctx).Where("withdrawal_id = ?", withdrawalID).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *withdrawalRepository) GetByInvestor(ctx context.Context, investorID string) ([]*domain.WithdrawalRequest, error) {
	var requests []*domain.WithdrawalRequest
	if err := r.getDB(ctx).WithContext(ctx).Where("investor_id = ?", investorID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *withdrawalRepository) GetByInvestment(ctx context.Context, investmentID string) ([]*domain.WithdrawalRequest, error) {
	var requests []*domain.WithdrawalRequest
	if err := r.getDB(ctx).WithContext(ctx).Where("investment_id = ?", investmentID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *withdrawalRepository) ListPendingByInvestment(ctx context.Context, investmentID string) ([]*domain.WithdrawalRequest, error) {
	var requests []*domain.WithdrawalRequest
	if err := r.getDB(ctx).WithContext(ctx).
		Where("investment_id = ? AND status = ?", investmentID, domain.WithdrawalStatusPending).
		Order("created_at ASC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *withdrawalRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
