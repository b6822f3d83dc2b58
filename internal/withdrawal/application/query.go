package application

import (
	"context"

	invdomain "github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/internal/withdrawal/domain"
)

// WithdrawalQueryService 处理提现相关的读操作。
type WithdrawalQueryService struct {
	withdrawals domain.WithdrawalRepository
}

func NewWithdrawalQueryService(withdrawals domain.WithdrawalRepository) *WithdrawalQueryService {
	return &WithdrawalQueryService{withdrawals: withdrawals}
}

// GetWithdrawal 获取提现请求详情
func (s *WithdrawalQueryService) GetWithdrawal(ctx context.Context, withdrawalID string) (*WithdrawalDTO, error) {
	request, err := s.withdrawals.Get(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, invdomain.ErrNotFound
	}
	return toWithdrawalDTO(request), nil
}

// ListByInvestor 列出投资人的全部提现请求
func (s *WithdrawalQueryService) ListByInvestor(ctx context.Context, investorID string) ([]*WithdrawalDTO, error) {
	requests, err := s.withdrawals.GetByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	return toDTOs(requests), nil
}

// ListByInvestment 列出某融资请求下的全部提现请求
func (s *WithdrawalQueryService) ListByInvestment(ctx context.Context, investmentID string) ([]*WithdrawalDTO, error) {
	requests, err := s.withdrawals.GetByInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	return toDTOs(requests), nil
}

func toDTOs(requests []*domain.WithdrawalRequest) []*WithdrawalDTO {
	dtos := make([]*WithdrawalDTO, len(requests))
	for i, r := range requests {
		dtos[i] = toWithdrawalDTO(r)
	}
	return dtos
}
