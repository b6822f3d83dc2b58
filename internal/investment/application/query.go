package application

import (
	"context"

	"github.com/venturelink/funding/internal/investment/domain"
)

// InvestmentQueryService 处理融资请求相关的读操作。
type InvestmentQueryService struct {
	investments   domain.InvestmentRepository
	contributions domain.ContributionRepository
	balances      domain.BalanceRepository
}

func NewInvestmentQueryService(
	investments domain.InvestmentRepository,
	contributions domain.ContributionRepository,
	balances domain.BalanceRepository,
) *InvestmentQueryService {
	return &InvestmentQueryService{
		investments:   investments,
		contributions: contributions,
		balances:      balances,
	}
}

// GetInvestment 获取融资请求详情
func (s *InvestmentQueryService) GetInvestment(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	investment, err := s.investments.Get(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if investment == nil {
		return nil, domain.ErrNotFound
	}
	return toInvestmentDTO(investment), nil
}

// ListInvestments 分页列出融资请求
func (s *InvestmentQueryService) ListInvestments(ctx context.Context, status string, limit, offset int) ([]*InvestmentDTO, int64, error) {
	investments, total, err := s.investments.List(ctx, domain.InvestmentStatus(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*InvestmentDTO, len(investments))
	for i, inv := range investments {
		dtos[i] = toInvestmentDTO(inv)
	}
	return dtos, total, nil
}

// ListBySeeker 列出筹资方的全部融资请求
func (s *InvestmentQueryService) ListBySeeker(ctx context.Context, seekerID string) ([]*InvestmentDTO, error) {
	investments, err := s.investments.GetBySeeker(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*InvestmentDTO, len(investments))
	for i, inv := range investments {
		dtos[i] = toInvestmentDTO(inv)
	}
	return dtos, nil
}

// ListContributions 列出某融资请求下的全部出资
func (s *InvestmentQueryService) ListContributions(ctx context.Context, investmentID string) ([]*ContributionDTO, error) {
	contributions, err := s.contributions.GetByInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ContributionDTO, len(contributions))
	for i, c := range contributions {
		dtos[i] = toContributionDTO(c)
	}
	return dtos, nil
}

// GetBalance 获取投资人在某融资请求下的回报余额
func (s *InvestmentQueryService) GetBalance(ctx context.Context, investmentID, investorID string) (*BalanceDTO, error) {
	balance, err := s.balances.Get(ctx, investmentID, investorID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, domain.ErrNotFound
	}
	return toBalanceDTO(balance), nil
}
