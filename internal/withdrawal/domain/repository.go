// Package domain 提现服务仓储接口
package domain

import "context"

// WithdrawalRepository 提现请求仓储接口
type WithdrawalRepository interface {
	// Save 保存或更新提现请求，状态迁移仅允许从 PENDING 发起
	Save(ctx context.Context, request *WithdrawalRequest) error
	// Get 根据提现请求 ID 获取
	Get(ctx context.Context, withdrawalID string) (*WithdrawalRequest, error)
	// GetByInvestor 获取某投资人的全部提现请求
	GetByInvestor(ctx context.Context, investorID string) ([]*WithdrawalRequest, error)
	// GetByInvestment 获取某融资请求下的全部提现请求
	GetByInvestment(ctx context.Context, investmentID string) ([]*WithdrawalRequest, error)
	// ListPendingByInvestment 获取某融资请求下待审批的提现请求
	ListPendingByInvestment(ctx context.Context, investmentID string) ([]*WithdrawalRequest, error)
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	// Publish 发布领域事件，key 用于分区有序
	Publish(ctx context.Context, key string, event DomainEvent) error
}
