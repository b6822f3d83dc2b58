// Package domain 融资服务仓储接口
package domain

import "context"

// InvestmentRepository 融资请求仓储接口
type InvestmentRepository interface {
	// Save 保存或更新融资请求（更新时带乐观锁）
	Save(ctx context.Context, investment *Investment) error
	// Get 根据融资请求 ID 获取
	Get(ctx context.Context, investmentID string) (*Investment, error)
	// GetBySeeker 根据筹资方 ID 获取列表
	GetBySeeker(ctx context.Context, seekerID string) ([]*Investment, error)
	// ListExpirable 获取截止时间已过且仍可过期的融资请求
	ListExpirable(ctx context.Context, limit int) ([]*Investment, error)
	// List 分页列出融资请求
	List(ctx context.Context, status InvestmentStatus, limit, offset int) ([]*Investment, int64, error)
	// WithTx 在单个数据库事务中执行 fn，事务通过 context 传播
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ContributionRepository 出资记录仓储接口
type ContributionRepository interface {
	// Save 保存出资记录
	Save(ctx context.Context, contribution *Contribution) error
	// GetByInvestment 获取某融资请求下的全部出资
	GetByInvestment(ctx context.Context, investmentID string) ([]*Contribution, error)
	// GetByInvestor 获取某投资人的全部出资
	GetByInvestor(ctx context.Context, investorID string) ([]*Contribution, error)
	// CountByInvestmentAndInvestor 统计某投资人在某融资请求下的出资笔数
	CountByInvestmentAndInvestor(ctx context.Context, investmentID, investorID string) (int64, error)
}

// BalanceRepository 投资人余额仓储接口
type BalanceRepository interface {
	// Save 保存或更新余额（更新时带乐观锁）
	Save(ctx context.Context, balance *InvestorBalance) error
	// Get 获取某投资人在某融资请求下的余额，不存在时返回 nil
	Get(ctx context.Context, investmentID, investorID string) (*InvestorBalance, error)
	// GetByInvestor 获取某投资人的全部余额单元
	GetByInvestor(ctx context.Context, investorID string) ([]*InvestorBalance, error)
	// GetByInvestment 获取某融资请求下的全部余额单元
	GetByInvestment(ctx context.Context, investmentID string) ([]*InvestorBalance, error)
}

// ImpactRepository 影响力记录仓储接口
type ImpactRepository interface {
	// Save 保存影响力记录
	Save(ctx context.Context, entry *ImpactEntry) error
	// GetByInvestor 获取某投资人收到的影响力记录
	GetByInvestor(ctx context.Context, investorID string) ([]*ImpactEntry, error)
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	// Publish 发布领域事件，key 用于分区有序
	Publish(ctx context.Context, key string, event DomainEvent) error
}
