package application

import (
	"context"
	"log/slog"
	"time"
)

// expiryBatchSize 单次扫描处理的最大条数
const expiryBatchSize = 100

// ExpiryJob 负责定期将截止时间已过的融资请求置为过期。
type ExpiryJob struct {
	cmdService *InvestmentCommandService
	logger     *slog.Logger
	interval   time.Duration
}

func NewExpiryJob(cmdService *InvestmentCommandService, interval time.Duration, logger *slog.Logger) *ExpiryJob {
	return &ExpiryJob{
		cmdService: cmdService,
		logger:     logger,
		interval:   interval,
	}
}

func (j *ExpiryJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Expiry Job started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *ExpiryJob) run(ctx context.Context) {
	expired, err := j.cmdService.ExpireDue(ctx, expiryBatchSize)
	if err != nil {
		j.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		j.logger.Info("expiry sweep completed", "expired", expired)
	}
}
