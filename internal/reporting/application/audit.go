package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/venturelink/funding/pkg/mq"
)

// readRetryBackoff 消费失败后的重试间隔
const readRetryBackoff = time.Second

// MessageSource 事件消息来源，生产环境为 Kafka 消费者
type MessageSource interface {
	ReadMessage(ctx context.Context) (*mq.Message, error)
}

// EventAuditor 订阅领域事件流并落审计日志
// 事件流是旁路视图，消费失败只影响审计，不影响账本
type EventAuditor struct {
	sources []MessageSource
	logger  *slog.Logger
}

func NewEventAuditor(logger *slog.Logger, sources ...MessageSource) *EventAuditor {
	return &EventAuditor{
		sources: sources,
		logger:  logger.With("module", "event_audit"),
	}
}

// Run 消费所有事件来源直到 ctx 取消或来源关闭
func (a *EventAuditor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src MessageSource) {
			defer wg.Done()
			a.consume(ctx, src)
		}(src)
	}
	wg.Wait()
}

func (a *EventAuditor) consume(ctx context.Context, src MessageSource) {
	for {
		msg, err := src.ReadMessage(ctx)
		if err != nil {
			// reader 关闭时返回 io.EOF
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			a.logger.WarnContext(ctx, "failed to read event message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryBackoff):
			}
			continue
		}
		a.record(ctx, msg)
	}
}

// auditEnvelope 与发布侧的事件信封对应
type auditEnvelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func (a *EventAuditor) record(ctx context.Context, msg *mq.Message) {
	var envelope auditEnvelope
	if err := msg.UnmarshalPayload(&envelope); err != nil {
		a.logger.WarnContext(ctx, "malformed event message",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		return
	}

	a.logger.InfoContext(ctx, "domain event",
		"topic", msg.Topic,
		"event", envelope.Event,
		"key", msg.Key,
		"occurred_at", envelope.OccurredAt,
		"payload", string(envelope.Payload),
	)
}
