// Package messaging 融资服务领域事件的 Kafka 发布实现
package messaging

import (
	"context"
	"time"

	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/pkg/mq"
)

// Topic 融资领域事件主题
const Topic = "funding.investment.events"

// eventEnvelope 事件信封，携带事件名与发生时间
type eventEnvelope struct {
	Event      string             `json:"event"`
	OccurredAt time.Time          `json:"occurred_at"`
	Payload    domain.DomainEvent `json:"payload"`
}

// KafkaEventPublisher 基于 Kafka 的事件发布器
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 发布领域事件，key 保证同一融资请求的事件分区有序
func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, event domain.DomainEvent) error {
	return p.producer.SendMessage(ctx, Topic, key, eventEnvelope{
		Event:      event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    event,
	})
}
