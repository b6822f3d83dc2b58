package application

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturelink/funding/pkg/mq"
)

// fakeSource 预置消息的事件来源，耗尽后返回 io.EOF
type fakeSource struct {
	mu       sync.Mutex
	messages []*mq.Message
}

func (s *fakeSource) ReadMessage(_ context.Context) (*mq.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil, io.EOF
	}
	msg := s.messages[0]
	s.messages = s.messages[1:]
	return msg, nil
}

func TestEventAuditorRecordsEvents(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	investments := &fakeSource{messages: []*mq.Message{{
		Topic: "funding.investment.events",
		Key:   "INV-1",
		Value: []byte(`{"event":"investment.funded","occurred_at":"2026-08-01T00:00:00Z","payload":{"investment_id":"INV-1"}}`),
	}}}
	withdrawals := &fakeSource{messages: []*mq.Message{{
		Topic: "funding.withdrawal.events",
		Key:   "WDR-1",
		Value: []byte(`{"event":"withdrawal.approved","occurred_at":"2026-08-02T00:00:00Z","payload":{"withdrawal_id":"WDR-1"}}`),
	}}}

	auditor := NewEventAuditor(log, investments, withdrawals)

	done := make(chan struct{})
	go func() {
		auditor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("auditor did not stop after sources were drained")
	}

	out := buf.String()
	assert.Contains(t, out, "investment.funded")
	assert.Contains(t, out, "withdrawal.approved")
	assert.Contains(t, out, "INV-1")
	assert.Contains(t, out, "WDR-1")
}

func TestEventAuditorSkipsMalformedMessages(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	source := &fakeSource{messages: []*mq.Message{
		{Topic: "funding.investment.events", Key: "INV-1", Value: []byte("not json")},
		{Topic: "funding.investment.events", Key: "INV-2",
			Value: []byte(`{"event":"investment.created","occurred_at":"2026-08-01T00:00:00Z","payload":{}}`)},
	}}

	auditor := NewEventAuditor(log, source)

	done := make(chan struct{})
	go func() {
		auditor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("auditor did not stop after source was drained")
	}

	out := buf.String()
	assert.Contains(t, out, "malformed event message")
	assert.Contains(t, out, "investment.created")
}

func TestEventAuditorStopsOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// 无消息的来源会阻塞在 ReadMessage，取消 ctx 后必须退出
	blocking := blockingSource{}
	auditor := NewEventAuditor(log, blocking)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		auditor.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("auditor did not stop on context cancel")
	}
	require.Error(t, ctx.Err())
}

type blockingSource struct{}

func (blockingSource) ReadMessage(ctx context.Context) (*mq.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
