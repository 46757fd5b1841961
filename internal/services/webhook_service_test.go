package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/queue"
	"github.com/waveline/engage-gateway/pkg/redis"
)

type stubNormalizer struct {
	out string
	err error
}

func (s *stubNormalizer) Normalize(string) (string, error) {
	return s.out, s.err
}

func setupWebhookService(t *testing.T, norm MobileNormalizer) (*WebhookService, *queue.Queue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	q, err := queue.NewQueue(adapter, queue.QueueConfig{
		Name:              "test:intake",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
	})
	require.NoError(t, err)

	return NewWebhookService(q, norm), q, mr
}

func TestWebhookService_Accept(t *testing.T) {
	svc, q, _ := setupWebhookService(t, &stubNormalizer{out: "4915123456789"})
	defer q.Stop(time.Second)

	err := svc.Accept(context.Background(), WebhookEvent{
		From: "+49 151 2345 6789",
		ID:   "wamid.1",
		Type: "text",
		Text: "hello",
	})
	require.NoError(t, err)

	received := make(chan model.InboundEvent, 1)
	err = q.Consume(func(ctx context.Context, msg *queue.Message) error {
		var ev model.InboundEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return err
		}
		assert.Equal(t, "webhook", msg.Metadata["source"])
		received <- ev
		return nil
	})
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, "4915123456789", ev.From)
		assert.Equal(t, "wamid.1", ev.ProviderMessageID)
		assert.Equal(t, model.MessageTypeText, ev.Type)
		assert.Equal(t, "hello", ev.Text)
		assert.False(t, ev.ReceivedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestWebhookService_Accept_Invalid(t *testing.T) {
	svc, q, _ := setupWebhookService(t, &stubNormalizer{out: "4915123456789"})
	defer q.Stop(time.Second)

	t.Run("missing id", func(t *testing.T) {
		err := svc.Accept(context.Background(), WebhookEvent{From: "+4915123456789", Type: "text"})
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("missing type", func(t *testing.T) {
		err := svc.Accept(context.Background(), WebhookEvent{From: "+4915123456789", ID: "wamid.1"})
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})
}

func TestWebhookService_Accept_InvalidPhone(t *testing.T) {
	svc, q, _ := setupWebhookService(t, &stubNormalizer{err: errors.New("invalid")})
	defer q.Stop(time.Second)

	err := svc.Accept(context.Background(), WebhookEvent{From: "garbage", ID: "wamid.1", Type: "text"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
