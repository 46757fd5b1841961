package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waveline/engage-gateway/pkg/redis"
)

var (
	// ErrContactBusy means another worker currently processes an event
	// for the same contact; the event should be redelivered.
	ErrContactBusy = errors.New("contact is being processed by another worker")
)

// ContactLock serializes event processing per contact. Events for
// different contacts run fully concurrently; events for the same
// contact take turns, which keeps conversation state transitions from
// interleaving and prevents duplicate conversation creation.
type ContactLock struct {
	redis  redis.RedisAdapter
	ttl    time.Duration
	prefix string
}

func NewContactLock(redisAdapter redis.RedisAdapter, ttl time.Duration) *ContactLock {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &ContactLock{
		redis:  redisAdapter,
		ttl:    ttl,
		prefix: "contact-lock:",
	}
}

// Acquire takes the per-contact lock keyed by phone. The TTL bounds
// how long a crashed worker can block the contact.
func (l *ContactLock) Acquire(ctx context.Context, phone string) error {
	key := l.prefix + phone
	value := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := l.redis.SetNX(key, value, l.ttl)
	if err != nil {
		return fmt.Errorf("acquire contact lock: %w", err)
	}
	if !acquired {
		return ErrContactBusy
	}
	return nil
}

func (l *ContactLock) Release(ctx context.Context, phone string) {
	_ = l.redis.Del(l.prefix + phone)
}
