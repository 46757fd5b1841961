package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/pkg/pg"
	"github.com/waveline/engage-gateway/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.ContactEntity{},
		&repository.JourneyEventEntity{},
		&repository.ConversationEntity{},
		&repository.MessageEntity{},
		&repository.TriggerEntity{},
		&repository.CampaignEntity{},
		&repository.ClassificationRecordEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestContact(t *testing.T, db *pg.DB, phone string, tags []string) *repository.ContactEntity {
	ctx := context.Background()
	contact := &repository.ContactEntity{
		Phone: phone,
		Name:  "Test Contact",
		Tags:  tags,
	}
	err := db.Write(ctx).Create(contact).Error
	require.NoError(t, err)
	return contact
}

func CreateTestConversation(t *testing.T, db *pg.DB, contactID int64, status string) *repository.ConversationEntity {
	ctx := context.Background()
	conv := &repository.ConversationEntity{
		ContactID:       contactID,
		Status:          status,
		LastMessageFrom: "customer",
		LastMessageAt:   time.Now(),
	}
	err := db.Write(ctx).Create(conv).Error
	require.NoError(t, err)
	return conv
}

func CreateTestMessage(t *testing.T, db *pg.DB, conversationID int64, senderType, content string) *repository.MessageEntity {
	ctx := context.Background()
	msg := &repository.MessageEntity{
		ConversationID: conversationID,
		SenderType:     senderType,
		Content:        content,
		MessageType:    "text",
		DeliveryStatus: "received",
		CreatedAt:      time.Now(),
	}
	err := db.Write(ctx).Create(msg).Error
	require.NoError(t, err)
	return msg
}

func CreateTestCampaign(t *testing.T, db *pg.DB, name, status string, tags []string) *repository.CampaignEntity {
	ctx := context.Background()
	c := &repository.CampaignEntity{
		Name:            name,
		MessageTemplate: "Hi {{name}}!",
		TargetTags:      tags,
		Status:          status,
	}
	err := db.Write(ctx).Create(c).Error
	require.NoError(t, err)
	return c
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
