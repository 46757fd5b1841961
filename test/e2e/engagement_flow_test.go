package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/waveline/engage-gateway/internal/analysis"
	"github.com/waveline/engage-gateway/internal/campaign"
	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/handover"
	"github.com/waveline/engage-gateway/internal/intake"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/queue"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/services"
	"github.com/waveline/engage-gateway/internal/trigger"
	"github.com/waveline/engage-gateway/pkg/pg"
	"github.com/waveline/engage-gateway/pkg/redis"
)

type testDB = pg.DB

type stubClassifier struct {
	classification *model.Classification
	reply          string
}

func (s *stubClassifier) Classify(ctx context.Context, req analysis.ClassifyRequest) (*model.Classification, error) {
	return s.classification, nil
}

func (s *stubClassifier) GenerateReply(ctx context.Context, c *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	return s.reply, nil
}

type stubTransport struct {
	sent     []*gateway.SendRequest
	failNext bool
}

func (s *stubTransport) Send(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error) {
	s.sent = append(s.sent, req)
	if s.failNext {
		s.failNext = false
		return &gateway.SendResponse{Success: false, Error: "simulated failure"}, nil
	}
	return &gateway.SendResponse{Success: true, MessageID: fmt.Sprintf("wamid.%d", len(s.sent)), ProcessedAt: time.Now()}, nil
}

type TestEnvironment struct {
	DB           *pg.DB
	Redis        *miniredis.Miniredis
	RedisAdapter redis.RedisAdapter
	Queue        *queue.Queue

	ContactRepo      *repository.ContactRepository
	ConversationRepo *repository.ConversationRepository
	MessageRepo      *repository.MessageRepository
	TriggerRepo      *repository.TriggerRepository
	CampaignRepo     *repository.CampaignRepository
	AnalyticsRepo    *repository.AnalyticsRepository

	Classifier *stubClassifier
	Transport  *stubTransport
	Pipeline   *intake.Pipeline
	Processor  *intake.EventProcessor
	Dispatcher *campaign.Dispatcher
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
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

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	queueConfig := queue.QueueConfig{
		Name:              "test:inbound",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	contactRepo := repository.NewContactRepository(pgDB)
	conversationRepo := repository.NewConversationRepository(pgDB)
	messageRepo := repository.NewMessageRepository(pgDB)
	triggerRepo := repository.NewTriggerRepository(pgDB)
	campaignRepo := repository.NewCampaignRepository(pgDB)
	analyticsRepo := repository.NewAnalyticsRepository(pgDB)

	classifier := &stubClassifier{
		classification: &model.Classification{
			Intent:     "support_request",
			Sentiment:  "neutral",
			Urgency:    "medium",
			Confidence: 0.9,
		},
		reply: "Happy to help with that.",
	}
	transport := &stubTransport{}

	engine := trigger.NewEngine(triggerRepo, trigger.NoopExecutor{}, time.Second)
	unit := handover.NewUnit(classifier, messageRepo, conversationRepo, transport, 0.7)

	pipeline := intake.NewPipeline(
		contactRepo,
		conversationRepo,
		messageRepo,
		analyticsRepo,
		classifier,
		engine,
		unit,
		intake.PipelineConfig{ContextWindow: 10},
	)

	lock := intake.NewContactLock(redisAdapter, 30*time.Second)
	processor := intake.NewEventProcessor(pipeline, lock)

	dispatcher := campaign.NewDispatcher(
		campaignRepo,
		contactRepo,
		conversationRepo,
		messageRepo,
		transport,
		time.Millisecond,
	)

	return &TestEnvironment{
		DB:               pgDB,
		Redis:            mr,
		RedisAdapter:     redisAdapter,
		Queue:            q,
		ContactRepo:      contactRepo,
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		TriggerRepo:      triggerRepo,
		CampaignRepo:     campaignRepo,
		AnalyticsRepo:    analyticsRepo,
		Classifier:       classifier,
		Transport:        transport,
		Pipeline:         pipeline,
		Processor:        processor,
		Dispatcher:       dispatcher,
	}
}

func (env *TestEnvironment) Cleanup() {
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	time.Sleep(100 * time.Millisecond)
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func TestE2E_WebhookEnqueue(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	svc := services.NewWebhookService(env.Queue, services.NewPhoneNormalizer("US"))

	err := svc.Accept(ctx, services.WebhookEvent{
		From: "+12025550123",
		ID:   "wamid.e2e-1",
		Type: "text",
		Text: "hello there",
	})
	require.NoError(t, err)

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(1))
}

func TestE2E_WebhookRejectsInvalidPhone(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	svc := services.NewWebhookService(env.Queue, services.NewPhoneNormalizer("US"))

	err := svc.Accept(ctx, services.WebhookEvent{
		From: "not-a-number",
		ID:   "wamid.e2e-2",
		Type: "text",
		Text: "hello",
	})
	assert.ErrorIs(t, err, services.ErrInvalidPhone)
}

func TestE2E_InboundMessageAIHandled(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	err := env.Pipeline.Process(ctx, model.InboundEvent{
		From:              "12025550100",
		Text:              "I need help with my invoice",
		Type:              model.MessageTypeText,
		ProviderMessageID: "wamid.e2e-3",
		ReceivedAt:        time.Now(),
	})
	require.NoError(t, err)

	contact, err := env.ContactRepo.GetByPhone(ctx, "12025550100")
	require.NoError(t, err)

	conv, err := env.ConversationRepo.GetOpenByContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationAIHandled, conv.Status)

	// customer message plus AI reply
	convID := conv.ID
	msgs, total, err := env.MessageRepo.List(ctx, model.MessageFilter{ConversationID: &convID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, model.SenderCustomer, msgs[0].SenderType)
	assert.Equal(t, model.SenderAI, msgs[1].SenderType)

	require.Len(t, env.Transport.sent, 1)
	assert.Equal(t, "12025550100", env.Transport.sent[0].To)

	journey, err := env.ContactRepo.ListJourney(ctx, contact.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, journey)
}

func TestE2E_InboundMessageEscalated(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.Classifier.classification = &model.Classification{
		Intent:     "unknown",
		Sentiment:  "negative",
		Urgency:    "high",
		Confidence: 0.4,
	}

	err := env.Pipeline.Process(ctx, model.InboundEvent{
		From:              "12025550101",
		Text:              "this makes no sense at all",
		Type:              model.MessageTypeText,
		ProviderMessageID: "wamid.e2e-4",
		ReceivedAt:        time.Now(),
	})
	require.NoError(t, err)

	contact, err := env.ContactRepo.GetByPhone(ctx, "12025550101")
	require.NoError(t, err)

	conv, err := env.ConversationRepo.GetOpenByContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationAgentAssigned, conv.Status)
	require.NotNil(t, conv.HandoverReason)
	assert.Equal(t, model.HandoverReasonLowConfidence, *conv.HandoverReason)

	// no AI reply goes out on escalation
	assert.Empty(t, env.Transport.sent)
}

func TestE2E_CampaignDispatch(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.ContactRepo.Create(ctx, &model.Contact{
			Phone: fmt.Sprintf("1202555020%d", i),
			Name:  fmt.Sprintf("Contact %d", i),
			Tags:  []string{"vip"},
		})
		require.NoError(t, err)
	}
	_, err := env.ContactRepo.Create(ctx, &model.Contact{Phone: "12025550299", Name: "Untagged"})
	require.NoError(t, err)

	c, err := env.CampaignRepo.Create(ctx, &model.Campaign{
		Name:            "vip-offer",
		MessageTemplate: "Hi {{name}}, check out our offer.",
		TargetTags:      []string{"vip"},
	})
	require.NoError(t, err)

	result, err := env.Dispatcher.Execute(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalRecipients)
	assert.Equal(t, int64(3), result.SentCount)
	assert.Equal(t, int64(0), result.FailedCount)

	final, err := env.CampaignRepo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignCompleted, final.Status)
	assert.Equal(t, int64(3), final.SentCount)

	// second run must be refused
	_, err = env.Dispatcher.Execute(ctx, c.ID)
	assert.ErrorIs(t, err, campaign.ErrAlreadyRunning)
}

func TestE2E_IntakeEventProcessorContactLock(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	lock := intake.NewContactLock(env.RedisAdapter, 30*time.Second)

	require.NoError(t, lock.Acquire(ctx, "12025550300"))

	ev := model.InboundEvent{
		From:              "12025550300",
		Text:              "hello",
		Type:              model.MessageTypeText,
		ProviderMessageID: "wamid.e2e-5",
		ReceivedAt:        time.Now(),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	err = env.Processor.Process(ctx, &queue.Message{ID: "1-0", Data: data})
	assert.ErrorIs(t, err, intake.ErrContactBusy)

	lock.Release(ctx, "12025550300")

	err = env.Processor.Process(ctx, &queue.Message{ID: "1-1", Data: data})
	require.NoError(t, err)

	_, err = env.ContactRepo.GetByPhone(ctx, "12025550300")
	require.NoError(t, err)
}
