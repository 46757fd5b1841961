package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/analysis"
	"github.com/waveline/engage-gateway/internal/handover"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/trigger"
)

type fakeContacts struct {
	byPhone  map[string]*model.Contact
	created  []*model.Contact
	journeys []model.JourneyEventKind
	profiles []int64
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{byPhone: map[string]*model.Contact{}}
}

func (f *fakeContacts) GetByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	if c, ok := f.byPhone[phone]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContacts) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	c.ID = int64(len(f.byPhone) + 1)
	f.byPhone[c.Phone] = c
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeContacts) InitProfile(ctx context.Context, contactID int64) error {
	f.profiles = append(f.profiles, contactID)
	return nil
}

func (f *fakeContacts) AppendJourneyEvent(ctx context.Context, contactID int64, kind model.JourneyEventKind, payload map[string]string) error {
	f.journeys = append(f.journeys, kind)
	return nil
}

type fakeConversations struct {
	open    map[int64]*model.Conversation
	created []*model.Conversation
	touched int
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{open: map[int64]*model.Conversation{}}
}

func (f *fakeConversations) GetOpenByContact(ctx context.Context, contactID int64) (*model.Conversation, error) {
	if c, ok := f.open[contactID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversations) Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error) {
	c.ID = int64(len(f.open) + 1)
	f.open[c.ContactID] = c
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeConversations) Touch(ctx context.Context, id int64, from model.SenderType, at time.Time) error {
	f.touched++
	return nil
}

type fakeMessages struct {
	created   []*model.Message
	createErr error
	recentErr error
}

func (f *fakeMessages) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	msg.ID = int64(len(f.created) + 1)
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeMessages) Recent(ctx context.Context, conversationID int64, limit int) ([]*model.Message, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	out := f.created
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeAnalytics struct {
	records []*model.Classification
	err     error
}

func (f *fakeAnalytics) RecordClassification(ctx context.Context, conversationID int64, c *model.Classification) (*model.ClassificationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, c)
	return &model.ClassificationRecord{ConversationID: conversationID}, nil
}

type fakeEngine struct {
	calls int
	err   error
}

func (f *fakeEngine) Evaluate(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation) ([]trigger.Activation, error) {
	f.calls++
	return nil, f.err
}

type fakeHandover struct {
	calls   int
	history []*model.Message
	err     error
}

func (f *fakeHandover) Decide(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation, history []*model.Message) (*handover.Decision, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	return &handover.Decision{Outcome: handover.OutcomeAIHandled, Confidence: c.Confidence}, nil
}

type pipelineClassifier struct {
	classification *model.Classification
	err            error
	requests       []analysis.ClassifyRequest
}

func (f *pipelineClassifier) Classify(ctx context.Context, req analysis.ClassifyRequest) (*model.Classification, error) {
	f.requests = append(f.requests, req)
	return f.classification, f.err
}

func (f *pipelineClassifier) GenerateReply(ctx context.Context, c *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	return "", nil
}

type pipelineFixture struct {
	contacts      *fakeContacts
	conversations *fakeConversations
	messages      *fakeMessages
	analytics     *fakeAnalytics
	classifier    *pipelineClassifier
	engine        *fakeEngine
	handover      *fakeHandover
	pipeline      *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		contacts:      newFakeContacts(),
		conversations: newFakeConversations(),
		messages:      &fakeMessages{},
		analytics:     &fakeAnalytics{},
		classifier:    &pipelineClassifier{classification: &model.Classification{Intent: "greeting", Confidence: 0.8}},
		engine:        &fakeEngine{},
		handover:      &fakeHandover{},
	}
	f.pipeline = NewPipeline(f.contacts, f.conversations, f.messages, f.analytics,
		f.classifier, f.engine, f.handover, PipelineConfig{ContextWindow: 10})
	return f
}

func textEvent(phone string) model.InboundEvent {
	return model.InboundEvent{
		From:              phone,
		Text:              "hello there",
		Type:              model.MessageTypeText,
		ProviderMessageID: "wamid.1",
		ReceivedAt:        time.Now(),
	}
}

func TestPipeline_Process_CreatesContactAndConversation(t *testing.T) {
	f := newPipelineFixture()

	err := f.pipeline.Process(context.Background(), textEvent("4915123456789"))
	require.NoError(t, err)

	require.Len(t, f.contacts.created, 1)
	assert.Equal(t, "4915123456789", f.contacts.created[0].Phone)
	assert.Equal(t, []int64{1}, f.contacts.profiles)

	require.Len(t, f.conversations.created, 1)
	assert.Equal(t, model.ConversationActive, f.conversations.created[0].Status)
	assert.Equal(t, 1, f.conversations.touched)

	require.Len(t, f.messages.created, 1)
	inbound := f.messages.created[0]
	assert.Equal(t, model.SenderCustomer, inbound.SenderType)
	assert.Equal(t, model.DeliveryReceived, inbound.DeliveryStatus)
	require.NotNil(t, inbound.ProviderMessageID)
	assert.Equal(t, "wamid.1", *inbound.ProviderMessageID)

	assert.Equal(t, 1, f.engine.calls)
	assert.Equal(t, 1, f.handover.calls)
	assert.Len(t, f.analytics.records, 1)
	assert.Equal(t, []model.JourneyEventKind{model.JourneyInboundMessage}, f.contacts.journeys)
}

func TestPipeline_Process_ReusesExistingContactAndConversation(t *testing.T) {
	f := newPipelineFixture()
	contact := &model.Contact{ID: 5, Phone: "4915123456789"}
	f.contacts.byPhone[contact.Phone] = contact
	f.conversations.open[contact.ID] = &model.Conversation{ID: 9, ContactID: 5, Status: model.ConversationAIHandled}

	err := f.pipeline.Process(context.Background(), textEvent(contact.Phone))
	require.NoError(t, err)

	assert.Empty(t, f.contacts.created)
	assert.Empty(t, f.conversations.created)
	require.Len(t, f.messages.created, 1)
	assert.Equal(t, int64(9), f.messages.created[0].ConversationID)
}

func TestPipeline_Process_InvalidEvent(t *testing.T) {
	f := newPipelineFixture()

	err := f.pipeline.Process(context.Background(), model.InboundEvent{From: "4915123456789"})
	assert.Error(t, err)
	assert.Empty(t, f.messages.created)
}

func TestPipeline_Process_NonTextStopsAfterPersistence(t *testing.T) {
	f := newPipelineFixture()
	ev := textEvent("4915123456789")
	ev.Type = model.MessageTypeImage
	ev.Text = ""

	err := f.pipeline.Process(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, f.messages.created, 1)
	assert.Equal(t, model.MessageTypeImage, f.messages.created[0].MessageType)
	assert.Equal(t, 0, f.engine.calls)
	assert.Equal(t, 0, f.handover.calls)
	assert.Empty(t, f.analytics.records)
	assert.Len(t, f.classifier.requests, 0)
}

func TestPipeline_Process_PersistFailureIsRetriable(t *testing.T) {
	f := newPipelineFixture()
	f.messages.createErr = errors.New("db down")

	err := f.pipeline.Process(context.Background(), textEvent("4915123456789"))
	assert.Error(t, err)
	assert.Equal(t, 0, f.engine.calls)
	assert.Equal(t, 0, f.handover.calls)
}

func TestPipeline_Process_DownstreamFailuresAreSwallowed(t *testing.T) {
	f := newPipelineFixture()
	f.analytics.err = errors.New("analytics down")
	f.engine.err = errors.New("trigger db down")
	f.handover.err = errors.New("handover failed")

	err := f.pipeline.Process(context.Background(), textEvent("4915123456789"))
	require.NoError(t, err)

	// the inbound message survived everything downstream
	assert.Len(t, f.messages.created, 1)
	assert.Equal(t, 1, f.engine.calls)
	assert.Equal(t, 1, f.handover.calls)
}

func TestPipeline_Process_ClassifierFailureDegradesToNeutral(t *testing.T) {
	f := newPipelineFixture()
	f.classifier.classification = nil
	f.classifier.err = errors.New("backend down")

	err := f.pipeline.Process(context.Background(), textEvent("4915123456789"))
	require.NoError(t, err)

	require.Len(t, f.analytics.records, 1)
	assert.Equal(t, "unknown", f.analytics.records[0].Intent)
	assert.Equal(t, 0.5, f.analytics.records[0].Confidence)
}

func TestPipeline_Process_HistoryFallsBackToInbound(t *testing.T) {
	f := newPipelineFixture()
	f.messages.recentErr = errors.New("read replica down")

	err := f.pipeline.Process(context.Background(), textEvent("4915123456789"))
	require.NoError(t, err)

	require.Len(t, f.handover.history, 1)
	assert.Equal(t, "hello there", f.handover.history[0].Content)
}

func TestPipeline_Process_ContextWindowBound(t *testing.T) {
	f := newPipelineFixture()
	contact := &model.Contact{ID: 1, Phone: "4915123456789"}
	f.contacts.byPhone[contact.Phone] = contact
	f.conversations.open[1] = &model.Conversation{ID: 1, ContactID: 1, Status: model.ConversationActive}
	for i := 0; i < 20; i++ {
		_, err := f.messages.Create(context.Background(), &model.Message{ConversationID: 1, SenderType: model.SenderCustomer, Content: "old"})
		require.NoError(t, err)
	}

	err := f.pipeline.Process(context.Background(), textEvent(contact.Phone))
	require.NoError(t, err)
	assert.Len(t, f.handover.history, 10)
}
