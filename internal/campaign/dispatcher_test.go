package campaign

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
)

type fakeCampaigns struct {
	campaign *model.Campaign
	// pauseAfter flips the status away from running after that many
	// GetStatus calls, simulating an external pause mid-run.
	pauseAfter  int
	statusReads int

	markRunningOK  bool
	reverted       bool
	revertedTo     model.CampaignStatus
	totalRecorded  int64
	lastSent       int64
	lastFailed     int64
	completed      bool
	completedSent  int64
	completedFails int64
}

func (f *fakeCampaigns) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	if f.campaign == nil || f.campaign.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.campaign, nil
}

func (f *fakeCampaigns) GetStatus(ctx context.Context, id int64) (model.CampaignStatus, error) {
	f.statusReads++
	if f.pauseAfter > 0 && f.statusReads > f.pauseAfter {
		return model.CampaignPaused, nil
	}
	return model.CampaignRunning, nil
}

func (f *fakeCampaigns) MarkRunning(ctx context.Context, id int64) (bool, error) {
	return f.markRunningOK, nil
}

func (f *fakeCampaigns) RevertRunning(ctx context.Context, id int64, to model.CampaignStatus) error {
	f.reverted = true
	f.revertedTo = to
	return nil
}

func (f *fakeCampaigns) SetTotalRecipients(ctx context.Context, id int64, total int64) error {
	f.totalRecorded = total
	return nil
}

func (f *fakeCampaigns) UpdateCounts(ctx context.Context, id int64, sent, failed int64) error {
	f.lastSent, f.lastFailed = sent, failed
	return nil
}

func (f *fakeCampaigns) MarkCompleted(ctx context.Context, id int64, sent, failed int64) error {
	f.completed = true
	f.completedSent, f.completedFails = sent, failed
	return nil
}

type fakeSegment struct {
	contacts []*model.Contact
	err      error
	journeys []int64
}

func (f *fakeSegment) ListSegment(ctx context.Context, tags []string) ([]*model.Contact, error) {
	return f.contacts, f.err
}

func (f *fakeSegment) AppendJourneyEvent(ctx context.Context, contactID int64, kind model.JourneyEventKind, payload map[string]string) error {
	f.journeys = append(f.journeys, contactID)
	return nil
}

type fakeConvos struct {
	open    map[int64]*model.Conversation
	created []*model.Conversation
	touched int
}

func newFakeConvos() *fakeConvos {
	return &fakeConvos{open: map[int64]*model.Conversation{}}
}

func (f *fakeConvos) GetOpenByContact(ctx context.Context, contactID int64) (*model.Conversation, error) {
	if c, ok := f.open[contactID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConvos) Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error) {
	c.ID = int64(len(f.open) + 100)
	f.open[c.ContactID] = c
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeConvos) Touch(ctx context.Context, id int64, from model.SenderType, at time.Time) error {
	f.touched++
	return nil
}

type fakeMsgs struct {
	created []*model.Message
}

func (f *fakeMsgs) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	msg.ID = int64(len(f.created) + 1)
	f.created = append(f.created, msg)
	return msg, nil
}

type scriptedTransport struct {
	requests []*gateway.SendRequest
	// failFor holds recipient phones whose sends fail
	failFor map[string]bool
}

func (s *scriptedTransport) Send(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error) {
	s.requests = append(s.requests, req)
	if s.failFor[req.To] {
		return nil, errors.New("provider rejected")
	}
	return &gateway.SendResponse{Success: true, MessageID: fmt.Sprintf("wamid.%d", len(s.requests))}, nil
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		ID:              1,
		Name:            "launch",
		MessageTemplate: "Hi {{name}}, we have news.",
		TargetTags:      []string{"vip"},
		Status:          model.CampaignDraft,
	}
}

func contactsFixture(n int) []*model.Contact {
	out := make([]*model.Contact, n)
	for i := range out {
		out[i] = &model.Contact{
			ID:    int64(i + 1),
			Phone: fmt.Sprintf("49151234567%02d", i),
			Name:  fmt.Sprintf("Contact %d", i+1),
			Tags:  []string{"vip"},
		}
	}
	return out
}

func TestDispatcher_Execute(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true}
	segment := &fakeSegment{contacts: contactsFixture(3)}
	convos := newFakeConvos()
	msgs := &fakeMsgs{}
	transport := &scriptedTransport{}

	d := NewDispatcher(campaigns, segment, convos, msgs, transport, time.Millisecond)

	result, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalRecipients)
	assert.Equal(t, int64(3), result.SentCount)
	assert.Equal(t, int64(0), result.FailedCount)
	assert.False(t, result.Halted)

	assert.Equal(t, int64(3), campaigns.totalRecorded)
	assert.True(t, campaigns.completed)
	assert.Equal(t, int64(3), campaigns.completedSent)

	// messages are personalized per recipient
	require.Len(t, transport.requests, 3)
	assert.Equal(t, "Hi Contact 1, we have news.", transport.requests[0].Body)
	assert.Equal(t, "Hi Contact 2, we have news.", transport.requests[1].Body)

	// each delivery landed in a conversation, a transcript row and the journey
	assert.Len(t, convos.created, 3)
	require.Len(t, msgs.created, 3)
	assert.Equal(t, model.SenderAgent, msgs.created[0].SenderType)
	assert.Equal(t, "1", msgs.created[0].Metadata["campaign_id"])
	require.NotNil(t, msgs.created[0].ProviderMessageID)
	assert.Len(t, segment.journeys, 3)
}

func TestDispatcher_Execute_NotFound(t *testing.T) {
	d := NewDispatcher(&fakeCampaigns{}, &fakeSegment{}, newFakeConvos(), &fakeMsgs{}, &scriptedTransport{}, time.Millisecond)

	_, err := d.Execute(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatcher_Execute_AlreadyRunning(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: false}
	transport := &scriptedTransport{}
	d := NewDispatcher(campaigns, &fakeSegment{contacts: contactsFixture(2)}, newFakeConvos(), &fakeMsgs{}, transport, time.Millisecond)

	_, err := d.Execute(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Empty(t, transport.requests)
}

func TestDispatcher_Execute_EmptySegment(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true}
	d := NewDispatcher(campaigns, &fakeSegment{}, newFakeConvos(), &fakeMsgs{}, &scriptedTransport{}, time.Millisecond)

	result, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalRecipients)
	assert.True(t, campaigns.completed)
	assert.Equal(t, int64(0), campaigns.completedSent)
	assert.Equal(t, int64(0), campaigns.completedFails)
}

func TestDispatcher_Execute_PartialFailures(t *testing.T) {
	contacts := contactsFixture(4)
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true}
	transport := &scriptedTransport{failFor: map[string]bool{
		contacts[1].Phone: true,
		contacts[3].Phone: true,
	}}
	msgs := &fakeMsgs{}
	d := NewDispatcher(campaigns, &fakeSegment{contacts: contacts}, newFakeConvos(), msgs, transport, time.Millisecond)

	result, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.SentCount)
	assert.Equal(t, int64(2), result.FailedCount)
	assert.Equal(t, result.TotalRecipients, result.SentCount+result.FailedCount)

	// failed sends never produce transcript rows
	assert.Len(t, msgs.created, 2)
	assert.Equal(t, int64(2), campaigns.completedSent)
	assert.Equal(t, int64(2), campaigns.completedFails)
}

func TestDispatcher_Execute_HaltedByExternalStatusChange(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true, pauseAfter: 2}
	transport := &scriptedTransport{}
	d := NewDispatcher(campaigns, &fakeSegment{contacts: contactsFixture(5)}, newFakeConvos(), &fakeMsgs{}, transport, time.Millisecond)

	result, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, result.Halted)
	assert.Equal(t, int64(2), result.SentCount)
	assert.Len(t, transport.requests, 2)
	// a halted run never completes the campaign
	assert.False(t, campaigns.completed)
}

func TestDispatcher_Execute_SegmentErrorFails(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true}
	segment := &fakeSegment{err: errors.New("db down")}
	d := NewDispatcher(campaigns, segment, newFakeConvos(), &fakeMsgs{}, &scriptedTransport{}, time.Millisecond)

	_, err := d.Execute(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, campaigns.completed)

	// the run guard must be rolled back so a later attempt is not stuck
	// behind a running status that no dispatcher owns anymore
	assert.True(t, campaigns.reverted)
	assert.Equal(t, model.CampaignDraft, campaigns.revertedTo)

	// once the store recovers, a retry dispatches normally
	segment.err = nil
	segment.contacts = contactsFixture(2)
	result, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.SentCount)
	assert.True(t, campaigns.completed)
}

func TestDispatcher_Execute_ReusesOpenConversation(t *testing.T) {
	contacts := contactsFixture(1)
	campaigns := &fakeCampaigns{campaign: testCampaign(), markRunningOK: true}
	convos := newFakeConvos()
	convos.open[1] = &model.Conversation{ID: 55, ContactID: 1, Status: model.ConversationAIHandled}
	msgs := &fakeMsgs{}
	d := NewDispatcher(campaigns, &fakeSegment{contacts: contacts}, convos, msgs, &scriptedTransport{}, time.Millisecond)

	_, err := d.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.Empty(t, convos.created)
	require.Len(t, msgs.created, 1)
	assert.Equal(t, int64(55), msgs.created[0].ConversationID)
}
