package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/model"
)

func TestCampaignRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	t.Run("without schedule defaults to draft", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Campaign{
			Name:            "launch",
			MessageTemplate: "Hi {{name}}",
			TargetTags:      []string{"vip"},
		})
		require.NoError(t, err)
		assert.Equal(t, model.CampaignDraft, created.Status)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"vip"}, got.TargetTags)
	})

	t.Run("with schedule defaults to scheduled", func(t *testing.T) {
		at := time.Now().Add(time.Hour)
		created, err := repo.Create(ctx, &model.Campaign{
			Name:            "later",
			MessageTemplate: "Hi",
			ScheduledAt:     &at,
		})
		require.NoError(t, err)
		assert.Equal(t, model.CampaignScheduled, created.Status)
	})
}

func TestCampaignRepository_GetStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Campaign{Name: "x", MessageTemplate: "y"})
	require.NoError(t, err)

	status, err := repo.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, status)

	_, err = repo.GetStatus(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCampaignRepository_MarkRunning(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Campaign{Name: "x", MessageTemplate: "y"})
	require.NoError(t, err)

	// the guard succeeds exactly once
	ok, err := repo.MarkRunning(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRunning(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := repo.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignRunning, status)
}

func TestCampaignRepository_RevertRunning(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Campaign{Name: "x", MessageTemplate: "y"})
	require.NoError(t, err)

	ok, err := repo.MarkRunning(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.RevertRunning(ctx, created.ID, model.CampaignDraft))

	status, err := repo.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, status)

	// the guard works again after the rollback
	ok, err = repo.MarkRunning(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// the conditional update is a no-op for non-running campaigns
	require.NoError(t, repo.MarkCompleted(ctx, created.ID, 0, 0))
	require.NoError(t, repo.RevertRunning(ctx, created.ID, model.CampaignDraft))
	status, err = repo.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignCompleted, status)
}

func TestCampaignRepository_MarkCompleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Campaign{Name: "x", MessageTemplate: "y"})
	require.NoError(t, err)

	t.Run("only a running campaign completes", func(t *testing.T) {
		require.NoError(t, repo.MarkCompleted(ctx, created.ID, 1, 0))
		status, err := repo.GetStatus(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignDraft, status)
	})

	t.Run("running campaign completes with final counts", func(t *testing.T) {
		ok, err := repo.MarkRunning(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, repo.SetTotalRecipients(ctx, created.ID, 10))
		require.NoError(t, repo.UpdateCounts(ctx, created.ID, 4, 1))
		require.NoError(t, repo.MarkCompleted(ctx, created.ID, 8, 2))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignCompleted, got.Status)
		assert.Equal(t, int64(10), got.TotalRecipients)
		assert.Equal(t, int64(8), got.SentCount)
		assert.Equal(t, int64(2), got.FailedCount)
	})
}

func TestCampaignRepository_ListDueScheduled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	due, err := repo.Create(ctx, &model.Campaign{Name: "due", MessageTemplate: "x", ScheduledAt: &past})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Campaign{Name: "not yet", MessageTemplate: "x", ScheduledAt: &future})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Campaign{Name: "draft", MessageTemplate: "x"})
	require.NoError(t, err)

	list, err := repo.ListDueScheduled(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)

	// a running campaign is no longer due
	ok, err := repo.MarkRunning(ctx, due.ID)
	require.NoError(t, err)
	require.True(t, ok)

	list, err = repo.ListDueScheduled(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCampaignRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, &model.Campaign{Name: name, MessageTemplate: "x"})
		require.NoError(t, err)
	}

	list, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	// newest first
	assert.Equal(t, "third", list[0].Name)
}

func TestAnalyticsRepository_RecordClassification(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db.DB)
	ctx := context.Background()

	record, err := repo.RecordClassification(ctx, 7, &model.Classification{
		Intent:     "order_status",
		Sentiment:  "neutral",
		Urgency:    "normal",
		Topics:     []string{"shipping"},
		Confidence: 0.84,
	})
	require.NoError(t, err)
	assert.NotZero(t, record.ID)
	assert.Equal(t, int64(7), record.ConversationID)
	assert.Equal(t, "order_status", record.Intent)
	assert.Equal(t, []string{"shipping"}, record.Topics)
	assert.Equal(t, 0.84, record.Confidence)
}
