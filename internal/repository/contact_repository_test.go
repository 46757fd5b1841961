package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/model"
)

func TestContactRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Contact{
		Phone:    "4915123456789",
		Name:     "Maria",
		Company:  "Acme GmbH",
		Tags:     []string{"vip", "beta"},
		Metadata: map[string]string{"source": "import"},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", byID.Name)
	assert.Equal(t, []string{"vip", "beta"}, byID.Tags)
	assert.Equal(t, "import", byID.Metadata["source"])

	byPhone, err := repo.GetByPhone(ctx, "4915123456789")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPhone.ID)
}

func TestContactRepository_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByPhone(ctx, "000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactRepository_DuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Contact{Phone: "4915123456789"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &model.Contact{Phone: "4915123456789"})
	assert.Error(t, err)
}

func TestContactRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	for _, c := range []*model.Contact{
		{Phone: "4915000000001", Tags: []string{"vip"}},
		{Phone: "4915000000002", Tags: []string{"churned"}},
		{Phone: "4915000000003", Tags: []string{"vip", "beta"}},
	} {
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, model.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	phone := "4915000000002"
	byPhone, _, err := repo.List(ctx, model.ContactFilter{Phone: &phone})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, phone, byPhone[0].Phone)

	vips, _, err := repo.List(ctx, model.ContactFilter{Tags: []string{"vip"}})
	require.NoError(t, err)
	assert.Len(t, vips, 2)
}

func TestContactRepository_List_TagFilterPagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	// interleave tagged and untagged contacts so a naive page-then-filter
	// would return short pages and a wrong total
	for i := 0; i < 10; i++ {
		tags := []string{"churned"}
		if i%2 == 0 {
			tags = []string{"vip"}
		}
		_, err := repo.Create(ctx, &model.Contact{
			Phone: fmt.Sprintf("49150000001%02d", i),
			Tags:  tags,
		})
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, model.ContactFilter{Tags: []string{"vip"}, Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)

	// the window walks the filtered set, not the raw table
	next, total, err := repo.List(ctx, model.ContactFilter{Tags: []string{"vip"}, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, next, 2)
	assert.NotEqual(t, page[0].ID, next[0].ID)

	last, total, err := repo.List(ctx, model.ContactFilter{Tags: []string{"vip"}, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, last, 1)

	beyond, total, err := repo.List(ctx, model.ContactFilter{Tags: []string{"vip"}, Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, beyond)
}

func TestContactRepository_ListSegment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	for _, c := range []*model.Contact{
		{Phone: "4915000000001", Tags: []string{"vip"}},
		{Phone: "4915000000002", Tags: []string{"churned"}},
		{Phone: "4915000000003", Tags: []string{"vip", "beta"}},
		{Phone: "4915000000004"},
	} {
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)
	}

	t.Run("empty tag set matches everyone", func(t *testing.T) {
		segment, err := repo.ListSegment(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, segment, 4)
	})

	t.Run("tag overlap is contains-any", func(t *testing.T) {
		segment, err := repo.ListSegment(ctx, []string{"vip", "churned"})
		require.NoError(t, err)
		assert.Len(t, segment, 3)
	})

	t.Run("no overlap yields empty segment", func(t *testing.T) {
		segment, err := repo.ListSegment(ctx, []string{"prospect"})
		require.NoError(t, err)
		assert.Empty(t, segment)
	})
}

func TestContactRepository_Journey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db.DB)
	ctx := context.Background()

	contact, err := repo.Create(ctx, &model.Contact{Phone: "4915123456789"})
	require.NoError(t, err)

	require.NoError(t, repo.InitProfile(ctx, contact.ID))
	require.NoError(t, repo.AppendJourneyEvent(ctx, contact.ID, model.JourneyInboundMessage, map[string]string{
		"conversation_id": "1",
		"intent":          "greeting",
	}))
	require.NoError(t, repo.AppendJourneyEvent(ctx, contact.ID, model.JourneyCampaignMessage, map[string]string{
		"campaign_id": "7",
	}))

	journey, err := repo.ListJourney(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, journey, 3)

	// append-only, chronological
	assert.Equal(t, model.JourneyProfileInitialized, journey[0].Kind)
	assert.Equal(t, model.JourneyInboundMessage, journey[1].Kind)
	assert.Equal(t, "greeting", journey[1].Payload["intent"])
	assert.Equal(t, model.JourneyCampaignMessage, journey[2].Kind)
	assert.Equal(t, "7", journey[2].Payload["campaign_id"])
}
