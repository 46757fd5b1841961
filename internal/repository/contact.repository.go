package repository

import (
	"context"
	"errors"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
)

type ContactRepository struct {
	*pg.DB
}

func NewContactRepository(db *pg.DB) *ContactRepository {
	return &ContactRepository{
		db,
	}
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	entity := toContactEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toContactModel(entity), nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	var entity ContactEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toContactModel(&entity), nil
}

func (r *ContactRepository) GetByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	var entity ContactEntity
	err := r.Read(ctx).WithContext(ctx).Where("phone = ?", phone).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toContactModel(&entity), nil
}

func (r *ContactRepository) List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	// Tags live in a JSON document, so the overlap test runs in process.
	// The filtered set is resolved in full first and paged in memory, so
	// total and the page window reflect the filter, not the raw page.
	if len(f.Tags) > 0 {
		matched, err := r.listMatchingTags(ctx, f)
		if err != nil {
			return nil, 0, err
		}
		total := int64(len(matched))
		if offset >= len(matched) {
			return []*model.Contact{}, total, nil
		}
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		return matched[offset:end], total, nil
	}

	q := r.Read(ctx).WithContext(ctx).Model(&ContactEntity{})
	if f.Phone != nil && *f.Phone != "" {
		q = q.Where("phone = ?", *f.Phone)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*ContactEntity
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toContactModels(entities), total, nil
}

func (r *ContactRepository) listMatchingTags(ctx context.Context, f model.ContactFilter) ([]*model.Contact, error) {
	const pageSize = 500

	var out []*model.Contact
	lastID := int64(0)
	for {
		q := r.Read(ctx).WithContext(ctx).Where("id > ?", lastID)
		if f.Phone != nil && *f.Phone != "" {
			q = q.Where("phone = ?", *f.Phone)
		}
		var entities []*ContactEntity
		if err := q.Order("id").Limit(pageSize).Find(&entities).Error; err != nil {
			return nil, err
		}
		if len(entities) == 0 {
			break
		}
		lastID = entities[len(entities)-1].ID

		out = append(out, filterByTags(toContactModels(entities), f.Tags)...)

		if len(entities) < pageSize {
			break
		}
	}
	return out, nil
}

// ListSegment resolves a campaign segment: an empty tag set matches all
// contacts, otherwise contacts whose tags intersect the given set
// (contains-any). Ordering is by id, stable for a single run.
//
// Tags are stored as a JSON document, so the overlap test runs in
// process rather than in SQL. Segments are walked page by page to keep
// memory bounded.
func (r *ContactRepository) ListSegment(ctx context.Context, tags []string) ([]*model.Contact, error) {
	const pageSize = 500

	var out []*model.Contact
	lastID := int64(0)
	for {
		var entities []*ContactEntity
		err := r.Read(ctx).WithContext(ctx).
			Where("id > ?", lastID).
			Order("id").
			Limit(pageSize).
			Find(&entities).Error
		if err != nil {
			return nil, err
		}
		if len(entities) == 0 {
			break
		}
		lastID = entities[len(entities)-1].ID

		page := toContactModels(entities)
		if len(tags) > 0 {
			page = filterByTags(page, tags)
		}
		out = append(out, page...)

		if len(entities) < pageSize {
			break
		}
	}
	return out, nil
}

func filterByTags(contacts []*model.Contact, tags []string) []*model.Contact {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	out := contacts[:0]
	for _, c := range contacts {
		for _, t := range c.Tags {
			if _, ok := want[t]; ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// InitProfile seeds the auxiliary journey state for a freshly created
// contact. It is the "initialize profile" side effect of first contact.
func (r *ContactRepository) InitProfile(ctx context.Context, contactID int64) error {
	entity := &JourneyEventEntity{
		ContactID: contactID,
		Kind:      string(model.JourneyProfileInitialized),
	}
	return r.Write(ctx).WithContext(ctx).Create(entity).Error
}

// AppendJourneyEvent appends one touchpoint to the contact's journey.
// The journey is append-only; existing entries are never rewritten.
func (r *ContactRepository) AppendJourneyEvent(ctx context.Context, contactID int64, kind model.JourneyEventKind, payload map[string]string) error {
	entity := &JourneyEventEntity{
		ContactID: contactID,
		Kind:      string(kind),
		Payload:   payload,
	}
	return r.Write(ctx).WithContext(ctx).Create(entity).Error
}

func (r *ContactRepository) ListJourney(ctx context.Context, contactID int64) ([]*model.JourneyEvent, error) {
	var entities []*JourneyEventEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.JourneyEvent, len(entities))
	for i, e := range entities {
		out[i] = toJourneyEventModel(e)
	}
	return out, nil
}
