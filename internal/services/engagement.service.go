package services

import (
	"context"
	"errors"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
)

type ContactRepository interface {
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	GetByPhone(ctx context.Context, phone string) (*model.Contact, error)
	List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error)
	InitProfile(ctx context.Context, contactID int64) error
	ListJourney(ctx context.Context, contactID int64) ([]*model.JourneyEvent, error)
}

type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
}

type MessageRepository interface {
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

// EngagementService is the read/admin surface over contacts,
// conversations and transcripts. All writes on these entities flow
// through the intake pipeline and the campaign dispatcher; the API
// only creates contacts directly.
type EngagementService struct {
	contactRepo      ContactRepository
	conversationRepo ConversationRepository
	messageRepo      MessageRepository
	mobileNorm       MobileNormalizer
}

func NewEngagementService(contactRepo ContactRepository, conversationRepo ConversationRepository, messageRepo MessageRepository, mobileNorm MobileNormalizer) *EngagementService {
	return &EngagementService{
		contactRepo:      contactRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		mobileNorm:       mobileNorm,
	}
}

func (s *EngagementService) CreateContact(ctx context.Context, p model.ContactCreateRequest) (*model.Contact, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	phone := p.Phone
	if s.mobileNorm != nil {
		np, err := s.mobileNorm.Normalize(phone)
		if err != nil || np == "" {
			return nil, ErrInvalidPhone
		}
		phone = np
	}

	if existing, err := s.contactRepo.GetByPhone(ctx, phone); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c, err := s.contactRepo.Create(ctx, &model.Contact{
		Phone:   phone,
		Name:    p.Name,
		Company: p.Company,
		Email:   p.Email,
		Tags:    p.Tags,
	})
	if err != nil {
		return nil, err
	}
	if err := s.contactRepo.InitProfile(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *EngagementService) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	c, err := s.contactRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *EngagementService) ListContacts(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error) {
	return s.contactRepo.List(ctx, f)
}

func (s *EngagementService) ContactJourney(ctx context.Context, contactID int64) ([]*model.JourneyEvent, error) {
	if _, err := s.contactRepo.GetByID(ctx, contactID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.contactRepo.ListJourney(ctx, contactID)
}

func (s *EngagementService) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	c, err := s.conversationRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *EngagementService) ListConversations(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	return s.conversationRepo.List(ctx, f)
}

func (s *EngagementService) ListMessages(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	return s.messageRepo.List(ctx, f)
}
