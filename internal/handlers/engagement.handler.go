package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/services"
	xhttp "github.com/waveline/engage-gateway/pkg/http"
)

type EngagementService interface {
	CreateContact(ctx context.Context, p model.ContactCreateRequest) (*model.Contact, error)
	GetContact(ctx context.Context, id int64) (*model.Contact, error)
	ListContacts(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error)
	ContactJourney(ctx context.Context, contactID int64) ([]*model.JourneyEvent, error)
	GetConversation(ctx context.Context, id int64) (*model.Conversation, error)
	ListConversations(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
	ListMessages(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

type EngagementHandler struct {
	svc EngagementService
}

func RegisterEngagementRoutes(e *router.Group, h *EngagementHandler) {
	e.POST("/contacts", h.CreateContact)
	e.GET("/contacts", h.ListContacts)
	e.GET("/contacts/{id}", h.GetContact)
	e.GET("/contacts/{id}/journey", h.GetContactJourney)
	e.GET("/conversations", h.ListConversations)
	e.GET("/conversations/{id}", h.GetConversation)
	e.GET("/messages", h.ListMessages)
}

func NewEngagementHandler(svc EngagementService) *EngagementHandler {
	return &EngagementHandler{svc: svc}
}

type createContactRequest struct {
	Phone   string   `json:"phone"`
	Name    string   `json:"name"`
	Company string   `json:"company"`
	Email   string   `json:"email"`
	Tags    []string `json:"tags"`
}

type contactListResponse struct {
	Items []*model.Contact `json:"items"`
	Total int64            `json:"total"`
}

type conversationListResponse struct {
	Items []*model.Conversation `json:"items"`
	Total int64                 `json:"total"`
}

type messageListResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

func (h *EngagementHandler) CreateContact(ctx *xhttp.RequestCtx) {
	var req createContactRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	c, err := h.svc.CreateContact(ctx, model.ContactCreateRequest{
		Phone:   req.Phone,
		Name:    req.Name,
		Company: req.Company,
		Email:   req.Email,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, c)
}

func (h *EngagementHandler) ListContacts(ctx *xhttp.RequestCtx) {
	var f model.ContactFilter
	if v := query(ctx, "phone"); v != "" {
		f.Phone = &v
	}
	if v := query(ctx, "tags"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")

	items, total, err := h.svc.ListContacts(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, contactListResponse{Items: items, Total: total})
}

func (h *EngagementHandler) GetContact(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid contact id")
		return
	}

	c, err := h.svc.GetContact(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "contact not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *EngagementHandler) GetContactJourney(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid contact id")
		return
	}

	events, err := h.svc.ContactJourney(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "contact not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"items": events})
}

func (h *EngagementHandler) ListConversations(ctx *xhttp.RequestCtx) {
	var f model.ConversationFilter
	if v := query(ctx, "contact_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.ContactID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, model.ConversationStatus(s))
			}
		}
	}
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.ListConversations(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, conversationListResponse{Items: items, Total: total})
}

func (h *EngagementHandler) GetConversation(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid conversation id")
		return
	}

	c, err := h.svc.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "conversation not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *EngagementHandler) ListMessages(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter
	if v := query(ctx, "conversation_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.ConversationID = &id
		}
	}
	if v := query(ctx, "sender_type"); v != "" {
		st := model.SenderType(v)
		f.SenderType = &st
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.ListMessages(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, messageListResponse{Items: items, Total: total})
}
