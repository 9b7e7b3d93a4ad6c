package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/service"
)

type ThreadHandler struct {
	threads  service.ThreadService
	messages service.MessageService
}

func NewThreadHandler(threads service.ThreadService, messages service.MessageService) *ThreadHandler {
	return &ThreadHandler{threads: threads, messages: messages}
}

type MessageRequest struct {
	Body      string `json:"body"`
	With      string `json:"with"`
	ClientRef string `json:"clientRef"`
}

type MessageResponse struct {
	ID          uint64  `json:"id"`
	ListingID   uint64  `json:"listingId"`
	SenderUID   string  `json:"senderUid"`
	ReceiverUID string  `json:"receiverUid"`
	Body        string  `json:"body"`
	System      bool    `json:"system"`
	ClientRef   *string `json:"clientRef,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

func toMessageResponse(m *model.Message) MessageResponse {
	body := m.Body
	if m.IsSystem() {
		body = m.Narration()
	}
	return MessageResponse{
		ID:          m.ID,
		ListingID:   m.ListingID,
		SenderUID:   m.SenderUID,
		ReceiverUID: m.ReceiverUID,
		Body:        body,
		System:      m.IsSystem(),
		ClientRef:   m.ClientRef,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339Nano),
	}
}

type ThreadResponse struct {
	Listing         ListingResponse   `json:"listing"`
	CounterpartyUID string            `json:"counterpartyUid"`
	Messages        []MessageResponse `json:"messages"`
}

type InboxEntryResponse struct {
	ListingID       uint64           `json:"listingId"`
	ListingTitle    string           `json:"listingTitle"`
	ListingStatus   string           `json:"listingStatus"`
	CounterpartyUID string           `json:"counterpartyUid"`
	Counterparty    *profile.Profile `json:"counterparty,omitempty"`
	LastMessage     MessageResponse  `json:"lastMessage"`
}

func (h *ThreadHandler) GetThread(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	withListing(c, id)
	th, err := h.threads.ResolveThread(c.Request().Context(), uid, id, c.QueryParam("with"))
	if err != nil {
		return respondError(c, err)
	}
	msgs := make([]MessageResponse, 0, len(th.Messages))
	for i := range th.Messages {
		msgs = append(msgs, toMessageResponse(&th.Messages[i]))
	}
	return c.JSON(http.StatusOK, ThreadResponse{
		Listing:         toListingResponse(th.Listing),
		CounterpartyUID: th.CounterpartyUID,
		Messages:        msgs,
	})
}

func (h *ThreadHandler) PostMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	withListing(c, id)
	m, err := h.messages.Send(c.Request().Context(), uid, id, req.With, req.Body, req.ClientRef)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(m))
}

func (h *ThreadHandler) Inbox(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	entries, err := h.threads.ListInbox(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]InboxEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		resp = append(resp, InboxEntryResponse{
			ListingID:       e.Key.ListingID,
			ListingTitle:    e.ListingTitle,
			ListingStatus:   string(e.ListingStatus),
			CounterpartyUID: e.Key.CounterpartyUID,
			Counterparty:    e.Counterparty,
			LastMessage:     toMessageResponse(&e.LastMessage),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
