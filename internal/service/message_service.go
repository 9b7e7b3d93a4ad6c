package service

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shinyyama/loops-backend/internal/metrics"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
)

const maxBodyLength = 4000

// Publisher pushes freshly appended messages to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type MessageService interface {
	// Append writes one message to the log. It is the only write path, for
	// user messages and system narration alike.
	Append(ctx context.Context, listingID uint64, senderUID, receiverUID, body, clientRef string) (*model.Message, error)
	// ListMessages returns the listing's messages between a and b, oldest first.
	ListMessages(ctx context.Context, listingID uint64, a, b string) ([]model.Message, error)
	// Send appends a user message into the viewer's thread on the listing.
	Send(ctx context.Context, viewerUID string, listingID uint64, declaredCounterparty, body, clientRef string) (*model.Message, error)
}

type messageService struct {
	messages  repository.MessageRepository
	listings  repository.ListingRepository
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewMessageService(messages repository.MessageRepository, listings repository.ListingRepository, publisher Publisher, m *metrics.Metrics) MessageService {
	return &messageService{messages: messages, listings: listings, publisher: publisher, metrics: m}
}

func (s *messageService) Append(ctx context.Context, listingID uint64, senderUID, receiverUID, body, clientRef string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationError("body is required")
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, validationError("body is too long")
	}
	if senderUID == "" || receiverUID == "" {
		return nil, validationError("sender and receiver are required")
	}
	if senderUID == receiverUID {
		return nil, validationError("cannot message yourself")
	}
	// a deleted listing hides its threads from retries too
	if _, err := loadVisibleListing(ctx, s.listings, listingID); err != nil {
		return nil, err
	}
	var ref *string
	if clientRef != "" {
		parsed, err := uuid.Parse(clientRef)
		if err != nil {
			return nil, validationError("clientRef must be a UUID")
		}
		normalized := parsed.String()
		ref = &normalized

		existing, err := s.messages.FindByClientRef(ctx, senderUID, normalized)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing, listingID, receiverUID)
		}
	}
	msg := &model.Message{
		ListingID:   listingID,
		SenderUID:   senderUID,
		ReceiverUID: receiverUID,
		Body:        body,
		ClientRef:   ref,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if ref != nil {
			// a concurrent retry with the same ref got there first
			if existing, findErr := s.messages.FindByClientRef(ctx, senderUID, *ref); findErr == nil && existing != nil {
				return s.replay(ctx, existing, listingID, receiverUID)
			}
		}
		return nil, err
	}
	s.metrics.IncMessages(msg.IsSystem())
	s.publish(ctx, *msg)
	return msg, nil
}

// replay answers a retried send with the row stored the first time. The row
// is published again; subscribers drop ids they already hold.
func (s *messageService) replay(ctx context.Context, existing *model.Message, listingID uint64, receiverUID string) (*model.Message, error) {
	if existing.ListingID != listingID || existing.ReceiverUID != receiverUID {
		return nil, conflict("clientRef was already used for another message")
	}
	s.publish(ctx, *existing)
	return existing, nil
}

func (s *messageService) publish(ctx context.Context, msg model.Message) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Printf("%s publish message %d failed: %v", reqctx.LogPrefix(ctx), msg.ID, dependencyError("live delivery failed", err))
	}
}

func (s *messageService) ListMessages(ctx context.Context, listingID uint64, a, b string) ([]model.Message, error) {
	if a == "" || b == "" {
		return nil, validationError("both participants are required")
	}
	return s.messages.ListBetween(ctx, listingID, a, b)
}

func (s *messageService) Send(ctx context.Context, viewerUID string, listingID uint64, declaredCounterparty, body, clientRef string) (*model.Message, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	if model.IsSystemBody(strings.TrimSpace(body)) {
		return nil, validationError("messages may not start with a reserved prefix")
	}
	l, err := loadVisibleListing(ctx, s.listings, listingID)
	if err != nil {
		return nil, err
	}
	counterparty, err := resolveCounterparty(l, viewerUID, declaredCounterparty)
	if err != nil {
		return nil, err
	}
	return s.Append(ctx, listingID, viewerUID, counterparty, body, clientRef)
}
