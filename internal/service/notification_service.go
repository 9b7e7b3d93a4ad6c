package service

import (
	"context"
	"time"

	"github.com/shinyyama/loops-backend/internal/metrics"
	"github.com/shinyyama/loops-backend/internal/model"
)

const (
	labelOfferAccepted = "The price is Locked In! 🔒"
	labelDealSealed    = "Deal Sealed! ✅"
)

// NotificationRelay narrates listing transitions inside the trade's thread.
type NotificationRelay interface {
	Announce(ctx context.Context, listingID uint64, sellerUID, buyerUID, label string) error
}

type notificationRelay struct {
	messages MessageService
	metrics  *metrics.Metrics
}

func NewNotificationRelay(messages MessageService, m *metrics.Metrics) NotificationRelay {
	return &notificationRelay{messages: messages, metrics: m}
}

// Announce posts one system message from seller to buyer. Its error is a
// DependencyError meant for logging; the transition it narrates stands.
func (r *notificationRelay) Announce(ctx context.Context, listingID uint64, sellerUID, buyerUID, label string) error {
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	if _, err := r.messages.Append(ctx, listingID, sellerUID, buyerUID, model.SystemPrefix+label, ""); err != nil {
		r.metrics.IncRelayFailures()
		return dependencyError("failed to post trade update", err)
	}
	return nil
}

func vendorConfirmedLabel(method model.HandoffMethod) string {
	return "Handoff confirmed by the seller (" + handoffText(method) + "). Waiting for the buyer to confirm receipt."
}

func handoffText(method model.HandoffMethod) string {
	switch method {
	case model.HandoffMeetUp:
		return "meet up"
	case model.HandoffDropOff:
		return "drop off"
	case model.HandoffServiceRendered:
		return "service rendered"
	}
	return string(method)
}

// withShortDeadline detaches from the request so a client hanging up does
// not cancel the announcement, and bounds it instead.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
}
