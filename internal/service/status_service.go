package service

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	"github.com/shinyyama/loops-backend/internal/metrics"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
	"gorm.io/gorm"
)

type TransitionKind string

const (
	TransitionAcceptOffer    TransitionKind = "accept_offer"
	TransitionMarkSold       TransitionKind = "mark_sold"
	TransitionVendorConfirm  TransitionKind = "vendor_confirm"
	TransitionConfirmReceipt TransitionKind = "confirm_receipt"
	TransitionDelete         TransitionKind = "delete"
)

func (k TransitionKind) Valid() bool {
	switch k {
	case TransitionAcceptOffer, TransitionMarkSold, TransitionVendorConfirm, TransitionConfirmReceipt, TransitionDelete:
		return true
	}
	return false
}

type TransitionRequest struct {
	ListingID uint64
	ActorUID  string
	Kind      TransitionKind

	// BuyerUID is the counterparty whose offer is accepted (accept_offer).
	BuyerUID string
	// Amount is the offer's agreed price (accept_offer); nil keeps the asking
	// price.
	Amount *int64
	// HandoffMethod is how the seller handed over the good (vendor_confirm).
	HandoffMethod model.HandoffMethod
	// ProofURL optionally points at a photo of the handoff.
	ProofURL *string
	// Rating (1-5, 0 for none) and Review are left by the buyer on confirm_receipt.
	Rating int
	Review *string
}

type TransitionResult struct {
	Listing     *model.Listing
	Transaction *model.Transaction
	// Applied is false when the request repeated a transition that had
	// already been applied.
	Applied bool
}

type StatusService interface {
	Fire(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	History(ctx context.Context, listingID uint64, viewerUID string) ([]model.ListingTransition, error)
}

type statusService struct {
	repos    *repository.Repositories
	tx       repository.Transactor
	recorder *TransactionRecorder
	relay    NotificationRelay
	metrics  *metrics.Metrics
}

func NewStatusService(repos *repository.Repositories, tx repository.Transactor, recorder *TransactionRecorder, relay NotificationRelay, m *metrics.Metrics) StatusService {
	return &statusService{repos: repos, tx: tx, recorder: recorder, relay: relay, metrics: m}
}

type announcement struct {
	listingID uint64
	sellerUID string
	buyerUID  string
	label     string
}

func (s *statusService) Fire(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	res, err := s.fire(ctx, req)
	s.metrics.ObserveTransition(string(req.Kind), transitionResultLabel(res, err))
	return res, err
}

func (s *statusService) fire(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.ActorUID == "" {
		return nil, ErrUnauthorized
	}
	if err := validateTransitionRequest(req); err != nil {
		return nil, err
	}

	var (
		res  *TransitionResult
		note *announcement
	)
	err := s.tx.WithinTransaction(ctx, func(tx *repository.Repositories) error {
		l, err := tx.Listings.FindByIDForUpdate(ctx, req.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("listing not found")
			}
			return err
		}
		res, err = s.apply(ctx, tx, l, req)
		if err != nil {
			return err
		}
		if res.Applied {
			note = announcementFor(req, res.Listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if note != nil && s.relay != nil {
		if err := s.relay.Announce(ctx, note.listingID, note.sellerUID, note.buyerUID, note.label); err != nil {
			log.Printf("%s %s announcement not posted: %v", reqctx.LogPrefix(ctx), req.Kind, err)
		}
	}
	return res, nil
}

// apply runs the guards and the compare-and-set for one request against the
// listing as loaded inside the database transaction. The listing is read with
// a row lock, so on MySQL a competing writer waits for this transaction. A
// lost compare-and-set still reloads the row with a locking read, which sees
// the latest committed status rather than the transaction's snapshot, and
// evaluates the guards once more: a concurrent duplicate becomes an
// idempotent success and anything else a conflict.
func (s *statusService) apply(ctx context.Context, tx *repository.Repositories, l *model.Listing, req TransitionRequest) (*TransitionResult, error) {
	for attempt := 0; ; attempt++ {
		if l.Status == model.ListingStatusDeleted {
			if req.Kind == TransitionDelete && l.IsSeller(req.ActorUID) {
				return &TransitionResult{Listing: l}, nil
			}
			return nil, notFound("listing not found")
		}
		if err := authorize(l, req.ActorUID, req.Kind); err != nil {
			return nil, err
		}
		if err := validateAgainstListing(l, req); err != nil {
			return nil, err
		}
		if alreadyApplied(l, req) {
			return s.current(ctx, tx, l)
		}
		from, to, ok := edgeFor(l, req.Kind)
		if !ok {
			return nil, conflict(conflictReason(l, req))
		}

		fields := transitionFields(l, req)
		changed, err := tx.Listings.CompareAndSetStatus(ctx, l.ID, from, to, fields)
		if err != nil {
			return nil, err
		}
		if !changed {
			if attempt > 0 {
				return nil, conflict("listing changed while updating, reload and retry")
			}
			if l, err = tx.Listings.FindByIDForUpdate(ctx, l.ID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, notFound("listing not found")
				}
				return nil, err
			}
			continue
		}

		if err := tx.Transitions.Create(ctx, &model.ListingTransition{
			ListingID:  l.ID,
			FromStatus: from,
			ToStatus:   to,
			ActorUID:   req.ActorUID,
			ProofURL:   req.ProofURL,
		}); err != nil {
			return nil, err
		}
		l.Status = to
		if v, ok := fields["buyer_uid"].(string); ok {
			l.BuyerUID = &v
		}
		if v, ok := fields["agreed_price"].(int64); ok {
			l.AgreedPrice = &v
		}
		if v, ok := fields["handoff_method"].(model.HandoffMethod); ok {
			l.HandoffMethod = &v
		}

		res := &TransitionResult{Listing: l, Applied: true}
		if to == model.ListingStatusCompleted {
			t, err := s.settle(ctx, tx, l, req)
			if err != nil {
				return nil, err
			}
			res.Transaction = t
		}
		return res, nil
	}
}

// current answers a repeated transition with the state it already produced.
func (s *statusService) current(ctx context.Context, tx *repository.Repositories, l *model.Listing) (*TransitionResult, error) {
	res := &TransitionResult{Listing: l}
	if l.Status != model.ListingStatusCompleted {
		return res, nil
	}
	t, err := tx.Transactions.FindByListing(ctx, l.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		res.Transaction = t
	}
	return res, nil
}

func (s *statusService) settle(ctx context.Context, tx *repository.Repositories, l *model.Listing, req TransitionRequest) (*model.Transaction, error) {
	p := SettleParams{
		ListingID:     l.ID,
		BuyerUID:      *l.BuyerUID,
		SellerUID:     l.SellerUID,
		Amount:        l.SettlementAmount(),
		HandoffMethod: *l.HandoffMethod,
		BuyerProofURL: req.ProofURL,
		Rating:        req.Rating,
		Review:        req.Review,
	}
	history, err := tx.Transitions.ListByListing(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ToStatus == model.ListingStatusVendorConfirmed {
			confirmedAt := history[i].CreatedAt
			p.VendorConfirmedAt = &confirmedAt
			p.VendorProofURL = history[i].ProofURL
			break
		}
	}
	return s.recorder.Settle(ctx, tx, p)
}

func (s *statusService) History(ctx context.Context, listingID uint64, viewerUID string) ([]model.ListingTransition, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	l, err := loadVisibleListing(ctx, s.repos.Listings, listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsSeller(viewerUID) && !l.IsBuyer(viewerUID) {
		return nil, forbidden("not a party to this listing")
	}
	return s.repos.Transitions.ListByListing(ctx, listingID)
}

// authorize is the single role check for every transition. Roles are
// relative to the listing: the same user is seller on one listing and buyer
// on another.
func authorize(l *model.Listing, callerUID string, kind TransitionKind) error {
	if kind == TransitionConfirmReceipt {
		if l.IsBuyer(callerUID) {
			return nil
		}
		if l.IsSeller(callerUID) {
			return forbidden("only the buyer can confirm receipt")
		}
		return forbidden("only the accepted buyer can confirm receipt")
	}
	if l.IsSeller(callerUID) {
		return nil
	}
	switch kind {
	case TransitionAcceptOffer:
		return forbidden("only the seller can accept an offer")
	case TransitionMarkSold:
		return forbidden("only the seller can mark the listing sold")
	case TransitionVendorConfirm:
		return forbidden("only the seller can confirm the handoff")
	default:
		return forbidden("only the seller can delete the listing")
	}
}

// edgeFor returns the status change kind would make from the listing's
// current status, and false when kind cannot fire from there. Completion
// starts from vendor_confirmed unless the listing type lets the buyer
// complete straight from pending.
func edgeFor(l *model.Listing, kind TransitionKind) (from, to model.ListingStatus, ok bool) {
	switch kind {
	case TransitionAcceptOffer:
		from, to = model.ListingStatusActive, model.ListingStatusPending
	case TransitionMarkSold:
		from, to = model.ListingStatusActive, model.ListingStatusSold
	case TransitionVendorConfirm:
		from, to = model.ListingStatusPending, model.ListingStatusVendorConfirmed
	case TransitionConfirmReceipt:
		from, to = model.ListingStatusVendorConfirmed, model.ListingStatusCompleted
		if !l.Type.RequiresVendorConfirmation() && l.Status == model.ListingStatusPending {
			from = model.ListingStatusPending
		}
	case TransitionDelete:
		switch l.Status {
		case model.ListingStatusActive, model.ListingStatusPending, model.ListingStatusVendorConfirmed:
			return l.Status, model.ListingStatusDeleted, true
		}
		return "", "", false
	default:
		return "", "", false
	}
	return from, to, l.Status == from
}

func transitionFields(l *model.Listing, req TransitionRequest) map[string]interface{} {
	switch req.Kind {
	case TransitionAcceptOffer:
		fields := map[string]interface{}{"buyer_uid": req.BuyerUID}
		if req.Amount != nil {
			fields["agreed_price"] = *req.Amount
		}
		return fields
	case TransitionVendorConfirm:
		return map[string]interface{}{"handoff_method": req.HandoffMethod}
	case TransitionConfirmReceipt:
		if l.Status == model.ListingStatusPending {
			return map[string]interface{}{"handoff_method": model.HandoffServiceRendered}
		}
	}
	return nil
}

func alreadyApplied(l *model.Listing, req TransitionRequest) bool {
	switch req.Kind {
	case TransitionAcceptOffer:
		return l.Status == model.ListingStatusPending && l.IsBuyer(req.BuyerUID) && sameAmount(l, req.Amount)
	case TransitionMarkSold:
		return l.Status == model.ListingStatusSold
	case TransitionVendorConfirm:
		return l.Status == model.ListingStatusVendorConfirmed &&
			l.HandoffMethod != nil && *l.HandoffMethod == req.HandoffMethod
	case TransitionConfirmReceipt:
		return l.Status == model.ListingStatusCompleted
	}
	return false
}

// sameAmount reports whether a repeated accept names the amount already
// agreed. A repeat without an amount matches whatever was agreed.
func sameAmount(l *model.Listing, amount *int64) bool {
	if amount == nil {
		return true
	}
	return l.AgreedPrice != nil && *l.AgreedPrice == *amount
}

func conflictReason(l *model.Listing, req TransitionRequest) string {
	switch l.Status {
	case model.ListingStatusCompleted:
		return "trade is already completed"
	case model.ListingStatusSold:
		return "listing was already marked sold"
	}
	switch req.Kind {
	case TransitionAcceptOffer:
		if l.IsBuyer(req.BuyerUID) {
			if l.Status == model.ListingStatusPending && !sameAmount(l, req.Amount) {
				return "offer was already accepted at a different amount"
			}
			return "offer was already accepted"
		}
		return "already accepted by someone else"
	case TransitionMarkSold:
		return "listing has an accepted offer"
	case TransitionVendorConfirm:
		if l.Status == model.ListingStatusVendorConfirmed {
			return "handoff was already confirmed as " + handoffText(*l.HandoffMethod)
		}
		return "no offer has been accepted yet"
	case TransitionConfirmReceipt:
		return "seller has not confirmed the handoff yet"
	}
	return "listing cannot change from " + string(l.Status)
}

func validateTransitionRequest(req TransitionRequest) error {
	if !req.Kind.Valid() {
		return validationError("unknown transition kind")
	}
	switch req.Kind {
	case TransitionAcceptOffer:
		if strings.TrimSpace(req.BuyerUID) == "" {
			return validationError("buyerUid is required")
		}
		if req.Amount != nil && *req.Amount <= 0 {
			return validationError("amount must be positive")
		}
	case TransitionVendorConfirm:
		if req.HandoffMethod == "" {
			return validationError("handoffMethod is required")
		}
	}
	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		return validationError("rating must be between 1 and 5")
	}
	if req.Kind != TransitionAcceptOffer && req.Amount != nil {
		return validationError("only accepting an offer can set an amount")
	}
	if req.Kind != TransitionConfirmReceipt && (req.Rating != 0 || req.Review != nil) {
		return validationError("only the buyer's receipt confirmation can carry a review")
	}
	if req.ProofURL != nil {
		if err := validateProofURL(*req.ProofURL); err != nil {
			return err
		}
	}
	return nil
}

func validateProofURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("proofUrl must be an http(s) URL")
	}
	return nil
}

func validateAgainstListing(l *model.Listing, req TransitionRequest) error {
	switch req.Kind {
	case TransitionAcceptOffer:
		if req.BuyerUID == l.SellerUID {
			return validationError("cannot accept your own offer")
		}
	case TransitionVendorConfirm:
		if !req.HandoffMethod.AllowedFor(l.Type) {
			return validationError("handoff method " + string(req.HandoffMethod) + " is not allowed for " + string(l.Type) + " listings")
		}
	}
	return nil
}

func announcementFor(req TransitionRequest, l *model.Listing) *announcement {
	if l.BuyerUID == nil {
		return nil
	}
	var label string
	switch req.Kind {
	case TransitionAcceptOffer:
		label = labelOfferAccepted
	case TransitionVendorConfirm:
		label = vendorConfirmedLabel(req.HandoffMethod)
	case TransitionConfirmReceipt:
		label = labelDealSealed
	default:
		return nil
	}
	return &announcement{listingID: l.ID, sellerUID: l.SellerUID, buyerUID: *l.BuyerUID, label: label}
}

func transitionResultLabel(res *TransitionResult, err error) string {
	switch {
	case err == nil && res != nil && res.Applied:
		return "applied"
	case err == nil:
		return "noop"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}
