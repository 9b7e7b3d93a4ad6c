package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/loops-backend/internal/metrics"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	sellerSettlementPoints = 10
	buyerSettlementPoints  = 5
	reviewBonusPoints      = 5
)

type LedgerRole string

const (
	LedgerRoleBuyer  LedgerRole = "buyer"
	LedgerRoleSeller LedgerRole = "seller"
)

type SettleParams struct {
	ListingID         uint64
	BuyerUID          string
	SellerUID         string
	Amount            int64
	HandoffMethod     model.HandoffMethod
	VendorProofURL    *string
	BuyerProofURL     *string
	VendorConfirmedAt *time.Time
	Rating            int
	Review            *string
}

// TransactionRecorder writes the settlement record of a completed trade. It
// must run inside the database transaction of the completing status change.
type TransactionRecorder struct {
	metrics *metrics.Metrics
}

func NewTransactionRecorder(m *metrics.Metrics) *TransactionRecorder {
	return &TransactionRecorder{metrics: m}
}

// Settle is idempotent per listing: a listing that already has a
// transaction gets it back unchanged, and reputation and review side effects
// only happen on the first call.
func (r *TransactionRecorder) Settle(ctx context.Context, tx *repository.Repositories, p SettleParams) (*model.Transaction, error) {
	t := &model.Transaction{
		Ref:               uuid.NewString(),
		ListingID:         p.ListingID,
		BuyerUID:          p.BuyerUID,
		SellerUID:         p.SellerUID,
		Amount:            p.Amount,
		Status:            model.TransactionStatusCompleted,
		HandoffMethod:     p.HandoffMethod,
		VendorProofURL:    p.VendorProofURL,
		BuyerProofURL:     p.BuyerProofURL,
		VendorConfirmedAt: p.VendorConfirmedAt,
	}
	stored, created, err := tx.Transactions.FirstOrCreateByListing(ctx, t)
	if err != nil {
		return nil, err
	}
	if !created {
		return stored, nil
	}
	if err := tx.Reputation.Add(ctx, p.SellerUID, sellerSettlementPoints); err != nil {
		return nil, err
	}
	if err := tx.Reputation.Add(ctx, p.BuyerUID, buyerSettlementPoints); err != nil {
		return nil, err
	}
	if p.Rating > 0 {
		if err := tx.Reviews.Create(ctx, &model.Review{
			TransactionID: stored.ID,
			ReviewerUID:   p.BuyerUID,
			RevieweeUID:   p.SellerUID,
			Rating:        p.Rating,
			Comment:       p.Review,
		}); err != nil {
			return nil, err
		}
		if err := tx.Reputation.Add(ctx, p.BuyerUID, reviewBonusPoints); err != nil {
			return nil, err
		}
	}
	r.metrics.IncSettlements()
	return stored, nil
}

type TransactionService interface {
	GetByListing(ctx context.Context, listingID uint64, viewerUID string) (*model.Transaction, error)
	ListLedger(ctx context.Context, viewerUID string, role LedgerRole) ([]model.Transaction, error)
}

type transactionService struct {
	repo repository.TransactionRepository
}

func NewTransactionService(repo repository.TransactionRepository) TransactionService {
	return &transactionService{repo: repo}
}

func (s *transactionService) GetByListing(ctx context.Context, listingID uint64, viewerUID string) (*model.Transaction, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	t, err := s.repo.FindByListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("transaction not found")
		}
		return nil, err
	}
	if viewerUID != t.BuyerUID && viewerUID != t.SellerUID {
		return nil, forbidden("not a party to this transaction")
	}
	return t, nil
}

func (s *transactionService) ListLedger(ctx context.Context, viewerUID string, role LedgerRole) ([]model.Transaction, error) {
	if viewerUID == "" {
		return nil, ErrUnauthorized
	}
	switch role {
	case LedgerRoleBuyer, "":
		return s.repo.ListByBuyer(ctx, viewerUID)
	case LedgerRoleSeller:
		return s.repo.ListBySeller(ctx, viewerUID)
	}
	return nil, validationError("role must be buyer or seller")
}
