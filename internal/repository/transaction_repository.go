package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	FirstOrCreateByListing(ctx context.Context, t *model.Transaction) (*model.Transaction, bool, error)
	FindByListing(ctx context.Context, listingID uint64) (*model.Transaction, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.Transaction, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Transaction, error)
	SetDB(db *gorm.DB)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// FirstOrCreateByListing inserts t unless the listing already has a
// transaction, in which case the stored one is returned. The bool reports
// whether t was inserted.
func (r *transactionRepository) FirstOrCreateByListing(ctx context.Context, t *model.Transaction) (*model.Transaction, bool, error) {
	if r.db == nil {
		return nil, false, ErrDBNotReady
	}
	existing, err := r.FindByListing(ctx, t.ListingID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		// lost a race against another settle on the unique listing index
		if existing, findErr := r.FindByListing(ctx, t.ListingID); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

func (r *transactionRepository) FindByListing(ctx context.Context, listingID uint64) (*model.Transaction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var t model.Transaction
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Transaction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ?", buyerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transactionRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Transaction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ?", sellerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transactionRepository) SetDB(db *gorm.DB) {
	r.db = db
}
