package repository

import (
	"context"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
)

type TransitionRepository interface {
	Create(ctx context.Context, t *model.ListingTransition) error
	ListByListing(ctx context.Context, listingID uint64) ([]model.ListingTransition, error)
	SetDB(db *gorm.DB)
}

type transitionRepository struct {
	db *gorm.DB
}

func NewTransitionRepository(db *gorm.DB) TransitionRepository {
	return &transitionRepository{db: db}
}

func (r *transitionRepository) Create(ctx context.Context, t *model.ListingTransition) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transitionRepository) ListByListing(ctx context.Context, listingID uint64) ([]model.ListingTransition, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.ListingTransition
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transitionRepository) SetDB(db *gorm.DB) {
	r.db = db
}
