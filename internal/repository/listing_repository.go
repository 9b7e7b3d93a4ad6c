package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*model.Listing, error)
	FindVisibleByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error)
	CompareAndSetStatus(ctx context.Context, id uint64, from, to model.ListingStatus, fields map[string]interface{}) (bool, error)
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

var ErrDBNotReady = errors.New("database not initialized")

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(l).Error
}

// FindByID returns the listing whatever its status, deleted tombstones
// included; callers decide what a deleted listing means to them.
func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByIDForUpdate reads the latest committed row and locks it until the
// surrounding transaction ends. Only meaningful inside a transaction.
func (r *listingRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindVisibleByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND status <> ?", ids, model.ListingStatusDeleted).
		Find(&list).Error; err != nil {
		return nil, err
	}
	for _, l := range list {
		out[l.ID] = l
	}
	return out, nil
}

// CompareAndSetStatus moves the listing from one status to another only if it
// is still in the expected status. It reports whether the row was changed.
func (r *listingRepository) CompareAndSetStatus(ctx context.Context, id uint64, from, to model.ListingStatus, fields map[string]interface{}) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}
