package repository

import (
	"context"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *model.Review) error
	ListByReviewee(ctx context.Context, uid string) ([]model.Review, error)
	SetDB(db *gorm.DB)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepository) ListByReviewee(ctx context.Context, uid string) ([]model.Review, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Review
	if err := r.db.WithContext(ctx).
		Where("reviewee_uid = ?", uid).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepository) SetDB(db *gorm.DB) {
	r.db = db
}
