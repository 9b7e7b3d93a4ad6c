package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReputationRepository interface {
	Add(ctx context.Context, uid string, points int64) error
	Get(ctx context.Context, uid string) (*model.UserReputation, error)
	SetDB(db *gorm.DB)
}

type reputationRepository struct {
	db *gorm.DB
}

func NewReputationRepository(db *gorm.DB) ReputationRepository {
	return &reputationRepository{db: db}
}

func (r *reputationRepository) Add(ctx context.Context, uid string, points int64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if points == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"points": gorm.Expr("points + ?", points)}),
	}).Create(&model.UserReputation{UID: uid, Points: points}).Error
}

func (r *reputationRepository) Get(ctx context.Context, uid string) (*model.UserReputation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var ur model.UserReputation
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&ur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserReputation{UID: uid}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

func (r *reputationRepository) SetDB(db *gorm.DB) {
	r.db = db
}
