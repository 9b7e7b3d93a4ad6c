package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/loops-backend/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByClientRef(ctx context.Context, senderUID, clientRef string) (*model.Message, error)
	ListBetween(ctx context.Context, listingID uint64, a, b string) ([]model.Message, error)
	LatestPerThread(ctx context.Context, uid string, limit int) ([]model.Message, error)
	SetDB(db *gorm.DB)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByClientRef returns nil, nil when the sender never used the ref.
func (r *messageRepository) FindByClientRef(ctx context.Context, senderUID, clientRef string) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).
		Where("sender_uid = ? AND client_ref = ?", senderUID, clientRef).
		First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListBetween returns every message of the listing exchanged between a and b,
// oldest first.
func (r *messageRepository) ListBetween(ctx context.Context, listingID uint64, a, b string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Where("(sender_uid = ? AND receiver_uid = ?) OR (sender_uid = ? AND receiver_uid = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// LatestPerThread returns the newest message of each of uid's threads,
// newest first. Rows are grouped per sender and receiver, so a thread may
// show up twice, once per direction, and callers keep the first. The newest
// limit threads are always among the 2*limit rows returned. A non-positive
// limit means no limit.
func (r *messageRepository) LatestPerThread(ctx context.Context, uid string, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var heads []uint64
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sender_uid = ? OR receiver_uid = ?", uid, uid).
		Group("listing_id, sender_uid, receiver_uid").
		Order("MAX(id) DESC")
	if limit > 0 {
		q = q.Limit(2 * limit)
	}
	if err := q.Pluck("MAX(id)", &heads).Error; err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		return nil, nil
	}

	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("id IN ?", heads).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
