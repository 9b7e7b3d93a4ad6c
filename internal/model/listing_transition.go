package model

import "time"

// ListingTransition is one applied status change, written in the same
// database transaction as the change itself.
type ListingTransition struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement"`
	ListingID  uint64        `gorm:"column:listing_id;not null;index"`
	FromStatus ListingStatus `gorm:"column:from_status;size:32;not null"`
	ToStatus   ListingStatus `gorm:"column:to_status;size:32;not null"`
	ActorUID   string        `gorm:"column:actor_uid;size:128;not null"`
	ProofURL   *string       `gorm:"column:proof_url;size:512"`
	CreatedAt  time.Time     `gorm:"autoCreateTime"`
}

func (ListingTransition) TableName() string {
	return "listing_transitions"
}
