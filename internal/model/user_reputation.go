package model

import "time"

type UserReputation struct {
	UID       string    `gorm:"column:uid;primaryKey;size:128"`
	Points    int64     `gorm:"column:points;not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserReputation) TableName() string {
	return "user_reputations"
}

// All returns every table owned by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Listing{},
		&Message{},
		&Transaction{},
		&ListingTransition{},
		&Review{},
		&UserReputation{},
	}
}
