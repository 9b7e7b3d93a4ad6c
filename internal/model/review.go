package model

import "time"

type Review struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	TransactionID uint64    `gorm:"column:transaction_id;not null;uniqueIndex:uk_reviews_transaction"`
	ReviewerUID   string    `gorm:"column:reviewer_uid;size:128;not null"`
	RevieweeUID   string    `gorm:"column:reviewee_uid;size:128;not null;index"`
	Rating        int       `gorm:"column:rating;not null"`
	Comment       *string   `gorm:"column:comment;type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}
