package model

import "time"

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is the settlement record of a completed trade. It attests that
// the handoff happened; no money moves through it.
type Transaction struct {
	ID                uint64            `gorm:"primaryKey;autoIncrement"`
	Ref               string            `gorm:"column:ref;size:36;not null;uniqueIndex:uk_transactions_ref"`
	ListingID         uint64            `gorm:"column:listing_id;not null;uniqueIndex:uk_transactions_listing"`
	BuyerUID          string            `gorm:"column:buyer_uid;size:128;index;not null"`
	SellerUID         string            `gorm:"column:seller_uid;size:128;index;not null"`
	Amount            int64             `gorm:"column:amount;not null"`
	Status            TransactionStatus `gorm:"column:status;size:32;not null"`
	HandoffMethod     HandoffMethod     `gorm:"column:handoff_method;size:32;not null"`
	VendorProofURL    *string           `gorm:"column:vendor_proof_url;size:512"`
	BuyerProofURL     *string           `gorm:"column:buyer_proof_url;size:512"`
	VendorConfirmedAt *time.Time        `gorm:"column:vendor_confirmed_at"`
	CreatedAt         time.Time         `gorm:"autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
