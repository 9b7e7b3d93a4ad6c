package model

import "time"

type ListingType string

const (
	ListingTypeGood    ListingType = "good"
	ListingTypeService ListingType = "service"
	ListingTypeRequest ListingType = "request"
)

func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeGood, ListingTypeService, ListingTypeRequest:
		return true
	}
	return false
}

// RequiresVendorConfirmation reports whether the seller must confirm the
// handoff before the buyer can complete the trade. Services usually change
// hands inside the conversation itself, so the buyer may complete them
// straight from pending.
func (t ListingType) RequiresVendorConfirmation() bool {
	return t != ListingTypeService
}

type ListingStatus string

const (
	ListingStatusActive          ListingStatus = "active"
	ListingStatusPending         ListingStatus = "pending"
	ListingStatusVendorConfirmed ListingStatus = "vendor_confirmed"
	ListingStatusCompleted       ListingStatus = "completed"
	ListingStatusSold            ListingStatus = "sold"
	ListingStatusDeleted         ListingStatus = "deleted"
)

type HandoffMethod string

const (
	HandoffMeetUp          HandoffMethod = "meet_up"
	HandoffDropOff         HandoffMethod = "drop_off"
	HandoffServiceRendered HandoffMethod = "service_rendered"
)

// AllowedFor reports whether the method can close a listing of type t.
func (m HandoffMethod) AllowedFor(t ListingType) bool {
	switch m {
	case HandoffMeetUp, HandoffDropOff:
		return true
	case HandoffServiceRendered:
		return t == ListingTypeService
	}
	return false
}

type Listing struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	SellerUID     string         `gorm:"column:seller_uid;size:128;index;not null"`
	Title         string         `gorm:"size:120;not null"`
	Description   string         `gorm:"type:text"`
	Price         int64          `gorm:"not null"`
	Type          ListingType    `gorm:"column:type;size:16;not null"`
	Status        ListingStatus  `gorm:"column:status;size:32;not null;index"`
	BuyerUID      *string        `gorm:"column:buyer_uid;size:128;index"`
	HandoffMethod *HandoffMethod `gorm:"column:handoff_method;size:32"`
	// AgreedPrice is the amount negotiated with the accepted buyer, when it
	// differs from the asking price.
	AgreedPrice *int64    `gorm:"column:agreed_price"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) IsSeller(uid string) bool {
	return uid != "" && l.SellerUID == uid
}

// SettlementAmount is what the buyer pays: the agreed price if one was
// negotiated, otherwise the asking price.
func (l *Listing) SettlementAmount() int64 {
	if l.AgreedPrice != nil {
		return *l.AgreedPrice
	}
	return l.Price
}

func (l *Listing) IsBuyer(uid string) bool {
	return uid != "" && l.BuyerUID != nil && *l.BuyerUID == uid
}
