package model

import (
	"strings"
	"time"
)

// SystemPrefix marks a body as platform narration rather than user content.
const SystemPrefix = "LOOPS: "

// legacySystemPrefix is still rendered as narration for rows written before
// the LOOPS prefix existed.
const legacySystemPrefix = "SYSTEM: "

type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID   uint64    `gorm:"column:listing_id;not null;index:idx_messages_listing_pair,priority:1" json:"listingId"`
	SenderUID   string    `gorm:"column:sender_uid;size:128;not null;index:idx_messages_listing_pair,priority:2;uniqueIndex:uk_messages_sender_ref,priority:1" json:"senderUid"`
	ReceiverUID string    `gorm:"column:receiver_uid;size:128;not null;index:idx_messages_listing_pair,priority:3;index" json:"receiverUid"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	ClientRef   *string   `gorm:"column:client_ref;size:36;uniqueIndex:uk_messages_sender_ref,priority:2" json:"clientRef,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

func IsSystemBody(body string) bool {
	return strings.HasPrefix(body, SystemPrefix) || strings.HasPrefix(body, legacySystemPrefix)
}

func (m *Message) IsSystem() bool {
	return IsSystemBody(m.Body)
}

// Narration returns the body without its system prefix.
func (m *Message) Narration() string {
	if strings.HasPrefix(m.Body, SystemPrefix) {
		return strings.TrimPrefix(m.Body, SystemPrefix)
	}
	return strings.TrimPrefix(m.Body, legacySystemPrefix)
}

// Involves reports whether the message was exchanged between a and b, in
// either direction.
func (m *Message) Involves(a, b string) bool {
	return (m.SenderUID == a && m.ReceiverUID == b) || (m.SenderUID == b && m.ReceiverUID == a)
}

// Counterparty returns the other participant from uid's point of view.
func (m *Message) Counterparty(uid string) string {
	if m.SenderUID == uid {
		return m.ReceiverUID
	}
	return m.SenderUID
}
