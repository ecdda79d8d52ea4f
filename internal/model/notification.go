package model

import "time"

const (
	NotificationOfferReceived  = "offer_received"
	NotificationOfferAccepted  = "offer_accepted"
	NotificationOfferRejected  = "offer_rejected"
	NotificationOfferWithdrawn = "offer_withdrawn"
)

// NotificationTypes lists every type the service emits.
var NotificationTypes = []string{
	NotificationOfferReceived,
	NotificationOfferAccepted,
	NotificationOfferRejected,
	NotificationOfferWithdrawn,
}

func ValidNotificationType(t string) bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Notification struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	UserUID   string     `gorm:"column:user_uid;size:128;index;not null"`
	Type      string     `gorm:"column:type;size:64;not null"`
	Title     string     `gorm:"column:title;size:255"`
	Body      string     `gorm:"column:body;type:text"`
	ListingID *uint64    `gorm:"column:listing_id;index"`
	OfferID   *uint64    `gorm:"column:offer_id;index"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
