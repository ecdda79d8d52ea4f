package model

import "time"

// OfferEvent records one status transition of an offer.
type OfferEvent struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement"`
	OfferID    uint64      `gorm:"column:offer_id;index;not null"`
	ListingID  uint64      `gorm:"column:listing_id;index;not null"`
	FromStatus OfferStatus `gorm:"column:from_status;size:16"`
	ToStatus   OfferStatus `gorm:"column:to_status;size:16;not null"`
	ActorUID   string      `gorm:"column:actor_uid;size:128;not null"`
	Note       string      `gorm:"column:note;size:255"`
	CreatedAt  time.Time   `gorm:"autoCreateTime"`
}

func (OfferEvent) TableName() string {
	return "offer_events"
}
