package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
)

type ContactPreference string

const (
	ContactInApp ContactPreference = "in_app"
	ContactPhone ContactPreference = "phone"
	ContactEmail ContactPreference = "email"
)

func (p ContactPreference) Valid() bool {
	switch p {
	case ContactInApp, ContactPhone, ContactEmail:
		return true
	}
	return false
}

// Offer references its listing by id only; listing state is always re-read.
type Offer struct {
	ID                uint64            `gorm:"primaryKey;autoIncrement"`
	ListingID         uint64            `gorm:"column:listing_id;index;not null"`
	BuyerUID          string            `gorm:"column:buyer_uid;size:128;index;not null"`
	OfferPrice        decimal.Decimal   `gorm:"column:offer_price;type:decimal(14,2);not null"`
	Quantity          decimal.Decimal   `gorm:"column:quantity;type:decimal(14,3);not null"`
	Message           string            `gorm:"column:message;type:text"`
	ContactPreference ContactPreference `gorm:"column:contact_preference;size:16;not null"`
	ContactDetails    string            `gorm:"column:contact_details;size:255"`
	Status            OfferStatus       `gorm:"column:status;size:16;index;not null"`
	RespondedAt       *time.Time        `gorm:"column:responded_at"`
	CreatedAt         time.Time         `gorm:"autoCreateTime;index"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime"`
}

func (Offer) TableName() string {
	return "offers"
}
