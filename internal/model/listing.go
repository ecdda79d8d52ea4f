package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusExpired   ListingStatus = "expired"
	ListingStatusCancelled ListingStatus = "cancelled"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusSold, ListingStatusExpired, ListingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s ListingStatus) Terminal() bool {
	return s == ListingStatusSold || s == ListingStatusExpired || s == ListingStatusCancelled
}

// CanTransition allows only active -> {sold, expired, cancelled}.
func (s ListingStatus) CanTransition(to ListingStatus) bool {
	return s == ListingStatusActive && to.Terminal()
}

type Listing struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	FarmerUID    string          `gorm:"column:farmer_uid;size:128;index;not null"`
	CropName     string          `gorm:"column:crop_name;size:120;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:decimal(14,3);not null"`
	Unit         string          `gorm:"column:unit;size:32;not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:decimal(14,2);not null"`
	Quality      string          `gorm:"column:quality;size:32;not null"`
	Location     string          `gorm:"column:location;size:255;not null"`
	Description  string          `gorm:"column:description;type:text"`
	ImageURLs    string          `gorm:"column:image_urls;type:text"`
	HarvestDate  *time.Time      `gorm:"column:harvest_date"`
	Organic      bool            `gorm:"column:organic;not null;default:false"`
	Status       ListingStatus   `gorm:"column:status;size:16;index;not null"`
	Version      uint64          `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"`
}

func (Listing) TableName() string {
	return "listings"
}

// Images decodes the stored image URL list.
func (l *Listing) Images() []string {
	if l.ImageURLs == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(l.ImageURLs), &out); err != nil {
		return nil
	}
	return out
}

func (l *Listing) SetImages(urls []string) {
	if len(urls) == 0 {
		l.ImageURLs = ""
		return
	}
	b, _ := json.Marshal(urls)
	l.ImageURLs = string(b)
}
