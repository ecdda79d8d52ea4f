package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"gorm.io/gorm"
)

// ErrOfferNotPending is returned when a transition from pending finds the
// offer already answered.
var ErrOfferNotPending = errors.New("offer is not pending")

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id uint64) (*model.Offer, error)
	ListByListing(ctx context.Context, listingID uint64) ([]model.Offer, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error)
	TransitionFromPending(ctx context.Context, id uint64, to model.OfferStatus, at time.Time) error
	WithTx(tx *gorm.DB) OfferRepository
	SetDB(db *gorm.DB)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if o.Status == "" {
		o.Status = model.OfferStatusPending
	}
	if o.ContactPreference == "" {
		o.ContactPreference = model.ContactInApp
	}
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *offerRepository) FindByID(ctx context.Context, id uint64) (*model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var o model.Offer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offerRepository) ListByListing(ctx context.Context, listingID uint64) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ?", buyerUID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) TransitionFromPending(ctx context.Context, id uint64, to model.OfferStatus, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ? AND status = ?", id, model.OfferStatusPending).
		Updates(map[string]interface{}{
			"status":       to,
			"responded_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOfferNotPending
	}
	return nil
}

func (r *offerRepository) WithTx(tx *gorm.DB) OfferRepository {
	return &offerRepository{db: tx}
}

func (r *offerRepository) SetDB(db *gorm.DB) {
	r.db = db
}
