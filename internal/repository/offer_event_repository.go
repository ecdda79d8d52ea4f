package repository

import (
	"context"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"gorm.io/gorm"
)

type OfferEventRepository interface {
	Create(ctx context.Context, ev *model.OfferEvent) error
	ListByOffer(ctx context.Context, offerID uint64) ([]model.OfferEvent, error)
	WithTx(tx *gorm.DB) OfferEventRepository
	SetDB(db *gorm.DB)
}

type offerEventRepository struct {
	db *gorm.DB
}

func NewOfferEventRepository(db *gorm.DB) OfferEventRepository {
	return &offerEventRepository{db: db}
}

func (r *offerEventRepository) Create(ctx context.Context, ev *model.OfferEvent) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *offerEventRepository) ListByOffer(ctx context.Context, offerID uint64) ([]model.OfferEvent, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.OfferEvent
	if err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerEventRepository) WithTx(tx *gorm.DB) OfferEventRepository {
	return &offerEventRepository{db: tx}
}

func (r *offerEventRepository) SetDB(db *gorm.DB) {
	r.db = db
}
