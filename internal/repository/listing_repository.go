package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStaleListing is returned when a listing changed since it was read.
var ErrStaleListing = errors.New("listing version conflict")

const (
	DefaultListingLimit = 100
	MaxListingLimit     = 500

	// StatusAll disables the status predicate in ListingFilter.
	StatusAll = "all"
)

type ListingFilter struct {
	Crop      string
	Location  string
	Quality   string
	Status    string
	FarmerUID string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Sort      string
	Limit     int
	Offset    int
}

var listingSortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price_per_unit",
	"quantity":   "quantity",
}

// orderClause turns "price" / "-price" into an ORDER BY clause. Unknown keys
// fall back to newest first.
func (f ListingFilter) orderClause() string {
	key := strings.TrimSpace(f.Sort)
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = strings.TrimPrefix(key, "-")
	}
	col, ok := listingSortColumns[key]
	if !ok {
		col, dir = "created_at", "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

func (f ListingFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListingLimit
	case f.Limit > MaxListingLimit:
		return MaxListingLimit
	}
	return f.Limit
}

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id uint64) (int64, error)
	List(ctx context.Context, f ListingFilter) ([]model.Listing, error)
	WithTx(tx *gorm.DB) ListingRepository
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if l.Status == "" {
		l.Status = model.ListingStatusActive
	}
	if l.Version == 0 {
		l.Version = 1
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]*model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

// Update writes every mutable column if the stored version still matches
// l.Version, then advances l.Version.
func (r *listingRepository) Update(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if l.Quantity.IsNegative() {
		return fmt.Errorf("listing %d: negative quantity %s", l.ID, l.Quantity)
	}
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]interface{}{
			"crop_name":      l.CropName,
			"quantity":       l.Quantity,
			"unit":           l.Unit,
			"price_per_unit": l.PricePerUnit,
			"quality":        l.Quality,
			"location":       l.Location,
			"description":    l.Description,
			"image_urls":     l.ImageURLs,
			"harvest_date":   l.HarvestDate,
			"organic":        l.Organic,
			"status":         l.Status,
			"version":        l.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleListing
	}
	l.Version++
	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Delete(&model.Listing{}, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *listingRepository) List(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Model(&model.Listing{})
	if crop := strings.TrimSpace(f.Crop); crop != "" {
		q = q.Where("LOWER(crop_name) LIKE ?", "%"+strings.ToLower(crop)+"%")
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if quality := strings.TrimSpace(f.Quality); quality != "" {
		q = q.Where("quality = ?", quality)
	}
	switch status := strings.TrimSpace(f.Status); status {
	case StatusAll:
	case "":
		q = q.Where("status = ?", model.ListingStatusActive)
	default:
		q = q.Where("status = ?", status)
	}
	if f.FarmerUID != "" {
		q = q.Where("farmer_uid = ?", f.FarmerUID)
	}
	if f.MinPrice != nil {
		q = q.Where("price_per_unit >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_per_unit <= ?", *f.MaxPrice)
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var list []model.Listing
	if err := q.Order(f.orderClause()).
		Limit(f.limit()).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) WithTx(tx *gorm.DB) ListingRepository {
	return &listingRepository{db: tx}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}
