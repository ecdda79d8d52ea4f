package repository

import (
	"context"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"gorm.io/gorm"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 50
)

// NotificationFilter narrows a user's inbox. Zero values match everything;
// BeforeID pages backwards from an earlier result.
type NotificationFilter struct {
	UnreadOnly bool
	Types      []string
	ListingID  *uint64
	OfferID    *uint64
	BeforeID   uint64
	Limit      int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userUID string, f NotificationFilter) ([]model.Notification, error)
	// MarkRead marks the given notifications read, or every unread one when
	// ids is empty. Rows owned by other users are never touched.
	MarkRead(ctx context.Context, userUID string, ids []uint64) (int64, error)
	CountUnreadByType(ctx context.Context, userUID string) (map[string]int64, error)
	SetDB(db *gorm.DB)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userUID string, f NotificationFilter) ([]model.Notification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_uid = ?", userUID)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if f.ListingID != nil {
		q = q.Where("listing_id = ?", *f.ListingID)
	}
	if f.OfferID != nil {
		q = q.Where("offer_id = ?", *f.OfferID)
	}
	if f.BeforeID > 0 {
		q = q.Where("id < ?", f.BeforeID)
	}
	var list []model.Notification
	if err := q.Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userUID string, ids []uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_uid = ? AND read_at IS NULL", userUID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("read_at", r.db.NowFunc())
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) CountUnreadByType(ctx context.Context, userUID string) (map[string]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rows []struct {
		Type  string
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Select("type, COUNT(*) AS total").
		Where("user_uid = ? AND read_at IS NULL", userUID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Total
	}
	return counts, nil
}

func (r *notificationRepository) SetDB(db *gorm.DB) {
	r.db = db
}
