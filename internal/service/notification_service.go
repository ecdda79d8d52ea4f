package service

import (
	"context"
	"fmt"
	"log"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/reqctx"
	"github.com/shinyyama/agri-marketplace/internal/repository"
)

// NotificationQuery is the caller-facing form of an inbox query.
type NotificationQuery struct {
	UnreadOnly bool
	Types      []string
	ListingID  *uint64
	OfferID    *uint64
	BeforeID   uint64
	Limit      int
}

// NotificationPage carries one page of the inbox and the unread totals
// across the whole inbox, not just the page.
type NotificationPage struct {
	Items        []model.Notification
	UnreadCount  int64
	UnreadByType map[string]int64
	// NextBefore is the cursor for the next page; zero on the last page.
	NextBefore uint64
}

type NotificationService interface {
	Notify(ctx context.Context, userUID, typ, title, body string, listingID, offerID *uint64)
	List(ctx context.Context, userUID string, q NotificationQuery) (*NotificationPage, error)
	MarkRead(ctx context.Context, userUID string, ids []uint64) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort: failures are logged, never returned.
func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, listingID, offerID *uint64) {
	if userUID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserUID:   userUID,
		Type:      typ,
		Title:     title,
		Body:      body,
		ListingID: listingID,
		OfferID:   offerID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("[notify] rid=%s stage=create_fail user=%s type=%s err=%v", reqctx.RID(ctx), userUID, typ, err)
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, q NotificationQuery) (*NotificationPage, error) {
	if userUID == "" {
		return nil, forbidden("authentication required")
	}
	for _, t := range q.Types {
		if !model.ValidNotificationType(t) {
			return nil, validation("unknown notification type %q", t)
		}
	}
	limit := q.Limit
	switch {
	case limit < 0:
		return nil, validation("limit must not be negative")
	case limit == 0:
		limit = repository.DefaultNotificationLimit
	case limit > repository.MaxNotificationLimit:
		limit = repository.MaxNotificationLimit
	}
	list, err := s.repo.ListByUser(ctx, userUID, repository.NotificationFilter{
		UnreadOnly: q.UnreadOnly,
		Types:      q.Types,
		ListingID:  q.ListingID,
		OfferID:    q.OfferID,
		BeforeID:   q.BeforeID,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	byType, err := s.repo.CountUnreadByType(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}
	page := &NotificationPage{Items: list, UnreadByType: byType}
	for _, n := range byType {
		page.UnreadCount += n
	}
	if n := len(list); n == limit {
		page.NextBefore = list[n-1].ID
	}
	return page, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userUID string, ids []uint64) (int64, error) {
	if userUID == "" {
		return 0, forbidden("authentication required")
	}
	n, err := s.repo.MarkRead(ctx, userUID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	log.Printf("[notify] rid=%s stage=marked_read user=%s ids=%d rows=%d", reqctx.RID(ctx), userUID, len(ids), n)
	return n, nil
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
