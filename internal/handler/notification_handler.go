package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	ListingID *uint64 `json:"listingId,omitempty"`
	OfferID   *uint64 `json:"offerId,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		ListingID: n.ListingID,
		OfferID:   n.OfferID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

type markReadRequest struct {
	IDs []uint64 `json:"ids"`
}

// notificationQueryFromRequest reads unread_only (default true), type
// (comma separated), listing_id, offer_id, before and limit.
func notificationQueryFromRequest(c echo.Context) (service.NotificationQuery, error) {
	q := service.NotificationQuery{UnreadOnly: true}
	if v := c.QueryParam("unread_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("unread_only must be true or false")
		}
		q.UnreadOnly = b
	}
	if v := c.QueryParam("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}
	for _, p := range []struct {
		name string
		dst  **uint64
	}{
		{"listing_id", &q.ListingID},
		{"offer_id", &q.OfferID},
	} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return q, fmt.Errorf("invalid %s", p.name)
		}
		*p.dst = &id
	}
	if v := c.QueryParam("before"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return q, errors.New("invalid before cursor")
		}
		q.BeforeID = id
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = n
	}
	return q, nil
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	q, err := notificationQueryFromRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := h.svc.List(c.Request().Context(), actor.UID, q)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]NotificationResponse, 0, len(page.Items))
	for _, n := range page.Items {
		resp = append(resp, toNotificationResponse(n))
	}
	body := map[string]interface{}{
		"notifications": resp,
		"unreadCount":   page.UnreadCount,
		"unreadByType":  page.UnreadByType,
	}
	if page.NextBefore > 0 {
		body["nextBefore"] = page.NextBefore
	}
	return c.JSON(http.StatusOK, body)
}

// MarkRead marks the listed ids read, or the whole inbox when the body is
// empty or names no ids.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req markReadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	n, err := h.svc.MarkRead(c.Request().Context(), actor.UID, req.IDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "marked": n})
}
