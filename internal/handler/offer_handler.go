package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/service"
	"github.com/shopspring/decimal"
)

type OfferHandler struct {
	svc service.OfferService
}

func NewOfferHandler(svc service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

type OfferResponse struct {
	ID                uint64          `json:"id"`
	ListingID         uint64          `json:"listingId"`
	BuyerUID          string          `json:"buyerUid"`
	OfferPrice        decimal.Decimal `json:"offerPrice"`
	Quantity          decimal.Decimal `json:"quantity"`
	Message           string          `json:"message"`
	ContactPreference string          `json:"contactPreference"`
	ContactDetails    string          `json:"contactDetails,omitempty"`
	Status            string          `json:"status"`
	RespondedAt       *string         `json:"respondedAt,omitempty"`
	CreatedAt         string          `json:"createdAt"`
}

type UserSummaryResponse struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

type ListingSummaryResponse struct {
	ID           uint64          `json:"id"`
	FarmerUID    string          `json:"farmerUid"`
	CropName     string          `json:"cropName"`
	Unit         string          `json:"unit"`
	Location     string          `json:"location"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Status       string          `json:"status"`
}

type OfferViewResponse struct {
	OfferResponse
	Listing *ListingSummaryResponse `json:"listing"`
	Buyer   *UserSummaryResponse    `json:"buyer,omitempty"`
	Farmer  *UserSummaryResponse    `json:"farmer,omitempty"`
}

type OfferEventResponse struct {
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus"`
	ActorUID   string `json:"actorUid"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type MakeOfferRequest struct {
	OfferPrice        decimal.Decimal `json:"offerPrice"`
	Quantity          decimal.Decimal `json:"quantity"`
	Message           string          `json:"message"`
	ContactPreference string          `json:"contactPreference"`
	ContactDetails    string          `json:"contactDetails"`
}

type RespondRequest struct {
	Decision string `json:"decision"`
}

func toOfferResponse(o *model.Offer) OfferResponse {
	return OfferResponse{
		ID:                o.ID,
		ListingID:         o.ListingID,
		BuyerUID:          o.BuyerUID,
		OfferPrice:        o.OfferPrice,
		Quantity:          o.Quantity,
		Message:           o.Message,
		ContactPreference: string(o.ContactPreference),
		ContactDetails:    o.ContactDetails,
		Status:            string(o.Status),
		RespondedAt:       formatTime(o.RespondedAt),
		CreatedAt:         o.CreatedAt.Format(time.RFC3339),
	}
}

func toUserSummaryResponse(u *service.UserSummary) *UserSummaryResponse {
	if u == nil {
		return nil
	}
	return &UserSummaryResponse{UID: u.UID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

func toOfferViewResponse(v service.OfferView) OfferViewResponse {
	resp := OfferViewResponse{
		OfferResponse: toOfferResponse(&v.Offer),
		Buyer:         toUserSummaryResponse(v.Buyer),
		Farmer:        toUserSummaryResponse(v.Farmer),
	}
	if v.Listing != nil {
		resp.Listing = &ListingSummaryResponse{
			ID:           v.Listing.ID,
			FarmerUID:    v.Listing.FarmerUID,
			CropName:     v.Listing.CropName,
			Unit:         v.Listing.Unit,
			Location:     v.Listing.Location,
			Quantity:     v.Listing.Quantity,
			PricePerUnit: v.Listing.PricePerUnit,
			Status:       string(v.Listing.Status),
		}
	}
	return resp
}

func (h *OfferHandler) Make(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req MakeOfferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	o, err := h.svc.MakeOffer(c.Request().Context(), actor, listingID, service.OfferInput{
		OfferPrice:        req.OfferPrice,
		Quantity:          req.Quantity,
		Message:           req.Message,
		ContactPreference: model.ContactPreference(req.ContactPreference),
		ContactDetails:    req.ContactDetails,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toOfferResponse(o))
}

func (h *OfferHandler) Respond(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req RespondRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	o, err := h.svc.RespondToOffer(c.Request().Context(), actor, offerID, req.Decision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResponse(o))
}

func (h *OfferHandler) Withdraw(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	o, err := h.svc.WithdrawOffer(c.Request().Context(), actor, offerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResponse(o))
}

func (h *OfferHandler) ListForListing(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	views, err := h.svc.ListForListing(c.Request().Context(), actor, listingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"offers": toOfferViewResponses(views)})
}

func (h *OfferHandler) ListMine(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	views, err := h.svc.ListMine(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"offers": toOfferViewResponses(views)})
}

func (h *OfferHandler) History(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	events, err := h.svc.History(c.Request().Context(), actor, offerID)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]OfferEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, OfferEventResponse{
			FromStatus: string(ev.FromStatus),
			ToStatus:   string(ev.ToStatus),
			ActorUID:   ev.ActorUID,
			Note:       ev.Note,
			CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": resp})
}

func toOfferViewResponses(views []service.OfferView) []OfferViewResponse {
	resp := make([]OfferViewResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toOfferViewResponse(v))
	}
	return resp
}
