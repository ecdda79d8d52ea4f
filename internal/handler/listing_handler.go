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
	"github.com/shinyyama/agri-marketplace/internal/repository"
	"github.com/shinyyama/agri-marketplace/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type ListingHandler struct {
	svc service.ListingService
}

func NewListingHandler(svc service.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type ListingResponse struct {
	ID           uint64          `json:"id"`
	FarmerUID    string          `json:"farmerUid"`
	CropName     string          `json:"cropName"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Quality      string          `json:"quality"`
	Location     string          `json:"location"`
	Description  string          `json:"description"`
	ImageURLs    []string        `json:"imageUrls"`
	HarvestDate  *string         `json:"harvestDate,omitempty"`
	Organic      bool            `json:"organic"`
	Status       string          `json:"status"`
	Version      uint64          `json:"version"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
}

type ListingListResponse struct {
	Listings []ListingResponse `json:"listings"`
}

func toListingResponse(l *model.Listing) ListingResponse {
	var harvest *string
	if l.HarvestDate != nil {
		v := l.HarvestDate.Format(dateLayout)
		harvest = &v
	}
	images := l.Images()
	if images == nil {
		images = []string{}
	}
	return ListingResponse{
		ID:           l.ID,
		FarmerUID:    l.FarmerUID,
		CropName:     l.CropName,
		Quantity:     l.Quantity,
		Unit:         l.Unit,
		PricePerUnit: l.PricePerUnit,
		Quality:      l.Quality,
		Location:     l.Location,
		Description:  l.Description,
		ImageURLs:    images,
		HarvestDate:  harvest,
		Organic:      l.Organic,
		Status:       string(l.Status),
		Version:      l.Version,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    l.UpdatedAt.Format(time.RFC3339),
	}
}

type CreateListingRequest struct {
	CropName     string          `json:"cropName"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Quality      string          `json:"quality"`
	Location     string          `json:"location"`
	Description  string          `json:"description"`
	ImageURLs    []string        `json:"imageUrls"`
	HarvestDate  string          `json:"harvestDate"`
	Organic      bool            `json:"organic"`
}

type UpdateListingRequest struct {
	CropName     *string          `json:"cropName"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         *string          `json:"unit"`
	PricePerUnit *decimal.Decimal `json:"pricePerUnit"`
	Quality      *string          `json:"quality"`
	Location     *string          `json:"location"`
	Description  *string          `json:"description"`
	ImageURLs    *[]string        `json:"imageUrls"`
	HarvestDate  *string          `json:"harvestDate"`
	Organic      *bool            `json:"organic"`
	Status       *string          `json:"status"`
}

// parseDate accepts a plain date or a full RFC3339 timestamp.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *ListingHandler) Create(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	harvest, err := parseDate(req.HarvestDate)
	if err != nil {
		return badRequest(c, "invalid harvestDate")
	}
	l, err := h.svc.Create(c.Request().Context(), actor, service.ListingInput{
		CropName:     req.CropName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		PricePerUnit: req.PricePerUnit,
		Quality:      req.Quality,
		Location:     req.Location,
		Description:  req.Description,
		ImageURLs:    req.ImageURLs,
		HarvestDate:  harvest,
		Organic:      req.Organic,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	l, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Update(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req UpdateListingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	patch := service.ListingPatch{
		CropName:     req.CropName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		PricePerUnit: req.PricePerUnit,
		Quality:      req.Quality,
		Location:     req.Location,
		Description:  req.Description,
		ImageURLs:    req.ImageURLs,
		Organic:      req.Organic,
	}
	if req.HarvestDate != nil {
		harvest, err := parseDate(*req.HarvestDate)
		if err != nil {
			return badRequest(c, "invalid harvestDate")
		}
		patch.HarvestDate = harvest
	}
	if req.Status != nil {
		st := model.ListingStatus(strings.TrimSpace(*req.Status))
		patch.Status = &st
	}
	l, err := h.svc.Update(c.Request().Context(), actor, id, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Cancel(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	l, err := h.svc.Cancel(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Delete(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) List(c echo.Context) error {
	f, err := listingFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.list(c, f)
}

func (h *ListingHandler) ListMine(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	f, err := listingFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	f.FarmerUID = actor.UID
	if f.Status == "" {
		f.Status = repository.StatusAll
	}
	return h.list(c, f)
}

func (h *ListingHandler) list(c echo.Context, f repository.ListingFilter) error {
	listings, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	resp := ListingListResponse{Listings: make([]ListingResponse, 0, len(listings))}
	for i := range listings {
		resp.Listings = append(resp.Listings, toListingResponse(&listings[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func listingFilterFromQuery(c echo.Context) (repository.ListingFilter, error) {
	f := repository.ListingFilter{
		Crop:      c.QueryParam("crop"),
		Location:  c.QueryParam("location"),
		Quality:   c.QueryParam("quality"),
		Status:    c.QueryParam("status"),
		FarmerUID: c.QueryParam("farmer"),
		Sort:      c.QueryParam("sort"),
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	} {
		raw := strings.TrimSpace(c.QueryParam(p.name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s", p.name)
		}
		*p.dst = &d
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, errors.New("invalid limit")
		}
		f.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("invalid offset")
		}
		f.Offset = n
	}
	return f, nil
}
