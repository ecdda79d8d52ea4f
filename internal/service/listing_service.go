package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shinyyama/agri-marketplace/internal/lock"
	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/reqctx"
	"github.com/shinyyama/agri-marketplace/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxCropNameLen     = 120
	listingDeletedNote = "listing deleted"
)

type ListingInput struct {
	CropName     string
	Quantity     decimal.Decimal
	Unit         string
	PricePerUnit decimal.Decimal
	Quality      string
	Location     string
	Description  string
	ImageURLs    []string
	HarvestDate  *time.Time
	Organic      bool
}

// ListingPatch carries the fields an owner wants to change; nil means keep.
type ListingPatch struct {
	CropName     *string
	Quantity     *decimal.Decimal
	Unit         *string
	PricePerUnit *decimal.Decimal
	Quality      *string
	Location     *string
	Description  *string
	ImageURLs    *[]string
	HarvestDate  *time.Time
	Organic      *bool
	Status       *model.ListingStatus
}

type ListingService interface {
	Create(ctx context.Context, actor model.Actor, in ListingInput) (*model.Listing, error)
	Get(ctx context.Context, id uint64) (*model.Listing, error)
	Update(ctx context.Context, actor model.Actor, id uint64, patch ListingPatch) (*model.Listing, error)
	Cancel(ctx context.Context, actor model.Actor, id uint64) (*model.Listing, error)
	Delete(ctx context.Context, actor model.Actor, id uint64) error
	List(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error)
}

type listingService struct {
	tx        repository.TxRunner
	repo      repository.ListingRepository
	offerRepo repository.OfferRepository
	eventRepo repository.OfferEventRepository
	notify    NotificationService
	locks     *lock.KeyedMutex
	now       func() time.Time
}

func NewListingService(
	tx repository.TxRunner,
	repo repository.ListingRepository,
	offerRepo repository.OfferRepository,
	eventRepo repository.OfferEventRepository,
	notify NotificationService,
	locks *lock.KeyedMutex,
) ListingService {
	return &listingService{
		tx:        tx,
		repo:      repo,
		offerRepo: offerRepo,
		eventRepo: eventRepo,
		notify:    notify,
		locks:     locks,
		now:       time.Now,
	}
}

func (s *listingService) Create(ctx context.Context, actor model.Actor, in ListingInput) (*model.Listing, error) {
	if actor.UID == "" {
		return nil, forbidden("authentication required")
	}
	if !actor.Role.Can(model.CapCreateListing) {
		return nil, forbidden("role %s cannot create listings", actor.Role)
	}
	in.CropName = strings.TrimSpace(in.CropName)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Quality = strings.TrimSpace(in.Quality)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateListingInput(in); err != nil {
		return nil, err
	}

	l := &model.Listing{
		FarmerUID:    actor.UID,
		CropName:     in.CropName,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		PricePerUnit: in.PricePerUnit,
		Quality:      in.Quality,
		Location:     in.Location,
		Description:  in.Description,
		HarvestDate:  in.HarvestDate,
		Organic:      in.Organic,
		Status:       model.ListingStatusActive,
	}
	l.SetImages(in.ImageURLs)
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	log.Printf("[listing] rid=%s stage=created listing=%d farmer=%s crop=%q qty=%s", reqctx.RID(ctx), l.ID, l.FarmerUID, l.CropName, l.Quantity)
	return l, nil
}

func validateListingInput(in ListingInput) error {
	switch {
	case in.CropName == "":
		return validation("crop name is required")
	case len(in.CropName) > maxCropNameLen:
		return validation("crop name must be at most %d characters", maxCropNameLen)
	case in.Unit == "":
		return validation("unit is required")
	case in.Quality == "":
		return validation("quality is required")
	case in.Location == "":
		return validation("location is required")
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return err
	}
	if err := checkPrice("price", in.PricePerUnit); err != nil {
		return err
	}
	return validateImageURLs(in.ImageURLs)
}

func validateImageURLs(urls []string) error {
	for _, u := range urls {
		if strings.HasPrefix(strings.TrimSpace(u), "data:") {
			return validation("image urls must be URLs, not data URIs")
		}
	}
	return nil
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("listing %d not found", id)
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) Update(ctx context.Context, actor model.Actor, id uint64, patch ListingPatch) (*model.Listing, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.FarmerUID != actor.UID {
		return nil, forbidden("only the owner can update this listing")
	}
	if l.Status != model.ListingStatusActive {
		return nil, invalidState("cannot update a listing with status %s", l.Status)
	}
	if err := applyListingPatch(l, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		if errors.Is(err, repository.ErrStaleListing) {
			return nil, invalidState("listing was modified concurrently")
		}
		return nil, fmt.Errorf("update listing %d: %w", id, err)
	}
	log.Printf("[listing] rid=%s stage=updated listing=%d status=%s version=%d", reqctx.RID(ctx), l.ID, l.Status, l.Version)
	return l, nil
}

func applyListingPatch(l *model.Listing, p ListingPatch) error {
	if p.CropName != nil {
		v := strings.TrimSpace(*p.CropName)
		if v == "" || len(v) > maxCropNameLen {
			return validation("invalid crop name")
		}
		l.CropName = v
	}
	if p.Quantity != nil {
		if err := checkQuantity(*p.Quantity); err != nil {
			return err
		}
		l.Quantity = *p.Quantity
	}
	if p.PricePerUnit != nil {
		if err := checkPrice("price", *p.PricePerUnit); err != nil {
			return err
		}
		l.PricePerUnit = *p.PricePerUnit
	}
	for _, f := range []struct {
		name string
		src  *string
		dst  *string
	}{
		{"unit", p.Unit, &l.Unit},
		{"quality", p.Quality, &l.Quality},
		{"location", p.Location, &l.Location},
	} {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			return validation("%s must not be empty", f.name)
		}
		*f.dst = v
	}
	if p.Description != nil {
		l.Description = strings.TrimSpace(*p.Description)
	}
	if p.ImageURLs != nil {
		if err := validateImageURLs(*p.ImageURLs); err != nil {
			return err
		}
		l.SetImages(*p.ImageURLs)
	}
	if p.HarvestDate != nil {
		l.HarvestDate = p.HarvestDate
	}
	if p.Organic != nil {
		l.Organic = *p.Organic
	}
	if p.Status != nil {
		to := *p.Status
		// sold is reached only through offer settlement
		if to != model.ListingStatusCancelled && to != model.ListingStatusExpired {
			return validation("status can only be changed to cancelled or expired")
		}
		if !l.Status.CanTransition(to) {
			return invalidState("cannot move listing from %s to %s", l.Status, to)
		}
		l.Status = to
	}
	return nil
}

func (s *listingService) Cancel(ctx context.Context, actor model.Actor, id uint64) (*model.Listing, error) {
	status := model.ListingStatusCancelled
	return s.Update(ctx, actor, id, ListingPatch{Status: &status})
}

// Delete soft-deletes the listing and rejects its pending offers in the same
// transaction, so no offer is left waiting on a listing nobody can see.
func (s *listingService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if l.FarmerUID != actor.UID && !actor.Role.Can(model.CapDeleteAnyListing) {
		return forbidden("only the owner or an admin can delete this listing")
	}

	now := s.now()
	var rejected []model.Offer
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete listing %d: %w", id, err)
		}
		if n == 0 {
			return notFound("listing %d not found", id)
		}
		offers := s.offerRepo.WithTx(tx)
		list, err := offers.ListByListing(ctx, id)
		if err != nil {
			return fmt.Errorf("list offers for listing %d: %w", id, err)
		}
		for _, o := range list {
			if o.Status != model.OfferStatusPending {
				continue
			}
			if err := offers.TransitionFromPending(ctx, o.ID, model.OfferStatusRejected, now); err != nil {
				return fmt.Errorf("reject offer %d: %w", o.ID, err)
			}
			if err := s.eventRepo.WithTx(tx).Create(ctx, &model.OfferEvent{
				OfferID:    o.ID,
				ListingID:  id,
				FromStatus: model.OfferStatusPending,
				ToStatus:   model.OfferStatusRejected,
				ActorUID:   actor.UID,
				Note:       listingDeletedNote,
			}); err != nil {
				return fmt.Errorf("record offer event: %w", err)
			}
			rejected = append(rejected, o)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[listing] rid=%s stage=deleted listing=%d by=%s rejected_offers=%d", reqctx.RID(ctx), id, actor.UID, len(rejected))

	if s.notify != nil {
		for _, o := range rejected {
			s.notify.Notify(ctx, o.BuyerUID, model.NotificationOfferRejected, "Offer rejected",
				fmt.Sprintf("Your offer for %s %s of %s was rejected because the listing was removed.", o.Quantity, l.Unit, l.CropName),
				uint64Ptr(id), uint64Ptr(o.ID))
		}
	}
	return nil
}

func (s *listingService) List(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, validation("minPrice must not exceed maxPrice")
	}
	if f.Status != "" && f.Status != repository.StatusAll && !model.ListingStatus(f.Status).Valid() {
		return nil, validation("unknown status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}
