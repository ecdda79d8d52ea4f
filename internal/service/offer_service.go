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

type OfferInput struct {
	OfferPrice        decimal.Decimal
	Quantity          decimal.Decimal
	Message           string
	ContactPreference model.ContactPreference
	ContactDetails    string
}

type ListingSummary struct {
	ID           uint64
	FarmerUID    string
	CropName     string
	Unit         string
	Location     string
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Status       model.ListingStatus
}

// OfferView is an offer resolved with the parties and listing it refers to.
// Listing is nil when the listing has been deleted.
type OfferView struct {
	Offer   model.Offer
	Listing *ListingSummary
	Buyer   *UserSummary
	Farmer  *UserSummary
}

type OfferService interface {
	MakeOffer(ctx context.Context, actor model.Actor, listingID uint64, in OfferInput) (*model.Offer, error)
	RespondToOffer(ctx context.Context, actor model.Actor, offerID uint64, decision string) (*model.Offer, error)
	WithdrawOffer(ctx context.Context, actor model.Actor, offerID uint64) (*model.Offer, error)
	ListForListing(ctx context.Context, actor model.Actor, listingID uint64) ([]OfferView, error)
	ListMine(ctx context.Context, actor model.Actor) ([]OfferView, error)
	History(ctx context.Context, actor model.Actor, offerID uint64) ([]model.OfferEvent, error)
}

type offerService struct {
	tx          repository.TxRunner
	listingRepo repository.ListingRepository
	offerRepo   repository.OfferRepository
	eventRepo   repository.OfferEventRepository
	notify      NotificationService
	users       UserDirectory
	locks       *lock.KeyedMutex
	now         func() time.Time
}

func NewOfferService(
	tx repository.TxRunner,
	listingRepo repository.ListingRepository,
	offerRepo repository.OfferRepository,
	eventRepo repository.OfferEventRepository,
	notify NotificationService,
	users UserDirectory,
	locks *lock.KeyedMutex,
) OfferService {
	return &offerService{
		tx:          tx,
		listingRepo: listingRepo,
		offerRepo:   offerRepo,
		eventRepo:   eventRepo,
		notify:      notify,
		users:       users,
		locks:       locks,
		now:         time.Now,
	}
}

func (s *offerService) findListing(ctx context.Context, repo repository.ListingRepository, id uint64) (*model.Listing, error) {
	l, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("listing %d not found", id)
		}
		return nil, fmt.Errorf("find listing %d: %w", id, err)
	}
	return l, nil
}

func (s *offerService) findOffer(ctx context.Context, repo repository.OfferRepository, id uint64) (*model.Offer, error) {
	o, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("offer %d not found", id)
		}
		return nil, fmt.Errorf("find offer %d: %w", id, err)
	}
	return o, nil
}

// MakeOffer runs under the listing lock so its availability check never
// interleaves with a settlement. Quantity is not reserved.
func (s *offerService) MakeOffer(ctx context.Context, actor model.Actor, listingID uint64, in OfferInput) (*model.Offer, error) {
	if actor.UID == "" {
		return nil, forbidden("authentication required")
	}
	if !actor.Role.Can(model.CapMakeOffer) {
		return nil, forbidden("role %s cannot make offers", actor.Role)
	}

	unlock := s.locks.Lock(listingID)
	defer unlock()

	l, err := s.findListing(ctx, s.listingRepo, listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != model.ListingStatusActive {
		return nil, invalidState("cannot offer on a listing with status %s", l.Status)
	}
	if l.FarmerUID == actor.UID {
		return nil, forbidden("cannot offer on own listing")
	}
	if in.Quantity.GreaterThan(l.Quantity) {
		return nil, validation("requested quantity exceeds available quantity")
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := checkPrice("offer price", in.OfferPrice); err != nil {
		return nil, err
	}
	if in.ContactPreference == "" {
		in.ContactPreference = model.ContactInApp
	}
	if !in.ContactPreference.Valid() {
		return nil, validation("unknown contact preference %q", in.ContactPreference)
	}

	o := &model.Offer{
		ListingID:         l.ID,
		BuyerUID:          actor.UID,
		OfferPrice:        in.OfferPrice,
		Quantity:          in.Quantity,
		Message:           strings.TrimSpace(in.Message),
		ContactPreference: in.ContactPreference,
		ContactDetails:    strings.TrimSpace(in.ContactDetails),
		Status:            model.OfferStatusPending,
	}
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.offerRepo.WithTx(tx).Create(ctx, o); err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		return s.eventRepo.WithTx(tx).Create(ctx, &model.OfferEvent{
			OfferID:   o.ID,
			ListingID: o.ListingID,
			ToStatus:  model.OfferStatusPending,
			ActorUID:  actor.UID,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[offer] rid=%s stage=created offer=%d listing=%d buyer=%s qty=%s price=%s", reqctx.RID(ctx), o.ID, l.ID, actor.UID, o.Quantity, o.OfferPrice)

	s.notifyUser(ctx, l.FarmerUID, model.NotificationOfferReceived,
		"New offer received",
		fmt.Sprintf("You received an offer for %s %s of %s at %s per %s.", o.Quantity, l.Unit, l.CropName, o.OfferPrice, l.Unit),
		uint64Ptr(l.ID), uint64Ptr(o.ID))
	return o, nil
}

// RespondToOffer accepts or rejects a pending offer. The offer transition,
// the listing settlement and the history event commit together; a second
// response to the same offer fails with ErrInvalidState.
func (s *offerService) RespondToOffer(ctx context.Context, actor model.Actor, offerID uint64, decision string) (*model.Offer, error) {
	to := model.OfferStatus(strings.TrimSpace(decision))
	if to != model.OfferStatusAccepted && to != model.OfferStatusRejected {
		return nil, validation("decision must be %q or %q", model.OfferStatusAccepted, model.OfferStatusRejected)
	}
	o, err := s.findOffer(ctx, s.offerRepo, offerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(o.ListingID)
	defer unlock()

	l, err := s.findListing(ctx, s.listingRepo, o.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.UID == "" || l.FarmerUID != actor.UID {
		return nil, forbidden("only the listing owner can respond to this offer")
	}

	now := s.now()
	var result *model.Offer
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		offers := s.offerRepo.WithTx(tx)
		listings := s.listingRepo.WithTx(tx)

		cur, err := s.findOffer(ctx, offers, offerID)
		if err != nil {
			return err
		}
		if cur.Status != model.OfferStatusPending {
			return invalidState("offer is already %s", cur.Status)
		}
		if to == model.OfferStatusAccepted {
			listing, err := s.findListing(ctx, listings, cur.ListingID)
			if err != nil {
				return err
			}
			if listing.Status != model.ListingStatusActive {
				return invalidState("cannot accept an offer on a listing with status %s", listing.Status)
			}
			settle(listing, cur.Quantity)
			if err := listings.Update(ctx, listing); err != nil {
				if errors.Is(err, repository.ErrStaleListing) {
					return invalidState("listing was modified concurrently")
				}
				return fmt.Errorf("settle listing %d: %w", listing.ID, err)
			}
			l = listing
		}
		if err := offers.TransitionFromPending(ctx, offerID, to, now); err != nil {
			if errors.Is(err, repository.ErrOfferNotPending) {
				return invalidState("offer is no longer pending")
			}
			return fmt.Errorf("transition offer %d: %w", offerID, err)
		}
		if err := s.eventRepo.WithTx(tx).Create(ctx, &model.OfferEvent{
			OfferID:    cur.ID,
			ListingID:  cur.ListingID,
			FromStatus: model.OfferStatusPending,
			ToStatus:   to,
			ActorUID:   actor.UID,
		}); err != nil {
			return fmt.Errorf("record offer event: %w", err)
		}
		cur.Status = to
		cur.RespondedAt = &now
		result = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[offer] rid=%s stage=responded offer=%d listing=%d decision=%s listing_status=%s listing_qty=%s", reqctx.RID(ctx), result.ID, l.ID, to, l.Status, l.Quantity)

	typ, title := model.NotificationOfferRejected, "Offer rejected"
	if to == model.OfferStatusAccepted {
		typ, title = model.NotificationOfferAccepted, "Offer accepted"
	}
	s.notifyUser(ctx, result.BuyerUID, typ, title,
		fmt.Sprintf("Your offer for %s %s of %s was %s.", result.Quantity, l.Unit, l.CropName, to),
		uint64Ptr(l.ID), uint64Ptr(result.ID))
	return result, nil
}

// settle applies an accepted quantity: an offer that covers the remaining
// quantity sells the listing outright, otherwise the quantity is reduced.
func settle(l *model.Listing, qty decimal.Decimal) {
	if qty.GreaterThanOrEqual(l.Quantity) {
		l.Status = model.ListingStatusSold
		return
	}
	l.Quantity = l.Quantity.Sub(qty)
}

func (s *offerService) WithdrawOffer(ctx context.Context, actor model.Actor, offerID uint64) (*model.Offer, error) {
	o, err := s.findOffer(ctx, s.offerRepo, offerID)
	if err != nil {
		return nil, err
	}
	if actor.UID == "" || o.BuyerUID != actor.UID {
		return nil, forbidden("only the buyer can withdraw this offer")
	}

	unlock := s.locks.Lock(o.ListingID)
	defer unlock()

	now := s.now()
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.offerRepo.WithTx(tx).TransitionFromPending(ctx, offerID, model.OfferStatusWithdrawn, now); err != nil {
			if errors.Is(err, repository.ErrOfferNotPending) {
				return invalidState("only pending offers can be withdrawn")
			}
			return fmt.Errorf("withdraw offer %d: %w", offerID, err)
		}
		return s.eventRepo.WithTx(tx).Create(ctx, &model.OfferEvent{
			OfferID:    o.ID,
			ListingID:  o.ListingID,
			FromStatus: model.OfferStatusPending,
			ToStatus:   model.OfferStatusWithdrawn,
			ActorUID:   actor.UID,
		})
	})
	if err != nil {
		return nil, err
	}
	o.Status = model.OfferStatusWithdrawn
	o.RespondedAt = &now
	log.Printf("[offer] rid=%s stage=withdrawn offer=%d listing=%d", reqctx.RID(ctx), o.ID, o.ListingID)

	if l, err := s.listingRepo.FindByID(ctx, o.ListingID); err == nil {
		s.notifyUser(ctx, l.FarmerUID, model.NotificationOfferWithdrawn,
			"Offer withdrawn",
			fmt.Sprintf("An offer for %s %s of %s was withdrawn.", o.Quantity, l.Unit, l.CropName),
			uint64Ptr(l.ID), uint64Ptr(o.ID))
	}
	return o, nil
}

func (s *offerService) ListForListing(ctx context.Context, actor model.Actor, listingID uint64) ([]OfferView, error) {
	l, err := s.findListing(ctx, s.listingRepo, listingID)
	if err != nil {
		return nil, err
	}
	if l.FarmerUID != actor.UID && !actor.Role.Can(model.CapViewAnyOffers) {
		return nil, forbidden("only the listing owner can view its offers")
	}
	offers, err := s.offerRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list offers for listing %d: %w", listingID, err)
	}
	users := newSummaryCache(s.users)
	summary := toListingSummary(l)
	views := make([]OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, OfferView{
			Offer:   o,
			Listing: summary,
			Buyer:   users.get(ctx, o.BuyerUID),
		})
	}
	return views, nil
}

func (s *offerService) ListMine(ctx context.Context, actor model.Actor) ([]OfferView, error) {
	if actor.UID == "" {
		return nil, forbidden("authentication required")
	}
	offers, err := s.offerRepo.ListByBuyer(ctx, actor.UID)
	if err != nil {
		return nil, fmt.Errorf("list offers by buyer: %w", err)
	}
	ids := make([]uint64, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ListingID)
	}
	listings, err := s.listingRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve listings: %w", err)
	}
	users := newSummaryCache(s.users)
	views := make([]OfferView, 0, len(offers))
	for _, o := range offers {
		v := OfferView{Offer: o}
		if l, ok := listings[o.ListingID]; ok {
			v.Listing = toListingSummary(l)
			v.Farmer = users.get(ctx, l.FarmerUID)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *offerService) History(ctx context.Context, actor model.Actor, offerID uint64) ([]model.OfferEvent, error) {
	o, err := s.findOffer(ctx, s.offerRepo, offerID)
	if err != nil {
		return nil, err
	}
	allowed := actor.UID != "" && (o.BuyerUID == actor.UID || actor.Role.Can(model.CapViewAnyOffers))
	if !allowed && actor.UID != "" {
		if l, err := s.listingRepo.FindByID(ctx, o.ListingID); err == nil && l.FarmerUID == actor.UID {
			allowed = true
		}
	}
	if !allowed {
		return nil, forbidden("not a party to this offer")
	}
	events, err := s.eventRepo.ListByOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list offer events: %w", err)
	}
	return events, nil
}

func (s *offerService) notifyUser(ctx context.Context, uid, typ, title, body string, listingID, offerID *uint64) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(ctx, uid, typ, title, body, listingID, offerID)
}

func toListingSummary(l *model.Listing) *ListingSummary {
	return &ListingSummary{
		ID:           l.ID,
		FarmerUID:    l.FarmerUID,
		CropName:     l.CropName,
		Unit:         l.Unit,
		Location:     l.Location,
		Quantity:     l.Quantity,
		PricePerUnit: l.PricePerUnit,
		Status:       l.Status,
	}
}
