package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shinyyama/agri-marketplace/internal/dbtest"
	"github.com/shinyyama/agri-marketplace/internal/lock"
	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shinyyama/agri-marketplace/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	farmerA = model.Actor{UID: "farmer-a", Role: model.RoleFarmer}
	farmerB = model.Actor{UID: "farmer-b", Role: model.RoleFarmer}
	buyer1  = model.Actor{UID: "buyer-1", Role: model.RoleBuyer}
	buyer2  = model.Actor{UID: "buyer-2", Role: model.RoleBuyer}
	admin   = model.Actor{UID: "admin-1", Role: model.RoleAdmin}
	expert  = model.Actor{UID: "expert-1", Role: model.RoleExpert}
)

type fakeDirectory struct {
	users map[string]string
	fail  bool
}

func (d *fakeDirectory) Lookup(_ context.Context, uid string) (*UserSummary, error) {
	if d.fail {
		return nil, errors.New("directory unavailable")
	}
	name, ok := d.users[uid]
	if !ok {
		return nil, errors.New("no such user")
	}
	return &UserSummary{UID: uid, DisplayName: name}, nil
}

type harness struct {
	listings      ListingService
	offers        OfferService
	notifications NotificationService
	listingRepo   repository.ListingRepository
	offerRepo     repository.OfferRepository
	directory     *fakeDirectory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	locks := lock.NewKeyedMutex()
	listingRepo := repository.NewListingRepository(conn)
	offerRepo := repository.NewOfferRepository(conn)
	eventRepo := repository.NewOfferEventRepository(conn)
	txRunner := repository.NewTxRunner(conn)
	notifications := NewNotificationService(repository.NewNotificationRepository(conn))
	dir := &fakeDirectory{users: map[string]string{
		"farmer-a": "Asha Farms",
		"farmer-b": "Bhavan Agro",
		"buyer-1":  "Green Grocers",
		"buyer-2":  "Mill & Co",
	}}
	return &harness{
		listings: NewListingService(txRunner, listingRepo, offerRepo, eventRepo, notifications, locks),
		offers: NewOfferService(
			txRunner,
			listingRepo,
			offerRepo,
			eventRepo,
			notifications,
			dir,
			locks,
		),
		notifications: notifications,
		listingRepo:   listingRepo,
		offerRepo:     offerRepo,
		directory:     dir,
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func wheatInput(qty, price int64) ListingInput {
	return ListingInput{
		CropName:     "Wheat",
		Quantity:     dec(qty),
		Unit:         "quintal",
		PricePerUnit: dec(price),
		Quality:      "A",
		Location:     "Ludhiana, Punjab",
	}
}

func (h *harness) createListing(t *testing.T, owner model.Actor, qty, price int64) *model.Listing {
	t.Helper()
	l, err := h.listings.Create(context.Background(), owner, wheatInput(qty, price))
	require.NoError(t, err)
	return l
}

func (h *harness) makeOffer(t *testing.T, buyer model.Actor, listingID uint64, qty int64) *model.Offer {
	t.Helper()
	o, err := h.offers.MakeOffer(context.Background(), buyer, listingID, OfferInput{
		OfferPrice: dec(18),
		Quantity:   dec(qty),
		Message:    "can collect on Friday",
	})
	require.NoError(t, err)
	return o
}

func (h *harness) reloadListing(t *testing.T, id uint64) *model.Listing {
	t.Helper()
	l, err := h.listingRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return l
}

func (h *harness) reloadOffer(t *testing.T, id uint64) *model.Offer {
	t.Helper()
	o, err := h.offerRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func requireQuantity(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "quantity=%s want=%d", got, want)
}
