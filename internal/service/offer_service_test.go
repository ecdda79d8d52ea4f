package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shinyyama/agri-marketplace/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestScenarioA_PartialAcceptReducesQuantity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	got, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusAccepted, got.Status)
	assert.NotNil(t, got.RespondedAt)

	listing := h.reloadListing(t, l.ID)
	requireQuantity(t, 60, listing.Quantity)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	assert.Equal(t, model.OfferStatusAccepted, h.reloadOffer(t, o.ID).Status)
}

func TestScenarioB_FullAcceptSellsListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 100)

	_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	require.NoError(t, err)

	listing := h.reloadListing(t, l.ID)
	requireQuantity(t, 100, listing.Quantity)
	assert.Equal(t, model.ListingStatusSold, listing.Status)
}

func TestScenarioC_OfferOnSoldListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 100)
	_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	require.NoError(t, err)

	_, err = h.offers.MakeOffer(ctx, buyer2, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(1)})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, Reason(err), "status sold")
}

func TestScenarioD_NonOwnerCannotRespond(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	_, err := h.offers.RespondToOffer(ctx, farmerB, o.ID, "accepted")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, model.OfferStatusPending, h.reloadOffer(t, o.ID).Status)
	listing := h.reloadListing(t, l.ID)
	requireQuantity(t, 100, listing.Quantity)
	assert.Equal(t, uint64(1), listing.Version)
}

func TestScenarioE_QuantityExceedsAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 50, 20)

	_, err := h.offers.MakeOffer(ctx, buyer1, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(60)})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "requested quantity exceeds available quantity", Reason(err))

	offers, err := h.offerRepo.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestMakeOffer_NonActiveListingAlwaysInvalidState(t *testing.T) {
	for _, status := range []model.ListingStatus{model.ListingStatusSold, model.ListingStatusExpired, model.ListingStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			l := h.createListing(t, farmerA, 10, 20)
			l.Status = status
			require.NoError(t, h.listingRepo.Update(ctx, l))

			for _, actor := range []model.Actor{buyer1, farmerA, farmerB, admin} {
				for _, qty := range []int64{0, 5, 10, 500} {
					_, err := h.offers.MakeOffer(ctx, actor, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(qty)})
					assert.ErrorIsf(t, err, ErrInvalidState, "actor=%s qty=%d", actor.UID, qty)
				}
			}
		})
	}
}

func TestMakeOffer_OwnListingForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)

	for _, qty := range []int64{1, 100, 1000} {
		_, err := h.offers.MakeOffer(ctx, farmerA, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(qty)})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, "cannot offer on own listing", Reason(err))
	}
}

func TestMakeOffer_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)

	tests := []struct {
		name    string
		actor   model.Actor
		listing uint64
		in      OfferInput
		wantErr error
	}{
		{"missing listing", buyer1, 9999, OfferInput{OfferPrice: dec(20), Quantity: dec(1)}, ErrNotFound},
		{"expert cannot offer", expert, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(1)}, ErrForbidden},
		{"anonymous", model.Actor{Role: model.RoleBuyer}, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(1)}, ErrForbidden},
		{"zero quantity", buyer1, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(0)}, ErrValidation},
		{"negative price", buyer1, l.ID, OfferInput{OfferPrice: dec(-2), Quantity: dec(1)}, ErrValidation},
		{"bad contact preference", buyer1, l.ID, OfferInput{OfferPrice: dec(20), Quantity: dec(1), ContactPreference: "fax"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.offers.MakeOffer(ctx, tt.actor, tt.listing, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	offers, err := h.offerRepo.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestMakeOffer_AmountPrecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)

	tests := []struct {
		name    string
		price   string
		qty     string
		wantErr bool
	}{
		{"cents and grams", "19.99", "0.001", false},
		{"sub-cent price", "0.001", "1", true},
		{"price with three places", "19.995", "1", true},
		{"sub-gram quantity", "20", "0.0001", true},
		{"price overflow", "1000000000000", "1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.offers.MakeOffer(ctx, buyer1, l.ID, OfferInput{
				OfferPrice: decimal.RequireFromString(tt.price),
				Quantity:   decimal.RequireFromString(tt.qty),
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}

	offers, err := h.offerRepo.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestMakeOffer_DoesNotReserveQuantity(t *testing.T) {
	h := newHarness(t)
	l := h.createListing(t, farmerA, 100, 20)

	h.makeOffer(t, buyer1, l.ID, 80)
	h.makeOffer(t, buyer2, l.ID, 80)

	requireQuantity(t, 100, h.reloadListing(t, l.ID).Quantity)
}

func TestMakeOffer_FarmerCanBuyFromAnotherFarmer(t *testing.T) {
	h := newHarness(t)
	l := h.createListing(t, farmerA, 100, 20)

	o := h.makeOffer(t, farmerB, l.ID, 10)
	assert.Equal(t, model.OfferStatusPending, o.Status)
	assert.Equal(t, model.ContactInApp, o.ContactPreference)
}

func TestRespondToOffer_InvalidDecisionMutatesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	for _, decision := range []string{"", "withdrawn", "pending", "ACCEPTED", "maybe"} {
		_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, decision)
		assert.ErrorIsf(t, err, ErrValidation, "decision=%q", decision)
	}
	_, err := h.offers.RespondToOffer(ctx, farmerA, 9999, "maybe")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, model.OfferStatusPending, h.reloadOffer(t, o.ID).Status)
	requireQuantity(t, 100, h.reloadListing(t, l.ID).Quantity)
}

func TestRespondToOffer_MissingOffer(t *testing.T) {
	h := newHarness(t)
	_, err := h.offers.RespondToOffer(context.Background(), farmerA, 9999, "rejected")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRespondToOffer_NonOwnersForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	for _, actor := range []model.Actor{farmerB, buyer1, buyer2, admin, {Role: model.RoleFarmer}} {
		for _, decision := range []string{"accepted", "rejected"} {
			_, err := h.offers.RespondToOffer(ctx, actor, o.ID, decision)
			assert.ErrorIsf(t, err, ErrForbidden, "actor=%q", actor.UID)
		}
	}
	assert.Equal(t, model.OfferStatusPending, h.reloadOffer(t, o.ID).Status)
	requireQuantity(t, 100, h.reloadListing(t, l.ID).Quantity)
}

func TestRespondToOffer_RejectLeavesListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	got, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusRejected, got.Status)
	assert.NotNil(t, h.reloadOffer(t, o.ID).RespondedAt)

	listing := h.reloadListing(t, l.ID)
	requireQuantity(t, 100, listing.Quantity)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	assert.Equal(t, uint64(1), listing.Version)
}

func TestRespondToOffer_SecondResponseIsInvalidState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	require.NoError(t, err)

	for _, decision := range []string{"accepted", "rejected"} {
		_, err = h.offers.RespondToOffer(ctx, farmerA, o.ID, decision)
		assert.ErrorIs(t, err, ErrInvalidState)
	}

	listing := h.reloadListing(t, l.ID)
	requireQuantity(t, 60, listing.Quantity)
	assert.Equal(t, model.OfferStatusAccepted, h.reloadOffer(t, o.ID).Status)
}

func TestRespondToOffer_AcceptAgainstSoldListingRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	first := h.makeOffer(t, buyer1, l.ID, 100)
	second := h.makeOffer(t, buyer2, l.ID, 70)

	_, err := h.offers.RespondToOffer(ctx, farmerA, first.ID, "accepted")
	require.NoError(t, err)

	_, err = h.offers.RespondToOffer(ctx, farmerA, second.ID, "accepted")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.OfferStatusPending, h.reloadOffer(t, second.ID).Status)

	listing := h.reloadListing(t, l.ID)
	assert.Equal(t, model.ListingStatusSold, listing.Status)
	requireQuantity(t, 100, listing.Quantity)

	// rejecting the leftover offer is still allowed
	_, err = h.offers.RespondToOffer(ctx, farmerA, second.ID, "rejected")
	require.NoError(t, err)
}

func TestRespondToOffer_QuantityNeverNegative(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	offers := []*model.Offer{
		h.makeOffer(t, buyer1, l.ID, 70),
		h.makeOffer(t, buyer2, l.ID, 70),
		h.makeOffer(t, farmerB, l.ID, 20),
	}
	for _, o := range offers {
		_, _ = h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
		assert.False(t, h.reloadListing(t, l.ID).Quantity.IsNegative())
	}
	listing := h.reloadListing(t, l.ID)
	assert.Equal(t, model.ListingStatusSold, listing.Status)
	requireQuantity(t, 30, listing.Quantity)
}

func TestRespondToOffer_ConcurrentAcceptsSerialize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)

	const n = 10
	offers := make([]*model.Offer, 0, n)
	for i := 0; i < n; i++ {
		buyer := model.Actor{UID: fmt.Sprintf("buyer-%d", i+10), Role: model.RoleBuyer}
		offers = append(offers, h.makeOffer(t, buyer, l.ID, 30))
	}

	results := make([]error, n)
	var g errgroup.Group
	for i, o := range offers {
		i, o := i, o
		g.Go(func() error {
			_, results[i] = h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	accepted := 0
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidState)
	}
	// 100 -> 70 -> 40 -> 10 -> sold
	assert.Equal(t, 4, accepted)

	listing := h.reloadListing(t, l.ID)
	assert.Equal(t, model.ListingStatusSold, listing.Status)
	requireQuantity(t, 10, listing.Quantity)
}

func TestMakeOffer_RacingSettlementSeesConsistentListing(t *testing.T) {
	for i := 0; i < 5; i++ {
		h := newHarness(t)
		ctx := context.Background()
		l := h.createListing(t, farmerA, 50, 20)
		full := h.makeOffer(t, buyer1, l.ID, 50)

		var (
			g         errgroup.Group
			acceptErr error
			offerErr  error
			created   *model.Offer
		)
		g.Go(func() error {
			_, acceptErr = h.offers.RespondToOffer(ctx, farmerA, full.ID, "accepted")
			return nil
		})
		g.Go(func() error {
			created, offerErr = h.offers.MakeOffer(ctx, buyer2, l.ID, OfferInput{OfferPrice: dec(21), Quantity: dec(10)})
			return nil
		})
		require.NoError(t, g.Wait())

		require.NoError(t, acceptErr)
		if offerErr != nil {
			assert.ErrorIs(t, offerErr, ErrInvalidState)
		} else {
			assert.Equal(t, model.OfferStatusPending, created.Status)
		}
		assert.Equal(t, model.ListingStatusSold, h.reloadListing(t, l.ID).Status)
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name       string
		have, take int64
		wantQty    int64
		wantStatus model.ListingStatus
	}{
		{"partial", 100, 40, 60, model.ListingStatusActive},
		{"exact", 100, 100, 100, model.ListingStatusSold},
		{"over", 50, 60, 50, model.ListingStatusSold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &model.Listing{Quantity: dec(tt.have), Status: model.ListingStatusActive}
			settle(l, dec(tt.take))
			requireQuantity(t, tt.wantQty, l.Quantity)
			assert.Equal(t, tt.wantStatus, l.Status)
		})
	}
}

func TestWithdrawOffer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)

	_, err := h.offers.WithdrawOffer(ctx, buyer2, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.offers.WithdrawOffer(ctx, farmerA, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.offers.WithdrawOffer(ctx, buyer1, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := h.offers.WithdrawOffer(ctx, buyer1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusWithdrawn, got.Status)

	_, err = h.offers.WithdrawOffer(ctx, buyer1, o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	assert.ErrorIs(t, err, ErrInvalidState)
	requireQuantity(t, 100, h.reloadListing(t, l.ID).Quantity)
}

func TestWithdrawOffer_AfterAcceptance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 40)
	_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "accepted")
	require.NoError(t, err)

	_, err = h.offers.WithdrawOffer(ctx, buyer1, o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.OfferStatusAccepted, h.reloadOffer(t, o.ID).Status)
}

func TestListForListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	first := h.makeOffer(t, buyer1, l.ID, 10)
	second := h.makeOffer(t, buyer2, l.ID, 20)

	views, err := h.offers.ListForListing(ctx, farmerA, l.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].Offer.ID)
	assert.Equal(t, first.ID, views[1].Offer.ID)
	assert.Equal(t, "Mill & Co", views[0].Buyer.DisplayName)
	assert.Equal(t, "Green Grocers", views[1].Buyer.DisplayName)
	require.NotNil(t, views[0].Listing)
	assert.Equal(t, "Wheat", views[0].Listing.CropName)

	_, err = h.offers.ListForListing(ctx, admin, l.ID)
	assert.NoError(t, err)

	for _, actor := range []model.Actor{farmerB, buyer1, expert} {
		_, err = h.offers.ListForListing(ctx, actor, l.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	}
	_, err = h.offers.ListForListing(ctx, farmerA, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForListing_DirectoryFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.directory.fail = true
	l := h.createListing(t, farmerA, 100, 20)
	h.makeOffer(t, buyer1, l.ID, 10)

	views, err := h.offers.ListForListing(context.Background(), farmerA, l.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "buyer-1", views[0].Buyer.UID)
	assert.Empty(t, views[0].Buyer.DisplayName)
}

func TestListMine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wheat := h.createListing(t, farmerA, 100, 20)
	other := h.createListing(t, farmerB, 30, 50)
	h.makeOffer(t, buyer1, wheat.ID, 10)
	h.makeOffer(t, buyer1, other.ID, 5)
	h.makeOffer(t, buyer2, wheat.ID, 5)

	require.NoError(t, h.listings.Delete(ctx, farmerB, other.ID))

	views, err := h.offers.ListMine(ctx, buyer1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, other.ID, views[0].Offer.ListingID)
	assert.Nil(t, views[0].Listing)
	assert.Nil(t, views[0].Farmer)

	assert.Equal(t, wheat.ID, views[1].Offer.ListingID)
	require.NotNil(t, views[1].Listing)
	assert.Equal(t, "farmer-a", views[1].Listing.FarmerUID)
	assert.Equal(t, "Asha Farms", views[1].Farmer.DisplayName)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	o := h.makeOffer(t, buyer1, l.ID, 10)
	_, err := h.offers.RespondToOffer(ctx, farmerA, o.ID, "rejected")
	require.NoError(t, err)

	for _, actor := range []model.Actor{buyer1, farmerA, admin} {
		events, err := h.offers.History(ctx, actor, o.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, model.OfferStatusPending, events[0].ToStatus)
		assert.Equal(t, "buyer-1", events[0].ActorUID)
		assert.Equal(t, model.OfferStatusPending, events[1].FromStatus)
		assert.Equal(t, model.OfferStatusRejected, events[1].ToStatus)
		assert.Equal(t, "farmer-a", events[1].ActorUID)
	}

	_, err = h.offers.History(ctx, buyer2, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.offers.History(ctx, buyer1, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOfferNotifications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	accepted := h.makeOffer(t, buyer1, l.ID, 10)
	withdrawn := h.makeOffer(t, buyer2, l.ID, 10)

	_, err := h.offers.RespondToOffer(ctx, farmerA, accepted.ID, "accepted")
	require.NoError(t, err)
	_, err = h.offers.WithdrawOffer(ctx, buyer2, withdrawn.ID)
	require.NoError(t, err)

	farmer, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), farmer.UnreadCount)
	assert.Equal(t, int64(2), farmer.UnreadByType[model.NotificationOfferReceived])
	assert.Equal(t, int64(1), farmer.UnreadByType[model.NotificationOfferWithdrawn])
	assert.Len(t, farmer.Items, 3)
	assert.Zero(t, farmer.NextBefore)

	withdrawals, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{Types: []string{model.NotificationOfferWithdrawn}})
	require.NoError(t, err)
	require.Len(t, withdrawals.Items, 1)
	require.NotNil(t, withdrawals.Items[0].OfferID)
	assert.Equal(t, withdrawn.ID, *withdrawals.Items[0].OfferID)
	assert.Equal(t, int64(3), withdrawals.UnreadCount)

	buyer, err := h.notifications.List(ctx, "buyer-1", NotificationQuery{UnreadOnly: true, OfferID: &accepted.ID})
	require.NoError(t, err)
	require.Len(t, buyer.Items, 1)
	assert.Equal(t, model.NotificationOfferAccepted, buyer.Items[0].Type)
	require.NotNil(t, buyer.Items[0].OfferID)
	assert.Equal(t, accepted.ID, *buyer.Items[0].OfferID)
}

func TestNotificationService_QueryRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.createListing(t, farmerA, 100, 20)
	for i := 0; i < 3; i++ {
		h.makeOffer(t, buyer1, l.ID, 1)
	}

	_, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{Types: []string{"offer_countered"}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.notifications.List(ctx, "farmer-a", NotificationQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.notifications.List(ctx, "", NotificationQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	first, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotZero(t, first.NextBefore)

	rest, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{Limit: 2, BeforeID: first.NextBefore})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Zero(t, rest.NextBefore)
	assert.Less(t, rest.Items[0].ID, first.Items[1].ID)

	n, err := h.notifications.MarkRead(ctx, "farmer-a", []uint64{first.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	page, err := h.notifications.List(ctx, "farmer-a", NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.UnreadCount)
	assert.Len(t, page.Items, 2)

	n, err = h.notifications.MarkRead(ctx, "farmer-a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = h.notifications.MarkRead(ctx, "", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}
