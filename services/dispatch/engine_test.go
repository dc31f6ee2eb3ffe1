package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradely/models"
)

// threeRankedProviders yields p1 > p2 > p3 under the rating sort.
func threeRankedProviders() []models.Provider {
	return []models.Provider{
		providerAtKm("p1", 2, 4.8, 100),
		providerAtKm("p2", 5, 4.5, 120),
		providerAtKm("p3", 8, 4.2, 90),
	}
}

func setupDispatch(t *testing.T, providers ...models.Provider) (*DefaultDispatchService, *memBookingRepo, *memProviderRepo, *fakeClock, *models.Booking) {
	t.Helper()
	br := newMemBookingRepo()
	pr := newMemProviderRepo(providers...)
	clock := newFakeClock()
	svc := newTestService(br, pr, clock)

	booking, err := svc.CreateDispatch("user-1", models.DispatchRequest{
		ServiceType:    "Plumbing",
		Location:       testOrigin,
		SortPreference: models.SortRating,
	})
	require.NoError(t, err)
	return svc, br, pr, clock, booking
}

// assertSinglePending checks the core queue invariant: at most one offer is
// pending at any time.
func assertSinglePending(t *testing.T, b *models.Booking) {
	t.Helper()
	pending := 0
	for _, o := range b.Offers {
		if o.Status == models.OfferStatusPending {
			pending++
		}
	}
	assert.LessOrEqual(t, pending, 1)
}

func TestCreateDispatchSeedsOfferChain(t *testing.T) {
	_, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	assert.Equal(t, models.BookingStatusRequested, booking.Status)
	assert.Equal(t, models.DispatchModeOffersQueue, booking.DispatchMode)
	require.Len(t, booking.Offers, 1)
	assert.Equal(t, "p1", booking.Offers[0].ProviderID)
	assert.Equal(t, models.OfferStatusPending, booking.Offers[0].Status)
	assert.Equal(t, []string{"p2", "p3"}, booking.PendingProviders)

	require.NotNil(t, booking.ProviderResponseTimeout)
	assert.Equal(t, clock.Now().Add(DefaultOfferTimeout), *booking.ProviderResponseTimeout)
	require.NotNil(t, booking.PendingExpiresAt)
	assert.Equal(t, clock.Now().Add(DefaultPendingExpiry), *booking.PendingExpiresAt)
	assert.Equal(t, MsgSearching, booking.AutoAssignMessage)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, stored.ID)
	assert.Equal(t, int64(1), stored.Version)
}

func TestCreateDispatchDefaultsToMix(t *testing.T) {
	br := newMemBookingRepo()
	pr := newMemProviderRepo(threeRankedProviders()...)
	svc := newTestService(br, pr, newFakeClock())

	booking, err := svc.CreateDispatch("user-1", models.DispatchRequest{
		ServiceType: "Plumbing",
		Location:    testOrigin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SortMix, booking.SortPreference)
}

func TestCreateDispatchInvalidLocation(t *testing.T) {
	svc := newTestService(newMemBookingRepo(), newMemProviderRepo(), newFakeClock())

	_, err := svc.CreateDispatch("user-1", models.DispatchRequest{
		ServiceType: "Plumbing",
		Location:    models.GeoPoint{},
	})
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
}

func TestCreateDispatchNoProviders(t *testing.T) {
	br := newMemBookingRepo()
	svc := newTestService(br, newMemProviderRepo(), newFakeClock())

	// The booking is still created, immediately exhausted, so the customer
	// has something to look at.
	booking, err := svc.CreateDispatch("user-1", models.DispatchRequest{
		ServiceType:    "Plumbing",
		Location:       testOrigin,
		SortPreference: models.SortRating,
	})
	require.NoError(t, err)
	assert.Empty(t, booking.Offers)
	assert.Empty(t, booking.PendingProviders)
	assert.Nil(t, booking.ProviderResponseTimeout)
	assert.Equal(t, MsgNoLiveProviders, booking.AutoAssignMessage)
	assert.Equal(t, models.BookingStatusRequested, booking.Status)

	_, err = br.GetByID(booking.ID)
	require.NoError(t, err)
}

func TestCreateDispatchSurfacesFallbackNote(t *testing.T) {
	br := newMemBookingRepo()
	// Both below every rating bar: rating mode falls back to distance order.
	pr := newMemProviderRepo(
		providerAtKm("p1", 5, 2.0, 100),
		providerAtKm("p2", 2, 2.5, 100),
	)
	svc := newTestService(br, pr, newFakeClock())

	booking, err := svc.CreateDispatch("user-1", models.DispatchRequest{
		ServiceType:    "Plumbing",
		Location:       testOrigin,
		SortPreference: models.SortRating,
	})
	require.NoError(t, err)
	require.Len(t, booking.Offers, 1)
	assert.Equal(t, "p2", booking.Offers[0].ProviderID)
	assert.Equal(t, noteRatingFallback, booking.AutoAssignMessage)
}

func TestDeclineCascadesToNextCandidate(t *testing.T) {
	svc, _, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(30 * time.Second)
	updated, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)

	require.Len(t, updated.Offers, 2)
	assert.Equal(t, models.OfferStatusDeclined, updated.Offers[0].Status)
	require.NotNil(t, updated.Offers[0].RespondedAt)
	assert.Equal(t, "p2", updated.Offers[1].ProviderID)
	assert.Equal(t, models.OfferStatusPending, updated.Offers[1].Status)
	assert.Equal(t, []string{"p3"}, updated.PendingProviders)
	// Timeout restarts for the new holder.
	require.NotNil(t, updated.ProviderResponseTimeout)
	assert.Equal(t, clock.Now().Add(DefaultOfferTimeout), *updated.ProviderResponseTimeout)
	assertSinglePending(t, updated)
}

func TestDeclineByNonHolder(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	// p2 is queued but does not hold the offer.
	_, err := svc.DeclineOffer(booking.ID, "p2")
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, ErrorCode(err))
}

func TestDeclineTwice(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	_, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)

	// p1 already resolved their offer: conflict, not forbidden.
	_, err = svc.DeclineOffer(booking.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
	assert.Contains(t, err.Error(), "no active offer for you")
}

func TestAdvanceSkipsStaleCandidates(t *testing.T) {
	svc, _, pr, _, booking := setupDispatch(t, threeRankedProviders()...)

	// p2 went offline while waiting in the queue.
	require.NoError(t, pr.SetAvailability("p2", false))

	updated, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)

	// p2 is skipped without an offer entry and never re-queued.
	require.Len(t, updated.Offers, 2)
	assert.Equal(t, "p3", updated.Offers[1].ProviderID)
	assert.Empty(t, updated.PendingProviders)
	assertSinglePending(t, updated)
}

func TestAdvanceExhaustsWhenNobodyLive(t *testing.T) {
	svc, _, pr, _, booking := setupDispatch(t, threeRankedProviders()...)

	require.NoError(t, pr.SetAvailability("p2", false))
	pr.setStatus("p3", models.ProviderStatusOffline)

	updated, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusRequested, updated.Status)
	assert.Nil(t, updated.PendingOffer())
	assert.Nil(t, updated.ProviderResponseTimeout)
	assert.Empty(t, updated.PendingProviders)
	assert.Equal(t, MsgNoLiveProviders, updated.AutoAssignMessage)
}

func TestAcceptAssignsBookingAndPausesProvider(t *testing.T) {
	svc, br, pr, _, booking := setupDispatch(t, threeRankedProviders()...)

	updated, err := svc.AcceptOffer(booking.ID, "p1")
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusInProgress, updated.Status)
	assert.Equal(t, "p1", updated.ProviderID)
	assert.Empty(t, updated.PendingProviders)
	assert.Nil(t, updated.ProviderResponseTimeout)
	assert.Empty(t, updated.AutoAssignMessage)
	accepted := updated.AcceptedOffer()
	require.NotNil(t, accepted)
	assert.Equal(t, "p1", accepted.ProviderID)
	require.NotNil(t, accepted.RespondedAt)

	// The winning provider is auto-paused.
	p1, err := pr.GetByID("p1")
	require.NoError(t, err)
	assert.False(t, p1.IsAvailable)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusInProgress, stored.Status)
}

func TestAcceptByNonHolder(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	// p3 is queued but was never offered the job.
	_, err := svc.AcceptOffer(booking.ID, "p3")
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, ErrorCode(err))
}

func TestAcceptLocksOutLaterResponses(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	_, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)
	_, err = svc.AcceptOffer(booking.ID, "p2")
	require.NoError(t, err)

	// p3 was queued but never offered the job: no standing at all.
	_, err = svc.AcceptOffer(booking.ID, "p3")
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	// p2 held (and won) an offer; a late response is a state conflict.
	_, err = svc.DeclineOffer(booking.ID, "p2")
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))

	// Same split for p1, who declined earlier.
	_, err = svc.AcceptOffer(booking.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
}

func TestExpiredOfferCannotBeAccepted(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(DefaultOfferTimeout + time.Second)

	_, err := svc.AcceptOffer(booking.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
	assert.Contains(t, err.Error(), "no active offer for you")

	// The lazy expiry is persisted even though the accept was rejected.
	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	require.Len(t, stored.Offers, 2)
	assert.Equal(t, models.OfferStatusExpired, stored.Offers[0].Status)
	assert.Equal(t, "p2", stored.Offers[1].ProviderID)
	assert.Equal(t, models.OfferStatusPending, stored.Offers[1].Status)
	assertSinglePending(t, stored)
}

func TestAcceptOnUnknownBooking(t *testing.T) {
	svc := newTestService(newMemBookingRepo(), newMemProviderRepo(), newFakeClock())

	_, err := svc.AcceptOffer("missing", "p1")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestAcceptRetriesOnVersionMismatch(t *testing.T) {
	svc, br, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	br.failUpdates = 1
	updated, err := svc.AcceptOffer(booking.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusInProgress, updated.Status)
}

func TestAcceptGivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, br, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	br.failUpdates = casAttempts
	_, err := svc.AcceptOffer(booking.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
}

func TestForceAdvanceOffer(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	updated, err := svc.ForceAdvanceOffer(booking.ID)
	require.NoError(t, err)

	require.Len(t, updated.Offers, 2)
	assert.Equal(t, models.OfferStatusExpired, updated.Offers[0].Status)
	assert.Equal(t, "p2", updated.Offers[1].ProviderID)
	assert.Equal(t, models.OfferStatusPending, updated.Offers[1].Status)

	// Not applicable once the booking is assigned.
	_, err = svc.AcceptOffer(booking.ID, "p2")
	require.NoError(t, err)
	_, err = svc.ForceAdvanceOffer(booking.ID)
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
}

func TestDispatchLifecycleEndToEnd(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	// p1 declines, p2 lets the offer time out, p3 accepts.
	updated, err := svc.DeclineOffer(booking.ID, "p1")
	require.NoError(t, err)
	assertSinglePending(t, updated)

	clock.Advance(DefaultOfferTimeout + time.Second)
	n, err := svc.SweepStaleOffers(10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	require.Len(t, stored.Offers, 3)
	assert.Equal(t, "p3", stored.Offers[2].ProviderID)
	assertSinglePending(t, stored)

	final, err := svc.AcceptOffer(booking.ID, "p3")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusInProgress, final.Status)
	assert.Equal(t, "p3", final.ProviderID)
	assert.Equal(t, models.OfferStatusDeclined, final.Offers[0].Status)
	assert.Equal(t, models.OfferStatusExpired, final.Offers[1].Status)
	assert.Equal(t, models.OfferStatusAccepted, final.Offers[2].Status)
	assertSinglePending(t, final)
}

func TestGetOffersDebugAuthorization(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	_, err := svc.GetOffersDebug(booking.ID, "someone-else", false)
	require.Error(t, err)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	dbg, err := svc.GetOffersDebug(booking.ID, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, dbg.BookingID)
	assert.Equal(t, int64(120), dbg.SecondsLeft)

	// Admins bypass the ownership check.
	dbg, err = svc.GetOffersDebug(booking.ID, "ops", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3"}, dbg.PendingProviders)
}

func TestGetOffersDebugResolvesStaleOffer(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(DefaultOfferTimeout + time.Second)

	dbg, err := svc.GetOffersDebug(booking.ID, "user-1", false)
	require.NoError(t, err)
	require.Len(t, dbg.Offers, 2)
	assert.Equal(t, models.OfferStatusExpired, dbg.Offers[0].Status)
	assert.Equal(t, models.OfferStatusPending, dbg.Offers[1].Status)

	// The advancement was persisted, not just reported.
	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestGetOffersDebugBoundedUnderContention(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(DefaultOfferTimeout + time.Second)

	// One lost write is retried and absorbed.
	br.failUpdates = 1
	dbg, err := svc.GetOffersDebug(booking.ID, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusExpired, dbg.Offers[0].Status)

	// Unrelenting contention surfaces as a conflict instead of spinning.
	clock.Advance(DefaultOfferTimeout + time.Second)
	br.failUpdates = casAttempts
	_, err = svc.GetOffersDebug(booking.ID, "user-1", false)
	require.Error(t, err)
	assert.Equal(t, CodeConflict, ErrorCode(err))
}

func TestListMyPendingOffers(t *testing.T) {
	svc, _, _, _, booking := setupDispatch(t, threeRankedProviders()...)

	offers, err := svc.ListMyPendingOffers("p1")
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, booking.ID, offers[0].BookingID)
	assert.Equal(t, "Plumbing", offers[0].ServiceType)
	assert.Equal(t, int64(120), offers[0].SecondsLeft)

	// Queued providers have nothing in their inbox yet.
	offers, err = svc.ListMyPendingOffers("p2")
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestListMyPendingOffersDropsExpired(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(DefaultOfferTimeout + time.Second)

	// p1's stale offer is resolved and persisted on read.
	offers, err := svc.ListMyPendingOffers("p1")
	require.NoError(t, err)
	assert.Empty(t, offers)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusExpired, stored.Offers[0].Status)

	// The offer moved to p2's inbox.
	offers, err = svc.ListMyPendingOffers("p2")
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, booking.ID, offers[0].BookingID)
}
