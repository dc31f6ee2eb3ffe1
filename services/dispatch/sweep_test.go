package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradely/models"
)

func TestSweepExpiredDispatches(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	// A second dispatch gets assigned before the deadline and must survive.
	assigned, err := svc.CreateDispatch("user-2", models.DispatchRequest{
		ServiceType:    "Plumbing",
		Location:       testOrigin,
		SortPreference: models.SortRating,
	})
	require.NoError(t, err)
	_, err = svc.AcceptOffer(assigned.ID, "p1")
	require.NoError(t, err)

	clock.Advance(DefaultPendingExpiry + time.Second)

	n, err := svc.SweepExpiredDispatches(50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusExpired, stored.Status)
	assert.Equal(t, MsgDispatchExpired, stored.AutoAssignMessage)
	assert.Empty(t, stored.PendingProviders)
	assert.Nil(t, stored.ProviderResponseTimeout)
	assert.Nil(t, stored.PendingExpiresAt)
	require.NotEmpty(t, stored.Offers)
	assert.Equal(t, models.OfferStatusExpired, stored.Offers[0].Status)

	kept, err := br.GetByID(assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusInProgress, kept.Status)
	assert.Equal(t, "p1", kept.ProviderID)
}

func TestSweepExpiredDispatchesSkipsFresh(t *testing.T) {
	svc, _, _, clock, _ := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(time.Minute)
	n, err := svc.SweepExpiredDispatches(50)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepStaleOffersAdvancesQueue(t *testing.T) {
	svc, br, _, clock, booking := setupDispatch(t, threeRankedProviders()...)

	clock.Advance(DefaultOfferTimeout + time.Second)

	n, err := svc.SweepStaleOffers(50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := br.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRequested, stored.Status)
	require.Len(t, stored.Offers, 2)
	assert.Equal(t, models.OfferStatusExpired, stored.Offers[0].Status)
	assert.Equal(t, "p2", stored.Offers[1].ProviderID)
	assert.Equal(t, models.OfferStatusPending, stored.Offers[1].Status)
	assertSinglePending(t, stored)

	// The replacement offer is fresh; an immediate re-sweep is a no-op.
	n, err = svc.SweepStaleOffers(50)
	require.NoError(t, err)
	assert.Zero(t, n)
}
