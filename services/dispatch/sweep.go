package dispatch

import (
	"errors"
	"fmt"

	bookingRepo "tradely/database/repository/booking"
	"tradely/models"

	"go.uber.org/zap"
)

// SweepExpiredDispatches expires whole bookings whose outer pending deadline
// has passed without any acceptance. This is distinct from a single offer
// expiring: the booking itself becomes terminal. Version conflicts are
// skipped; a racing accept won, or the next sweep picks the booking up again.
func (s *DefaultDispatchService) SweepExpiredDispatches(limit int64) (int, error) {
	now := s.now()
	bookings, err := s.BookingRepo.FindDispatchExpired(now, limit)
	if err != nil {
		return 0, fmt.Errorf("expired-dispatch scan failed: %w", err)
	}

	count := 0
	for i := range bookings {
		b := &bookings[i]
		if b.Status != models.BookingStatusRequested || b.AcceptedOffer() != nil {
			continue
		}
		if po := b.PendingOffer(); po != nil {
			po.Status = models.OfferStatusExpired
			respondedAt := now
			po.RespondedAt = &respondedAt
		}
		// Response-set bookings: close out every open invitation so a late
		// accept cannot revive the booking.
		for j := range b.ProviderResponses {
			if b.ProviderResponses[j].Status == models.ResponseStatusAwaiting {
				b.ProviderResponses[j].Status = models.ResponseStatusSuperseded
			}
		}
		b.Status = models.BookingStatusExpired
		b.PendingProviders = nil
		b.ProviderResponseTimeout = nil
		b.PendingExpiresAt = nil
		b.AutoAssignMessage = MsgDispatchExpired

		if err := s.BookingRepo.UpdateWithVersion(b); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionMismatch) {
				continue
			}
			s.log().Error("failed to expire dispatch",
				zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		s.log().Info("dispatch expired", zap.String("bookingId", b.ID))
		count++
	}
	return count, nil
}

// SweepStaleOffers resolves timed-out pending offers for bookings nobody is
// touching, so the cascade keeps moving without waiting for a request to
// arrive. Correctness does not depend on this sweep; it only improves
// latency over the lazy expiry checks.
func (s *DefaultDispatchService) SweepStaleOffers(limit int64) (int, error) {
	now := s.now()
	bookings, err := s.BookingRepo.FindStaleOffers(now, limit)
	if err != nil {
		return 0, fmt.Errorf("stale-offer scan failed: %w", err)
	}

	count := 0
	for i := range bookings {
		b := &bookings[i]
		if !s.expireIfNeeded(b, now) {
			continue
		}
		if err := s.BookingRepo.UpdateWithVersion(b); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionMismatch) {
				continue
			}
			s.log().Error("failed to persist stale-offer expiry",
				zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}
