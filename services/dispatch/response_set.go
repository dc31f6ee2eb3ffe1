package dispatch

import (
	"time"

	"tradely/models"
)

// The response-set variant notifies every ranked candidate at once instead
// of walking an ordered queue. The first acceptance wins under the same
// version-checked write discipline; remaining invitations are superseded.

func (s *DefaultDispatchService) seedResponseSet(b *models.Booking, ranked RankResult, now time.Time) {
	for _, c := range ranked.Candidates {
		b.ProviderResponses = append(b.ProviderResponses, models.ProviderResponse{
			ProviderID: c.ID(),
			Status:     models.ResponseStatusAwaiting,
			NotifiedAt: now,
		})
	}
	deadline := now.Add(s.pendingExpiry())
	b.PendingExpiresAt = &deadline
	if ranked.Fallback {
		b.AutoAssignMessage = ranked.Note
	} else {
		b.AutoAssignMessage = MsgSearching
	}
}

func (s *DefaultDispatchService) applyResponseAccept(b *models.Booking, providerID string, now time.Time) error {
	res := b.ResponseFor(providerID)
	if b.Status != models.BookingStatusRequested || b.OverallStatus != models.OverallStatusPending {
		if res == nil && b.ProviderID != providerID {
			return NewForbiddenError("you were not invited to this booking")
		}
		return NewConflictError("booking is not awaiting a provider")
	}
	if res == nil {
		return NewForbiddenError("you were not invited to this booking")
	}
	if res.Status != models.ResponseStatusAwaiting {
		return NewConflictError("no active request for you")
	}

	respondedAt := now
	res.Status = models.ResponseStatusAccepted
	res.RespondedAt = &respondedAt
	for i := range b.ProviderResponses {
		if b.ProviderResponses[i].Status == models.ResponseStatusAwaiting {
			b.ProviderResponses[i].Status = models.ResponseStatusSuperseded
		}
	}
	b.OverallStatus = models.OverallStatusInProgress
	b.Status = models.BookingStatusInProgress
	b.ProviderID = providerID
	b.PendingExpiresAt = nil
	b.AutoAssignMessage = ""
	return nil
}

func (s *DefaultDispatchService) applyResponseDecline(b *models.Booking, providerID string, now time.Time) error {
	res := b.ResponseFor(providerID)
	if b.Status != models.BookingStatusRequested || b.OverallStatus != models.OverallStatusPending {
		if res == nil && b.ProviderID != providerID {
			return NewForbiddenError("you were not invited to this booking")
		}
		return NewConflictError("booking is not awaiting a provider")
	}
	if res == nil {
		return NewForbiddenError("you were not invited to this booking")
	}
	if res.Status != models.ResponseStatusAwaiting {
		return NewConflictError("no active request for you")
	}

	respondedAt := now
	res.Status = models.ResponseStatusDeclined
	res.RespondedAt = &respondedAt
	if b.AwaitingResponses() == 0 {
		// Everyone declined; the sweep will expire the booking at its deadline.
		b.AutoAssignMessage = MsgNoLiveProviders
	}
	return nil
}
