package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingRepo "tradely/database/repository/booking"
	"tradely/models"
	"tradely/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Timing defaults: a provider gets 120s to answer one offer, the customer
// waits at most 5 minutes overall regardless of queue length.
const (
	DefaultOfferTimeout  = 120 * time.Second
	DefaultPendingExpiry = 5 * time.Minute
)

// casAttempts bounds the read-validate-mutate-persist retry loop when
// concurrent writers collide on the same booking.
const casAttempts = 3

// Customer-facing status messages carried on the booking.
const (
	MsgSearching       = "Searching for the best available provider..."
	MsgNoLiveProviders = "No live providers currently available."
	MsgDispatchExpired = "Request expired before any provider accepted."
)

// CreateDispatch builds the ranked candidate queue and hands the job to the
// top candidate as a time-boxed offer. The booking is always created: when
// discovery finds nobody, it starts out exhausted with an explanatory
// message instead of failing.
func (s *DefaultDispatchService) CreateDispatch(userID string, req models.DispatchRequest) (*models.Booking, error) {
	if !req.Location.Valid() {
		return nil, NewConflictError("invalid location coordinates")
	}
	mode := req.SortPreference
	if mode == "" {
		mode = models.SortMix
	}

	now := s.now()
	booking := &models.Booking{
		ID:             uuid.New().String(),
		UserID:         userID,
		ServiceType:    req.ServiceType,
		SortPreference: mode,
		DispatchMode:   models.DispatchModeOffersQueue,
		Status:         models.BookingStatusRequested,
		LocationGeo:    req.Location,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Broadcast {
		booking.DispatchMode = models.DispatchModeResponseSet
		booking.OverallStatus = models.OverallStatusPending
	}

	candidates, err := s.Discovery.FindCandidates(req.ServiceType, req.Location)
	if err != nil {
		return nil, fmt.Errorf("dispatch discovery failed: %w", err)
	}

	if len(candidates) == 0 {
		booking.AutoAssignMessage = MsgNoLiveProviders
	} else {
		ranked, rankErr := Rank(candidates, mode)
		if rankErr != nil {
			return nil, rankErr
		}
		if booking.DispatchMode == models.DispatchModeResponseSet {
			s.seedResponseSet(booking, ranked, now)
		} else {
			s.seedOfferChain(booking, ranked, now)
		}
	}

	if err := s.BookingRepo.Create(booking); err != nil {
		return nil, fmt.Errorf("failed to create dispatch for user %s: %w", userID, err)
	}

	s.log().Info("dispatch created",
		zap.String("bookingId", booking.ID),
		zap.String("userId", userID),
		zap.String("serviceType", req.ServiceType),
		zap.String("mode", booking.DispatchMode),
		zap.Int("candidates", len(candidates)))
	return booking, nil
}

// seedOfferChain loads the ranked queue onto a fresh booking: head becomes
// the pending offer, the tail waits in rank order.
func (s *DefaultDispatchService) seedOfferChain(b *models.Booking, ranked RankResult, now time.Time) {
	head := ranked.Candidates[0]
	b.Offers = []models.Offer{{
		ProviderID: head.ID(),
		Status:     models.OfferStatusPending,
		OfferedAt:  now,
	}}
	for _, c := range ranked.Candidates[1:] {
		b.PendingProviders = append(b.PendingProviders, c.ID())
	}
	timeout := now.Add(s.offerTimeout())
	b.ProviderResponseTimeout = &timeout
	deadline := now.Add(s.pendingExpiry())
	b.PendingExpiresAt = &deadline
	if ranked.Fallback {
		b.AutoAssignMessage = ranked.Note
	} else {
		b.AutoAssignMessage = MsgSearching
	}
}

// expireIfNeeded resolves a timed-out pending offer and advances the queue.
// It must run before any accept/decline check so a stale offer can never be
// accepted. Returns true when it changed the booking.
func (s *DefaultDispatchService) expireIfNeeded(b *models.Booking, now time.Time) bool {
	if b.DispatchMode != models.DispatchModeOffersQueue {
		return false
	}
	if b.Status != models.BookingStatusRequested {
		return false
	}
	po := b.PendingOffer()
	if po == nil || b.ProviderResponseTimeout == nil {
		return false
	}
	if !now.After(*b.ProviderResponseTimeout) {
		return false
	}
	po.Status = models.OfferStatusExpired
	respondedAt := now
	po.RespondedAt = &respondedAt
	s.log().Info("offer expired",
		zap.String("bookingId", b.ID),
		zap.String("providerId", po.ProviderID))
	s.advanceOffer(b, now)
	return true
}

// advanceOffer pops queued candidates until one is still live, offering them
// the job with a refreshed timeout. Stale candidates are skipped silently
// and never re-queued. Safe to call with an empty queue.
func (s *DefaultDispatchService) advanceOffer(b *models.Booking, now time.Time) {
	for len(b.PendingProviders) > 0 {
		next := b.PendingProviders[0]
		b.PendingProviders = b.PendingProviders[1:]

		provider, err := s.ProviderRepo.GetByID(next)
		if err != nil || !provider.Live() {
			s.log().Debug("skipping stale candidate",
				zap.String("bookingId", b.ID),
				zap.String("providerId", next))
			continue
		}

		b.Offers = append(b.Offers, models.Offer{
			ProviderID: next,
			Status:     models.OfferStatusPending,
			OfferedAt:  now,
		})
		timeout := now.Add(s.offerTimeout())
		b.ProviderResponseTimeout = &timeout
		s.log().Info("offer advanced",
			zap.String("bookingId", b.ID),
			zap.String("providerId", next))
		return
	}

	// Queue exhausted with nobody live.
	b.ProviderResponseTimeout = nil
	if b.PendingOffer() == nil {
		b.AutoAssignMessage = MsgNoLiveProviders
	}
}

// AcceptOffer assigns the booking to the provider currently holding the
// pending offer and pauses that provider's availability so they cannot be
// offered other jobs concurrently.
func (s *DefaultDispatchService) AcceptOffer(bookingID, providerID string) (*models.Booking, error) {
	booking, err := s.withBooking(bookingID, func(b *models.Booking, now time.Time) error {
		if b.DispatchMode == models.DispatchModeResponseSet {
			return s.applyResponseAccept(b, providerID, now)
		}
		return s.applyOfferAccept(b, providerID, now)
	})
	if err != nil {
		return nil, err
	}

	// Auto-pause: the accepted provider stops receiving offers elsewhere.
	if err := s.ProviderRepo.SetAvailability(providerID, false); err != nil {
		s.log().Error("failed to auto-pause provider after acceptance",
			zap.String("bookingId", bookingID),
			zap.String("providerId", providerID),
			zap.Error(err))
	}
	s.invalidateInbox(providerID)

	s.log().Info("offer accepted",
		zap.String("bookingId", bookingID),
		zap.String("providerId", providerID))
	return booking, nil
}

// DeclineOffer resolves the pending offer as declined and cascades to the
// next queued candidate.
func (s *DefaultDispatchService) DeclineOffer(bookingID, providerID string) (*models.Booking, error) {
	booking, err := s.withBooking(bookingID, func(b *models.Booking, now time.Time) error {
		if b.DispatchMode == models.DispatchModeResponseSet {
			return s.applyResponseDecline(b, providerID, now)
		}
		return s.applyOfferDecline(b, providerID, now)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateInbox(providerID)
	s.log().Info("offer declined",
		zap.String("bookingId", bookingID),
		zap.String("providerId", providerID))
	return booking, nil
}

// ForceAdvanceOffer is the operational escape hatch: it expires the current
// pending offer unconditionally and advances the queue.
func (s *DefaultDispatchService) ForceAdvanceOffer(bookingID string) (*models.Booking, error) {
	return s.withBooking(bookingID, func(b *models.Booking, now time.Time) error {
		if b.DispatchMode != models.DispatchModeOffersQueue {
			return NewConflictError("force advance only applies to offer-queue bookings")
		}
		if b.Status != models.BookingStatusRequested {
			return NewConflictError("booking is not awaiting a provider")
		}
		if po := b.PendingOffer(); po != nil {
			po.Status = models.OfferStatusExpired
			respondedAt := now
			po.RespondedAt = &respondedAt
		}
		s.advanceOffer(b, now)
		return nil
	})
}

func (s *DefaultDispatchService) applyOfferAccept(b *models.Booking, providerID string, now time.Time) error {
	if b.Status != models.BookingStatusRequested {
		// A provider who was never part of this booking has no standing on
		// it; anyone who held an offer gets the state conflict instead.
		if b.OfferFor(providerID) == nil && b.ProviderID != providerID {
			return NewForbiddenError("you were never offered this booking")
		}
		return NewConflictError("booking is not awaiting a provider")
	}
	po := b.PendingOffer()
	if po == nil {
		if b.OfferFor(providerID) != nil {
			return NewConflictError("no active offer for you")
		}
		return NewConflictError("no active offer on this booking")
	}
	if po.ProviderID == "" {
		s.log().Error("offer entry missing provider reference", zap.String("bookingId", b.ID))
		return NewCorruptedError("offer entry missing provider reference")
	}
	if po.ProviderID != providerID {
		if b.OfferFor(providerID) != nil {
			return NewConflictError("no active offer for you")
		}
		return NewForbiddenError("you do not hold the pending offer")
	}

	po.Status = models.OfferStatusAccepted
	respondedAt := now
	po.RespondedAt = &respondedAt
	b.Status = models.BookingStatusInProgress
	b.ProviderID = providerID
	b.PendingProviders = nil
	b.ProviderResponseTimeout = nil
	b.AutoAssignMessage = ""
	return nil
}

func (s *DefaultDispatchService) applyOfferDecline(b *models.Booking, providerID string, now time.Time) error {
	if b.Status != models.BookingStatusRequested {
		if b.OfferFor(providerID) == nil && b.ProviderID != providerID {
			return NewForbiddenError("you were never offered this booking")
		}
		return NewConflictError("booking is not awaiting a provider")
	}
	po := b.PendingOffer()
	if po == nil {
		if b.OfferFor(providerID) != nil {
			return NewConflictError("no active offer for you")
		}
		return NewConflictError("no active offer on this booking")
	}
	if po.ProviderID == "" {
		s.log().Error("offer entry missing provider reference", zap.String("bookingId", b.ID))
		return NewCorruptedError("offer entry missing provider reference")
	}
	if po.ProviderID != providerID {
		if b.OfferFor(providerID) != nil {
			return NewConflictError("no active offer for you")
		}
		return NewForbiddenError("you do not hold the pending offer")
	}

	po.Status = models.OfferStatusDeclined
	respondedAt := now
	po.RespondedAt = &respondedAt
	s.advanceOffer(b, now)
	return nil
}

// withBooking runs one read-validate-mutate-persist cycle per booking under
// the repository's version check, retrying on concurrent writes. When a
// lazy expiry changed the booking but the requested mutation is rejected,
// the expiry is still persisted before the rejection is returned.
func (s *DefaultDispatchService) withBooking(bookingID string, mutate func(b *models.Booking, now time.Time) error) (*models.Booking, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		b, err := s.BookingRepo.GetByID(bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return nil, NewNotFoundError("booking not found")
			}
			return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
		}

		now := s.now()
		expired := s.expireIfNeeded(b, now)

		mutateErr := mutate(b, now)
		if mutateErr != nil && !expired {
			return nil, mutateErr
		}

		if err := s.BookingRepo.UpdateWithVersion(b); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionMismatch) {
				continue
			}
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return nil, NewNotFoundError("booking not found")
			}
			return nil, fmt.Errorf("failed to persist booking %s: %w", bookingID, err)
		}
		if mutateErr != nil {
			return nil, mutateErr
		}
		return b, nil
	}
	return nil, NewConflictError("booking is being updated concurrently, please retry")
}

// GetOffersDebug returns the dispatch state of a booking. Restricted to the
// booking's own customer or an admin. Touching the booking opportunistically
// resolves a stale offer.
func (s *DefaultDispatchService) GetOffersDebug(bookingID, requesterID string, isAdmin bool) (*models.OffersDebug, error) {
	var (
		b   *models.Booking
		now time.Time
	)
	for attempt := 0; attempt < casAttempts; attempt++ {
		loaded, err := s.BookingRepo.GetByID(bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return nil, NewNotFoundError("booking not found")
			}
			return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
		}
		if !isAdmin && loaded.UserID != requesterID {
			return nil, NewForbiddenError("not authorized to inspect this booking")
		}

		now = s.now()
		if !s.expireIfNeeded(loaded, now) {
			b = loaded
			break
		}
		if err := s.BookingRepo.UpdateWithVersion(loaded); err != nil {
			// A concurrent writer already resolved it; reload for a fresh view.
			if errors.Is(err, bookingRepo.ErrVersionMismatch) {
				continue
			}
			return nil, fmt.Errorf("failed to persist lazy expiry for booking %s: %w", bookingID, err)
		}
		b = loaded
		break
	}
	if b == nil {
		return nil, NewConflictError("booking is being updated concurrently, please retry")
	}

	var secondsLeft int64
	if b.ProviderResponseTimeout != nil {
		if remaining := b.ProviderResponseTimeout.Sub(now); remaining > 0 {
			secondsLeft = int64(remaining.Seconds())
		}
	}
	return &models.OffersDebug{
		BookingID:         b.ID,
		Status:            b.Status,
		OverallStatus:     b.OverallStatus,
		DispatchMode:      b.DispatchMode,
		Offers:            b.Offers,
		PendingProviders:  b.PendingProviders,
		ProviderResponses: b.ProviderResponses,
		SecondsLeft:       secondsLeft,
		AutoAssignMessage: b.AutoAssignMessage,
	}, nil
}

// ListMyPendingOffers is the provider-facing inbox: bookings where this
// provider currently holds the sole pending offer. Results are briefly
// cached; mutations by the same provider invalidate the cache.
func (s *DefaultDispatchService) ListMyPendingOffers(providerID string) ([]models.PendingOfferSummary, error) {
	if cached, ok := s.inboxFromCache(providerID); ok {
		return cached, nil
	}

	bookings, err := s.BookingRepo.FindPendingOffersForProvider(providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending offers for provider %s: %w", providerID, err)
	}

	now := s.now()
	out := []models.PendingOfferSummary{}
	for i := range bookings {
		b := &bookings[i]
		if s.expireIfNeeded(b, now) {
			// The offer lapsed; persist the advancement and drop it from the inbox.
			if err := s.BookingRepo.UpdateWithVersion(b); err != nil && !errors.Is(err, bookingRepo.ErrVersionMismatch) {
				s.log().Warn("failed to persist lazy expiry",
					zap.String("bookingId", b.ID), zap.Error(err))
			}
			continue
		}
		po := b.PendingOffer()
		if po == nil || po.ProviderID != providerID || b.ProviderResponseTimeout == nil {
			continue
		}
		remaining := b.ProviderResponseTimeout.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, models.PendingOfferSummary{
			BookingID:   b.ID,
			ServiceType: b.ServiceType,
			UserID:      b.UserID,
			OfferedAt:   po.OfferedAt,
			TimeoutAt:   *b.ProviderResponseTimeout,
			SecondsLeft: int64(remaining.Seconds()),
		})
	}

	s.inboxToCache(providerID, out)
	return out, nil
}

func (s *DefaultDispatchService) inboxFromCache(providerID string) ([]models.PendingOfferSummary, bool) {
	if s.Cache == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := s.Cache.Get(ctx, utils.OfferInboxPrefix+providerID).Result()
	if err != nil {
		return nil, false
	}
	var out []models.PendingOfferSummary
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *DefaultDispatchService) inboxToCache(providerID string, offers []models.PendingOfferSummary) {
	if s.Cache == nil {
		return
	}
	data, err := json.Marshal(offers)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Cache.Set(ctx, utils.OfferInboxPrefix+providerID, data, utils.OfferInboxTTL).Err(); err != nil {
		s.log().Debug("failed to cache offer inbox", zap.String("providerId", providerID), zap.Error(err))
	}
}

func (s *DefaultDispatchService) invalidateInbox(providerID string) {
	if s.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Cache.Del(ctx, utils.OfferInboxPrefix+providerID).Err(); err != nil {
		s.log().Debug("failed to invalidate offer inbox", zap.String("providerId", providerID), zap.Error(err))
	}
}
