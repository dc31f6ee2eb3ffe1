package dispatch

import (
	"time"

	bookingRepo "tradely/database/repository/booking"
	providerRepo "tradely/database/repository/provider"
	"tradely/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DispatchService turns a booking request into an accepted provider
// assignment via the offer queue.
type DispatchService interface {
	CreateDispatch(userID string, req models.DispatchRequest) (*models.Booking, error)
	AcceptOffer(bookingID, providerID string) (*models.Booking, error)
	DeclineOffer(bookingID, providerID string) (*models.Booking, error)
	ForceAdvanceOffer(bookingID string) (*models.Booking, error)
	GetOffersDebug(bookingID, requesterID string, isAdmin bool) (*models.OffersDebug, error)
	ListMyPendingOffers(providerID string) ([]models.PendingOfferSummary, error)
	SweepExpiredDispatches(limit int64) (int, error)
	SweepStaleOffers(limit int64) (int, error)
}

// DefaultDispatchService implements DispatchService.
type DefaultDispatchService struct {
	BookingRepo  bookingRepo.BookingRepository
	ProviderRepo providerRepo.ProviderRepository
	Discovery    *Discovery

	// Cache, when set, backs the provider offer-inbox lookups.
	Cache *redis.Client

	// OfferTimeout bounds a single offer; PendingExpiry bounds the whole
	// booking. Zero values fall back to the defaults.
	OfferTimeout  time.Duration
	PendingExpiry time.Duration

	// Now is overridable for tests; defaults to time.Now in UTC.
	Now    func() time.Time
	Logger *zap.Logger
}

func (s *DefaultDispatchService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *DefaultDispatchService) offerTimeout() time.Duration {
	if s.OfferTimeout > 0 {
		return s.OfferTimeout
	}
	return DefaultOfferTimeout
}

func (s *DefaultDispatchService) pendingExpiry() time.Duration {
	if s.PendingExpiry > 0 {
		return s.PendingExpiry
	}
	return DefaultPendingExpiry
}

func (s *DefaultDispatchService) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.L()
}
