package bookingRepo

import (
	"errors"
	"time"

	"tradely/models"
)

// ErrNotFound is returned when no booking matches the given ID.
var ErrNotFound = errors.New("booking not found")

// ErrVersionMismatch is returned by UpdateWithVersion when the stored
// version no longer matches the one the caller read. The caller re-reads
// and retries.
var ErrVersionMismatch = errors.New("booking version mismatch")

// BookingRepository defines methods for booking data access.
type BookingRepository interface {
	// Create inserts a new booking record.
	Create(booking *models.Booking) error
	// GetByID retrieves a booking by its unique ID.
	GetByID(id string) (*models.Booking, error)
	// UpdateWithVersion persists the booking with a compare-and-swap on its
	// version field, bumping the version on success.
	UpdateWithVersion(booking *models.Booking) error
	// FindDispatchExpired returns requested bookings whose overall pending
	// deadline has passed without any accepted offer.
	FindDispatchExpired(cutoff time.Time, limit int64) ([]models.Booking, error)
	// FindStaleOffers returns requested bookings holding a pending offer whose
	// response timeout has passed.
	FindStaleOffers(cutoff time.Time, limit int64) ([]models.Booking, error)
	// FindPendingOffersForProvider returns requested bookings where the given
	// provider currently holds the pending offer.
	FindPendingOffersForProvider(providerID string) ([]models.Booking, error)
}
