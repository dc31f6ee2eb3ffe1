package dispatch

import (
	"strings"
	"sync"
	"time"

	bookingRepo "tradely/database/repository/booking"
	providerRepo "tradely/database/repository/provider"
	"tradely/models"
)

// In-memory repository fakes mirroring the Mongo implementations' contracts,
// including the version check on booking updates.

type memProviderRepo struct {
	mu        sync.Mutex
	providers map[string]models.Provider
}

func newMemProviderRepo(providers ...models.Provider) *memProviderRepo {
	r := &memProviderRepo{providers: make(map[string]models.Provider)}
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	return r
}

func (r *memProviderRepo) GetByID(id string) (*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, providerRepo.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *memProviderRepo) Create(p *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = *p
	return nil
}

func (r *memProviderRepo) Update(p *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.ID]; !ok {
		return providerRepo.ErrNotFound
	}
	r.providers[p.ID] = *p
	return nil
}

func (r *memProviderRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return providerRepo.ErrNotFound
	}
	delete(r.providers, id)
	return nil
}

func (r *memProviderRepo) FindByServiceTypes(serviceTypes []string) ([]models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Provider
	for _, p := range r.providers {
		if !p.IsAvailable {
			continue
		}
		switch p.Profile.Status {
		case models.ProviderStatusActive, models.ProviderStatusOnline:
		default:
			continue
		}
		if len(p.Profile.LocationGeo.Coordinates) < 2 {
			continue
		}
		for _, st := range serviceTypes {
			if strings.EqualFold(p.ServiceCatalogue.ServiceType, st) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (r *memProviderRepo) SetAvailability(id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return providerRepo.ErrNotFound
	}
	p.IsAvailable = available
	r.providers[id] = p
	return nil
}

func (r *memProviderRepo) setStatus(id, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.providers[id]
	p.Profile.Status = status
	r.providers[id] = p
}

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking

	// failUpdates injects version mismatches for the next N updates.
	failUpdates int
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking)}
}

func cloneBooking(b *models.Booking) *models.Booking {
	cp := *b
	cp.Offers = append([]models.Offer(nil), b.Offers...)
	cp.PendingProviders = append([]string(nil), b.PendingProviders...)
	cp.ProviderResponses = append([]models.ProviderResponse(nil), b.ProviderResponses...)
	for i := range cp.Offers {
		if cp.Offers[i].RespondedAt != nil {
			t := *cp.Offers[i].RespondedAt
			cp.Offers[i].RespondedAt = &t
		}
	}
	for i := range cp.ProviderResponses {
		if cp.ProviderResponses[i].RespondedAt != nil {
			t := *cp.ProviderResponses[i].RespondedAt
			cp.ProviderResponses[i].RespondedAt = &t
		}
	}
	if b.ProviderResponseTimeout != nil {
		t := *b.ProviderResponseTimeout
		cp.ProviderResponseTimeout = &t
	}
	if b.PendingExpiresAt != nil {
		t := *b.PendingExpiresAt
		cp.PendingExpiresAt = &t
	}
	return &cp
}

func (r *memBookingRepo) Create(b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *memBookingRepo) GetByID(id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memBookingRepo) UpdateWithVersion(b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates > 0 {
		r.failUpdates--
		return bookingRepo.ErrVersionMismatch
	}
	stored, ok := r.bookings[b.ID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if stored.Version != b.Version {
		return bookingRepo.ErrVersionMismatch
	}
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *memBookingRepo) FindDispatchExpired(cutoff time.Time, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status != models.BookingStatusRequested {
			continue
		}
		if b.PendingExpiresAt == nil || b.PendingExpiresAt.After(cutoff) {
			continue
		}
		if b.AcceptedOffer() != nil {
			continue
		}
		out = append(out, *cloneBooking(b))
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindStaleOffers(cutoff time.Time, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status != models.BookingStatusRequested {
			continue
		}
		if b.ProviderResponseTimeout == nil || b.ProviderResponseTimeout.After(cutoff) {
			continue
		}
		if b.PendingOffer() == nil {
			continue
		}
		out = append(out, *cloneBooking(b))
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindPendingOffersForProvider(providerID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status != models.BookingStatusRequested {
			continue
		}
		po := b.PendingOffer()
		if po == nil || po.ProviderID != providerID {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	return out, nil
}

// fakeClock drives the service's Now hook.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// degreesPerKm converts a north-south displacement to degrees of latitude,
// so a provider can be placed at a known haversine distance from the origin.
const degreesPerKm = 1.0 / 111.19492664455873

var testOrigin = models.NewGeoPoint(36.8172, -1.2864)

func providerAtKm(id string, km, rating, price float64) models.Provider {
	return models.Provider{
		ID:          id,
		IsAvailable: true,
		Profile: models.Profile{
			ProviderName: id,
			Status:       models.ProviderStatusActive,
			Rating:       rating,
			LocationGeo:  models.NewGeoPoint(testOrigin.Lng(), testOrigin.Lat()+km*degreesPerKm),
		},
		ServiceCatalogue: models.ServiceCatalogue{
			ServiceType: "Plumbing",
			Category:    "Home Repair",
			Price:       price,
		},
	}
}

func newTestService(br bookingRepo.BookingRepository, pr providerRepo.ProviderRepository, clock *fakeClock) *DefaultDispatchService {
	return &DefaultDispatchService{
		BookingRepo:  br,
		ProviderRepo: pr,
		Discovery:    &Discovery{ProviderRepo: pr},
		Now:          clock.Now,
	}
}
