package models

import "time"

// Booking status values (offers-queue flow).
const (
	BookingStatusRequested  = "requested"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
	BookingStatusRejected   = "rejected"
	BookingStatusExpired    = "expired"
)

// Overall status values (response-set flow).
const (
	OverallStatusPending    = "pending"
	OverallStatusInProgress = "in-progress"
	OverallStatusCompleted  = "completed"
)

// DispatchMode selects the shape of the booking at creation time. Engine
// operations switch on this tag once; they never probe field presence.
const (
	DispatchModeOffersQueue = "offers_queue"
	DispatchModeResponseSet = "response_set"
)

// Offer status values.
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusDeclined = "declined"
	OfferStatusExpired  = "expired"
)

// Provider response status values (response-set flow).
const (
	ResponseStatusAwaiting   = "awaiting"
	ResponseStatusAccepted   = "accepted"
	ResponseStatusDeclined   = "declined"
	ResponseStatusSuperseded = "superseded"
)

// Sort preference modes for building the candidate queue.
const (
	SortNearby   = "nearby"
	SortRating   = "rating"
	SortCheapest = "cheapest"
	SortMix      = "mix"
)

// Offer is a single time-boxed proposal of a booking to one provider.
type Offer struct {
	ProviderID  string     `bson:"providerId" json:"providerId"`
	Status      string     `bson:"status" json:"status"`
	OfferedAt   time.Time  `bson:"offeredAt" json:"offeredAt"`
	RespondedAt *time.Time `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// ProviderResponse tracks one provider's answer in the response-set flow,
// where every ranked candidate is notified at once.
type ProviderResponse struct {
	ProviderID  string     `bson:"providerId" json:"providerId"`
	Status      string     `bson:"status" json:"status"`
	NotifiedAt  time.Time  `bson:"notifiedAt" json:"notifiedAt"`
	RespondedAt *time.Time `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// Booking is the aggregate the dispatch engine mutates. Concurrent writers
// go through a compare-and-swap on Version; see the booking repository.
type Booking struct {
	ID             string `bson:"id" json:"id"`
	UserID         string `bson:"userId" json:"userId"`
	ServiceType    string `bson:"serviceType" json:"serviceType"`
	SortPreference string `bson:"sortPreference" json:"sortPreference"`
	DispatchMode   string `bson:"dispatchMode" json:"dispatchMode"`

	Status        string `bson:"status" json:"status"`
	OverallStatus string `bson:"overallStatus,omitempty" json:"overallStatus,omitempty"`

	// ProviderID is set if and only if some offer (or response) was accepted.
	ProviderID string `bson:"providerId,omitempty" json:"providerId,omitempty"`

	Offers            []Offer            `bson:"offers,omitempty" json:"offers,omitempty"`
	PendingProviders  []string           `bson:"pendingProviders,omitempty" json:"pendingProviders,omitempty"`
	ProviderResponses []ProviderResponse `bson:"providerResponses,omitempty" json:"providerResponses,omitempty"`

	// ProviderResponseTimeout bounds the single pending offer; nil when no
	// offer is pending. PendingExpiresAt bounds the whole booking and is
	// enforced by the background sweep.
	ProviderResponseTimeout *time.Time `bson:"providerResponseTimeout,omitempty" json:"providerResponseTimeout,omitempty"`
	PendingExpiresAt        *time.Time `bson:"pendingExpiresAt,omitempty" json:"pendingExpiresAt,omitempty"`

	AutoAssignMessage string   `bson:"autoAssignMessage,omitempty" json:"autoAssignMessage,omitempty"`
	LocationGeo       GeoPoint `bson:"locationGeo" json:"locationGeo"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PendingOffer returns a pointer to the single pending offer, or nil.
func (b *Booking) PendingOffer() *Offer {
	for i := range b.Offers {
		if b.Offers[i].Status == OfferStatusPending {
			return &b.Offers[i]
		}
	}
	return nil
}

// AcceptedOffer returns a pointer to the accepted offer, or nil.
func (b *Booking) AcceptedOffer() *Offer {
	for i := range b.Offers {
		if b.Offers[i].Status == OfferStatusAccepted {
			return &b.Offers[i]
		}
	}
	return nil
}

// OfferFor returns the most recent offer entry held by the given provider.
func (b *Booking) OfferFor(providerID string) *Offer {
	for i := len(b.Offers) - 1; i >= 0; i-- {
		if b.Offers[i].ProviderID == providerID {
			return &b.Offers[i]
		}
	}
	return nil
}

// ResponseFor returns the response entry for the given provider, or nil.
func (b *Booking) ResponseFor(providerID string) *ProviderResponse {
	for i := range b.ProviderResponses {
		if b.ProviderResponses[i].ProviderID == providerID {
			return &b.ProviderResponses[i]
		}
	}
	return nil
}

// AwaitingResponses counts responses still awaiting an answer.
func (b *Booking) AwaitingResponses() int {
	n := 0
	for i := range b.ProviderResponses {
		if b.ProviderResponses[i].Status == ResponseStatusAwaiting {
			n++
		}
	}
	return n
}
