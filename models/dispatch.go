package models

import "time"

// DispatchRequest is the customer-facing payload for creating a dispatch.
type DispatchRequest struct {
	ServiceType    string   `json:"serviceType" binding:"required"`
	Location       GeoPoint `json:"location" binding:"required"`
	SortPreference string   `json:"sortPreference" binding:"omitempty,oneof=nearby rating cheapest mix"`
	Broadcast      bool     `json:"broadcast"`
}

// OffersDebug is the read-only diagnostic view of a booking's dispatch state.
type OffersDebug struct {
	BookingID         string             `json:"bookingId"`
	Status            string             `json:"status"`
	OverallStatus     string             `json:"overallStatus,omitempty"`
	DispatchMode      string             `json:"dispatchMode"`
	Offers            []Offer            `json:"offers,omitempty"`
	PendingProviders  []string           `json:"pendingProviders,omitempty"`
	ProviderResponses []ProviderResponse `json:"providerResponses,omitempty"`
	SecondsLeft       int64              `json:"secondsLeft"`
	AutoAssignMessage string             `json:"autoAssignMessage,omitempty"`
}

// PendingOfferSummary is one entry of a provider's offer inbox: a booking
// where this provider currently holds the sole pending offer.
type PendingOfferSummary struct {
	BookingID   string    `json:"bookingId"`
	ServiceType string    `json:"serviceType"`
	UserID      string    `json:"userId"`
	OfferedAt   time.Time `json:"offeredAt"`
	TimeoutAt   time.Time `json:"timeoutAt"`
	SecondsLeft int64     `json:"secondsLeft"`
}
