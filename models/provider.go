package models

import "time"

// Provider status values used by the dispatch filters.
const (
	ProviderStatusActive  = "active"
	ProviderStatusOnline  = "online"
	ProviderStatusOffline = "offline"
)

type Profile struct {
	ProviderName string   `bson:"providerName" json:"providerName,omitempty"`
	Email        string   `bson:"email" json:"email,omitempty"`
	PhoneNumber  string   `bson:"phoneNumber" json:"phoneNumber,omitempty"`
	Status       string   `bson:"status" json:"status,omitempty"`
	ProfileImage string   `bson:"profileImage" json:"profileImage,omitempty"`
	Address      string   `bson:"address" json:"address,omitempty"`
	Rating       float64  `bson:"rating" json:"rating,omitempty"`
	LocationGeo  GeoPoint `bson:"locationGeo" json:"locationGeo"`
}

// ServiceCatalogue describes the single service a provider lists on the
// marketplace: the template it links to and the provider's own price.
type ServiceCatalogue struct {
	ServiceType string  `bson:"serviceType" json:"serviceType"` // template ID, e.g. "Plumbing"
	Category    string  `bson:"category" json:"category,omitempty"`
	Price       float64 `bson:"price" json:"price"` // listed price in the provider's currency
	UnitType    string  `bson:"unitType" json:"unitType,omitempty"`
}

type Provider struct {
	ID                string           `bson:"id" json:"id,omitempty"`
	Profile           Profile          `bson:"profile" json:"profile"`
	ServiceCatalogue  ServiceCatalogue `bson:"serviceCatalogue" json:"serviceCatalogue,omitzero"`
	IsAvailable       bool             `bson:"isAvailable" json:"isAvailable"`
	CompletedBookings int              `bson:"completedBookings" json:"completedBookings,omitempty"`
	CreatedAt         time.Time        `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt         time.Time        `bson:"updatedAt" json:"updatedAt,omitzero"`
}

// Live reports whether the provider may currently receive offers.
func (p *Provider) Live() bool {
	if !p.IsAvailable {
		return false
	}
	switch p.Profile.Status {
	case ProviderStatusActive, ProviderStatusOnline:
		return true
	}
	return false
}
