package providerRepo

import (
	"errors"

	"tradely/models"
)

// ErrNotFound is returned when no provider matches the given ID.
var ErrNotFound = errors.New("provider not found")

// ProviderRepository defines methods for provider data access.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(id string) (*models.Provider, error)
	// Create inserts a new provider record.
	Create(provider *models.Provider) error
	// Update modifies an existing provider record.
	Update(provider *models.Provider) error
	// Delete removes a provider record by its ID.
	Delete(id string) error
	// FindByServiceTypes returns live providers whose catalogue links to any
	// of the given service templates.
	FindByServiceTypes(serviceTypes []string) ([]models.Provider, error)
	// SetAvailability flips the provider's availability flag.
	SetAvailability(id string, available bool) error
}
