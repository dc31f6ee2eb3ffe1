package dispatch

import (
	"fmt"

	providerRepo "tradely/database/repository/provider"
	"tradely/models"
	"tradely/services/catalog"
)

// Candidate is a provider eligible for a dispatch, with its distance from
// the customer precomputed.
type Candidate struct {
	Provider   models.Provider
	DistanceKm float64
}

func (c Candidate) ID() string { return c.Provider.ID }

func (c Candidate) Rating() float64 { return c.Provider.Profile.Rating }

func (c Candidate) Price() float64 { return c.Provider.ServiceCatalogue.Price }

// Discovery finds providers eligible for a requested service.
type Discovery struct {
	ProviderRepo providerRepo.ProviderRepository
}

// FindCandidates returns the providers who currently offer a service matching
// the requested template (or, as a fallback, any template in a category of the
// same name), are live, and have usable coordinates. Providers failing a
// filter are silently excluded. An empty result is not an error; the caller
// decides how to surface it.
func (d *Discovery) FindCandidates(serviceType string, origin models.GeoPoint) ([]Candidate, error) {
	serviceTypes := resolveServiceTypes(serviceType)
	if len(serviceTypes) == 0 {
		return nil, nil
	}

	providers, err := d.ProviderRepo.FindByServiceTypes(serviceTypes)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(providers))
	for i := range providers {
		p := providers[i]
		if !p.Live() {
			continue
		}
		loc := p.Profile.LocationGeo
		if !loc.Valid() {
			continue
		}
		candidates = append(candidates, Candidate{
			Provider:   p,
			DistanceKm: DistanceKm(origin.Lng(), origin.Lat(), loc.Lng(), loc.Lat()),
		})
	}
	return candidates, nil
}

// resolveServiceTypes maps the requested name onto catalogue template IDs:
// direct template linkage first, then case-insensitive category match.
func resolveServiceTypes(serviceType string) []string {
	if t, ok := catalog.Get(serviceType); ok {
		return []string{t.ID}
	}
	var ids []string
	for _, t := range catalog.MatchCategory(serviceType) {
		ids = append(ids, t.ID)
	}
	return ids
}
