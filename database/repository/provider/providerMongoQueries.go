package providerRepo

import (
	"fmt"
	"time"

	"tradely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindByServiceTypes returns providers linked to any of the given service
// templates, case-insensitively. Only providers flagged available with an
// active/online status and a coordinates array are returned; the dispatch
// layer re-validates the coordinate values.
func (r *MongoProviderRepo) FindByServiceTypes(serviceTypes []string) ([]models.Provider, error) {
	if len(serviceTypes) == 0 {
		return nil, nil
	}

	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	patterns := make(bson.A, 0, len(serviceTypes))
	for _, st := range serviceTypes {
		patterns = append(patterns, bson.M{
			"serviceCatalogue.serviceType": primitive.Regex{Pattern: "^" + st + "$", Options: "i"},
		})
	}

	filter := bson.M{
		"$or":            patterns,
		"isAvailable":    true,
		"profile.status": bson.M{"$in": bson.A{models.ProviderStatusActive, models.ProviderStatusOnline}},
		"profile.locationGeo.coordinates.1": bson.M{"$exists": true},
	}

	opts := options.Find().SetLimit(100)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("provider search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []models.Provider
	for cursor.Next(ctx) {
		var p models.Provider
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return providers, nil
}
