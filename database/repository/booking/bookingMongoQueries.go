package bookingRepo

import (
	"fmt"
	"time"

	"tradely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoBookingRepo) FindDispatchExpired(cutoff time.Time, limit int64) ([]models.Booking, error) {
	filter := bson.M{
		"status":           models.BookingStatusRequested,
		"pendingExpiresAt": bson.M{"$lte": cutoff},
		"offers": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{"status": models.OfferStatusAccepted}},
		},
	}
	return r.find(filter, limit)
}

func (r *MongoBookingRepo) FindStaleOffers(cutoff time.Time, limit int64) ([]models.Booking, error) {
	filter := bson.M{
		"status":                  models.BookingStatusRequested,
		"providerResponseTimeout": bson.M{"$lte": cutoff},
		"offers": bson.M{
			"$elemMatch": bson.M{"status": models.OfferStatusPending},
		},
	}
	return r.find(filter, limit)
}

func (r *MongoBookingRepo) FindPendingOffersForProvider(providerID string) ([]models.Booking, error) {
	filter := bson.M{
		"status": models.BookingStatusRequested,
		"offers": bson.M{
			"$elemMatch": bson.M{
				"providerId": providerID,
				"status":     models.OfferStatusPending,
			},
		},
	}
	return r.find(filter, 0)
}

func (r *MongoBookingRepo) find(filter bson.M, limit int64) ([]models.Booking, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("booking query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}
