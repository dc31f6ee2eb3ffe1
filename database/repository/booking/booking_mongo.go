package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradely/database"
	"tradely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo() BookingRepository {
	coll := database.MongoClient.Database("tradely").Collection("bookings")
	return &MongoBookingRepo{coll: coll}
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoBookingRepo) Create(booking *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(id string) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var booking models.Booking
	filter := bson.M{"id": id}
	if err := r.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateWithVersion writes the whole document conditioned on the version the
// caller read. Accept, decline and the expiry sweep can race on the same
// booking; the version filter guarantees only one of them lands.
func (r *MongoBookingRepo) UpdateWithVersion(booking *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	readVersion := booking.Version
	booking.Version = readVersion + 1
	booking.UpdatedAt = time.Now().UTC()

	filter := bson.M{"id": booking.ID, "version": readVersion}
	update := bson.M{"$set": booking}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		booking.Version = readVersion
		return fmt.Errorf("failed to update booking with id %s: %w", booking.ID, err)
	}
	if result.MatchedCount == 0 {
		booking.Version = readVersion
		count, countErr := r.coll.CountDocuments(ctx, bson.M{"id": booking.ID})
		if countErr == nil && count == 0 {
			return ErrNotFound
		}
		return ErrVersionMismatch
	}
	return nil
}
