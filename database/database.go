package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotel-booking/model"
)

const (
	BookingsCollectionName string = "bookings"

	emailIndexName string = "email_active_unique"
	roomIndexName  string = "room_active_unique"
)

func DBInit(ctx context.Context, connString string, dbName string) (*mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(connString)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %v", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("db is not available: %v", err)
	}

	return client.Database(dbName), nil
}

// MongoStore keeps bookings as documents of a single collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	store := &MongoStore{collection: db.Collection(BookingsCollectionName)}
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureIndexes declares email and room number unique among booked documents only,
// so a cancelled booking frees both the room and the guest email.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	activeOnly := bson.D{primitive.E{Key: "status", Value: string(model.StatusBooked)}}
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{primitive.E{Key: "email", Value: 1}},
			Options: options.Index().
				SetName(emailIndexName).
				SetUnique(true).
				SetPartialFilterExpression(activeOnly),
		},
		{
			Keys: bson.D{primitive.E{Key: "roomNumber", Value: 1}},
			Options: options.Index().
				SetName(roomIndexName).
				SetUnique(true).
				SetPartialFilterExpression(activeOnly),
		},
		{
			Keys:    bson.D{primitive.E{Key: "status", Value: 1}, primitive.E{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("status_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("cannot create booking indexes: %v", err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.Id = primitive.NewObjectID()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, booking); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *MongoStore) FindOne(ctx context.Context, filter model.BookingFilter) (*model.Booking, error) {
	var booking model.Booking
	err := s.collection.FindOne(ctx, filterToBSON(filter), options.FindOne().SetSort(creationOrder())).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
	}
	return &booking, nil
}

func (s *MongoStore) FindMany(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	cur, err := s.collection.Find(ctx, filterToBSON(filter), options.Find().SetSort(creationOrder()))
	if err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
	}
	defer cur.Close(ctx)

	bookings := []model.Booking{}
	for cur.Next(ctx) {
		var booking model.Booking
		if err := cur.Decode(&booking); err != nil {
			return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
		}
		bookings = append(bookings, booking)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
	}

	return bookings, nil
}

func (s *MongoStore) FindOneAndUpdate(ctx context.Context, filter model.BookingFilter, patch model.BookingPatch) (*model.Booking, error) {
	var booking model.Booking
	err := s.collection.FindOneAndUpdate(
		ctx,
		guardedFilter(filter, patch),
		patchToBSON(patch, time.Now().UTC().Truncate(time.Millisecond)),
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetSort(creationOrder()),
	).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &booking, nil
}

func filterToBSON(filter model.BookingFilter) bson.D {
	query := bson.D{}
	if filter.Email != "" {
		query = append(query, primitive.E{Key: "email", Value: filter.Email})
	}
	if filter.RoomNumber != 0 {
		query = append(query, primitive.E{Key: "roomNumber", Value: filter.RoomNumber})
	}
	if filter.Status != "" {
		query = append(query, primitive.E{Key: "status", Value: string(filter.Status)})
	}
	return query
}

// guardedFilter narrows filter to documents whose status accepts the patch, so
// the lifecycle holds without a read before the update. A document that would
// need an illegal transition is reported as not found.
func guardedFilter(filter model.BookingFilter, patch model.BookingPatch) bson.D {
	allowed := bson.A{}
	for _, status := range patch.AllowedFrom() {
		allowed = append(allowed, string(status))
	}
	guard := bson.D{primitive.E{Key: "status", Value: bson.D{primitive.E{Key: "$in", Value: allowed}}}}
	return bson.D{primitive.E{Key: "$and", Value: bson.A{filterToBSON(filter), guard}}}
}

func patchToBSON(patch model.BookingPatch, updatedAt time.Time) bson.D {
	set := bson.D{primitive.E{Key: "updatedAt", Value: updatedAt}}
	if patch.CheckInDate != nil {
		set = append(set, primitive.E{Key: "checkInDate", Value: *patch.CheckInDate})
	}
	if patch.CheckOutDate != nil {
		set = append(set, primitive.E{Key: "checkOutDate", Value: *patch.CheckOutDate})
	}
	if patch.Status != "" {
		set = append(set, primitive.E{Key: "status", Value: string(patch.Status)})
	}
	return bson.D{primitive.E{Key: "$set", Value: set}}
}

func creationOrder() bson.D {
	return bson.D{primitive.E{Key: "createdAt", Value: 1}, primitive.E{Key: "_id", Value: 1}}
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		switch {
		case strings.Contains(err.Error(), emailIndexName):
			return ErrDuplicateEmail
		case strings.Contains(err.Error(), roomIndexName):
			return ErrDuplicateRoom
		}
	}
	return fmt.Errorf("db error while writing booking: %v", err)
}
