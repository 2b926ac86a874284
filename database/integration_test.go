//go:build integration

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"hotel-booking/model"
)

type bookingStore interface {
	Insert(ctx context.Context, booking *model.Booking) error
	FindOne(ctx context.Context, filter model.BookingFilter) (*model.Booking, error)
	FindMany(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
	FindOneAndUpdate(ctx context.Context, filter model.BookingFilter, patch model.BookingPatch) (*model.Booking, error)
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest) (string, string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start %v container", req.Image)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	require.NoError(t, err)
	return host, port.Port()
}

func setupMongoStore(t *testing.T) *MongoStore {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	})

	ctx := context.Background()
	db, err := DBInit(ctx, fmt.Sprintf("mongodb://%s:%s", host, port), "hotel-booking-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	store, err := NewMongoStore(ctx, db)
	require.NoError(t, err)
	return store
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", host, port)
	var store *PostgresStore
	require.Eventually(t, func() bool {
		db, err := PostgresInit(dsn)
		if err != nil {
			return false
		}
		store, err = NewPostgresStore(db)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	return store
}

func exerciseStore(t *testing.T, store bookingStore) {
	ctx := context.Background()

	first := newBooking("a@x.com", 101)
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, newBooking("b@x.com", 102)))

	assert.ErrorIs(t, store.Insert(ctx, newBooking("a@x.com", 103)), ErrDuplicateEmail)
	assert.ErrorIs(t, store.Insert(ctx, newBooking("c@x.com", 101)), ErrDuplicateRoom)

	active, err := store.FindMany(ctx, model.BookingFilter{Status: model.StatusBooked})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a@x.com", active[0].Email)

	cancelled, err := store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 101, Status: model.StatusBooked},
		model.BookingPatch{Status: model.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, first.Id, cancelled.Id)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, err = store.FindOne(ctx, model.BookingFilter{Email: "a@x.com", Status: model.StatusBooked})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Insert(ctx, newBooking("c@x.com", 101)))
	require.NoError(t, store.Insert(ctx, newBooking("a@x.com", 103)))

	newCheckIn := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)
	modified, err := store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "b@x.com", RoomNumber: 102, Status: model.StatusBooked},
		model.BookingPatch{CheckInDate: &newCheckIn})
	require.NoError(t, err)
	assert.True(t, newCheckIn.Equal(modified.CheckInDate))
	assert.True(t, time.Date(2025, 4, 10, 11, 0, 0, 0, time.UTC).Equal(modified.CheckOutDate))
}

func TestMongoStore(t *testing.T) {
	exerciseStore(t, setupMongoStore(t))
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, setupPostgresStore(t))
}
