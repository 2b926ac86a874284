package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking/model"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "db", "bookings.json"))
	require.NoError(t, err)
	return store
}

func newBooking(email string, room int) *model.Booking {
	return &model.Booking{
		GuestName:      "John Doe",
		ContactDetails: "123-456-7890",
		Email:          email,
		CheckInDate:    time.Date(2025, 4, 1, 14, 0, 0, 0, time.UTC),
		CheckOutDate:   time.Date(2025, 4, 10, 11, 0, 0, 0, time.UTC),
		RoomNumber:     room,
		Status:         model.StatusBooked,
	}
}

func TestLocalStoreInsertAssignsIdentity(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	booking := newBooking("a@x.com", 101)
	require.NoError(t, store.Insert(ctx, booking))

	assert.False(t, booking.Id.IsZero())
	assert.False(t, booking.CreatedAt.IsZero())
	assert.Equal(t, booking.CreatedAt, booking.UpdatedAt)

	found, err := store.FindOne(ctx, model.BookingFilter{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, booking.Id, found.Id)
	assert.Equal(t, 101, found.RoomNumber)
	assert.True(t, booking.CheckInDate.Equal(found.CheckInDate))
}

func TestLocalStoreUniquenessIsScopedToActiveBookings(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newBooking("a@x.com", 101)))

	assert.ErrorIs(t, store.Insert(ctx, newBooking("a@x.com", 102)), ErrDuplicateEmail)
	assert.ErrorIs(t, store.Insert(ctx, newBooking("b@x.com", 101)), ErrDuplicateRoom)

	_, err := store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 101, Status: model.StatusBooked},
		model.BookingPatch{Status: model.StatusCancelled})
	require.NoError(t, err)

	assert.NoError(t, store.Insert(ctx, newBooking("b@x.com", 101)))
	assert.NoError(t, store.Insert(ctx, newBooking("a@x.com", 102)))

	all, err := store.FindMany(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalStoreFindManyKeepsCreationOrder(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	for i, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		require.NoError(t, store.Insert(ctx, newBooking(email, 103-i)))
	}

	bookings, err := store.FindMany(ctx, model.BookingFilter{Status: model.StatusBooked})
	require.NoError(t, err)
	require.Len(t, bookings, 3)
	assert.Equal(t, "c@x.com", bookings[0].Email)
	assert.Equal(t, "a@x.com", bookings[1].Email)
	assert.Equal(t, "b@x.com", bookings[2].Email)

	none, err := store.FindMany(ctx, model.BookingFilter{Status: model.StatusCancelled})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLocalStoreFindOneAndUpdate(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	booking := newBooking("a@x.com", 101)
	require.NoError(t, store.Insert(ctx, booking))

	newCheckOut := booking.CheckOutDate.AddDate(0, 0, 3)
	updated, err := store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 101, Status: model.StatusBooked},
		model.BookingPatch{CheckOutDate: &newCheckOut})
	require.NoError(t, err)

	assert.Equal(t, booking.Id, updated.Id)
	assert.True(t, newCheckOut.Equal(updated.CheckOutDate))
	assert.True(t, booking.CheckInDate.Equal(updated.CheckInDate))
	assert.False(t, updated.UpdatedAt.Before(booking.UpdatedAt))

	_, err = store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 102},
		model.BookingPatch{Status: model.StatusCancelled})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindOne(ctx, model.BookingFilter{Email: "nobody@x.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreKeepsCancelledBookingsImmutable(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	booking := newBooking("a@x.com", 101)
	require.NoError(t, store.Insert(ctx, booking))
	_, err := store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 101},
		model.BookingPatch{Status: model.StatusCancelled})
	require.NoError(t, err)

	_, err = store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com", RoomNumber: 101},
		model.BookingPatch{Status: model.StatusBooked})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	newCheckIn := booking.CheckInDate.AddDate(0, 0, 1)
	_, err = store.FindOneAndUpdate(ctx,
		model.BookingFilter{Email: "a@x.com"},
		model.BookingPatch{CheckInDate: &newCheckIn})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	stored, err := store.FindOne(ctx, model.BookingFilter{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.True(t, booking.CheckInDate.Equal(stored.CheckInDate))
}

func TestGuardedFilterRestrictsStatuses(t *testing.T) {
	guarded := guardedFilter(model.BookingFilter{Email: "a@x.com"}, model.BookingPatch{Status: model.StatusCancelled})
	require.Len(t, guarded, 1)
	assert.Equal(t, "$and", guarded[0].Key)
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.json")
	ctx := context.Background()

	store, err := NewLocalStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, newBooking("a@x.com", 101)))

	reopened, err := NewLocalStore(path)
	require.NoError(t, err)
	bookings, err := reopened.FindMany(ctx, model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "a@x.com", bookings[0].Email)
	assert.Equal(t, model.StatusBooked, bookings[0].Status)
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store := newTestLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Insert(ctx, newBooking("a@x.com", 101)), context.Canceled)
	_, err := store.FindMany(ctx, model.BookingFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterAndPatchToBSON(t *testing.T) {
	assert.Len(t, filterToBSON(model.BookingFilter{}), 0)
	assert.Len(t, filterToBSON(model.BookingFilter{Email: "a@x.com", RoomNumber: 101, Status: model.StatusBooked}), 3)

	now := time.Now().UTC()
	update := patchToBSON(model.BookingPatch{Status: model.StatusCancelled}, now)
	require.Len(t, update, 1)
	assert.Equal(t, "$set", update[0].Key)
}
