// Package manager owns the room allocation and booking lifecycle rules.
//
// The store is the only shared state. Room selection reads the active bookings
// and picks the lowest free room, which is not atomic by itself; the store's
// unique indexes reject a second booking of the same room, and the manager
// retries the allocation once when that happens.
package manager

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hotel-booking/config"
	"hotel-booking/database"
	"hotel-booking/events"
	"hotel-booking/model"
)

const maxAllocationAttempts = 2

// Store is the persistence contract the manager relies on.
type Store interface {
	Insert(ctx context.Context, booking *model.Booking) error
	FindOne(ctx context.Context, filter model.BookingFilter) (*model.Booking, error)
	FindMany(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
	FindOneAndUpdate(ctx context.Context, filter model.BookingFilter, patch model.BookingPatch) (*model.Booking, error)
}

type NewBooking struct {
	GuestName      string    `json:"guestName" validate:"required"`
	ContactDetails string    `json:"contactDetails" validate:"required"`
	Email          string    `json:"email" validate:"required"`
	CheckInDate    time.Time `json:"checkInDate" validate:"required"`
	CheckOutDate   time.Time `json:"checkOutDate" validate:"required"`
}

// BookingChanges holds the new dates of a booking. Nil dates keep the stored value.
type BookingChanges struct {
	CheckInDate  *time.Time
	CheckOutDate *time.Time
}

type Manager struct {
	store     Store
	pool      config.RoomPool
	publisher events.Publisher
	log       *zap.Logger
	validate  *validator.Validate
}

func New(store Store, pool config.RoomPool, publisher events.Publisher, log *zap.Logger) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Manager{
		store:     store,
		pool:      pool.Sorted(),
		publisher: publisher,
		log:       log,
		validate:  validate,
	}
}

func (m *Manager) Pool() config.RoomPool {
	return append(config.RoomPool(nil), m.pool...)
}

// CreateBooking assigns the numerically smallest free room to a new booking.
func (m *Manager) CreateBooking(ctx context.Context, in NewBooking) (*model.Booking, error) {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.ContactDetails = strings.TrimSpace(in.ContactDetails)
	in.Email = strings.TrimSpace(in.Email)
	if err := m.validateInput(in); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		free, err := m.freeRooms(ctx)
		if err != nil {
			return nil, err
		}
		if len(free) == 0 {
			m.log.Info("booking rejected, no rooms available", zap.String("email", in.Email))
			return nil, ErrNoAvailability
		}

		booking := &model.Booking{
			GuestName:      in.GuestName,
			ContactDetails: in.ContactDetails,
			Email:          in.Email,
			CheckInDate:    in.CheckInDate.UTC(),
			CheckOutDate:   in.CheckOutDate.UTC(),
			RoomNumber:     free[0],
			Status:         model.StatusBooked,
		}

		err = m.store.Insert(ctx, booking)
		switch {
		case err == nil:
			m.log.Info("room booked",
				zap.String("email", booking.Email),
				zap.Int("room", booking.RoomNumber),
				zap.String("booking_id", booking.Id.Hex()),
			)
			m.publish(ctx, events.TypeBookingCreated, *booking)
			return booking, nil
		case errors.Is(err, database.ErrDuplicateEmail):
			return nil, ErrDuplicateGuest
		case errors.Is(err, database.ErrDuplicateRoom):
			m.log.Warn("room taken by a concurrent booking",
				zap.Int("room", booking.RoomNumber),
				zap.Int("attempt", attempt),
			)
			lastErr = ErrDuplicateRoom
		default:
			return nil, storeError(err)
		}
	}

	return nil, lastErr
}

// GetBookingByEmail returns the active booking of a guest. Cancelled bookings are never returned.
func (m *Manager) GetBookingByEmail(ctx context.Context, email string) (*model.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationError("email is required")
	}

	booking, err := m.store.FindOne(ctx, model.BookingFilter{Email: email, Status: model.StatusBooked})
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}
	return booking, nil
}

// ListActiveBookings returns booked records in creation order.
func (m *Manager) ListActiveBookings(ctx context.Context) ([]model.Booking, error) {
	bookings, err := m.store.FindMany(ctx, model.BookingFilter{Status: model.StatusBooked})
	if err != nil {
		return nil, storeError(err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

// AvailableRooms returns the rooms not held by an active booking, lowest first.
func (m *Manager) AvailableRooms(ctx context.Context) ([]int, error) {
	return m.freeRooms(ctx)
}

// CancelBooking moves the active booking matching both email and room to cancelled.
// A wrong email, a wrong room and an already cancelled booking all yield ErrNotFound.
func (m *Manager) CancelBooking(ctx context.Context, email string, roomNumber int) (*model.Booking, error) {
	filter, err := activeBookingFilter(email, roomNumber)
	if err != nil {
		return nil, err
	}

	booking, err := m.store.FindOneAndUpdate(ctx, filter, model.BookingPatch{Status: model.StatusCancelled})
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, model.ErrInvalidTransition) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}

	m.log.Info("booking cancelled",
		zap.String("email", booking.Email),
		zap.Int("room", booking.RoomNumber),
	)
	m.publish(ctx, events.TypeBookingCancelled, *booking)
	return booking, nil
}

// ModifyBooking replaces the supplied dates of an active booking and leaves the rest untouched.
func (m *Manager) ModifyBooking(ctx context.Context, email string, roomNumber int, changes BookingChanges) (*model.Booking, error) {
	filter, err := activeBookingFilter(email, roomNumber)
	if err != nil {
		return nil, err
	}

	patch := model.BookingPatch{}
	if changes.CheckInDate != nil {
		checkIn := changes.CheckInDate.UTC()
		patch.CheckInDate = &checkIn
	}
	if changes.CheckOutDate != nil {
		checkOut := changes.CheckOutDate.UTC()
		patch.CheckOutDate = &checkOut
	}

	booking, err := m.store.FindOneAndUpdate(ctx, filter, patch)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, model.ErrInvalidTransition) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}

	m.log.Info("booking modified",
		zap.String("email", booking.Email),
		zap.Int("room", booking.RoomNumber),
	)
	m.publish(ctx, events.TypeBookingModified, *booking)
	return booking, nil
}

func (m *Manager) freeRooms(ctx context.Context) ([]int, error) {
	active, err := m.store.FindMany(ctx, model.BookingFilter{Status: model.StatusBooked})
	if err != nil {
		return nil, storeError(err)
	}

	held := make(map[int]bool, len(active))
	for _, booking := range active {
		held[booking.RoomNumber] = true
	}

	free := []int{}
	for _, room := range m.pool {
		if !held[room] {
			free = append(free, room)
		}
	}
	return free, nil
}

func (m *Manager) validateInput(in NewBooking) error {
	err := m.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError("%v", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fe.Field()+" failed on "+fe.Tag())
	}
	return validationError("%s", strings.Join(problems, ", "))
}

func (m *Manager) publish(ctx context.Context, eventType string, booking model.Booking) {
	if err := m.publisher.Publish(ctx, events.NewEvent(eventType, booking)); err != nil {
		m.log.Error("cannot publish booking event",
			zap.String("type", eventType),
			zap.String("booking_id", booking.Id.Hex()),
			zap.Error(err),
		)
	}
}

func activeBookingFilter(email string, roomNumber int) (model.BookingFilter, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.BookingFilter{}, validationError("email is required")
	}
	if roomNumber == 0 {
		return model.BookingFilter{}, validationError("roomNumber is required")
	}
	return model.BookingFilter{Email: email, RoomNumber: roomNumber, Status: model.StatusBooked}, nil
}
