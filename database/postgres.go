package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"hotel-booking/model"
)

const (
	pgEmailIndexName string = "bookings_email_active_unique"
	pgRoomIndexName  string = "bookings_room_active_unique"

	pgUniqueViolation string = "23505"
)

// bookingRow is the relational shape of model.Booking. Ids stay ObjectID hex strings
// so both backends hand out the same identifiers.
type bookingRow struct {
	ID             string    `gorm:"primaryKey;size:24"`
	GuestName      string    `gorm:"not null"`
	ContactDetails string    `gorm:"not null"`
	Email          string    `gorm:"not null;index:bookings_email_active_unique,unique,where:status = 'booked'"`
	CheckInDate    time.Time `gorm:"not null"`
	CheckOutDate   time.Time `gorm:"not null"`
	RoomNumber     int       `gorm:"not null;index:bookings_room_active_unique,unique,where:status = 'booked'"`
	Status         string    `gorm:"not null;size:16;index"`
	CreatedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (bookingRow) TableName() string {
	return "bookings"
}

func rowFromBooking(b model.Booking) bookingRow {
	return bookingRow{
		ID:             b.Id.Hex(),
		GuestName:      b.GuestName,
		ContactDetails: b.ContactDetails,
		Email:          b.Email,
		CheckInDate:    b.CheckInDate,
		CheckOutDate:   b.CheckOutDate,
		RoomNumber:     b.RoomNumber,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func (r bookingRow) toBooking() (model.Booking, error) {
	id, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("stored booking id %q is malformed: %v", r.ID, err)
	}
	status, err := model.ParseBookingStatus(r.Status)
	if err != nil {
		return model.Booking{}, fmt.Errorf("stored booking %v: %v", r.ID, err)
	}
	return model.Booking{
		Id:             id,
		GuestName:      r.GuestName,
		ContactDetails: r.ContactDetails,
		Email:          r.Email,
		CheckInDate:    r.CheckInDate.UTC(),
		CheckOutDate:   r.CheckOutDate.UTC(),
		RoomNumber:     r.RoomNumber,
		Status:         status,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}, nil
}

// PostgresStore keeps bookings in a table with partial unique indexes on
// email and room number scoped to booked rows.
type PostgresStore struct {
	db *gorm.DB
}

func PostgresInit(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %v", err)
	}
	return db, nil
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&bookingRow{}); err != nil {
		return nil, fmt.Errorf("cannot migrate bookings table: %v", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	booking.Id = primitive.NewObjectID()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	row := rowFromBooking(*booking)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapPostgresError(err)
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, filter model.BookingFilter) (*model.Booking, error) {
	var row bookingRow
	err := applyFilter(s.db.WithContext(ctx), filter).Order("created_at ASC, id ASC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
	}

	booking, err := row.toBooking()
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	var rows []bookingRow
	if err := applyFilter(s.db.WithContext(ctx), filter).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings from database: %v", err)
	}

	bookings := make([]model.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := row.toBooking()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// FindOneAndUpdate locks the first matching row, applies the patch and returns the result.
func (s *PostgresStore) FindOneAndUpdate(ctx context.Context, filter model.BookingFilter, patch model.BookingPatch) (*model.Booking, error) {
	var updated model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row bookingRow
		err := applyFilter(tx.Clauses(clause.Locking{Strength: "UPDATE"}), filter).
			Order("created_at ASC, id ASC").
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		booking, err := row.toBooking()
		if err != nil {
			return err
		}
		if err := patch.Apply(&booking); err != nil {
			return err
		}
		booking.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		row = rowFromBooking(booking)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, model.ErrInvalidTransition) {
		return nil, err
	}
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return &updated, nil
}

func applyFilter(db *gorm.DB, filter model.BookingFilter) *gorm.DB {
	query := db.Model(&bookingRow{})
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.RoomNumber != 0 {
		query = query.Where("room_number = ?", filter.RoomNumber)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	return query
}

func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case pgEmailIndexName:
			return ErrDuplicateEmail
		case pgRoomIndexName:
			return ErrDuplicateRoom
		}
	}
	return fmt.Errorf("db error while writing booking: %v", err)
}
