package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hotel-booking/model"
)

// LocalStore is a JSON file backed booking store for development and tests.
// Every call reads the file, and writes go through a single mutex, so each
// operation is atomic with respect to the others.
type LocalStore struct {
	path string
	mu   sync.Mutex
}

func NewLocalStore(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create local db directory: %v", err)
	}
	store := &LocalStore{path: path}
	if _, err := store.readLocalDB(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *LocalStore) readLocalDB() ([]model.Booking, error) {
	bookings := []model.Booking{}

	fileBytes, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(s.path, []byte("[]"), 0644); err != nil {
			return nil, err
		}
		return bookings, nil
	} else if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fileBytes, &bookings); err != nil {
		return nil, fmt.Errorf("local db %v is corrupted: %v", s.path, err)
	}

	return bookings, nil
}

func (s *LocalStore) commitToLocalDB(bookings []model.Booking) error {
	bookingsBytes, err := json.MarshalIndent(bookings, "", "	")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bookingsBytes, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *LocalStore) Insert(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.readLocalDB()
	if err != nil {
		return err
	}

	if err := checkActiveUniqueness(bookings, *booking, primitive.NilObjectID); err != nil {
		return err
	}

	now := time.Now().UTC()
	booking.Id = primitive.NewObjectID()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return s.commitToLocalDB(append(bookings, *booking))
}

func (s *LocalStore) FindOne(ctx context.Context, filter model.BookingFilter) (*model.Booking, error) {
	bookings, err := s.FindMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, ErrNotFound
	}
	return &bookings[0], nil
}

func (s *LocalStore) FindMany(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	bookings, err := s.readLocalDB()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	matched := []model.Booking{}
	for _, booking := range bookings {
		if filter.Matches(booking) {
			matched = append(matched, booking)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *LocalStore) FindOneAndUpdate(ctx context.Context, filter model.BookingFilter, patch model.BookingPatch) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.readLocalDB()
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		if !filter.Matches(bookings[i]) {
			continue
		}
		updated := bookings[i]
		if err := patch.Apply(&updated); err != nil {
			return nil, err
		}
		if err := checkActiveUniqueness(bookings, updated, updated.Id); err != nil {
			return nil, err
		}
		updated.UpdatedAt = time.Now().UTC()
		bookings[i] = updated

		if err := s.commitToLocalDB(bookings); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	return nil, ErrNotFound
}

// checkActiveUniqueness mirrors the partial unique indexes of the mongo store.
func checkActiveUniqueness(bookings []model.Booking, candidate model.Booking, self primitive.ObjectID) error {
	if !candidate.IsActive() {
		return nil
	}
	for _, other := range bookings {
		if other.Id == self || !other.IsActive() {
			continue
		}
		if other.Email == candidate.Email {
			return ErrDuplicateEmail
		}
		if other.RoomNumber == candidate.RoomNumber {
			return ErrDuplicateRoom
		}
	}
	return nil
}
