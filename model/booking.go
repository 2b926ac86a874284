package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

var ErrInvalidTransition = errors.New("booking status transition not allowed")

const (
	StatusBooked    BookingStatus = "booked"
	StatusCancelled BookingStatus = "cancelled"
)

// validTransitions is the booking lifecycle: booked may only move to cancelled.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusBooked:    {StatusCancelled},
	StatusCancelled: {},
}

func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

type Booking struct {
	Id             primitive.ObjectID `json:"_id" bson:"_id"`
	GuestName      string             `json:"guestName" bson:"guestName"`
	ContactDetails string             `json:"contactDetails" bson:"contactDetails"`
	Email          string             `json:"email" bson:"email"`
	CheckInDate    time.Time          `json:"checkInDate" bson:"checkInDate"`
	CheckOutDate   time.Time          `json:"checkOutDate" bson:"checkOutDate"`
	RoomNumber     int                `json:"roomNumber" bson:"roomNumber"`
	Status         BookingStatus      `json:"status" bson:"status"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (b Booking) IsActive() bool {
	return b.Status == StatusBooked
}

// BookingFilter is an equality filter; zero-valued fields are not constrained.
type BookingFilter struct {
	Email      string
	RoomNumber int
	Status     BookingStatus
}

func (f BookingFilter) Matches(b Booking) bool {
	if f.Email != "" && f.Email != b.Email {
		return false
	}
	if f.RoomNumber != 0 && f.RoomNumber != b.RoomNumber {
		return false
	}
	if f.Status != "" && f.Status != b.Status {
		return false
	}
	return true
}

// BookingPatch lists the mutable fields of a booking. Nil or empty fields are left as stored.
type BookingPatch struct {
	CheckInDate  *time.Time
	CheckOutDate *time.Time
	Status       BookingStatus
}

// Apply mutates b in place. A terminal booking accepts no patch at all, and a
// status change must follow the lifecycle.
func (p BookingPatch) Apply(b *Booking) error {
	if b.Status.IsTerminal() {
		return fmt.Errorf("%w: %v booking is immutable", ErrInvalidTransition, b.Status)
	}
	if p.Status != "" && !b.Status.CanTransitionTo(p.Status) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, b.Status, p.Status)
	}
	if p.CheckInDate != nil {
		b.CheckInDate = *p.CheckInDate
	}
	if p.CheckOutDate != nil {
		b.CheckOutDate = *p.CheckOutDate
	}
	if p.Status != "" {
		b.Status = p.Status
	}
	return nil
}

// AllowedFrom lists, in order, the statuses a booking may hold for Apply to succeed.
func (p BookingPatch) AllowedFrom() []BookingStatus {
	allowed := []BookingStatus{}
	for status := range validTransitions {
		if status.IsTerminal() {
			continue
		}
		if p.Status != "" && !status.CanTransitionTo(p.Status) {
			continue
		}
		allowed = append(allowed, status)
	}
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return allowed
}
