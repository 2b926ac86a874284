package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "hotel-booking/errors"
	"hotel-booking/manager"
)

type bookRoomRequest struct {
	GuestName      string `json:"guestName"`
	ContactDetails string `json:"contactDetails"`
	CheckInDate    string `json:"checkInDate"`
	CheckOutDate   string `json:"checkOutDate"`
	Email          string `json:"email"`
}

// roomNumber accepts 101 as well as "101"; blank or null leaves it zero.
type roomNumber int

func (r *roomNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	n, err := json.Number(strings.TrimSpace(string(data))).Int64()
	if err != nil {
		return fmt.Errorf("roomNumber %q is not an integer", data)
	}
	*r = roomNumber(n)
	return nil
}

type bookingRefRequest struct {
	Email      string     `json:"email"`
	RoomNumber roomNumber `json:"roomNumber"`
}

type modifyBookingRequest struct {
	Email           string     `json:"email"`
	RoomNumber      roomNumber `json:"roomNumber"`
	NewCheckInDate  string `json:"newCheckInDate"`
	NewCheckOutDate string `json:"newCheckOutDate"`
}

func (h *Handlers) CreateBooking(c *fiber.Ctx) error {
	req := new(bookRoomRequest)
	if err := c.BodyParser(req); err != nil {
		return h.badRequest(c, "cannot parse booking request", err)
	}

	newBooking := manager.NewBooking{
		GuestName:      req.GuestName,
		ContactDetails: req.ContactDetails,
		Email:          req.Email,
	}
	var err error
	if newBooking.CheckInDate, err = parseOptionalDate(req.CheckInDate); err != nil {
		return h.badRequest(c, "checkInDate", err)
	}
	if newBooking.CheckOutDate, err = parseOptionalDate(req.CheckOutDate); err != nil {
		return h.badRequest(c, "checkOutDate", err)
	}

	booking, err := h.manager.CreateBooking(c.UserContext(), newBooking)
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusCreated, "room booked successfully", booking)
}

func (h *Handlers) ViewBooking(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return h.badRequest(c, "malformed email in path", err)
	}

	booking, err := h.manager.GetBookingByEmail(c.UserContext(), email)
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusOK, "booking found", booking)
}

func (h *Handlers) GetAllGuests(c *fiber.Ctx) error {
	bookings, err := h.manager.ListActiveBookings(c.UserContext())
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusOK, "active bookings", bookings)
}

func (h *Handlers) GetAvailableRooms(c *fiber.Ctx) error {
	rooms, err := h.manager.AvailableRooms(c.UserContext())
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusOK, "available rooms", rooms)
}

func (h *Handlers) CancelBooking(c *fiber.Ctx) error {
	req := new(bookingRefRequest)
	if err := c.BodyParser(req); err != nil {
		return h.badRequest(c, "cannot parse cancel request", err)
	}

	booking, err := h.manager.CancelBooking(c.UserContext(), req.Email, int(req.RoomNumber))
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusOK, "booking cancelled successfully", booking)
}

func (h *Handlers) ModifyBooking(c *fiber.Ctx) error {
	req := new(modifyBookingRequest)
	if err := c.BodyParser(req); err != nil {
		return h.badRequest(c, "cannot parse modify request", err)
	}

	changes := manager.BookingChanges{}
	if strings.TrimSpace(req.NewCheckInDate) != "" {
		checkIn, err := parseDate(strings.TrimSpace(req.NewCheckInDate))
		if err != nil {
			return h.badRequest(c, "newCheckInDate", err)
		}
		changes.CheckInDate = &checkIn
	}
	if strings.TrimSpace(req.NewCheckOutDate) != "" {
		checkOut, err := parseDate(strings.TrimSpace(req.NewCheckOutDate))
		if err != nil {
			return h.badRequest(c, "newCheckOutDate", err)
		}
		changes.CheckOutDate = &checkOut
	}

	booking, err := h.manager.ModifyBooking(c.UserContext(), req.Email, int(req.RoomNumber), changes)
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	return success(c, fiber.StatusOK, "booking modified successfully", booking)
}

// parseOptionalDate leaves blank dates zero so the manager reports them as missing.
func parseOptionalDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return parseDate(value)
}
