package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "hotel-booking/errors"
	"hotel-booking/manager"
)

// dateLayouts are tried in order; zoneless timestamps and plain dates are read as UTC.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type Handlers struct {
	manager *manager.Manager
	log     *zap.Logger
}

func New(m *manager.Manager, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{manager: m, log: log}
}

// GetHello reports hotel occupancy in plain text.
func (h *Handlers) GetHello(c *fiber.Ctx) error {
	free, err := h.manager.AvailableRooms(c.UserContext())
	if err != nil {
		return apperrors.RaiseFromManager(c, err)
	}

	total := len(h.manager.Pool())
	return c.SendString(fmt.Sprintf("%v of %v rooms booked\n", total-len(free), total))
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not RFC3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD", value)
}

// badRequest logs a rejected request before answering 400.
func (h *Handlers) badRequest(c *fiber.Ctx, message string, err error) error {
	h.log.Info("rejected request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("reason", message),
		zap.Error(err))
	return apperrors.RaiseBadRequestError(c, fmt.Sprintf("%v: %v", message, err))
}

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data})
}
