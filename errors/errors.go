package errors

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"

	"hotel-booking/manager"
)

func RaiseError(context *fiber.Ctx, status int, message string, data interface{}) error {
	return context.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    data})
}

func RaiseInternalServerError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusInternalServerError, "internal error", data)
}

func RaiseBadRequestError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusBadRequest, manager.ErrValidation.Error(), data)
}

func RaiseNotFoundError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusNotFound, manager.ErrNotFound.Error(), data)
}

func RaiseConflictError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusConflict, manager.ErrConflict.Error(), data)
}

// RaiseFromManager maps a booking manager error to its response.
func RaiseFromManager(context *fiber.Ctx, err error) error {
	switch {
	case stderrors.Is(err, manager.ErrValidation):
		return RaiseBadRequestError(context, err.Error())
	case stderrors.Is(err, manager.ErrNoAvailability):
		return RaiseError(context, fiber.StatusBadRequest, manager.ErrNoAvailability.Error(), nil)
	case stderrors.Is(err, manager.ErrNotFound):
		return RaiseNotFoundError(context, err.Error())
	case stderrors.Is(err, manager.ErrConflict):
		return RaiseConflictError(context, err.Error())
	default:
		return RaiseInternalServerError(context, err.Error())
	}
}
