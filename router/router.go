package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"hotel-booking/handlers"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	root := app.Group("/", logger.New())
	root.Get("/hello", h.GetHello)

	api := root.Group("/api")
	api.Post("/book-room", h.CreateBooking)
	api.Get("/view-booking/:email", h.ViewBooking)
	api.Get("/all-guests", h.GetAllGuests)
	api.Get("/available-rooms", h.GetAvailableRooms)
	api.Delete("/cancel-booking", h.CancelBooking)
	api.Put("/modify-booking", h.ModifyBooking)
}
