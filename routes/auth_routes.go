package routes

import (
	"github.com/edupay/payment_service/handlers"
	"github.com/edupay/payment_service/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/auth/login", handlers.Login)

	api.Get("/events/feed", middleware.Protected(), handlers.UpgradeEventFeed, handlers.EventFeed())
}
