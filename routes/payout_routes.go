package routes

import (
	"github.com/edupay/payment_service/handlers"
	"github.com/edupay/payment_service/middleware"
	"github.com/gofiber/fiber/v2"
)

func PayoutRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	payouts := api.Group("/instructor/payouts", middleware.Protected(), middleware.InstructorRequired())
	payouts.Post("/request", handlers.RequestPayout)
	payouts.Get("/requests", handlers.GetMyPayouts)
	payouts.Post("/:payoutId/cancel", handlers.CancelPayout)

	admin := api.Group("/admin/payouts", middleware.Protected(), middleware.AdminRequired())
	admin.Get("", handlers.ListAllPayouts)
	admin.Get("/:payoutId", handlers.GetPayout)
	admin.Post("/:payoutId/process", handlers.ProcessPayout)
	admin.Post("/:payoutId/cancel", handlers.CancelPayout)
}
