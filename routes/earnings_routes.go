package routes

import (
	"github.com/edupay/payment_service/handlers"
	"github.com/edupay/payment_service/middleware"
	"github.com/gofiber/fiber/v2"
)

func EarningsRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	earnings := api.Group("/instructor/earnings", middleware.Protected(), middleware.InstructorRequired())
	earnings.Get("/balance", handlers.GetMyBalance)
	earnings.Get("/monthly", handlers.GetMyMonthlyEarnings)
	earnings.Get("/courses", handlers.GetMyCourseEarnings)

	invoices := api.Group("/invoices", middleware.Protected())
	invoices.Post("/:transactionId", handlers.GenerateInvoice)
	invoices.Get("/:transactionId", handlers.GetInvoice)
}
