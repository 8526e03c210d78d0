package routes

import (
	"github.com/edupay/payment_service/handlers"
	"github.com/edupay/payment_service/middleware"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook/dispute", handlers.HandleDisputeWebhook)

	payments := api.Group("/payments", middleware.Protected())
	payments.Post("/charge", handlers.ChargeCourse)
	payments.Get("/transactions/:transactionId", handlers.GetTransaction)

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Post("/transactions/:transactionId/refund", handlers.RefundTransaction)
	admin.Get("/transactions/export", handlers.ExportTransactionsCSV)
}
