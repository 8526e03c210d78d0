package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GenerateInvoice renders and stores the invoice PDF for a transaction.
func GenerateInvoice(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID format"})
	}

	invoice, err := invoiceService.GenerateInvoice(transactionID)
	if err != nil {
		log.Printf("🔥 Failed to generate invoice for transaction %s: %v", transactionID, err)
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// GetInvoice returns the stored invoice for a transaction.
func GetInvoice(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID format"})
	}

	invoice, err := invoiceService.GetInvoiceByTransaction(transactionID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invoice not found for this transaction"})
	}
	return c.JSON(invoice)
}
