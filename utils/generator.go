package utils

import (
	"fmt"
	"time"

	"github.com/edupay/payment_service/models"
	"gorm.io/gorm"
)

// GeneratePayoutNumber returns the next sequential payout number for the
// year, e.g. PAYOUT-2024-000007. Must run inside the same transaction as
// the payout insert so concurrent requests cannot share a sequence slot.
func GeneratePayoutNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("PAYOUT-%d-", now.Year())

	var count int64
	if err := tx.Model(&models.Payout{}).
		Where("payout_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%06d", prefix, count+1), nil
}

// GenerateInvoiceNumber returns the next sequential invoice number for the
// year, e.g. INV-2024-000042.
func GenerateInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", now.Year())

	var count int64
	if err := tx.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%06d", prefix, count+1), nil
}
