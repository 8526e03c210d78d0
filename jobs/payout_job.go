package jobs

import (
	"errors"
	"log"
	"strconv"

	config "github.com/edupay/payment_service/configs"
	"github.com/edupay/payment_service/database"
	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/services"
	"github.com/shopspring/decimal"
)

var (
	ledgerService *services.LedgerService
	payoutService *services.PayoutService
)

// Init hands the job package its service collaborators. Called once from
// main before the cron scheduler starts.
func Init(ledger *services.LedgerService, payouts *services.PayoutService) {
	ledgerService = ledger
	payoutService = payouts
}

func autoPayoutThreshold() decimal.Decimal {
	raw := config.Config("AUTO_PAYOUT_THRESHOLD")
	if raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			return decimal.NewFromFloat(parsed)
		}
	}
	return decimal.NewFromInt(100)
}

// AutoRequestPayouts sweeps payable instructors and requests a payout for
// anyone whose unsettled balance has crossed the threshold. Instructors
// with a pending payout are skipped.
func AutoRequestPayouts() {
	log.Println("Running job: AutoRequestPayouts...")

	if ledgerService == nil || payoutService == nil {
		log.Println("⚠️ Payout job not initialized; skipping sweep.")
		return
	}

	threshold := autoPayoutThreshold()

	var instructors []models.Instructor
	if err := database.DB.Where("payouts_enabled = ?", true).Find(&instructors).Error; err != nil {
		log.Printf("Error loading payable instructors: %v", err)
		return
	}

	for _, instructor := range instructors {
		balance, err := ledgerService.GetUnsettledBalance(instructor.ID)
		if err != nil {
			log.Printf("Error computing balance for instructor %s: %v", instructor.ID, err)
			continue
		}
		if balance.PendingAmount.LessThan(threshold) {
			continue
		}

		method := models.PayoutMethodBankTransfer
		if instructor.PayoutMethod != nil && *instructor.PayoutMethod != "" {
			method = *instructor.PayoutMethod
		}
		destination := ""
		if instructor.PayoutDestination != nil {
			destination = *instructor.PayoutDestination
		}

		payout, err := payoutService.RequestPayout(instructor.ID, balance.PendingAmount, method, destination, "automatic payout")
		if err != nil {
			if errors.Is(err, services.ErrExistingPendingPayout) {
				continue
			}
			log.Printf("Error auto-requesting payout for instructor %s: %v", instructor.ID, err)
			continue
		}
		log.Printf("✅ Auto-requested payout %s for instructor %s (%s).",
			payout.PayoutNumber, instructor.ID, balance.PendingAmount.StringFixed(2))
	}
}
