package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/notifications"
	"github.com/edupay/payment_service/payments"
	"github.com/edupay/payment_service/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutFeeRule is the flat + percentage hybrid fee for one payout method,
// with a minimum floor.
type PayoutFeeRule struct {
	Flat    decimal.Decimal
	Percent decimal.Decimal
	Minimum decimal.Decimal
}

func DefaultPayoutFees() map[string]PayoutFeeRule {
	return map[string]PayoutFeeRule{
		models.PayoutMethodBankTransfer: {Flat: decimal.NewFromFloat(0.25), Percent: decimal.NewFromFloat(0.25), Minimum: decimal.NewFromFloat(2.50)},
		models.PayoutMethodPayPal:       {Flat: decimal.Zero, Percent: decimal.NewFromInt(2), Minimum: decimal.NewFromInt(1)},
		models.PayoutMethodStripe:       {Flat: decimal.NewFromFloat(0.25), Percent: decimal.NewFromFloat(0.25), Minimum: decimal.NewFromFloat(0.50)},
		models.PayoutMethodExpress:      {Flat: decimal.NewFromInt(5), Percent: decimal.NewFromInt(1), Minimum: decimal.NewFromInt(5)},
		models.PayoutMethodOther:        {Flat: decimal.Zero, Percent: decimal.NewFromInt(1), Minimum: decimal.NewFromInt(1)},
	}
}

// PayoutService owns Payout rows and is the only writer of
// Transaction.payout_id.
type PayoutService struct {
	db       *gorm.DB
	ledger   *LedgerService
	gateway  payments.Gateway
	fees     map[string]PayoutFeeRule
	currency string
}

func NewPayoutService(db *gorm.DB, ledger *LedgerService, gateway payments.Gateway) *PayoutService {
	return &PayoutService{
		db:       db,
		ledger:   ledger,
		gateway:  gateway,
		fees:     DefaultPayoutFees(),
		currency: "USD",
	}
}

func (s *PayoutService) processingFee(method string, amount decimal.Decimal) decimal.Decimal {
	rule, ok := s.fees[method]
	if !ok {
		rule = s.fees[models.PayoutMethodOther]
	}
	fee := rule.Flat.Add(amount.Mul(rule.Percent).Div(oneHundred)).Round(2)
	if fee.LessThan(rule.Minimum) {
		fee = rule.Minimum
	}
	return fee
}

func appendNote(notes, line string) string {
	stamped := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("2006-01-02 15:04:05"), line)
	if notes == "" {
		return stamped
	}
	return notes + "\n" + stamped
}

// RequestPayout creates a PENDING payout against the instructor's unsettled
// balance. The pending-exclusivity check and balance check run inside the
// same transaction as the insert.
func (s *PayoutService) RequestPayout(instructorID uuid.UUID, amount decimal.Decimal, paymentMethod, bankDetails, notes string) (*models.Payout, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var payout models.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pendingCount int64
		if err := tx.Model(&models.Payout{}).
			Where("instructor_id = ? AND status = ?", instructorID, models.PayoutStatusPending).
			Count(&pendingCount).Error; err != nil {
			return err
		}
		if pendingCount > 0 {
			return ErrExistingPendingPayout
		}

		rows, err := s.ledger.unsettledRows(tx, instructorID)
		if err != nil {
			return err
		}
		pending := decimal.Zero
		now := time.Now()
		periodStart := now
		for _, row := range rows {
			pending = pending.Add(row.InstructorEarnings)
			if row.Kind == models.TxnKindPayment && row.CreatedAt.Before(periodStart) {
				periodStart = row.CreatedAt
			}
		}
		if amount.GreaterThan(pending) {
			return ErrInsufficientBalance
		}

		number, err := utils.GeneratePayoutNumber(tx, now)
		if err != nil {
			return err
		}

		payout = models.Payout{
			PayoutNumber:  number,
			InstructorID:  instructorID,
			Amount:        amount,
			ProcessingFee: s.processingFee(paymentMethod, amount),
			PaymentMethod: paymentMethod,
			BankDetails:   bankDetails,
			Status:        models.PayoutStatusPending,
			PeriodStart:   periodStart,
			PeriodEnd:     now,
			RequestedAt:   now,
		}
		if notes != "" {
			payout.Notes = appendNote("", notes)
		}
		return tx.Create(&payout).Error
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(s.db, "payout.requested", &instructorID,
		fmt.Sprintf("Payout %s requested for %s", payout.PayoutNumber, amount.StringFixed(2)),
		&payout.ID, nil)

	return &payout, nil
}

// ProcessPayout drives a pending payout through settlement: it allocates
// unsettled transactions oldest first, moves funds via the gateway, then
// tags the consumed transactions and completes the payout in one atomic
// write. Any failure marks the payout FAILED without tagging anything.
func (s *PayoutService) ProcessPayout(payoutID uuid.UUID, actorID uuid.UUID) (*models.Payout, error) {
	payout, err := s.GetPayoutByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil, ErrInvalidPayoutState
	}

	res := s.db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
		Update("status", models.PayoutStatusProcessing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidPayoutState
	}
	payout.Status = models.PayoutStatusProcessing

	rows, err := s.ledger.unsettledRows(s.db, payout.InstructorID)
	if err != nil {
		return nil, s.failPayout(payout, actorID, fmt.Sprintf("allocation query failed: %v", err), err)
	}

	// Greedy oldest-first allocation: walk the rows in (created_at, id)
	// order, refunds subtracting, until the running total covers the
	// requested amount.
	running := decimal.Zero
	var allocated []uuid.UUID
	for _, row := range rows {
		running = running.Add(row.InstructorEarnings)
		allocated = append(allocated, row.ID)
		if running.GreaterThanOrEqual(payout.Amount) {
			break
		}
	}
	if running.LessThan(payout.Amount) {
		return nil, s.failPayout(payout, actorID,
			fmt.Sprintf("unsettled balance %s is below payout amount %s", running.StringFixed(2), payout.Amount.StringFixed(2)),
			ErrInsufficientBalanceAtSettlement)
	}

	destination := payout.BankDetails
	transfer, err := s.gateway.Transfer(destination, payout.Amount, s.currency)
	if err != nil {
		gwErr := &GatewayError{Op: "transfer", Err: err}
		return nil, s.failPayout(payout, actorID, fmt.Sprintf("transfer failed: %v", err), gwErr)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Tagging only succeeds if every allocated row is still
		// unallocated; a concurrent settlement rolls the whole group back.
		res := tx.Model(&models.Transaction{}).
			Where("id IN ? AND payout_id IS NULL", allocated).
			Update("payout_id", payout.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(allocated)) {
			return ErrInsufficientBalanceAtSettlement
		}

		upd := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payout.ID, models.PayoutStatusProcessing).
			Updates(map[string]interface{}{
				"status":       models.PayoutStatusCompleted,
				"processed_at": now,
				"notes":        appendNote(payout.Notes, fmt.Sprintf("settled via %s, transfer ref %s", payout.PaymentMethod, transfer.TransferRef)),
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrInvalidPayoutState
		}
		return nil
	})
	if err != nil {
		// Funds moved but tagging could not be applied; the payout is
		// marked failed and the stray transfer is left to reconciliation.
		return nil, s.failPayout(payout, actorID, fmt.Sprintf("settlement write failed after transfer %s: %v", transfer.TransferRef, err), err)
	}

	completed, err := s.GetPayoutByID(payout.ID)
	if err != nil {
		return nil, err
	}

	RecordAudit(s.db, "payout.completed", &actorID,
		fmt.Sprintf("Payout %s completed, %d transactions settled", payout.PayoutNumber, len(allocated)),
		&payout.ID, nil)
	go notifications.Dispatch(notifications.Event{
		Type:         notifications.EventPayoutCompleted,
		InstructorID: payout.InstructorID,
		Payload: map[string]interface{}{
			"payout_id":     payout.ID,
			"payout_number": payout.PayoutNumber,
			"amount":        payout.Amount.StringFixed(2),
		},
	})
	s.notifyInstructor(completed, true, "")

	return completed, nil
}

// failPayout moves a processing payout to FAILED with the reason appended
// to its notes, then returns cause so the caller sees why settlement did
// not complete.
func (s *PayoutService) failPayout(payout *models.Payout, actorID uuid.UUID, reason string, cause error) error {
	now := time.Now()
	res := s.db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", payout.ID, models.PayoutStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.PayoutStatusFailed,
			"processed_at": now,
			"notes":        appendNote(payout.Notes, "payout failed: "+reason),
		})
	if res.Error != nil {
		log.Printf("🔥 Failed to mark payout %s as failed: %v", payout.ID, res.Error)
	}

	RecordAudit(s.db, "payout.failed", &actorID, reason, &payout.ID, nil)
	go notifications.Dispatch(notifications.Event{
		Type:         notifications.EventPayoutFailed,
		InstructorID: payout.InstructorID,
		Payload: map[string]interface{}{
			"payout_id": payout.ID,
			"reason":    reason,
		},
	})
	s.notifyInstructor(payout, false, reason)

	return fmt.Errorf("process payout %s: %w", payout.PayoutNumber, cause)
}

func (s *PayoutService) notifyInstructor(payout *models.Payout, succeeded bool, reason string) {
	var instructor models.Instructor
	if err := s.db.Preload("User").First(&instructor, "id = ?", payout.InstructorID).Error; err != nil {
		log.Printf("Could not load instructor %s for payout notification: %v", payout.InstructorID, err)
		return
	}

	if succeeded {
		go notifications.SendEmail(
			instructor.User.FullName,
			instructor.User.Email,
			"Your Payout Has Been Processed",
			fmt.Sprintf("<h1>Payout Processed</h1><p>Hello %s,</p><p>Your payout %s for $%s has been sent via %s.</p>",
				instructor.User.FullName, payout.PayoutNumber, payout.Amount.StringFixed(2), payout.PaymentMethod),
		)
		return
	}
	go notifications.SendEmail(
		instructor.User.FullName,
		instructor.User.Email,
		"Update on Your Payout Request",
		fmt.Sprintf("<h1>Payout Failed</h1><p>Hello %s,</p><p>Your payout %s for $%s could not be completed: %s. Your earnings remain available.</p>",
			instructor.User.FullName, payout.PayoutNumber, payout.Amount.StringFixed(2), reason),
	)
}

// CancelPayout cancels a pending payout. Instructors may cancel their own;
// admins may cancel any.
func (s *PayoutService) CancelPayout(payoutID uuid.UUID, actorID uuid.UUID, isAdmin bool) (*models.Payout, error) {
	payout, err := s.GetPayoutByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil, ErrInvalidPayoutState
	}
	if !isAdmin && actorID != payout.InstructorID {
		return nil, ErrUnauthorized
	}

	actor := "instructor"
	if isAdmin {
		actor = "admin"
	}
	res := s.db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
		Updates(map[string]interface{}{
			"status": models.PayoutStatusCancelled,
			"notes":  appendNote(payout.Notes, fmt.Sprintf("cancelled by %s %s", actor, actorID)),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidPayoutState
	}

	RecordAudit(s.db, "payout.cancelled", &actorID,
		fmt.Sprintf("Payout %s cancelled", payout.PayoutNumber), &payout.ID, nil)

	return s.GetPayoutByID(payoutID)
}

func (s *PayoutService) GetPayoutByID(id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := s.db.First(&payout, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (s *PayoutService) ListPayoutsForInstructor(instructorID uuid.UUID, page, limit int) ([]models.Payout, int64, error) {
	return s.ListAllPayouts(PayoutFilter{InstructorID: &instructorID, Page: page, Limit: limit})
}

// PayoutFilter narrows ListAllPayouts; zero values mean "no filter".
type PayoutFilter struct {
	Status        models.PayoutStatus
	InstructorID  *uuid.UUID
	RequestedFrom *time.Time
	RequestedTo   *time.Time
	Page          int
	Limit         int
}

func (s *PayoutService) ListAllPayouts(filter PayoutFilter) ([]models.Payout, int64, error) {
	query := s.db.Model(&models.Payout{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InstructorID != nil {
		query = query.Where("instructor_id = ?", *filter.InstructorID)
	}
	if filter.RequestedFrom != nil {
		query = query.Where("requested_at >= ?", *filter.RequestedFrom)
	}
	if filter.RequestedTo != nil {
		query = query.Where("requested_at <= ?", *filter.RequestedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var payouts []models.Payout
	err := query.Order("requested_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}
