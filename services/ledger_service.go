package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/notifications"
	"github.com/edupay/payment_service/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerService is the authoritative writer of Transaction rows. Payout
// allocation (setting payout_id) belongs to PayoutService; everything else
// goes through here.
type LedgerService struct {
	db      *gorm.DB
	calc    *CommissionCalculator
	gateway payments.Gateway
}

func NewLedgerService(db *gorm.DB, calc *CommissionCalculator, gateway payments.Gateway) *LedgerService {
	return &LedgerService{db: db, calc: calc, gateway: gateway}
}

type RecordPaymentParams struct {
	PayerID           uuid.UUID
	CourseID          uuid.UUID
	InstructorID      uuid.UUID
	GrossAmount       decimal.Decimal
	Currency          string
	ExternalChargeRef string
	Description       string
	Metadata          datatypes.JSON
}

// RecordPayment persists a completed payment with its commission split.
// The gateway charge has already happened by the time this runs, so any
// failure past validation leaves a FAILED row behind for auditability.
func (s *LedgerService) RecordPayment(p RecordPaymentParams) (*models.Transaction, error) {
	if !p.GrossAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var instructor models.Instructor
	if err := s.db.First(&instructor, "id = ?", p.InstructorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotPayable
		}
		return nil, err
	}
	if !instructor.Payable() {
		return nil, ErrInstructorNotPayable
	}

	var existing int64
	if err := s.db.Model(&models.Transaction{}).
		Where("payer_id = ? AND course_id = ? AND kind = ? AND status = ?",
			p.PayerID, p.CourseID, models.TxnKindPayment, models.TxnStatusCompleted).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateEnrollment
	}

	split, err := s.calc.CalculateSplit(p.GrossAmount, p.InstructorID)
	if err != nil {
		return nil, err
	}

	txn := models.Transaction{
		ExternalChargeRef:  &p.ExternalChargeRef,
		Amount:             p.GrossAmount,
		Currency:           p.Currency,
		Status:             models.TxnStatusCompleted,
		Kind:               models.TxnKindPayment,
		PlatformCommission: split.PlatformCommission,
		InstructorEarnings: split.InstructorEarnings,
		PayerID:            p.PayerID,
		CourseID:           p.CourseID,
		InstructorID:       p.InstructorID,
		Description:        p.Description,
		Metadata:           p.Metadata,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction; the partial unique index on
		// (payer_id, course_id) is the backstop for concurrent calls.
		var count int64
		if err := tx.Model(&models.Transaction{}).
			Where("payer_id = ? AND course_id = ? AND kind = ? AND status = ?",
				p.PayerID, p.CourseID, models.TxnKindPayment, models.TxnStatusCompleted).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEnrollment
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEnrollment) {
			return nil, err
		}
		// The charge already exists at the gateway; keep a failed row so
		// reconciliation can find it.
		s.recordFailedPayment(p, split)
		return nil, fmt.Errorf("persist payment for charge %s: %w", p.ExternalChargeRef, err)
	}

	RecordAudit(s.db, "payment.completed", nil,
		fmt.Sprintf("Recorded payment of %s %s for course %s", p.GrossAmount.StringFixed(2), p.Currency, p.CourseID),
		&txn.ID, nil)
	go notifications.Dispatch(notifications.Event{
		Type:         notifications.EventPaymentCompleted,
		InstructorID: p.InstructorID,
		Payload: map[string]interface{}{
			"transaction_id": txn.ID,
			"amount":         p.GrossAmount.StringFixed(2),
			"currency":       p.Currency,
		},
	})
	go notifications.Dispatch(notifications.Event{
		Type:         notifications.EventNewEarnings,
		InstructorID: p.InstructorID,
		Payload: map[string]interface{}{
			"earnings": split.InstructorEarnings.StringFixed(2),
		},
	})

	return &txn, nil
}

func (s *LedgerService) recordFailedPayment(p RecordPaymentParams, split Split) {
	failed := models.Transaction{
		ExternalChargeRef:  &p.ExternalChargeRef,
		Amount:             p.GrossAmount,
		Currency:           p.Currency,
		Status:             models.TxnStatusFailed,
		Kind:               models.TxnKindPayment,
		PlatformCommission: split.PlatformCommission,
		InstructorEarnings: split.InstructorEarnings,
		PayerID:            p.PayerID,
		CourseID:           p.CourseID,
		InstructorID:       p.InstructorID,
		Description:        p.Description,
		Metadata:           p.Metadata,
	}
	if err := s.db.Create(&failed).Error; err != nil {
		log.Printf("🔥 Failed to record failed payment for charge %s: %v", p.ExternalChargeRef, err)
	}
}

// RecordRefund reverses a payment, fully or partially. The refund row and
// the original's status flip are one atomic unit.
func (s *LedgerService) RecordRefund(transactionID uuid.UUID, requestedAmount *decimal.Decimal, reason string, actorID *uuid.UUID) (*models.Transaction, error) {
	var original models.Transaction
	if err := s.db.First(&original, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if original.Status == models.TxnStatusRefunded {
		return nil, ErrAlreadyRefunded
	}
	if original.Kind != models.TxnKindPayment || original.Status != models.TxnStatusCompleted {
		return nil, errors.New("only completed payments can be refunded")
	}

	refundAmount := original.Amount
	if requestedAmount != nil {
		refundAmount = *requestedAmount
	}
	if !refundAmount.IsPositive() || refundAmount.GreaterThan(original.Amount) {
		return nil, ErrInvalidAmount
	}

	var refundRef string
	if s.gateway != nil && original.ExternalChargeRef != nil {
		result, err := s.gateway.Refund(*original.ExternalChargeRef, refundAmount, reason)
		if err != nil {
			return nil, &GatewayError{Op: "refund", Err: err}
		}
		refundRef = result.RefundRef
	}

	// Scale the original split by the refund ratio so partial refunds
	// reverse commission and earnings proportionally.
	ratio := refundAmount.Div(original.Amount)
	refundedCommission := original.PlatformCommission.Mul(ratio).Round(2).Neg()
	refundedEarnings := original.InstructorEarnings.Mul(ratio).Round(2).Neg()

	refund := models.Transaction{
		Amount:             refundAmount,
		Currency:           original.Currency,
		Status:             models.TxnStatusCompleted,
		Kind:               models.TxnKindRefund,
		PlatformCommission: refundedCommission,
		InstructorEarnings: refundedEarnings,
		PayerID:            original.PayerID,
		CourseID:           original.CourseID,
		InstructorID:       original.InstructorID,
		Description:        fmt.Sprintf("Refund: %s", reason),
		RefundOfID:         &original.ID,
	}
	if refundRef != "" {
		refund.ExternalChargeRef = &refundRef
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}

		// Optimistic guard: flipping the original only succeeds if it is
		// still in completed state, which makes a second concurrent refund
		// roll back its own refund row.
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", original.ID, models.TxnStatusCompleted).
			Updates(map[string]interface{}{
				"status":    models.TxnStatusRefunded,
				"refund_id": refund.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRefunded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(s.db, "payment.refunded", actorID,
		fmt.Sprintf("Refunded %s %s of transaction %s", refundAmount.StringFixed(2), original.Currency, original.ID),
		&refund.ID, nil)
	go notifications.Dispatch(notifications.Event{
		Type:         notifications.EventRefundCompleted,
		InstructorID: original.InstructorID,
		Payload: map[string]interface{}{
			"transaction_id": original.ID,
			"refund_id":      refund.ID,
			"amount":         refundAmount.StringFixed(2),
		},
	})

	return &refund, nil
}

// MarkDisputed flags a completed payment after an external chargeback
// notification. Disputed earnings are never settled.
func (s *LedgerService) MarkDisputed(transactionID uuid.UUID, reason string) error {
	var txn models.Transaction
	if err := s.db.First(&txn, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	if txn.Status != models.TxnStatusCompleted || txn.Kind != models.TxnKindPayment {
		return errors.New("only completed payments can be disputed")
	}

	if err := s.db.Model(&txn).Update("status", models.TxnStatusDisputed).Error; err != nil {
		return err
	}

	RecordAudit(s.db, "payment.disputed", nil, reason, &txn.ID, nil)
	return nil
}

// UnsettledBalance summarizes earnings not yet allocated to a payout.
type UnsettledBalance struct {
	PendingAmount           decimal.Decimal `json:"pending_amount"`
	PendingTransactionCount int             `json:"pending_transaction_count"`
	OldestUnsettledAt       *time.Time      `json:"oldest_unsettled_at"`
}

// GetUnsettledBalance sums instructor earnings over unallocated rows.
// Refund rows carry negative earnings, so a plain sum nets them out.
// Disputed rows are excluded.
func (s *LedgerService) GetUnsettledBalance(instructorID uuid.UUID) (*UnsettledBalance, error) {
	rows, err := s.unsettledRows(s.db, instructorID)
	if err != nil {
		return nil, err
	}

	balance := &UnsettledBalance{PendingAmount: decimal.Zero}
	for _, row := range rows {
		balance.PendingAmount = balance.PendingAmount.Add(row.InstructorEarnings)
		if row.Kind == models.TxnKindPayment {
			balance.PendingTransactionCount++
			if balance.OldestUnsettledAt == nil || row.CreatedAt.Before(*balance.OldestUnsettledAt) {
				createdAt := row.CreatedAt
				balance.OldestUnsettledAt = &createdAt
			}
		}
	}
	return balance, nil
}

// unsettledRows returns settleable rows oldest first with a stable id
// tie-break, so allocation is deterministic across retries.
func (s *LedgerService) unsettledRows(db *gorm.DB, instructorID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := db.
		Where("instructor_id = ? AND payout_id IS NULL AND status IN ?",
			instructorID, []models.TransactionStatus{models.TxnStatusCompleted, models.TxnStatusRefunded}).
		Order("created_at asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTransactionByID loads a single transaction.
func (s *LedgerService) GetTransactionByID(id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}
