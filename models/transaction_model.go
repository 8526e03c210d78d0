package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	TxnStatusPending   TransactionStatus = "pending"
	TxnStatusCompleted TransactionStatus = "completed"
	TxnStatusFailed    TransactionStatus = "failed"
	TxnStatusRefunded  TransactionStatus = "refunded"
	TxnStatusDisputed  TransactionStatus = "disputed"
)

type TransactionKind string

const (
	TxnKindPayment TransactionKind = "payment"
	TxnKindRefund  TransactionKind = "refund"
)

type Transaction struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalChargeRef  *string           `gorm:"size:255;unique" json:"external_charge_ref"`
	Amount             decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency           string            `gorm:"size:3;not null" json:"currency"`
	Status             TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	Kind               TransactionKind   `gorm:"size:20;not null;index" json:"kind"`
	PlatformCommission decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"platform_commission"`
	InstructorEarnings decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"instructor_earnings"`
	PayerID            uuid.UUID         `gorm:"type:uuid;not null;index;index:uniq_completed_enrollment,unique,where:status = 'completed' AND kind = 'payment'" json:"payer_id"`
	CourseID           uuid.UUID         `gorm:"type:uuid;not null;index;index:uniq_completed_enrollment,unique,where:status = 'completed' AND kind = 'payment'" json:"course_id"`
	InstructorID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"instructor_id"`
	Description        string            `gorm:"type:text" json:"description"`
	Metadata           datatypes.JSON    `gorm:"type:jsonb" json:"metadata"`

	// RefundOfID links a refund row back to the payment it reverses;
	// RefundID is the reverse link on the payment row.
	RefundOfID *uuid.UUID `gorm:"type:uuid;index" json:"refund_of_id"`
	RefundID   *uuid.UUID `gorm:"type:uuid" json:"refund_id"`

	// PayoutID is set exactly once, when the settlement engine consumes
	// this transaction's earnings.
	PayoutID *uuid.UUID `gorm:"type:uuid;index" json:"payout_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
