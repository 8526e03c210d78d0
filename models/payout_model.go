package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

const (
	PayoutMethodBankTransfer = "bank_transfer"
	PayoutMethodPayPal       = "paypal"
	PayoutMethodStripe       = "stripe"
	PayoutMethodExpress      = "express"
	PayoutMethodOther        = "other"
)

type Payout struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PayoutNumber  string          `gorm:"size:30;not null;unique" json:"payout_number"`
	InstructorID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"instructor_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	ProcessingFee decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"processing_fee"`
	PaymentMethod string          `gorm:"size:30;not null" json:"payment_method"`
	BankDetails   string          `gorm:"type:text" json:"bank_details"`
	Status        PayoutStatus    `gorm:"size:20;not null;index" json:"status"`
	PeriodStart   time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd     time.Time       `gorm:"not null" json:"period_end"`
	RequestedAt   time.Time       `gorm:"not null;index" json:"requested_at"`
	ProcessedAt   *time.Time      `json:"processed_at"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Metadata      datatypes.JSON  `gorm:"type:jsonb" json:"metadata"`

	Instructor Instructor `gorm:"foreignKey:InstructorID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether no further status transitions are allowed.
func (p *Payout) Terminal() bool {
	switch p.Status {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}
