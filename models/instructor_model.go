package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Instructor holds the payout profile for a course creator. An instructor
// without an active payout destination cannot receive new payments.
type Instructor struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	PayoutDestination *string   `gorm:"type:text" json:"payout_destination"`
	PayoutMethod      *string   `gorm:"size:30" json:"payout_method"`
	PayoutsEnabled    bool      `gorm:"not null;default:false" json:"payouts_enabled"`

	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Instructor) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Payable reports whether payments can be recorded for this instructor.
func (i *Instructor) Payable() bool {
	return i.PayoutsEnabled && i.PayoutDestination != nil && *i.PayoutDestination != ""
}
