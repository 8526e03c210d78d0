package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records every ledger and payout state transition. Writes are
// best-effort and never block the operation they describe.
type AuditLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action      string         `gorm:"size:50;not null;index" json:"action"`
	ActorID     *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"`
	Description string         `gorm:"type:text" json:"description"`
	RelatedID   *uuid.UUID     `gorm:"type:uuid;index" json:"related_id"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
