package services

import (
	"encoding/json"
	"log"

	"github.com/edupay/payment_service/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordAudit writes an audit row for a state transition. Best-effort: a
// failed audit write is logged and never propagated to the caller.
func RecordAudit(db *gorm.DB, action string, actorID *uuid.UUID, description string, relatedID *uuid.UUID, metadata map[string]interface{}) {
	entry := models.AuditLog{
		Action:      action,
		ActorID:     actorID,
		Description: description,
		RelatedID:   relatedID,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			entry.Metadata = raw
		}
	}

	if err := db.Create(&entry).Error; err != nil {
		log.Printf("🔥 Failed to write audit log for action %s: %v", action, err)
	}
}
