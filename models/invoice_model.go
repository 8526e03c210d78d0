package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;unique" json:"transaction_id"`
	InvoiceNumber string    `gorm:"size:30;not null;unique" json:"invoice_number"`
	PdfURL        string    `gorm:"type:text;not null" json:"pdf_url"`
	IssuedAt      time.Time `gorm:"not null" json:"issued_at"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
