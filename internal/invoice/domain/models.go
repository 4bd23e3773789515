package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type DocumentType string

const (
	DocumentReceipt DocumentType = "receipt"
	DocumentInvoice DocumentType = "invoice"
)

const StatusIssued = "issued"

var documentTypeSynonyms = map[string]DocumentType{
	"receipt": DocumentReceipt,
	"recibo":  DocumentReceipt,
	"invoice": DocumentInvoice,
	"factura": DocumentInvoice,
}

// ParseDocumentType normalises a document type; blank defaults to receipt.
func ParseDocumentType(raw string) (DocumentType, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DocumentReceipt, nil
	}
	if dt, ok := documentTypeSynonyms[value]; ok {
		return dt, nil
	}
	return "", ErrInvalidDocumentType
}

// Invoice is the immutable settlement document issued on checkout.
type Invoice struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Number       string       `gorm:"not null;uniqueIndex" json:"number"`
	DocumentType DocumentType `gorm:"not null" json:"document_type"`
	Sequence     int64        `gorm:"not null" json:"sequence"`
	StayID       snowflake.ID `gorm:"not null;uniqueIndex" json:"stay_id"`
	GuestID      snowflake.ID `gorm:"not null" json:"guest_id"`
	IssuedBy     string       `json:"issued_by,omitempty"`
	TaxID        string       `json:"tax_id,omitempty"`
	BusinessName string       `json:"business_name,omitempty"`
	IssuedAt     time.Time    `gorm:"not null" json:"issued_at"`
	Status       string       `gorm:"not null" json:"status"`
	TotalAmount  int64        `gorm:"not null" json:"total_amount"`
	Currency     string       `gorm:"not null" json:"currency"`
	Waived       bool         `json:"waived"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`

	Details []Detail `gorm:"-" json:"details,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

type Detail struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID  `gorm:"not null" json:"invoice_id"`
	Position    int           `gorm:"not null" json:"position"`
	ServiceID   *snowflake.ID `json:"service_id,omitempty"`
	Description string        `gorm:"not null" json:"description"`
	Quantity    int64         `gorm:"not null" json:"quantity"`
	UnitPrice   int64         `gorm:"not null" json:"unit_price"`
	Cost        int64         `gorm:"not null" json:"cost"`
}

func (Detail) TableName() string { return "invoice_details" }

// StayContext is the stay, guest and room data printed on a document.
type StayContext struct {
	StayID               snowflake.ID
	RoomNumber           string
	CheckInAt            time.Time
	CheckOutAt           *time.Time
	FirstName            string
	LastName             string
	IdentificationNumber string
	AdvancePayment       int64
	AdvanceMethod        string
}
