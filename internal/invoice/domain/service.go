package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/billing"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Issue(ctx context.Context, tx *gorm.DB, req IssueRequest) (Invoice, error)
	Get(ctx context.Context, id snowflake.ID) (Invoice, error)
	GetByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Render(ctx context.Context, id snowflake.ID) ([]byte, error)
}

type IssueRequest struct {
	StayID       snowflake.ID
	GuestID      snowflake.ID
	DocumentType DocumentType
	TaxID        string
	BusinessName string
	Lines        []billing.Line
	Total        int64
	IssuedAt     time.Time
	Waived       bool
}

type ListRequest struct {
	pagination.Pagination
	DocumentType string
	GuestID      *snowflake.ID
	IssuedFrom   *time.Time
	IssuedTo     *time.Time
}

type ListResponse struct {
	Invoices []Invoice           `json:"invoices"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidDocumentType  = errors.New("invalid_document_type")
	ErrTaxIDRequired        = errors.New("tax_id_required")
	ErrBusinessNameRequired = errors.New("business_name_required")
	ErrEmptyLines           = errors.New("invoice_lines_empty")
	ErrTotalMismatch        = errors.New("invoice_total_mismatch")
	ErrAlreadyIssued        = errors.New("invoice_already_issued")
	ErrNotFound             = errors.New("invoice_not_found")

	// ErrSequenceConflict means a concurrent issue took the same document
	// number. The checkout rolls back and can be retried.
	ErrSequenceConflict = errors.New("invoice_sequence_conflict")
)

// ValidateDocument checks the header fields required by the document type.
func ValidateDocument(dt DocumentType, taxID, businessName string) error {
	switch dt {
	case DocumentReceipt:
		return nil
	case DocumentInvoice:
		if taxID == "" {
			return ErrTaxIDRequired
		}
		if businessName == "" {
			return ErrBusinessNameRequired
		}
		return nil
	default:
		return ErrInvalidDocumentType
	}
}
