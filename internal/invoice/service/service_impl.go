package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/billing"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	"github.com/smallbiznis/frontdesk/internal/invoice/format"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"github.com/smallbiznis/frontdesk/pkg/db/option"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"github.com/smallbiznis/frontdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Payments paymentdomain.Service
	PDF      pdf.Provider
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	invoicerepo repository.Repository[invoicedomain.Invoice]
	payments    paymentdomain.Service
	pdf         pdf.Provider
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		clock:       p.Clock,
		policy:      p.Policy,
		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		payments:    p.Payments,
		pdf:         p.PDF,
	}
}

// Issue numbers and persists the settlement document for a stay. It must run
// inside the checkout transaction.
func (s *Service) Issue(ctx context.Context, tx *gorm.DB, req invoicedomain.IssueRequest) (invoicedomain.Invoice, error) {
	tx = s.conn(tx)

	if req.StayID == 0 || req.GuestID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}
	taxID := strings.TrimSpace(req.TaxID)
	businessName := strings.TrimSpace(req.BusinessName)
	if err := invoicedomain.ValidateDocument(req.DocumentType, taxID, businessName); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if len(req.Lines) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrEmptyLines
	}
	if billing.SumLines(req.Lines) != req.Total {
		return invoicedomain.Invoice{}, invoicedomain.ErrTotalMismatch
	}

	existing, err := s.findByStay(ctx, tx, req.StayID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if existing != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrAlreadyIssued
	}

	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.clock.Now()
	}
	policy := s.policy.Get()

	seq, err := s.nextSequence(ctx, tx, req.DocumentType)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	template := policy.ReceiptNumberTemplate
	if req.DocumentType == invoicedomain.DocumentInvoice {
		template = policy.InvoiceNumberTemplate
	}
	number, err := format.FormatDocumentNumber(template, issuedAt.In(policy.Location()), seq)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	staffID, _ := obscontext.StaffFromContext(ctx)
	invoice := invoicedomain.Invoice{
		ID:           s.genID.Generate(),
		Number:       number,
		DocumentType: req.DocumentType,
		Sequence:     seq,
		StayID:       req.StayID,
		GuestID:      req.GuestID,
		IssuedBy:     staffID,
		TaxID:        taxID,
		BusinessName: businessName,
		IssuedAt:     issuedAt,
		Status:       invoicedomain.StatusIssued,
		TotalAmount:  req.Total,
		Currency:     policy.Currency,
		Waived:       req.Waived,
		CreatedAt:    issuedAt,
	}
	if err := s.insertInvoice(ctx, tx, invoice); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// same-stay duplicates are caught by findByStay under the stay lock
			return invoicedomain.Invoice{}, invoicedomain.ErrSequenceConflict
		}
		return invoicedomain.Invoice{}, err
	}

	details := make([]invoicedomain.Detail, 0, len(req.Lines))
	for i, line := range req.Lines {
		detail := invoicedomain.Detail{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			Position:    i + 1,
			ServiceID:   line.ServiceID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Cost:        line.Cost,
		}
		if err := s.insertDetail(ctx, tx, detail); err != nil {
			return invoicedomain.Invoice{}, err
		}
		details = append(details, detail)
	}
	invoice.Details = details

	s.log.Info("document issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("stay_id", invoice.StayID.String()),
		zap.Int64("total", invoice.TotalAmount),
	)
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	if id == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}
	item, err := s.invoicerepo.FindOne(ctx, nil, option.WithWhere("id = ?", id))
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	details, err := s.listDetails(ctx, s.db, item.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	item.Details = details
	return *item, nil
}

func (s *Service) GetByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (invoicedomain.Invoice, error) {
	tx = s.conn(tx)
	if stayID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}
	item, err := s.findByStay(ctx, tx, stayID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	details, err := s.listDetails(ctx, tx, item.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	item.Details = details
	return *item, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	options := []option.QueryOption{
		option.WithOrder("created_at DESC, id DESC"),
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
	}
	if strings.TrimSpace(req.DocumentType) != "" {
		dt, err := invoicedomain.ParseDocumentType(req.DocumentType)
		if err != nil {
			return invoicedomain.ListResponse{}, err
		}
		options = append(options, option.WithWhere("document_type = ?", dt))
	}
	if req.GuestID != nil {
		options = append(options, option.WithWhere("guest_id = ?", *req.GuestID))
	}
	if req.IssuedFrom != nil {
		options = append(options, option.WithWhere("issued_at >= ?", *req.IssuedFrom))
	}
	if req.IssuedTo != nil {
		options = append(options, option.WithWhere("issued_at <= ?", *req.IssuedTo))
	}

	items, err := s.invoicerepo.Find(ctx, nil, options...)
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := invoicedomain.ListResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return s.db
	}
	return tx
}

func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, dt invoicedomain.DocumentType) (int64, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence), 0) + 1
		 FROM invoices
		 WHERE document_type = ?`,
		dt,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Service) insertInvoice(ctx context.Context, tx *gorm.DB, invoice invoicedomain.Invoice) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, number, document_type, sequence, stay_id, guest_id, issued_by,
			tax_id, business_name, issued_at, status, total_amount, currency, waived, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.Number,
		invoice.DocumentType,
		invoice.Sequence,
		invoice.StayID,
		invoice.GuestID,
		invoice.IssuedBy,
		invoice.TaxID,
		invoice.BusinessName,
		invoice.IssuedAt,
		invoice.Status,
		invoice.TotalAmount,
		invoice.Currency,
		invoice.Waived,
		invoice.CreatedAt,
	).Error
}

func (s *Service) insertDetail(ctx context.Context, tx *gorm.DB, detail invoicedomain.Detail) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoice_details (
			id, invoice_id, position, service_id, description, quantity, unit_price, cost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		detail.ID,
		detail.InvoiceID,
		detail.Position,
		detail.ServiceID,
		detail.Description,
		detail.Quantity,
		detail.UnitPrice,
		detail.Cost,
	).Error
}

func (s *Service) findByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := tx.WithContext(ctx).Raw(
		`SELECT id, number, document_type, sequence, stay_id, guest_id, issued_by,
		        tax_id, business_name, issued_at, status, total_amount, currency, waived, created_at
		 FROM invoices
		 WHERE stay_id = ?`,
		stayID,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) listDetails(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.Detail, error) {
	var details []invoicedomain.Detail
	err := tx.WithContext(ctx).Raw(
		`SELECT id, invoice_id, position, service_id, description, quantity, unit_price, cost
		 FROM invoice_details
		 WHERE invoice_id = ?
		 ORDER BY position ASC`,
		invoiceID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) loadStayContext(ctx context.Context, stayID snowflake.ID) (*invoicedomain.StayContext, error) {
	var row invoicedomain.StayContext
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.id AS stay_id, r.number AS room_number, s.check_in_at, s.check_out_at,
		        g.first_name, g.last_name, g.identification_number,
		        s.advance_payment, s.advance_method
		 FROM stays s
		 JOIN rooms r ON r.id = s.room_id
		 JOIN guests g ON g.id = s.guest_id
		 WHERE s.id = ?`,
		stayID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.StayID == 0 {
		return nil, invoicedomain.ErrNotFound
	}
	return &row, nil
}
