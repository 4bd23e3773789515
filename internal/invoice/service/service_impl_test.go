package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/billing"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentrepo "github.com/smallbiznis/frontdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/frontdesk/internal/payment/service"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var issuedAt = time.Date(2026, 5, 4, 11, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (invoicedomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(issuedAt)
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())

	payments := paymentservice.New(paymentservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Policy: policy,
		Repo:   paymentrepo.Provide(),
	})
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Policy:   policy,
		Payments: payments,
		PDF:      pdf.New(),
	})
	return svc, db
}

func sampleLines() []billing.Line {
	serviceID := snowflake.ID(77)
	return []billing.Line{
		{Description: billing.LodgingDescription, Quantity: 2, UnitPrice: 15000, Cost: 30000},
		{ServiceID: &serviceID, Description: "Laundry", Quantity: 1, UnitPrice: 2000, Cost: 2000},
	}
}

func TestIssueNumbersPerDocumentType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 32000,
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-20260504-000001", first.Number)
	assert.Len(t, first.Details, 2)

	second, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 2, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 32000,
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-20260504-000002", second.Number)

	invoice, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 3, GuestID: 10, DocumentType: invoicedomain.DocumentInvoice,
		TaxID: "1020304", BusinessName: "ACME SRL",
		Lines: sampleLines(), Total: 32000,
	})
	require.NoError(t, err)
	assert.Equal(t, "FAC-20260504-000001", invoice.Number)
	assert.Equal(t, "BOB", invoice.Currency)
}

func TestIssueRejectsInvalidDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentInvoice,
		BusinessName: "ACME SRL", Lines: sampleLines(), Total: 32000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrTaxIDRequired)

	_, err = svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentInvoice,
		TaxID: "1020304", Lines: sampleLines(), Total: 32000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrBusinessNameRequired)

	_, err = svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 31999,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrTotalMismatch)

	_, err = svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyLines)
}

func TestIssueOncePerStay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 32000,
	}
	_, err := svc.Issue(ctx, nil, req)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, nil, req)
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyIssued)
}

func TestIssueReportsTakenNumberAsSequenceConflict(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// another checkout already committed the number the next receipt gets
	require.NoError(t, db.Exec(
		`INSERT INTO invoices (id, number, document_type, sequence, stay_id, guest_id,
			issued_at, status, total_amount, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		9001, "REC-20260504-000001", invoicedomain.DocumentInvoice, 1, 99, 10,
		issuedAt, invoicedomain.StatusIssued, 32000, "USD", issuedAt,
	).Error)

	_, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 32000,
	})
	require.ErrorIs(t, err, invoicedomain.ErrSequenceConflict)
	assert.NotErrorIs(t, err, invoicedomain.ErrAlreadyIssued)

	_, err = svc.GetByStay(ctx, nil, 1)
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestGetAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
			StayID: snowflake.ID(i), GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
			Lines: sampleLines(), Total: 32000, IssuedAt: issuedAt.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	byStay, err := svc.GetByStay(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, byStay.Details, 2)
	assert.Equal(t, 1, byStay.Details[0].Position)
	assert.Nil(t, byStay.Details[0].ServiceID)

	got, err := svc.Get(ctx, byStay.ID)
	require.NoError(t, err)
	assert.Equal(t, byStay.Number, got.Number)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	page, err := svc.List(ctx, invoicedomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 3)
	assert.Equal(t, snowflake.ID(3), page.Invoices[0].StayID)

	first, err := svc.List(ctx, invoicedomain.ListRequest{Pagination: paginationOf(2, "")})
	require.NoError(t, err)
	require.Len(t, first.Invoices, 2)
	require.True(t, first.PageInfo.HasMore)

	next, err := svc.List(ctx, invoicedomain.ListRequest{Pagination: paginationOf(2, first.PageInfo.NextPageToken)})
	require.NoError(t, err)
	require.Len(t, next.Invoices, 1)
	assert.Equal(t, snowflake.ID(1), next.Invoices[0].StayID)
}

func TestRenderProducesPDF(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(
		`INSERT INTO rooms (id, number, room_type_id, price_id, status, created_at, updated_at)
		 VALUES (5, '101', 1, 1, 'cleaning', ?, ?)`, issuedAt, issuedAt).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO guests (id, first_name, last_name, identification_number, created_at, updated_at)
		 VALUES (10, 'Ana', 'Rojas', 'CI123', ?, ?)`, issuedAt, issuedAt).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO stays (id, guest_id, room_id, check_in_at, check_out_at, planned_nights, advance_payment,
		  advance_method, status, closed_reason, created_at, updated_at)
		 VALUES (1, 10, 5, ?, ?, 2, 10000, 'cash', 'finalized', 'checkout', ?, ?)`,
		issuedAt.Add(-48*time.Hour), issuedAt, issuedAt, issuedAt).Error)

	issued, err := svc.Issue(ctx, nil, invoicedomain.IssueRequest{
		StayID: 1, GuestID: 10, DocumentType: invoicedomain.DocumentReceipt,
		Lines: sampleLines(), Total: 32000,
	})
	require.NoError(t, err)

	out, err := svc.Render(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func paginationOf(size int, token string) pagination.Pagination {
	return pagination.Pagination{PageSize: size, PageToken: token}
}
