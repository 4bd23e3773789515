package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/internal/idempotency"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	registerdomain "github.com/smallbiznis/frontdesk/internal/register/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthz struct {
	denied map[string]bool
}

func (f *fakeAuthz) Authorize(ctx context.Context, staffID, role, object, action string) error {
	_ = ctx
	_ = staffID
	_ = object
	if role == authorization.RoleAdmin {
		return nil
	}
	if f.denied[action] {
		return authorization.ErrForbidden
	}
	return nil
}

// Unimplemented methods panic through the nil embedded interface.
type fakeStayService struct {
	staydomain.Service

	checkoutErr  error
	getErr       error
	paymentCalls int
	lastPayment  staydomain.PaymentRequest
	lastCheckout staydomain.CheckoutRequest
}

func (f *fakeStayService) Get(ctx context.Context, stayID snowflake.ID) (staydomain.Stay, error) {
	if f.getErr != nil {
		return staydomain.Stay{}, f.getErr
	}
	return staydomain.Stay{ID: stayID}, nil
}

func (f *fakeStayService) AddPayment(ctx context.Context, stayID snowflake.ID, req staydomain.PaymentRequest) (paymentdomain.Payment, error) {
	f.paymentCalls++
	f.lastPayment = req
	return paymentdomain.Payment{ID: snowflake.ID(900), StayID: &stayID, Amount: req.Amount}, nil
}

func (f *fakeStayService) Checkout(ctx context.Context, stayID snowflake.ID, req staydomain.CheckoutRequest) (staydomain.CheckoutResult, error) {
	f.lastCheckout = req
	if f.checkoutErr != nil {
		return staydomain.CheckoutResult{}, f.checkoutErr
	}
	return staydomain.CheckoutResult{Stay: staydomain.Stay{ID: stayID}}, nil
}

type fakeRoomService struct {
	roomdomain.Service

	overrides int
}

func (f *fakeRoomService) Override(ctx context.Context, id snowflake.ID, status string) (roomdomain.Room, error) {
	f.overrides++
	return roomdomain.Room{ID: id, Status: roomdomain.Status(status)}, nil
}

type fakeGuestService struct {
	guestdomain.Service
}

func (f *fakeGuestService) MarkProfileComplete(ctx context.Context, id snowflake.ID) (guestdomain.Guest, error) {
	return guestdomain.Guest{ID: id}, &guestdomain.IncompleteProfileError{Missing: []string{"nationality", "profession"}}
}

type blockedRegister struct {
	registerdomain.Service
}

func (b *blockedRegister) Build(ctx context.Context, date time.Time) (registerdomain.Register, error) {
	return registerdomain.Register{}, &registerdomain.BlockedError{Blocking: []registerdomain.Blocking{
		{GuestID: snowflake.ID(5), Name: "Rojas, Ana", RoomNumber: "101", Role: registerdomain.RoleCompanion, Missing: []string{"birth_date"}},
	}}
}

type fakeGuard struct {
	err error
}

func (f *fakeGuard) Begin(ctx context.Context, scope, key string) (*idempotency.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &idempotency.Ticket{}, nil
}

type testEnv struct {
	router *gin.Engine
	stays  *fakeStayService
	rooms  *fakeRoomService
}

func newTestEnv(t *testing.T, guard requestGuard, register registerdomain.Service) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerValidators()

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	env := &testEnv{
		router: router,
		stays:  &fakeStayService{},
		rooms:  &fakeRoomService{},
	}
	srv := &Server{
		engine:      router,
		authzSvc:    &fakeAuthz{denied: map[string]bool{authorization.ActionRoomOverride: true}},
		staySvc:     env.stays,
		roomSvc:     env.rooms,
		guestSvc:    &fakeGuestService{},
		registerSvc: register,
		guard:       guard,
	}
	srv.registerAPIRoutes()
	return env
}

func (e *testEnv) do(method, path, role, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Staff-Id", "staff-7")
		req.Header.Set("X-Staff-Role", role)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestStaffHeadersRequired(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodGet, "/api/stays/42", "", "", nil)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeError(t, resp).Type)
}

func TestClerkCannotOverrideRoom(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodPost, "/api/rooms/42/override", authorization.RoleClerk, `{"status":"maintenance"}`, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, env.rooms.overrides)

	resp = env.do(http.MethodPost, "/api/rooms/42/override", authorization.RoleAdmin, `{"status":"maintenance"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, env.rooms.overrides)
}

func TestInvalidIDIsValidationError(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodGet, "/api/stays/abc", authorization.RoleClerk, "", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "id", payload.Errors[0].Field)
}

func TestMissingStayIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.stays.getErr = staydomain.ErrNotFound

	resp := env.do(http.MethodGet, "/api/stays/42", authorization.RoleClerk, "", nil)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCheckoutOnFinalizedStayConflicts(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.stays.checkoutErr = staydomain.ErrStayFinalized

	resp := env.do(http.MethodPost, "/api/stays/42/checkout", authorization.RoleClerk, `{"document_type":"receipt"}`, nil)

	require.Equal(t, http.StatusConflict, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "stay_finalized", payload.Code)
}

func TestCheckoutSequenceRaceIsDistinctConflict(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.stays.checkoutErr = invoicedomain.ErrSequenceConflict

	resp := env.do(http.MethodPost, "/api/stays/42/checkout", authorization.RoleClerk, `{"document_type":"receipt"}`, nil)

	require.Equal(t, http.StatusConflict, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "invoice_sequence_conflict", payload.Code)
}

func TestCheckoutRequiresDocumentType(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodPost, "/api/stays/42/checkout", authorization.RoleClerk, `{}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "document_type", payload.Errors[0].Field)
	assert.Equal(t, "document_type_required", payload.Errors[0].Code)
}

func TestCheckoutForwardsPaymentAndKey(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodPost, "/api/stays/42/checkout", authorization.RoleClerk,
		`{"document_type":"factura","tax_id":"123","business_name":"ACME","payment":{"amount":5000,"method":"efectivo"}}`,
		map[string]string{HeaderIdempotencyKey: "chk-1"})

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, env.stays.lastCheckout.Payment)
	assert.Equal(t, int64(5000), env.stays.lastCheckout.Payment.Amount)
	assert.Equal(t, "chk-1", env.stays.lastCheckout.Payment.IdempotencyKey)
	assert.Equal(t, "factura", env.stays.lastCheckout.DocumentType)
}

func TestPaymentRejectsUnknownMethod(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodPost, "/api/stays/42/payments", authorization.RoleClerk, `{"amount":100,"method":"bitcoin"}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "method", payload.Errors[0].Field)
	assert.Zero(t, env.stays.paymentCalls)
}

func TestPaymentForwardsIdempotencyKey(t *testing.T) {
	env := newTestEnv(t, &fakeGuard{}, nil)

	resp := env.do(http.MethodPost, "/api/stays/42/payments", authorization.RoleClerk,
		`{"amount":2500,"method":"qr","bank":"BNB"}`,
		map[string]string{HeaderIdempotencyKey: "pay-1"})

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "pay-1", env.stays.lastPayment.IdempotencyKey)
	assert.Equal(t, "qr", env.stays.lastPayment.Method)
}

func TestDuplicateRequestIsRejected(t *testing.T) {
	env := newTestEnv(t, &fakeGuard{err: idempotency.ErrDuplicateRequest}, nil)

	resp := env.do(http.MethodPost, "/api/stays/42/payments", authorization.RoleClerk,
		`{"amount":2500,"method":"cash"}`,
		map[string]string{HeaderIdempotencyKey: "pay-1"})

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "duplicate_request", decodeError(t, resp).Code)
	assert.Zero(t, env.stays.paymentCalls)
}

func TestIncompleteProfileListsMissingFields(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(http.MethodPost, "/api/guests/42/complete", authorization.RoleClerk, "", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "guest_profile_incomplete", payload.Code)
	require.Len(t, payload.Errors, 2)
	assert.Equal(t, "nationality", payload.Errors[0].Field)
}

func TestRegisterBlockedListsGuests(t *testing.T) {
	env := newTestEnv(t, nil, &blockedRegister{})

	resp := env.do(http.MethodGet, "/api/register?date=2024-03-01", authorization.RoleClerk, "", nil)

	require.Equal(t, http.StatusConflict, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "register_blocked", payload.Code)
	require.Len(t, payload.Blocking, 1)
	assert.Equal(t, "101", payload.Blocking[0].RoomNumber)
	assert.Equal(t, []string{"birth_date"}, payload.Blocking[0].Missing)
}

func TestRegisterRejectsBadDate(t *testing.T) {
	env := newTestEnv(t, nil, &blockedRegister{})

	resp := env.do(http.MethodGet, "/api/register?date=01/03/2024", authorization.RoleClerk, "", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}
