package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/internal/idempotency"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	registerdomain "github.com/smallbiznis/frontdesk/internal/register/domain"
	reservationdomain "github.com/smallbiznis/frontdesk/internal/reservation/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type     string                    `json:"type"`
	Code     string                    `json:"code,omitempty"`
	Message  string                    `json:"message"`
	Errors   []ValidationError         `json:"errors,omitempty"`
	Blocking []registerdomain.Blocking `json:"blocking,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var incomplete *guestdomain.IncompleteProfileError
	if errors.As(err, &incomplete) {
		fields := make([]ValidationError, 0, len(incomplete.Missing))
		for _, field := range incomplete.Missing {
			fields = append(fields, ValidationError{Field: field, Code: "required", Message: field + " is required"})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    guestdomain.ErrProfileIncomplete.Error(),
			Message: "guest profile incomplete",
			Errors:  fields,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var blocked *registerdomain.BlockedError
	if errors.As(err, &blocked) {
		return http.StatusConflict, errorPayload{
			Type:     "conflict",
			Code:     registerdomain.ErrRegisterBlocked.Error(),
			Message:  "register blocked by incomplete guest profiles",
			Blocking: blocked.Blocking,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    conflictCode(err),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same taxonomy the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isReferenceValidationError(err),
		isRoomValidationError(err),
		isGuestValidationError(err),
		isPaymentValidationError(err),
		isInvoiceValidationError(err),
		isStayValidationError(err),
		isReservationValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

var conflictErrors = []error{
	ErrConflict,
	idempotency.ErrDuplicateRequest,
	referencedomain.ErrDuplicate,
	roomdomain.ErrNumberTaken,
	roomdomain.ErrRoomUnavailable,
	roomdomain.ErrRoomInactive,
	roomdomain.ErrRoomOccupied,
	roomdomain.ErrInvalidTransition,
	roomdomain.ErrStatusConflict,
	guestdomain.ErrDuplicateIdentification,
	paymentdomain.ErrIdempotencyReuse,
	invoicedomain.ErrAlreadyIssued,
	invoicedomain.ErrSequenceConflict,
	staydomain.ErrStayFinalized,
	staydomain.ErrGuestAlreadyHoused,
	staydomain.ErrCapacityExceeded,
	staydomain.ErrCancelWindowElapsed,
	staydomain.ErrHasPayments,
	staydomain.ErrServiceInactive,
	reservationdomain.ErrStatusConflict,
	registerdomain.ErrRegisterBlocked,
}

func isConflictError(err error) bool {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return db.IsDuplicateKeyErr(err)
}

func conflictCode(err error) string {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "duplicate_key"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, referencedomain.ErrNotFound),
		errors.Is(err, roomdomain.ErrNotFound),
		errors.Is(err, guestdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, staydomain.ErrNotFound),
		errors.Is(err, staydomain.ErrConsumptionNotFound),
		errors.Is(err, reservationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasSuffix(code, "_required") {
		return strings.TrimSuffix(code, "_required")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch {
	case code == "invalid_request":
		return "invalid request"
	case strings.HasSuffix(code, "_required"):
		return strings.ReplaceAll(code, "_", " ")
	default:
		return "invalid value"
	}
}

func isAuditValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
		auditdomain.ErrInvalidAction:
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidDirection),
		errors.Is(err, paymentdomain.ErrInvalidBank),
		errors.Is(err, paymentdomain.ErrInvalidTarget):
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidDocumentType),
		errors.Is(err, invoicedomain.ErrTaxIDRequired),
		errors.Is(err, invoicedomain.ErrBusinessNameRequired),
		errors.Is(err, invoicedomain.ErrEmptyLines):
		return true
	default:
		return false
	}
}
