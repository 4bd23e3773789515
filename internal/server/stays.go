package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
)

type paymentRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Method      string `json:"method" binding:"required,payment_method"`
	Bank        string `json:"bank"`
	Description string `json:"description"`
	Direction   string `json:"direction" binding:"payment_direction"`
}

type checkoutRequest struct {
	WaivePenalty bool            `json:"waive_penalty"`
	DocumentType string          `json:"document_type" binding:"required,document_type"`
	TaxID        string          `json:"tax_id"`
	BusinessName string          `json:"business_name"`
	Payment      *paymentRequest `json:"payment"`
}

type transferRequest struct {
	RoomID snowflake.ID `json:"room_id" binding:"required"`
}

type mergeRequest struct {
	TargetStayID snowflake.ID `json:"target_stay_id" binding:"required"`
}

func (p *paymentRequest) toDomain(idempotencyKey string) *staydomain.PaymentRequest {
	if p == nil {
		return nil
	}
	return &staydomain.PaymentRequest{
		Amount:         p.Amount,
		Method:         strings.TrimSpace(p.Method),
		Bank:           strings.TrimSpace(p.Bank),
		Description:    strings.TrimSpace(p.Description),
		Direction:      strings.TrimSpace(p.Direction),
		IdempotencyKey: idempotencyKey,
	}
}

func (s *Server) CheckIn(c *gin.Context) {
	var req staydomain.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.CheckIn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListActiveStays(c *gin.Context) {
	roomID, err := parseOptionalSnowflakeID(c.Query("room_id"))
	if err != nil {
		AbortWithError(c, newValidationError("room_id", "invalid_room_id", "invalid room_id"))
		return
	}
	guestID, err := parseOptionalSnowflakeID(c.Query("guest_id"))
	if err != nil {
		AbortWithError(c, newValidationError("guest_id", "invalid_guest_id", "invalid guest_id"))
		return
	}

	var filter staydomain.ListFilter
	if roomID != nil {
		filter.RoomID = *roomID
	}
	if guestID != nil {
		filter.GuestID = *guestID
	}

	resp, err := s.staySvc.ListActive(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStayByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.staySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PreviewStay returns the running bill without writing anything.
func (s *Server) PreviewStay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	waive, err := parseOptionalBool(c.Query("waive"))
	if err != nil {
		AbortWithError(c, newValidationError("waive", "invalid_waive", "invalid waive"))
		return
	}

	resp, err := s.staySvc.Preview(c.Request.Context(), id, waive != nil && *waive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddConsumption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req staydomain.ConsumptionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.AddConsumption(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RemoveConsumption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	consumptionID, ok := parseIDParam(c, "consumption_id")
	if !ok {
		return
	}

	if err := s.staySvc.RemoveConsumption(c.Request.Context(), id, consumptionID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListStayPayments(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.staySvc.ListPayments(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddStayPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.AddPayment(c.Request.Context(), id, *req.toDomain(strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) TransferStay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.Transfer(c.Request.Context(), id, req.RoomID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MergeStay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req mergeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.MergeIntoGroup(c.Request.Context(), id, req.TargetStayID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelStay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.staySvc.CancelAssignment(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CheckoutStay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req checkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.staySvc.Checkout(c.Request.Context(), id, staydomain.CheckoutRequest{
		WaivePenalty: req.WaivePenalty,
		DocumentType: strings.TrimSpace(req.DocumentType),
		TaxID:        strings.TrimSpace(req.TaxID),
		BusinessName: strings.TrimSpace(req.BusinessName),
		Payment:      req.Payment.toDomain(strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isStayValidationError(err error) bool {
	switch {
	case errors.Is(err, staydomain.ErrInvalidID),
		errors.Is(err, staydomain.ErrInvalidStatus),
		errors.Is(err, staydomain.ErrGuestRequired),
		errors.Is(err, staydomain.ErrInvalidPlannedNights),
		errors.Is(err, staydomain.ErrInvalidAdvance),
		errors.Is(err, staydomain.ErrInvalidQuantity),
		errors.Is(err, staydomain.ErrInvalidService),
		errors.Is(err, staydomain.ErrInvalidSchedule),
		errors.Is(err, staydomain.ErrCompanionIsTitular),
		errors.Is(err, staydomain.ErrSameRoom),
		errors.Is(err, staydomain.ErrSameStay):
		return true
	default:
		return false
	}
}
