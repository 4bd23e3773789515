package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reservationdomain "github.com/smallbiznis/frontdesk/internal/reservation/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
)

func (s *Server) CreateReservation(c *gin.Context) {
	var req reservationdomain.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.reservationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListReservations(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status  string `form:"status"`
		GuestID string `form:"guest_id"`
		From    string `form:"from"`
		To      string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	guestID, err := parseOptionalSnowflakeID(query.GuestID)
	if err != nil {
		AbortWithError(c, newValidationError("guest_id", "invalid_guest_id", "invalid guest_id"))
		return
	}
	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.reservationSvc.List(c.Request.Context(), reservationdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:  strings.TrimSpace(query.Status),
		GuestID: guestID,
		From:    from,
		To:      to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Reservations, "page_info": resp.PageInfo})
}

func (s *Server) GetReservationByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.reservationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.reservationSvc.Confirm(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.reservationSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddReservationDeposit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.reservationSvc.AddDeposit(c.Request.Context(), id, reservationdomain.DepositRequest{
		Amount:         req.Amount,
		Method:         strings.TrimSpace(req.Method),
		Bank:           strings.TrimSpace(req.Bank),
		Description:    strings.TrimSpace(req.Description),
		Direction:      strings.TrimSpace(req.Direction),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// PromoteReservation checks the reserved guests in and closes the reservation.
func (s *Server) PromoteReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req reservationdomain.PromoteRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	resp, err := s.reservationSvc.Promote(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func isReservationValidationError(err error) bool {
	switch {
	case errors.Is(err, reservationdomain.ErrInvalidID),
		errors.Is(err, reservationdomain.ErrInvalidStatus),
		errors.Is(err, reservationdomain.ErrInvalidNights),
		errors.Is(err, reservationdomain.ErrInvalidGuestCount),
		errors.Is(err, reservationdomain.ErrInvalidArrival),
		errors.Is(err, reservationdomain.ErrInvalidAdvance),
		errors.Is(err, reservationdomain.ErrInvalidRate),
		errors.Is(err, reservationdomain.ErrGuestRequired),
		errors.Is(err, reservationdomain.ErrRoomsRequired),
		errors.Is(err, reservationdomain.ErrDuplicateRoom),
		errors.Is(err, reservationdomain.ErrOccupantRequired),
		errors.Is(err, reservationdomain.ErrUnknownRoom),
		errors.Is(err, reservationdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
