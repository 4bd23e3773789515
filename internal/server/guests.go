package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
)

func (s *Server) CreateGuest(c *gin.Context) {
	var req guestdomain.Attributes
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.guestSvc.Create(c.Request.Context(), nil, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListGuests(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name                 string `form:"name"`
		IdentificationNumber string `form:"identification_number"`
		Complete             string `form:"complete"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	complete, err := parseOptionalBool(query.Complete)
	if err != nil {
		AbortWithError(c, newValidationError("complete", "invalid_complete", "invalid complete"))
		return
	}

	resp, err := s.guestSvc.List(c.Request.Context(), guestdomain.ListGuestRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Name:                 strings.TrimSpace(query.Name),
		IdentificationNumber: strings.TrimSpace(query.IdentificationNumber),
		Complete:             complete,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Guests, "page_info": resp.PageInfo})
}

func (s *Server) GetGuestByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.guestSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req guestdomain.Attributes
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.guestSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CompleteGuestProfile answers 400 with the missing fields while the profile
// is still incomplete.
func (s *Server) CompleteGuestProfile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.guestSvc.MarkProfileComplete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isGuestValidationError(err error) bool {
	switch err {
	case guestdomain.ErrInvalidID,
		guestdomain.ErrInvalidIdentificationNumber,
		guestdomain.ErrInvalidBirthDate,
		guestdomain.ErrInvalidAge,
		guestdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}
