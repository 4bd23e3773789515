package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
)

type overrideRoomRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req roomdomain.CreateRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Number = strings.TrimSpace(req.Number)

	resp, err := s.roomSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRooms(c *gin.Context) {
	var query struct {
		Status     string `form:"status"`
		Active     string `form:"active"`
		FloorID    string `form:"floor_id"`
		BlockID    string `form:"block_id"`
		RoomTypeID string `form:"room_type_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}
	req := roomdomain.ListRoomRequest{
		Status: strings.TrimSpace(query.Status),
		Active: active,
	}
	filters := []struct {
		field  string
		raw    string
		target *snowflake.ID
	}{
		{"floor_id", query.FloorID, &req.FloorID},
		{"block_id", query.BlockID, &req.BlockID},
		{"room_type_id", query.RoomTypeID, &req.RoomTypeID},
	}
	for _, f := range filters {
		id, err := parseOptionalSnowflakeID(f.raw)
		if err != nil {
			AbortWithError(c, newValidationError(f.field, "invalid_"+f.field, "invalid "+f.field))
			return
		}
		if id != nil {
			*f.target = *id
		}
	}

	resp, err := s.roomSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAvailableRooms(c *gin.Context) {
	resp, err := s.roomSvc.ListAvailable(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRoomByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.roomSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ToggleRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req toggleActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.roomSvc.ToggleActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkRoomClean(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.roomSvc.MarkClean(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// OverrideRoom forces a room status outside the normal flows.
func (s *Server) OverrideRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req overrideRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.roomSvc.Override(c.Request.Context(), id, strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRoomValidationError(err error) bool {
	switch err {
	case roomdomain.ErrInvalidID,
		roomdomain.ErrInvalidNumber,
		roomdomain.ErrInvalidRoomType,
		roomdomain.ErrInvalidPrice,
		roomdomain.ErrInvalidStatus,
		roomdomain.ErrInvalidEvent:
		return true
	default:
		return false
	}
}
