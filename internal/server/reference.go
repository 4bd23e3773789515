package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
)

type toggleActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func referencePath(kind referencedomain.Kind) string {
	return strings.ReplaceAll(string(kind), "_", "-")
}

func (s *Server) listReference(kind referencedomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly, err := parseOptionalBool(c.Query("active"))
		if err != nil {
			AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
			return
		}
		req := referencedomain.ListRequest{ActiveOnly: activeOnly != nil && *activeOnly}

		ctx := c.Request.Context()
		var data any
		switch kind {
		case referencedomain.KindRoomType:
			data, err = s.referenceSvc.ListRoomTypes(ctx, req)
		case referencedomain.KindPrice:
			data, err = s.referenceSvc.ListPrices(ctx, req)
		case referencedomain.KindFloor:
			data, err = s.referenceSvc.ListFloors(ctx, req)
		case referencedomain.KindBlock:
			data, err = s.referenceSvc.ListBlocks(ctx, req)
		case referencedomain.KindService:
			data, err = s.referenceSvc.ListServices(ctx, req)
		case referencedomain.KindSchedule:
			data, err = s.referenceSvc.ListSchedules(ctx, req)
		default:
			err = referencedomain.ErrInvalidKind
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

func (s *Server) getReference(kind referencedomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		var (
			data any
			err  error
		)
		switch kind {
		case referencedomain.KindRoomType:
			data, err = s.referenceSvc.GetRoomType(ctx, id)
		case referencedomain.KindPrice:
			data, err = s.referenceSvc.GetPrice(ctx, id)
		case referencedomain.KindFloor:
			data, err = s.referenceSvc.GetFloor(ctx, id)
		case referencedomain.KindBlock:
			data, err = s.referenceSvc.GetBlock(ctx, id)
		case referencedomain.KindService:
			data, err = s.referenceSvc.GetService(ctx, id)
		case referencedomain.KindSchedule:
			data, err = s.referenceSvc.GetSchedule(ctx, id)
		default:
			err = referencedomain.ErrInvalidKind
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

func (s *Server) createReference(kind referencedomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var (
			data any
			err  error
		)
		switch kind {
		case referencedomain.KindRoomType:
			var req referencedomain.CreateRoomTypeRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreateRoomType(ctx, req)
		case referencedomain.KindPrice:
			var req referencedomain.CreatePriceRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreatePrice(ctx, req)
		case referencedomain.KindFloor:
			var req referencedomain.CreateFloorRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreateFloor(ctx, req)
		case referencedomain.KindBlock:
			var req referencedomain.CreateBlockRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreateBlock(ctx, req)
		case referencedomain.KindService:
			var req referencedomain.CreateServiceRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreateService(ctx, req)
		case referencedomain.KindSchedule:
			var req referencedomain.CreateScheduleRequest
			if !bindJSON(c, &req) {
				return
			}
			data, err = s.referenceSvc.CreateSchedule(ctx, req)
		default:
			err = referencedomain.ErrInvalidKind
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"data": data})
	}
}

func (s *Server) toggleReference(kind referencedomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}

		if err := s.referenceSvc.ToggleActive(c.Request.Context(), kind, id, *req.Active); err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "active": *req.Active}})
	}
}

func isReferenceValidationError(err error) bool {
	switch err {
	case referencedomain.ErrInvalidKind,
		referencedomain.ErrInvalidID,
		referencedomain.ErrInvalidName,
		referencedomain.ErrInvalidLabel,
		referencedomain.ErrInvalidCode,
		referencedomain.ErrInvalidCapacity,
		referencedomain.ErrInvalidAmount,
		referencedomain.ErrInvalidCurrency,
		referencedomain.ErrInvalidPrice,
		referencedomain.ErrInvalidCheckInTime,
		referencedomain.ErrInvalidCheckOutTime,
		referencedomain.ErrInvalidTolerance:
		return true
	default:
		return false
	}
}
