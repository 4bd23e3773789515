package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	obslogger "github.com/smallbiznis/frontdesk/internal/observability/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	contextStaffIDKey   = "staff_id"
	contextStaffRoleKey = "staff_role"
)

// StaffRequired admits requests that carry a staff identity forwarded by the
// gateway in front of the API.
func (s *Server) StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		staffID := strings.TrimSpace(c.GetHeader(obslogger.HeaderStaffID))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(obslogger.HeaderStaffRole)))
		if staffID == "" || role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextStaffIDKey, staffID)
		c.Set(contextStaffRoleKey, role)
		c.Request = c.Request.WithContext(obscontext.WithStaff(c.Request.Context(), staffID, role))
		c.Next()
	}
}

// Idempotent admits a request once per Idempotency-Key within scope. The key
// is settled as completed only when the handler answered without error.
func (s *Server) Idempotent(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || s.guard == nil {
			c.Next()
			return
		}

		ticket, err := s.guard.Begin(c.Request.Context(), scope+":"+c.Param("id"), key)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()

		ticket.Finish(c.Request.Context(), len(c.Errors) == 0 && c.Writer.Status() < 400)
	}
}

func staffFromContext(c *gin.Context) (string, string) {
	return c.GetString(contextStaffIDKey), c.GetString(contextStaffRoleKey)
}
