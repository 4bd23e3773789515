package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) CheckRegister(c *gin.Context) {
	resp, err := s.registerSvc.Check(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRegister(c *gin.Context) {
	date, ok := registerDate(c)
	if !ok {
		return
	}

	resp, err := s.registerSvc.Build(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportRegisterXLSX(c *gin.Context) {
	date, ok := registerDate(c)
	if !ok {
		return
	}

	doc, err := s.registerSvc.ExportXLSX(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", registerFilename(date, "xlsx")))
	c.Data(http.StatusOK, xlsxContentType, doc)
}

func (s *Server) ExportRegisterPDF(c *gin.Context) {
	date, ok := registerDate(c)
	if !ok {
		return
	}

	doc, err := s.registerSvc.ExportPDF(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", registerFilename(date, "pdf")))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// registerDate reads ?date=YYYY-MM-DD. A zero time lets the service use today.
func registerDate(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return time.Time{}, true
	}
	date, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return time.Time{}, false
	}
	return date, true
}

func registerFilename(date time.Time, ext string) string {
	if date.IsZero() {
		return "register." + ext
	}
	return "register-" + date.Format(dateOnlyLayout) + "." + ext
}
