package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"example/formula-api/app/export"
	"example/formula-api/app/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ExportFormula returns an already generated formula as an .xlsx download.
// It is not metered.
func (s *Server) ExportFormula(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	data, err := export.Workbook(req)
	if errors.Is(err, export.ErrEmptyFormula) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("workbook export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(time.Now().UTC())))
	c.Data(http.StatusOK, export.ContentType, data)
}
