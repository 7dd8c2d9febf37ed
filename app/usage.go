package app

import (
	"net/http"

	"example/formula-api/app/entitlement"
	"example/formula-api/app/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Usage reports the caller's tier and how many generations are left.
// Limit and remaining are null for pro profiles.
func (s *Server) Usage(c *gin.Context) {
	caller := callerFromRequest(c)
	d, err := s.meter.Usage(c.Request.Context(), caller)
	if err != nil {
		log.Error().Err(err).Str("user_id", caller.UserID).Msg("usage lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}
	c.JSON(http.StatusOK, usageResponse(d))
}

func usageResponse(d entitlement.Decision) models.UsageResponse {
	resp := models.UsageResponse{
		Plan:       d.Class.String(),
		UsageCount: d.Used,
	}
	if d.Limit != entitlement.Unlimited {
		limit, remaining := d.Limit, d.Remaining
		resp.Limit = &limit
		resp.Remaining = &remaining
	}
	return resp
}
