package app

import (
	"errors"
	"net/http"
	"time"

	"example/formula-api/app/completion"
	"example/formula-api/app/entitlement"
	"example/formula-api/app/events"
	"example/formula-api/app/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Generate turns the caller's request into a formula, metered per tier.
// The counter is only advanced after the completion call succeeded.
func (s *Server) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	prompt, err := completion.BuildPrompt(req.Platform, req.UserPrompt)
	if err != nil {
		msg := "Prompt is required"
		if errors.Is(err, completion.ErrUnknownPlatform) {
			msg = "platform must be excel or google-sheets"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	caller := callerFromRequest(c)
	grant, err := s.meter.Authorize(ctx, caller)
	if err != nil {
		s.respondMeterError(c, caller, err, "failed to load usage")
		return
	}
	tier := grant.Decision.Class.String()

	start := time.Now()
	result, err := s.completion.Generate(ctx, prompt)
	s.metrics.ObserveCompletion(time.Since(start), err != nil)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", caller.UserID).
			Str("tier", tier).
			Msg("completion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate formula"})
		return
	}

	used, err := s.meter.Commit(ctx, grant)
	if err != nil {
		s.respondMeterError(c, caller, err, "failed to record usage")
		return
	}
	s.metrics.Generation(tier)

	event := models.UsageEvent{
		Tier:       tier,
		UserID:     caller.UserID,
		GuestID:    guestIDFor(caller),
		UsageCount: used,
		Platform:   req.Platform,
		At:         time.Now().UTC(),
	}
	if s.cfg.Lambda {
		events.PublishSync(ctx, s.publisher, event)
	} else {
		events.PublishDetached(ctx, s.publisher, event)
	}

	c.JSON(http.StatusOK, result)
}

// respondMeterError maps quota refusals to 429 and everything else to 500.
func (s *Server) respondMeterError(c *gin.Context, caller entitlement.Caller, err error, fallback string) {
	var quota *entitlement.QuotaError
	if errors.As(err, &quota) {
		s.metrics.Denial(quota.Class.String())
		c.JSON(http.StatusTooManyRequests, gin.H{"error": quota.Error()})
		return
	}
	log.Error().Err(err).
		Str("user_id", caller.UserID).
		Msg(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

func guestIDFor(caller entitlement.Caller) string {
	if caller.Authenticated() {
		return ""
	}
	return caller.GuestID
}
