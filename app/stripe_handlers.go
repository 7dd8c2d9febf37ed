package app

import (
	"errors"
	"io"
	"net/http"

	"example/formula-api/app/billing"
	"example/formula-api/app/metrics"
	"example/formula-api/app/models"
	"example/formula-api/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxWebhookBytes = int64(65536)

// CreateCheckoutSession starts a Stripe Checkout Session for the pro plan.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	priceID := s.cfg.Stripe.PriceIDProMonthly
	frontendURL := s.cfg.Stripe.FrontendURL
	if priceID == "" || frontendURL == "" {
		log.Error().
			Bool("price_id", priceID != "").
			Bool("frontend_url", frontendURL != "").
			Msg("missing Stripe config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	customerID, err := s.ensureStripeCustomer(c.Request.Context(), claims.Subject, claims.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("ensureStripeCustomer failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	url, err := s.billing.CreateCheckoutSession(c.Request.Context(), billing.CheckoutRequest{
		UserID:     claims.Subject,
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: frontendURL + "/billing/success",
		CancelURL:  frontendURL + "/billing/cancel",
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("stripe checkout session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortalSession creates a Stripe Customer Portal session for the
// authenticated user.
func (s *Server) CreatePortalSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if s.cfg.Stripe.FrontendURL == "" {
		log.Error().Msg("missing Stripe config: frontend_url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	customerID, err := s.profiles.StripeCustomerID(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("portal lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}
	if customerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stripe customer missing for user"})
		return
	}

	url, err := s.billing.CreatePortalSession(c.Request.Context(), customerID, s.cfg.Stripe.FrontendURL+"/settings/billing")
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("stripe portal session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// StripeWebhook applies checkout.session.completed events by moving the
// profile to the pro plan. Every other event type is acknowledged and
// ignored. Failures are reported so Stripe retries on its own schedule.
func (s *Server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		log.Warn().Err(err).Msg("stripe webhook read failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	endpointSecret := s.cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Error().Msg("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := billing.VerifyEvent(body, c.GetHeader("Stripe-Signature"), endpointSecret)
	if err != nil {
		log.Warn().Err(err).Msg("stripe webhook signature failed")
		s.metrics.WebhookEvent("", metrics.OutcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}
	eventType := string(event.Type)

	if s.seen != nil && s.seen.Seen(event.ID) {
		s.metrics.WebhookEvent(eventType, metrics.OutcomeDuplicate)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	upgrade, ok, err := billing.UpgradeFromEvent(event)
	if err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Msg("stripe checkout event rejected")
		s.metrics.WebhookEvent(eventType, metrics.OutcomeRejected)
		msg := "invalid session payload"
		if errors.Is(err, billing.ErrMissingUserID) {
			msg = "No user_id in metadata"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !ok {
		s.metrics.WebhookEvent(eventType, metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := s.profiles.SetPlan(c.Request.Context(), upgrade.UserID, models.PlanPro); err != nil {
		log.Error().Err(err).
			Str("event_id", upgrade.EventID).
			Str("user_id", upgrade.UserID).
			Msg("stripe plan upgrade failed")
		s.metrics.WebhookEvent(eventType, metrics.OutcomeFailed)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error while updating plan"})
		return
	}
	if s.seen != nil {
		s.seen.Mark(upgrade.EventID)
	}

	log.Info().
		Str("event_id", upgrade.EventID).
		Str("user_id", upgrade.UserID).
		Msg("profile upgraded to pro")
	s.metrics.WebhookEvent(eventType, metrics.OutcomeApplied)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
