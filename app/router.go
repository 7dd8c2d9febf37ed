package app

import (
	"time"

	"example/formula-api/app/guest"
	"example/formula-api/app/logging"
	"example/formula-api/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger())
	corsCfg := corsConfig(s.cfg.CORS)
	warnUncredentialedCORS(corsCfg)
	router.Use(cors.New(corsCfg))

	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.POST("/api/stripe/webhook", s.StripeWebhook)

	disabled := auth.Disabled(s.cfg)

	// Anonymous callers are metered as guests; the cookie is only issued
	// on routes that meter them.
	metered := router.Group("/api")
	metered.Use(
		guest.IdentityMiddleware(s.cfg.Env != "local"),
		auth.Middleware(s.verifier, auth.MiddlewareConfig{
			Optional:    true,
			DisableAuth: disabled,
		}),
	)
	metered.POST("/generate", s.Generate)
	metered.GET("/usage", s.Usage)
	metered.POST("/formulas/export", s.ExportFormula)

	protected := router.Group("/api/billing")
	protected.Use(auth.Middleware(s.verifier, auth.MiddlewareConfig{
		DisableAuth:     disabled,
		OnAuthenticated: s.ensureProfile,
	}))
	protected.POST("/create-checkout-session", s.CreateCheckoutSession)
	protected.POST("/portal-session", s.CreatePortalSession)

	return router
}

// corsConfig allows credentials (the guest cookie) only for an explicit
// origin list.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// warnUncredentialedCORS reports a wildcard origin policy. Browsers will not
// send the guest_id cookie cross-origin under it, so every cross-origin guest
// request starts a fresh quota.
func warnUncredentialedCORS(cfg cors.Config) bool {
	if !cfg.AllowAllOrigins {
		return false
	}
	log.Warn().
		Str("cors_origins", "*").
		Msg("CORS allows all origins without credentials; cross-origin guests lose the guest_id cookie, set CORS_ORIGINS to the frontend origin")
	return true
}
