package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	RequireScopes []string
	PublicPaths   map[string]bool
	DisableAuth   bool

	// Optional lets requests without an Authorization header through as
	// guests. A header that is present but invalid is still rejected.
	Optional bool

	// OnAuthenticated runs after a token was verified. An error aborts the
	// request with 500.
	OnAuthenticated func(c *gin.Context, claims *Claims) error
}

// Middleware verifies bearer tokens and injects claims into the request context.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.DisableAuth {
			claims := &Claims{
				Subject: "local-dev",
			}
			accept(c, cfg, claims)
			return
		}

		if cfg.PublicPaths != nil && cfg.PublicPaths[c.FullPath()] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Optional {
				c.Next()
				return
			}
			log.Info().Str("path", c.Request.URL.Path).Msg("auth failure: missing Authorization header")
			respondUnauthorized(c, "missing authorization header")
			return
		}

		if verifier == nil {
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		token, ok := extractBearerToken(authHeader)
		if !ok {
			log.Info().Str("path", c.Request.URL.Path).Msg("auth failure: malformed Authorization header")
			respondUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Info().Err(err).Str("path", c.Request.URL.Path).Msg("auth failure: token invalid")
			respondUnauthorized(c, "invalid token")
			return
		}

		if len(cfg.RequireScopes) > 0 && !hasScopes(claims.Scope, cfg.RequireScopes) {
			log.Info().Str("path", c.Request.URL.Path).Msg("auth failure: missing scopes")
			respondUnauthorized(c, "insufficient scope")
			return
		}

		accept(c, cfg, claims)
	}
}

func accept(c *gin.Context, cfg MiddlewareConfig, claims *Claims) {
	ctx := WithClaims(c.Request.Context(), claims)
	c.Request = c.Request.WithContext(ctx)

	if cfg.OnAuthenticated != nil {
		if err := cfg.OnAuthenticated(c, claims); err != nil {
			log.Error().Err(err).Str("user_id", claims.Subject).Msg("post-auth hook failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "failed to load user",
			})
			return
		}
	}
	c.Next()
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func hasScopes(scopeClaim string, required []string) bool {
	if scopeClaim == "" {
		return false
	}
	available := map[string]struct{}{}
	for _, s := range strings.Fields(scopeClaim) {
		available[s] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := available[scope]; !ok {
			return false
		}
	}
	return true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
