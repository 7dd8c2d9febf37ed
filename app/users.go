package app

import (
	"example/formula-api/app/entitlement"
	"example/formula-api/app/guest"
	"example/formula-api/auth"

	"github.com/gin-gonic/gin"
)

// callerFromRequest resolves who is asking. Requests without verified
// claims fall back to the guest identity issued by the guest middleware.
func callerFromRequest(c *gin.Context) entitlement.Caller {
	ctx := c.Request.Context()
	var caller entitlement.Caller
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		caller.UserID = claims.Subject
		caller.Email = claims.Email
	}
	caller.GuestID, _ = guest.GuestIDFromContext(ctx)
	return caller
}

// ensureProfile creates the profile row on first sight of a user.
func (s *Server) ensureProfile(c *gin.Context, claims *auth.Claims) error {
	_, err := s.profiles.EnsureProfile(c.Request.Context(), claims.Subject, claims.Email)
	return err
}
