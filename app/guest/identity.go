package guest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const CookieName = "guest_id"

// one year; the counter outlives a browser session like local storage does.
const cookieMaxAge = 365 * 24 * 60 * 60

type ctxKey int

const guestIDKey ctxKey = iota

func WithGuestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, guestIDKey, id)
}

func GuestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(guestIDKey).(string)
	return id, ok && id != ""
}

// IdentityMiddleware makes sure every request carries a guest id, issuing a
// new cookie when the caller has none or presents a malformed one.
func IdentityMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, id, cookieMaxAge, "/", "", secure, true)
		}
		c.Request = c.Request.WithContext(WithGuestID(c.Request.Context(), id))
		c.Next()
	}
}
