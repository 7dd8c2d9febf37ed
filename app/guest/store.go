// Package guest tracks generations made by anonymous callers. A guest is
// identified only by an opaque id carried in a cookie, so clearing cookies
// resets the counter.
package guest

import (
	"context"

	"example/formula-api/app/models"
)

// StorageKey prefixes every persisted guest counter.
const StorageKey = "guest_usage_count"

// ErrLimitReached is returned by Increment when the counter is already at
// or above the limit.
var ErrLimitReached = models.ErrLimitReached

// Store persists one integer counter per guest id.
type Store interface {
	Read(ctx context.Context, guestID string) (int, error)
	// Increment adds one iff the current value is below limit and returns
	// the new value.
	Increment(ctx context.Context, guestID string, limit int) (int, error)
}

func storageKey(guestID string) string {
	return StorageKey + ":" + guestID
}
