// Package entitlement decides whether a caller may spend one formula
// generation and which counter to advance once the generation succeeds.
package entitlement

import (
	"errors"
	"fmt"
)

// Class is the caller tier a request is metered against.
type Class int

const (
	Guest Class = iota
	Free
	Pro
)

func (c Class) String() string {
	switch c {
	case Guest:
		return "guest"
	case Free:
		return "free"
	case Pro:
		return "pro"
	default:
		return "unknown"
	}
}

// Unlimited is reported as Limit and Remaining for classes without a quota.
const Unlimited = -1

type Limits struct {
	Guest int
	Free  int
}

func DefaultLimits() Limits {
	return Limits{Guest: 2, Free: 10}
}

// For returns the quota that applies to class.
func (l Limits) For(class Class) int {
	switch class {
	case Guest:
		return l.Guest
	case Free:
		return l.Free
	default:
		return Unlimited
	}
}

// Decision is the outcome of Check. Charge reports whether a successful
// generation must be committed against a counter.
type Decision struct {
	Class     Class
	Allowed   bool
	Charge    bool
	Used      int
	Limit     int
	Remaining int
}

// Check applies the tier policy to a counter value. It has no side effects.
func Check(class Class, used int, limits Limits) Decision {
	if used < 0 {
		used = 0
	}
	if class == Pro {
		return Decision{
			Class:     Pro,
			Allowed:   true,
			Used:      used,
			Limit:     Unlimited,
			Remaining: Unlimited,
		}
	}

	limit := limits.For(class)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Class:     class,
		Allowed:   used < limit,
		Charge:    true,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}
}

var ErrQuotaExceeded = errors.New("generation quota exceeded")

type QuotaError struct {
	Class Class
	Limit int
	Used  int
}

func (e *QuotaError) Error() string {
	if e.Class == Guest {
		return fmt.Sprintf("guest generation limit reached (%d of %d used); sign in to continue", e.Used, e.Limit)
	}
	return fmt.Sprintf("free generation limit reached (%d of %d used); upgrade to continue", e.Used, e.Limit)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func quotaErrorFrom(d Decision) *QuotaError {
	return &QuotaError{Class: d.Class, Limit: d.Limit, Used: d.Used}
}
