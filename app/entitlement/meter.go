package entitlement

import (
	"context"
	"errors"
	"fmt"

	"example/formula-api/app/models"
)

// Profiles is the subset of the profile store the meter needs.
type Profiles interface {
	EnsureProfile(ctx context.Context, id, email string) (models.Profile, error)
	IncrementUsage(ctx context.Context, id string, limit int) (int, error)
}

// Guests is the guest usage capability: a counter per guest identity.
type Guests interface {
	Read(ctx context.Context, guestID string) (int, error)
	Increment(ctx context.Context, guestID string, limit int) (int, error)
}

// Caller identifies who is asking. An empty UserID selects the guest path.
type Caller struct {
	UserID  string
	Email   string
	GuestID string
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// Grant is handed out by Authorize and redeemed by Commit after the
// generation succeeded.
type Grant struct {
	Caller   Caller
	Decision Decision
}

var errNoGuestIdentity = errors.New("guest identity missing")

type Meter struct {
	profiles Profiles
	guests   Guests
	limits   Limits
}

func NewMeter(profiles Profiles, guests Guests, limits Limits) *Meter {
	return &Meter{profiles: profiles, guests: guests, limits: limits}
}

func (m *Meter) Limits() Limits {
	return m.limits
}

// Usage reports the caller's current standing without changing anything.
func (m *Meter) Usage(ctx context.Context, caller Caller) (Decision, error) {
	return m.decide(ctx, caller)
}

// Authorize returns a *QuotaError when the caller is out of generations.
// Lookup failures are returned wrapped and must abort the request.
func (m *Meter) Authorize(ctx context.Context, caller Caller) (Grant, error) {
	d, err := m.decide(ctx, caller)
	if err != nil {
		return Grant{}, err
	}
	grant := Grant{Caller: caller, Decision: d}
	if !d.Allowed {
		return grant, quotaErrorFrom(d)
	}
	return grant, nil
}

// Commit charges one generation against the grant's counter and returns the
// new counter value. The increment is conditional on the counter still being
// below the limit, so concurrent requests cannot push it past the limit; the
// request that loses gets a *QuotaError.
func (m *Meter) Commit(ctx context.Context, grant Grant) (int, error) {
	d := grant.Decision
	if !d.Allowed {
		return d.Used, quotaErrorFrom(d)
	}
	if !d.Charge {
		return d.Used, nil
	}

	var (
		used int
		err  error
	)
	switch d.Class {
	case Free:
		used, err = m.profiles.IncrementUsage(ctx, grant.Caller.UserID, d.Limit)
		if errors.Is(err, models.ErrLimitReached) {
			// The increment only matches free profiles; an upgrade that landed
			// mid-request is not a quota failure.
			p, lookupErr := m.profiles.EnsureProfile(ctx, grant.Caller.UserID, grant.Caller.Email)
			if lookupErr == nil && p.Plan == models.PlanPro {
				return p.UsageCount, nil
			}
		}
	case Guest:
		if grant.Caller.GuestID == "" {
			return 0, errNoGuestIdentity
		}
		used, err = m.guests.Increment(ctx, grant.Caller.GuestID, d.Limit)
	default:
		return d.Used, nil
	}

	if errors.Is(err, models.ErrLimitReached) {
		return d.Limit, &QuotaError{Class: d.Class, Limit: d.Limit, Used: d.Limit}
	}
	if err != nil {
		return 0, fmt.Errorf("commit %s usage: %w", d.Class, err)
	}
	return used, nil
}

func (m *Meter) decide(ctx context.Context, caller Caller) (Decision, error) {
	if caller.Authenticated() {
		profile, err := m.profiles.EnsureProfile(ctx, caller.UserID, caller.Email)
		if err != nil {
			return Decision{}, fmt.Errorf("load profile: %w", err)
		}
		class := Free
		if profile.Plan == models.PlanPro {
			class = Pro
		}
		return Check(class, profile.UsageCount, m.limits), nil
	}

	if caller.GuestID == "" {
		return Decision{}, errNoGuestIdentity
	}
	used, err := m.guests.Read(ctx, caller.GuestID)
	if err != nil {
		return Decision{}, fmt.Errorf("read guest usage: %w", err)
	}
	return Check(Guest, used, m.limits), nil
}
