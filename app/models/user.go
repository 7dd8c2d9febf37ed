// Package models defines profile plan and usage tracking fields.
package models

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Valid reports whether p is one of the stored plan values.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

type Profile struct {
	ID               string    `db:"id"`
	Email            string    `db:"email"`
	UsageCount       int       `db:"usage_count"`
	Plan             Plan      `db:"plan_type"`
	StripeCustomerID string    `db:"stripe_customer_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
