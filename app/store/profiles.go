package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"example/formula-api/app/models"
)

var (
	ErrNotFound     = models.ErrNotFound
	ErrLimitReached = models.ErrLimitReached
)

const profileColumns = `id, COALESCE(email, ''), usage_count, plan_type, COALESCE(stripe_customer_id, ''), created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.UsageCount, &p.Plan, &p.StripeCustomerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProfile returns ErrNotFound when no row exists.
func (s *Postgres) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1;
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// EnsureProfile creates a free profile on first sight and returns the
// stored row.
func (s *Postgres) EnsureProfile(ctx context.Context, id, email string) (models.Profile, error) {
	if id == "" {
		return models.Profile{}, errors.New("missing profile id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, usage_count, plan_type)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (id) DO NOTHING;
	`, id, nullIfEmpty(strings.TrimSpace(email)), models.PlanFree)
	if err != nil {
		return models.Profile{}, fmt.Errorf("ensure profile: %w", err)
	}
	return s.GetProfile(ctx, id)
}

// IncrementUsage adds one generation to a free profile, but only while it is
// below limit. The check and the write are one statement, so concurrent
// requests cannot both take the last slot.
func (s *Postgres) IncrementUsage(ctx context.Context, id string, limit int) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1
		  AND plan_type = $2
		  AND usage_count < $3
		RETURNING usage_count;
	`, id, models.PlanFree, limit).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrLimitReached
	}
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return used, nil
}

// SetPlan changes a profile's plan. Returns ErrNotFound for unknown ids.
func (s *Postgres) SetPlan(ctx context.Context, id string, plan models.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("invalid plan %q", plan)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET plan_type = $1, updated_at = now()
		WHERE id = $2;
	`, plan, id)
	if err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) StripeCustomerID(ctx context.Context, id string) (string, error) {
	var customerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT stripe_customer_id
		FROM profiles
		WHERE id = $1;
	`, id).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get stripe customer: %w", err)
	}
	return customerID.String, nil
}

func (s *Postgres) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET stripe_customer_id = $1, updated_at = now()
		WHERE id = $2;
	`, customerID, id)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
