// Package app wires the formula HTTP API for both local and Lambda execution.
package app

import (
	"context"

	"example/formula-api/app/billing"
	"example/formula-api/app/completion"
	"example/formula-api/app/config"
	"example/formula-api/app/entitlement"
	"example/formula-api/app/events"
	"example/formula-api/app/metrics"
	"example/formula-api/app/models"
	"example/formula-api/auth"
)

// ProfileStore is everything the handlers need from profile persistence.
type ProfileStore interface {
	entitlement.Profiles
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	SetPlan(ctx context.Context, id string, plan models.Plan) error
	StripeCustomerID(ctx context.Context, id string) (string, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}

// Server holds the collaborators shared by every handler.
type Server struct {
	cfg        *config.Config
	profiles   ProfileStore
	meter      *entitlement.Meter
	completion completion.Client
	billing    billing.Provider
	seen       *billing.SeenEvents
	publisher  events.Publisher
	metrics    *metrics.Metrics
	verifier   *auth.Verifier
}

type Deps struct {
	Config     *config.Config
	Profiles   ProfileStore
	Guests     entitlement.Guests
	Completion completion.Client
	Billing    billing.Provider
	SeenEvents *billing.SeenEvents
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Verifier   *auth.Verifier
}

func NewServer(d Deps) *Server {
	limits := entitlement.Limits{Guest: d.Config.Limits.Guest, Free: d.Config.Limits.Free}
	s := &Server{
		cfg:        d.Config,
		profiles:   d.Profiles,
		meter:      entitlement.NewMeter(d.Profiles, d.Guests, limits),
		completion: d.Completion,
		billing:    d.Billing,
		seen:       d.SeenEvents,
		publisher:  d.Publisher,
		metrics:    d.Metrics,
		verifier:   d.Verifier,
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}
