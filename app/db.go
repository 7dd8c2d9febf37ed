package app

import (
	"context"
	"fmt"

	"example/formula-api/app/billing"
	"example/formula-api/app/completion"
	"example/formula-api/app/config"
	"example/formula-api/app/events"
	"example/formula-api/app/guest"
	"example/formula-api/app/metrics"
	"example/formula-api/app/store"
	"example/formula-api/auth"

	"github.com/rs/zerolog/log"
)

const seenEventsSize = 4096

// Bootstrap connects every production dependency and returns a ready
// server plus a cleanup func that closes the connections.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	db, err := store.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{db.Close}
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("cleanup failed")
			}
		}
	}

	guests, err := guestStore(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if rs, ok := guests.(*guest.RedisStore); ok {
		closers = append(closers, rs.Close)
	}

	verifier, err := auth.NewVerifierFromConfig(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("auth verifier: %w", err)
	}

	publisher, err := events.FromConfig(ctx, cfg.QueueURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	seen, err := billing.NewSeenEvents(seenEventsSize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	srv := NewServer(Deps{
		Config:     cfg,
		Profiles:   store.New(db),
		Guests:     guests,
		Completion: completion.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout),
		Billing:    billing.NewStripe(cfg.Stripe.SecretKey),
		SeenEvents: seen,
		Publisher:  publisher,
		Metrics:    metrics.New(),
		Verifier:   verifier,
	})
	return srv, cleanup, nil
}

// guestStore uses Redis when REDIS_URL is set. The in-memory store keeps
// counts per process and is meant for local development.
func guestStore(cfg *config.Config) (guest.Store, error) {
	if cfg.Redis.URL == "" {
		log.Warn().Msg("REDIS_URL not set; guest usage kept in memory")
		return guest.NewMemoryStore(), nil
	}
	client, err := guest.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	return guest.NewRedisStore(client, cfg.Redis.GuestTTL), nil
}
