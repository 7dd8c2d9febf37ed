package app

import (
	"context"
	"errors"
	"fmt"
)

// ensureStripeCustomer finds or creates the Stripe Customer for a profile.
// It uses profiles.stripe_customer_id when present, otherwise creates a
// customer tagged with the profile id and stores it.
func (s *Server) ensureStripeCustomer(ctx context.Context, userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("missing user id")
	}

	customerID, err := s.profiles.StripeCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	customerID, err = s.billing.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.profiles.SetStripeCustomerID(ctx, userID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}
