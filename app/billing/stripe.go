// Package billing wraps the Stripe calls used to sell the pro plan.
package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
)

// MetadataUserID is the checkout session metadata key that carries our
// profile id back through the webhook.
const MetadataUserID = "user_id"

type CheckoutRequest struct {
	UserID     string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment processor surface the handlers depend on.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type Stripe struct{}

// NewStripe sets the global Stripe API key.
func NewStripe(secretKey string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{}
}

func (s *Stripe) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			MetadataUserID: userID,
		},
	}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		Metadata: map[string]string{
			MetadataUserID: req.UserID,
		},
	}
	params.Context = ctx
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}

	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", errors.New("checkout session has no url")
	}
	return sess.URL, nil
}

func (s *Stripe) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := portal.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
