package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrBadSignature  = errors.New("signature verification failed")
	ErrMissingUserID = errors.New("checkout session has no user id")
)

// Upgrade is the only state change a webhook can ask for: move UserID to
// the pro plan.
type Upgrade struct {
	EventID string
	UserID  string
}

// VerifyEvent checks the Stripe-Signature header against the endpoint secret.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return event, nil
}

// UpgradeFromEvent returns ok=false for event types that change nothing.
func UpgradeFromEvent(event stripe.Event) (Upgrade, bool, error) {
	if string(event.Type) != EventCheckoutCompleted {
		return Upgrade{}, false, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Upgrade{}, true, fmt.Errorf("decode checkout session: %w", err)
	}

	userID := strings.TrimSpace(sess.Metadata[MetadataUserID])
	if userID == "" {
		userID = strings.TrimSpace(sess.ClientReferenceID)
	}
	if userID == "" {
		return Upgrade{}, true, ErrMissingUserID
	}
	return Upgrade{EventID: event.ID, UserID: userID}, true, nil
}
