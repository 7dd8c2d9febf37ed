package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"example/formula-api/app/billing"
	"example/formula-api/app/config"
	"example/formula-api/app/guest"
	"example/formula-api/app/metrics"
	"example/formula-api/app/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testWebhookSecret = "whsec_test"
	localUser         = "local-dev"
)

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	ensureErr error
	setErr    error
	pingErr   error
	setCalls  int
}

func newFakeProfiles(seed ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]models.Profile{}}
	for _, p := range seed {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) EnsureProfile(_ context.Context, id, email string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return models.Profile{}, f.ensureErr
	}
	p, ok := f.profiles[id]
	if !ok {
		p = models.Profile{ID: id, Email: email, Plan: models.PlanFree}
		f.profiles[id] = p
	}
	return p, nil
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) IncrementUsage(_ context.Context, id string, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok || p.Plan != models.PlanFree || p.UsageCount >= limit {
		return 0, models.ErrLimitReached
	}
	p.UsageCount++
	f.profiles[id] = p
	return p.UsageCount, nil
}

func (f *fakeProfiles) SetPlan(_ context.Context, id string, plan models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Plan = plan
	f.profiles[id] = p
	return nil
}

func (f *fakeProfiles) StripeCustomerID(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return "", models.ErrNotFound
	}
	return p.StripeCustomerID, nil
}

func (f *fakeProfiles) SetStripeCustomerID(_ context.Context, id, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[id]
	p.StripeCustomerID = customerID
	f.profiles[id] = p
	return nil
}

func (f *fakeProfiles) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeProfiles) get(id string) models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id]
}

func (f *fakeProfiles) update(id string, fn func(*models.Profile)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[id]
	fn(&p)
	f.profiles[id] = p
}

type fakeCompletion struct {
	mu      sync.Mutex
	result  models.FormulaResult
	err     error
	prompts []string
	// during runs inside Generate, between authorize and commit.
	during func()
}

func (f *fakeCompletion) Generate(_ context.Context, prompt string) (models.FormulaResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
	if f.err != nil {
		return models.FormulaResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeCompletion) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeBilling struct {
	customers   int
	checkouts   []billing.CheckoutRequest
	portalFor   string
	checkoutErr error
}

func (f *fakeBilling) CreateCustomer(_ context.Context, userID, email string) (string, error) {
	f.customers++
	return "cus_" + userID, nil
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.stripe.test/c/" + req.UserID, nil
}

func (f *fakeBilling) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.portalFor = customerID
	return "https://billing.stripe.test/p/" + customerID, nil
}

type fakePublisher struct {
	events chan models.UsageEvent
}

func (f *fakePublisher) Publish(_ context.Context, e models.UsageEvent) error {
	f.events <- e
	return nil
}

type harness struct {
	cfg        *config.Config
	profiles   *fakeProfiles
	guests     *guest.MemoryStore
	completion *fakeCompletion
	billing    *fakeBilling
	publisher  *fakePublisher
	metrics    *metrics.Metrics
	router     *gin.Engine
}

// newHarness builds a router over fakes. With authenticated set, auth runs
// in local-disabled mode and every request acts as the local-dev user;
// otherwise callers are guests and no verifier is configured.
func newHarness(t *testing.T, authenticated bool, seed ...models.Profile) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:    "local",
		CORS:   []string{"*"},
		Auth:   config.AuthConfig{Disabled: authenticated},
		Limits: config.LimitConfig{Guest: 2, Free: 10},
		Stripe: config.StripeConfig{
			WebhookSecret:     testWebhookSecret,
			PriceIDProMonthly: "price_pro",
			FrontendURL:       "https://app.example",
		},
	}
	seen, err := billing.NewSeenEvents(16)
	require.NoError(t, err)

	h := &harness{
		cfg:        cfg,
		profiles:   newFakeProfiles(seed...),
		guests:     guest.NewMemoryStore(),
		completion: &fakeCompletion{result: models.FormulaResult{Formula: "=SUM(A:A)", Explanation: "Adds column A."}},
		billing:    &fakeBilling{},
		publisher:  &fakePublisher{events: make(chan models.UsageEvent, 16)},
		metrics:    metrics.New(),
	}
	srv := NewServer(Deps{
		Config:     cfg,
		Profiles:   h.profiles,
		Guests:     h.guests,
		Completion: h.completion,
		Billing:    h.billing,
		SeenEvents: seen,
		Publisher:  h.publisher,
		Metrics:    h.metrics,
	})
	h.router = NewRouter(srv)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func guestCookie(t *testing.T, resp *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == guest.CookieName {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", guest.CookieName)
	return nil
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func doWithHeader(t *testing.T, h *harness, path string, body any, key, value string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(key, value)
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}
