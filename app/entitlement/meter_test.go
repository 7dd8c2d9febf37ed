package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"example/formula-api/app/guest"
	"example/formula-api/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	mu         sync.Mutex
	profiles   map[string]models.Profile
	ensureErr  error
	incrErr    error
	increments int
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

func (f *fakeProfiles) IncrementUsage(_ context.Context, id string, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	p, ok := f.profiles[id]
	if !ok || p.Plan != models.PlanFree || p.UsageCount >= limit {
		return 0, models.ErrLimitReached
	}
	p.UsageCount++
	f.profiles[id] = p
	f.increments++
	return p.UsageCount, nil
}

func (f *fakeProfiles) get(id string) models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id]
}

func TestMeterFreeScenario(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles(models.Profile{ID: "u1", UsageCount: 9, Plan: models.PlanFree})
	meter := NewMeter(profiles, guest.NewMemoryStore(), Limits{Guest: 2, Free: 10})
	caller := Caller{UserID: "u1"}

	grant, err := meter.Authorize(ctx, caller)
	require.NoError(t, err)
	used, err := meter.Commit(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, 10, used)
	assert.Equal(t, 10, profiles.get("u1").UsageCount)

	_, err = meter.Authorize(ctx, caller)
	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 10, qe.Limit)
	assert.Equal(t, 10, qe.Used)
	assert.Equal(t, 10, profiles.get("u1").UsageCount)
}

func TestMeterGuestScenario(t *testing.T) {
	ctx := context.Background()
	store := guest.NewMemoryStore()
	meter := NewMeter(newFakeProfiles(), store, Limits{Guest: 2, Free: 10})
	caller := Caller{GuestID: "g1"}

	for i := 1; i <= 2; i++ {
		grant, err := meter.Authorize(ctx, caller)
		require.NoError(t, err)
		used, err := meter.Commit(ctx, grant)
		require.NoError(t, err)
		assert.Equal(t, i, used)
	}

	_, err := meter.Authorize(ctx, caller)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	n, err := store.Read(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMeterProNeverCharged(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles(models.Profile{ID: "p1", UsageCount: 500, Plan: models.PlanPro})
	meter := NewMeter(profiles, guest.NewMemoryStore(), DefaultLimits())

	for i := 0; i < 3; i++ {
		grant, err := meter.Authorize(ctx, Caller{UserID: "p1"})
		require.NoError(t, err)
		_, err = meter.Commit(ctx, grant)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, profiles.increments)
	assert.Equal(t, 500, profiles.get("p1").UsageCount)
}

func TestMeterCreatesMissingProfile(t *testing.T) {
	profiles := newFakeProfiles()
	meter := NewMeter(profiles, guest.NewMemoryStore(), DefaultLimits())

	grant, err := meter.Authorize(context.Background(), Caller{UserID: "new", Email: "n@example.com"})
	require.NoError(t, err)
	assert.Equal(t, Free, grant.Decision.Class)
	assert.Equal(t, "n@example.com", profiles.get("new").Email)
}

func TestMeterProfileLookupFailure(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.ensureErr = errors.New("db down")
	meter := NewMeter(profiles, guest.NewMemoryStore(), DefaultLimits())

	_, err := meter.Authorize(context.Background(), Caller{UserID: "u"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
}

func TestMeterCommitLostRace(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles(models.Profile{ID: "u1", UsageCount: 9, Plan: models.PlanFree})
	meter := NewMeter(profiles, guest.NewMemoryStore(), Limits{Guest: 2, Free: 10})

	first, err := meter.Authorize(ctx, Caller{UserID: "u1"})
	require.NoError(t, err)
	second, err := meter.Authorize(ctx, Caller{UserID: "u1"})
	require.NoError(t, err)

	_, err = meter.Commit(ctx, first)
	require.NoError(t, err)
	_, err = meter.Commit(ctx, second)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, 10, profiles.get("u1").UsageCount)
}

func TestMeterCommitAfterUpgradeIsNotAQuotaFailure(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles(models.Profile{ID: "u1", UsageCount: 3, Plan: models.PlanFree})
	meter := NewMeter(profiles, guest.NewMemoryStore(), DefaultLimits())

	grant, err := meter.Authorize(ctx, Caller{UserID: "u1"})
	require.NoError(t, err)

	p := profiles.get("u1")
	p.Plan = models.PlanPro
	profiles.profiles["u1"] = p

	_, err = meter.Commit(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, 3, profiles.get("u1").UsageCount)
}

func TestMeterCommitStorageFailure(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles(models.Profile{ID: "u1", Plan: models.PlanFree})
	meter := NewMeter(profiles, guest.NewMemoryStore(), DefaultLimits())

	grant, err := meter.Authorize(ctx, Caller{UserID: "u1"})
	require.NoError(t, err)
	profiles.incrErr = errors.New("connection reset")

	_, err = meter.Commit(ctx, grant)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
}

func TestMeterUsageDoesNotCharge(t *testing.T) {
	ctx := context.Background()
	store := guest.NewMemoryStore()
	meter := NewMeter(newFakeProfiles(), store, DefaultLimits())

	for i := 0; i < 3; i++ {
		d, err := meter.Usage(ctx, Caller{GuestID: "g"})
		require.NoError(t, err)
		assert.Equal(t, 0, d.Used)
		assert.Equal(t, 2, d.Remaining)
	}
}

func TestMeterRequiresGuestIdentity(t *testing.T) {
	meter := NewMeter(newFakeProfiles(), guest.NewMemoryStore(), DefaultLimits())
	_, err := meter.Authorize(context.Background(), Caller{})
	assert.Error(t, err)
}
