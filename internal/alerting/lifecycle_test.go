package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/models"
	"github.com/axops/axops-core/internal/storage/memory"
	"github.com/axops/axops-core/pkg/cache"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMaintenance struct {
	mu         sync.Mutex
	suppressed bool
	windows    []string
	calls      int
}

func (f *fakeMaintenance) IsSuppressed(_ context.Context, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.suppressed, nil
}

func (f *fakeMaintenance) ActiveWindowNames(_ context.Context, _ time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows, nil
}

func (f *fakeMaintenance) set(suppressed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suppressed = suppressed
}

type fakeActors struct{ actor string }

func (f *fakeActors) Resolve(context.Context) string { return f.actor }

type fakeBaseline struct {
	p95 *float64
	err error
}

func (f *fakeBaseline) GetPercentile95(_ context.Context, _, _, _, _ string) (*float64, error) {
	return f.p95, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*models.Alert
	fail error
}

func (f *fakeNotifier) SendAlert(_ context.Context, a *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
	return f.fail
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func defaultAlertingConfig() config.AlertingConfig {
	return config.AlertingConfig{
		DedupWindowMinutes:       15,
		ThrottleWindowMinutes:    15,
		ThrottleMaxPerType:       1,
		SuppressionWindowMinutes: 30,
		BaselineThresholdPercent: 30,
	}
}

type managerFixture struct {
	manager     *Manager
	store       *memory.Store
	clock       *fakeClock
	maintenance *fakeMaintenance
	notifier    *fakeNotifier
	baseline    *fakeBaseline
}

func newFixture(t *testing.T) *managerFixture {
	t.Helper()
	fx := &managerFixture{
		store:       memory.New(),
		clock:       &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		maintenance: &fakeMaintenance{},
		notifier:    &fakeNotifier{},
		baseline:    &fakeBaseline{},
	}
	fx.manager = NewManager(
		fx.store, cache.NewNoop(), fx.maintenance, &fakeActors{actor: "ops.bot"},
		fx.baseline, fx.notifier, defaultAlertingConfig(), nil,
	)
	fx.manager.now = fx.clock.Now
	return fx
}

func TestCreateAlertPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "batch job 42 failed", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, res.Outcome)
	require.NotNil(t, res.Alert)
	assert.Equal(t, models.AlertStatusActive, res.Alert.Status)
	assert.Equal(t, "ops.bot", res.Alert.CreatedBy)
	assert.Equal(t, "ALERT_20260601_120000", res.Alert.AlertKey)

	fx.manager.Wait()
	assert.Equal(t, 1, fx.notifier.count())
}

func TestCreateAlertExplicitActorWins(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Alert.CreatedBy)
}

func TestCreateAlertActorFallsBackToSystem(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.manager.actors = &fakeActors{actor: ""}

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)
	assert.Equal(t, "System", res.Alert.CreatedBy)
}

func TestMaintenanceGateRejectsWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.maintenance.suppressed = true
	fx.maintenance.windows = []string{"Month-end close"}

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityCritical, "m", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeRejected, res.Outcome)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, models.RejectMaintenanceSuppressed, res.Rejection.Reason)
	assert.Equal(t, []string{"Month-end close"}, res.Rejection.WindowNames)

	alerts, err := fx.store.ListAlerts(ctx, models.AlertQuery{})
	require.NoError(t, err)
	assert.Empty(t, alerts, "no alert may be persisted under maintenance")

	fx.manager.Wait()
	assert.Zero(t, fx.notifier.count())
}

func TestDedupReturnsExistingAlertIdempotently(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "same message", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, first.Outcome)

	fx.clock.Advance(5 * time.Minute)
	second, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "same message", "")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDeduplicated, second.Outcome)
	assert.Equal(t, first.Alert.AlertKey, second.Alert.AlertKey)

	alerts, err := fx.store.ListAlerts(ctx, models.AlertQuery{})
	require.NoError(t, err)
	assert.Len(t, alerts, 1, "dedup must not create a second row")

	fx.manager.Wait()
	assert.Equal(t, 1, fx.notifier.count(), "dedup must not re-notify")
}

func TestThrottleRejectsSecondAlertOfType(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m1", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, first.Outcome)

	fx.clock.Advance(time.Minute)
	second, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityCritical, "m2", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeRejected, second.Outcome)
	assert.Equal(t, models.RejectThrottled, second.Rejection.Reason)
	assert.Equal(t, "JobFailure", second.Rejection.AlertType)
}

func TestSuppressionWindowBoundary(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.manager.CreateAlert(ctx, "DiskPressure", models.SeverityWarning, "m1", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, first.Outcome)

	// At T+29min: throttle window (15m) has lapsed, suppression (30m) has not.
	fx.clock.Advance(29 * time.Minute)
	res, err := fx.manager.CreateAlert(ctx, "DiskPressure", models.SeverityWarning, "m2", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeRejected, res.Outcome)
	assert.Equal(t, models.RejectSuppressedWindow, res.Rejection.Reason)
	assert.Equal(t, 29, res.Rejection.MinutesSinceFirst)

	// At T+31min both windows have lapsed.
	fx.clock.Advance(2 * time.Minute)
	res, err = fx.manager.CreateAlert(ctx, "DiskPressure", models.SeverityWarning, "m3", "")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, res.Outcome)
}

func TestNotificationRechecksMaintenanceAtSendTime(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	// Maintenance activates after the create gate but before the detached
	// send runs; the second check must skip the notification.
	fx.maintenance.set(false)
	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, res.Outcome)
	fx.maintenance.set(true)

	fx.manager.Wait()
	// The flip raced the goroutine: either the send was skipped, or it was
	// already past the check. Run a deterministic second round to pin it.
	fx.notifier.mu.Lock()
	fx.notifier.sent = nil
	fx.notifier.mu.Unlock()

	fx.maintenance.set(false)
	fx.clock.Advance(time.Hour)
	pinned := &blockingMaintenance{inner: fx.maintenance, release: make(chan struct{})}
	fx.manager.maintenance = pinned

	res, err = fx.manager.CreateAlert(ctx, "SessionLeak", models.SeverityWarning, "m", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCreated, res.Outcome)

	fx.maintenance.set(true)
	close(pinned.release)
	fx.manager.Wait()
	assert.Zero(t, fx.notifier.count(), "send-time maintenance check must skip the notification")
}

// blockingMaintenance delegates to inner but holds the second (send-time)
// check until released, so tests can flip state in between.
type blockingMaintenance struct {
	inner   *fakeMaintenance
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingMaintenance) IsSuppressed(ctx context.Context, now time.Time) (bool, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()
	if n > 1 {
		<-b.release
	}
	return b.inner.IsSuppressed(ctx, now)
}

func (b *blockingMaintenance) ActiveWindowNames(ctx context.Context, now time.Time) ([]string, error) {
	return b.inner.ActiveWindowNames(ctx, now)
}

func TestNotifierFailureDoesNotAffectCreate(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.notifier.fail = assert.AnError

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, res.Outcome)
	fx.manager.Wait()
}

func TestUpdateAlertStatusStampsResolvedAt(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)
	id := res.Alert.ID

	fx.clock.Advance(10 * time.Minute)
	ok, err := fx.manager.UpdateAlertStatus(ctx, id, models.AlertStatusResolved)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := fx.store.GetAlert(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, fx.clock.Now(), *got.ResolvedAt)

	// Free-form statuses are accepted verbatim and do not stamp ResolvedAt
	// again.
	ok, err = fx.manager.UpdateAlertStatus(ctx, id, "Investigating")
	require.NoError(t, err)
	require.True(t, ok)
	got, err = fx.store.GetAlert(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Investigating", got.Status)
	require.NotNil(t, got.ResolvedAt, "ResolvedAt survives later transitions")

	ok, err = fx.manager.UpdateAlertStatus(ctx, "nope", models.AlertStatusResolved)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcknowledgeDoesNotChangeStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)

	ok, err := fx.manager.AcknowledgeAlert(ctx, res.Alert.ID, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := fx.store.GetAlert(ctx, res.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, got.Status)
	assert.Equal(t, "bob", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)
}

func TestDeleteAlert(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.manager.CreateAlert(ctx, "JobFailure", models.SeverityWarning, "m", "")
	require.NoError(t, err)

	ok, err := fx.manager.DeleteAlert(ctx, res.Alert.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.manager.DeleteAlert(ctx, res.Alert.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
