package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/observability"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/session"
	_ "github.com/tanktools/tanktools/testing"
)

type stubFetcher struct {
	mu    sync.Mutex
	doc   *rbac.FeaturePermissions
	err   error
	calls int
	keys  []string
}

func (f *stubFetcher) Fetch(_ context.Context, key string) (*rbac.FeaturePermissions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil {
		return nil, nil
	}
	doc := f.doc.Clone()
	return &doc, nil
}

type entryLog struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (l *entryLog) Record(_ context.Context, e activity.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *entryLog) actions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Action+":"+e.Details)
	}
	return out
}

// 2024-06-04 is a Tuesday.
var tuesdayMorning = time.Date(2024, time.June, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	gate     *Gate
	fetcher  *stubFetcher
	activity *entryLog
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, now time.Time, loc *time.Location) *fixture {
	t.Helper()
	f := &fixture{fetcher: &stubFetcher{}, activity: &entryLog{}, metrics: observability.NewMetrics()}
	f.gate = New(Config{
		Catalog:  rbac.DefaultCatalog(),
		Fetcher:  f.fetcher,
		Clock:    func() time.Time { return now },
		Location: loc,
		Activity: f.activity,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  f.metrics,
	})
	return f
}

func signedIn(t *testing.T, user rbac.UserRecord) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, session.Begin(context.Background(), store, user))
	return store
}

func (f *fixture) metricsBody(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestCheckWithoutSessionDeniesAndClears(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(ctx, session.KeyUser, `{"username":"u","role":"viewer"}`))

	d := f.gate.Check(ctx, store, "dashboard.html")
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, rbac.ReasonNoSession, d.Reason)
	assert.Equal(t, DefaultLoginPath, d.RedirectTo)
	assert.NotEmpty(t, d.Message())

	_, ok, err := store.Get(ctx, session.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.fetcher.calls)
	assert.Empty(t, f.activity.actions())
}

func TestCheckMalformedUserIsUnauthenticated(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(ctx, session.KeyActive, "true"))
	require.NoError(t, store.Set(ctx, session.KeyUser, "not json"))

	d := f.gate.Check(ctx, store, "dashboard.html")
	assert.Equal(t, rbac.ReasonNoSession, d.Reason)
	_, ok, _ := store.Get(ctx, session.KeyActive)
	assert.False(t, ok)
}

func TestCheckGrantsCatalogPage(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	store := signedIn(t, rbac.UserRecord{Username: "Planner", Specialization: rbac.RolePlanning})

	d := f.gate.Check(context.Background(), store, "/app/pbcr.html")
	require.True(t, d.Granted())
	assert.Equal(t, rbac.PagePBCR, d.Page)
	assert.Equal(t, rbac.SourceCatalog, d.Perms.Source)
	assert.Equal(t, []string{"planner"}, f.fetcher.keys)
	assert.Equal(t, []string{"page_visit:pbcr"}, f.activity.actions())
	assert.Contains(t, f.metricsBody(t), `tanktools_access_decisions_total{outcome="granted",reason="none"} 1`)
}

func TestCheckDeniesPageOutsideAllowedSet(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	store := signedIn(t, rbac.UserRecord{Username: "v", Specialization: rbac.RoleViewer})

	d := f.gate.Check(context.Background(), store, "pbcr.html")
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, rbac.ReasonInsufficientPermissions, d.Reason)
	assert.Equal(t, []string{"access_denied:insufficient_permissions"}, f.activity.actions())

	_, err := session.LoadUser(context.Background(), store)
	assert.NoError(t, err, "page denial keeps the session")
}

func TestCheckTimeRestriction(t *testing.T) {
	saturday := time.Date(2024, time.June, 8, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, saturday, time.UTC)
	store := signedIn(t, rbac.UserRecord{
		Username:       "shift",
		Specialization: rbac.RoleFieldOperator,
		CustomPermissions: &rbac.FeaturePermissions{
			TimeRestrictions: rbac.TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "18:00", AllowedDays: []int{1, 2, 3, 4, 5}},
		},
	})

	d := f.gate.Check(context.Background(), store, "dashboard.html")
	assert.Equal(t, rbac.ReasonTimeRestriction, d.Reason)
	assert.Equal(t, DefaultLoginPath, d.RedirectTo)
}

func TestCheckUsesConfiguredLocation(t *testing.T) {
	kuwait := time.FixedZone("AST", 3*60*60)
	early := time.Date(2024, time.June, 4, 4, 0, 0, 0, time.UTC)
	user := rbac.UserRecord{
		Username:       "shift",
		Specialization: rbac.RoleFieldOperator,
		CustomPermissions: &rbac.FeaturePermissions{
			TimeRestrictions: rbac.TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "18:00", AllowedDays: []int{2}},
		},
	}

	inUTC := newFixture(t, early, time.UTC)
	assert.Equal(t, rbac.ReasonTimeRestriction, inUTC.gate.Check(context.Background(), signedIn(t, user), "dashboard").Reason)

	inKuwait := newFixture(t, early, kuwait)
	assert.True(t, inKuwait.gate.Check(context.Background(), signedIn(t, user), "dashboard").Granted())
}

func TestRemoteFailureFallsBackToDefaults(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	f.fetcher.err = fmt.Errorf("%w: timeout", rbac.ErrRemoteFetch)
	store := signedIn(t, rbac.UserRecord{Username: "p", Specialization: rbac.RolePlanning})

	d := f.gate.Check(context.Background(), store, "pbcr.html")
	require.True(t, d.Granted())
	assert.Equal(t, rbac.SourceCatalog, d.Perms.Source)
	assert.Contains(t, f.metricsBody(t), "tanktools_permission_fetch_failures_total 1")
}

func TestRemoteDocumentReplacesDefaults(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	f.fetcher.doc = &rbac.FeaturePermissions{
		Capabilities: map[rbac.Capability]bool{rbac.CanViewLiveTanks: true},
		Pages:        map[string]bool{"liveTanks": true, "dashboard": true},
	}
	store := signedIn(t, rbac.UserRecord{Username: "v", Specialization: rbac.RoleViewer})

	d := f.gate.Check(context.Background(), store, "live-tanks.html")
	require.True(t, d.Granted())
	assert.Equal(t, rbac.SourceRemote, d.Perms.Source)
	assert.True(t, rbac.CanPerform(d.Perms, string(rbac.CanViewLiveTanks)))
}

func TestAdminSkipsRemoteFetch(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	store := signedIn(t, rbac.UserRecord{Username: "root", Role: rbac.RoleViewer, IsAdmin: true})

	d := f.gate.Check(context.Background(), store, "user-management.html")
	require.True(t, d.Granted())
	assert.True(t, d.Perms.Admin)
	assert.Zero(t, f.fetcher.calls)
}

func TestUnknownRoleIsDenied(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	store := signedIn(t, rbac.UserRecord{Username: "x", Specialization: "night_watch"})

	d := f.gate.Check(context.Background(), store, "dashboard.html")
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, rbac.ReasonInsufficientPermissions, d.Reason)
}

func TestAuthorizeSkipsPageCheck(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	store := signedIn(t, rbac.UserRecord{Username: "v", Specialization: rbac.RoleViewer})

	d := f.gate.Authorize(context.Background(), store)
	assert.True(t, d.Granted())
	assert.Empty(t, d.Page)
	assert.Empty(t, f.activity.actions())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "denied", StateDenied.String())
	assert.Equal(t, "granted", StateGranted.String())
}

func TestConcurrentChecksResolveIndependently(t *testing.T) {
	f := newFixture(t, tuesdayMorning, time.UTC)
	users := []rbac.UserRecord{
		{Username: "a", Specialization: rbac.RolePlanning},
		{Username: "b", Specialization: rbac.RoleViewer},
	}
	stores := make([]*session.MemoryStore, 20)
	for i := range stores {
		stores[i] = signedIn(t, users[i%2])
	}
	var wg sync.WaitGroup
	results := make([]Decision, len(stores))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.gate.Check(context.Background(), stores[i], "pbcr.html")
		}(i)
	}
	wg.Wait()
	for i, d := range results {
		if i%2 == 0 {
			assert.True(t, d.Granted(), i)
		} else {
			assert.Equal(t, rbac.ReasonInsufficientPermissions, d.Reason, i)
		}
	}
	assert.Contains(t, f.metricsBody(t), `tanktools_access_decisions_total{outcome="granted",reason="none"} 10`)
}
