package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/observability"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/session"
	"github.com/tanktools/tanktools/internal/view"
)

// DefaultLoginPath is where denied users are sent to sign in again.
const DefaultLoginPath = "/login.html"

// Fetcher looks up a user's remote permission document. A nil document with
// a nil error means the user has none.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (*rbac.FeaturePermissions, error)
}

// Config collects the gate's collaborators. Only Catalog is required.
type Config struct {
	Catalog   *rbac.Catalog
	Fetcher   Fetcher
	Clock     func() time.Time
	Location  *time.Location
	Activity  activity.Recorder
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Templates *view.Engine
	LoginPath string
}

// Gate evaluates access decisions. It is safe for concurrent use.
type Gate struct {
	catalog   *rbac.Catalog
	fetcher   Fetcher
	clock     func() time.Time
	location  *time.Location
	activity  activity.Recorder
	logger    *slog.Logger
	metrics   *observability.Metrics
	templates *view.Engine
	loginPath string
}

// New builds a Gate, filling defaults for optional collaborators.
func New(cfg Config) *Gate {
	g := &Gate{
		catalog:   cfg.Catalog,
		fetcher:   cfg.Fetcher,
		clock:     cfg.Clock,
		location:  cfg.Location,
		activity:  cfg.Activity,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		templates: cfg.Templates,
		loginPath: cfg.LoginPath,
	}
	if g.catalog == nil {
		g.catalog = rbac.DefaultCatalog()
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	if g.location == nil {
		g.location = time.Local
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.loginPath == "" {
		g.loginPath = DefaultLoginPath
	}
	return g
}

// request describes what is being checked.
type request struct {
	page      string
	checkPage bool
	userAgent string
}

// Check runs the full page flow for page against the session in store.
func (g *Gate) Check(ctx context.Context, store session.Store, page string) Decision {
	return g.evaluate(ctx, store, request{page: page, checkPage: true})
}

// Authorize runs the flow without a page check, for API calls.
func (g *Gate) Authorize(ctx context.Context, store session.Store) Decision {
	return g.evaluate(ctx, store, request{})
}

func (g *Gate) evaluate(ctx context.Context, store session.Store, req request) Decision {
	decision := Decision{State: StateUnauthenticated}
	if req.checkPage {
		decision.Page = rbac.NormalizePage(req.page)
	}

	user, err := session.LoadUser(ctx, store)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			g.logger.Warn("unusable session", slog.Any("error", err))
		}
		if cerr := session.Clear(ctx, store); cerr != nil {
			g.logger.Warn("clear session", slog.Any("error", cerr))
		}
		decision = g.deny(decision, rbac.ReasonNoSession)
		g.report(ctx, decision, req)
		return decision
	}

	decision.State = StateResolving
	decision.Perms = g.resolve(ctx, user)

	now := g.clock().In(g.location)
	if err := rbac.CheckTimeWindow(decision.Perms, now); err != nil {
		decision = g.deny(decision, rbac.ReasonFor(err))
	} else if req.checkPage {
		if err := rbac.CheckPage(decision.Perms, decision.Page); err != nil {
			decision = g.deny(decision, rbac.ReasonFor(err))
		}
	}
	if decision.State == StateResolving {
		decision.State = StateGranted
	}
	g.report(ctx, decision, req)
	return decision
}

// resolve computes permissions, consulting the remote store unless the user
// is an administrator. Remote failures fall back to local defaults.
func (g *Gate) resolve(ctx context.Context, user rbac.UserRecord) rbac.EffectivePermissions {
	var remote *rbac.FeaturePermissions
	if !user.HasAdminAccess() && g.fetcher != nil {
		doc, err := g.fetcher.Fetch(ctx, user.LookupKey())
		if err != nil {
			g.metrics.PermissionFetchFailed()
			g.logger.Warn("remote permissions unavailable, using defaults",
				slog.String("username", user.Username),
				slog.Any("error", err))
		} else {
			remote = doc
		}
	}
	perms, err := g.catalog.Resolve(user, remote)
	if err != nil {
		g.logger.Warn("resolve permissions",
			slog.String("username", user.Username),
			slog.String("generation", user.Generation().String()),
			slog.Any("error", err))
	}
	return perms
}

func (g *Gate) deny(d Decision, reason rbac.Reason) Decision {
	d.State = StateDenied
	d.Reason = reason
	d.RedirectTo = g.loginPath
	return d
}

func (g *Gate) report(ctx context.Context, d Decision, req request) {
	g.metrics.ObserveDecision(d.State.String(), string(d.Reason))

	username := d.Perms.Username
	if username == "" || g.activity == nil {
		return
	}
	entry := activity.Entry{
		Username:  username,
		Page:      d.Page,
		UserAgent: req.userAgent,
	}
	switch {
	case d.State == StateDenied:
		entry.Action = activity.ActionAccessDenied
		entry.Details = string(d.Reason)
	case req.checkPage:
		entry.Action = activity.ActionPageVisit
		entry.Details = d.Page
	default:
		return
	}
	g.activity.Record(ctx, entry)
}
