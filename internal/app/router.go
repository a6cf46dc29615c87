package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/gate"
	"github.com/tanktools/tanktools/internal/observability"
	"github.com/tanktools/tanktools/internal/permstore"
	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/session"
	"github.com/tanktools/tanktools/internal/shared"
	"github.com/tanktools/tanktools/internal/tanks"
	"github.com/tanktools/tanktools/internal/ui"
	"github.com/tanktools/tanktools/internal/view"
	"github.com/tanktools/tanktools/jobs"
	"github.com/tanktools/tanktools/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	Templates *view.Engine
	Sessions  Sessions
	Gate      *gate.Gate
	Activity  activity.Recorder
	Metrics   *observability.Metrics

	TanksHandler       *tanks.Handler
	PermissionsHandler *permstore.Handler
	ActivityHandler    *activity.Handler
	JobsHandler        *jobs.Handler
}

type sessionDestroyer interface {
	Destroy(ctx context.Context, w http.ResponseWriter, store session.Store) error
}

// NewRouter constructs the chi.Router with Tank Tools defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard.html", http.StatusSeeOther)
	})
	r.Get(gate.DefaultLoginPath, func(w http.ResponseWriter, r *http.Request) {
		params.render(w, r, "pages/login.html", view.TemplateData{Title: "Sign in", CurrentPath: r.URL.Path})
	})
	r.Post("/logout", params.logout)

	r.With(params.Gate.Page(rbac.PageUserManagement), gate.RequireAction(string(rbac.CanManageUsers))).
		Get("/user-management.html", params.page)
	r.With(params.Gate.Pages).Get("/{page}.html", params.page)

	r.Route("/api", func(r chi.Router) {
		r.Use(params.Gate.API)
		r.Get("/me/permissions", params.me)
		if params.TanksHandler != nil {
			r.Route("/tanks", params.TanksHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.ActivityHandler != nil {
			r.Route("/activity", params.ActivityHandler.MountRoutes)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.Gate.API, gate.RequireAction(string(rbac.CanManageUsers)))
			params.JobsHandler.MountRoutes(r)
		})
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// page renders the shell of a granted page with its element manifest.
func (p RouterParams) page(w http.ResponseWriter, r *http.Request) {
	perms, _ := shared.PermissionsFromContext(r.Context())
	page := rbac.NormalizePage(r.URL.Path)
	p.render(w, r, "pages/page.html", view.TemplateData{
		Title:       PageTitle(page),
		CurrentPath: r.URL.Path,
		Username:    perms.Username,
		Manifest:    ui.Build(perms),
		Data:        map[string]any{"Page": page},
	})
}

type mePayload struct {
	Permissions rbac.EffectivePermissions `json:"permissions"`
	Manifest    *ui.Manifest              `json:"manifest"`
}

func (p RouterParams) me(w http.ResponseWriter, r *http.Request) {
	perms, ok := shared.PermissionsFromContext(r.Context())
	if !ok {
		httpx.Denied(w, rbac.ReasonNoSession)
		return
	}
	httpx.JSON(w, http.StatusOK, mePayload{Permissions: perms, Manifest: ui.Build(perms)})
}

func (p RouterParams) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := session.StoreFromContext(ctx)
	if user, err := session.LoadUser(ctx, store); err == nil && p.Activity != nil {
		p.Activity.Record(ctx, activity.Entry{
			Username:  user.Username,
			Action:    activity.ActionLogout,
			UserAgent: r.UserAgent(),
		})
	}
	if err := session.Clear(ctx, store); err != nil {
		p.Logger.Warn("clear session", slog.Any("error", err))
	}
	if d, ok := p.Sessions.(sessionDestroyer); ok {
		if err := d.Destroy(ctx, w, store); err != nil {
			p.Logger.Warn("destroy session", slog.Any("error", err))
		}
	}
	http.Redirect(w, r, gate.DefaultLoginPath, http.StatusSeeOther)
}

func (p RouterParams) render(w http.ResponseWriter, r *http.Request, name string, data view.TemplateData) {
	if err := p.Templates.Render(w, name, data); err != nil {
		p.Logger.Error("render page", slog.String("template", name), slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
