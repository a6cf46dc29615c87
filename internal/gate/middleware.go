package gate

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/session"
	"github.com/tanktools/tanktools/internal/shared"
	"github.com/tanktools/tanktools/internal/view"
)

// Page gates a fixed page. Granted requests carry the permissions in context.
func (g *Gate) Page(page string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next, request{page: page, checkPage: true, userAgent: r.UserAgent()})
		})
	}
}

// Pages gates the page named by the last element of the request path.
func (g *Gate) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, next, request{page: r.URL.Path, checkPage: true, userAgent: r.UserAgent()})
	})
}

// API requires an active session inside the permitted time window. Action
// and tank checks are left to the handlers.
func (g *Gate) API(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, next, request{userAgent: r.UserAgent()})
	})
}

// RequireAction allows the request only when the resolved permissions grant
// action. It must run after Page, Pages or API.
func RequireAction(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms, ok := shared.PermissionsFromContext(r.Context())
			if !ok {
				httpx.Denied(w, rbac.ReasonNoSession)
				return
			}
			if err := rbac.CheckAction(perms, action); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler, req request) {
	store := session.StoreFromContext(r.Context())
	decision := g.evaluate(r.Context(), store, req)
	if !decision.Granted() {
		g.Deny(w, r, decision)
		return
	}
	ctx := shared.ContextWithPermissions(r.Context(), decision.Perms)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// Deny writes the response for a denied decision: a redirect to the login
// page for a missing session, otherwise the access-denied page, or problem
// JSON for API clients.
func (g *Gate) Deny(w http.ResponseWriter, r *http.Request, d Decision) {
	if wantsJSON(r) {
		httpx.Denied(w, d.Reason)
		return
	}
	if d.Reason == rbac.ReasonNoSession {
		http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
		return
	}
	if g.templates == nil {
		httpx.Denied(w, d.Reason)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	err := g.templates.Render(w, "pages/access_denied.html", view.TemplateData{
		Title:       "Access Denied",
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Reason":  d.Reason,
			"Message": d.Message(),
			"Action":  d.RedirectTo,
		},
	})
	if err != nil {
		g.logger.Error("render access denied", slog.Any("error", err))
	}
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
