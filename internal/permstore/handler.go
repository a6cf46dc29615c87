package permstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/shared"
)

// Handler lets user managers read and replace permission documents.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	activity activity.Recorder
}

// NewHandler builds a Handler. recorder may be nil.
func NewHandler(logger *slog.Logger, repo Repository, recorder activity.Recorder) *Handler {
	return &Handler{logger: logger, repo: repo, activity: recorder}
}

// MountRoutes registers permission document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireManageUsers)
		r.Get("/{username}", h.get)
		r.Put("/{username}", h.put)
		r.Delete("/{username}", h.remove)
	})
}

func (h *Handler) requireManageUsers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, ok := shared.PermissionsFromContext(r.Context())
		if !ok {
			httpx.Denied(w, rbac.ReasonNoSession)
			return
		}
		if err := rbac.CheckAction(perms, string(rbac.CanManageUsers)); err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key := rbac.FoldKey(chi.URLParam(r, "username"))
	doc, err := h.repo.FetchByKey(r.Context(), key)
	if err != nil {
		h.fail(w, "fetch permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	key := rbac.FoldKey(chi.URLParam(r, "username"))
	if key == "" {
		httpx.RespondError(w, fmt.Errorf("username required: %w", httpx.ErrValidation))
		return
	}
	var doc rbac.FeaturePermissions
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := rbac.ValidatePermissions(doc); err != nil {
		httpx.RespondError(w, fmt.Errorf("%v: %w", err, httpx.ErrValidation))
		return
	}
	if err := h.repo.Save(r.Context(), key, doc); err != nil {
		h.fail(w, "save permissions", err)
		return
	}
	h.record(r, "permissions_updated", key)
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	key := rbac.FoldKey(chi.URLParam(r, "username"))
	if err := h.repo.Delete(r.Context(), key); err != nil {
		h.fail(w, "delete permissions", err)
		return
	}
	h.record(r, "permissions_deleted", key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !isNotFound(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(r *http.Request, action, target string) {
	if h.activity == nil {
		return
	}
	perms, _ := shared.PermissionsFromContext(r.Context())
	h.activity.Record(context.WithoutCancel(r.Context()), activity.Entry{
		Username:  perms.Username,
		Action:    action,
		Details:   target,
		Page:      rbac.PageUserManagement,
		UserAgent: r.UserAgent(),
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
