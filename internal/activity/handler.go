package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/shared"
)

// Reader lists retained entries for a user.
type Reader interface {
	Recent(ctx context.Context, username string, n int) ([]Entry, error)
}

// Handler exposes the activity log to user managers.
type Handler struct {
	logger *slog.Logger
	reader Reader
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, reader Reader) *Handler {
	return &Handler{logger: logger, reader: reader}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{username}", h.recent)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	perms, ok := shared.PermissionsFromContext(r.Context())
	if !ok {
		httpx.Denied(w, rbac.ReasonNoSession)
		return
	}
	if err := rbac.CheckAction(perms, string(rbac.CanManageUsers)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	username := chi.URLParam(r, "username")
	entries, err := h.reader.Recent(r.Context(), username, limit)
	if err != nil {
		h.logger.Error("read activity", slog.String("username", username), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"username": username, "entries": entries})
}
