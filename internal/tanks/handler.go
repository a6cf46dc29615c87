package tanks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
	"github.com/tanktools/tanktools/internal/shared"
)

// Handler exposes the live tank JSON API.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	activity activity.Recorder
}

// NewHandler builds a Handler. recorder may be nil.
func NewHandler(logger *slog.Logger, repo Repository, recorder activity.Recorder) *Handler {
	return &Handler{logger: logger, repo: repo, activity: recorder}
}

// MountRoutes registers tank routes. Callers must install the access gate
// so resolved permissions are present in the request context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{department}", h.list)
	r.Post("/{department}", h.create)
	r.Put("/{department}/{tankID}", h.update)
	r.Delete("/{department}/{tankID}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	perms, ok := h.authorize(w, r, rbac.CanViewLiveTanks)
	if !ok {
		return
	}
	department := chi.URLParam(r, "department")
	records, err := h.repo.List(r.Context(), department)
	if err != nil {
		h.fail(w, "list tanks", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"department": department,
		"tanks":      FilterRecords(records, department, perms),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	perms, ok := h.authorize(w, r, rbac.CanAddToLiveTanks)
	if !ok {
		return
	}
	department := chi.URLParam(r, "department")
	var body Record
	if err := httpx.DecodeJSON(r, &body); err != nil || body == nil {
		httpx.RespondError(w, ErrInvalidRecord)
		return
	}
	id := body.ID()
	if id == "" {
		httpx.RespondError(w, ErrInvalidRecord)
		return
	}
	if err := rbac.CheckTank(perms, id, department); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec := FilterRecord(body, perms)
	rec["id"] = id
	if err := h.repo.Insert(r.Context(), department, rec); err != nil {
		h.fail(w, "insert tank", err)
		return
	}
	h.record(r, perms, "tank_created", department, id)
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	perms, ok := h.authorize(w, r, rbac.CanEditLiveTanks)
	if !ok {
		return
	}
	department := chi.URLParam(r, "department")
	id := strings.TrimSpace(chi.URLParam(r, "tankID"))
	if err := rbac.CheckTank(perms, id, department); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body Record
	if err := httpx.DecodeJSON(r, &body); err != nil || body == nil {
		httpx.RespondError(w, ErrInvalidRecord)
		return
	}
	if bodyID := body.ID(); bodyID != "" && bodyID != id {
		httpx.RespondError(w, ErrInvalidRecord)
		return
	}
	existing, err := h.repo.Get(r.Context(), department, id)
	if err != nil {
		h.fail(w, "load tank", err)
		return
	}
	rec := mergeHidden(existing, FilterRecord(body, perms), perms)
	rec["id"] = id
	if err := h.repo.Update(r.Context(), department, rec); err != nil {
		h.fail(w, "update tank", err)
		return
	}
	h.record(r, perms, "tank_updated", department, id)
	httpx.JSON(w, http.StatusOK, FilterRecord(rec, perms))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	perms, ok := h.authorize(w, r, rbac.CanDeleteFromLiveTanks)
	if !ok {
		return
	}
	department := chi.URLParam(r, "department")
	id := strings.TrimSpace(chi.URLParam(r, "tankID"))
	if err := rbac.CheckTank(perms, id, department); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.repo.Delete(r.Context(), department, id); err != nil {
		h.fail(w, "delete tank", err)
		return
	}
	h.record(r, perms, "tank_deleted", department, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, capability rbac.Capability) (rbac.EffectivePermissions, bool) {
	perms, ok := shared.PermissionsFromContext(r.Context())
	if !ok {
		httpx.Denied(w, rbac.ReasonNoSession)
		return perms, false
	}
	if err := rbac.CheckAction(perms, string(capability)); err != nil {
		httpx.RespondError(w, err)
		return perms, false
	}
	return perms, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !isClientError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(r *http.Request, perms rbac.EffectivePermissions, action, department, id string) {
	if h.activity == nil {
		return
	}
	h.activity.Record(context.WithoutCancel(r.Context()), activity.Entry{
		Username:  perms.Username,
		Action:    action,
		Details:   department + "/" + id,
		Page:      rbac.PageLiveTanks,
		UserAgent: r.UserAgent(),
	})
}

// mergeHidden keeps the stored values of fields the caller cannot see, so an
// edit never clears data it was not shown.
func mergeHidden(existing, edited Record, perms rbac.EffectivePermissions) Record {
	out := edited.Clone()
	keep := func(fields []string) {
		for _, field := range fields {
			if v, ok := existing[field]; ok {
				out[field] = v
			}
		}
	}
	if !perms.Data(rbac.DataViewCapacityFactors) {
		keep(capacityFields)
	}
	if !perms.Data(rbac.DataViewMinMaxLevels) {
		keep(levelFields)
	}
	return out
}

func isClientError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
}
