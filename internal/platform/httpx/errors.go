// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/tanktools/tanktools/internal/rbac"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, rbac.ErrMalformedUserRecord), errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", rbac.ReasonNoSession.Message())
	case errors.Is(err, rbac.ErrTimeRestricted),
		errors.Is(err, rbac.ErrPageForbidden),
		errors.Is(err, rbac.ErrActionForbidden),
		errors.Is(err, rbac.ErrTankForbidden),
		errors.Is(err, rbac.ErrUnknownRole):
		Denied(w, rbac.ReasonFor(err))
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Denied writes a 403 (or 401 for a missing session) carrying the denial reason.
func Denied(w http.ResponseWriter, reason rbac.Reason) {
	status := http.StatusForbidden
	title := "Access Denied"
	if reason == rbac.ReasonNoSession {
		status = http.StatusUnauthorized
		title = "Unauthorized"
	}
	writeProblem(w, ProblemDetail{
		Type:   "/problems/" + string(reason),
		Title:  title,
		Status: status,
		Detail: reason.Message(),
		Action: "/login.html",
	})
}
