// Package httpx holds the JSON and RFC7807 response helpers shared by every
// handler.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details. Action points the browser
// at the page to recover from, usually the login page.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Action string `json:"action,omitempty"`
}

// JSON writes data with the given status. Responses carry per-user
// permission state, so they are never cached.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, "application/json; charset=utf-8", status, data)
}

// Problem writes a problem+json body.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	writeJSON(w, "application/problem+json", p.Status, p)
}

func writeJSON(w http.ResponseWriter, contentType string, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON reads at most MaxBodyBytes of the request body into target.
// Malformed or empty bodies wrap ErrValidation.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("empty body: %w", ErrValidation)
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(target); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, ErrValidation)
	}
	return nil
}
