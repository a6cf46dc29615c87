// Package tanks serves live tank records scoped by the caller's permissions.
package tanks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tanktools/tanktools/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a tank does not exist in the department.
	ErrNotFound = fmt.Errorf("tank %w", httpx.ErrNotFound)
	// ErrDuplicate is returned when inserting an id that is already taken.
	ErrDuplicate = fmt.Errorf("tank %w", httpx.ErrDuplicate)
	// ErrInvalidRecord is returned for bodies without a usable id.
	ErrInvalidRecord = fmt.Errorf("tank record %w", httpx.ErrValidation)
)

// Fields hidden unless the matching data flag is granted.
var (
	capacityFields = []string{"capacity", "comment", "factor"}
	levelFields    = []string{"min", "max", "gross"}
)

// Record is one tank row as exchanged with the dashboard. Field names are
// the dashboard's own; only the id and the restricted fields are known here.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record id in string form; numeric ids are formatted
// without a fractional part.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
