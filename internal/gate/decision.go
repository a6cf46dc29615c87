// Package gate decides, per page load or API call, whether the signed-in
// user may proceed: load the session, resolve permissions, check the time
// window, then check the page.
package gate

import (
	"github.com/tanktools/tanktools/internal/rbac"
)

// State is the position of one request in the access flow.
type State int

const (
	StateUnauthenticated State = iota
	StateResolving
	StateDenied
	StateGranted
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateDenied:
		return "denied"
	case StateGranted:
		return "granted"
	default:
		return "unauthenticated"
	}
}

// Decision is the terminal outcome of a check. Denied decisions carry a
// reason and the single recovery action, RedirectTo.
type Decision struct {
	State      State
	Reason     rbac.Reason
	Page       string
	Perms      rbac.EffectivePermissions
	RedirectTo string
}

// Granted reports whether access was allowed.
func (d Decision) Granted() bool {
	return d.State == StateGranted
}

// Message is the text shown with a denial.
func (d Decision) Message() string {
	return d.Reason.Message()
}
