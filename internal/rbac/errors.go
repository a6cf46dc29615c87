package rbac

import "errors"

var (
	// ErrUnknownRole indicates a role or specialization missing from the catalog.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrMalformedUserRecord indicates a stored user record that cannot be used.
	ErrMalformedUserRecord = errors.New("rbac: malformed user record")
	// ErrRemoteFetch indicates the remote permission store could not be read.
	ErrRemoteFetch = errors.New("rbac: remote permission fetch failed")
	// ErrTimeRestricted indicates access outside the permitted time window.
	ErrTimeRestricted = errors.New("rbac: outside permitted time window")
	// ErrPageForbidden indicates the page is not in the allowed set.
	ErrPageForbidden = errors.New("rbac: page forbidden")
	// ErrActionForbidden indicates a missing capability.
	ErrActionForbidden = errors.New("rbac: action forbidden")
	// ErrTankForbidden indicates a tank outside the user's scope.
	ErrTankForbidden = errors.New("rbac: tank forbidden")
)

// Reason explains a denial.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonNoSession               Reason = "no_session"
	ReasonTimeRestriction         Reason = "time_restriction"
	ReasonInsufficientPermissions Reason = "insufficient_permissions"
	ReasonActionForbidden         Reason = "action_forbidden"
	ReasonTankForbidden           Reason = "tank_forbidden"
)

// Message returns the human readable text shown with a denial.
func (r Reason) Message() string {
	switch r {
	case ReasonNoSession:
		return "Your session has ended. Please sign in again."
	case ReasonTimeRestriction:
		return "Access is not allowed at this time."
	case ReasonInsufficientPermissions:
		return "You don't have permission to access this page."
	case ReasonActionForbidden:
		return "You don't have permission to perform this action."
	case ReasonTankForbidden:
		return "You don't have access to this tank."
	default:
		return ""
	}
}

// ReasonFor maps a decision error to its denial reason.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMalformedUserRecord):
		return ReasonNoSession
	case errors.Is(err, ErrTimeRestricted):
		return ReasonTimeRestriction
	case errors.Is(err, ErrActionForbidden):
		return ReasonActionForbidden
	case errors.Is(err, ErrTankForbidden):
		return ReasonTankForbidden
	default:
		return ReasonInsufficientPermissions
	}
}
