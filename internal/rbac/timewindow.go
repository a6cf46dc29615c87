package rbac

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var errClock = errors.New("rbac: invalid HH:MM time")

// IsWithinTimeWindow reports whether now falls inside the permitted weekly
// window, using the wall clock of now's location. The window bounds are
// inclusive; a window whose start is after its end spans midnight. Malformed
// restrictions deny.
func IsWithinTimeWindow(perms EffectivePermissions, now time.Time) bool {
	if perms.Admin {
		return true
	}
	tr := perms.Permissions.TimeRestrictions
	if !tr.Enabled {
		return true
	}
	dayAllowed := false
	weekday := int(now.Weekday())
	for _, d := range tr.AllowedDays {
		if d == weekday {
			dayAllowed = true
			break
		}
	}
	if !dayAllowed {
		return false
	}
	start, err := ParseClock(tr.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(tr.EndTime)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// CheckTimeWindow is IsWithinTimeWindow returning ErrTimeRestricted.
func CheckTimeWindow(perms EffectivePermissions, now time.Time) error {
	if IsWithinTimeWindow(perms, now) {
		return nil
	}
	return ErrTimeRestricted
}

// ParseClock converts "HH:MM" (24 hour) to minutes since midnight.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, errClock
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, errClock
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, errClock
	}
	return h*60 + m, nil
}
