package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowed(tr TimeRestrictions) EffectivePermissions {
	return EffectivePermissions{Permissions: FeaturePermissions{TimeRestrictions: tr}}
}

// 2024-06-04 is a Tuesday, 2024-06-08 a Saturday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.June, day, hour, minute, 0, 0, time.UTC)
}

func TestIsWithinTimeWindowWorkingHours(t *testing.T) {
	perms := windowed(TimeRestrictions{
		Enabled:     true,
		StartTime:   "06:00",
		EndTime:     "18:00",
		AllowedDays: []int{1, 2, 3, 4, 5},
	})

	assert.False(t, IsWithinTimeWindow(perms, at(8, 10, 0)), "saturday")
	assert.True(t, IsWithinTimeWindow(perms, at(4, 7, 0)), "tuesday 07:00")
	assert.True(t, IsWithinTimeWindow(perms, at(4, 18, 0)), "tuesday 18:00")
	assert.False(t, IsWithinTimeWindow(perms, at(4, 18, 1)), "tuesday 18:01")
	assert.True(t, IsWithinTimeWindow(perms, at(4, 6, 0)), "tuesday 06:00")
	assert.False(t, IsWithinTimeWindow(perms, at(4, 5, 59)), "tuesday 05:59")

	assert.ErrorIs(t, CheckTimeWindow(perms, at(8, 10, 0)), ErrTimeRestricted)
}

func TestIsWithinTimeWindowDisabled(t *testing.T) {
	perms := windowed(TimeRestrictions{Enabled: false, StartTime: "bad", AllowedDays: nil})
	assert.True(t, IsWithinTimeWindow(perms, at(8, 3, 0)))
	assert.NoError(t, CheckTimeWindow(perms, at(8, 3, 0)))
}

func TestIsWithinTimeWindowFailsClosedOnMalformedRestrictions(t *testing.T) {
	every := []int{0, 1, 2, 3, 4, 5, 6}
	assert.False(t, IsWithinTimeWindow(windowed(TimeRestrictions{Enabled: true, StartTime: "6am", EndTime: "18:00", AllowedDays: every}), at(4, 7, 0)))
	assert.False(t, IsWithinTimeWindow(windowed(TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "", AllowedDays: every}), at(4, 7, 0)))
	assert.False(t, IsWithinTimeWindow(windowed(TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "18:00"}), at(4, 7, 0)))
}

func TestIsWithinTimeWindowOvernight(t *testing.T) {
	perms := windowed(TimeRestrictions{Enabled: true, StartTime: "22:00", EndTime: "06:00", AllowedDays: []int{2}})
	assert.True(t, IsWithinTimeWindow(perms, at(4, 23, 30)))
	assert.True(t, IsWithinTimeWindow(perms, at(4, 5, 0)))
	assert.False(t, IsWithinTimeWindow(perms, at(4, 12, 0)))
}

func TestIsWithinTimeWindowUsesLocationOfNow(t *testing.T) {
	kuwait := time.FixedZone("AST", 3*60*60)
	perms := windowed(TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "18:00", AllowedDays: []int{2}})
	// 04:00 UTC is 07:00 in Kuwait.
	now := at(4, 4, 0)
	assert.False(t, IsWithinTimeWindow(perms, now))
	assert.True(t, IsWithinTimeWindow(perms, now.In(kuwait)))
}

func TestAdminIgnoresTimeWindow(t *testing.T) {
	perms := adminPermissions("root")
	perms.Permissions.TimeRestrictions = TimeRestrictions{Enabled: true, StartTime: "00:00", EndTime: "00:01", AllowedDays: []int{0}}
	assert.True(t, IsWithinTimeWindow(perms, at(4, 12, 0)))
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("18:00")
	require.NoError(t, err)
	assert.Equal(t, 1080, m)
	m, err = ParseClock("6:05")
	require.NoError(t, err)
	assert.Equal(t, 365, m)
	for _, bad := range []string{"", "24:00", "12:60", "12", "ab:cd", "12:5"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
