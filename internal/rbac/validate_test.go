package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserRecord(t *testing.T) {
	user, err := ParseUserRecord(`{"username":"Fahad","specialization":"planning","customPages":["pbcr.html"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Fahad", user.Username)
	assert.Equal(t, RolePlanning, user.Specialization)

	user, err = ParseUserRecord(`{"username":"old","userType":"pbcr_supervisor"}`)
	require.NoError(t, err)
	assert.Equal(t, RolePBCRSupervisor, user.SpecializationName())
}

func TestParseUserRecordMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "{not json", `{"role":"admin"}`, `{"username":"   "}`, `[]`} {
		_, err := ParseUserRecord(raw)
		assert.ErrorIs(t, err, ErrMalformedUserRecord, raw)
	}
}

func TestValidatePermissions(t *testing.T) {
	ok := FeaturePermissions{TimeRestrictions: TimeRestrictions{Enabled: true, StartTime: "06:00", EndTime: "18:00", AllowedDays: []int{1, 2}}}
	assert.NoError(t, ValidatePermissions(ok))
	assert.NoError(t, ValidatePermissions(FeaturePermissions{}))

	bad := []TimeRestrictions{
		{Enabled: true, StartTime: "6pm", EndTime: "18:00", AllowedDays: []int{1}},
		{Enabled: true, EndTime: "18:00", AllowedDays: []int{1}},
		{Enabled: true, StartTime: "06:00", EndTime: "18:00", AllowedDays: []int{7}},
		{Enabled: true, StartTime: "06:00", EndTime: "18:00"},
	}
	for _, tr := range bad {
		assert.Error(t, ValidatePermissions(FeaturePermissions{TimeRestrictions: tr}), "%+v", tr)
	}
}
