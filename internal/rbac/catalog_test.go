package rbac

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()
	for _, role := range []Role{RoleAdmin, RoleControlPanel, RoleSupervisor, RolePlanning, RoleFieldOperator} {
		entry, ok := catalog.Lookup(role)
		require.True(t, ok, role)
		assert.Equal(t, role, entry.Role)
		assert.NotEmpty(t, entry.AllowedPages)
	}
	_, ok := catalog.Lookup("bogus")
	assert.False(t, ok)

	entry, ok := catalog.Lookup("Control_Panel")
	require.True(t, ok)
	assert.Equal(t, RoleControlPanel, entry.Role)

	_, ok = catalog.LookupLegacy(RolePanelOperator)
	assert.True(t, ok)
	_, ok = catalog.Lookup(RolePanelOperator)
	assert.False(t, ok)
}

func TestCatalogLookupReturnsCopies(t *testing.T) {
	catalog := DefaultCatalog()
	entry, _ := catalog.Lookup(RoleViewer)
	entry.AllowedPages[0] = "hacked"
	entry.DefaultPermissions.Capabilities[CanManageUsers] = true

	fresh, _ := catalog.Lookup(RoleViewer)
	assert.Equal(t, []string{PageDashboard}, fresh.AllowedPages)
	assert.False(t, fresh.DefaultPermissions.Capabilities[CanManageUsers])
}

func TestNilCatalogIsEmpty(t *testing.T) {
	var catalog *Catalog
	_, ok := catalog.Lookup(RoleAdmin)
	assert.False(t, ok)
	assert.Empty(t, catalog.Roles())

	perms, err := catalog.Resolve(UserRecord{Username: "u", Specialization: RoleViewer}, nil)
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.False(t, CanAccessPage(perms, "dashboard"))
}

func TestNewCatalogRejectsBadEntries(t *testing.T) {
	_, err := NewCatalog([]PolicyEntry{{Role: "", AllowedPages: []string{"x"}}}, nil)
	assert.Error(t, err)
	_, err = NewCatalog([]PolicyEntry{{Role: "a", AllowedPages: []string{"x"}}, {Role: "A", AllowedPages: []string{"y"}}}, nil)
	assert.Error(t, err)
	_, err = NewCatalog([]PolicyEntry{{Role: "a"}}, nil)
	assert.Error(t, err)
}

func TestLoadCatalogYAML(t *testing.T) {
	const doc = `
roles:
  - role: shift_lead
    description: shift leads
    allowedPages: [live-tanks.html, dashboard.html]
    permissions:
      capabilities:
        canViewLiveTanks: true
        canEditLiveTanks: true
      data:
        viewMinMaxLevels: true
      tanks:
        departments: [PLCR]
        tanks:
          plcr: ["12", "14"]
      timeRestrictions:
        enabled: true
        startTime: "05:30"
        endTime: "17:30"
        allowedDays: [0, 1, 2, 3, 4]
legacyRoles: [panel_operator]
`
	catalog, err := LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []Role{"shift_lead"}, catalog.Roles())
	assert.Equal(t, []Role{RolePanelOperator}, catalog.LegacyRoles())

	perms, err := catalog.Resolve(UserRecord{Username: "u", Specialization: "shift_lead"}, nil)
	require.NoError(t, err)
	assert.True(t, CanAccessPage(perms, "liveTanks"))
	assert.True(t, CanPerform(perms, string(CanEditLiveTanks)))
	assert.True(t, CanAccessTank(perms, "12", "PLCR"))
	assert.False(t, CanAccessTank(perms, "13", "PLCR"))
	assert.True(t, perms.Permissions.TimeRestrictions.Enabled)

	_, err = catalog.Resolve(UserRecord{Username: "u", Role: RoleSupervisor}, nil)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestLoadCatalogRejectsUnknownFields(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("roles:\n  - role: x\n    pages: [a]\n"))
	assert.Error(t, err)
	_, err = LoadCatalog(strings.NewReader("legacyRoles: [admin]\n"))
	assert.Error(t, err)
}

func TestLoadCatalogTankScopeFoldsUpperCaseDepartments(t *testing.T) {
	const doc = `
roles:
  - role: flat
    allowedPages: [dashboard.html]
    permissions:
      tanks:
        departments: [PLCR]
        PLCR: [12, "14"]
  - role: nested
    allowedPages: [dashboard.html]
    permissions:
      tanks:
        departments: [PLCR]
        tanks:
          PLCR: ["12"]
`
	catalog, err := LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)

	for _, role := range []Role{"flat", "nested"} {
		perms, err := catalog.Resolve(UserRecord{Username: "u", Specialization: role}, nil)
		require.NoError(t, err, role)
		assert.True(t, CanAccessTank(perms, "12", "PLCR"), role)
		assert.False(t, CanAccessTank(perms, "13", "PLCR"), role)
		assert.False(t, CanAccessTank(perms, "12", "PBCR"), role)
	}

	flat, _ := catalog.Lookup("flat")
	assert.Equal(t, map[string][]string{"plcr": {"12", "14"}}, flat.DefaultPermissions.Tanks.Tanks)
}

func TestLoadCatalogRejectsMalformedTankScope(t *testing.T) {
	const doc = `
roles:
  - role: broken
    allowedPages: [dashboard.html]
    permissions:
      tanks:
        PLCR: "12"
`
	_, err := LoadCatalog(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestDepartmentRolePages(t *testing.T) {
	catalog := DefaultCatalog()
	cases := map[Role][]string{
		RolePBCRSupervisor:   {PageDashboard, PageIndex},
		RolePBCRPlanning:     {PageDashboard, PageIndex},
		RolePLCRSupervisor:   {PageDashboard, PagePLCR},
		RolePLCRPlanning:     {PageDashboard, PagePLCR},
		RoleNMOGASSupervisor: {PageDashboard, PageNMOGASBL},
		RoleNMOGASPlanning:   {PageDashboard, PageNMOGASBL},
	}
	for role, want := range cases {
		perms, err := catalog.Resolve(UserRecord{Username: "u", Specialization: role}, nil)
		require.NoError(t, err, role)
		assert.ElementsMatch(t, want, perms.Pages, role)
	}
}
