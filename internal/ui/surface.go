// Package ui maps resolved permissions onto named dashboard elements.
package ui

import (
	"github.com/tanktools/tanktools/internal/rbac"
)

// Surface is the page being decorated. Unknown ids must be ignored.
type Surface interface {
	SetVisible(elementID string, visible bool)
	SetReadOnly(inputID string, readOnly bool)
}

// Element ids toggled by capability.
const (
	ElementLiveTanks       = "live-tanks-btn"
	ElementAddToLiveTanks  = "add-to-live-tanks-btn"
	ElementEditLiveTanks   = "edit-live-tanks-btn"
	ElementDeleteLiveTanks = "delete-live-tanks-btn"
	ElementUserManagement  = "user-management-link"
	ElementNavAdmin        = "nav-admin"
)

var capabilityElements = []struct {
	id         string
	capability rbac.Capability
}{
	{ElementLiveTanks, rbac.CanViewLiveTanks},
	{ElementAddToLiveTanks, rbac.CanAddToLiveTanks},
	{ElementEditLiveTanks, rbac.CanEditLiveTanks},
	{ElementDeleteLiveTanks, rbac.CanDeleteFromLiveTanks},
	{ElementUserManagement, rbac.CanManageUsers},
	{ElementNavAdmin, rbac.CanManageUsers},
}

// Tank form inputs. Level inputs are editable only with canEditLiveTanks;
// capacity and min/max inputs are additionally hidden without the data flag.
var (
	levelInputs    = []string{"tank-level-input", "tank-comment-input"}
	capacityInputs = []string{"tank-capacity-input", "tank-factor-input"}
	minMaxInputs   = []string{"tank-min-input", "tank-max-input", "tank-gross-input"}
)

// NavPages are the pages with a navigation link, element id "nav-<page>".
var NavPages = []string{
	rbac.PageIndex,
	rbac.PageDashboard,
	rbac.PageLiveTanks,
	rbac.PagePBCR,
	rbac.PagePLCR,
	rbac.PageNMOGAS,
	rbac.PageNMOGASBL,
	rbac.PageUserManagement,
}

// NavElement returns the navigation link id of page.
func NavElement(page string) string {
	return "nav-" + rbac.NormalizePage(page)
}

// Apply shows, hides and locks elements on surface according to perms.
func Apply(perms rbac.EffectivePermissions, surface Surface) {
	if surface == nil {
		return
	}
	for _, el := range capabilityElements {
		surface.SetVisible(el.id, rbac.CanPerform(perms, string(el.capability)))
	}
	for _, page := range NavPages {
		surface.SetVisible(NavElement(page), rbac.CanAccessPage(perms, page))
	}

	readOnly := !rbac.CanPerform(perms, string(rbac.CanEditLiveTanks))
	for _, id := range levelInputs {
		surface.SetReadOnly(id, readOnly)
	}
	applyDataInputs(surface, capacityInputs, perms.Data(rbac.DataViewCapacityFactors), readOnly)
	applyDataInputs(surface, minMaxInputs, perms.Data(rbac.DataViewMinMaxLevels), readOnly)
}

func applyDataInputs(surface Surface, ids []string, visible, readOnly bool) {
	for _, id := range ids {
		surface.SetVisible(id, visible)
		surface.SetReadOnly(id, readOnly || !visible)
	}
}
