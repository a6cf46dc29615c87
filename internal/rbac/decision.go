package rbac

import (
	"fmt"
	"strings"
)

// CanAccessPage reports whether perms admit the page reference.
func CanAccessPage(perms EffectivePermissions, page string) bool {
	if perms.AllPages {
		return true
	}
	return perms.HasPage(NormalizePage(page))
}

// CanPerform reports whether the capability or action flag is granted.
// Unknown names are denied.
func CanPerform(perms EffectivePermissions, action string) bool {
	if perms.Admin {
		return true
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false
	}
	if perms.Permissions.Capabilities[Capability(action)] {
		return true
	}
	return perms.Permissions.Actions[action]
}

// CanAccessTank applies the department gate and then the per-department tank
// list. An empty list at either level admits everything at that level.
func CanAccessTank(perms EffectivePermissions, tankID, department string) bool {
	if perms.Admin {
		return true
	}
	scope := perms.Permissions.Tanks
	if len(scope.Departments) > 0 {
		member := false
		for _, d := range scope.Departments {
			if FoldKey(d) == FoldKey(department) {
				member = true
				break
			}
		}
		if !member {
			return false
		}
	}
	ids := scope.IDs(department)
	if len(ids) == 0 {
		return true
	}
	tankID = strings.TrimSpace(tankID)
	for _, id := range ids {
		if strings.TrimSpace(id) == tankID {
			return true
		}
	}
	return false
}

// CheckPage is CanAccessPage returning ErrPageForbidden.
func CheckPage(perms EffectivePermissions, page string) error {
	if CanAccessPage(perms, page) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPageForbidden, NormalizePage(page))
}

// CheckAction is CanPerform returning ErrActionForbidden.
func CheckAction(perms EffectivePermissions, action string) error {
	if CanPerform(perms, action) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionForbidden, action)
}

// CheckTank is CanAccessTank returning ErrTankForbidden.
func CheckTank(perms EffectivePermissions, tankID, department string) error {
	if CanAccessTank(perms, tankID, department) {
		return nil
	}
	return fmt.Errorf("%w: %s/%s", ErrTankForbidden, department, tankID)
}
