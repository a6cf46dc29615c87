package rbac

import (
	"fmt"
	"strings"
)

// Resolve computes the effective permissions of user against the default
// catalog. See Catalog.Resolve.
func Resolve(user UserRecord, remote *FeaturePermissions) (EffectivePermissions, error) {
	return DefaultCatalog().Resolve(user, remote)
}

// Resolve computes the effective permissions of user. The rules are applied
// in order and the first match wins:
//
//  1. admin flag, admin role or admin specialization: everything;
//  2. remote permission document: replaces all derived permissions;
//  3. custom permissions on the user record;
//  4. legacy flat role: the legacy rule table;
//  5. specialization: the catalog defaults.
//
// A role missing from the catalog yields zero permissions together with
// ErrUnknownRole. Resolve has no side effects and never retains its inputs.
func (c *Catalog) Resolve(user UserRecord, remote *FeaturePermissions) (EffectivePermissions, error) {
	username := strings.TrimSpace(user.Username)
	named := user.SpecializationName()
	generation := user.Generation()

	if user.HasAdminAccess() {
		return adminPermissions(username), nil
	}

	// Pages of the user's own catalog entry; used when an override carries none.
	var basePages []string
	var role Role
	switch generation {
	case GenerationSpecialization:
		role = named
		if entry, ok := c.Lookup(named); ok {
			basePages = entry.AllowedPages
		}
	case GenerationLegacy:
		role = user.Role
		if entry, ok := c.LookupLegacy(user.Role); ok {
			basePages = entry.AllowedPages
		}
	}

	if remote != nil {
		pages := basePages
		switch {
		case len(user.CustomPages) > 0:
			pages = user.CustomPages
		case remote.HasPages():
			pages = pagesFromFlags(remote.Pages)
		}
		return build(username, role, SourceRemote, pages, remote.Clone()), nil
	}

	if user.CustomPermissions != nil {
		pages := basePages
		if len(user.CustomPages) > 0 {
			pages = user.CustomPages
		}
		return build(username, role, SourceCustom, pages, user.CustomPermissions.Clone()), nil
	}

	switch generation {
	case GenerationLegacy:
		entry, ok := c.LookupLegacy(user.Role)
		if !ok {
			return denied(username, user.Role), fmt.Errorf("%w: legacy role %q", ErrUnknownRole, user.Role)
		}
		return build(username, entry.Role, SourceLegacy, entry.AllowedPages, entry.DefaultPermissions), nil
	case GenerationSpecialization:
		entry, ok := c.Lookup(named)
		if !ok {
			return denied(username, named), fmt.Errorf("%w: specialization %q", ErrUnknownRole, named)
		}
		return build(username, entry.Role, SourceCatalog, entry.AllowedPages, entry.DefaultPermissions), nil
	default:
		return denied(username, ""), fmt.Errorf("%w: user %q has no role", ErrUnknownRole, username)
	}
}

// HasAdminAccess reports whether the record resolves to admin permissions
// regardless of any remote document.
func (u UserRecord) HasAdminAccess() bool {
	return u.IsAdmin ||
		FoldKey(string(u.Role)) == string(RoleAdmin) ||
		FoldKey(string(u.SpecializationName())) == string(RoleAdmin)
}

func adminPermissions(username string) EffectivePermissions {
	capabilities := make(map[Capability]bool, len(Capabilities()))
	for _, c := range Capabilities() {
		capabilities[c] = true
	}
	return EffectivePermissions{
		Username: username,
		Role:     RoleAdmin,
		Source:   SourceAdmin,
		Admin:    true,
		AllPages: true,
		Permissions: FeaturePermissions{
			Capabilities: capabilities,
			Data:         map[string]bool{DataViewCapacityFactors: true, DataViewMinMaxLevels: true},
		},
	}
}

func build(username string, role Role, source Source, pages []string, perms FeaturePermissions) EffectivePermissions {
	normalized, all := normalizePages(pages)
	return EffectivePermissions{
		Username:    username,
		Role:        role,
		Source:      source,
		AllPages:    all,
		Pages:       normalized,
		Permissions: perms,
	}
}

func denied(username string, role Role) EffectivePermissions {
	return EffectivePermissions{Username: username, Role: role, Source: SourceNone, Pages: []string{}}
}
