package rbac

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog maps roles to their default pages and permissions. It is built once
// and never modified afterwards.
type Catalog struct {
	entries map[Role]PolicyEntry
	legacy  map[Role]PolicyEntry
}

// LegacyPages is the page list shared by every legacy flat role.
var LegacyPages = []string{PagePBCR, PagePLCR, PageNMOGAS, PageDashboard, PageLiveTanks}

// legacyRules lists the legacy roles holding each capability.
var legacyRules = map[Capability][]Role{
	CanViewLiveTanks:       {RoleAdmin, RolePanelOperator, RoleSupervisor},
	CanEditLiveTanks:       {RoleAdmin, RolePanelOperator},
	CanAddToLiveTanks:      {RoleAdmin, RolePanelOperator},
	CanDeleteFromLiveTanks: {RoleAdmin, RolePanelOperator},
	CanManageUsers:         {RoleAdmin},
}

// DefaultLegacyRoles are the flat roles written by the first schema generation.
var DefaultLegacyRoles = []Role{RoleAdmin, RolePanelOperator, RoleSupervisor, RoleViewer}

var defaultCatalog = mustCatalog(NewCatalog(defaultEntries(), DefaultLegacyRoles))

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// NewCatalog validates entries and builds a catalog.
func NewCatalog(entries []PolicyEntry, legacyRoles []Role) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[Role]PolicyEntry, len(entries)),
		legacy:  make(map[Role]PolicyEntry, len(legacyRoles)),
	}
	for _, entry := range entries {
		key := Role(FoldKey(string(entry.Role)))
		if key == "" {
			return nil, errors.New("rbac: catalog entry without role")
		}
		if _, dup := c.entries[key]; dup {
			return nil, fmt.Errorf("rbac: duplicate catalog entry %q", key)
		}
		if len(entry.AllowedPages) == 0 {
			return nil, fmt.Errorf("rbac: catalog entry %q has no pages", key)
		}
		entry.Role = key
		entry.AllowedPages = append([]string(nil), entry.AllowedPages...)
		entry.DefaultPermissions = entry.DefaultPermissions.Clone()
		entry.DefaultPermissions.Tanks = entry.DefaultPermissions.Tanks.normalized()
		c.entries[key] = entry
	}
	for _, role := range legacyRoles {
		key := Role(FoldKey(string(role)))
		if key == "" {
			return nil, errors.New("rbac: empty legacy role")
		}
		c.legacy[key] = legacyEntry(key)
	}
	return c, nil
}

// Lookup returns the specialization entry for role.
func (c *Catalog) Lookup(role Role) (PolicyEntry, bool) {
	if c == nil {
		return PolicyEntry{}, false
	}
	entry, ok := c.entries[Role(FoldKey(string(role)))]
	if !ok {
		return PolicyEntry{}, false
	}
	return cloneEntry(entry), true
}

// LookupLegacy returns the entry derived from the legacy rule table.
func (c *Catalog) LookupLegacy(role Role) (PolicyEntry, bool) {
	if c == nil {
		return PolicyEntry{}, false
	}
	entry, ok := c.legacy[Role(FoldKey(string(role)))]
	if !ok {
		return PolicyEntry{}, false
	}
	return cloneEntry(entry), true
}

// Roles lists catalogued specializations in name order.
func (c *Catalog) Roles() []Role {
	if c == nil {
		return nil
	}
	roles := make([]Role, 0, len(c.entries))
	for role := range c.entries {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// LegacyRoles lists the legacy flat roles in name order.
func (c *Catalog) LegacyRoles() []Role {
	if c == nil {
		return nil
	}
	roles := make([]Role, 0, len(c.legacy))
	for role := range c.legacy {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

type catalogFile struct {
	Roles       []catalogFileEntry `yaml:"roles"`
	LegacyRoles []Role             `yaml:"legacyRoles"`
}

type catalogFileEntry struct {
	Role         Role               `yaml:"role"`
	Description  string             `yaml:"description"`
	AllowedPages []string           `yaml:"allowedPages"`
	Permissions  FeaturePermissions `yaml:"permissions"`
}

// LoadCatalog reads a YAML catalog. When legacyRoles is omitted the default
// legacy roles are kept.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("rbac: decode catalog: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, errors.New("rbac: catalog has no roles")
	}
	entries := make([]PolicyEntry, 0, len(file.Roles))
	for _, e := range file.Roles {
		entries = append(entries, PolicyEntry{
			Role:               e.Role,
			Description:        e.Description,
			AllowedPages:       e.AllowedPages,
			DefaultPermissions: e.Permissions,
		})
	}
	legacy := file.LegacyRoles
	if len(legacy) == 0 {
		legacy = DefaultLegacyRoles
	}
	return NewCatalog(entries, legacy)
}

func legacyEntry(role Role) PolicyEntry {
	caps := make(map[Capability]bool, len(legacyRules))
	for capability, holders := range legacyRules {
		granted := false
		for _, holder := range holders {
			if holder == role {
				granted = true
				break
			}
		}
		caps[capability] = granted
	}
	return PolicyEntry{
		Role:               role,
		Description:        "legacy flat role",
		AllowedPages:       append([]string(nil), LegacyPages...),
		DefaultPermissions: FeaturePermissions{Capabilities: caps},
	}
}

func cloneEntry(entry PolicyEntry) PolicyEntry {
	entry.AllowedPages = append([]string(nil), entry.AllowedPages...)
	entry.DefaultPermissions = entry.DefaultPermissions.Clone()
	return entry
}

func mustCatalog(c *Catalog, err error) *Catalog {
	if err != nil {
		panic(err)
	}
	return c
}

func caps(granted ...Capability) map[Capability]bool {
	out := make(map[Capability]bool, len(Capabilities()))
	for _, c := range Capabilities() {
		out[c] = false
	}
	for _, c := range granted {
		out[c] = true
	}
	return out
}

func data(flags ...string) map[string]bool {
	out := map[string]bool{DataViewCapacityFactors: false, DataViewMinMaxLevels: false}
	for _, f := range flags {
		out[f] = true
	}
	return out
}

func departments(names ...string) TankScope {
	return TankScope{Departments: names}
}

func defaultEntries() []PolicyEntry {
	return []PolicyEntry{
		{
			Role:         RoleAdmin,
			Description:  "full access",
			AllowedPages: []string{WildcardPage},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(Capabilities()...),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
			},
		},
		{
			Role:         RoleControlPanel,
			Description:  "control panel operators",
			AllowedPages: []string{PageLiveTanks, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanViewLiveTanks, CanEditLiveTanks, CanAddToLiveTanks, CanDeleteFromLiveTanks),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
			},
		},
		{
			Role:         RoleSupervisor,
			Description:  "shift supervisors",
			AllowedPages: []string{PagePBCR, PagePLCR, PageNMOGAS, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanAddToLiveTanks),
				Data:         data(DataViewMinMaxLevels),
			},
		},
		{
			Role:         RolePlanning,
			Description:  "planning engineers",
			AllowedPages: []string{PagePBCR, PagePLCR, PageNMOGAS, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
			},
		},
		{
			Role:         RoleFieldOperator,
			Description:  "field operators",
			AllowedPages: []string{PageLiveTanks, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanViewLiveTanks),
				Data:         data(),
			},
		},
		{
			Role:         RolePBCRSupervisor,
			Description:  "PBCR supervisors",
			AllowedPages: []string{PageIndex, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanAddToLiveTanks),
				Data:         data(DataViewMinMaxLevels),
				Tanks:        departments("PBCR"),
			},
		},
		{
			Role:         RolePBCRPlanning,
			Description:  "PBCR planning",
			AllowedPages: []string{PageIndex, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
				Tanks:        departments("PBCR"),
			},
		},
		{
			Role:         RolePLCRSupervisor,
			Description:  "PLCR supervisors",
			AllowedPages: []string{PagePLCR, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanAddToLiveTanks),
				Data:         data(DataViewMinMaxLevels),
				Tanks:        departments("PLCR"),
			},
		},
		{
			Role:         RolePLCRPlanning,
			Description:  "PLCR planning",
			AllowedPages: []string{PagePLCR, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
				Tanks:        departments("PLCR"),
			},
		},
		{
			Role:         RoleNMOGASSupervisor,
			Description:  "NMOGAS supervisors",
			AllowedPages: []string{PageNMOGASBL, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(CanAddToLiveTanks),
				Data:         data(DataViewMinMaxLevels),
				Tanks:        departments("NMOGAS"),
			},
		},
		{
			Role:         RoleNMOGASPlanning,
			Description:  "NMOGAS planning",
			AllowedPages: []string{PageNMOGASBL, PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(),
				Data:         data(DataViewCapacityFactors, DataViewMinMaxLevels),
				Tanks:        departments("NMOGAS"),
			},
		},
		{
			Role:         RoleViewer,
			Description:  "read-only dashboard",
			AllowedPages: []string{PageDashboard},
			DefaultPermissions: FeaturePermissions{
				Capabilities: caps(),
				Data:         data(),
			},
		},
	}
}
