package rbac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role identifies a specialization or legacy flat role.
type Role string

// Specializations.
const (
	RoleAdmin            Role = "admin"
	RoleControlPanel     Role = "control_panel"
	RoleSupervisor       Role = "supervisor"
	RolePlanning         Role = "planning"
	RoleFieldOperator    Role = "field_operator"
	RolePBCRSupervisor   Role = "pbcr_supervisor"
	RolePBCRPlanning     Role = "pbcr_planning"
	RolePLCRSupervisor   Role = "plcr_supervisor"
	RolePLCRPlanning     Role = "plcr_planning"
	RoleNMOGASSupervisor Role = "nmogas_supervisor"
	RoleNMOGASPlanning   Role = "nmogas_planning"
	RoleViewer           Role = "viewer"
)

// Legacy flat roles. admin, supervisor and viewer are shared with the
// specialization names above.
const (
	RolePanelOperator Role = "panel_operator"
)

// Capability names a boolean feature flag.
type Capability string

// Feature flags understood by every schema generation.
const (
	CanViewLiveTanks       Capability = "canViewLiveTanks"
	CanEditLiveTanks       Capability = "canEditLiveTanks"
	CanAddToLiveTanks      Capability = "canAddToLiveTanks"
	CanDeleteFromLiveTanks Capability = "canDeleteFromLiveTanks"
	CanManageUsers         Capability = "canManageUsers"
)

// Capabilities lists the fixed-shape feature flags.
func Capabilities() []Capability {
	return []Capability{
		CanViewLiveTanks,
		CanEditLiveTanks,
		CanAddToLiveTanks,
		CanDeleteFromLiveTanks,
		CanManageUsers,
	}
}

// Data visibility flags.
const (
	DataViewCapacityFactors = "viewCapacityFactors"
	DataViewMinMaxLevels    = "viewMinMaxLevels"
)

// Dashboard pages.
const (
	PageIndex          = "index"
	PageDashboard      = "dashboard"
	PageLiveTanks      = "livetanks"
	PagePBCR           = "pbcr"
	PagePLCR           = "plcr"
	PageNMOGAS         = "nmogas"
	PageNMOGASBL       = "nmogasbl"
	PageUserManagement = "usermanagement"
)

// WildcardPage grants every page.
const WildcardPage = "all"

// TimeRestrictions limits access to a weekly window.
type TimeRestrictions struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	StartTime   string `json:"startTime,omitempty" yaml:"startTime" validate:"required_if=Enabled true,omitempty,datetime=15:04"`
	EndTime     string `json:"endTime,omitempty" yaml:"endTime" validate:"required_if=Enabled true,omitempty,datetime=15:04"`
	AllowedDays []int  `json:"allowedDays,omitempty" yaml:"allowedDays" validate:"dive,min=0,max=6"`
}

// TankScope restricts the departments and tanks a user can reach. Tank ids
// are kept in their string form and keyed by folded department name.
type TankScope struct {
	Departments []string
	Tanks       map[string][]string
}

// IsZero reports whether the scope places no restriction.
func (s TankScope) IsZero() bool {
	return len(s.Departments) == 0 && len(s.Tanks) == 0
}

// IDs returns the tank list for department, nil when unrestricted.
func (s TankScope) IDs(department string) []string {
	return s.Tanks[FoldKey(department)]
}

func (s *TankScope) addIDs(department string, ids []string) {
	key := FoldKey(department)
	if key == "" {
		return
	}
	if s.Tanks == nil {
		s.Tanks = make(map[string][]string)
	}
	for _, id := range ids {
		s.Tanks[key] = append(s.Tanks[key], strings.TrimSpace(id))
	}
	if s.Tanks[key] == nil {
		s.Tanks[key] = []string{}
	}
}

// normalized returns a copy with folded department keys and trimmed ids.
func (s TankScope) normalized() TankScope {
	out := TankScope{Departments: append([]string(nil), s.Departments...)}
	for dept, ids := range s.Tanks {
		out.addIDs(dept, ids)
	}
	return out
}

// MarshalJSON flattens per-department lists next to departments.
func (s TankScope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Tanks)+1)
	if len(s.Departments) > 0 {
		out["departments"] = s.Departments
	}
	for dept, ids := range s.Tanks {
		out[dept] = ids
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts {"departments": [...], "<dept>": [ids...]} where ids
// may be numbers or strings.
func (s *TankScope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scope := TankScope{}
	for key, value := range raw {
		if key == "departments" {
			if err := json.Unmarshal(value, &scope.Departments); err != nil {
				return err
			}
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return err
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, rawID(item))
		}
		scope.addIDs(key, ids)
	}
	*s = scope
	return nil
}

// UnmarshalYAML reads the same flat shape as UnmarshalJSON. A nested
// "tanks" mapping of department lists is also accepted.
func (s *TankScope) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("rbac: line %d: tank scope must be a mapping", value.Line)
	}
	scope := TankScope{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, item := value.Content[i], value.Content[i+1]
		switch {
		case key.Value == "departments":
			if err := item.Decode(&scope.Departments); err != nil {
				return err
			}
		case key.Value == "tanks" && item.Kind == yaml.MappingNode:
			for j := 0; j+1 < len(item.Content); j += 2 {
				ids, err := yamlIDs(item.Content[j+1])
				if err != nil {
					return err
				}
				scope.addIDs(item.Content[j].Value, ids)
			}
		default:
			ids, err := yamlIDs(item)
			if err != nil {
				return err
			}
			scope.addIDs(key.Value, ids)
		}
	}
	*s = scope
	return nil
}

func yamlIDs(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("rbac: line %d: tank ids must be a list", node.Line)
	}
	ids := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("rbac: line %d: tank id must be a scalar", item.Line)
		}
		ids = append(ids, item.Value)
	}
	return ids, nil
}

func rawID(item json.RawMessage) string {
	var str string
	if err := json.Unmarshal(item, &str); err == nil {
		return str
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		return num.String()
	}
	return strings.TrimSpace(string(item))
}

// FeaturePermissions is the capability set shared by catalog defaults, custom
// per-user permissions and remote permission documents. A missing key is
// always "no access".
type FeaturePermissions struct {
	Capabilities     map[Capability]bool `yaml:"capabilities"`
	Pages            map[string]bool     `yaml:"pages"`
	Data             map[string]bool     `yaml:"data"`
	Actions          map[string]bool     `yaml:"actions"`
	Tanks            TankScope           `yaml:"tanks"`
	TimeRestrictions TimeRestrictions    `yaml:"timeRestrictions"`

	// pagesSet records whether the "pages" key was present in a decoded document.
	pagesSet bool
}

type featureWire struct {
	Pages            map[string]bool  `json:"pages,omitempty"`
	Data             map[string]bool  `json:"data,omitempty"`
	Actions          map[string]bool  `json:"actions,omitempty"`
	Tanks            *TankScope       `json:"tanks,omitempty"`
	TimeRestrictions TimeRestrictions `json:"timeRestrictions"`
}

// UnmarshalJSON reads top-level boolean keys as capability flags and the
// nested objects of the richer document generation.
func (f *FeaturePermissions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var wire featureWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := FeaturePermissions{
		Pages:            wire.Pages,
		Data:             wire.Data,
		Actions:          wire.Actions,
		TimeRestrictions: wire.TimeRestrictions,
	}
	if wire.Tanks != nil {
		out.Tanks = *wire.Tanks
	}
	_, out.pagesSet = raw["pages"]
	for key, value := range raw {
		switch key {
		case "pages", "data", "actions", "tanks", "timeRestrictions":
			continue
		}
		var flag bool
		if err := json.Unmarshal(value, &flag); err != nil {
			continue
		}
		if out.Capabilities == nil {
			out.Capabilities = make(map[Capability]bool)
		}
		out.Capabilities[Capability(key)] = flag
	}
	*f = out
	return nil
}

// MarshalJSON writes the document in the same shape UnmarshalJSON reads.
func (f FeaturePermissions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Capabilities)+5)
	for key, value := range f.Capabilities {
		out[string(key)] = value
	}
	if f.HasPages() {
		pages := f.Pages
		if pages == nil {
			pages = map[string]bool{}
		}
		out["pages"] = pages
	}
	if f.Data != nil {
		out["data"] = f.Data
	}
	if f.Actions != nil {
		out["actions"] = f.Actions
	}
	if !f.Tanks.IsZero() {
		out["tanks"] = f.Tanks
	}
	if f.TimeRestrictions.Enabled {
		out["timeRestrictions"] = f.TimeRestrictions
	}
	return json.Marshal(out)
}

// HasPages reports whether the document carries its own page map.
func (f FeaturePermissions) HasPages() bool {
	return f.pagesSet || f.Pages != nil
}

// Clone returns a deep copy.
func (f FeaturePermissions) Clone() FeaturePermissions {
	out := FeaturePermissions{
		Capabilities:     cloneMap(f.Capabilities),
		Pages:            cloneMap(f.Pages),
		Data:             cloneMap(f.Data),
		Actions:          cloneMap(f.Actions),
		TimeRestrictions: f.TimeRestrictions,
		pagesSet:         f.pagesSet,
	}
	out.TimeRestrictions.AllowedDays = append([]int(nil), f.TimeRestrictions.AllowedDays...)
	out.Tanks.Departments = append([]string(nil), f.Tanks.Departments...)
	if f.Tanks.Tanks != nil {
		out.Tanks.Tanks = make(map[string][]string, len(f.Tanks.Tanks))
		for dept, ids := range f.Tanks.Tanks {
			out.Tanks.Tanks[dept] = append([]string(nil), ids...)
		}
	}
	return out
}

func cloneMap[K comparable](in map[K]bool) map[K]bool {
	if in == nil {
		return nil
	}
	out := make(map[K]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PolicyEntry holds the defaults of one catalogued role.
type PolicyEntry struct {
	Role               Role
	Description        string
	AllowedPages       []string
	DefaultPermissions FeaturePermissions
}

// Source records which branch of the resolver produced a permission set.
type Source string

const (
	SourceNone    Source = "none"
	SourceAdmin   Source = "admin"
	SourceRemote  Source = "remote"
	SourceCustom  Source = "custom"
	SourceLegacy  Source = "legacy"
	SourceCatalog Source = "catalog"
)

// EffectivePermissions is the resolved permission set for one user. Values
// are never modified after the resolver returns them.
type EffectivePermissions struct {
	Username    string
	Role        Role
	Source      Source
	Admin       bool
	AllPages    bool
	Pages       []string
	Permissions FeaturePermissions
}

// HasPage reports whether the normalized page id is listed.
func (p EffectivePermissions) HasPage(page string) bool {
	i := sort.SearchStrings(p.Pages, page)
	return i < len(p.Pages) && p.Pages[i] == page
}

// Data reports a data visibility flag.
func (p EffectivePermissions) Data(flag string) bool {
	if p.Admin {
		return true
	}
	return p.Permissions.Data[flag]
}

type effectiveWire struct {
	Username    string             `json:"username"`
	Role        Role               `json:"role,omitempty"`
	Source      Source             `json:"source"`
	Admin       bool               `json:"admin"`
	Pages       []string           `json:"allowedPages"`
	Permissions FeaturePermissions `json:"permissions"`
}

// MarshalJSON renders the wildcard as ["all"].
func (p EffectivePermissions) MarshalJSON() ([]byte, error) {
	pages := p.Pages
	if p.AllPages {
		pages = []string{WildcardPage}
	}
	if pages == nil {
		pages = []string{}
	}
	return json.Marshal(effectiveWire{
		Username:    p.Username,
		Role:        p.Role,
		Source:      p.Source,
		Admin:       p.Admin,
		Pages:       pages,
		Permissions: p.Permissions,
	})
}

// UserRecord is the stored principal. Exactly one of Role or Specialization
// is normally set; UserType is the original name of Specialization.
type UserRecord struct {
	Username          string              `json:"username" validate:"required,max=128"`
	Role              Role                `json:"role,omitempty"`
	Specialization    Role                `json:"specialization,omitempty"`
	UserType          Role                `json:"userType,omitempty"`
	IsAdmin           bool                `json:"isAdmin,omitempty"`
	CustomPages       []string            `json:"customPages,omitempty"`
	CustomPermissions *FeaturePermissions `json:"customPermissions,omitempty"`
}

// Generation identifies the schema generation of a user record.
type Generation int

const (
	GenerationNone Generation = iota
	GenerationLegacy
	GenerationSpecialization
)

func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationSpecialization:
		return "specialization"
	default:
		return "none"
	}
}

// SpecializationName returns the specialization, falling back to userType.
func (u UserRecord) SpecializationName() Role {
	if s := Role(strings.TrimSpace(string(u.Specialization))); s != "" {
		return s
	}
	return Role(strings.TrimSpace(string(u.UserType)))
}

// Generation classifies the record once so resolution can dispatch on it.
func (u UserRecord) Generation() Generation {
	if u.SpecializationName() != "" {
		return GenerationSpecialization
	}
	if strings.TrimSpace(string(u.Role)) != "" {
		return GenerationLegacy
	}
	return GenerationNone
}

// LookupKey is the case-folded username used by the remote store.
func (u UserRecord) LookupKey() string {
	return FoldKey(u.Username)
}

// FormatTankID renders numeric ids the way tank scopes store them.
func FormatTankID(id int64) string {
	return strconv.FormatInt(id, 10)
}
