package ui

import "github.com/tanktools/tanktools/internal/rbac"

// Manifest is a Surface that records every toggle so the browser can apply
// it after the page loads.
type Manifest struct {
	Visible  map[string]bool `json:"visible"`
	ReadOnly map[string]bool `json:"readOnly"`
}

// NewManifest returns an empty Manifest.
func NewManifest() *Manifest {
	return &Manifest{Visible: map[string]bool{}, ReadOnly: map[string]bool{}}
}

// Build returns the manifest for perms.
func Build(perms rbac.EffectivePermissions) *Manifest {
	m := NewManifest()
	Apply(perms, m)
	return m
}

// SetVisible records the visibility of elementID.
func (m *Manifest) SetVisible(elementID string, visible bool) {
	m.Visible[elementID] = visible
}

// SetReadOnly records whether inputID accepts edits.
func (m *Manifest) SetReadOnly(inputID string, readOnly bool) {
	m.ReadOnly[inputID] = readOnly
}
