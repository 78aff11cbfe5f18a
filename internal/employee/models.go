// Package employee owns contractor employee records and the certification
// presets instantiated at onboarding.
package employee

import (
	"time"

	"railledger/pkg/domain"
)

// EntityType tags employee evidence nodes.
const EntityType = "Employee"

// Employee is one contractor employee subject to certification requirements.
type Employee struct {
	ID         domain.EmployeeID
	Name       string
	Role       string
	Contractor string
	CreatedAt  time.Time
}

// Preset is a required-certification template. Onboarding creates one
// INCOMPLETE certification per preset for the employee's role.
type Preset struct {
	CertificationType string
	IssuingAuthority  string
	NonExpiring       bool
}

// PresetCatalog maps a role to its required certification presets.
type PresetCatalog map[string][]Preset

// DefaultPresets covers the roadway contractor roles. Deployments override
// the catalog at wiring time.
var DefaultPresets = PresetCatalog{
	"track_worker": {
		{CertificationType: "Roadway Worker Protection", IssuingAuthority: "FRA"},
		{CertificationType: "Track Safety Standards", IssuingAuthority: "FRA"},
	},
	"flagger": {
		{CertificationType: "Roadway Worker Protection", IssuingAuthority: "FRA"},
		{CertificationType: "Flagging Certification", IssuingAuthority: "AAR"},
	},
	"equipment_operator": {
		{CertificationType: "Roadway Worker Protection", IssuingAuthority: "FRA"},
		{CertificationType: "On-Track Equipment Operation", IssuingAuthority: "AAR"},
		{CertificationType: "Hearing Conservation Training", IssuingAuthority: "OSHA", NonExpiring: true},
	},
}

// RequiredTypes returns the certification types a role requires, or nil for
// an unknown role.
func (c PresetCatalog) RequiredTypes(role string) []string {
	presets, ok := c[role]
	if !ok {
		return nil
	}
	types := make([]string, len(presets))
	for i, p := range presets {
		types[i] = p.CertificationType
	}
	return types
}
