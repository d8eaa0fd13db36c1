package models

// Capability names one of the gated operations
type Capability string

const (
	CapManagePatients Capability = "manage-patients"
	CapManageDoctors  Capability = "manage-doctors"
	CapViewMappings   Capability = "view-mappings"
	CapCreateMappings Capability = "create-mappings"
)

// AllCapabilities lists every gated capability
func AllCapabilities() []Capability {
	return []Capability{CapManagePatients, CapManageDoctors, CapViewMappings, CapCreateMappings}
}

// Description is the human phrase used in denial messages
func (c Capability) Description() string {
	switch c {
	case CapManagePatients:
		return "manage patients"
	case CapManageDoctors:
		return "manage doctors"
	case CapViewMappings:
		return "view mappings"
	case CapCreateMappings:
		return "create mappings"
	default:
		return string(c)
	}
}

// PermissionSet is the per-user capability record for USER accounts
type PermissionSet struct {
	ID                int64 `json:"id,omitempty"`
	UserID            int64 `json:"userId"`
	CanManagePatients bool  `json:"canManagePatients"`
	CanManageDoctors  bool  `json:"canManageDoctors"`
	CanViewMappings   bool  `json:"canViewMappings"`
	CanCreateMappings bool  `json:"canCreateMappings"`
}

// FullPermissions returns a set with every flag enabled
func FullPermissions(userID int64) *PermissionSet {
	return &PermissionSet{
		UserID:            userID,
		CanManagePatients: true,
		CanManageDoctors:  true,
		CanViewMappings:   true,
		CanCreateMappings: true,
	}
}

// Allows reports whether the set grants c
func (p *PermissionSet) Allows(c Capability) bool {
	if p == nil {
		return false
	}
	switch c {
	case CapManagePatients:
		return p.CanManagePatients
	case CapManageDoctors:
		return p.CanManageDoctors
	case CapViewMappings:
		return p.CanViewMappings
	case CapCreateMappings:
		return p.CanCreateMappings
	default:
		return false
	}
}

// PermissionInput carries optional flags supplied by an admin.
// Nil means "not supplied".
type PermissionInput struct {
	CanManagePatients *bool `json:"canManagePatients"`
	CanManageDoctors  *bool `json:"canManageDoctors"`
	CanViewMappings   *bool `json:"canViewMappings"`
	CanCreateMappings *bool `json:"canCreateMappings"`
}

// WithDefault resolves each flag, using def where the flag was not supplied
func (in *PermissionInput) WithDefault(userID int64, def bool) *PermissionSet {
	pick := func(v *bool) bool {
		if v == nil {
			return def
		}
		return *v
	}
	if in == nil {
		in = &PermissionInput{}
	}
	return &PermissionSet{
		UserID:            userID,
		CanManagePatients: pick(in.CanManagePatients),
		CanManageDoctors:  pick(in.CanManageDoctors),
		CanViewMappings:   pick(in.CanViewMappings),
		CanCreateMappings: pick(in.CanCreateMappings),
	}
}
