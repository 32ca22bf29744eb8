// Package domain holds the role model for the reporting hierarchy.
package domain

// Role is a user's position in the organization. Admin, BranchManager,
// TeamLead and Employee form the reporting chain; HR and LeadManager sit
// outside it and never appear in a downline.
type Role string

const (
	RoleAdmin         Role = "Admin"
	RoleBranchManager Role = "BranchManager"
	RoleTeamLead      Role = "TeamLead"
	RoleEmployee      Role = "Employee"
	RoleHR            Role = "HR"
	RoleLeadManager   Role = "LeadManager"
)

// roleTabs maps a role to the ordered set of roles it may see and target
// when distributing leads. This is a static table, not computed state.
var roleTabs = map[Role][]Role{
	RoleAdmin:         {RoleBranchManager, RoleTeamLead, RoleEmployee},
	RoleBranchManager: {RoleTeamLead, RoleEmployee},
	RoleTeamLead:      {RoleEmployee},
}

// VisibleRoleTabs returns the ordered roles the given role may target.
// Roles outside the distribution chain get an empty slice.
func VisibleRoleTabs(role Role) []Role {
	tabs, ok := roleTabs[role]
	if !ok {
		return nil
	}
	out := make([]Role, len(tabs))
	copy(out, tabs)
	return out
}

// CanDistribute reports whether the role may distribute leads at all.
func (r Role) CanDistribute() bool {
	return len(roleTabs[r]) > 0
}

// CanUploadBatches reports whether the role may ingest lead batches.
func (r Role) CanUploadBatches() bool {
	return r == RoleAdmin || r == RoleLeadManager
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranchManager, RoleTeamLead, RoleEmployee, RoleHR, RoleLeadManager:
		return true
	}
	return false
}
