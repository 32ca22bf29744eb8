package domain

import "testing"

func TestCanDistribute(t *testing.T) {
	can := []Role{RoleAdmin, RoleBranchManager, RoleTeamLead}
	cannot := []Role{RoleEmployee, RoleHR, RoleLeadManager, Role("Intern")}

	for _, r := range can {
		if !r.CanDistribute() {
			t.Errorf("%s.CanDistribute() = false, want true", r)
		}
	}
	for _, r := range cannot {
		if r.CanDistribute() {
			t.Errorf("%s.CanDistribute() = true, want false", r)
		}
	}
}

func TestCanUploadBatches(t *testing.T) {
	if !RoleAdmin.CanUploadBatches() || !RoleLeadManager.CanUploadBatches() {
		t.Error("Admin and LeadManager must be able to upload batches")
	}
	for _, r := range []Role{RoleBranchManager, RoleTeamLead, RoleEmployee, RoleHR} {
		if r.CanUploadBatches() {
			t.Errorf("%s.CanUploadBatches() = true, want false", r)
		}
	}
}

func TestVisibleRoleTabsReturnsCopy(t *testing.T) {
	tabs := VisibleRoleTabs(RoleAdmin)
	if len(tabs) != 3 {
		t.Fatalf("admin tabs = %v", tabs)
	}
	tabs[0] = RoleHR
	if again := VisibleRoleTabs(RoleAdmin); again[0] != RoleBranchManager {
		t.Error("VisibleRoleTabs shares internal state with callers")
	}
}
