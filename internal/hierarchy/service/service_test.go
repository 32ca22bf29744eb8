package service

import (
	"context"
	"testing"

	"salesops_backend/internal/hierarchy/domain"
	"salesops_backend/internal/hierarchy/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// fakeRepo serves a reports-to forest held in memory.
type fakeRepo struct {
	users map[uuid.UUID]repository.User
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) ListDirectReports(_ context.Context, managerIDs []uuid.UUID) ([]repository.User, error) {
	managers := make(map[uuid.UUID]bool, len(managerIDs))
	for _, id := range managerIDs {
		managers[id] = true
	}
	out := make([]repository.User, 0)
	for _, u := range f.users {
		if u.ReportsTo != nil && managers[*u.ReportsTo] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountUsers(context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeRepo) add(role domain.Role, reportsTo *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.users[id] = repository.User{ID: id, Name: id.String()[:8], Role: role, ReportsTo: reportsTo}
	return id
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[uuid.UUID]repository.User)}
}

func TestDownlineOfTransitive(t *testing.T) {
	repo := newFakeRepo()
	bm := repo.add(domain.RoleBranchManager, nil)
	tl1 := repo.add(domain.RoleTeamLead, &bm)
	tl2 := repo.add(domain.RoleTeamLead, &bm)
	e1 := repo.add(domain.RoleEmployee, &tl1)
	e2 := repo.add(domain.RoleEmployee, &tl2)
	other := repo.add(domain.RoleBranchManager, nil)
	repo.add(domain.RoleEmployee, &other)

	svc := New(repo)
	downline, err := svc.DownlineOf(context.Background(), bm)
	if err != nil {
		t.Fatalf("DownlineOf returned error: %v", err)
	}
	if len(downline) != 4 {
		t.Fatalf("downline size = %d, want 4", len(downline))
	}
	got := make(map[uuid.UUID]bool, len(downline))
	for _, u := range downline {
		got[u.ID] = true
	}
	for _, want := range []uuid.UUID{tl1, tl2, e1, e2} {
		if !got[want] {
			t.Errorf("downline missing %s", want)
		}
	}
}

func TestDownlineOfLeafIsEmpty(t *testing.T) {
	repo := newFakeRepo()
	tl := repo.add(domain.RoleTeamLead, nil)
	e := repo.add(domain.RoleEmployee, &tl)

	svc := New(repo)
	downline, err := svc.DownlineOf(context.Background(), e)
	if err != nil {
		t.Fatalf("DownlineOf returned error: %v", err)
	}
	if len(downline) != 0 {
		t.Errorf("leaf downline = %d users, want 0", len(downline))
	}
}

func TestDownlineOfTerminatesOnCycle(t *testing.T) {
	repo := newFakeRepo()
	a := repo.add(domain.RoleBranchManager, nil)
	b := repo.add(domain.RoleTeamLead, &a)
	// Corrupt the forest: a reports to b, closing a cycle.
	ua := repo.users[a]
	ua.ReportsTo = &b
	repo.users[a] = ua

	svc := New(repo)
	downline, err := svc.DownlineOf(context.Background(), a)
	if err != nil {
		t.Fatalf("DownlineOf returned error: %v", err)
	}
	if len(downline) != 1 {
		t.Errorf("downline size = %d, want 1 despite cycle", len(downline))
	}
}

func TestDownlineOfUnknownActor(t *testing.T) {
	svc := New(newFakeRepo())
	if _, err := svc.DownlineOf(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
}

func TestIsInDownline(t *testing.T) {
	repo := newFakeRepo()
	bm := repo.add(domain.RoleBranchManager, nil)
	tl := repo.add(domain.RoleTeamLead, &bm)
	e := repo.add(domain.RoleEmployee, &tl)
	peer := repo.add(domain.RoleBranchManager, nil)

	svc := New(repo)
	tests := []struct {
		name   string
		actor  uuid.UUID
		target uuid.UUID
		want   bool
	}{
		{"direct report", bm, tl, true},
		{"transitive report", bm, e, true},
		{"self is never in downline", bm, bm, false},
		{"peer is not", bm, peer, false},
		{"upward is not", e, bm, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsInDownline(context.Background(), tt.actor, tt.target)
			if err != nil {
				t.Fatalf("IsInDownline returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsInDownline = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleTabsFor(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.add(domain.RoleAdmin, nil)
	bm := repo.add(domain.RoleBranchManager, nil)
	tl := repo.add(domain.RoleTeamLead, &bm)
	e := repo.add(domain.RoleEmployee, &tl)
	hr := repo.add(domain.RoleHR, nil)

	svc := New(repo)
	tests := []struct {
		name  string
		actor uuid.UUID
		want  []domain.Role
	}{
		{"admin sees full chain", admin, []domain.Role{domain.RoleBranchManager, domain.RoleTeamLead, domain.RoleEmployee}},
		{"branch manager", bm, []domain.Role{domain.RoleTeamLead, domain.RoleEmployee}},
		{"team lead", tl, []domain.Role{domain.RoleEmployee}},
		{"employee sees nothing", e, nil},
		{"hr sees nothing", hr, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.RoleTabsFor(context.Background(), tt.actor)
			if err != nil {
				t.Fatalf("RoleTabsFor returned error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("tabs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tab[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
