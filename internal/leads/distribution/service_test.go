package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesops_backend/internal/events"
	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeHierarchy struct {
	users    map[uuid.UUID]hierarchyrepo.User
	downline map[uuid.UUID]map[uuid.UUID]bool
}

func (f *fakeHierarchy) GetUser(_ context.Context, id uuid.UUID) (hierarchyrepo.User, error) {
	u, ok := f.users[id]
	if !ok {
		return hierarchyrepo.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeHierarchy) IsInDownline(_ context.Context, actorID, targetID uuid.UUID) (bool, error) {
	return f.downline[actorID][targetID], nil
}

type fakeDistRepo struct {
	pool        int
	claims      []repository.ClaimParams
	reassigns   []repository.ReassignParams
	reassignErr error
}

func (f *fakeDistRepo) PoolSize(context.Context, uuid.UUID, *uuid.UUID) (int, error) {
	return f.pool, nil
}

func (f *fakeDistRepo) ClaimAndAssign(_ context.Context, p repository.ClaimParams) (repository.ClaimResult, error) {
	total := 0
	for _, a := range p.Assignments {
		total += a.Count
	}
	if total > f.pool {
		return repository.ClaimResult{}, &repository.ShortClaimError{Requested: total, Available: f.pool}
	}
	f.pool -= total
	f.claims = append(f.claims, p)
	moved := make(map[uuid.UUID]int)
	for _, a := range p.Assignments {
		moved[a.RecipientID] += a.Count
	}
	return repository.ClaimResult{Moved: moved, Total: total}, nil
}

func (f *fakeDistRepo) Reassign(_ context.Context, p repository.ReassignParams) (repository.Lead, error) {
	if f.reassignErr != nil {
		return repository.Lead{}, f.reassignErr
	}
	f.reassigns = append(f.reassigns, p)
	owner := p.NewOwnerID
	return repository.Lead{ID: p.LeadID, AssignedTo: &owner, Status: "Assigned", Version: 2}, nil
}

type trackingLocker struct {
	obtained []string
	held     bool
}

func (l *trackingLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.held {
		return nil, ErrLockHeld
	}
	l.obtained = append(l.obtained, key)
	return func() {}, nil
}

type testConfig struct{}

func (testConfig) GetRedisURL() string                   { return "" }
func (testConfig) GetRedisTLSInsecure() bool             { return false }
func (testConfig) GetAsynqQueueName() string             { return "default" }
func (testConfig) GetAsynqConcurrency() int              { return 1 }
func (testConfig) GetFollowUpDelay() time.Duration       { return time.Hour }
func (testConfig) GetDistributionLockTTL() time.Duration { return time.Second }

func newTestService(repo *fakeDistRepo, h *fakeHierarchy, locker Locker) *Service {
	log := logger.New("development")
	if locker == nil {
		locker = NoopLocker{}
	}
	return NewService(repo, h, locker, nil, events.NewInMemoryBus(log), testConfig{}, testConfig{}, log)
}

func manager(h *fakeHierarchy, role hierarchydomain.Role) uuid.UUID {
	id := uuid.New()
	h.users[id] = hierarchyrepo.User{ID: id, Name: "user", Role: role}
	return id
}

func subordinate(h *fakeHierarchy, managerID uuid.UUID) uuid.UUID {
	id := uuid.New()
	h.users[id] = hierarchyrepo.User{ID: id, Name: "report", Role: hierarchydomain.RoleEmployee}
	if h.downline[managerID] == nil {
		h.downline[managerID] = make(map[uuid.UUID]bool)
	}
	h.downline[managerID][id] = true
	return id
}

func newFakeHierarchy() *fakeHierarchy {
	return &fakeHierarchy{
		users:    make(map[uuid.UUID]hierarchyrepo.User),
		downline: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func TestDistributeSplitsPoolAcrossRecipients(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleBranchManager)
	e1 := subordinate(h, m)
	e2 := subordinate(h, m)
	repo := &fakeDistRepo{pool: 10}
	svc := newTestService(repo, h, nil)

	result, err := svc.Distribute(context.Background(), m, []Assignment{
		{RecipientID: e1, Count: 4},
		{RecipientID: e2, Count: 6},
	}, ScopeAll())
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	if result.TotalMoved != 10 {
		t.Errorf("TotalMoved = %d, want 10", result.TotalMoved)
	}
	if len(result.Recipients) != 2 {
		t.Fatalf("got %d recipient results, want 2", len(result.Recipients))
	}
	if result.Recipients[0].Count != 4 || result.Recipients[1].Count != 6 {
		t.Errorf("per-recipient counts = %d/%d, want 4/6", result.Recipients[0].Count, result.Recipients[1].Count)
	}
	if repo.pool != 0 {
		t.Errorf("pool after distribution = %d, want 0", repo.pool)
	}
}

func TestDistributeRejectsShortPool(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleBranchManager)
	e1 := subordinate(h, m)
	repo := &fakeDistRepo{pool: 3}
	svc := newTestService(repo, h, nil)

	_, err := svc.Distribute(context.Background(), m, []Assignment{{RecipientID: e1, Count: 7}}, ScopeAll())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("error kind = %v, want Conflict", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *apperr.Error")
	}
	details, ok := appErr.Details.(PoolExhaustedDetails)
	if !ok {
		t.Fatalf("details = %#v, want PoolExhaustedDetails", appErr.Details)
	}
	if details.Available != 3 || details.Requested != 7 {
		t.Errorf("details = %+v, want available 3 requested 7", details)
	}
	if repo.pool != 3 {
		t.Errorf("pool changed on rejected distribution: %d", repo.pool)
	}
}

func TestDistributePreconditionOrdering(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleBranchManager)
	e1 := subordinate(h, m)
	outsider := manager(h, hierarchydomain.RoleEmployee)
	repo := &fakeDistRepo{pool: 10}
	svc := newTestService(repo, h, nil)

	tests := []struct {
		name        string
		actor       uuid.UUID
		assignments []Assignment
		wantKind    apperr.Kind
	}{
		{"employee cannot distribute", outsider, []Assignment{{RecipientID: e1, Count: 1}}, apperr.KindForbidden},
		{"recipient outside downline", m, []Assignment{{RecipientID: outsider, Count: 1}}, apperr.KindForbidden},
		{"self as recipient", m, []Assignment{{RecipientID: m, Count: 1}}, apperr.KindForbidden},
		{"outside downline with bad count", m, []Assignment{{RecipientID: outsider, Count: -1}}, apperr.KindForbidden},
		{"negative count", m, []Assignment{{RecipientID: e1, Count: -1}}, apperr.KindValidation},
		{"all-zero counts", m, []Assignment{{RecipientID: e1, Count: 0}}, apperr.KindValidation},
		{"duplicate recipient", m, []Assignment{{RecipientID: e1, Count: 1}, {RecipientID: e1, Count: 2}}, apperr.KindValidation},
		{"no recipients", m, nil, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Distribute(context.Background(), tt.actor, tt.assignments, ScopeAll())
			if !apperr.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
	if len(repo.claims) != 0 {
		t.Errorf("rejected distributions reached the store: %d claims", len(repo.claims))
	}
}

func TestDistributeSerializedByLock(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleBranchManager)
	e1 := subordinate(h, m)
	repo := &fakeDistRepo{pool: 10}
	locker := &trackingLocker{held: true}
	svc := newTestService(repo, h, locker)

	_, err := svc.Distribute(context.Background(), m, []Assignment{{RecipientID: e1, Count: 2}}, ScopeAll())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want Conflict while lock is held", err)
	}

	locker.held = false
	if _, err := svc.Distribute(context.Background(), m, []Assignment{{RecipientID: e1, Count: 2}}, ScopeAll()); err != nil {
		t.Fatalf("Distribute after lock release returned error: %v", err)
	}
	if len(locker.obtained) != 1 {
		t.Fatalf("lock obtained %d times, want 1", len(locker.obtained))
	}
}

func TestAssignAllMovesWholePool(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleTeamLead)
	e1 := subordinate(h, m)
	repo := &fakeDistRepo{pool: 5}
	svc := newTestService(repo, h, nil)

	result, err := svc.AssignAll(context.Background(), m, e1, ScopeAll())
	if err != nil {
		t.Fatalf("AssignAll returned error: %v", err)
	}
	if result.TotalMoved != 5 {
		t.Errorf("TotalMoved = %d, want 5", result.TotalMoved)
	}
}

func TestAssignAllRejectsEmptyPool(t *testing.T) {
	h := newFakeHierarchy()
	m := manager(h, hierarchydomain.RoleTeamLead)
	e1 := subordinate(h, m)
	svc := newTestService(&fakeDistRepo{pool: 0}, h, nil)

	_, err := svc.AssignAll(context.Background(), m, e1, ScopeAll())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want Validation", err)
	}
}

func TestEqualSplit(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	split := EqualSplit(10, ids)
	for _, id := range ids {
		if split[id] != 3 {
			t.Errorf("share for %s = %d, want 3", id, split[id])
		}
	}
	total := 0
	for _, n := range split {
		total += n
	}
	if total != 9 {
		t.Errorf("distributed total = %d, want 9 with remainder 1 left in pool", total)
	}

	if got := EqualSplit(0, ids); len(got) != 0 {
		t.Errorf("EqualSplit(0, ...) = %v, want empty", got)
	}
	if got := EqualSplit(5, nil); len(got) != 0 {
		t.Errorf("EqualSplit with no recipients = %v, want empty", got)
	}
}

func TestReassignRequiresAdmin(t *testing.T) {
	h := newFakeHierarchy()
	bm := manager(h, hierarchydomain.RoleBranchManager)
	e1 := subordinate(h, bm)
	repo := &fakeDistRepo{}
	svc := newTestService(repo, h, nil)

	_, err := svc.Reassign(context.Background(), bm, uuid.New(), e1)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("error = %v, want Forbidden for non-admin", err)
	}
}

func TestReassignMovesLead(t *testing.T) {
	h := newFakeHierarchy()
	admin := manager(h, hierarchydomain.RoleAdmin)
	e1 := subordinate(h, admin)
	repo := &fakeDistRepo{}
	svc := newTestService(repo, h, nil)

	leadID := uuid.New()
	lead, err := svc.Reassign(context.Background(), admin, leadID, e1)
	if err != nil {
		t.Fatalf("Reassign returned error: %v", err)
	}
	if lead.AssignedTo == nil || *lead.AssignedTo != e1 {
		t.Errorf("lead assigned to %v, want %s", lead.AssignedTo, e1)
	}
	if len(repo.reassigns) != 1 {
		t.Fatalf("store saw %d reassigns, want 1", len(repo.reassigns))
	}
	if repo.reassigns[0].ActorRole != string(hierarchydomain.RoleAdmin) {
		t.Errorf("recorded role = %q, want Admin", repo.reassigns[0].ActorRole)
	}
}

func TestReassignUnknownLead(t *testing.T) {
	h := newFakeHierarchy()
	admin := manager(h, hierarchydomain.RoleAdmin)
	e1 := subordinate(h, admin)
	repo := &fakeDistRepo{reassignErr: repository.ErrNotFound}
	svc := newTestService(repo, h, nil)

	_, err := svc.Reassign(context.Background(), admin, uuid.New(), e1)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
}

func TestReassignToSelfRejected(t *testing.T) {
	h := newFakeHierarchy()
	admin := manager(h, hierarchydomain.RoleAdmin)
	svc := newTestService(&fakeDistRepo{}, h, nil)

	_, err := svc.Reassign(context.Background(), admin, uuid.New(), admin)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want Validation", err)
	}
}
