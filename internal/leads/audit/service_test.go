package audit

import (
	"context"
	"reflect"
	"testing"
	"time"

	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/domain"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeHierarchy struct {
	users    map[uuid.UUID]hierarchyrepo.User
	downline map[uuid.UUID][]hierarchyrepo.User
}

func (f *fakeHierarchy) GetUser(_ context.Context, id uuid.UUID) (hierarchyrepo.User, error) {
	u, ok := f.users[id]
	if !ok {
		return hierarchyrepo.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeHierarchy) IsInDownline(_ context.Context, actorID, targetID uuid.UUID) (bool, error) {
	for _, u := range f.downline[actorID] {
		if u.ID == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHierarchy) DownlineOf(_ context.Context, actorID uuid.UUID) ([]hierarchyrepo.User, error) {
	return f.downline[actorID], nil
}

type fakeAuditRepo struct {
	leads    map[uuid.UUID]repository.Lead
	trail    map[uuid.UUID][]repository.TrailEntry
	archived []repository.Lead
}

func (f *fakeAuditRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	l, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return l, nil
}

func (f *fakeAuditRepo) ListTrail(_ context.Context, leadID uuid.UUID) ([]repository.TrailEntry, error) {
	return f.trail[leadID], nil
}

func (f *fakeAuditRepo) ListArchived(_ context.Context, ownerIDs []uuid.UUID, filter repository.ArchivedFilter) ([]repository.Lead, error) {
	owners := make(map[uuid.UUID]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	out := make([]repository.Lead, 0)
	for _, l := range f.archived {
		if l.AssignedTo == nil || !owners[*l.AssignedTo] {
			continue
		}
		if filter.Reason != "" && (l.ArchiveReason == nil || string(*l.ArchiveReason) != filter.Reason) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func TestTimelineOrderedAndIdempotent(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()
	leadID := uuid.New()
	created := time.Now().Add(-48 * time.Hour)

	h := &fakeHierarchy{users: map[uuid.UUID]hierarchyrepo.User{
		admin: {ID: admin, Role: hierarchydomain.RoleAdmin},
		owner: {ID: owner, Role: hierarchydomain.RoleEmployee},
	}}
	reason := domain.ReasonOverLimit
	repo := &fakeAuditRepo{
		leads: map[uuid.UUID]repository.Lead{leadID: {
			ID: leadID, BatchID: uuid.New(), AssignedTo: &owner,
			Status: domain.StatusArchived, ArchiveReason: &reason, CreatedAt: created,
		}},
		trail: map[uuid.UUID][]repository.TrailEntry{leadID: {
			{Seq: 1, LeadID: leadID, Kind: domain.TrailCustody, Action: domain.ActionAssigned, OccurredAt: created.Add(time.Hour)},
			{Seq: 2, LeadID: leadID, Kind: domain.TrailHistory, Action: domain.ActionCallLogged, OccurredAt: created.Add(2 * time.Hour)},
			{Seq: 3, LeadID: leadID, Kind: domain.TrailHistory, Action: domain.ActionArchived, OccurredAt: created.Add(3 * time.Hour)},
			{Seq: 4, LeadID: leadID, Kind: domain.TrailCustody, Action: domain.ActionReassigned, OccurredAt: created.Add(4 * time.Hour)},
		}},
	}
	svc := NewService(repo, h, logger.New("development"))

	first, err := svc.TimelineOf(context.Background(), admin, leadID)
	if err != nil {
		t.Fatalf("TimelineOf returned error: %v", err)
	}
	if len(first.Entries) != 5 {
		t.Fatalf("got %d entries, want 5 (creation + 4 trail)", len(first.Entries))
	}
	if first.Entries[0].Action != "Created" {
		t.Errorf("first entry action = %q, want Created", first.Entries[0].Action)
	}
	for i := 1; i < len(first.Entries); i++ {
		if first.Entries[i].OccurredAt.Before(first.Entries[i-1].OccurredAt) {
			t.Errorf("entries out of order at %d", i)
		}
	}
	// Archival and the later override must both appear, in that order.
	if first.Entries[3].Action != domain.ActionArchived || first.Entries[4].Action != domain.ActionReassigned {
		t.Errorf("tail actions = %q, %q; want Archived then Reassigned", first.Entries[3].Action, first.Entries[4].Action)
	}

	second, err := svc.TimelineOf(context.Background(), admin, leadID)
	if err != nil {
		t.Fatalf("second TimelineOf returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated reads returned different timelines")
	}
}

func TestTimelineVisibility(t *testing.T) {
	owner := uuid.New()
	boss := uuid.New()
	stranger := uuid.New()
	leadID := uuid.New()

	h := &fakeHierarchy{
		users: map[uuid.UUID]hierarchyrepo.User{
			owner:    {ID: owner, Role: hierarchydomain.RoleEmployee},
			boss:     {ID: boss, Role: hierarchydomain.RoleTeamLead},
			stranger: {ID: stranger, Role: hierarchydomain.RoleEmployee},
		},
		downline: map[uuid.UUID][]hierarchyrepo.User{
			boss: {{ID: owner}},
		},
	}
	repo := &fakeAuditRepo{leads: map[uuid.UUID]repository.Lead{leadID: {
		ID: leadID, BatchID: uuid.New(), AssignedTo: &owner, Status: domain.StatusAssigned,
	}}}
	svc := NewService(repo, h, logger.New("development"))

	if _, err := svc.TimelineOf(context.Background(), owner, leadID); err != nil {
		t.Errorf("owner blocked from own lead: %v", err)
	}
	if _, err := svc.TimelineOf(context.Background(), boss, leadID); err != nil {
		t.Errorf("manager blocked from downline lead: %v", err)
	}
	if _, err := svc.TimelineOf(context.Background(), stranger, leadID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("stranger error = %v, want Forbidden", err)
	}
}

func TestTimelineUnknownLead(t *testing.T) {
	caller := uuid.New()
	h := &fakeHierarchy{users: map[uuid.UUID]hierarchyrepo.User{
		caller: {ID: caller, Role: hierarchydomain.RoleAdmin},
	}}
	svc := NewService(&fakeAuditRepo{leads: map[uuid.UUID]repository.Lead{}}, h, logger.New("development"))

	if _, err := svc.TimelineOf(context.Background(), caller, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
}

func TestArchivedLeadsScopedToDownline(t *testing.T) {
	boss := uuid.New()
	report := uuid.New()
	outsider := uuid.New()
	dnd := domain.ReasonDND
	overLimit := domain.ReasonOverLimit

	h := &fakeHierarchy{
		users: map[uuid.UUID]hierarchyrepo.User{
			boss: {ID: boss, Role: hierarchydomain.RoleTeamLead},
		},
		downline: map[uuid.UUID][]hierarchyrepo.User{
			boss: {{ID: report}},
		},
	}
	repo := &fakeAuditRepo{archived: []repository.Lead{
		{ID: uuid.New(), AssignedTo: &report, Status: domain.StatusArchived, ArchiveReason: &dnd},
		{ID: uuid.New(), AssignedTo: &report, Status: domain.StatusArchived, ArchiveReason: &overLimit},
		{ID: uuid.New(), AssignedTo: &outsider, Status: domain.StatusArchived, ArchiveReason: &dnd},
	}}
	svc := NewService(repo, h, logger.New("development"))

	all, err := svc.ArchivedLeads(context.Background(), boss, repository.ArchivedFilter{})
	if err != nil {
		t.Fatalf("ArchivedLeads returned error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d leads, want 2 in scope", len(all))
	}

	filtered, err := svc.ArchivedLeads(context.Background(), boss, repository.ArchivedFilter{Reason: string(domain.ReasonDND)})
	if err != nil {
		t.Fatalf("filtered ArchivedLeads returned error: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("got %d DND leads, want 1", len(filtered))
	}

	if _, err := svc.ArchivedLeads(context.Background(), boss, repository.ArchivedFilter{Reason: "Bogus"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bogus filter error = %v, want Validation", err)
	}
}
