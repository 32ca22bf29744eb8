package batches

import (
	"context"
	"strings"
	"testing"

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
	downline map[uuid.UUID][]hierarchyrepo.User
}

func (f *fakeHierarchy) GetUser(_ context.Context, id uuid.UUID) (hierarchyrepo.User, error) {
	u, ok := f.users[id]
	if !ok {
		return hierarchyrepo.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeHierarchy) DownlineOf(_ context.Context, actorID uuid.UUID) ([]hierarchyrepo.User, error) {
	return f.downline[actorID], nil
}

type fakeBatchRepo struct {
	created  []repository.BatchRow
	batches  []repository.Batch
	eligible []repository.EligibleBatch
	pool     int
	counts   repository.StatusCounts
	statsFor []uuid.UUID
}

func (f *fakeBatchRepo) CreateBatch(_ context.Context, fileLabel string, uploaderID uuid.UUID, rows []repository.BatchRow) (repository.Batch, error) {
	f.created = rows
	return repository.Batch{ID: uuid.New(), FileLabel: fileLabel, UploadedBy: uploaderID, TotalCount: len(rows)}, nil
}

func (f *fakeBatchRepo) ListBatches(context.Context) ([]repository.Batch, error) {
	return f.batches, nil
}

func (f *fakeBatchRepo) EligibleBatches(context.Context, uuid.UUID) ([]repository.EligibleBatch, error) {
	return f.eligible, nil
}

func (f *fakeBatchRepo) PoolSize(context.Context, uuid.UUID, *uuid.UUID) (int, error) {
	return f.pool, nil
}

func (f *fakeBatchRepo) CountByStatus(_ context.Context, ownerIDs []uuid.UUID) (repository.StatusCounts, error) {
	f.statsFor = ownerIDs
	return f.counts, nil
}

func newBatchFixture(role hierarchydomain.Role) (*Service, *fakeBatchRepo, uuid.UUID) {
	uploader := uuid.New()
	h := &fakeHierarchy{users: map[uuid.UUID]hierarchyrepo.User{
		uploader: {ID: uploader, Name: "uploader", Role: role},
	}, downline: make(map[uuid.UUID][]hierarchyrepo.User)}
	repo := &fakeBatchRepo{}
	log := logger.New("development")
	return NewService(repo, h, events.NewInMemoryBus(log), log), repo, uploader
}

func TestCreateBatchNormalizesPhones(t *testing.T) {
	svc, repo, uploader := newBatchFixture(hierarchydomain.RoleLeadManager)

	batch, err := svc.CreateBatch(context.Background(), uploader, "august.xlsx", []Row{
		{Phone: "9876543210", Name: "A"},
		{Phone: "+91 98765 43211", Name: "B"},
	})
	if err != nil {
		t.Fatalf("CreateBatch returned error: %v", err)
	}
	if batch.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", batch.TotalCount)
	}
	for _, row := range repo.created {
		if !strings.HasPrefix(row.Phone, "+91") {
			t.Errorf("phone %q not normalized to E.164", row.Phone)
		}
	}
}

func TestCreateBatchRejectsDuplicatePhone(t *testing.T) {
	svc, _, uploader := newBatchFixture(hierarchydomain.RoleAdmin)

	_, err := svc.CreateBatch(context.Background(), uploader, "dup.xlsx", []Row{
		{Phone: "9876543210"},
		{Phone: "+91 9876543210"},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want Validation for duplicate phone", err)
	}
}

func TestCreateBatchRoleRestricted(t *testing.T) {
	for _, role := range []hierarchydomain.Role{
		hierarchydomain.RoleBranchManager,
		hierarchydomain.RoleTeamLead,
		hierarchydomain.RoleEmployee,
		hierarchydomain.RoleHR,
	} {
		svc, _, uploader := newBatchFixture(role)
		_, err := svc.CreateBatch(context.Background(), uploader, "x.xlsx", []Row{{Phone: "9876543210"}})
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("role %s: error = %v, want Forbidden", role, err)
		}
	}
}

func TestCreateBatchValidation(t *testing.T) {
	svc, _, uploader := newBatchFixture(hierarchydomain.RoleAdmin)

	if _, err := svc.CreateBatch(context.Background(), uploader, "", []Row{{Phone: "9876543210"}}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing label error = %v, want Validation", err)
	}
	if _, err := svc.CreateBatch(context.Background(), uploader, "x.xlsx", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("empty rows error = %v, want Validation", err)
	}
	if _, err := svc.CreateBatch(context.Background(), uploader, "x.xlsx", []Row{{Phone: "   "}}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("blank phone error = %v, want Validation", err)
	}
}

func TestStatsCoverActorAndDownline(t *testing.T) {
	svc, repo, actor := newBatchFixture(hierarchydomain.RoleBranchManager)
	h := svc.hierarchy.(*fakeHierarchy)
	r1, r2 := uuid.New(), uuid.New()
	h.downline[actor] = []hierarchyrepo.User{{ID: r1}, {ID: r2}}
	repo.counts = repository.StatusCounts{New: 5, Assigned: 3}

	counts, err := svc.Stats(context.Background(), actor)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if counts.New != 5 || counts.Assigned != 3 {
		t.Errorf("counts = %+v", counts)
	}
	if len(repo.statsFor) != 3 {
		t.Errorf("stats computed over %d owners, want 3 (actor + 2 reports)", len(repo.statsFor))
	}
}
