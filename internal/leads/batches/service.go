package batches

import (
	"context"
	"errors"
	"fmt"

	"salesops_backend/internal/events"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	opCreateBatch     = "leads.batches.service.create_batch"
	opListBatches     = "leads.batches.service.list_batches"
	opEligibleBatches = "leads.batches.service.eligible_batches"
	opPoolSize        = "leads.batches.service.pool_size"
	opStats           = "leads.batches.service.stats"
)

// Repository is the slice of the lead store this service needs.
type Repository interface {
	CreateBatch(ctx context.Context, fileLabel string, uploaderID uuid.UUID, rows []repository.BatchRow) (repository.Batch, error)
	ListBatches(ctx context.Context) ([]repository.Batch, error)
	EligibleBatches(ctx context.Context, ownerID uuid.UUID) ([]repository.EligibleBatch, error)
	PoolSize(ctx context.Context, ownerID uuid.UUID, batchID *uuid.UUID) (int, error)
	CountByStatus(ctx context.Context, ownerIDs []uuid.UUID) (repository.StatusCounts, error)
}

// Hierarchy resolves actors and their reporting scope.
type Hierarchy interface {
	GetUser(ctx context.Context, id uuid.UUID) (hierarchyrepo.User, error)
	DownlineOf(ctx context.Context, actorID uuid.UUID) ([]hierarchyrepo.User, error)
}

type Service struct {
	repo      Repository
	hierarchy Hierarchy
	bus       events.Bus
	log       *logger.Logger
}

func NewService(repo Repository, hierarchy Hierarchy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, hierarchy: hierarchy, bus: bus, log: log}
}

// Row is one parsed line of an uploaded lead file.
type Row struct {
	Phone string
	Name  string
}

// CreateBatch ingests a parsed lead file: every row becomes one New lead
// owned by the uploader. Phone numbers are normalized to E.164 and must be
// unique within the batch; cross-batch duplicates are accepted.
func (s *Service) CreateBatch(ctx context.Context, uploaderID uuid.UUID, fileLabel string, rows []Row) (repository.Batch, error) {
	uploader, err := s.hierarchy.GetUser(ctx, uploaderID)
	if err != nil {
		return repository.Batch{}, err
	}
	if !uploader.Role.CanUploadBatches() {
		return repository.Batch{}, apperr.Forbidden("role is not permitted to upload lead batches").WithOp(opCreateBatch)
	}
	if fileLabel == "" {
		return repository.Batch{}, apperr.Validation("fileLabel is required").WithOp(opCreateBatch)
	}
	if len(rows) == 0 {
		return repository.Batch{}, apperr.Validation("batch contains no rows").WithOp(opCreateBatch)
	}

	seen := make(map[string]struct{}, len(rows))
	normalized := make([]repository.BatchRow, 0, len(rows))
	for i, row := range rows {
		e164 := phone.NormalizeE164(row.Phone)
		if e164 == "" {
			return repository.Batch{}, apperr.Validation(
				fmt.Sprintf("row %d: phone number is required", i+1)).WithOp(opCreateBatch)
		}
		if _, dup := seen[e164]; dup {
			return repository.Batch{}, apperr.Validation(
				fmt.Sprintf("row %d: phone %s appears more than once in this batch", i+1, e164)).WithOp(opCreateBatch)
		}
		seen[e164] = struct{}{}
		normalized = append(normalized, repository.BatchRow{Phone: e164, Name: row.Name})
	}

	batch, err := s.repo.CreateBatch(ctx, fileLabel, uploaderID, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return repository.Batch{}, apperr.Validation("batch contains a duplicate phone number").WithOp(opCreateBatch)
		}
		return repository.Batch{}, apperr.Wrap(apperr.KindInternal, "failed to ingest lead batch", err).WithOp(opCreateBatch)
	}

	s.log.Info("lead batch ingested", "batchId", batch.ID, "uploaderId", uploaderID, "leadCount", batch.TotalCount)
	s.bus.Publish(ctx, events.BatchCreated{
		BaseEvent:  events.NewBaseEvent(),
		BatchID:    batch.ID,
		UploaderID: uploaderID,
		LeadCount:  batch.TotalCount,
	})
	return batch, nil
}

// ListBatches returns the upload history, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]repository.Batch, error) {
	items, err := s.repo.ListBatches(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list batches", err).WithOp(opListBatches)
	}
	return items, nil
}

// EligibleBatches lists the batches in which the actor still owns
// undistributed leads, newest first.
func (s *Service) EligibleBatches(ctx context.Context, actorID uuid.UUID) ([]repository.EligibleBatch, error) {
	items, err := s.repo.EligibleBatches(ctx, actorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list eligible batches", err).WithOp(opEligibleBatches)
	}
	return items, nil
}

// PoolSize reports how many New leads the actor owns, across all batches when
// batchID is nil.
func (s *Service) PoolSize(ctx context.Context, actorID uuid.UUID, batchID *uuid.UUID) (int, error) {
	n, err := s.repo.PoolSize(ctx, actorID, batchID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count pool", err).WithOp(opPoolSize)
	}
	return n, nil
}

// Stats aggregates lead status counts across the actor and their downline.
func (s *Service) Stats(ctx context.Context, actorID uuid.UUID) (repository.StatusCounts, error) {
	downline, err := s.hierarchy.DownlineOf(ctx, actorID)
	if err != nil {
		return repository.StatusCounts{}, err
	}
	owners := make([]uuid.UUID, 0, len(downline)+1)
	owners = append(owners, actorID)
	for _, u := range downline {
		owners = append(owners, u.ID)
	}
	counts, err := s.repo.CountByStatus(ctx, owners)
	if err != nil {
		return repository.StatusCounts{}, apperr.Wrap(apperr.KindInternal, "failed to aggregate lead stats", err).WithOp(opStats)
	}
	return counts, nil
}
