package transport

import (
	"time"

	"salesops_backend/internal/leads/audit"
	"salesops_backend/internal/leads/distribution"
	"salesops_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ---- requests ----

type CreateBatchRequest struct {
	FileLabel string            `json:"fileLabel" validate:"required,max=200"`
	Rows      []BatchRowRequest `json:"rows" validate:"required,min=1,dive"`
}

type BatchRowRequest struct {
	Phone string `json:"phone" validate:"required,max=20"`
	Name  string `json:"name" validate:"max=200"`
}

type DistributeRequest struct {
	BatchID     *uuid.UUID          `json:"batchId"`
	Assignments []AssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

type AssignmentRequest struct {
	RecipientID uuid.UUID `json:"recipientId" validate:"required"`
	Count       int       `json:"count" validate:"min=0"`
}

type AssignAllRequest struct {
	BatchID     *uuid.UUID `json:"batchId"`
	RecipientID uuid.UUID  `json:"recipientId" validate:"required"`
}

type LogCallRequest struct {
	LeadID          uuid.UUID `json:"leadId" validate:"required"`
	Outcome         string    `json:"outcome" validate:"required,max=50"`
	Notes           string    `json:"notes" validate:"max=2000"`
	DurationSeconds int       `json:"durationSeconds" validate:"min=0,max=86400"`
}

type ReassignRequest struct {
	NewOwnerID uuid.UUID `json:"newOwnerId" validate:"required"`
}

// ---- responses ----

type BatchResponse struct {
	ID         uuid.UUID `json:"id"`
	FileLabel  string    `json:"fileLabel"`
	UploadedBy uuid.UUID `json:"uploadedBy"`
	TotalCount int       `json:"totalCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToBatchResponse(b repository.Batch) BatchResponse {
	return BatchResponse{ID: b.ID, FileLabel: b.FileLabel, UploadedBy: b.UploadedBy, TotalCount: b.TotalCount, CreatedAt: b.CreatedAt}
}

func ToBatchResponses(items []repository.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(items))
	for _, b := range items {
		out = append(out, ToBatchResponse(b))
	}
	return out
}

type EligibleBatchResponse struct {
	BatchResponse
	OwnedNewCount int `json:"ownedNewCount"`
}

func ToEligibleBatchResponses(items []repository.EligibleBatch) []EligibleBatchResponse {
	out := make([]EligibleBatchResponse, 0, len(items))
	for _, eb := range items {
		out = append(out, EligibleBatchResponse{BatchResponse: ToBatchResponse(eb.Batch), OwnedNewCount: eb.OwnedNewCount})
	}
	return out
}

type LeadResponse struct {
	ID            uuid.UUID  `json:"id"`
	BatchID       uuid.UUID  `json:"batchId"`
	Phone         string     `json:"phone"`
	Name          string     `json:"name"`
	AssignedTo    *uuid.UUID `json:"assignedTo,omitempty"`
	Status        string     `json:"status"`
	TouchCount    int        `json:"touchCount"`
	ArchiveReason *string    `json:"archiveReason,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func ToLeadResponse(l repository.Lead) LeadResponse {
	var reason *string
	if l.ArchiveReason != nil {
		r := string(*l.ArchiveReason)
		reason = &r
	}
	return LeadResponse{
		ID:            l.ID,
		BatchID:       l.BatchID,
		Phone:         l.Phone,
		Name:          l.Name,
		AssignedTo:    l.AssignedTo,
		Status:        string(l.Status),
		TouchCount:    l.TouchCount,
		ArchiveReason: reason,
		Version:       l.Version,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func ToLeadResponses(items []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(items))
	for _, l := range items {
		out = append(out, ToLeadResponse(l))
	}
	return out
}

type DistributionResponse struct {
	TotalMoved int                       `json:"totalMoved"`
	Recipients []RecipientResultResponse `json:"recipients"`
}

type RecipientResultResponse struct {
	RecipientID uuid.UUID `json:"recipientId"`
	Count       int       `json:"count"`
}

func ToDistributionResponse(r distribution.Result) DistributionResponse {
	recipients := make([]RecipientResultResponse, 0, len(r.Recipients))
	for _, rr := range r.Recipients {
		recipients = append(recipients, RecipientResultResponse{RecipientID: rr.RecipientID, Count: rr.Count})
	}
	return DistributionResponse{TotalMoved: r.TotalMoved, Recipients: recipients}
}

type TrailEntryResponse struct {
	Seq          int64      `json:"seq"`
	Kind         string     `json:"kind"`
	Action       string     `json:"action"`
	Detail       string     `json:"detail,omitempty"`
	ActorID      *uuid.UUID `json:"actorId,omitempty"`
	AssignedFrom *uuid.UUID `json:"assignedFrom,omitempty"`
	AssignedTo   *uuid.UUID `json:"assignedTo,omitempty"`
	RoleAtTime   *string    `json:"roleAtTime,omitempty"`
	OccurredAt   time.Time  `json:"occurredAt"`
}

type TimelineResponse struct {
	Lead    LeadResponse         `json:"lead"`
	Entries []TrailEntryResponse `json:"entries"`
}

func ToTimelineResponse(t audit.Timeline) TimelineResponse {
	entries := make([]TrailEntryResponse, 0, len(t.Entries))
	for _, e := range t.Entries {
		resp := TrailEntryResponse{
			Seq:          e.Seq,
			Kind:         string(e.Kind),
			Action:       e.Action,
			Detail:       e.Detail,
			AssignedFrom: e.AssignedFrom,
			AssignedTo:   e.AssignedTo,
			RoleAtTime:   e.RoleAtTime,
			OccurredAt:   e.OccurredAt,
		}
		if e.ActorID != uuid.Nil {
			actor := e.ActorID
			resp.ActorID = &actor
		}
		entries = append(entries, resp)
	}
	return TimelineResponse{Lead: ToLeadResponse(t.Lead), Entries: entries}
}

type StatsResponse struct {
	New       int `json:"new"`
	Assigned  int `json:"assigned"`
	Contacted int `json:"contacted"`
	Converted int `json:"converted"`
	Archived  int `json:"archived"`
}

func ToStatsResponse(c repository.StatusCounts) StatsResponse {
	return StatsResponse{New: c.New, Assigned: c.Assigned, Contacted: c.Contacted, Converted: c.Converted, Archived: c.Archived}
}
