package handler

import (
	"net/http"

	"salesops_backend/internal/leads/audit"
	"salesops_backend/internal/leads/batches"
	"salesops_backend/internal/leads/distribution"
	"salesops_backend/internal/leads/domain"
	"salesops_backend/internal/leads/lifecycle"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/internal/leads/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	batches      *batches.Service
	distribution *distribution.Service
	lifecycle    *lifecycle.Service
	audit        *audit.Service
	val          *validator.Validator
}

func New(b *batches.Service, d *distribution.Service, l *lifecycle.Service, a *audit.Service, val *validator.Validator) *Handler {
	return &Handler{batches: b, distribution: d, lifecycle: l, audit: a, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/batches", h.CreateBatch)
	rg.GET("/batches", h.ListBatches)
	rg.GET("/batches/eligible", h.EligibleBatches)
	rg.GET("/pool", h.PoolSize)
	rg.GET("/stats", h.Stats)
	rg.GET("/mine", h.MyLeads)
	rg.GET("/archived", h.ArchivedLeads)
	rg.POST("/distribute", h.Distribute)
	rg.POST("/assign-all", h.AssignAll)
	rg.POST("/log-call", h.LogCall)
	rg.POST("/:id/reassign", h.Reassign)
	rg.GET("/:id/timeline", h.Timeline)
}

// CreateBatch ingests a parsed lead file as a new batch.
func (h *Handler) CreateBatch(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.CreateBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rows := make([]batches.Row, 0, len(req.Rows))
	for _, r := range req.Rows {
		rows = append(rows, batches.Row{Phone: r.Phone, Name: r.Name})
	}
	batch, err := h.batches.CreateBatch(c.Request.Context(), id.UserID(), req.FileLabel, rows)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToBatchResponse(batch))
}

func (h *Handler) ListBatches(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}
	items, err := h.batches.ListBatches(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponses(items))
}

// EligibleBatches lists batches in which the caller still owns New leads.
func (h *Handler) EligibleBatches(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	items, err := h.batches.EligibleBatches(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEligibleBatchResponses(items))
}

// PoolSize reports the caller's undistributed lead count, optionally scoped
// to one batch via ?batchId=.
func (h *Handler) PoolSize(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	batchID, ok := optionalBatchID(c)
	if !ok {
		return
	}
	n, err := h.batches.PoolSize(c.Request.Context(), id.UserID(), batchID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"poolSize": n})
}

func (h *Handler) Stats(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	counts, err := h.batches.Stats(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToStatsResponse(counts))
}

func (h *Handler) MyLeads(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	items, err := h.lifecycle.MyLeads(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponses(items))
}

// ArchivedLeads returns archived leads in the caller's scope, narrowed via
// ?reason=, ?batchId= and ?q=.
func (h *Handler) ArchivedLeads(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	batchID, ok := optionalBatchID(c)
	if !ok {
		return
	}
	filter := repository.ArchivedFilter{
		Reason:  c.Query("reason"),
		BatchID: batchID,
		Search:  c.Query("q"),
	}
	items, err := h.audit.ArchivedLeads(c.Request.Context(), id.UserID(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponses(items))
}

// Distribute splits leads from the caller's pool across recipients.
func (h *Handler) Distribute(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.DistributeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assignments := make([]distribution.Assignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments = append(assignments, distribution.Assignment{RecipientID: a.RecipientID, Count: a.Count})
	}
	result, err := h.distribution.Distribute(c.Request.Context(), id.UserID(), assignments, scopeFrom(req.BatchID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDistributionResponse(result))
}

// AssignAll hands the caller's entire pool in scope to one recipient.
func (h *Handler) AssignAll(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.AssignAllRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.distribution.AssignAll(c.Request.Context(), id.UserID(), req.RecipientID, scopeFrom(req.BatchID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDistributionResponse(result))
}

// LogCall records one call attempt against a lead.
func (h *Handler) LogCall(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.LogCallRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.lifecycle.LogCall(c.Request.Context(), id.UserID(), lifecycle.CallLog{
		LeadID:          req.LeadID,
		Outcome:         domain.Outcome(req.Outcome),
		Notes:           req.Notes,
		DurationSeconds: req.DurationSeconds,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Reassign is the administrative override moving one lead to a new owner.
func (h *Handler) Reassign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req transport.ReassignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.distribution.Reassign(c.Request.Context(), id.UserID(), leadID, req.NewOwnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Timeline reconstructs a lead's creation, custody and history events.
func (h *Handler) Timeline(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	timeline, err := h.audit.TimelineOf(c.Request.Context(), id.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTimelineResponse(timeline))
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return false
	}
	return true
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}

func optionalBatchID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("batchId")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid batchId", nil)
		return nil, false
	}
	return &id, true
}

func scopeFrom(batchID *uuid.UUID) distribution.Scope {
	if batchID == nil {
		return distribution.ScopeAll()
	}
	return distribution.ScopeBatch(*batchID)
}
