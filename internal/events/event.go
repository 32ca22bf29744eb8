// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the base interface all domain events must implement.
type Event interface {
	// EventName returns a unique identifier for the event type.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent creates a new base event with the current timestamp.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is the interface for publishing and subscribing to domain events.
type Bus interface {
	// Publish sends an event to all registered handlers for that event type.
	// Handlers are executed asynchronously.
	Publish(ctx context.Context, event Event)

	// PublishSync sends an event and waits for all handlers to complete.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for a specific event type.
	// The eventName should match the value returned by Event.EventName().
	Subscribe(eventName string, handler Handler)
}

// =============================================================================
// Domain events
// =============================================================================

// BatchCreated is published when a lead batch has been ingested.
type BatchCreated struct {
	BaseEvent
	BatchID    uuid.UUID
	UploaderID uuid.UUID
	LeadCount  int
}

func (e BatchCreated) EventName() string { return "leads.batch.created" }

// LeadsDistributed is published after a distribution transaction commits.
type LeadsDistributed struct {
	BaseEvent
	ActorID    uuid.UUID
	Scope      string
	Recipients map[uuid.UUID]int
}

func (e LeadsDistributed) EventName() string { return "leads.distributed" }

// LeadArchived is published when a lead reaches the Archived state.
type LeadArchived struct {
	BaseEvent
	LeadID  uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

func (e LeadArchived) EventName() string { return "leads.lead.archived" }

// LeadReassigned is published when an admin override moves a lead.
type LeadReassigned struct {
	BaseEvent
	LeadID     uuid.UUID
	AdminID    uuid.UUID
	NewOwnerID uuid.UUID
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }

// FollowUpDue is published by the worker when a follow-up reminder fires.
type FollowUpDue struct {
	BaseEvent
	RecipientID uuid.UUID
	LeadCount   int
}

func (e FollowUpDue) EventName() string { return "leads.followup.due" }
