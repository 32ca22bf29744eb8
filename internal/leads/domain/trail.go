package domain

// TrailKind separates the two strands of a lead's audit trail.
type TrailKind string

const (
	// TrailCustody records every change of ownership.
	TrailCustody TrailKind = "custody"
	// TrailHistory records every lifecycle event.
	TrailHistory TrailKind = "history"
)

// Trail actions. Custody entries use ActionAssigned and ActionReassigned;
// history entries use the rest.
const (
	ActionAssigned   = "Assigned"
	ActionReassigned = "Reassigned"
	ActionCallLogged = "Call Logged"
	ActionArchived   = "Archived"
	ActionConverted  = "Converted"
	ActionRestored   = "Restored"
)
