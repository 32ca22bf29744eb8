package domain

import "fmt"

// Status is the persisted lifecycle state of a lead.
type Status string

const (
	StatusNew       Status = "New"
	StatusAssigned  Status = "Assigned"
	StatusContacted Status = "Contacted"
	StatusConverted Status = "Converted"
	StatusArchived  Status = "Archived"
)

// Outcome is the result an agent records after a call attempt.
type Outcome string

const (
	OutcomeInterested  Outcome = "Connected - Interested"
	OutcomeBusy        Outcome = "Busy"
	OutcomeRinging     Outcome = "Ringing"
	OutcomeConverted   Outcome = "Converted"
	OutcomeDND         Outcome = "DND"
	OutcomeWrongNumber Outcome = "Wrong Number"
)

// ArchiveReason records why a lead left active circulation.
type ArchiveReason string

const (
	ReasonOverLimit   ArchiveReason = "Over Limit"
	ReasonDND         ArchiveReason = "DND"
	ReasonWrongNumber ArchiveReason = "Wrong Number"
)

// TouchLimit is the maximum number of call attempts a lead absorbs
// before it is forced out of circulation.
const TouchLimit = 8

var validOutcomes = map[Outcome]struct{}{
	OutcomeInterested:  {},
	OutcomeBusy:        {},
	OutcomeRinging:     {},
	OutcomeConverted:   {},
	OutcomeDND:         {},
	OutcomeWrongNumber: {},
}

// ValidOutcome reports whether o is one of the recordable call outcomes.
func ValidOutcome(o Outcome) bool {
	_, ok := validOutcomes[o]
	return ok
}

// Disposition is the lifecycle effect of a single logged call.
type Disposition struct {
	Status Status
	// Reason is set only when Status is StatusArchived.
	Reason ArchiveReason
}

// Archived reports whether the disposition removed the lead from circulation.
func (d Disposition) Archived() bool {
	return d.Status == StatusArchived
}

// Dispose computes the state a lead lands in after recording outcome as its
// touchCount-th call attempt (touchCount is the count including this call).
//
// DND and Wrong Number archive immediately under their own reason, even on
// the final permitted touch. Converted is terminal success and is never
// displaced by the touch ceiling. Every other outcome leaves the lead
// Contacted until the ceiling forces it out as Over Limit.
func Dispose(outcome Outcome, touchCount int) (Disposition, error) {
	if !ValidOutcome(outcome) {
		return Disposition{}, fmt.Errorf("unknown call outcome %q", outcome)
	}

	switch outcome {
	case OutcomeDND:
		return Disposition{Status: StatusArchived, Reason: ReasonDND}, nil
	case OutcomeWrongNumber:
		return Disposition{Status: StatusArchived, Reason: ReasonWrongNumber}, nil
	case OutcomeConverted:
		return Disposition{Status: StatusConverted}, nil
	}

	if touchCount >= TouchLimit {
		return Disposition{Status: StatusArchived, Reason: ReasonOverLimit}, nil
	}
	return Disposition{Status: StatusContacted}, nil
}
