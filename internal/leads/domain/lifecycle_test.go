package domain

import "testing"

func TestDispose(t *testing.T) {
	tests := []struct {
		name       string
		outcome    Outcome
		touchCount int
		wantStatus Status
		wantReason ArchiveReason
	}{
		{"interested stays contacted", OutcomeInterested, 1, StatusContacted, ""},
		{"busy stays contacted", OutcomeBusy, 3, StatusContacted, ""},
		{"ringing stays contacted", OutcomeRinging, 7, StatusContacted, ""},
		{"eighth touch archives over limit", OutcomeBusy, 8, StatusArchived, ReasonOverLimit},
		{"beyond ceiling archives over limit", OutcomeRinging, 9, StatusArchived, ReasonOverLimit},
		{"dnd archives immediately", OutcomeDND, 1, StatusArchived, ReasonDND},
		{"dnd reason wins over ceiling", OutcomeDND, 8, StatusArchived, ReasonDND},
		{"wrong number archives immediately", OutcomeWrongNumber, 2, StatusArchived, ReasonWrongNumber},
		{"wrong number reason wins over ceiling", OutcomeWrongNumber, 8, StatusArchived, ReasonWrongNumber},
		{"converted is terminal success", OutcomeConverted, 4, StatusConverted, ""},
		{"converted wins over ceiling", OutcomeConverted, 8, StatusConverted, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dispose(tt.outcome, tt.touchCount)
			if err != nil {
				t.Fatalf("Dispose(%q, %d) returned error: %v", tt.outcome, tt.touchCount, err)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", d.Status, tt.wantStatus)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if got, want := d.Archived(), tt.wantStatus == StatusArchived; got != want {
				t.Errorf("Archived() = %v, want %v", got, want)
			}
		})
	}
}

func TestDisposeRejectsUnknownOutcome(t *testing.T) {
	if _, err := Dispose(Outcome("Voicemail"), 1); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
}

func TestValidOutcome(t *testing.T) {
	for _, o := range []Outcome{OutcomeInterested, OutcomeBusy, OutcomeRinging, OutcomeConverted, OutcomeDND, OutcomeWrongNumber} {
		if !ValidOutcome(o) {
			t.Errorf("ValidOutcome(%q) = false, want true", o)
		}
	}
	if ValidOutcome("Callback") {
		t.Error(`ValidOutcome("Callback") = true, want false`)
	}
}
