package constants

import "testing"

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []JobStatus{JobStatusComplete, JobStatusFailed, JobStatusTimedOut, JobStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusQueued, JobStatusProcessing} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestParseDocumentKind(t *testing.T) {
	t.Parallel()

	if ParseDocumentKind("disclosure") != KindDisclosure {
		t.Fatal("lowercase disclosure not accepted")
	}
	if ParseDocumentKind(" INSPECTION ") != KindInspection {
		t.Fatal("padded inspection not accepted")
	}
	if ParseDocumentKind("lease") != "" {
		t.Fatal("unknown kind accepted")
	}
}

func TestSeverityRank(t *testing.T) {
	t.Parallel()

	order := []Severity{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should outrank %s", order[i], order[i-1])
		}
	}
}
