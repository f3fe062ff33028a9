package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

func testParser(t *testing.T) *Parser {
	t.Helper()
	bench, err := LoadBenchmarks("")
	if err != nil {
		t.Fatalf("LoadBenchmarks: %v", err)
	}
	return NewParser(bench, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseFindingsInspection(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	text := "Roof shingles are severely deteriorated and pose a safety hazard\n" +
		"Roof flashing shows severe wear along the south face\n" + // same category+page: deduped
		"\f" +
		"Water heater is aging and needs repair\n"

	findings := p.ParseFindings(text, constants.KindInspection)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings got %d: %+v", len(findings), findings)
	}

	roof := findings[0]
	if roof.Category != constants.CategoryRoof || roof.Page != 1 {
		t.Fatalf("unexpected first finding: %+v", roof)
	}
	if roof.Severity != constants.SeverityCritical {
		t.Fatalf("worst severity keyword must win, got %s", roof.Severity)
	}
	low, high := p.bench.CostRange(constants.CategoryRoof, constants.SeverityCritical)
	if roof.CostLow != low || roof.CostHigh != high {
		t.Fatalf("cost range not drawn from benchmarks: %+v", roof)
	}
	if roof.Confidence != constants.ConfidenceEstimated {
		t.Fatalf("expected estimated confidence, got %s", roof.Confidence)
	}
	if roof.Evidence == "" || roof.DocKind != constants.KindInspection {
		t.Fatalf("evidence/kind not recorded: %+v", roof)
	}

	plumbing := findings[1]
	if plumbing.Category != constants.CategoryPlumbing || plumbing.Page != 2 {
		t.Fatalf("unexpected second finding: %+v", plumbing)
	}
	if plumbing.Severity != constants.SeverityModerate {
		t.Fatalf("expected moderate severity, got %s", plumbing.Severity)
	}
}

func TestParseFindingsInspectionDefaultsLowSeverity(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	// category mention with no problem language: still a finding on an
	// inspection report, but low severity and inferred confidence
	findings := p.ParseFindings("Furnace and thermostat were examined in detail\n", constants.KindInspection)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding got %d", len(findings))
	}
	if findings[0].Severity != constants.SeverityLow {
		t.Fatalf("expected low severity default, got %s", findings[0].Severity)
	}
	if findings[0].Confidence != constants.ConfidenceInferred {
		t.Fatalf("expected inferred confidence, got %s", findings[0].Confidence)
	}
}

func TestParseFindingsDisclosureNeedsProblemLanguage(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	neutral := p.ParseFindings("The roof covering type is asphalt shingle\n", constants.KindDisclosure)
	if len(neutral) != 0 {
		t.Fatalf("neutral disclosure mention became a finding: %+v", neutral)
	}

	flagged := p.ParseFindings("Roof shingles were damaged in a 2021 hailstorm\n", constants.KindDisclosure)
	if len(flagged) != 1 {
		t.Fatalf("expected 1 finding got %d", len(flagged))
	}
	if flagged[0].Category != constants.CategoryRoof || flagged[0].Severity != constants.SeverityHigh {
		t.Fatalf("unexpected finding: %+v", flagged[0])
	}
}

func TestParseDisclosureAnswers(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	text := "Are you aware of any roof defects? [X] No\n" +
		"Are you aware of foundation settlement? minor cracks noted in 2019\n" +
		"Do you know of defects in the electrical panel? [x] yes\n" +
		"\f" +
		"Has there been any water intrusion in the basement? Yes\n" +
		"Are you aware of any roof repairs? Yes\n" // roof already answered on page 1

	answers := p.ParseDisclosureAnswers(text)
	if len(answers) != 4 {
		t.Fatalf("expected 4 answers got %d: %+v", len(answers), answers)
	}

	// checklist order, first answer per category wins
	wantCats := []constants.Category{
		constants.CategoryRoof,
		constants.CategoryFoundation,
		constants.CategoryElectrical,
		constants.CategoryWaterIntrusion,
	}
	for i, cat := range wantCats {
		if answers[i].Category != cat {
			t.Fatalf("answer %d: expected %s got %s", i, cat, answers[i].Category)
		}
	}

	if answers[0].Answer != "no" || !answers[0].Denies() {
		t.Fatalf("checkbox no not classified: %+v", answers[0])
	}
	if answers[1].Answer == "yes" || answers[1].Answer == "no" {
		t.Fatalf("free-text answer collapsed to %q", answers[1].Answer)
	}
	if answers[2].Answer != "yes" {
		t.Fatalf("checkbox yes not classified: %+v", answers[2])
	}
	if answers[3].Answer != "yes" || answers[3].Page != 2 {
		t.Fatalf("trailing yes not classified: %+v", answers[3])
	}
}

type fakeVerifier struct {
	confirm map[constants.Category]bool
	fail    map[constants.Category]bool
	calls   []constants.Category
}

func (f *fakeVerifier) VerifyFinding(_ context.Context, fd entity.Finding) (bool, error) {
	f.calls = append(f.calls, fd.Category)
	if f.fail[fd.Category] {
		return false, errors.New("verifier unavailable")
	}
	return f.confirm[fd.Category], nil
}

func TestVerifyTopK(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	findings := []entity.Finding{
		{Category: constants.CategoryPlumbing, CostLow: 100, CostHigh: 300, Confidence: constants.ConfidenceEstimated},
		{Category: constants.CategoryFoundation, CostLow: 30000, CostHigh: 90000, Confidence: constants.ConfidenceEstimated},
		{Category: constants.CategoryRoof, CostLow: 5000, CostHigh: 9000, Confidence: constants.ConfidenceEstimated},
	}
	v := &fakeVerifier{confirm: map[constants.Category]bool{
		constants.CategoryFoundation: true,
		constants.CategoryRoof:       false,
	}}

	p.VerifyTopK(context.Background(), findings, 2, v)

	if len(v.calls) != 2 {
		t.Fatalf("expected 2 verification calls got %v", v.calls)
	}
	if v.calls[0] != constants.CategoryFoundation || v.calls[1] != constants.CategoryRoof {
		t.Fatalf("not the costliest findings first: %v", v.calls)
	}
	if findings[1].Confidence != constants.ConfidenceVerified {
		t.Fatalf("confirmed finding not promoted: %+v", findings[1])
	}
	if findings[2].Confidence != constants.ConfidenceEstimated {
		t.Fatalf("unconfirmed finding changed: %+v", findings[2])
	}
	if findings[0].Confidence != constants.ConfidenceEstimated {
		t.Fatalf("finding outside top-K touched: %+v", findings[0])
	}
}

func TestVerifyTopKDegradesOnError(t *testing.T) {
	t.Parallel()
	p := testParser(t)

	findings := []entity.Finding{
		{Category: constants.CategoryFoundation, CostLow: 30000, CostHigh: 90000, Confidence: constants.ConfidenceEstimated},
	}
	v := &fakeVerifier{fail: map[constants.Category]bool{constants.CategoryFoundation: true}}

	p.VerifyTopK(context.Background(), findings, 1, v)
	if findings[0].Confidence != constants.ConfidenceEstimated {
		t.Fatalf("verifier error must not alter confidence: %+v", findings[0])
	}
}

func TestLoadBenchmarksDefaults(t *testing.T) {
	t.Parallel()

	bench, err := LoadBenchmarks("")
	if err != nil {
		t.Fatalf("LoadBenchmarks: %v", err)
	}
	for _, cat := range constants.Checklist {
		low, high := bench.CostRange(cat, constants.SeverityCritical)
		if low <= 0 || high <= low {
			t.Fatalf("category %s has no usable critical range: %v-%v", cat, low, high)
		}
	}

	// unknown categories fall back to the structural range
	ulow, uhigh := bench.CostRange(constants.Category("solarium"), constants.SeverityHigh)
	slow, shigh := bench.CostRange(constants.CategoryStructural, constants.SeverityHigh)
	if ulow != slow || uhigh != shigh {
		t.Fatalf("unknown category fallback broken: %v-%v vs %v-%v", ulow, uhigh, slow, shigh)
	}
}

func TestLoadBenchmarksRejectsBadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"categories": {}}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadBenchmarks(path); err == nil {
		t.Fatal("schema violation accepted")
	}
}
