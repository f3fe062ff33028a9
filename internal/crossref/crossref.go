// Package crossref pairs seller disclosure answers against inspection
// findings and classifies each pair.
package crossref

import (
	"log/slog"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Check produces exactly one discrepancy record per disclosure answer —
// never silently dropped, whatever the classification.
//
// Classification:
//   - no finding in the category, or only trivial (low) severity -> match
//   - findings exist but the answer admitted something, or severity sits in
//     the ambiguous middle -> partial
//   - seller denied any issue while a moderate-or-higher finding exists -> fail
func (e *Engine) Check(answers []entity.DisclosureAnswer, findings []entity.Finding) []entity.Discrepancy {
	byCategory := make(map[constants.Category][]entity.Finding)
	for _, f := range findings {
		if f.DocKind == constants.KindInspection {
			byCategory[f.Category] = append(byCategory[f.Category], f)
		}
	}

	out := make([]entity.Discrepancy, 0, len(answers))
	for _, a := range answers {
		matched := byCategory[a.Category]
		d := entity.Discrepancy{
			Answer:   a,
			Findings: matched,
			Class:    classify(a, matched),
		}
		out = append(out, d)
		if d.Class == entity.DiscrepancyFail {
			e.logger.Warn("crossref.discrepancy",
				"category", a.Category,
				"answer", a.Answer,
				"findings", len(matched),
			)
		}
	}
	return out
}

func classify(a entity.DisclosureAnswer, findings []entity.Finding) entity.DiscrepancyClass {
	worst := constants.Severity("")
	for _, f := range findings {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}

	switch {
	case len(findings) == 0, worst.Rank() <= constants.SeverityLow.Rank():
		return entity.DiscrepancyMatch
	case a.Denies() && worst.Rank() >= constants.SeverityModerate.Rank():
		return entity.DiscrepancyFail
	default:
		// seller admitted something, or free-text answer against a real
		// finding: weak agreement at best
		return entity.DiscrepancyPartial
	}
}

// TransparencyScore normalizes (matches - fails) over the checked answers
// into 0-100. An empty checklist scores a neutral 100: nothing contradicted.
func TransparencyScore(discrepancies []entity.Discrepancy) float64 {
	if len(discrepancies) == 0 {
		return 100
	}
	matches, fails := 0, 0
	for _, d := range discrepancies {
		switch d.Class {
		case entity.DiscrepancyMatch:
			matches++
		case entity.DiscrepancyFail:
			fails++
		}
	}
	// map (matches-fails)/checked from [-1,1] onto [0,100]
	ratio := float64(matches-fails) / float64(len(discrepancies))
	score := (ratio + 1) / 2 * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
