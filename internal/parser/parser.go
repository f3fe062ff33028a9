// Package parser turns raw extracted text into structured findings and
// disclosure answers.
package parser

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/verify"
)

// categoryKeywords drive the category scan. Matches are case-insensitive
// substring hits on a line.
var categoryKeywords = map[constants.Category][]string{
	constants.CategoryStructural:     {"structural", "framing", "load-bearing", "beam", "joist", "sagging"},
	constants.CategoryRoof:           {"roof", "shingle", "flashing", "gutter", "soffit", "fascia"},
	constants.CategoryFoundation:     {"foundation", "slab", "footing", "pier", "settlement", "crawl space"},
	constants.CategoryPlumbing:       {"plumbing", "pipe", "drain", "water heater", "sewer", "faucet", "supply line"},
	constants.CategoryElectrical:     {"electrical", "wiring", "panel", "breaker", "outlet", "gfci", "grounding"},
	constants.CategoryHVAC:           {"hvac", "furnace", "air condition", "a/c", "heat pump", "ductwork", "thermostat"},
	constants.CategoryWaterIntrusion: {"water intrusion", "water damage", "moisture", "leak", "mold", "mildew", "water stain"},
	constants.CategoryPest:           {"termite", "pest", "rodent", "carpenter ant", "wood-destroying", "infestation"},
	constants.CategoryDrainage:       {"drainage", "grading", "standing water", "downspout", "sump pump", "erosion"},
}

// severityKeywords are checked worst-first; the first hit wins.
var severityKeywords = []struct {
	severity constants.Severity
	words    []string
}{
	{constants.SeverityCritical, []string{"immediate", "safety hazard", "severe", "unsafe", "failure", "collapse", "hazardous"}},
	{constants.SeverityHigh, []string{"significant", "major", "extensive", "deteriorat", "damaged", "not functional", "end of life"}},
	{constants.SeverityModerate, []string{"repair", "replace", "leak", "crack", "worn", "corros", "aging", "moisture"}},
}

// TopKVerified is the number of costliest findings handed to the external
// verification capability. Verifying everything is disproportionately slow
// relative to the value of confirmations below the top few.
const TopKVerified = 2

type Parser struct {
	bench  *BenchmarkTable
	logger *slog.Logger
}

func NewParser(bench *BenchmarkTable, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{bench: bench, logger: logger}
}

// ParseFindings scans extracted text for issue mentions and produces costed
// findings. Page numbers come from the \f separators the extraction chain
// preserves.
func (p *Parser) ParseFindings(text string, kind constants.DocumentKind) []entity.Finding {
	var findings []entity.Finding
	seen := make(map[string]bool) // category+page dedupe

	for pageIdx, pageText := range strings.Split(text, "\f") {
		page := pageIdx + 1
		for _, line := range strings.Split(pageText, "\n") {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) < 12 {
				continue
			}
			lower := strings.ToLower(trimmed)
			for cat, words := range categoryKeywords {
				if !matchesAny(lower, words) {
					continue
				}
				key := string(cat) + "#" + strconv.Itoa(page)
				if seen[key] {
					continue
				}
				sev, flagged := detectSeverity(lower)
				if kind == constants.KindDisclosure && !flagged {
					// disclosure text mentions categories constantly; only
					// explicit problem language becomes a finding there
					continue
				}
				seen[key] = true
				low, high := p.bench.CostRange(cat, sev)
				conf := constants.ConfidenceEstimated
				if !flagged {
					conf = constants.ConfidenceInferred
				}
				findings = append(findings, entity.Finding{
					Category:    cat,
					Description: describe(cat, sev),
					Severity:    sev,
					CostLow:     low,
					CostHigh:    high,
					Page:        page,
					DocKind:     kind,
					Evidence:    clip(trimmed, 240),
					Confidence:  conf,
				})
			}
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Page != findings[j].Page {
			return findings[i].Page < findings[j].Page
		}
		return findings[i].Category < findings[j].Category
	})
	p.logger.Info("parser.findings", "kind", kind, "count", len(findings))
	return findings
}

// VerifyTopK sends the K costliest findings to the verification capability
// and promotes confirmed ones to verified confidence. Everything else keeps
// its default flag; verification errors degrade to the default, never fail
// the analysis.
func (p *Parser) VerifyTopK(ctx context.Context, findings []entity.Finding, k int, v verify.Verifier) {
	if v == nil || k <= 0 {
		return
	}
	idx := make([]int, len(findings))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return findings[idx[a]].CostMidpoint() > findings[idx[b]].CostMidpoint()
	})
	if k > len(idx) {
		k = len(idx)
	}
	for _, i := range idx[:k] {
		confirmed, err := v.VerifyFinding(ctx, findings[i])
		if err != nil {
			p.logger.Warn("parser.verify.skipped", "category", findings[i].Category, "error", err)
			continue
		}
		if confirmed {
			findings[i].Confidence = constants.ConfidenceVerified
		}
	}
}

func detectSeverity(lower string) (constants.Severity, bool) {
	for _, sk := range severityKeywords {
		if matchesAny(lower, sk.words) {
			return sk.severity, true
		}
	}
	return constants.SeverityLow, false
}

func matchesAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func describe(cat constants.Category, sev constants.Severity) string {
	return string(sev) + " severity " + strings.ReplaceAll(string(cat), "_", " ") + " issue"
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

