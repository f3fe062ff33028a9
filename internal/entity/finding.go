package entity

import "github.com/francis4531/Offerwise-sub000/constants"

// Finding is a structured, costed issue extracted from an inspection-style
// document.
type Finding struct {
	Category    constants.Category       `json:"category"`
	Description string                   `json:"description"`
	Severity    constants.Severity       `json:"severity"`
	CostLow     float64                  `json:"cost_low"`
	CostHigh    float64                  `json:"cost_high"`
	Page        int                      `json:"page"`
	DocKind     constants.DocumentKind   `json:"doc_kind"`
	Evidence    string                   `json:"evidence"`
	Confidence  constants.ConfidenceFlag `json:"confidence"`
}

// CostMidpoint is the single number used by the scoring engine.
func (f Finding) CostMidpoint() float64 {
	return (f.CostLow + f.CostHigh) / 2
}

// DisclosureAnswer is a seller's answer to one checklist question,
// extracted from disclosure text only.
type DisclosureAnswer struct {
	Category constants.Category `json:"category"`
	Answer   string             `json:"answer"` // "yes" | "no" | free text
	Page     int                `json:"page"`
}

// Denies reports whether the seller denied any issue in this category.
func (a DisclosureAnswer) Denies() bool {
	return a.Answer == "no"
}

// DiscrepancyClass classifies a disclosure answer against inspection findings.
type DiscrepancyClass string

const (
	DiscrepancyMatch   DiscrepancyClass = "match"
	DiscrepancyPartial DiscrepancyClass = "partial"
	DiscrepancyFail    DiscrepancyClass = "fail"
)

// Discrepancy pairs one disclosure answer with zero or more findings in the
// same category. Every checklist answer produces exactly one record.
type Discrepancy struct {
	Answer   DisclosureAnswer `json:"answer"`
	Findings []Finding        `json:"findings"`
	Class    DiscrepancyClass `json:"class"`
}
