package entity

import (
	"time"

	"github.com/google/uuid"
)

// RiskScore is the composite scoring output. Immutable after creation.
type RiskScore struct {
	Quality      float64 `json:"quality"`      // 0-100, higher is better
	Risk         float64 `json:"risk"`         // 0-100, higher is worse
	RiskLabel    string  `json:"risk_label"`   // from the shared threshold table
	Transparency float64 `json:"transparency"` // cross-reference sub-score, 0-100
	TotalCost    float64 `json:"total_cost"`   // sum of finding cost midpoints
	Criticals    int     `json:"criticals"`    // count of critical findings
}

// AnalysisResult is the final output of a completed analysis unit: the
// structured evidence from both documents plus the composite scores.
type AnalysisResult struct {
	AnalysisID    uuid.UUID          `json:"analysis_id"`
	Findings      []Finding          `json:"findings"`
	Answers       []DisclosureAnswer `json:"answers"`
	Discrepancies []Discrepancy      `json:"discrepancies"`
	Score         RiskScore          `json:"score"`
	OfferAdjust   float64            `json:"offer_adjust"` // suggested offer reduction, dollars
	CreatedAt     time.Time          `json:"created_at"`
}
