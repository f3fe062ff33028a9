// Package scoring aggregates findings and discrepancies into the composite
// property-quality and risk scores.
package scoring

import (
	"log/slog"
	"math"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// Deduction weights. Both scores are computed from the same evidence set in
// one pass; there is deliberately no second tuning knob anywhere else.
const (
	costRiskCap     = 40.0   // max risk points from repair cost
	costRiskDivisor = 2500.0 // dollars per risk point
	criticalRiskCap = 40.0   // max risk points from critical findings
	criticalRiskPer = 20.0   // risk points per critical finding
	highRiskCap     = 10.0   // max risk points from high findings
	highRiskPer     = 5.0    // risk points per high finding
	transRiskCap    = 20.0   // max risk points from transparency deficit

	costQualityCap     = 50.0
	costQualityDivisor = 4000.0
	criticalQualityPer = 10.0
	criticalQualityCap = 30.0
	transQualityCap    = 20.0
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

// Compute derives both composite scores from one evidence set. The returned
// RiskScore is immutable by convention: it is built once per analysis and
// never patched afterwards.
func (e *Engine) Compute(findings []entity.Finding, transparency float64) entity.RiskScore {
	var totalCost float64
	criticals, highs := 0, 0
	for _, f := range findings {
		totalCost += f.CostMidpoint()
		switch f.Severity {
		case constants.SeverityCritical:
			criticals++
		case constants.SeverityHigh:
			highs++
		}
	}
	transDeficit := clamp(100-transparency, 0, 100)

	risk := clamp(
		math.Min(costRiskCap, totalCost/costRiskDivisor)+
			math.Min(criticalRiskCap, float64(criticals)*criticalRiskPer)+
			math.Min(highRiskCap, float64(highs)*highRiskPer)+
			math.Min(transRiskCap, transDeficit*transRiskCap/100),
		0, 100)

	quality := clamp(
		100-
			math.Min(costQualityCap, totalCost/costQualityDivisor)-
			math.Min(criticalQualityCap, float64(criticals)*criticalQualityPer)-
			math.Min(transQualityCap, transDeficit*transQualityCap/100),
		0, 100)

	score := entity.RiskScore{
		Quality:      math.Round(quality*10) / 10,
		Risk:         math.Round(risk*10) / 10,
		RiskLabel:    RiskLabel(risk),
		Transparency: math.Round(transparency*10) / 10,
		TotalCost:    math.Round(totalCost),
		Criticals:    criticals,
	}
	e.logger.Info("scoring.computed",
		"quality", score.Quality,
		"risk", score.Risk,
		"label", score.RiskLabel,
		"total_cost", score.TotalCost,
		"criticals", criticals,
	)
	return score
}

// OfferAdjustment suggests a purchase-offer reduction in dollars: the full
// estimated repair bill plus a contingency that grows with the risk score.
func OfferAdjustment(score entity.RiskScore) float64 {
	contingency := 1 + score.Risk/100*0.25
	return math.Round(score.TotalCost * contingency)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
