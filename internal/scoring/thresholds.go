package scoring

// RiskBand is one row of the shared risk threshold table.
type RiskBand struct {
	Label string
	Min   float64 // inclusive
	Max   float64 // exclusive, except the last band
}

// RiskBands is the single source of truth for risk category labels. Every
// consumer that renders a label — scoring, reports, the HTTP API — must go
// through RiskLabel; duplicating these constants anywhere else is a bug.
var RiskBands = []RiskBand{
	{"minimal", 0, 20},
	{"low", 20, 40},
	{"moderate", 40, 60},
	{"elevated", 60, 75},
	{"high", 75, 90},
	{"critical", 90, 100},
}

// RiskLabel maps a 0-100 risk score onto its band label. Scores outside the
// range clamp to the nearest band.
func RiskLabel(score float64) string {
	if score < 0 {
		score = 0
	}
	last := len(RiskBands) - 1
	for i, b := range RiskBands {
		if i == last || score < b.Max {
			return b.Label
		}
	}
	return RiskBands[last].Label
}
