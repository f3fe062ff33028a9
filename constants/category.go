package constants

// Category is a property-issue category shared by findings, disclosure
// answers and discrepancies.
type Category string

const (
	CategoryStructural     Category = "structural"
	CategoryRoof           Category = "roof"
	CategoryFoundation     Category = "foundation"
	CategoryPlumbing       Category = "plumbing"
	CategoryElectrical     Category = "electrical"
	CategoryHVAC           Category = "hvac"
	CategoryWaterIntrusion Category = "water_intrusion"
	CategoryPest           Category = "pest"
	CategoryDrainage       Category = "drainage"
)

// Checklist is the fixed set of categories the cross-reference engine checks
// disclosure answers against. Every checklist answer yields exactly one
// discrepancy record.
var Checklist = []Category{
	CategoryRoof,
	CategoryFoundation,
	CategoryStructural,
	CategoryPlumbing,
	CategoryElectrical,
	CategoryHVAC,
	CategoryWaterIntrusion,
	CategoryPest,
	CategoryDrainage,
}

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparisons; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ConfidenceFlag tracks how far a finding's cost estimate has been checked.
type ConfidenceFlag string

const (
	ConfidenceVerified  ConfidenceFlag = "verified"
	ConfidenceEstimated ConfidenceFlag = "estimated"
	ConfidenceInferred  ConfidenceFlag = "inferred"
)
