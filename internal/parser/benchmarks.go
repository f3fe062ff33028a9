package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
)

//go:embed benchmarks.json
var defaultBenchmarks []byte

// benchmarksSchema is validated against every loaded table so a bad override
// file fails at startup, not mid-analysis.
const benchmarksSchema = `{
  "type": "object",
  "required": ["categories"],
  "properties": {
    "categories": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["low", "moderate", "high", "critical"],
        "additionalProperties": {
          "type": "array",
          "items": {"type": "number", "minimum": 0},
          "minItems": 2,
          "maxItems": 2
        }
      }
    }
  }
}`

// BenchmarkTable maps category and severity to a repair cost range. This is
// the lookup the document parser draws estimates from.
type BenchmarkTable struct {
	Categories map[string]map[string][2]float64 `json:"categories"`
}

// CostRange returns the (low, high) benchmark for a category and severity.
// Unknown categories fall back to the structural range, the broadest one.
func (t *BenchmarkTable) CostRange(cat constants.Category, sev constants.Severity) (float64, float64) {
	ranges, ok := t.Categories[string(cat)]
	if !ok {
		ranges = t.Categories[string(constants.CategoryStructural)]
	}
	r, ok := ranges[string(sev)]
	if !ok {
		return 0, 0
	}
	return r[0], r[1]
}

// LoadBenchmarks reads a benchmark table from path, or the embedded defaults
// when path is empty. The table is schema-validated before use.
func LoadBenchmarks(path string) (*BenchmarkTable, error) {
	raw := defaultBenchmarks
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, common.WrapError(err, "read benchmarks")
		}
		raw = b
	}

	if err := validateBenchmarks(raw); err != nil {
		return nil, err
	}

	var t BenchmarkTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, common.WrapError(err, "decode benchmarks")
	}
	return &t, nil
}

func validateBenchmarks(raw []byte) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("benchmarks.schema.json", strings.NewReader(benchmarksSchema)); err != nil {
		return common.WrapError(err, "add benchmarks schema")
	}
	sch, err := c.Compile("benchmarks.schema.json")
	if err != nil {
		return common.WrapError(err, "compile benchmarks schema")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return common.WrapError(err, "parse benchmarks json")
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("benchmarks table invalid: %w", err)
	}
	return nil
}
