// Package detect finds the "one category column plus several numeric metric
// columns" shape in a table.
package detect

import (
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/errs"
)

// MinMetrics is the number of metric columns a table needs to qualify.
const MinMetrics = 2

// ErrNoShape is returned when a table has no usable category/metric shape.
var ErrNoShape = errs.New(errs.ErrKindShapeMismatch,
	"no suitable multi-metric chart pattern detected; upload a sheet with one categorical and multiple numeric columns")

var categoryNames = map[string]bool{
	"segment":  true,
	"category": true,
	"index":    true,
	"id":       true,
}

// Roles is the detected category column and its metric columns, in table order.
type Roles struct {
	Category string   `json:"category"`
	Metrics  []string `json:"metrics"`
}

// Valid reports whether r carries a category and enough metrics.
func (r Roles) Valid() bool {
	return r.Category != "" && len(r.Metrics) >= MinMetrics
}

// Detect picks the category column and the numeric metric columns of t.
// On failure it returns zero Roles and ErrNoShape.
func Detect(t *analysis.Table) (Roles, error) {
	if t == nil || len(t.Columns) < 2 {
		return Roles{}, ErrNoShape
	}
	cat := categoryColumn(t)
	var metrics []string
	for _, c := range t.Columns {
		if c.Name != cat && c.Type == analysis.Numeric {
			metrics = append(metrics, c.Name)
		}
	}
	if len(metrics) < MinMetrics {
		return Roles{}, ErrNoShape
	}
	return Roles{Category: cat, Metrics: metrics}, nil
}

func categoryColumn(t *analysis.Table) string {
	first := t.Columns[0]
	name := strings.ToLower(first.Name)
	if first.Type == analysis.Text || strings.HasPrefix(name, "unnamed") || categoryNames[name] {
		return first.Name
	}
	for _, c := range t.Columns {
		if c.Type == analysis.Text {
			return c.Name
		}
	}
	return first.Name
}

// Override validates a user-chosen category and metric selection against t.
// Unknown columns and non-numeric metrics are dropped; the result must still
// have enough metrics.
func Override(t *analysis.Table, category string, metrics []string) (Roles, error) {
	if t.Column(category) == nil {
		return Roles{}, errs.Newf(errs.ErrKindInvalidInput, "unknown category column %q", category)
	}
	var kept []string
	seen := map[string]bool{}
	for _, m := range metrics {
		c := t.Column(m)
		if c == nil || c.Type != analysis.Numeric || m == category || seen[m] {
			continue
		}
		seen[m] = true
		kept = append(kept, m)
	}
	if len(kept) < MinMetrics {
		return Roles{}, ErrNoShape
	}
	return Roles{Category: category, Metrics: kept}, nil
}
