// Package pipeline runs one dashboard pass over a workbook sheet: load the
// table, detect roles, pick a chart and generate insights. Every call is a full
// recomputation; user edits arrive through the Request and never feed back
// into detection.
package pipeline

import (
	"context"
	"io"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/detect"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/KaramelBytes/excelinsight/internal/insight"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/dustin/go-humanize"
)

// DefaultPreviewRows is how many rows the overview shows.
const DefaultPreviewRows = 10

// RuleEdited tags insight text supplied by the user.
const RuleEdited insight.Rule = "edited"

// Request is the caller's current selection.
type Request struct {
	Sheet string
	// Kind is a chart kind name; empty uses the suggested kind.
	Kind string
	// Category and Metrics override detection when Category is set.
	Category       string
	Metrics        []string
	EditedInsights []string
	PreviewRows    int
}

// Overview is the raw preview shown even when no chart shape is found.
type Overview struct {
	Sheet       string     `json:"sheet"`
	Rows        int        `json:"rows"`
	Columns     int        `json:"columns"`
	MemoryBytes int64      `json:"memory_bytes"`
	Memory      string     `json:"memory"`
	Header      []string   `json:"header"`
	Preview     [][]string `json:"preview"`
}

// ChartInfo is the serialisable form of the selected chart.
type ChartInfo struct {
	Kind        chart.Kind `json:"kind"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Metrics     []string   `json:"metrics"`
	Description string     `json:"description"`
	FileName    string     `json:"file_name"`
}

// View is everything one pass produced.
type View struct {
	Overview  Overview          `json:"overview"`
	Roles     *detect.Roles     `json:"roles,omitempty"`
	Chart     *ChartInfo        `json:"chart,omitempty"`
	Suggested *chart.Kind       `json:"suggested,omitempty"`
	Insights  []insight.Insight `json:"insights"`
	Warnings  []string          `json:"warnings,omitempty"`

	table *analysis.Table
	spec  *chart.Spec
}

// Run executes one pass. Input problems are returned as errors; a missing
// category/metric shape is reported as a warning on an otherwise usable view.
func Run(ctx context.Context, wb *parser.Workbook, req Request) (*View, error) {
	if wb == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "no workbook loaded")
	}
	t, err := wb.Table(req.Sheet)
	if err != nil {
		return nil, err
	}
	return Analyze(ctx, t, req)
}

// Analyze runs the detection, chart and insight stages on an already loaded table.
func Analyze(ctx context.Context, t *analysis.Table, req Request) (*View, error) {
	log := logger.FromContext(ctx)
	n := req.PreviewRows
	if n <= 0 {
		n = DefaultPreviewRows
	}
	v := &View{
		Overview: Overview{
			Sheet:       t.Name,
			Rows:        t.Len(),
			Columns:     len(t.Columns),
			MemoryBytes: t.MemoryUsage(),
			Memory:      humanize.Bytes(uint64(t.MemoryUsage())),
			Header:      t.ColumnNames(),
			Preview:     t.Head(n),
		},
		Insights: []insight.Insight{},
		table:    t,
	}

	var (
		roles detect.Roles
		err   error
	)
	if req.Category != "" {
		metrics := req.Metrics
		if len(metrics) == 0 {
			metrics = t.ColumnNames()
		}
		roles, err = detect.Override(t, req.Category, metrics)
	} else {
		roles, err = detect.Detect(t)
	}
	if err != nil {
		if errs.IsShapeMismatch(err) {
			log.Warnf("sheet %q: %v", t.Name, err)
			v.Warnings = append(v.Warnings, err.Error())
			return v, nil
		}
		return nil, err
	}
	v.Roles = &roles

	suggested := chart.Suggest(t, roles)
	v.Suggested = &suggested
	kind := suggested
	if req.Kind != "" {
		if kind, err = chart.ParseKind(req.Kind); err != nil {
			return nil, err
		}
	}
	spec, err := chart.FromRoles(roles, kind)
	if err != nil {
		return nil, err
	}
	v.spec = &spec
	v.Chart = &ChartInfo{
		Kind:        kind,
		Title:       spec.Title(),
		Category:    spec.Category(),
		Metrics:     spec.Metrics(),
		Description: chart.Describe(t, spec),
		FileName:    spec.FileName(),
	}

	v.Insights = insight.Generate(t, roles)
	if edited := cleanEdits(req.EditedInsights); len(edited) > 0 {
		v.Insights = applyEdits(v.Insights, edited)
	}
	log.Debugf("sheet %q: %s with %d metrics, %d insights", t.Name, kind, len(roles.Metrics), len(v.Insights))
	return v, nil
}

// cleanEdits trims the edited lines and drops blanks and repeats, keeping at
// most insight.MaxInsights.
func cleanEdits(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == insight.MaxInsights {
			break
		}
	}
	return out
}

// applyEdits replaces the generated text with the edited lines, keeping the
// originating rule only where the text is unchanged.
func applyEdits(gen []insight.Insight, edited []string) []insight.Insight {
	out := make([]insight.Insight, 0, len(edited))
	for i, s := range edited {
		rule := RuleEdited
		if i < len(gen) && gen[i].Text == s {
			rule = gen[i].Rule
		}
		out = append(out, insight.Insight{Text: s, Rule: rule})
	}
	return out
}

// Table is the table this view was computed from.
func (v *View) Table() *analysis.Table { return v.table }

// Spec returns the selected chart, if a shape was detected.
func (v *View) Spec() (chart.Spec, bool) {
	if v.spec == nil {
		return chart.Spec{}, false
	}
	return *v.spec, true
}

// InsightTexts returns the current insight lines.
func (v *View) InsightTexts() []string { return insight.Texts(v.Insights) }

// RenderChart writes the selected chart as PNG.
func (v *View) RenderChart(w io.Writer, size chart.Size) error {
	spec, ok := v.Spec()
	if !ok {
		return detect.ErrNoShape
	}
	return chart.Render(w, v.table, spec, size)
}

// ClipboardText is the chart description followed by the current insights.
func (v *View) ClipboardText() (string, error) {
	if v.Chart == nil {
		return "", detect.ErrNoShape
	}
	return export.ClipboardText(v.Chart.Description, v.InsightTexts()), nil
}

// DeckSpecs returns one chart per kind name over the detected roles. With no
// names it returns the selected chart alone.
func (v *View) DeckSpecs(kinds []string) ([]chart.Spec, error) {
	if v.Roles == nil {
		return nil, detect.ErrNoShape
	}
	if len(kinds) == 0 {
		return []chart.Spec{*v.spec}, nil
	}
	specs := make([]chart.Spec, 0, len(kinds))
	for _, name := range kinds {
		k, err := chart.ParseKind(name)
		if err != nil {
			return nil, err
		}
		s, err := chart.FromRoles(*v.Roles, k)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}
