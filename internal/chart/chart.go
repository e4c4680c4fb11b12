// Package chart selects and renders the multi-metric chart kinds as PNG.
package chart

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/detect"
	"github.com/KaramelBytes/excelinsight/internal/errs"
)

// Kind is a supported chart type.
type Kind int

const (
	GroupedBar Kind = iota
	StackedBar
	Radar
	Pie
	Treemap
)

// Kinds lists every kind in menu order.
var Kinds = []Kind{GroupedBar, StackedBar, Radar, Pie, Treemap}

var kindNames = map[Kind]string{
	GroupedBar: "grouped-bar",
	StackedBar: "stacked-bar",
	Radar:      "radar",
	Pie:        "pie",
	Treemap:    "treemap",
}

var kindTitles = map[Kind]string{
	GroupedBar: "Grouped Bar",
	StackedBar: "Stacked Bar",
	Radar:      "Radar",
	Pie:        "Pie",
	Treemap:    "Treemap",
}

// String returns the CLI/API identifier, e.g. "grouped-bar".
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Title returns the display name, e.g. "Grouped Bar".
func (k Kind) Title() string {
	return kindTitles[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind accepts identifiers ("stacked-bar"), titles ("Stacked Bar") and
// underscore forms ("stacked_bar"), case-insensitively.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, errs.Newf(errs.ErrKindInvalidInput, "unknown chart kind %q (want one of %s)", s, strings.Join(KindNames(), ", "))
}

// KindNames returns the identifiers of Kinds in order.
func KindNames() []string {
	out := make([]string, len(Kinds))
	for i, k := range Kinds {
		out[i] = k.String()
	}
	return out
}

// Palette is the fixed chart palette; metric i is drawn in Palette[i%len(Palette)].
var Palette = []color.RGBA{
	hex("#002F6C"), // steel blue
	hex("#5C6770"), // slate gray
	hex("#A6192E"), // burgundy
	hex("#007C91"), // teal
	hex("#6CACE4"), // light blue
	hex("#B7BF10"), // olive green
	hex("#F2A900"), // gold
	hex("#58595B"), // charcoal
}

// ColorFor returns the palette colour of the metric at position i.
func ColorFor(i int) color.RGBA {
	return Palette[i%len(Palette)]
}

func hex(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		panic(err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Spec is an immutable description of one chart to render.
type Spec struct {
	category string
	metrics  []string
	kind     Kind
}

// NewSpec validates a category, its metrics and a kind.
func NewSpec(category string, metrics []string, kind Kind) (Spec, error) {
	if category == "" {
		return Spec{}, errs.New(errs.ErrKindInvalidInput, "chart needs a category column")
	}
	if len(metrics) == 0 {
		return Spec{}, errs.New(errs.ErrKindInvalidInput, "chart needs at least one metric column")
	}
	if _, ok := kindNames[kind]; !ok {
		return Spec{}, errs.Newf(errs.ErrKindInvalidInput, "unknown chart kind %d", int(kind))
	}
	m := make([]string, len(metrics))
	copy(m, metrics)
	return Spec{category: category, metrics: m, kind: kind}, nil
}

// FromRoles builds a Spec from detected roles.
func FromRoles(r detect.Roles, kind Kind) (Spec, error) {
	return NewSpec(r.Category, r.Metrics, kind)
}

func (s Spec) Category() string { return s.category }
func (s Spec) Kind() Kind        { return s.kind }

// Metrics returns a copy of the metric column names.
func (s Spec) Metrics() []string {
	out := make([]string, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// Title is the chart heading, e.g. "Grouped Bar: Y1, Y2 by Segment".
func (s Spec) Title() string {
	return fmt.Sprintf("%s: %s by %s", s.kind.Title(), strings.Join(s.metrics, ", "), s.category)
}

// Columns returns the category followed by the metrics.
func (s Spec) Columns() []string {
	return append([]string{s.category}, s.metrics...)
}

// FileName is the suggested download name, e.g. "grouped_bar.png".
func (s Spec) FileName() string {
	return strings.ReplaceAll(s.kind.String(), "-", "_") + ".png"
}

var shareName = regexp.MustCompile(`(?i)share|percent|pct|ratio|%`)

// Suggest picks a default kind for the detected shape: radar for a small set
// of categories with several metrics, stacked bars when every metric is a
// share, grouped bars otherwise.
func Suggest(t *analysis.Table, r detect.Roles) Kind {
	rows := t.Len()
	if rows >= 3 && rows <= 12 && len(r.Metrics) >= 3 {
		return Radar
	}
	allShares := len(r.Metrics) > 0
	for _, m := range r.Metrics {
		if !shareName.MatchString(m) {
			allShares = false
			break
		}
	}
	if allShares {
		return StackedBar
	}
	return GroupedBar
}

// Describe returns the plain-text description used for clipboard text and
// slide subtitles.
func Describe(t *analysis.Table, s Spec) string {
	var b strings.Builder
	b.WriteString(s.Title())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Categories: %d rows of %s\n", t.Len(), s.category))
	b.WriteString(fmt.Sprintf("Metrics: %s", strings.Join(s.metrics, ", ")))
	return b.String()
}
