package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ColumnProfile summarizes one column for the overview and profiling slide.
type ColumnProfile struct {
	Name      string
	Type      ColumnType
	Nulls     int
	NullPct   float64
	Min, Max  float64
	MinTime   time.Time
	MaxTime   time.Time
	Unique    int
	HasRange  bool
	SampleLen int
}

// Profile is the dataset overview: shape, memory and per-column stats.
type Profile struct {
	Name        string
	Rows        int
	Cols        []ColumnProfile
	MemoryBytes int64
}

// Profile computes a Profile for t.
func (t *Table) Profile() Profile {
	p := Profile{Name: t.Name, Rows: t.Len(), MemoryBytes: t.MemoryUsage()}
	for _, c := range t.Columns {
		cp := ColumnProfile{Name: c.Name, Type: c.Type, SampleLen: c.Len()}
		uniq := map[string]struct{}{}
		cp.Min, cp.Max = math.Inf(1), math.Inf(-1)
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				cp.Nulls++
				continue
			}
			switch c.Type {
			case Numeric:
				v, _ := c.Float(i)
				cp.Min = math.Min(cp.Min, v)
				cp.Max = math.Max(cp.Max, v)
				cp.HasRange = true
			case Timestamp:
				ts, _ := c.Time(i)
				if !cp.HasRange || ts.Before(cp.MinTime) {
					cp.MinTime = ts
				}
				if !cp.HasRange || ts.After(cp.MaxTime) {
					cp.MaxTime = ts
				}
				cp.HasRange = true
			default:
				uniq[c.String(i)] = struct{}{}
			}
		}
		cp.Unique = len(uniq)
		if !cp.HasRange {
			cp.Min, cp.Max = 0, 0
		}
		if c.Len() > 0 {
			cp.NullPct = float64(cp.Nulls) * 100 / float64(c.Len())
		}
		p.Cols = append(p.Cols, cp)
	}
	return p
}

// Markdown renders a compact report of the dataset shape and schema.
func (p Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("Sheet: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(p.Cols)))
	b.WriteString(fmt.Sprintf("Memory: %s\n\n", humanize.Bytes(uint64(p.MemoryBytes))))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Type, c.SampleLen-c.Nulls, c.NullPct))
		switch {
		case c.Type == Numeric && c.HasRange:
			b.WriteString(fmt.Sprintf(" - min %.4g, max %.4g", c.Min, c.Max))
		case c.Type == Timestamp && c.HasRange:
			b.WriteString(fmt.Sprintf(" - from %s to %s", c.MinTime.Format("2006-01-02"), c.MaxTime.Format("2006-01-02")))
		case c.Type == Text || c.Type == Boolean:
			b.WriteString(fmt.Sprintf(" - unique=%d", c.Unique))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Lines renders the profile as the bullet text of the profiling slide.
func (p Profile) Lines() []string {
	lines := []string{
		"Dataset Overview",
		fmt.Sprintf("• Total Rows: %s", humanize.Comma(int64(p.Rows))),
		fmt.Sprintf("• Total Columns: %d", len(p.Cols)),
		fmt.Sprintf("• Memory Usage: %.1f KB", float64(p.MemoryBytes)/1024),
		"",
		"Column Analysis",
	}
	for _, c := range p.Cols {
		lines = append(lines,
			fmt.Sprintf("• %s: %s", c.Name, c.Type),
			fmt.Sprintf("  - Null values: %d (%.1f%%)", c.Nulls, c.NullPct),
		)
		switch c.Type {
		case Numeric:
			lines = append(lines, fmt.Sprintf("  - Range: %.2f to %.2f", c.Min, c.Max))
		case Timestamp:
			lines = append(lines, fmt.Sprintf("  - Date range: %s to %s",
				c.MinTime.Format("2006-01-02 15:04:05"), c.MaxTime.Format("2006-01-02 15:04:05")))
		default:
			lines = append(lines, fmt.Sprintf("  - Unique values: %d", c.Unique))
		}
	}
	return lines
}

func safeName(s string) string {
	if s == "" {
		return "(unnamed)"
	}
	return strings.ReplaceAll(s, "\n", " ")
}
