package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ColumnType is the declared type of every cell in a column.
type ColumnType int

const (
	Text ColumnType = iota
	Numeric
	Boolean
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "datetime"
	default:
		return "text"
	}
}

// Options controls how raw string cells are turned into a Table.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the header line.
	Delimiter rune
	// Numeric parsing locale. DecimalSeparator defaults to '.'.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, strips the common separators that are not the decimal one
}

// DefaultOptions returns reasonable defaults for spreadsheet ingestion.
func DefaultOptions() Options {
	return Options{
		MaxRows:          1_000_000,
		DecimalSeparator: '.',
	}
}

// Column is a named, uniformly typed sequence of cells.
type Column struct {
	Name string
	Type ColumnType

	raw     []string
	missing []bool
	nums    []float64
	bools   []bool
	times   []time.Time
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.missing) }

// IsMissing reports whether cell i is empty.
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// Float returns the numeric value of cell i. ok is false for non-numeric
// columns and missing cells.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.Type != Numeric || c.missing[i] {
		return math.NaN(), false
	}
	return c.nums[i], true
}

// Time returns the timestamp value of cell i.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.Type != Timestamp || c.missing[i] {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Bool returns the boolean value of cell i.
func (c *Column) Bool(i int) (v bool, ok bool) {
	if c.Type != Boolean || c.missing[i] {
		return false, false
	}
	return c.bools[i], true
}

// String renders cell i for display. Missing cells render as "".
func (c *Column) String(i int) string {
	if c.missing[i] {
		return ""
	}
	switch c.Type {
	case Numeric:
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	case Boolean:
		return strconv.FormatBool(c.bools[i])
	case Timestamp:
		t := c.times[i]
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return c.raw[i]
	}
}

// NewNumericColumn builds a Numeric column; NaN marks a missing cell.
func NewNumericColumn(name string, vals []float64) *Column {
	c := &Column{Name: name, Type: Numeric, nums: make([]float64, len(vals)), missing: make([]bool, len(vals))}
	for i, v := range vals {
		c.nums[i] = v
		c.missing[i] = math.IsNaN(v)
	}
	return c
}

// NewTextColumn builds a Text column; "" marks a missing cell.
func NewTextColumn(name string, vals []string) *Column {
	c := &Column{Name: name, Type: Text, raw: make([]string, len(vals)), missing: make([]bool, len(vals))}
	for i, v := range vals {
		c.raw[i] = v
		c.missing[i] = v == ""
	}
	return c
}

// NewTimestampColumn builds a Timestamp column; the zero time marks a missing cell.
func NewTimestampColumn(name string, vals []time.Time) *Column {
	c := &Column{Name: name, Type: Timestamp, times: make([]time.Time, len(vals)), missing: make([]bool, len(vals))}
	for i, v := range vals {
		c.times[i] = v
		c.missing[i] = v.IsZero()
	}
	return c
}

// NewBooleanColumn builds a Boolean column with no missing cells.
func NewBooleanColumn(name string, vals []bool) *Column {
	c := &Column{Name: name, Type: Boolean, bools: make([]bool, len(vals)), missing: make([]bool, len(vals))}
	copy(c.bools, vals)
	return c
}

// Table is an ordered set of equally long, uniquely named columns.
type Table struct {
	Name    string
	Columns []*Column
}

// New assembles a Table and enforces the length and naming invariants.
func New(name string, cols ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), cols[0].Len())
		}
	}
	return &Table{Name: name, Columns: cols}, nil
}

// MustNew is New for fixtures and literals known to be valid.
func MustNew(name string, cols ...*Column) *Table {
	t, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the row count.
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns names in table order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Head returns up to n rows rendered as display strings.
func (t *Table) Head(n int) [][]string {
	if n > t.Len() || n < 0 {
		n = t.Len()
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = c.String(i)
		}
		out[i] = row
	}
	return out
}

// Rows returns every row rendered as display strings.
func (t *Table) Rows() [][]string { return t.Head(t.Len()) }

// MemoryUsage approximates the in-memory footprint of the cell data in bytes.
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, c := range t.Columns {
		total += int64(len(c.Name)) + 64
		n := int64(c.Len())
		total += n // missing mask
		switch c.Type {
		case Numeric:
			total += 8 * n
		case Boolean:
			total += n
		case Timestamp:
			total += 24 * n
		default:
			for _, s := range c.raw {
				total += 16 + int64(len(s))
			}
		}
	}
	return total
}

// FromRecords infers a Table from a header row and string records, the way the
// CSV and XLSX loaders hand rows over. Short rows are padded with empty cells.
func FromRecords(name string, header []string, records [][]string, opt Options) *Table {
	names := uniqueHeader(header)
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	if len(records) > maxRows {
		records = records[:maxRows]
	}
	t := &Table{Name: name, Columns: make([]*Column, len(names))}
	for j, n := range names {
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		t.Columns[j] = inferColumn(n, cells, opt)
	}
	return t
}

// uniqueHeader mirrors spreadsheet readers: blank headers become
// "Unnamed: <idx>", repeats get ".1", ".2" suffixes.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	taken := map[string]bool{}
	next := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for taken[name] {
			next[h]++
			name = fmt.Sprintf("%s.%d", h, next[h])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// inferColumn decides the column type by requiring every non-empty cell to
// parse: numeric first, then boolean, then datetime, otherwise text.
func inferColumn(name string, cells []string, opt Options) *Column {
	n := len(cells)
	c := &Column{Name: name, missing: make([]bool, n), raw: cells}
	nonEmpty := 0
	for i, v := range cells {
		if v == "" {
			c.missing[i] = true
			continue
		}
		nonEmpty++
	}
	if nonEmpty == 0 {
		c.Type = Text
		return c
	}

	if nums, ok := parseAll(cells, func(s string) (float64, bool) { return parseNumeric(s, opt) }); ok {
		for i := range nums {
			if c.missing[i] {
				nums[i] = math.NaN()
			}
		}
		c.Type, c.nums, c.raw = Numeric, nums, nil
		return c
	}
	if bools, ok := parseAll(cells, parseBool); ok {
		c.Type, c.bools, c.raw = Boolean, bools, nil
		return c
	}
	if times, ok := parseAll(cells, parseTimeMaybe); ok {
		c.Type, c.times, c.raw = Timestamp, times, nil
		return c
	}
	c.Type = Text
	return c
}

func parseAll[T any](cells []string, parse func(string) (T, bool)) ([]T, bool) {
	out := make([]T, len(cells))
	for i, v := range cells {
		if v == "" {
			continue
		}
		x, ok := parse(v)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseTimeMaybe(s string) (time.Time, bool) {
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
