package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return hasSuffix(filename, ".xlsx", ".xlsm")
}

func (xlsxLoader) Load(name string, content []byte, opt analysis.Options) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheets := f.GetSheetList()
	return &Workbook{
		Name:   name,
		sheets: sheets,
		opt:    opt,
		read: func(sheet string) ([]string, [][]string, error) {
			return readSheet(f, sheet, opt.MaxRows)
		},
	}, nil
}

// readSheet returns the first row as header and the rest as data. Numeric
// cells take their raw value so number formats (currency, accounting,
// thousands) don't leak into the table; date-styled cells keep their formatted
// text so they are inferred as timestamps.
func readSheet(f *excelize.File, sheet string, maxRows int) ([]string, [][]string, error) {
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("get rows: %w", err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("get raw rows: %w", err)
	}
	if len(formatted) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	header := formatted[0]
	width := len(header)
	data := formatted[1:]
	if maxRows > 0 && len(data) > maxRows {
		data = data[:maxRows]
	}
	dates := dateStyles{f: f, seen: map[int]bool{}}
	rows := make([][]string, 0, len(data))
	for i, row := range data {
		if len(row) > width {
			width = len(row)
		}
		out := make([]string, len(row))
		for j, cell := range row {
			out[j] = cell
			if i+1 >= len(raw) || j >= len(raw[i+1]) {
				continue
			}
			v := raw[i+1][j]
			if !rawNumber(v) {
				continue
			}
			name, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				continue
			}
			if !dates.is(sheet, name) {
				out[j] = v
			}
		}
		rows = append(rows, out)
	}
	// Data wider than the header gets blank header cells, named later.
	for len(header) < width {
		header = append(header, "")
	}
	return header, rows, nil
}

func rawNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// dateStyles caches, per style index, whether a number format renders a date
// or time.
type dateStyles struct {
	f    *excelize.File
	seen map[int]bool
}

func (d dateStyles) is(sheet, cell string) bool {
	idx, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	if v, ok := d.seen[idx]; ok {
		return v
	}
	v := false
	if st, err := d.f.GetStyle(idx); err == nil && st != nil {
		v = isDateFormat(st.NumFmt, st.CustomNumFmt)
	}
	d.seen[idx] = v
	return v
}

// isDateFormat reports whether a built-in format id or custom format code
// renders dates or times.
func isDateFormat(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateCode looks for date/time tokens outside quoted literals, bracketed
// sections ([Red], [$-409]) and escaped or padding characters.
func isDateCode(code string) bool {
	code = strings.ToLower(code)
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\', c == '_', c == '*':
			i++
		case c == 'y', c == 'd', c == 'h', c == 's', c == 'm':
			return true
		}
	}
	return false
}
