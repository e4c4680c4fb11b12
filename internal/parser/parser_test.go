package parser_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/detect"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes a two-sheet fixture with a currency format and a date column.
func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Sales"))
	rows := [][]any{
		{"Segment", "Revenue", "Units", "Launched"},
		{"A", 1200.5, 10, "2024-01-05"},
		{"B", 800, 25, "2024-02-10"},
		{"C", 450, 5, "2024-03-15"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sales", cell, &r))
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sales", "B2", "B4", style))

	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "Comment"))
	require.NoError(t, f.SetCellValue("Notes", "A2", "hello"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestOpenXLSX(t *testing.T) {
	data := buildWorkbook(t)
	wb, err := parser.Open("sales.xlsx", bytes.NewReader(data), int64(len(data)), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "Notes"}, wb.Sheets())

	tbl, err := wb.Table("Sales")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"Segment", "Revenue", "Units", "Launched"}, tbl.ColumnNames())
	assert.Equal(t, analysis.Text, tbl.Column("Segment").Type)
	assert.Equal(t, analysis.Numeric, tbl.Column("Revenue").Type)
	assert.Equal(t, analysis.Timestamp, tbl.Column("Launched").Type)

	v, ok := tbl.Column("Revenue").Float(0)
	require.True(t, ok)
	assert.InDelta(t, 1200.5, v, 1e-9)

	first, err := wb.Table("")
	require.NoError(t, err)
	assert.Equal(t, "Sales", first.Name)
}

func TestOpenRejectsOversizeBeforeReading(t *testing.T) {
	r := &countingReader{}
	_, err := parser.Open("big.xlsx", r, 21*1024*1024, parser.DefaultMaxBytes)
	require.Error(t, err)
	assert.True(t, errs.IsInputRejected(err))
	assert.Zero(t, r.reads, "oversized input must not be read")
}

func TestOpenRejectsUndeclaredOversize(t *testing.T) {
	data := bytes.Repeat([]byte("a,b\n"), 100)
	_, err := parser.Open("big.csv", bytes.NewReader(data), -1, 50)
	require.Error(t, err)
	assert.True(t, errs.IsInputRejected(err))
}

func TestOpenRejectsGarbageAndUnknownTypes(t *testing.T) {
	_, err := parser.Open("broken.xlsx", strings.NewReader("not a zip"), 9, 0)
	assert.True(t, errs.IsInputRejected(err))

	_, err = parser.Open("notes.docx", strings.NewReader("x"), 1, 0)
	assert.True(t, errs.IsInputRejected(err))

	_, err = parser.Open("empty.csv", strings.NewReader(""), 0, 0)
	assert.True(t, errs.IsInputRejected(err))
}

func TestOpenXLSXCurrencyAndAccountingFormats(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Region", "Revenue", "Cost", "Opened"},
		{"North", 1200.5, 300.25, 45292},
		{"South", 800, 150, 45323},
		{"West", 450.75, 99.9, 45352},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	currency := "$#,##0.00"
	cur, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currency})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B4", cur))
	accounting := `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`
	acc, err := f.NewStyle(&excelize.Style{CustomNumFmt: &accounting})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C4", acc))
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D4", date))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	data := buf.Bytes()

	wb, err := parser.Open("regions.xlsx", bytes.NewReader(data), int64(len(data)), 0)
	require.NoError(t, err)
	tbl, err := wb.Table("")
	require.NoError(t, err)

	assert.Equal(t, analysis.Numeric, tbl.Column("Revenue").Type)
	assert.Equal(t, analysis.Numeric, tbl.Column("Cost").Type)
	assert.NotEqual(t, analysis.Numeric, tbl.Column("Opened").Type, "date cells keep their formatted text")
	v, ok := tbl.Column("Revenue").Float(0)
	require.True(t, ok)
	assert.InDelta(t, 1200.5, v, 1e-9)
	v, ok = tbl.Column("Cost").Float(2)
	require.True(t, ok)
	assert.InDelta(t, 99.9, v, 1e-9)

	roles, err := detect.Detect(tbl)
	require.NoError(t, err)
	assert.Equal(t, "Region", roles.Category)
	assert.Equal(t, []string{"Revenue", "Cost"}, roles.Metrics)
}

func TestTableMissingSheet(t *testing.T) {
	data := buildWorkbook(t)
	wb, err := parser.Open("sales.xlsx", bytes.NewReader(data), int64(len(data)), 0)
	require.NoError(t, err)
	_, err = wb.Table("Nope")
	require.Error(t, err)
	assert.True(t, errs.IsInputRejected(err))
	assert.Contains(t, err.Error(), `sheet "Nope" not found`)
}

func TestOpenFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hop_harvest.csv")
	content := "\ufeffplot;alpha_acids;moisture\n" +
		"A1;12,5%;74\n" +
		"A2;11,8%;71\n" +
		"B3;10,2%;68\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	wb, err := parser.OpenFile(p, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hop_harvest"}, wb.Sheets())

	tbl, err := wb.Table("hop_harvest")
	require.NoError(t, err)
	assert.Equal(t, []string{"plot", "alpha_acids", "moisture"}, tbl.ColumnNames())
	assert.Equal(t, analysis.Numeric, tbl.Column("moisture").Type)

	_, err = parser.OpenFile(filepath.Join(dir, "missing.csv"), 0)
	assert.True(t, errs.IsNotFound(err))
}

func TestSupported(t *testing.T) {
	assert.True(t, parser.Supported("a.XLSX"))
	assert.True(t, parser.Supported("a.tsv"))
	assert.False(t, parser.Supported("a.pdf"))
}

type countingReader struct{ reads int }

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return 0, io.EOF
}
