package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	return hasSuffix(filename, ".csv", ".tsv")
}

// Load exposes a delimited file as a single-sheet workbook named after the file.
func (csvLoader) Load(name string, content []byte, opt analysis.Options) (*Workbook, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, content)
	}
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv has no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rows = append(rows, rec)
	}

	sheet := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return &Workbook{
		Name:   name,
		sheets: []string{sheet},
		opt:    opt,
		read: func(string) ([]string, [][]string, error) {
			return header, rows, nil
		},
	}, nil
}

// sniffDelimiter uses the extension first, then counts candidates in the header line.
func sniffDelimiter(name string, content []byte) rune {
	if hasSuffix(name, ".tsv") {
		return '\t'
	}
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(string(line), string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}
