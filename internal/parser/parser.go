package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/dustin/go-humanize"
)

// DefaultMaxBytes is the upload limit applied when the caller passes none.
const DefaultMaxBytes int64 = 20 * 1024 * 1024

// Loader turns raw file bytes into a Workbook.
type Loader interface {
	CanLoad(filename string) bool
	Load(name string, content []byte, opt analysis.Options) (*Workbook, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(xlsxLoader{})
	Register(csvLoader{})
}

// Supported reports whether any registered loader accepts filename.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

func lookup(filename string) Loader {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l
		}
	}
	return nil
}

// sheetReader yields the header row and the data rows of one sheet.
type sheetReader func(sheet string) (header []string, rows [][]string, err error)

// Workbook is an opened spreadsheet. Sheets are converted to tables lazily.
type Workbook struct {
	Name   string
	Size   int64
	sheets []string
	read   sheetReader
	opt    analysis.Options
}

// Sheets returns sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	out := make([]string, len(w.sheets))
	copy(out, w.sheets)
	return out
}

// HasSheet reports whether sheet exists.
func (w *Workbook) HasSheet(sheet string) bool {
	for _, s := range w.sheets {
		if s == sheet {
			return true
		}
	}
	return false
}

// Table reads sheet into a typed table. A missing or unreadable sheet is
// InputRejected.
func (w *Workbook) Table(sheet string) (*analysis.Table, error) {
	if sheet == "" && len(w.sheets) > 0 {
		sheet = w.sheets[0]
	}
	if !w.HasSheet(sheet) {
		return nil, errs.Newf(errs.ErrKindInputRejected, "sheet %q not found in %s", sheet, w.Name)
	}
	header, rows, err := w.read(sheet)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInputRejected, fmt.Sprintf("read sheet %q", sheet), err)
	}
	return analysis.FromRecords(sheet, header, rows, w.opt), nil
}

// Open loads a workbook from r. size is the declared byte size (negative if
// unknown); anything larger than limit is rejected before a sheet is read.
func Open(name string, r io.Reader, size, limit int64) (*Workbook, error) {
	return OpenWithOptions(name, r, size, limit, analysis.DefaultOptions())
}

// OpenWithOptions is Open with explicit parsing options.
func OpenWithOptions(name string, r io.Reader, size, limit int64, opt analysis.Options) (*Workbook, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if size > limit {
		return nil, tooLarge(name, size, limit)
	}
	l := lookup(name)
	if l == nil {
		return nil, errs.Newf(errs.ErrKindInputRejected, "unsupported file type: %s", filepath.Ext(name))
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInputRejected, "read upload", err)
	}
	if n > limit {
		return nil, tooLarge(name, n, limit)
	}
	if n == 0 {
		return nil, errs.Newf(errs.ErrKindInputRejected, "%s is empty", name)
	}
	wb, err := l.Load(name, buf.Bytes(), opt)
	if err != nil {
		if errs.KindOf(err) != errs.ErrKindUnknown {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrKindInputRejected, "open "+name, err)
	}
	if len(wb.sheets) == 0 {
		return nil, errs.Newf(errs.ErrKindInputRejected, "%s contains no sheets", name)
	}
	wb.Size = n
	return wb, nil
}

// OpenFile opens a workbook from disk, checking its size via stat first.
func OpenFile(path string, limit int64) (*Workbook, error) {
	return OpenFileWithOptions(path, limit, analysis.DefaultOptions())
}

// OpenFileWithOptions is OpenFile with explicit parsing options.
func OpenFileWithOptions(path string, limit int64, opt analysis.Options) (*Workbook, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindNotFound, "stat "+path, err)
	}
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if fi.Size() > limit {
		return nil, tooLarge(filepath.Base(path), fi.Size(), limit)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInputRejected, "open "+path, err)
	}
	defer f.Close()
	return OpenWithOptions(filepath.Base(path), f, fi.Size(), limit, opt)
}

func tooLarge(name string, size, limit int64) error {
	return errs.Newf(errs.ErrKindInputRejected, "%s is %s, larger than the %s limit",
		name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
}

func hasSuffix(filename string, suffixes ...string) bool {
	name := strings.ToLower(filename)
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
