// Package export hands finished artifacts to the outside world: the system
// clipboard, a local directory, or an object store bucket.
package export

import (
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/atotto/clipboard"
)

// ClipboardText combines a chart description with the current insight lines.
// Blank insight lines are dropped.
func ClipboardText(description string, insights []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(description))
	var lines []string
	for _, in := range insights {
		if s := strings.TrimSpace(in); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n\nInsights:\n")
		for _, s := range lines {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard uses the host clipboard (xclip/xsel/wl-copy, pbcopy, or the
// Windows API).
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errs.New(errs.ErrKindExportFailed, "clipboard is not available on this system")
	}
	return clipboard.WriteAll(text)
}

// Copy writes text to cb. Any failure is an ExportFailed error, which callers
// report as a warning.
func Copy(cb Clipboard, text string) error {
	if cb == nil {
		cb = SystemClipboard{}
	}
	if err := cb.WriteAll(text); err != nil {
		if errs.IsExportFailed(err) {
			return err
		}
		return errs.Wrap(errs.ErrKindExportFailed, "copy to clipboard", err)
	}
	return nil
}
