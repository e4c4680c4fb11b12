// Package deck exports charts and an optional data profile as a slide deck.
package deck

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/logger"
)

const (
	titleColor    = "1255B5"
	subtitleColor = "646464"
	bodyColor     = "323232"

	// DefaultTitle heads the title slide.
	DefaultTitle = "ExcelInsight Analysis"
	// DefaultSubtitle sits under DefaultTitle.
	DefaultSubtitle = "Data Analysis & Visualization"
)

// Options controls which slides Build produces.
type Options struct {
	Title          string
	IncludeProfile bool
	ImageSize      chart.Size
	Log            *logger.Logger
}

// Result reports what Build wrote.
type Result struct {
	Slides   int
	Warnings []string
}

// Build renders one slide per spec after a title slide and, if requested, a
// profiling slide. A chart that fails to render is skipped with a warning.
func Build(w io.Writer, t *analysis.Table, specs []chart.Spec, opt Options) (Result, error) {
	if opt.Title == "" {
		opt.Title = DefaultTitle
	}
	if opt.ImageSize.Width <= 0 || opt.ImageSize.Height <= 0 {
		opt.ImageSize = chart.SlideSize
	}
	log := opt.Log
	if log == nil {
		log = logger.Nop()
	}

	var res Result
	slides := []Slide{TitleSlide(opt.Title, DefaultSubtitle)}
	if opt.IncludeProfile {
		slides = append(slides, ProfileSlide(t.Profile()))
	}
	for i, s := range specs {
		var img bytes.Buffer
		if err := chart.Render(&img, t, s, opt.ImageSize); err != nil {
			msg := fmt.Sprintf("could not create chart %d: %v", i+1, err)
			log.Warnf("deck: %s", msg)
			res.Warnings = append(res.Warnings, msg)
			continue
		}
		slides = append(slides, ChartSlide(i+1, s, img.Bytes()))
	}
	if err := Write(w, opt.Title, slides); err != nil {
		return res, errs.Wrap(errs.ErrKindExportFailed, "write deck", err)
	}
	res.Slides = len(slides)
	return res, nil
}

// TitleSlide is the opening slide.
func TitleSlide(title, subtitle string) Slide {
	return Slide{Texts: []TextBox{
		{X: 0.5, Y: 2.5, W: SlideWidthIn - 1, H: 1.5, Lines: []string{title}, Size: 44, Color: titleColor, Center: true},
		{X: 0.5, Y: 4.0, W: SlideWidthIn - 1, H: 1.0, Lines: []string{subtitle}, Size: 20, Color: subtitleColor, Center: true},
	}}
}

// ProfileSlide lists the dataset overview and per-column statistics.
func ProfileSlide(p analysis.Profile) Slide {
	return Slide{Texts: []TextBox{
		{X: 0.5, Y: 0.5, W: 9, H: 1, Lines: []string{"Data Profiling Summary"}, Size: 24, Color: titleColor, Center: true},
		{X: 0.5, Y: 1.5, W: 9, H: 6, Lines: p.Lines(), Size: 12, Color: bodyColor},
	}}
}

// ChartSlide places a rendered chart under a numbered heading.
func ChartSlide(n int, s chart.Spec, png []byte) Slide {
	return Slide{
		Texts: []TextBox{
			{X: 0.5, Y: 0.5, W: 9, H: 1, Lines: []string{fmt.Sprintf("Chart %d: %s Chart", n, s.Kind().Title())}, Size: 24, Color: titleColor, Center: true},
			{X: 0.5, Y: 1.2, W: 9, H: 0.5, Lines: []string{"Columns: " + strings.Join(s.Columns(), ", ")}, Size: 14, Color: subtitleColor, Center: true},
		},
		Pictures: []Picture{{X: 1, Y: 2, W: 8, H: 5, PNG: png}},
	}
}

// FileName is the download name for a deck built from sheet.
func FileName(sheet string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, sheet)
	if clean == "" {
		clean = "sheet"
	}
	return "excelinsight_" + clean + ".pptx"
}
