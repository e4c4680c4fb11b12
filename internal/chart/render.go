package chart

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Size is an output size in pixels.
type Size struct {
	Width  int
	Height int
}

var (
	// DefaultSize is the download canvas.
	DefaultSize = Size{Width: 1100, Height: 600}
	// SlideSize is the image embedded in deck slides.
	SlideSize = Size{Width: 800, Height: 500}
)

const dpi = 96

func pixels(n int) vg.Length {
	return vg.Length(float64(n)) * vg.Inch / dpi
}

// data is the chart input pulled out of a table: one label per row and one
// value series per metric.
type data struct {
	labels  []string
	metrics []string
	values  [][]float64 // values[metric][row], NaN for missing cells
}

func extract(t *analysis.Table, s Spec) (data, error) {
	cat := t.Column(s.category)
	if cat == nil {
		return data{}, errs.Newf(errs.ErrKindInvalidInput, "category column %q not found", s.category)
	}
	if t.Len() == 0 {
		return data{}, errs.New(errs.ErrKindInvalidInput, "sheet has no rows to chart")
	}
	d := data{labels: make([]string, t.Len()), metrics: s.Metrics()}
	for i := range d.labels {
		d.labels[i] = cat.String(i)
	}
	for _, name := range d.metrics {
		col := t.Column(name)
		if col == nil {
			return data{}, errs.Newf(errs.ErrKindInvalidInput, "metric column %q not found", name)
		}
		if col.Type != analysis.Numeric {
			return data{}, errs.Newf(errs.ErrKindInvalidInput, "metric column %q is %s, not numeric", name, col.Type)
		}
		vals := make([]float64, t.Len())
		for i := range vals {
			v, ok := col.Float(i)
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		d.values = append(d.values, vals)
	}
	return d, nil
}

// Render draws the chart described by s and writes it to w as PNG.
func Render(w io.Writer, t *analysis.Table, s Spec, size Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	p, err := Plot(t, s, size)
	if err != nil {
		return err
	}
	c := vgimg.NewWith(vgimg.UseWH(pixels(size.Width), pixels(size.Height)), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return errs.Wrap(errs.ErrKindExportFailed, "encode png", err)
	}
	return nil
}

// Plot builds the gonum plot for s without drawing it.
func Plot(t *analysis.Table, s Spec, size Size) (*plot.Plot, error) {
	d, err := extract(t, s)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = s.Title()
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Legend.Top = true

	switch s.kind {
	case GroupedBar, StackedBar:
		err = addBars(p, d, s, size)
	case Radar:
		p.HideAxes()
		p.Add(radarChart{data: d})
		addSwatches(p, d.metrics)
	case Pie:
		p.HideAxes()
		p.Add(pieChart{labels: d.metrics, values: totals(d)})
		addSwatches(p, d.metrics)
	case Treemap:
		p.HideAxes()
		p.Add(treemapChart{data: d})
		addSwatches(p, d.metrics)
	default:
		err = errs.Newf(errs.ErrKindInvalidInput, "unsupported chart kind %s", s.kind)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func addBars(p *plot.Plot, d data, s Spec, size Size) error {
	n := len(d.metrics)
	group := pixels(size.Width) * 0.75 / vg.Length(len(d.labels))
	width := group / vg.Length(n+1)
	if s.kind == StackedBar {
		width = group * 0.6
	}
	var prev *plotter.BarChart
	for i, name := range d.metrics {
		vals := make(plotter.Values, len(d.values[i]))
		for j, v := range d.values[i] {
			if math.IsNaN(v) {
				v = 0
			}
			vals[j] = v
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return errs.Wrap(errs.ErrKindExportFailed, fmt.Sprintf("bars for %s", name), err)
		}
		bars.Color = ColorFor(i)
		bars.LineStyle.Width = 0
		if s.kind == GroupedBar {
			bars.Offset = width * vg.Length(float64(i)-float64(n-1)/2)
		} else if prev != nil {
			bars.StackOn(prev)
		}
		prev = bars
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.NominalX(d.labels...)
	p.X.Label.Text = s.category
	p.Y.Label.Text = "Value"
	return nil
}

func addSwatches(p *plot.Plot, metrics []string) {
	for i, name := range metrics {
		p.Legend.Add(name, swatch{c: ColorFor(i)})
	}
}

// totals sums each metric, ignoring missing cells.
func totals(d data) []float64 {
	out := make([]float64, len(d.values))
	for i, vals := range d.values {
		for _, v := range vals {
			if !math.IsNaN(v) {
				out[i] += v
			}
		}
	}
	return out
}
