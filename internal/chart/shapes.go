package chart

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	gridStyle    = draw.LineStyle{Color: color.Gray{Y: 0xcc}, Width: vg.Points(0.75)}
	outlineStyle = draw.LineStyle{Color: color.White, Width: vg.Points(1)}
)

// swatch is a legend entry drawn as a filled square.
type swatch struct{ c color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.c, c.ClipPolygonY(pts))
}

// frame returns the centre of the data area and a radius that keeps round
// shapes round on non-square canvases.
func frame(c draw.Canvas, scale float64) (vg.Point, vg.Length) {
	w, h := c.Max.X-c.Min.X, c.Max.Y-c.Min.Y
	r := w
	if h < r {
		r = h
	}
	centre := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}
	return centre, r * vg.Length(scale) / 2
}

func polar(centre vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: centre.X + r*vg.Length(math.Cos(angle)),
		Y: centre.Y + r*vg.Length(math.Sin(angle)),
	}
}

func labelStyle(plt *plot.Plot) text.Style {
	sty := plt.X.Tick.Label
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter
	return sty
}

// unitRange gives the custom plotters a fixed [0,1] data range.
type unitRange struct{}

func (unitRange) DataRange() (xmin, xmax, ymin, ymax float64) { return 0, 1, 0, 1 }

// pieChart draws one wedge per metric total, clockwise from twelve o'clock.
// Non-positive totals are left out.
type pieChart struct {
	unitRange
	labels []string
	values []float64
}

func (pc pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	var total float64
	for _, v := range pc.values {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return
	}
	centre, r := frame(c, 0.85)
	sty := labelStyle(plt)
	angle := math.Pi / 2
	for i, v := range pc.values {
		if v <= 0 {
			continue
		}
		sweep := 2 * math.Pi * v / total
		pts := []vg.Point{centre}
		steps := int(math.Ceil(sweep / (math.Pi / 90)))
		for s := 0; s <= steps; s++ {
			pts = append(pts, polar(centre, r, angle-sweep*float64(s)/float64(steps)))
		}
		c.FillPolygon(ColorFor(i), pts)
		c.StrokeLines(outlineStyle, append(pts, centre))

		mid := angle - sweep/2
		c.FillText(sty, polar(centre, r*1.12, mid), fmt.Sprintf("%s (%.1f%%)", pc.labels[i], 100*v/total))
		angle -= sweep
	}
}

// radarChart draws one closed polygon per metric over one spoke per category,
// scaled to the largest value in the chart.
type radarChart struct {
	unitRange
	data data
}

func (rc radarChart) Plot(c draw.Canvas, plt *plot.Plot) {
	n := len(rc.data.labels)
	if n == 0 {
		return
	}
	centre, r := frame(c, 0.75)
	peak := 0.0
	for _, vals := range rc.data.values {
		for _, v := range vals {
			if v > peak {
				peak = v
			}
		}
	}
	if peak <= 0 {
		peak = 1
	}
	spoke := func(k int) float64 { return math.Pi/2 - 2*math.Pi*float64(k)/float64(n) }

	for _, f := range []float64{0.25, 0.5, 0.75, 1} {
		ring := make([]vg.Point, 0, n+1)
		for k := 0; k <= n; k++ {
			ring = append(ring, polar(centre, r*vg.Length(f), spoke(k%n)))
		}
		c.StrokeLines(gridStyle, ring)
	}
	sty := labelStyle(plt)
	for k, label := range rc.data.labels {
		c.StrokeLines(gridStyle, []vg.Point{centre, polar(centre, r, spoke(k))})
		c.FillText(sty, polar(centre, r*1.1, spoke(k)), label)
	}

	for i, vals := range rc.data.values {
		pts := make([]vg.Point, 0, n+1)
		for k := 0; k < n; k++ {
			v := vals[k]
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			pts = append(pts, polar(centre, r*vg.Length(v/peak), spoke(k)))
		}
		col := ColorFor(i)
		c.FillPolygon(color.NRGBA{R: col.R, G: col.G, B: col.B, A: 0x40}, pts)
		c.StrokeLines(draw.LineStyle{Color: col, Width: vg.Points(2)}, append(pts, pts[0]))
	}
}

// treemapChart lays categories out as vertical strips sized by their total,
// largest first, each strip split by metric. Non-positive cells are left out.
type treemapChart struct {
	unitRange
	data data
}

func (tc treemapChart) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	rows := len(tc.data.labels)
	sums := make([]float64, rows)
	var grand float64
	for _, vals := range tc.data.values {
		for k, v := range vals {
			if v > 0 {
				sums[k] += v
				grand += v
			}
		}
	}
	if grand <= 0 {
		return
	}
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sums[order[a]] > sums[order[b]] })

	sty := labelStyle(plt)
	x := 0.0
	for _, k := range order {
		if sums[k] <= 0 {
			continue
		}
		w := sums[k] / grand
		y := 0.0
		for i, vals := range tc.data.values {
			v := vals[k]
			if !(v > 0) {
				continue
			}
			h := v / sums[k]
			rect := []vg.Point{
				{X: trX(x), Y: trY(y)},
				{X: trX(x), Y: trY(y + h)},
				{X: trX(x + w), Y: trY(y + h)},
				{X: trX(x + w), Y: trY(y)},
			}
			c.FillPolygon(ColorFor(i), rect)
			c.StrokeLines(outlineStyle, append(rect, rect[0]))
			y += h
		}
		c.FillText(sty, vg.Point{X: trX(x + w/2), Y: trY(0.5)}, tc.data.labels[k])
		x += w
	}
}
