package profit

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// Write prints the dashboard as text.
func (d *Dashboard) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Driver Profitability (%s trips, filters: %s)\n\n", humanize.Comma(int64(d.Trips)), d.Filters)
	fmt.Fprintf(&b, "Avg Net Earnings:  $%.2f\n", d.AvgNet)
	fmt.Fprintf(&b, "Best Zone:         %s\n", d.BestZone)
	fmt.Fprintf(&b, "Best Trip Length:  %s\n", d.BestBucket)

	b.WriteString("\nKey Insights:\n")
	for _, s := range d.Insights {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	fmt.Fprintf(&b, "\nA/B Test:\n  %s\n  %s\n", d.AB.Badge, d.AB.Note)

	b.WriteString("\nEarnings by Region:\n")
	for _, z := range d.Zones {
		fmt.Fprintf(&b, "  %-12s $%7.2f  (%d trips)\n", z.Key, z.Mean, z.Trips)
	}
	b.WriteString("\nEarnings by Trip Length:\n")
	for _, g := range d.Buckets {
		fmt.Fprintf(&b, "  %-12s $%7.2f  (%d trips)\n", g.Key, g.Mean, g.Trips)
	}
	b.WriteString("\nEarnings by Hour:\n")
	for _, h := range d.Hours {
		fmt.Fprintf(&b, "  %02d:00        $%7.2f  (%d trips)\n", h.Hour, h.Mean, h.Trips)
	}

	b.WriteString("\nWhere does the money go?\n")
	fmt.Fprintf(&b, "  Gas:  $%.2f\n  Time: $%.2f\n  Wait: $%.2f\n", d.Costs.Gas, d.Costs.Time, d.Costs.Wait)

	b.WriteString("\nBusiness Recommendations:\n")
	for _, r := range d.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Write prints the comparison as text.
func (c *Comparison) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare %s: %s vs %s\n", c.By, c.Left, c.Right)
	for _, m := range c.Metrics {
		fmt.Fprintf(&b, "\n%s: %s: %.2f, %s: %.2f\n  %s\n", m.Name, c.Left, m.Left, c.Right, m.Right, m.Caption)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
