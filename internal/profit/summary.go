package profit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Summary is the generator's text report over an unfiltered dataset.
type Summary struct {
	Trips         int               `json:"trips"`
	AvgNet        float64           `json:"avg_net_earnings"`
	Profitable    int               `json:"profitable"`
	ProfitablePct float64           `json:"profitable_pct"`
	AvgDuration   float64           `json:"avg_duration_min"`
	Zones         []trips.GroupMean `json:"zones"`
	BestHour      int               `json:"best_hour"`
	WorstHour     int               `json:"worst_hour"`
	Buckets       []trips.GroupMean `json:"buckets"`
}

// Summarize computes the report for recs. No records gives an empty summary.
func Summarize(recs []trips.Record) (*Summary, error) {
	s := &Summary{Trips: len(recs)}
	if len(recs) == 0 {
		return s, nil
	}
	df := Frame(recs)
	s.AvgNet = df.Col(colNet).Mean()
	s.AvgDuration = df.Col(colDuration).Mean()

	pos := df.Filter(dataframe.F{Colname: colNet, Comparator: series.Greater, Comparando: 0.0})
	if pos.Err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "filter profitable trips", pos.Err)
	}
	s.Profitable = pos.Nrow()
	s.ProfitablePct = float64(s.Profitable) / float64(s.Trips) * 100

	var err error
	if s.Zones, err = groupMeans(df, colZone); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Zones, func(i, j int) bool { return s.Zones[i].Mean > s.Zones[j].Mean })

	hours, err := hourMeans(df)
	if err != nil {
		return nil, err
	}
	s.BestHour, s.WorstHour = bestWorstHour(hours)

	if s.Buckets, err = bucketMeans(df); err != nil {
		return nil, err
	}
	return s, nil
}

// Write prints the report.
func (s *Summary) Write(w io.Writer) error {
	rule := strings.Repeat("=", 50)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nDRIVER PROFITABILITY DATA SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "\nTotal Trips: %s\n", humanize.Comma(int64(s.Trips)))
	if s.Trips > 0 {
		fmt.Fprintf(&b, "Average Net Earnings: $%.2f\n", s.AvgNet)
		fmt.Fprintf(&b, "Profitable Trips: %s (%.1f%%)\n", humanize.Comma(int64(s.Profitable)), s.ProfitablePct)
		fmt.Fprintf(&b, "Average Trip Duration: %.1f minutes\n", s.AvgDuration)

		b.WriteString("\nEarnings by Zone:\n")
		for _, z := range s.Zones {
			fmt.Fprintf(&b, "   %s: $%.2f\n", z.Key, z.Mean)
		}
		fmt.Fprintf(&b, "\nBest Hour: %d:00\n", s.BestHour)
		fmt.Fprintf(&b, "Worst Hour: %d:00\n", s.WorstHour)

		b.WriteString("\nTrip Distance Analysis:\n")
		for _, g := range s.Buckets {
			fmt.Fprintf(&b, "   %s: $%.2f\n", g.Key, g.Mean)
		}
	}
	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
