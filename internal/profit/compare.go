package profit

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// CompareBy names the dimension of a comparison.
type CompareBy string

const (
	ByZone       CompareBy = "zone"
	ByDriverType CompareBy = "driver_type"
)

// ParseCompareBy accepts "zone" or "driver_type" (also "driver-type").
func ParseCompareBy(s string) (CompareBy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "zone", "":
		return ByZone, nil
	case "driver_type", "type":
		return ByDriverType, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "cannot compare by %q (want zone or driver_type)", s)
}

func (b CompareBy) column() string {
	if b == ByDriverType {
		return colDriverType
	}
	return colZone
}

// MetricComparison is one compared measure.
type MetricComparison struct {
	Name    string  `json:"name"`
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Pct     float64 `json:"pct"`
	Caption string  `json:"caption"`
}

// Comparison sets two zones or driver types side by side.
type Comparison struct {
	By      CompareBy          `json:"by"`
	Left    string             `json:"left"`
	Right   string             `json:"right"`
	Metrics []MetricComparison `json:"metrics"`
}

// Options lists the values of by left after filtering, in first-seen order.
func Options(recs []trips.Record, f Filters, by CompareBy) ([]string, error) {
	df, err := filtered(recs, f)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range df.Col(by.column()).Records() {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

var captions = []struct {
	name, col, more, same string
}{
	{"Net Earnings", colNet,
		"%s drivers earn %.1f%% more per trip than %s, suggesting higher efficiency or better trip choices.",
		"No meaningful difference in net earnings per trip."},
	{"Driver Payout", colPayout,
		"%s drivers receive higher payouts, possibly due to more premium trips or better timing.",
		"No meaningful difference in driver payout per trip."},
	{"Trip Distance Km", colDistance,
		"%s drivers take longer trips on average, which may impact their earnings or trip strategy.",
		"No meaningful difference in trip distance per trip."},
}

// Compare contrasts two values of by within the filtered trips. Differences of
// 1% or less are reported as no meaningful difference.
func Compare(recs []trips.Record, f Filters, by CompareBy, left, right string) (*Comparison, error) {
	if left == right {
		return nil, errs.New(errs.ErrKindInvalidInput, "select two different options")
	}
	df, err := filtered(recs, f)
	if err != nil {
		return nil, err
	}
	return compare(df, by, left, right)
}

func compare(df dataframe.DataFrame, by CompareBy, left, right string) (*Comparison, error) {
	l, err := side(df, by, left)
	if err != nil {
		return nil, err
	}
	r, err := side(df, by, right)
	if err != nil {
		return nil, err
	}
	c := &Comparison{By: by, Left: left, Right: right}
	for _, m := range captions {
		lv, rv := l.Col(m.col).Mean(), r.Col(m.col).Mean()
		pct := Lift(rv, lv)
		mc := MetricComparison{Name: m.name, Left: lv, Right: rv, Pct: pct, Caption: m.same}
		if math.Abs(pct) > 1 {
			winner, loser := left, right
			if pct < 0 {
				winner, loser = right, left
			}
			if m.col == colNet {
				mc.Caption = fmt.Sprintf(m.more, winner, math.Abs(pct), loser)
			} else {
				mc.Caption = fmt.Sprintf(m.more, winner)
			}
		}
		c.Metrics = append(c.Metrics, mc)
	}
	return c, nil
}

func side(df dataframe.DataFrame, by CompareBy, value string) (dataframe.DataFrame, error) {
	sub := df.Filter(dataframe.F{Colname: by.column(), Comparator: series.Eq, Comparando: value})
	if sub.Err != nil {
		return sub, errs.Wrap(errs.ErrKindInvalidInput, "filter "+string(by), sub.Err)
	}
	if sub.Nrow() == 0 {
		return sub, errs.Newf(errs.ErrKindInvalidInput, "no trips for %s %q", by, value)
	}
	return sub, nil
}
