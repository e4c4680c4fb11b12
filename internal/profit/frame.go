// Package profit aggregates trip records into the profitability dashboard:
// filtered means by zone, hour and trip length, plain-language insights, an
// A/B significance check and a two-way comparison tool.
package profit

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame column names.
const (
	colZone       = "pickup_zone"
	colDriverType = "driver_type"
	colBucket     = "trip_bucket"
	colGroup      = "ab_group"
	colHour       = "hour"
	colNet        = "net_earnings"
	colPayout     = "driver_payout"
	colDistance   = "trip_distance_km"
	colDuration   = "trip_duration_min"
	colGas        = "gas_cost"
	colTime       = "time_cost"
	colWait       = "wait_cost"
)

// Filters selects trips; an empty list keeps every value of that field.
type Filters struct {
	Zones       []string `json:"zones,omitempty"`
	DriverTypes []string `json:"driver_types,omitempty"`
	Buckets     []string `json:"buckets,omitempty"`
	Groups      []string `json:"ab_groups,omitempty"`
}

// Frame loads recs into a dataframe with the columns the dashboard uses.
func Frame(recs []trips.Record) dataframe.DataFrame {
	n := len(recs)
	var (
		zones   = make([]string, n)
		types   = make([]string, n)
		buckets = make([]string, n)
		groups  = make([]string, n)
		hours   = make([]int, n)
		net     = make([]float64, n)
		payout  = make([]float64, n)
		dist    = make([]float64, n)
		dur     = make([]float64, n)
		gas     = make([]float64, n)
		tcost   = make([]float64, n)
		wait    = make([]float64, n)
	)
	for i, r := range recs {
		zones[i] = r.PickupZone
		types[i] = r.DriverType
		buckets[i] = string(r.Bucket())
		groups[i] = r.ABGroup
		hours[i] = r.Hour()
		net[i] = r.NetEarnings
		payout[i] = r.Payout
		dist[i] = r.DistanceKm
		dur[i] = r.DurationMin
		gas[i] = r.GasCost
		tcost[i] = r.TimeCost
		wait[i] = r.WaitCost
	}
	return dataframe.New(
		series.New(zones, series.String, colZone),
		series.New(types, series.String, colDriverType),
		series.New(buckets, series.String, colBucket),
		series.New(groups, series.String, colGroup),
		series.New(hours, series.Int, colHour),
		series.New(net, series.Float, colNet),
		series.New(payout, series.Float, colPayout),
		series.New(dist, series.Float, colDistance),
		series.New(dur, series.Float, colDuration),
		series.New(gas, series.Float, colGas),
		series.New(tcost, series.Float, colTime),
		series.New(wait, series.Float, colWait),
	)
}

// Apply keeps the rows matching every non-empty filter.
func Apply(df dataframe.DataFrame, f Filters) (dataframe.DataFrame, error) {
	for _, c := range []struct {
		col  string
		vals []string
	}{
		{colZone, f.Zones},
		{colDriverType, f.DriverTypes},
		{colBucket, f.Buckets},
		{colGroup, f.Groups},
	} {
		if len(c.vals) == 0 {
			continue
		}
		df = df.Filter(dataframe.F{Colname: c.col, Comparator: series.In, Comparando: c.vals})
		if df.Err != nil {
			return df, errs.Wrap(errs.ErrKindInvalidInput, "filter "+c.col, df.Err)
		}
	}
	return df, nil
}

// filtered builds the frame for recs and applies f; no remaining rows is an
// InvalidInput error.
func filtered(recs []trips.Record, f Filters) (dataframe.DataFrame, error) {
	df, err := Apply(Frame(recs), f)
	if err != nil {
		return df, err
	}
	if df.Nrow() == 0 {
		return df, errs.Newf(errs.ErrKindInvalidInput, "no trips match the selected filters (%s)", f)
	}
	return df, nil
}

func (f Filters) String() string {
	var parts []string
	add := func(name string, vals []string) {
		if len(vals) > 0 {
			parts = append(parts, name+"="+strings.Join(vals, "|"))
		}
	}
	add("zone", f.Zones)
	add("driver_type", f.DriverTypes)
	add("bucket", f.Buckets)
	add("ab_group", f.Groups)
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// group is one GroupBy result: its key values and mean of a value column.
type group struct {
	keys  []string
	trips int
	mean  float64
}

// meansBy groups df by cols and returns the mean of value per group, sorted by
// key values.
func meansBy(df dataframe.DataFrame, value string, cols ...string) ([]group, error) {
	g := df.GroupBy(cols...)
	if g.Err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "group by "+strings.Join(cols, ","), g.Err)
	}
	var out []group
	for _, sub := range g.GetGroups() {
		if sub.Nrow() == 0 {
			continue
		}
		keys := make([]string, len(cols))
		for i, c := range cols {
			keys[i] = sub.Col(c).Elem(0).String()
		}
		out = append(out, group{keys: keys, trips: sub.Nrow(), mean: sub.Col(value).Mean()})
	}
	sort.Slice(out, func(i, j int) bool { return lessKeys(out[i].keys, out[j].keys) })
	return out, nil
}

func lessKeys(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
