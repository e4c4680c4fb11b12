package profit

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/go-gota/gota/dataframe"
)

// Costs is the average per-trip expense split.
type Costs struct {
	Gas  float64 `json:"gas"`
	Time float64 `json:"time"`
	Wait float64 `json:"wait"`
}

// Dashboard is everything the profitability view shows for one filter set.
type Dashboard struct {
	Filters         Filters           `json:"filters"`
	Trips           int               `json:"trips"`
	AvgNet          float64           `json:"avg_net_earnings"`
	BestZone        string            `json:"best_zone"`
	BestBucket      string            `json:"best_bucket"`
	Zones           []trips.GroupMean `json:"zones"`
	Hours           []trips.HourMean  `json:"hours"`
	Buckets         []trips.GroupMean `json:"buckets"`
	Insights        []string          `json:"insights"`
	AB              ABResult          `json:"ab_test"`
	Recommendations []string          `json:"recommendations"`
	Costs           Costs             `json:"costs"`
}

// Analyze filters recs and computes the dashboard.
func Analyze(recs []trips.Record, f Filters) (*Dashboard, error) {
	df, err := filtered(recs, f)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		Filters: f,
		Trips:   df.Nrow(),
		AvgNet:  df.Col(colNet).Mean(),
		Costs: Costs{
			Gas:  df.Col(colGas).Mean(),
			Time: df.Col(colTime).Mean(),
			Wait: df.Col(colWait).Mean(),
		},
	}

	if d.Zones, err = groupMeans(df, colZone); err != nil {
		return nil, err
	}
	sort.SliceStable(d.Zones, func(i, j int) bool { return d.Zones[i].Mean > d.Zones[j].Mean })
	d.BestZone = d.Zones[0].Key

	if d.Hours, err = hourMeans(df); err != nil {
		return nil, err
	}

	if d.Buckets, err = bucketMeans(df); err != nil {
		return nil, err
	}
	best, worst := extremes(d.Buckets)
	d.BestBucket = d.Buckets[best].Key

	d.Insights = plainInsights(d)
	d.AB = ABTest(df)
	if d.Recommendations, err = recommendations(df, d.Buckets[worst].Key); err != nil {
		return nil, err
	}
	return d, nil
}

func groupMeans(df dataframe.DataFrame, col string) ([]trips.GroupMean, error) {
	gs, err := meansBy(df, colNet, col)
	if err != nil {
		return nil, err
	}
	out := make([]trips.GroupMean, len(gs))
	for i, g := range gs {
		out[i] = trips.GroupMean{Key: g.keys[0], Trips: g.trips, Mean: g.mean}
	}
	return out, nil
}

func hourMeans(df dataframe.DataFrame) ([]trips.HourMean, error) {
	gs, err := meansBy(df, colNet, colHour)
	if err != nil {
		return nil, err
	}
	out := make([]trips.HourMean, 0, len(gs))
	for _, g := range gs {
		h, err := strconv.Atoi(g.keys[0])
		if err != nil {
			return nil, fmt.Errorf("hour group %q: %w", g.keys[0], err)
		}
		out = append(out, trips.HourMean{Hour: h, Trips: g.trips, Mean: g.mean})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

// bucketMeans returns the distance bucket means in Short, Medium, Long order.
func bucketMeans(df dataframe.DataFrame) ([]trips.GroupMean, error) {
	byBucket, err := groupMeans(df, colBucket)
	if err != nil {
		return nil, err
	}
	var out []trips.GroupMean
	for _, b := range trips.Buckets {
		for _, g := range byBucket {
			if g.Key == string(b) {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

// bestWorstHour returns the hours with the highest and lowest mean; ties go to
// the earlier hour. hours must be sorted by hour.
func bestWorstHour(hours []trips.HourMean) (best, worst int) {
	if len(hours) == 0 {
		return 0, 0
	}
	bi, wi := 0, 0
	for i, h := range hours {
		if h.Mean > hours[bi].Mean {
			bi = i
		}
		if h.Mean < hours[wi].Mean {
			wi = i
		}
	}
	return hours[bi].Hour, hours[wi].Hour
}

// extremes returns the indexes of the highest and lowest mean; ties keep the
// first.
func extremes(gs []trips.GroupMean) (best, worst int) {
	for i, g := range gs {
		if g.Mean > gs[best].Mean {
			best = i
		}
		if g.Mean < gs[worst].Mean {
			worst = i
		}
	}
	return best, worst
}

func plainInsights(d *Dashboard) []string {
	var out []string
	bestZone, worstZone := d.Zones[0], d.Zones[len(d.Zones)-1]
	if worstZone.Mean != 0 && len(d.Zones) > 1 {
		pct := (bestZone.Mean - worstZone.Mean) / worstZone.Mean * 100
		out = append(out, fmt.Sprintf("%s drivers earn %.0f%% more per trip than %s.", bestZone.Key, pct, worstZone.Key))
	}
	bh, wh := bestWorstHour(d.Hours)
	out = append(out, fmt.Sprintf("Best hour: %d:00, Worst hour: %d:00.", bh, wh))
	out = append(out, fmt.Sprintf("%s trips are most profitable.", d.BestBucket))
	return out
}

func recommendations(df dataframe.DataFrame, lowBucket string) ([]string, error) {
	gs, err := meansBy(df, colNet, colHour, colZone)
	if err != nil {
		return nil, err
	}
	var recs []string
	if len(gs) > 0 {
		type cell struct {
			hour int
			zone string
			mean float64
		}
		cells := make([]cell, 0, len(gs))
		for _, g := range gs {
			h, _ := strconv.Atoi(g.keys[0])
			cells = append(cells, cell{h, g.keys[1], g.mean})
		}
		sort.Slice(cells, func(i, j int) bool {
			if cells[i].hour != cells[j].hour {
				return cells[i].hour < cells[j].hour
			}
			return cells[i].zone < cells[j].zone
		})
		low := cells[0]
		for _, c := range cells[1:] {
			if c.mean < low.mean {
				low = c
			}
		}
		recs = append(recs, fmt.Sprintf("Drivers earned least in %s %d-%dh - consider higher wait-time bonus.", low.zone, low.hour, low.hour+1))
	}
	if lowBucket != "" {
		recs = append(recs, fmt.Sprintf("%s trips are least profitable - review pricing or incentives.", lowBucket))
	}
	return recs, nil
}

// Lift is the relative change of b over a in percent; zero when a is zero.
func Lift(a, b float64) float64 {
	if a == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return 0
	}
	return (b - a) / a * 100
}
