package profit

import (
	"bytes"
	"testing"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(zone, driverType, group string, km float64, hour int, net float64) trips.Record {
	return trips.Record{
		PickupZone:  zone,
		DriverType:  driverType,
		ABGroup:     group,
		DistanceKm:  km,
		DurationMin: km * 3,
		PickupTime:  base.Add(time.Duration(hour) * time.Hour),
		Payout:      net + 5,
		NetEarnings: net,
		GasCost:     km * trips.GasPerKm,
		TimeCost:    1,
		WaitCost:    0.5,
	}
}

func fixture() []trips.Record {
	return []trips.Record{
		rec("Downtown", trips.FullTime, trips.Control, 3, 8, 10),
		rec("Downtown", trips.PartTime, trips.Treatment, 12, 8, 20),
		rec("Downtown", trips.FullTime, trips.Treatment, 4, 17, 18),
		rec("Brampton", trips.PartTime, trips.Control, 7, 3, 4),
		rec("Brampton", trips.FullTime, trips.Control, 8, 3, 6),
		rec("Etobicoke", trips.PartTime, trips.Treatment, 2, 22, 9),
	}
}

func TestAnalyze(t *testing.T) {
	d, err := Analyze(fixture(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, 6, d.Trips)
	assert.InDelta(t, 67.0/6, d.AvgNet, 1e-9)
	assert.Equal(t, "Downtown", d.BestZone)
	assert.Equal(t, []trips.GroupMean{{Key: "Downtown", Trips: 3, Mean: 16}, {Key: "Etobicoke", Trips: 1, Mean: 9}, {Key: "Brampton", Trips: 2, Mean: 5}}, d.Zones)
	assert.Equal(t, []trips.HourMean{{Hour: 3, Trips: 2, Mean: 5}, {Hour: 8, Trips: 2, Mean: 15}, {Hour: 17, Trips: 1, Mean: 18}, {Hour: 22, Trips: 1, Mean: 9}}, d.Hours)
	require.Len(t, d.Buckets, 3)
	assert.Equal(t, "Short", d.Buckets[0].Key)
	assert.InDelta(t, 37.0/3, d.Buckets[0].Mean, 1e-9)
	assert.Equal(t, "Long", d.BestBucket)

	assert.Equal(t, []string{
		"Downtown drivers earn 220% more per trip than Brampton.",
		"Best hour: 17:00, Worst hour: 3:00.",
		"Long trips are most profitable.",
	}, d.Insights)
	assert.Equal(t, []string{
		"Drivers earned least in Brampton 3-4h - consider higher wait-time bonus.",
		"Medium trips are least profitable - review pricing or incentives.",
	}, d.Recommendations)
	assert.InDelta(t, 1.0, d.Costs.Time, 1e-9)
	assert.InDelta(t, 0.5, d.Costs.Wait, 1e-9)

	assert.True(t, d.AB.Available)
	assert.Equal(t, 3, d.AB.Control)
	assert.InDelta(t, 20.0/3, d.AB.ControlMean, 1e-9)
	assert.InDelta(t, 47.0/3, d.AB.TreatmentMean, 1e-9)
	assert.InDelta(t, 135.0, d.AB.Lift, 1e-9)
	assert.Contains(t, d.AB.Badge, "Treatment group outperformed control by +135.0% in net earnings. p = ")

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	assert.Contains(t, buf.String(), "Best Zone:         Downtown")
	assert.Contains(t, buf.String(), "filters: none")
}

func TestAnalyzeFilters(t *testing.T) {
	d, err := Analyze(fixture(), Filters{Zones: []string{"Downtown", "Brampton"}, DriverTypes: []string{trips.FullTime}})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Trips)
	assert.InDelta(t, 34.0/3, d.AvgNet, 1e-9)
	assert.False(t, d.AB.Available, "only one treatment trip remains")
	assert.Contains(t, d.AB.Badge, "Not enough trips")

	d, err = Analyze(fixture(), Filters{Buckets: []string{"Short"}, Groups: []string{trips.Treatment}})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Trips)

	_, err = Analyze(fixture(), Filters{Zones: []string{"Mississauga"}})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "zone=Mississauga")

	_, err = Analyze(nil, Filters{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestTTest(t *testing.T) {
	tstat, p := TTest([]float64{1, 2, 3, 4, 5}, []float64{2, 3, 4, 5, 6})
	assert.InDelta(t, -1.0, tstat, 1e-12)
	assert.InDelta(t, 0.3466, p, 1e-4)

	_, p = TTest([]float64{1, 1}, []float64{1, 1})
	assert.Equal(t, 1.0, p)
	_, p = TTest([]float64{1, 1}, []float64{2, 2})
	assert.Equal(t, 0.0, p)
}

func TestABTestOnGeneratedData(t *testing.T) {
	recs := trips.Generate(1000, trips.NewRand(trips.DefaultSeed))
	d, err := Analyze(recs, Filters{})
	require.NoError(t, err)
	require.True(t, d.AB.Available)
	assert.Equal(t, 1000, d.AB.Control+d.AB.Treatment)
	assert.Greater(t, d.AB.Lift, 0.0, "treatment gets a payout bonus")
	assert.Equal(t, d.AB.P < Alpha, d.AB.Significant)
	assert.Len(t, d.Zones, len(trips.Zones))
}

func TestCompare(t *testing.T) {
	c, err := Compare(fixture(), Filters{}, ByZone, "Downtown", "Brampton")
	require.NoError(t, err)
	require.Len(t, c.Metrics, 3)
	net := c.Metrics[0]
	assert.Equal(t, "Net Earnings", net.Name)
	assert.InDelta(t, 16.0, net.Left, 1e-9)
	assert.InDelta(t, 5.0, net.Right, 1e-9)
	assert.Equal(t, "Downtown drivers earn 220.0% more per trip than Brampton, suggesting higher efficiency or better trip choices.", net.Caption)
	assert.Equal(t, "Downtown drivers receive higher payouts, possibly due to more premium trips or better timing.", c.Metrics[1].Caption)
	assert.Equal(t, "Brampton drivers take longer trips on average, which may impact their earnings or trip strategy.", c.Metrics[2].Caption)

	c, err = Compare(fixture(), Filters{}, ByDriverType, trips.FullTime, trips.PartTime)
	require.NoError(t, err)
	assert.InDelta(t, 34.0/3, c.Metrics[0].Left, 1e-9)
	assert.InDelta(t, 11.0, c.Metrics[0].Right, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	assert.Contains(t, buf.String(), "Compare driver_type: Full-time vs Part-time")

	_, err = Compare(fixture(), Filters{}, ByZone, "Downtown", "Downtown")
	assert.True(t, errs.IsInvalidInput(err))
	_, err = Compare(fixture(), Filters{}, ByZone, "Downtown", "Mississauga")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCompareNoMeaningfulDifference(t *testing.T) {
	recs := []trips.Record{
		rec("Downtown", trips.FullTime, trips.Control, 5, 8, 10),
		rec("Brampton", trips.FullTime, trips.Control, 5, 8, 10.05),
	}
	c, err := Compare(recs, Filters{}, ByZone, "Downtown", "Brampton")
	require.NoError(t, err)
	assert.Equal(t, "No meaningful difference in net earnings per trip.", c.Metrics[0].Caption)
	assert.Equal(t, "No meaningful difference in trip distance per trip.", c.Metrics[2].Caption)
}

func TestOptionsAndParseCompareBy(t *testing.T) {
	opts, err := Options(fixture(), Filters{}, ByZone)
	require.NoError(t, err)
	assert.Equal(t, []string{"Downtown", "Brampton", "Etobicoke"}, opts)

	by, err := ParseCompareBy("driver-type")
	require.NoError(t, err)
	assert.Equal(t, ByDriverType, by)
	_, err = ParseCompareBy("hour")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSummarize(t *testing.T) {
	recs := []trips.Record{
		{PickupZone: "Downtown", DistanceKm: 3, DurationMin: 10, PickupTime: base.Add(8 * time.Hour), NetEarnings: 10},
		{PickupZone: "Downtown", DistanceKm: 12, DurationMin: 30, PickupTime: base.Add(8 * time.Hour), NetEarnings: 20},
		{PickupZone: "Brampton", DistanceKm: 7, DurationMin: 20, PickupTime: base.Add(3 * time.Hour), NetEarnings: -4},
	}
	s, err := Summarize(recs)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Trips)
	assert.InDelta(t, 26.0/3, s.AvgNet, 1e-9)
	assert.Equal(t, 2, s.Profitable)
	assert.InDelta(t, 20.0, s.AvgDuration, 1e-9)
	assert.Equal(t, []trips.GroupMean{{Key: "Downtown", Trips: 2, Mean: 15}, {Key: "Brampton", Trips: 1, Mean: -4}}, s.Zones)
	assert.Equal(t, 8, s.BestHour)
	assert.Equal(t, 3, s.WorstHour)
	assert.Equal(t, []trips.GroupMean{{Key: "Short", Trips: 1, Mean: 10}, {Key: "Medium", Trips: 1, Mean: -4}, {Key: "Long", Trips: 1, Mean: 20}}, s.Buckets)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "DRIVER PROFITABILITY DATA SUMMARY")
	assert.Contains(t, out, "Total Trips: 3")
	assert.Contains(t, out, "Profitable Trips: 2 (66.7%)")
	assert.Contains(t, out, "   Downtown: $15.00\n   Brampton: $-4.00")
	assert.Contains(t, out, "Best Hour: 8:00")
	assert.Contains(t, out, "Worst Hour: 3:00")
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize(nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.Contains(t, buf.String(), "Total Trips: 0")
	assert.NotContains(t, buf.String(), "Best Hour")
}

func TestBestWorstHourTiesGoEarlier(t *testing.T) {
	best, worst := bestWorstHour([]trips.HourMean{{Hour: 2, Mean: 5}, {Hour: 9, Mean: 5}, {Hour: 14, Mean: 1}, {Hour: 20, Mean: 1}})
	assert.Equal(t, 2, best)
	assert.Equal(t, 14, worst)
}
