package trips

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(200, NewRand(DefaultSeed))
	b := Generate(200, NewRand(DefaultSeed))
	require.Equal(t, a, b)

	var ba, bb bytes.Buffer
	require.NoError(t, WriteCSV(&ba, a))
	require.NoError(t, WriteCSV(&bb, b))
	assert.Equal(t, ba.Bytes(), bb.Bytes())

	c := Generate(200, NewRand(7))
	assert.NotEqual(t, a, c)
}

func TestGenerateFields(t *testing.T) {
	recs := Generate(500, NewRand(DefaultSeed))
	require.Len(t, recs, 500)
	assert.Equal(t, "TRIP_000001", recs[0].TripID)
	assert.Equal(t, "TRIP_000500", recs[499].TripID)

	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	for _, r := range recs {
		_, ok := LookupZone(r.PickupZone)
		assert.True(t, ok, r.PickupZone)
		_, ok = LookupZone(r.DropoffZone)
		assert.True(t, ok, r.DropoffZone)
		assert.GreaterOrEqual(t, r.DistanceKm, 1.0)
		assert.GreaterOrEqual(t, r.DurationMin, 2*r.DistanceKm)
		assert.LessOrEqual(t, r.DurationMin, 4*r.DistanceKm)
		assert.False(t, r.PickupTime.Before(start))
		assert.True(t, r.PickupTime.Before(start.Add(8*24*time.Hour)))
		assert.Contains(t, []string{FullTime, PartTime}, r.DriverType)
		assert.Contains(t, []string{Control, Treatment}, r.ABGroup)
		assert.Greater(t, r.Fare, 0.0)
		assert.Less(t, r.Payout, r.Fare)
		assert.InDelta(t, r.DistanceKm*GasPerKm+r.DurationMin*TimePerMin+r.WaitMin*WaitPerMin, r.TotalExpenses, 1e-9)
		assert.InDelta(t, r.NetEarnings/r.DurationMin, r.Profitability, 1e-9)
	}
}

func TestGenerateForcesUnprofitableTrips(t *testing.T) {
	for _, n := range []int{1, 10, 49, 50, 1000} {
		recs := Generate(n, NewRand(DefaultSeed))
		forced := 0
		for _, r := range recs {
			if r.NetEarnings != r.Payout-r.TotalExpenses {
				forced++
				assert.LessOrEqual(t, r.NetEarnings, -1.0)
				assert.GreaterOrEqual(t, r.NetEarnings, -10.0)
			}
		}
		assert.Equal(t, UnprofitableCount(n), forced, "n=%d", n)
	}
	assert.Equal(t, 1, UnprofitableCount(10))
	assert.Equal(t, 20, UnprofitableCount(1000))
	assert.Nil(t, Generate(0, NewRand(DefaultSeed)))
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, Short, BucketFor(1))
	assert.Equal(t, Short, BucketFor(5))
	assert.Equal(t, Medium, BucketFor(5.01))
	assert.Equal(t, Medium, BucketFor(10))
	assert.Equal(t, Long, BucketFor(10.5))
	assert.Equal(t, Long, BucketFor(150))
}

func TestCSVRoundTrip(t *testing.T) {
	recs := Generate(30, NewRand(DefaultSeed))
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 31)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "TRIP_000001,DRIVER_"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 30)
	for i := range recs {
		assert.Equal(t, recs[i].TripID, got[i].TripID)
		assert.Equal(t, recs[i].PickupTime, got[i].PickupTime)
		assert.InDelta(t, recs[i].NetEarnings, got[i].NetEarnings, 0.005)
		assert.InDelta(t, recs[i].DistanceKm, got[i].DistanceKm, 0.0005)
		assert.Equal(t, recs[i].Cancelled, got[i].Cancelled)
	}
}

func TestReadCSVRejects(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errs.IsInputRejected(err))

	_, err = ReadCSV(strings.NewReader("trip_id,driver_id\nTRIP_000001,DRIVER_1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Generate(1, NewRand(1))))
	bad := strings.Replace(buf.String(), ",2024-", ",not-a-date-", 1)
	_, err = ReadCSV(strings.NewReader(bad))
	assert.True(t, errs.IsInputRejected(err))
}
