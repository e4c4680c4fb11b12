// Package trips generates synthetic ride-hailing trip records with fares,
// payouts, driver expenses and net earnings.
package trips

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSeed makes repeated runs produce identical data.
const DefaultSeed int64 = 42

// DefaultTrips is the generator's default record count.
const DefaultTrips = 1000

// Per-unit expense rates in dollars.
const (
	GasPerKm      = 0.12
	TimePerMin    = 0.25
	WaitPerMin    = 0.20
	farePerKm     = 1.5
	farePerMin    = 0.3
	treatBonus    = 0.05
	fullTimeBonus = 0.03
)

// Driver types and A/B groups.
const (
	FullTime  = "Full-time"
	PartTime  = "Part-time"
	Control   = "Control"
	Treatment = "Treatment"
)

// Zone is a pickup/dropoff area and its pricing constants.
type Zone struct {
	Name         string
	BaseFare     float64
	DemandFactor float64
	Surge        float64
	pickup       float64
	dropoff      float64
}

// Zones in the generator's fixed order.
var Zones = []Zone{
	{"Downtown", 15, 1.2, 1.3, 0.30, 0.25},
	{"Etobicoke", 12, 0.8, 1.1, 0.15, 0.20},
	{"North York", 14, 1.0, 1.2, 0.20, 0.20},
	{"Scarborough", 13, 0.9, 1.0, 0.15, 0.15},
	{"Mississauga", 11, 0.7, 0.9, 0.10, 0.10},
	{"Brampton", 10, 0.6, 0.8, 0.10, 0.10},
}

// ZoneNames returns the zone names in order.
func ZoneNames() []string {
	out := make([]string, len(Zones))
	for i, z := range Zones {
		out[i] = z.Name
	}
	return out
}

// LookupZone finds a zone by name.
func LookupZone(name string) (Zone, bool) {
	for _, z := range Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

// Bucket classifies trip length.
type Bucket string

const (
	Short  Bucket = "Short"
	Medium Bucket = "Medium"
	Long   Bucket = "Long"
)

// Buckets in display order.
var Buckets = []Bucket{Short, Medium, Long}

// BucketFor returns Short up to 5 km, Medium up to 10 km, Long beyond.
func BucketFor(km float64) Bucket {
	switch {
	case km <= 5:
		return Short
	case km <= 10:
		return Medium
	default:
		return Long
	}
}

// Record is one generated trip.
type Record struct {
	TripID      string    `json:"trip_id"`
	DriverID    string    `json:"driver_id"`
	PickupZone  string    `json:"pickup_zone"`
	DropoffZone string    `json:"dropoff_zone"`
	DistanceKm  float64   `json:"trip_distance_km"`
	DurationMin float64   `json:"trip_duration_min"`
	PickupTime  time.Time `json:"pickup_time"`
	Fare        float64   `json:"fare_amount"`
	Payout      float64   `json:"driver_payout"`
	WaitMin     float64   `json:"wait_time_min"`
	Cancelled   bool      `json:"cancellation"`
	DriverType  string    `json:"driver_type"`
	ABGroup     string    `json:"ab_group"`

	GasCost       float64 `json:"gas_cost"`
	TimeCost      float64 `json:"time_cost"`
	WaitCost      float64 `json:"wait_cost"`
	TotalExpenses float64 `json:"total_expenses"`
	NetEarnings   float64 `json:"net_earnings"`
	Profitability float64 `json:"profitability_ratio"`
}

// Bucket is the trip-length class of r.
func (r Record) Bucket() Bucket { return BucketFor(r.DistanceKm) }

// Hour is the hour of day of the pickup.
func (r Record) Hour() int { return r.PickupTime.Hour() }

// NewRand returns the generator's random source for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

var baseTime = time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

// Generate draws n trip records from rng, computes expenses and forces a small
// share of trips to lose money. The same rng state always yields the same
// records.
func Generate(n int, rng *rand.Rand) []Record {
	if n <= 0 {
		return nil
	}
	recs := make([]Record, n)
	for i := range recs {
		recs[i].TripID = fmt.Sprintf("TRIP_%06d", i+1)
		recs[i].DriverID = fmt.Sprintf("DRIVER_%d", 1000+rng.Intn(8999))
	}
	for i := range recs {
		recs[i].PickupZone = Zones[choose(rng, pickupWeights)].Name
	}
	for i := range recs {
		recs[i].DropoffZone = Zones[choose(rng, dropoffWeights)].Name
	}
	for i := range recs {
		recs[i].DistanceKm = rng.ExpFloat64()*8 + 1
	}
	for i := range recs {
		recs[i].DurationMin = recs[i].DistanceKm * uniform(rng, 2, 4)
	}
	for i := range recs {
		d := time.Duration(rng.Intn(7))*24*time.Hour +
			time.Duration(rng.Intn(24))*time.Hour +
			time.Duration(rng.Intn(60))*time.Minute
		recs[i].PickupTime = baseTime.Add(d)
	}
	for i := range recs {
		recs[i].DriverType = pick(rng, 0.6, FullTime, PartTime)
	}
	for i := range recs {
		recs[i].ABGroup = pick(rng, 0.5, Control, Treatment)
	}
	for i := range recs {
		r := &recs[i]
		z, _ := LookupZone(r.PickupZone)
		fare := (z.BaseFare + r.DistanceKm*farePerKm + r.DurationMin*farePerMin) * z.Surge
		fare *= uniform(rng, 0.95, 1.05)
		mult := uniform(rng, 0.7, 0.8)
		if r.ABGroup == Treatment {
			mult += treatBonus
		}
		if r.DriverType == FullTime {
			mult += fullTimeBonus
		}
		r.Fare = round(fare, 2)
		r.Payout = round(fare*mult, 2)
	}
	for i := range recs {
		r := &recs[i]
		z, _ := LookupZone(r.PickupZone)
		timeFactor, zoneFactor := 1.0, 1.0
		if h := r.Hour(); h < 6 || h > 22 {
			timeFactor = 1.5
		}
		if z.DemandFactor < 0.9 {
			zoneFactor = 1.5
		}
		r.WaitMin = round(rng.ExpFloat64()*3*timeFactor*zoneFactor, 1)
	}
	for i := range recs {
		recs[i].Cancelled = rng.Float64() < 0.05
	}
	for i := range recs {
		applyExpenses(&recs[i])
	}
	forceUnprofitable(recs, rng)
	return recs
}

// UnprofitableCount is how many trips Generate forces below zero for n trips.
func UnprofitableCount(n int) int {
	return max(1, int(0.02*float64(n)))
}

func forceUnprofitable(recs []Record, rng *rand.Rand) {
	k := UnprofitableCount(len(recs))
	for _, i := range rng.Perm(len(recs))[:k] {
		r := &recs[i]
		r.NetEarnings = -round(uniform(rng, 1, 10), 2)
		r.Profitability = r.NetEarnings / r.DurationMin
	}
}

func applyExpenses(r *Record) {
	r.GasCost = r.DistanceKm * GasPerKm
	r.TimeCost = r.DurationMin * TimePerMin
	r.WaitCost = r.WaitMin * WaitPerMin
	r.TotalExpenses = r.GasCost + r.TimeCost + r.WaitCost
	r.NetEarnings = r.Payout - r.TotalExpenses
	r.Profitability = r.NetEarnings / r.DurationMin
}

var pickupWeights, dropoffWeights []float64

func init() {
	for _, z := range Zones {
		pickupWeights = append(pickupWeights, z.pickup)
		dropoffWeights = append(dropoffWeights, z.dropoff)
	}
}

// choose returns an index drawn with the given weights.
func choose(rng *rand.Rand, weights []float64) int {
	x := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if x < acc {
			return i
		}
	}
	return len(weights) - 1
}

func pick(rng *rand.Rand, p float64, a, b string) string {
	if rng.Float64() < p {
		return a
	}
	return b
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// GroupMean is the mean net earnings of one group of trips.
type GroupMean struct {
	Key   string  `json:"key"`
	Trips int     `json:"trips"`
	Mean  float64 `json:"mean"`
}

// HourMean is the mean net earnings of trips picked up in one hour of day.
type HourMean struct {
	Hour  int     `json:"hour"`
	Trips int     `json:"trips"`
	Mean  float64 `json:"mean"`
}
