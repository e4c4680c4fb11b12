package trips

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/shopspring/decimal"
)

// TimeLayout is the pickup_time format in CSV output.
const TimeLayout = "2006-01-02 15:04:05"

// Header is the CSV column order.
var Header = []string{
	"trip_id", "driver_id", "pickup_zone", "dropoff_zone",
	"trip_distance_km", "trip_duration_min", "pickup_time",
	"fare_amount", "driver_payout", "wait_time_min", "cancellation",
	"driver_type", "ab_group",
	"gas_cost", "time_cost", "wait_cost", "total_expenses",
	"net_earnings", "profitability_ratio",
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func (r Record) row() []string {
	cancel := "False"
	if r.Cancelled {
		cancel = "True"
	}
	return []string{
		r.TripID, r.DriverID, r.PickupZone, r.DropoffZone,
		fixed(r.DistanceKm, 3), fixed(r.DurationMin, 3), r.PickupTime.Format(TimeLayout),
		fixed(r.Fare, 2), fixed(r.Payout, 2), fixed(r.WaitMin, 1), cancel,
		r.DriverType, r.ABGroup,
		fixed(r.GasCost, 2), fixed(r.TimeCost, 2), fixed(r.WaitCost, 2), fixed(r.TotalExpenses, 2),
		fixed(r.NetEarnings, 2), fixed(r.Profitability, 4),
	}
}

// WriteCSV writes recs with a header row. Money is rounded to cents.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write(r.row()); err != nil {
			return fmt.Errorf("write %s: %w", r.TripID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses records written by WriteCSV. Columns are matched by header
// name, so extra columns are ignored; missing required ones are rejected.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInputRejected, "read trips csv", err)
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrKindInputRejected, "trips csv is empty")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, h := range Header {
		if _, ok := idx[h]; !ok {
			return nil, errs.Newf(errs.ErrKindInputRejected, "trips csv is missing column %q", h)
		}
	}

	out := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		p := rowParser{row: row, idx: idx}
		rec := Record{
			TripID:        p.str("trip_id"),
			DriverID:      p.str("driver_id"),
			PickupZone:    p.str("pickup_zone"),
			DropoffZone:   p.str("dropoff_zone"),
			DistanceKm:    p.num("trip_distance_km"),
			DurationMin:   p.num("trip_duration_min"),
			PickupTime:    p.stamp("pickup_time"),
			Fare:          p.num("fare_amount"),
			Payout:        p.num("driver_payout"),
			WaitMin:       p.num("wait_time_min"),
			Cancelled:     strings.EqualFold(p.str("cancellation"), "true"),
			DriverType:    p.str("driver_type"),
			ABGroup:       p.str("ab_group"),
			GasCost:       p.num("gas_cost"),
			TimeCost:      p.num("time_cost"),
			WaitCost:      p.num("wait_cost"),
			TotalExpenses: p.num("total_expenses"),
			NetEarnings:   p.num("net_earnings"),
			Profitability: p.num("profitability_ratio"),
		}
		if p.err != nil {
			return nil, errs.Wrap(errs.ErrKindInputRejected, fmt.Sprintf("trips csv row %d", n+2), p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// rowParser keeps the first conversion error of a row.
type rowParser struct {
	row []string
	idx map[string]int
	err error
}

func (p *rowParser) str(col string) string {
	i := p.idx[col]
	if i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) num(col string) float64 {
	s := p.str(col)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *rowParser) stamp(col string) time.Time {
	v, err := time.Parse(TimeLayout, p.str(col))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}
