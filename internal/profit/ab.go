package profit

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level of the A/B check.
const Alpha = 0.05

// ABNote follows every A/B badge.
const ABNote = "Suggest further testing across more regions."

// ABResult compares Treatment against Control net earnings.
type ABResult struct {
	Available     bool    `json:"available"`
	Control       int     `json:"control_trips"`
	Treatment     int     `json:"treatment_trips"`
	ControlMean   float64 `json:"control_mean"`
	TreatmentMean float64 `json:"treatment_mean"`
	Lift          float64 `json:"lift_pct"`
	T             float64 `json:"t"`
	P             float64 `json:"p"`
	Significant   bool    `json:"significant"`
	Badge         string  `json:"badge"`
	Note          string  `json:"note"`
}

// ABTest runs a pooled two-sample t-test on the net earnings of each group.
// Both groups need at least two trips.
func ABTest(df dataframe.DataFrame) ABResult {
	control := groupValues(df, trips.Control)
	treat := groupValues(df, trips.Treatment)
	res := ABResult{Control: len(control), Treatment: len(treat), Note: ABNote}
	if len(control) < 2 || len(treat) < 2 {
		res.Badge = "Not enough trips in both A/B groups to compare."
		return res
	}
	res.Available = true
	res.ControlMean = stat.Mean(control, nil)
	res.TreatmentMean = stat.Mean(treat, nil)
	res.Lift = Lift(res.ControlMean, res.TreatmentMean)
	res.T, res.P = TTest(treat, control)
	res.Significant = res.P < Alpha

	mark := "⚠"
	if res.Significant {
		mark = "✓"
	}
	res.Badge = fmt.Sprintf("%s Treatment group outperformed control by %+.1f%% in net earnings. p = %.3f", mark, res.Lift, res.P)
	return res
}

func groupValues(df dataframe.DataFrame, group string) []float64 {
	sub := df.Filter(dataframe.F{Colname: colGroup, Comparator: series.Eq, Comparando: group})
	if sub.Err != nil || sub.Nrow() == 0 {
		return nil
	}
	return sub.Col(colNet).Float()
}

// TTest is Student's two-sample t-test with pooled variance. It returns the t
// statistic and the two-sided p-value.
func TTest(a, b []float64) (t, p float64) {
	na, nb := float64(len(a)), float64(len(b))
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	dof := na + nb - 2
	pooled := ((na-1)*va + (nb-1)*vb) / dof
	se := math.Sqrt(pooled * (1/na + 1/nb))
	if se == 0 {
		if ma == mb {
			return 0, 1
		}
		return math.Copysign(math.Inf(1), ma-mb), 0
	}
	t = (ma - mb) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	p = 2 * dist.Survival(math.Abs(t))
	return t, p
}
