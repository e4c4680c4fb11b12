// Package insight derives up to three templated sentences from a table whose
// category and metric columns are already known.
package insight

import (
	"fmt"
	"math"
	"regexp"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/detect"
	"github.com/dustin/go-humanize"
)

// MaxInsights caps the number of sentences Generate returns.
const MaxInsights = 3

// maxValueLimit caps how many per-metric max sentences are emitted.
const maxValueLimit = 2

// Rule names the heuristic that produced an insight.
type Rule string

const (
	RuleTotal     Rule = "total-dominance"
	RuleMaxValue  Rule = "max-value"
	RuleShare     Rule = "contribution-share"
	RuleRatio     Rule = "ratio-comparison"
	RuleDominance Rule = "dominance"
)

// Insight is one generated sentence and the rule that produced it.
type Insight struct {
	Text string `json:"text"`
	Rule Rule   `json:"rule"`
}

// Phrase maps a metric-name pattern to the verb phrase of the total-dominance sentence.
type Phrase struct {
	Pattern *regexp.Regexp
	Text    string
}

// DefaultPhrase is used when no entry of Phrases matches.
const DefaultPhrase = "has the highest total value"

// Phrases is evaluated in order; the first matching pattern wins.
var Phrases = []Phrase{
	{regexp.MustCompile(`(?i)revenue|sales|total`), "drives topline value"},
	{regexp.MustCompile(`(?i)incidents|failures|errors`), "dominates reported counts"},
	{regexp.MustCompile(`(?i)share|percent|ratio`), "commands the largest share"},
}

// PhraseFor returns the total-dominance phrase for a metric name.
func PhraseFor(metric string) string {
	for _, p := range Phrases {
		if p.Pattern.MatchString(metric) {
			return p.Text
		}
	}
	return DefaultPhrase
}

// collector appends unique, non-empty sentences until the cap is reached.
type collector struct {
	out  []Insight
	seen map[string]bool
}

func (c *collector) add(rule Rule, text string) bool {
	if text == "" || c.full() || c.seen[text] {
		return false
	}
	c.seen[text] = true
	c.out = append(c.out, Insight{Text: text, Rule: rule})
	return true
}

func (c *collector) full() bool { return len(c.out) >= MaxInsights }

// Generate evaluates the rules in priority order and stops at MaxInsights.
// It never mutates t and returns the same output for the same input.
func Generate(t *analysis.Table, roles detect.Roles) []Insight {
	cat := t.Column(roles.Category)
	if cat == nil {
		return nil
	}
	var metrics []*analysis.Column
	for _, name := range roles.Metrics {
		if c := t.Column(name); c != nil && c.Type == analysis.Numeric {
			metrics = append(metrics, c)
		}
	}
	if len(metrics) == 0 {
		return nil
	}

	c := &collector{seen: map[string]bool{}}
	totals := make([]float64, len(metrics))
	for i, m := range metrics {
		totals[i] = sum(m)
	}

	top := argmax(totals)
	c.add(RuleTotal, fmt.Sprintf("%s %s across all segments.", metrics[top].Name, PhraseFor(metrics[top].Name)))

	winners := make([]int, len(metrics))
	emitted := 0
	for i, m := range metrics {
		winners[i] = maxRow(m)
		if c.full() || emitted >= maxValueLimit || winners[i] < 0 {
			continue
		}
		v, _ := m.Float(winners[i])
		if c.add(RuleMaxValue, fmt.Sprintf("%s has the highest %s value (%s).", cat.String(winners[i]), m.Name, humanize.Commaf(v))) {
			emitted++
		}
	}

	if !c.full() {
		shareInsight(c, metrics, totals)
	}
	if !c.full() {
		ratioInsights(c, t.Len(), cat, metrics)
	}
	if !c.full() {
		dominanceInsight(c, cat, winners)
	}
	return c.out
}

// Texts returns the sentences of ins in order.
func Texts(ins []Insight) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.Text
	}
	return out
}

func shareInsight(c *collector, metrics []*analysis.Column, totals []float64) {
	var grand float64
	for _, v := range totals {
		grand += v
	}
	if grand <= 0 {
		return
	}
	best, bestPct := -1, math.Inf(-1)
	for i, v := range totals {
		pct := math.Round(v/grand*1000) / 10
		if pct > bestPct {
			best, bestPct = i, pct
		}
	}
	if bestPct > 50 {
		c.add(RuleShare, fmt.Sprintf("%s contributes %.0f%% of the total across all metrics.", metrics[best].Name, bestPct))
	}
}

// ratioInsights emits at most one sentence per row, for the first ordered
// metric pair where a >= 2b with b positive.
func ratioInsights(c *collector, rows int, cat *analysis.Column, metrics []*analysis.Column) {
	for r := 0; r < rows && !c.full(); r++ {
	pairs:
		for _, a := range metrics {
			av, ok := a.Float(r)
			if !ok {
				continue
			}
			for _, b := range metrics {
				if a == b {
					continue
				}
				bv, ok := b.Float(r)
				if !ok || bv <= 0 {
					continue
				}
				if av >= 2*bv {
					c.add(RuleRatio, fmt.Sprintf("%s's %s is double that of %s.", cat.String(r), a.Name, b.Name))
					break pairs
				}
			}
		}
	}
}

func dominanceInsight(c *collector, cat *analysis.Column, winners []int) {
	wins := map[string]int{}
	var order []string
	for _, row := range winners {
		if row < 0 {
			continue
		}
		key := cat.String(row)
		if _, ok := wins[key]; !ok {
			order = append(order, key)
		}
		wins[key]++
	}
	for _, key := range order {
		if wins[key] > 1 {
			c.add(RuleDominance, fmt.Sprintf("%s is dominant across multiple metrics.", key))
			return
		}
	}
}

func sum(c *analysis.Column) float64 {
	var s float64
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok {
			s += v
		}
	}
	return s
}

// maxRow returns the first row holding the column maximum, or -1 if every cell is missing.
func maxRow(c *analysis.Column) int {
	best, bestV := -1, math.Inf(-1)
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Float(i)
		if ok && (best < 0 || v > bestV) {
			best, bestV = i, v
		}
	}
	return best
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
