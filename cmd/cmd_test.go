package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/excelinsight/internal/pipeline"
	"github.com/KaramelBytes/excelinsight/internal/profit"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const segmentsCSV = "Segment,Y1,Y2\nA,100,300\nB,200,100\nC,50,50\n"

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(s string) error {
	if f.err != nil {
		return f.err
	}
	f.text = s
	return nil
}

// resetFlags puts every flag back to its default so invocations don't leak
// into each other.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command in a fresh HOME and returns its output.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errb bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	err := rootCmd.Execute()
	return out.String(), errb.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	old := clip
	t.Cleanup(func() { clip = old })
	clip = &fakeClipboard{}
	return home
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestAnalyzeText(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)

	out, _, err := runCmd(t, "analyze", in)
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "[PREVIEW] first 3 of 3 rows")
	assert.Contains(t, out, "Category: Segment")
	assert.Contains(t, out, "Metrics: Y1, Y2")
	assert.Contains(t, out, "[INSIGHTS]")
}

func TestAnalyzeJSONWithEdits(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)

	out, _, err := runCmd(t, "analyze", in, "--json", "--preview-rows", "2", "--edit", "Segment A leads on Y2.")
	require.NoError(t, err)
	var v pipeline.View
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 3, v.Overview.Rows)
	assert.Len(t, v.Overview.Preview, 2)
	require.NotNil(t, v.Roles)
	assert.Equal(t, "Segment", v.Roles.Category)
	require.NotEmpty(t, v.Insights)
	assert.Equal(t, "Segment A leads on Y2.", v.Insights[0].Text)
	assert.Equal(t, pipeline.RuleEdited, v.Insights[0].Rule)
}

func TestAnalyzeWritesOutputFile(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)
	dst := filepath.Join(home, "out", "report.txt")

	out, _, err := runCmd(t, "analyze", in, "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote analysis to")
	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(body), "[SCHEMA]")
}

func TestAnalyzeWarnsWithoutShape(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "text.csv", "name,city\nann,oslo\nbob,rome\n")

	out, errOut, err := runCmd(t, "analyze", in)
	require.NoError(t, err)
	assert.Contains(t, out, "[PREVIEW]")
	assert.NotContains(t, out, "[CHART]")
	assert.Contains(t, errOut, "⚠ Warning:")
}

func TestAnalyzeRejectsBadKind(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)

	_, _, err := runCmd(t, "analyze", in, "--kind", "donut")
	require.Error(t, err)
}

func TestChartWritesPNG(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)
	dst := filepath.Join(home, "charts", "segments.png")

	out, _, err := runCmd(t, "chart", in, "--kind", "pie", "--out", dst, "--width", "400", "--height", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved")
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestChartWithoutShapeFails(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "text.csv", "name,city\nann,oslo\n")

	_, _, err := runCmd(t, "chart", in, "--out", filepath.Join(home, "x.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chart to render")
}

func TestDeckWritesSlides(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)
	dst := filepath.Join(home, "deck.pptx")

	out, _, err := runCmd(t, "deck", in, "--kinds", "grouped-bar,radar", "--out", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved 4 slides")
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))
}

func TestCopy(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)

	out, _, err := runCmd(t, "copy", in)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Copied")
	fc := clip.(*fakeClipboard)
	assert.Contains(t, fc.text, "Insights:")
}

func TestCopyFallsBackToStdout(t *testing.T) {
	home := setup(t)
	in := writeFile(t, home, "segments.csv", segmentsCSV)
	clip = &fakeClipboard{err: errors.New("no display")}

	out, errOut, err := runCmd(t, "copy", in)
	require.NoError(t, err)
	assert.Contains(t, errOut, "⚠ Warning:")
	assert.Contains(t, out, "Insights:")
}

func TestTripsGenerate(t *testing.T) {
	home := setup(t)
	dst := filepath.Join(home, "trips.csv")

	out, _, err := runCmd(t, "trips", "generate", "--trips", "50", "--seed", "7", "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated 50 trips")
	assert.Contains(t, out, "DRIVER PROFITABILITY DATA SUMMARY")

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	recs, err := trips.ReadCSV(f)
	require.NoError(t, err)
	assert.Len(t, recs, 50)
	assert.InDelta(t, trips.Generate(50, trips.NewRand(7))[0].DistanceKm, recs[0].DistanceKm, 1e-3)
}

func TestTripsReportJSON(t *testing.T) {
	setup(t)

	out, _, err := runCmd(t, "trips", "report", "--trips", "300", "--zone", "Downtown", "--json")
	require.NoError(t, err)
	var d profit.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Greater(t, d.Trips, 0)
	assert.Equal(t, []string{"Downtown"}, d.Filters.Zones)
	assert.Equal(t, "Downtown", d.BestZone)
}

func TestTripsCompare(t *testing.T) {
	setup(t)

	out, _, err := runCmd(t, "trips", "compare", "--by", "driver_type", "--trips", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Full-time")
	assert.Contains(t, out, "Part-time")

	_, _, err = runCmd(t, "trips", "compare", "Downtown", "Downtown", "--trips", "200")
	require.Error(t, err)
}

func TestConfigSetAndShow(t *testing.T) {
	setup(t)

	out, _, err := runCmd(t, "config", "set", "preview_rows", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved preview_rows = 25")

	out, _, err = runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "preview_rows: 25")
	assert.True(t, strings.Contains(out, "minio_secret_key: "))

	_, _, err = runCmd(t, "config", "set", "nope", "1")
	require.Error(t, err)
}
