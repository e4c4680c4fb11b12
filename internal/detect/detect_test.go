package detect

import (
	"math"
	"testing"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(name string, v ...float64) *analysis.Column { return analysis.NewNumericColumn(name, v) }
func txt(name string, v ...string) *analysis.Column  { return analysis.NewTextColumn(name, v) }

func TestDetectTextFirstColumn(t *testing.T) {
	tbl := analysis.MustNew("s",
		txt("Region", "A", "B"),
		num("Y1", 1, 2),
		txt("Note", "x", "y"),
		num("Y2", 3, 4),
		num("Y3", 5, math.NaN()),
	)
	r, err := Detect(tbl)
	require.NoError(t, err)
	assert.Equal(t, "Region", r.Category)
	assert.Equal(t, []string{"Y1", "Y2", "Y3"}, r.Metrics)
	assert.True(t, r.Valid())
}

func TestDetectAllowListedNumericFirstColumn(t *testing.T) {
	for _, name := range []string{"ID", "segment", "Unnamed: 0", "Index"} {
		tbl := analysis.MustNew("s", num(name, 1, 2), num("a", 1, 2), num("b", 3, 4), txt("label", "x", "y"))
		r, err := Detect(tbl)
		require.NoError(t, err, name)
		assert.Equal(t, name, r.Category)
		assert.Equal(t, []string{"a", "b"}, r.Metrics)
	}
}

func TestDetectFallbacks(t *testing.T) {
	// first text column wins when the first column is numeric and not allow-listed
	tbl := analysis.MustNew("s", num("a", 1, 2), txt("label", "x", "y"), num("b", 3, 4), num("c", 5, 6))
	r, err := Detect(tbl)
	require.NoError(t, err)
	assert.Equal(t, "label", r.Category)
	assert.Equal(t, []string{"a", "b", "c"}, r.Metrics)

	// no text column at all: the first column is used unconditionally
	tbl = analysis.MustNew("s", num("year", 2020, 2021), num("b", 3, 4), num("c", 5, 6))
	r, err = Detect(tbl)
	require.NoError(t, err)
	assert.Equal(t, "year", r.Category)
	assert.Equal(t, []string{"b", "c"}, r.Metrics)
}

func TestDetectNoShape(t *testing.T) {
	cases := map[string]*analysis.Table{
		"single column": analysis.MustNew("s", num("a", 1)),
		"one metric":    analysis.MustNew("s", txt("k", "x"), num("a", 1)),
		"no numerics":   analysis.MustNew("s", txt("k", "x"), txt("v", "y"), analysis.NewBooleanColumn("b", []bool{true})),
		"empty":         analysis.MustNew("s"),
	}
	for name, tbl := range cases {
		r, err := Detect(tbl)
		assert.ErrorIs(t, err, ErrNoShape, name)
		assert.True(t, errs.IsShapeMismatch(err), name)
		assert.Equal(t, Roles{}, r, name)
	}
}

func TestOverride(t *testing.T) {
	tbl := analysis.MustNew("s", txt("k", "x"), num("a", 1), num("b", 2), num("c", 3))

	r, err := Override(tbl, "k", []string{"c", "missing", "k", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, r.Metrics)

	_, err = Override(tbl, "nope", []string{"a", "b"})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Override(tbl, "k", []string{"a"})
	assert.ErrorIs(t, err, ErrNoShape)
}
