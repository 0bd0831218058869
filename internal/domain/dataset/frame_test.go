package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molrank/pkg/errors"
)

func buildFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New("names", "potency", "toxicity")
	require.NoError(t, err)
	require.NoError(t, f.AppendRow([]Cell{Text("benzene"), Num(0.5), Num(1.0)}))
	require.NoError(t, f.AppendRow([]Cell{Text("ethanol"), Num(0.9), Num(0.1)}))
	require.NoError(t, f.AppendRow([]Cell{Text("methane"), Num(0.75), Null()}))
	require.NoError(t, f.AppendRow([]Cell{Text("butane"), Num(1.2), Num(0.02)}))
	return f
}

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New("a", "b", "a")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestAppendRow_WidthMismatch(t *testing.T) {
	f, err := New("a", "b")
	require.NoError(t, err)
	err = f.AppendRow([]Cell{Num(1)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRowWidthMismatch))
}

func TestSelect(t *testing.T) {
	f := buildFrame(t)

	sub, err := f.Select([]string{"toxicity", "potency"})
	require.NoError(t, err)
	assert.Equal(t, []string{"toxicity", "potency"}, sub.Columns())
	assert.Equal(t, 4, sub.NumRows())

	// Projection preserves row order.
	c, err := sub.Cell(1, "potency")
	require.NoError(t, err)
	assert.Equal(t, 0.9, c.Num)
}

func TestSelect_NamesEveryMissingColumn(t *testing.T) {
	f := buildFrame(t)
	_, err := f.Select([]string{"potency", "tox", "sol"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnMissing))
	assert.Contains(t, err.Error(), "tox")
	assert.Contains(t, err.Error(), "sol")
	assert.NotContains(t, err.Error(), "potency,")
}

func TestCompletenessMask(t *testing.T) {
	f := buildFrame(t)
	obj, err := f.Select([]string{"potency", "toxicity"})
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, true, false}, obj.CompletenessMask())

	// Over the whole frame text cells count as missing too.
	assert.Equal(t, []bool{true, true, true, true}, f.CompletenessMask())
}

func TestDropIncomplete(t *testing.T) {
	f := buildFrame(t)
	obj, err := f.Select([]string{"potency", "toxicity"})
	require.NoError(t, err)

	clean, err := obj.DropIncomplete(obj.CompletenessMask())
	require.NoError(t, err)
	assert.Equal(t, 3, clean.NumRows())

	m, err := clean.Matrix()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1.0}, {0.9, 0.1}, {1.2, 0.02}}, m)

	_, err = obj.DropIncomplete([]bool{true})
	assert.Error(t, err)
}

func TestMatrix_RejectsMissing(t *testing.T) {
	f := buildFrame(t)
	obj, err := f.Select([]string{"potency", "toxicity"})
	require.NoError(t, err)
	_, err = obj.Matrix()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotNumeric))
}

func TestSetColumn_OverwriteAndAppend(t *testing.T) {
	f := buildFrame(t)

	ranks := []Cell{Num(2), Num(1), Null(), Num(1)}
	require.NoError(t, f.SetColumn("pareto_rank", ranks))
	assert.Equal(t, []string{"names", "potency", "toxicity", "pareto_rank"}, f.Columns())

	// Overwriting keeps column order stable.
	require.NoError(t, f.SetColumn("pareto_rank", []Cell{Num(9), Num(9), Num(9), Num(9)}))
	assert.Equal(t, []string{"names", "potency", "toxicity", "pareto_rank"}, f.Columns())
	c, err := f.Cell(0, "pareto_rank")
	require.NoError(t, err)
	assert.Equal(t, 9.0, c.Num)

	err = f.SetColumn("short", []Cell{Num(1)})
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	f := buildFrame(t)
	c := f.Clone()
	require.NoError(t, c.SetColumn("potency", []Cell{Num(0), Num(0), Num(0), Num(0)}))

	orig, err := f.Cell(0, "potency")
	require.NoError(t, err)
	assert.Equal(t, 0.5, orig.Num)
}

func TestMinMaxScale(t *testing.T) {
	f, err := New("v", "k")
	require.NoError(t, err)
	require.NoError(t, f.AppendRow([]Cell{Num(10), Num(5)}))
	require.NoError(t, f.AppendRow([]Cell{Num(20), Num(5)}))
	require.NoError(t, f.AppendRow([]Cell{Null(), Num(5)}))
	require.NoError(t, f.AppendRow([]Cell{Num(30), Num(5)}))

	scaled, err := f.MinMaxScale([]string{"v", "k"})
	require.NoError(t, err)

	v, err := scaled.Column("v")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v[0].Num)
	assert.Equal(t, 0.5, v[1].Num)
	assert.True(t, v[2].IsMissing())
	assert.Equal(t, 1.0, v[3].Num)

	// Constant columns scale to zero.
	k, err := scaled.Column("k")
	require.NoError(t, err)
	for _, c := range k {
		assert.Equal(t, 0.0, c.Num)
	}

	_, err = f.MinMaxScale([]string{"absent"})
	assert.Error(t, err)
}
