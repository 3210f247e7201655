package utils

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgmaxAndMax(t *testing.T) {
	assert.Equal(t, 2, Argmax([]float64{1, 3, 7, 2}))
	assert.Equal(t, 0, Argmax([]int{5, 5, 1}))
	assert.Equal(t, 7., MaxSlice([]float64{1, 3, 7, 2}))
	assert.Equal(t, 0., MaxSlice([]float64{}))
}

func TestLinspace(t *testing.T) {
	s := Linspace(10e-3, 85e-3, 100)
	require.Len(t, s, 100)
	assert.Equal(t, 10e-3, s[0])
	assert.Equal(t, 85e-3, s[99])
	assert.InDelta(t, 75e-3/99, s[1]-s[0], 1e-15)

	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{3}, Linspace(3, 4, 1))
}

func TestLogspace(t *testing.T) {
	s := Logspace(-16, -7, 10)
	require.Len(t, s, 10)
	for i := range s {
		assert.InDelta(t, 1, s[i]/math.Pow(10, float64(-16+i)), 1e-12)
	}
	g := Geomspace(1e-10, 1e-1, 10)
	assert.InDelta(t, 1, g[0]/1e-10, 1e-12)
	assert.InDelta(t, 1, g[9]/1e-1, 1e-12)
}

func TestRelativeDifference(t *testing.T) {
	assert.Equal(t, 0., RelativeDifference(0, 0))
	assert.InDelta(t, 0.5, RelativeDifference(1, 2), 1e-15)
	assert.InDelta(t, 2., RelativeDifference(-1, 1), 1e-15)
}

func TestBoundedBinarySearch(t *testing.T) {
	cond := func(x float64) bool { return x >= 0.3 }
	_, tr, steps, err := BoundedBinarySearch(cond, 0, 1, 1e-9, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, tr, 1e-9)
	assert.Equal(t, 30, steps)

	_, _, steps, err = BoundedBinarySearch(cond, 0, 1, 1e-9, 5)
	assert.ErrorIs(t, err, ErrIterationBudget)
	assert.Equal(t, 5, steps)
}

func TestBracketIncreasing(t *testing.T) {
	cond := func(x float64) bool { return x >= 4.5 }

	f, tr, _, err := BracketIncreasing(cond, 0, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 4., f)
	assert.Equal(t, 5., tr)

	f, tr, _, err = BracketIncreasing(cond, 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 4., f)
	assert.Equal(t, 5., tr)

	_, _, steps, err := BracketIncreasing(func(float64) bool { return false }, 0, 1, 7)
	assert.ErrorIs(t, err, ErrNoBracket)
	assert.Equal(t, 7, steps)
}

func TestWriteCSV_NaturalOrder(t *testing.T) {
	var buf bytes.Buffer
	data := CSV{{"lens10", "1"}, {"lens2", "2"}, {"lens1", "3"}}
	require.NoError(t, WriteCSV(&buf, []string{"name", "value"}, data, true))
	assert.Equal(t, "name,value\nlens1,3\nlens2,2\nlens10,1\n", buf.String())
}

func TestWriteAsCSV(t *testing.T) {
	dir := t.TempDir() + "/"
	require.NoError(t, WriteAsCSV(CSV{{"b", "1"}, {"a", "2"}}, dir, "fill", "setups/hamamatsu.toml", []string{"x", "y"}, true))
	content, err := os.ReadFile(filepath.Join(dir, "fill", "hamamatsu.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x,y\na,2\nb,1\n", string(content))

	require.NoError(t, WriteAsCSV(CSV{{"a", "2"}}, dir, "fill", "gige", nil, false))
	_, err = os.Stat(filepath.Join(dir, "gige_fill.csv"))
	assert.NoError(t, err)
}

func TestReadFloatPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lenses.txt")
	require.NoError(t, os.WriteFile(path, []byte("# focal f-number\n24 1.4\n\n50 2.8 # nikon\n"), 0644))
	pairs, err := ReadFloatPairs(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{24, 1.4}, {50, 2.8}}, pairs)

	require.NoError(t, os.WriteFile(path, []byte("24 1.4 7\n"), 0644))
	_, err = ReadFloatPairs(path)
	assert.ErrorContains(t, err, "expected 2 numbers")

	_, err = ReadFloatPairs(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "error opening file")
}

func TestGetFilename(t *testing.T) {
	assert.Equal(t, "hamamatsu", GetFilename("/tmp/setups/hamamatsu.toml"))
	assert.Equal(t, "lenses", GetFilename("lenses"))
}
