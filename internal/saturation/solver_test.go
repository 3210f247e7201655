package saturation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/lanexopt/internal/camera"
	"github.com/wildstyl3r/lanexopt/internal/constants"
	"github.com/wildstyl3r/lanexopt/internal/optics"
)

func fixtureChain(t *testing.T, efficiency float64) *camera.Chain {
	t.Helper()
	ch, err := camera.NewChain(
		camera.Optics{FNumber: math.Sqrt(8), Magnification: -0.62},
		camera.Scintillator{Efficiency: efficiency},
		camera.Model{QuantumEfficiency: 0.6, PixelPitch: 6.5e-6, FullWell: 30e3, NoiseCounts: 40, BitDepth: 16},
	)
	require.NoError(t, err)
	return ch
}

func TestSolveChain_MatchesAnalyticInverse(t *testing.T) {
	ch := fixtureChain(t, constants.LanexEfficiency)
	res, err := SolveChain(ch, Options{})
	require.NoError(t, err)

	want, err := ch.Density(30e3)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Density/want, 1e-6)
	assert.InDelta(t, 30e3, res.Counts, 30e3*1e-6)
	assert.Less(t, res.Residual, 1e-6)
	assert.LessOrEqual(t, res.Iterations, 200)
	// peak density is far above saturation
	assert.Less(t, res.Density, constants.PeakBeamDensity/1000)
}

func TestSolve_IndependentOfGuess(t *testing.T) {
	ch := fixtureChain(t, constants.LanexEfficiency)
	base, err := SolveChain(ch, Options{Guess: 1e-5})
	require.NoError(t, err)
	for _, k := range []float64{0.1, 10, 1e-4, 1e4} {
		res, err := SolveChain(ch, Options{Guess: 1e-5 * k})
		require.NoError(t, err, "guess factor %v", k)
		assert.InDelta(t, 1, res.Density/base.Density, 2e-6, "guess factor %v", k)
	}
}

func TestSolve_Target(t *testing.T) {
	resp := func(d float64) (float64, error) { return 3e4 * d, nil }
	res, err := Solve(resp, Options{Target: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5/3e4, res.Density, 0.5/3e4*1e-6)
	assert.InDelta(t, 0.5, res.Fill, 1e-6)
}

func TestNoiseFloor(t *testing.T) {
	ch := fixtureChain(t, constants.LanexEfficiency)
	res, err := NoiseFloor(ch, Options{})
	require.NoError(t, err)
	want, err := ch.Density(40. / 65536. * 30e3)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Density/want, 1e-6)

	sat, err := SolveChain(ch, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 65536./40., sat.Density/res.Density, 1e-2)

	quiet, err := camera.NewChain(ch.Optics(), ch.Scintillator(), camera.Model{QuantumEfficiency: 0.6, PixelPitch: 6.5e-6, FullWell: 30e3})
	require.NoError(t, err)
	_, err = NoiseFloor(quiet, Options{})
	assert.ErrorIs(t, err, optics.ErrValidation)
}

func TestSolve_ZeroGainDoesNotConverge(t *testing.T) {
	ch := fixtureChain(t, 0)
	_, err := SolveChain(ch, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, optics.ErrConvergence)

	var ce *optics.ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 200, ce.Iterations)
	assert.Equal(t, 1., ce.Residual)
	assert.Contains(t, ce.Error(), "no sign change")
}

func TestSolve_IterationBudget(t *testing.T) {
	ch := fixtureChain(t, constants.LanexEfficiency)
	_, err := SolveChain(ch, Options{MaxIterations: 10})
	require.Error(t, err)
	var ce *optics.ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.LessOrEqual(t, ce.Iterations, 10)
	assert.Greater(t, ce.Density, 0.)
}

func TestSolve_DiscontinuousResponse(t *testing.T) {
	step := func(d float64) (float64, error) {
		if d < 1e-3 {
			return 0, nil
		}
		return 2, nil
	}
	res, err := Solve(step, Options{})
	assert.ErrorIs(t, err, optics.ErrConvergence)
	assert.ErrorContains(t, err, "residual above tolerance")
	assert.InDelta(t, 1e-3, res.Density, 1e-9)
}

func TestSolve_ResponseError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Solve(func(float64) (float64, error) { return 0, boom }, Options{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, optics.ErrConvergence)
}

func TestSolve_InvalidOptions(t *testing.T) {
	resp := func(d float64) (float64, error) { return d, nil }
	for name, opts := range map[string]Options{
		"negative guess":     {Guess: -1},
		"expansion below 1":  {Expansion: 0.5},
		"negative target":    {Target: -1},
		"negative budget":    {MaxIterations: -3},
		"negative tolerance": {Tolerance: -1e-6},
	} {
		_, err := Solve(resp, opts)
		assert.ErrorIs(t, err, optics.ErrValidation, name)
	}
}
