package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/lanexopt/internal/analysis"
	"github.com/wildstyl3r/lanexopt/internal/config"
	"github.com/wildstyl3r/lanexopt/internal/constants"
	"github.com/wildstyl3r/lanexopt/internal/surface"
)

func newAnalysis(t *testing.T, name string, fNumber float64) *analysis.Analysis {
	t.Helper()
	p := &config.SetupParameters{
		Camera:                 "Hamamatsu",
		FocalLength:            50e-3,
		FNumber:                fNumber,
		Magnification:          -0.62,
		PixelPitch:             6.5e-6,
		QuantumEfficiency:      0.6,
		FullWell:               30e3,
		NoiseCounts:            40,
		BitDepth:               16,
		ScintillatorEfficiency: constants.LanexEfficiency,
		PeakDensity:            constants.PeakBeamDensity,
		ReferenceDensity:       constants.SingleCountDensity,
		DensityMin:             1e-10,
		DensityMax:             1e-1,
		DensityPoints:          5,
		FocalLengthMin:         10e-3,
		FocalLengthMax:         85e-3,
		FocalLengthPoints:      3,
	}
	p.SetOutputUnits([]string{"mm", "pC"})
	a, err := analysis.NewAnalysis(name, p)
	require.NoError(t, err)
	return a
}

func TestRecord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	analyses := []*analysis.Analysis{
		newAnalysis(t, "fast", 1.4),
		newAnalysis(t, "slow", 8),
	}
	s, err := surface.Evaluate([]float64{1.4, 2.8}, []float64{0.05, 0.3}, -13e-3, 6.5e-6)
	require.NoError(t, err)

	previous, best, err := record(dbPath, "lanex", analyses, s, 0)
	require.NoError(t, err)
	assert.Nil(t, previous)
	assert.Empty(t, best)

	previous, best, err = record(dbPath, "lanex", analyses[:1], nil, 3)
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.Len(t, previous.Setups, 2)
	assert.Equal(t, "fast", previous.Setups[0].Name)
	assert.Len(t, previous.Surface, 4)
	assert.Equal(t, 1, previous.Surface[0].Rank)

	// the slower lens tolerates the denser beam
	require.Len(t, best, 3)
	assert.Equal(t, "slow", best[0].Name)
	assert.Equal(t, "fast", best[1].Name)
	assert.InDelta(t, 1, best[0].SaturationDensity/best[1].SaturationDensity/math.Pow(8/1.4, 2), 1e-6)
}
