package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/lanexopt/internal/constants"
)

// writeConfig stores body as <dir>/<name>.toml and returns the path without
// the extension, as LoadConfig expects it.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "setup")
	require.NoError(t, os.WriteFile(base+".toml", []byte(body), 0o644))
	return base
}

func loadSetup(t *testing.T, body, name string) (SetupParameters, error) {
	t.Helper()
	cfg, meta, err := LoadConfig(writeConfig(t, body))
	require.NoError(t, err)
	sp, ok := cfg.Setups[name]
	require.True(t, ok, "setup %s", name)
	err = sp.CheckAndUnify(name, &cfg, &meta)
	return sp, err
}

const presetConfig = `
OutputDir = "out"
InputUnits = ["mm", "pC"]
Camera = "Hamamatsu"
FNumber = 2.8
ObjectHeight = 300.0

[Setups.wide]
FocalLength = 50.0

[Setups.unit]
Magnification = -1.0
FNumber = 1.4
`

func TestCheckAndUnify_PresetAndGlobals(t *testing.T) {
	sp, err := loadSetup(t, presetConfig, "wide")
	require.NoError(t, err)

	assert.InDelta(t, 50e-3, sp.FocalLength, 1e-15)
	assert.Equal(t, 2.8, sp.FNumber)
	assert.InDelta(t, 0.3, sp.ObjectHeight, 1e-15)
	assert.Equal(t, constants.Hamamatsu.SensorHeight, sp.ImageHeight)
	assert.InDelta(t, -13e-3/0.3, sp.Magnification, 1e-15)
	assert.Equal(t, 6.5e-6, sp.PixelPitch)
	assert.Equal(t, 0.6, sp.QuantumEfficiency)
	assert.Equal(t, 30e3, sp.FullWell)
	assert.Equal(t, 16, sp.BitDepth)

	// defaults
	assert.Equal(t, constants.PeakBeamDensity, sp.PeakDensity)
	assert.Equal(t, constants.LanexEfficiency, sp.ScintillatorEfficiency)
	assert.Equal(t, 100, sp.DensityPoints)
	assert.True(t, sp.MakeDir)
	assert.Equal(t, []string{"mm", "pC"}, sp.OutputUnits())
}

func TestCheckAndUnify_DirectMagnification(t *testing.T) {
	sp, err := loadSetup(t, presetConfig, "unit")
	require.NoError(t, err)
	assert.Equal(t, -1., sp.Magnification)
	assert.Equal(t, 1.4, sp.FNumber)
	// the sensor height must not stand in when the magnification is given
	assert.Equal(t, 0., sp.ImageHeight)
}

func TestCheckAndUnify_LocalHeightsOverrideGlobalMagnification(t *testing.T) {
	sp, err := loadSetup(t, `
Magnification = -0.62
FNumber = 2.8
PixelPitch = 0.0065
QuantumEfficiency = 0.6
FullWell = 30000.0

[Setups.a]
ImageHeight = -13.0
ObjectHeight = 50.0
`, "a")
	require.NoError(t, err)
	assert.InDelta(t, -0.26, sp.Magnification, 1e-12)
	assert.InDelta(t, 6.5e-6, sp.PixelPitch, 1e-18)
}

func TestCheckAndUnify_Units(t *testing.T) {
	sp, err := loadSetup(t, `
InputUnits = ["nC", "mm"]
Magnification = -0.62
FNumber = 2.8
PixelPitch = 0.0065
QuantumEfficiency = 0.6
FullWell = 30000.0

[Setups.a]
PeakDensity = 47.0
ScintillatorEfficiency = 21.99
Guess = 1e-3
`, "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.047, sp.PeakDensity, 1e-15)
	assert.InDelta(t, 21.99e9, sp.ScintillatorEfficiency, 1)
	assert.InDelta(t, 1e-6, sp.Guess, 1e-18)
	assert.Equal(t, []string{"nC", "mm"}, sp.OutputUnits())
}

func TestCheckAndUnify_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "ambiguous conjugate",
			body: `
Camera = "Hamamatsu"
FNumber = 2.8
[Setups.a]
Magnification = -1.0
ImageHeight = -13.0
ObjectHeight = 300.0
`,
			want: "ambiguities",
		},
		{
			name: "image height without object height",
			body: `
Camera = "Hamamatsu"
FNumber = 2.8
[Setups.a]
ImageHeight = -13.0
`,
			want: "ObjectHeight",
		},
		{
			name: "missing camera parameters",
			body: `
FNumber = 2.8
[Setups.a]
Magnification = -1.0
PixelPitch = 0.0065
`,
			want: "FullWell",
		},
		{
			name: "partial preset",
			body: `
Camera = "GigE"
FNumber = 2.8
ObjectHeight = 300.0
[Setups.a]
FocalLength = 24.0
`,
			want: "PixelPitch",
		},
		{
			name: "unknown camera",
			body: `
Camera = "Phantom"
[Setups.a]
FNumber = 2.8
`,
			want: "unknown camera",
		},
		{
			name: "zero object height",
			body: `
Camera = "Hamamatsu"
FNumber = 2.8
[Setups.a]
ImageHeight = -13.0
ObjectHeight = 0.0
`,
			want: "object height is zero",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadSetup(t, tt.body, "a")
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, _, err := LoadConfig(writeConfig(t, `InputUnits = ["mm", "cm"]
[Setups.a]
FNumber = 2.8
`))
	assert.ErrorContains(t, err, "input unit conflict")

	_, _, err = LoadConfig(writeConfig(t, `OutputUnits = ["Torr"]
[Setups.a]
FNumber = 2.8
`))
	assert.ErrorContains(t, err, "output unit conflict")

	_, _, err = LoadConfig(writeConfig(t, `OutputDir = "out"`))
	assert.ErrorContains(t, err, "no setups")

	_, _, err = LoadConfig(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadConfig_LensFile(t *testing.T) {
	dir := t.TempDir()
	lenses := filepath.Join(dir, "primes.txt")
	require.NoError(t, os.WriteFile(lenses, []byte("# focal f-number\n24 2.8\n\n50 1.4\n"), 0o644))

	base := filepath.Join(dir, "lenses")
	require.NoError(t, os.WriteFile(base+".toml", []byte(`
Lenses = "`+filepath.ToSlash(lenses)+`"
Camera = "Hamamatsu"
Magnification = -0.62
`), 0o644))

	cfg, meta, err := LoadConfig(base)
	require.NoError(t, err)
	require.Len(t, cfg.Setups, 2)

	sp := cfg.Setups["primes_l2"]
	require.NoError(t, sp.CheckAndUnify("primes_l2", &cfg, &meta))
	assert.InDelta(t, 50e-3, sp.FocalLength, 1e-15)
	assert.Equal(t, 1.4, sp.FNumber)
	assert.Equal(t, -0.62, sp.Magnification)

	require.NoError(t, os.WriteFile(base+".toml", []byte(`
Lenses = "`+filepath.ToSlash(lenses)+`"
[Setups.a]
FNumber = 2.8
`), 0o644))
	_, _, err = LoadConfig(base)
	assert.ErrorContains(t, err, "not supported")
}

func TestLoadConfig_Surface(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, `
InputUnits = ["cm"]
[Surface]
Camera = "Hamamatsu"
FieldsOfView = [5.0, 30.0]
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Surface)
	assert.InDeltaSlice(t, []float64{0.05, 0.3}, cfg.Surface.FieldsOfView, 1e-15)
	assert.Equal(t, defaultFNumbers, cfg.Surface.FNumbers)
	assert.Equal(t, -13e-3, cfg.Surface.ImageHeight)
	assert.Equal(t, 6.5e-6, cfg.Surface.PixelPitch)

	_, _, err = LoadConfig(writeConfig(t, `
[Surface]
FNumbers = [1.4, 2.8]
`))
	assert.ErrorContains(t, err, "ImageHeight not found")
}

func TestSI(t *testing.T) {
	units, conflicts := checkUnits([]string{"pC"})
	require.Empty(t, conflicts)
	assert.Equal(t, []string{"pC", "mm"}, units)

	d := SI(1, densityUnits, units, true)
	assert.InDelta(t, 1e-6, d, 1e-21)
	assert.InDelta(t, 1, SI(d, densityUnits, units, false), 1e-12)

	assert.InDelta(t, 1e12, SI(1, Units("ScintillatorEfficiency"), units, true), 1)
	assert.Equal(t, 2.8, SI(2.8, Units("FNumber"), units, true))

	assert.Equal(t, "pC mm^-2", UnitLabel(densityUnits, units))
	assert.Equal(t, "um", UnitLabel(lengthUnits, []string{"um", "C"}))
	assert.Equal(t, "", UnitLabel(nil, units))
}

func TestLoadConfig_SurfaceLineouts(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, `
[Surface]
ImageHeight = -13.0
PixelPitch = 0.0065
FNumbers = [1.4, 2.8, 5.6]
FieldsOfView = [50.0, 300.0]
LineoutFieldsOfView = [300.0]
`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.4, 5.6}, cfg.Surface.LineoutFNumbers)
	assert.InDeltaSlice(t, []float64{0.3}, cfg.Surface.LineoutFieldsOfView, 1e-15)
}
