// Package analysis runs the camera response chain for one configured setup
// and prepares its outputs: CSV tables, HTML charts and database records.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/wildstyl3r/lanexopt/internal/camera"
	"github.com/wildstyl3r/lanexopt/internal/config"
	"github.com/wildstyl3r/lanexopt/internal/optics"
	"github.com/wildstyl3r/lanexopt/internal/saturation"
	"github.com/wildstyl3r/lanexopt/internal/store"
	"github.com/wildstyl3r/lanexopt/internal/utils"
)

// apertureDrift is the largest relative disagreement tolerated between the
// two aperture fraction forms before a warning is logged.
const apertureDrift = 1e-9

type Analysis struct {
	Name       string
	Parameters *config.SetupParameters
	Chain      *camera.Chain

	ObjectDistance float64 // [m], NaN without a focal length
	ImageDistance  float64 // [m], NaN without a focal length

	PeakFill   float64
	PeakRegime camera.Regime

	Saturation saturation.Result
	NoiseFloor *saturation.Result // nil when the camera has no noise level

	ReferenceCounts float64 // at Parameters.ReferenceDensity
	ReferenceADC    float64

	Densities []float64 // [C m^-2]
	Fills     []float64
}

func NewAnalysis(name string, p *config.SetupParameters) (*Analysis, error) {
	if err := checkSweeps(p); err != nil {
		return nil, err
	}
	o := camera.Optics{
		FocalLength:   p.FocalLength,
		FNumber:       p.FNumber,
		ObjectHeight:  p.ObjectHeight,
		ImageHeight:   p.ImageHeight,
		Magnification: p.Magnification,
	}
	cam := camera.Model{
		QuantumEfficiency: p.QuantumEfficiency,
		PixelPitch:        p.PixelPitch,
		FullWell:          p.FullWell,
		NoiseCounts:       p.NoiseCounts,
		BitDepth:          p.BitDepth,
	}
	ch, err := camera.NewChain(o, camera.Scintillator{Efficiency: p.ScintillatorEfficiency}, cam)
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		Name:           name,
		Parameters:     p,
		Chain:          ch,
		ObjectDistance: math.NaN(),
		ImageDistance:  math.NaN(),
	}

	if p.FocalLength > 0 {
		if err := a.distances(); err != nil {
			return nil, err
		}
	}

	if a.PeakFill, err = ch.FillFraction(p.PeakDensity); err != nil {
		return nil, fmt.Errorf("peak density: %w", err)
	}
	a.PeakRegime = camera.Classify(a.PeakFill, cam)

	opts := saturation.Options{Guess: p.Guess}
	if a.Saturation, err = saturation.SolveChain(ch, opts); err != nil {
		return nil, fmt.Errorf("saturation density: %w", err)
	}
	if cam.NoiseFraction() > 0 {
		nf, err := saturation.NoiseFloor(ch, opts)
		if err != nil {
			return nil, fmt.Errorf("noise floor density: %w", err)
		}
		a.NoiseFloor = &nf
	}

	if a.ReferenceCounts, err = ch.Counts(p.ReferenceDensity); err != nil {
		return nil, fmt.Errorf("reference density: %w", err)
	}
	a.ReferenceADC = cam.ADCCounts(a.ReferenceCounts / cam.FullWell)

	a.Densities = utils.Geomspace(p.DensityMin, p.DensityMax, p.DensityPoints)
	if a.Fills, err = ch.Sweep(a.Densities); err != nil {
		return nil, fmt.Errorf("density sweep: %w", err)
	}
	return a, nil
}

func checkSweeps(p *config.SetupParameters) error {
	points := []struct {
		field string
		n     int
	}{
		{"density points", p.DensityPoints},
		{"focal length points", p.FocalLengthPoints},
	}
	for _, pt := range points {
		if pt.n < 1 {
			return &optics.ValidationError{Field: pt.field, Value: float64(pt.n), Reason: "must be at least 1"}
		}
	}
	if err := optics.Positive("minimal density", p.DensityMin); err != nil {
		return err
	}
	return optics.Positive("maximal density", p.DensityMax)
}

// distances resolves the conjugate distances and cross-checks the aperture
// fraction computed from the object distance against the magnification form.
func (a *Analysis) distances() error {
	o := a.Chain.Optics()
	od, err := optics.ResolveObjectDistance(o.FocalLength, optics.WithMagnification(o.Magnification))
	if err != nil {
		return fmt.Errorf("object distance: %w", err)
	}
	id, err := optics.ImageDistance(o.FocalLength, od)
	if err != nil {
		return fmt.Errorf("image distance: %w", err)
	}
	a.ObjectDistance, a.ImageDistance = od, id

	byDistance, err := optics.ApertureFractionByDistance(o.FocalLength, o.FNumber, od)
	if err != nil {
		return err
	}
	byMagnification, err := o.ApertureFraction()
	if err != nil {
		return err
	}
	if d := utils.RelativeDifference(byDistance, byMagnification); d > apertureDrift {
		slog.Warn("aperture fraction forms disagree", "setup", a.Name, "relative", d)
	}
	return nil
}

// ObjectDistanceCurve returns the screen-to-lens distance needed by each
// focal length to keep the setup's magnification.
func (a *Analysis) ObjectDistanceCurve(focalLengths []float64) ([]float64, error) {
	m := a.Chain.Optics().Magnification
	out := make([]float64, len(focalLengths))
	var errs []error
	for i, f := range focalLengths {
		od, err := optics.ObjectDistance(f, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("f = %g: %w", f, err))
			continue
		}
		out[i] = od
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// FocalLengths is the focal length sweep configured for the setup.
func (a *Analysis) FocalLengths() []float64 {
	p := a.Parameters
	return utils.Linspace(p.FocalLengthMin, p.FocalLengthMax, p.FocalLengthPoints)
}

func (a *Analysis) noiseFloorDensity() float64 {
	if a.NoiseFloor == nil {
		return math.NaN()
	}
	return a.NoiseFloor.Density
}

// Log reports the setup at info level, in the setup's output units.
func (a *Analysis) Log(logger *slog.Logger) {
	units := a.Parameters.OutputUnits()
	density := func(v float64) float64 { return config.SI(v, config.Units("PeakDensity"), units, false) }
	length := func(v float64) float64 { return config.SI(v, config.Units("FocalLength"), units, false) }
	densityUnit := config.UnitLabel(config.Units("PeakDensity"), units)
	lengthUnit := config.UnitLabel(config.Units("FocalLength"), units)

	attrs := []any{
		"setup", a.Name,
		"N", a.Chain.Optics().FNumber,
		"m", a.Chain.Optics().Magnification,
		"peak fill", a.PeakFill,
		"regime", a.PeakRegime,
		"saturation [" + densityUnit + "]", density(a.Saturation.Density),
		"reference counts", a.ReferenceADC,
	}
	if a.NoiseFloor != nil {
		attrs = append(attrs, "noise floor ["+densityUnit+"]", density(a.NoiseFloor.Density))
	}
	if !math.IsNaN(a.ObjectDistance) {
		attrs = append(attrs, "object distance ["+lengthUnit+"]", length(a.ObjectDistance))
	}
	logger.Info("setup evaluated", attrs...)
	if a.PeakRegime == camera.Saturated {
		logger.Warn("peak density saturates the camera", "setup", a.Name, "fill", a.PeakFill)
	}
}

// Record converts the analysis into its database row.
func (a *Analysis) Record() (store.Setup, error) {
	o := a.Chain.Optics()
	peak, err := a.Chain.Evaluate(a.Parameters.PeakDensity)
	if err != nil {
		return store.Setup{}, fmt.Errorf("setup %s: %w", a.Name, err)
	}
	params, err := json.Marshal(a.Parameters)
	if err != nil {
		return store.Setup{}, fmt.Errorf("setup %s parameters: %w", a.Name, err)
	}
	return store.Setup{
		Name:              a.Name,
		Camera:            a.Parameters.Camera,
		FocalLength:       o.FocalLength,
		FNumber:           o.FNumber,
		Magnification:     o.Magnification,
		ObjectDistance:    nanToZero(a.ObjectDistance),
		ApertureFraction:  peak.ApertureFraction,
		PeakDensity:       a.Parameters.PeakDensity,
		PeakFill:          a.PeakFill,
		Regime:            a.PeakRegime.String(),
		SaturationDensity: a.Saturation.Density,
		NoiseFloorDensity: nanToZero(a.noiseFloorDensity()),
		ReferenceCounts:   a.ReferenceCounts,
		Parameters:        params,
	}, nil
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
