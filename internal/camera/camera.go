// Package camera converts a beam's areal charge density on the scintillator
// screen into the counts a single camera pixel records.
//
// The response chain is
//
//	counts = ρ · S · A(N, m) · (p/m)² · QE
//
// where ρ is the beam density [C m^-2], S the scintillator efficiency
// [photons C^-1 sr^-1], A the aperture collection fraction, p the pixel pitch
// [m], m the magnification and QE the sensor quantum efficiency. Every
// quantity is SI; unit conversion is the caller's job.
package camera

import (
	"math"

	"github.com/wildstyl3r/lanexopt/internal/optics"
)

// Optics is the imaging configuration between screen and sensor.
type Optics struct {
	FocalLength   float64 // [m], optional for the response chain
	FNumber       float64
	ObjectHeight  float64 // [m], field of view on the screen
	ImageHeight   float64 // [m]
	Magnification float64
}

// NewOptics derives the magnification from the image and object heights.
func NewOptics(focalLength, fNumber, imageHeight, objectHeight float64) (Optics, error) {
	m, err := optics.Magnification(imageHeight, objectHeight)
	if err != nil {
		return Optics{}, err
	}
	o := Optics{
		FocalLength:   focalLength,
		FNumber:       fNumber,
		ObjectHeight:  objectHeight,
		ImageHeight:   imageHeight,
		Magnification: m,
	}
	return o, o.Validate()
}

func (o Optics) Validate() error {
	if err := optics.Positive("f-number", o.FNumber); err != nil {
		return err
	}
	_, err := optics.ApertureFractionByMagnification(o.FNumber, o.Magnification)
	return err
}

// ApertureFraction is the share of the screen's isotropic emission that the
// lens collects.
func (o Optics) ApertureFraction() (float64, error) {
	return optics.ApertureFractionByMagnification(o.FNumber, o.Magnification)
}

// ObjectDistance needs FocalLength to be set.
func (o Optics) ObjectDistance() (float64, error) {
	return optics.ObjectDistance(o.FocalLength, o.Magnification)
}

// Scintillator converts incident charge into light.
type Scintillator struct {
	Efficiency float64 // [photons C^-1 sr^-1]
}

func (s Scintillator) Validate() error {
	return optics.NonNegative("scintillator efficiency", s.Efficiency)
}

// Model describes the sensor. NoiseCounts and BitDepth are only used for the
// dynamic-range helpers and may be zero.
type Model struct {
	QuantumEfficiency float64
	PixelPitch        float64 // [m]
	FullWell          float64 // [counts]
	NoiseCounts       float64 // [ADC counts]
	BitDepth          int
}

func (c Model) Validate() error {
	if err := optics.Fraction("quantum efficiency", c.QuantumEfficiency); err != nil {
		return err
	}
	if err := optics.Positive("pixel pitch", c.PixelPitch); err != nil {
		return err
	}
	if err := optics.Positive("full well", c.FullWell); err != nil {
		return err
	}
	if err := optics.NonNegative("noise counts", c.NoiseCounts); err != nil {
		return err
	}
	if c.BitDepth < 0 || c.BitDepth > 32 {
		return &optics.ValidationError{Field: "bit depth", Value: float64(c.BitDepth), Reason: "must lie in [0, 32]"}
	}
	return nil
}

// Levels is the number of ADC levels, 2^BitDepth; zero when BitDepth is unset.
func (c Model) Levels() float64 {
	if c.BitDepth == 0 {
		return 0
	}
	return math.Ldexp(1, c.BitDepth)
}

// NoiseFraction is the noise floor expressed as a fill fraction,
// NoiseCounts / 2^BitDepth.
func (c Model) NoiseFraction() float64 {
	if c.BitDepth == 0 {
		return 0
	}
	return c.NoiseCounts / c.Levels()
}

// ADCCounts maps a fill fraction onto the digitiser scale.
func (c Model) ADCCounts(fill float64) float64 {
	return fill * c.Levels()
}

// PixelFootprint is the screen area imaged by one pixel, (p/m)^2.
func PixelFootprint(pixelPitch, magnification float64) (float64, error) {
	if err := optics.Positive("pixel pitch", pixelPitch); err != nil {
		return 0, err
	}
	if magnification == 0 {
		return 0, &optics.DomainError{Op: "pixel footprint", Reason: "magnification is zero"}
	}
	r := pixelPitch / magnification
	return r * r, nil
}
