package camera

import (
	"fmt"

	"github.com/wildstyl3r/lanexopt/internal/optics"
)

// Response breaks a single evaluation of the chain into its stages.
type Response struct {
	Density          float64 // [C m^-2]
	PhotonDensity    float64 // [photons m^-2 sr^-1] emitted at the screen
	ApertureFraction float64
	PixelFootprint   float64 // [m^2]
	Photons          float64 // collected per pixel
	Counts           float64
	Fill             float64
}

// Chain is a validated optical configuration ready to be evaluated at many
// densities.
type Chain struct {
	optics       Optics
	scintillator Scintillator
	camera       Model

	// counts per unit density, the whole chain is linear in ρ
	gain             float64
	apertureFraction float64
	pixelFootprint   float64
}

func NewChain(o Optics, s Scintillator, c Model) (*Chain, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("optics: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scintillator: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	ap, err := o.ApertureFraction()
	if err != nil {
		return nil, err
	}
	fp, err := PixelFootprint(c.PixelPitch, o.Magnification)
	if err != nil {
		return nil, err
	}
	return &Chain{
		optics:           o,
		scintillator:     s,
		camera:           c,
		gain:             s.Efficiency * ap * fp * c.QuantumEfficiency,
		apertureFraction: ap,
		pixelFootprint:   fp,
	}, nil
}

func (ch *Chain) Optics() Optics             { return ch.optics }
func (ch *Chain) Scintillator() Scintillator { return ch.scintillator }
func (ch *Chain) Camera() Model              { return ch.camera }

func (ch *Chain) Counts(density float64) (float64, error) {
	if err := optics.NonNegative("beam density", density); err != nil {
		return 0, err
	}
	// same association as PredictedCounts
	return density * ch.scintillator.Efficiency * ch.apertureFraction * ch.pixelFootprint * ch.camera.QuantumEfficiency, nil
}

func (ch *Chain) FillFraction(density float64) (float64, error) {
	counts, err := ch.Counts(density)
	if err != nil {
		return 0, err
	}
	return counts / ch.camera.FullWell, nil
}

func (ch *Chain) Evaluate(density float64) (Response, error) {
	counts, err := ch.Counts(density)
	if err != nil {
		return Response{}, err
	}
	photonDensity := density * ch.scintillator.Efficiency
	photons := photonDensity * ch.apertureFraction * ch.pixelFootprint
	return Response{
		Density:          density,
		PhotonDensity:    photonDensity,
		ApertureFraction: ch.apertureFraction,
		PixelFootprint:   ch.pixelFootprint,
		Photons:          photons,
		Counts:           counts,
		Fill:             counts / ch.camera.FullWell,
	}, nil
}

// Density inverts the chain analytically: the density giving counts.
func (ch *Chain) Density(counts float64) (float64, error) {
	if err := optics.NonNegative("counts", counts); err != nil {
		return 0, err
	}
	if ch.gain == 0 {
		return 0, &optics.DomainError{Op: "density", Reason: "chain has zero gain"}
	}
	return counts / ch.gain, nil
}

// Sweep evaluates the fill fraction at every density.
func (ch *Chain) Sweep(densities []float64) ([]float64, error) {
	fills := make([]float64, len(densities))
	for i, d := range densities {
		fill, err := ch.FillFraction(d)
		if err != nil {
			return nil, fmt.Errorf("density #%d: %w", i, err)
		}
		fills[i] = fill
	}
	return fills, nil
}

// PredictedCounts is the stateless form of the chain: counts in one pixel
// for the given beam density and optical parameters.
func PredictedCounts(density, efficiency, fNumber, magnification, pixelPitch, quantumEfficiency float64) (float64, error) {
	if err := optics.NonNegative("beam density", density); err != nil {
		return 0, err
	}
	if err := optics.NonNegative("scintillator efficiency", efficiency); err != nil {
		return 0, err
	}
	if err := optics.Fraction("quantum efficiency", quantumEfficiency); err != nil {
		return 0, err
	}
	ap, err := optics.ApertureFractionByMagnification(fNumber, magnification)
	if err != nil {
		return 0, err
	}
	fp, err := PixelFootprint(pixelPitch, magnification)
	if err != nil {
		return 0, err
	}
	return density * efficiency * ap * fp * quantumEfficiency, nil
}

// FillFraction is PredictedCounts over the camera's full well.
func FillFraction(density float64, s Scintillator, o Optics, c Model) (float64, error) {
	ch, err := NewChain(o, s, c)
	if err != nil {
		return 0, err
	}
	return ch.FillFraction(density)
}

type Regime int

const (
	BelowNoise Regime = iota
	InRange
	Saturated
)

func (r Regime) String() string {
	switch r {
	case BelowNoise:
		return "below noise"
	case InRange:
		return "in range"
	case Saturated:
		return "saturated"
	}
	return fmt.Sprintf("Regime(%d)", int(r))
}

// Classify places a fill fraction relative to the camera's noise floor and
// full well.
func Classify(fill float64, c Model) Regime {
	switch {
	case fill >= 1:
		return Saturated
	case fill < c.NoiseFraction():
		return BelowNoise
	}
	return InRange
}
