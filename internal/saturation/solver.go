// Package saturation finds the beam density at which a camera response
// reaches a target fill fraction, by default the full well.
//
// The response is strictly increasing in density and spans many decades, so
// the search brackets and bisects in log10 of the density.
package saturation

import (
	"errors"
	"fmt"
	"math"

	"github.com/wildstyl3r/lanexopt/internal/camera"
	"github.com/wildstyl3r/lanexopt/internal/constants"
	"github.com/wildstyl3r/lanexopt/internal/optics"
	"github.com/wildstyl3r/lanexopt/internal/utils"
)

// Response maps a beam density [C m^-2] to a fill fraction. It must be
// monotonically increasing.
type Response func(density float64) (fill float64, err error)

type Options struct {
	Guess         float64 // [C m^-2], seed of the bracket
	Expansion     float64 // bracket growth factor per step
	LogTolerance  float64 // final bracket width [decades]
	Tolerance     float64 // accepted |fill-target|/target
	MaxIterations int     // response evaluations, bracket and bisection together
	Target        float64 // fill fraction to reach
}

func DefaultOptions() Options {
	return Options{
		Guess:         1e-6,
		Expansion:     10,
		LogTolerance:  constants.LogTolerance,
		Tolerance:     1e-6,
		MaxIterations: 200,
		Target:        1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Guess == 0 {
		o.Guess = d.Guess
	}
	if o.Expansion == 0 {
		o.Expansion = d.Expansion
	}
	if o.LogTolerance == 0 {
		o.LogTolerance = d.LogTolerance
	}
	if o.Tolerance == 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Target == 0 {
		o.Target = d.Target
	}
	return o
}

func (o Options) validate() error {
	if err := optics.Positive("guess", o.Guess); err != nil {
		return err
	}
	if !(o.Expansion > 1) || math.IsInf(o.Expansion, 0) {
		return &optics.ValidationError{Field: "expansion", Value: o.Expansion, Reason: "must be finite and greater than 1"}
	}
	if err := optics.Positive("log tolerance", o.LogTolerance); err != nil {
		return err
	}
	if err := optics.Positive("tolerance", o.Tolerance); err != nil {
		return err
	}
	if o.MaxIterations < 0 {
		return &optics.ValidationError{Field: "max iterations", Value: float64(o.MaxIterations), Reason: "must be positive"}
	}
	return optics.Positive("target", o.Target)
}

type Result struct {
	Density    float64 // [C m^-2]
	Counts     float64 // only set by SolveChain
	Fill       float64
	Iterations int
	Residual   float64 // relative, |fill-target|/target
}

// Solve returns the density at which resp reaches opts.Target. Zero fields of
// opts take their DefaultOptions values.
func Solve(resp Response, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	var (
		evalErr  error
		lastX    = math.Log10(opts.Guess)
		lastFill float64
	)
	reached := func(x float64) bool {
		if evalErr != nil {
			return true
		}
		density := math.Pow(10, x)
		fill, err := resp(density)
		if err != nil {
			evalErr = fmt.Errorf("response at density %g: %w", density, err)
			return true
		}
		lastX, lastFill = x, fill
		return fill >= opts.Target
	}
	residual := func() float64 {
		return math.Abs(lastFill-opts.Target) / opts.Target
	}
	fail := func(iterations int, reason string) error {
		return &optics.ConvergenceError{
			Iterations: iterations,
			Density:    math.Pow(10, lastX),
			Residual:   residual(),
			Reason:     reason,
		}
	}

	falseDom, trueDom, steps, err := utils.BracketIncreasing(reached, lastX, math.Log10(opts.Expansion), opts.MaxIterations)
	if evalErr != nil {
		return Result{}, evalErr
	}
	if err != nil {
		return Result{}, fail(steps, "no sign change")
	}

	falseDom, trueDom, bisections, err := utils.BoundedBinarySearch(reached, falseDom, trueDom, opts.LogTolerance, opts.MaxIterations-steps)
	steps += bisections
	if evalErr != nil {
		return Result{}, evalErr
	}
	if errors.Is(err, utils.ErrIterationBudget) || steps >= opts.MaxIterations {
		return Result{}, fail(steps, "iteration budget exhausted")
	}

	reached((falseDom + trueDom) * 0.5)
	steps++
	if evalErr != nil {
		return Result{}, evalErr
	}
	res := Result{
		Density:    math.Pow(10, lastX),
		Fill:       lastFill,
		Iterations: steps,
		Residual:   residual(),
	}
	if !(res.Residual < opts.Tolerance) {
		return res, fail(steps, "residual above tolerance")
	}
	return res, nil
}

// ForCamera adapts a response chain to the solver.
func ForCamera(ch *camera.Chain) Response {
	return ch.FillFraction
}

// SolveChain is Solve on a camera chain, with Counts filled in.
func SolveChain(ch *camera.Chain, opts Options) (Result, error) {
	res, err := Solve(ForCamera(ch), opts)
	if err != nil {
		return res, err
	}
	res.Counts = res.Fill * ch.Camera().FullWell
	return res, nil
}

// NoiseFloor is the density whose signal equals the camera's noise level.
func NoiseFloor(ch *camera.Chain, opts Options) (Result, error) {
	nf := ch.Camera().NoiseFraction()
	if nf == 0 {
		return Result{}, &optics.ValidationError{Field: "noise fraction", Value: 0, Reason: "camera has no noise level or bit depth"}
	}
	opts.Target = nf
	return SolveChain(ch, opts)
}
