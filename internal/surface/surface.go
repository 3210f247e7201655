// Package surface compares lens configurations by their relative light
// collection per pixel over a grid of f-numbers and fields of view.
package surface

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/wildstyl3r/lanexopt/internal/camera"
	"github.com/wildstyl3r/lanexopt/internal/optics"
	"github.com/wildstyl3r/lanexopt/internal/utils"
)

// gridMatch is the relative tolerance used to look up a grid coordinate.
const gridMatch = 1e-12

// Surface holds ap_fr(N, m) (p/m)^2 with rows indexed by f-number and columns
// by field of view.
type Surface struct {
	FNumbers     []float64
	FieldsOfView []float64   // [m]
	Values       [][]float64 // [m^2]
	Max          float64
}

// Point is a single grid entry.
type Point struct {
	FNumber     float64
	FieldOfView float64
	Value       float64
	Relative    float64
}

// Value is the per-pixel collection figure of merit for one configuration.
func Value(fNumber, fieldOfView, imageHeight, pixelPitch float64) (float64, error) {
	m, err := optics.Magnification(imageHeight, fieldOfView)
	if err != nil {
		return 0, err
	}
	ap, err := optics.ApertureFractionByMagnification(fNumber, m)
	if err != nil {
		return 0, err
	}
	fp, err := camera.PixelFootprint(pixelPitch, m)
	if err != nil {
		return 0, err
	}
	return ap * fp, nil
}

// Evaluate fills the grid, one goroutine per f-number.
func Evaluate(fNumbers, fieldsOfView []float64, imageHeight, pixelPitch float64) (*Surface, error) {
	if len(fNumbers) == 0 || len(fieldsOfView) == 0 {
		return nil, &optics.ValidationError{Field: "grid size", Value: float64(len(fNumbers) * len(fieldsOfView)), Reason: "both axes need at least one point"}
	}
	s := &Surface{
		FNumbers:     slices.Clone(fNumbers),
		FieldsOfView: slices.Clone(fieldsOfView),
		Values:       make([][]float64, len(fNumbers)),
	}
	errs := make([]error, len(fNumbers))

	var wg sync.WaitGroup
	for i, n := range s.FNumbers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row := make([]float64, len(s.FieldsOfView))
			for j, fov := range s.FieldsOfView {
				v, err := Value(n, fov, imageHeight, pixelPitch)
				if err != nil {
					errs[i] = fmt.Errorf("N = %g, field of view = %g: %w", n, fov, err)
					return
				}
				row[j] = v
			}
			s.Values[i] = row
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, row := range s.Values {
		s.Max = max(s.Max, utils.MaxSlice(row))
	}
	return s, nil
}

// Normalized returns the grid divided by its maximum.
func (s *Surface) Normalized() [][]float64 {
	out := make([][]float64, len(s.Values))
	for i, row := range s.Values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v / s.Max
		}
	}
	return out
}

func lookup(axis []float64, v float64, name string) (int, error) {
	for i, a := range axis {
		if math.Abs(a-v) <= gridMatch*math.Max(math.Abs(a), math.Abs(v)) {
			return i, nil
		}
	}
	return 0, &optics.ValidationError{Field: name, Value: v, Reason: "not on the grid"}
}

// LineoutAtFNumber returns the normalized values along the field-of-view axis.
func (s *Surface) LineoutAtFNumber(fNumber float64) ([]float64, error) {
	i, err := lookup(s.FNumbers, fNumber, "f-number")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s.FieldsOfView))
	for j, v := range s.Values[i] {
		out[j] = v / s.Max
	}
	return out, nil
}

// LineoutAtFieldOfView returns the normalized values along the f-number axis.
func (s *Surface) LineoutAtFieldOfView(fieldOfView float64) ([]float64, error) {
	j, err := lookup(s.FieldsOfView, fieldOfView, "field of view")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s.FNumbers))
	for i := range s.FNumbers {
		out[i] = s.Values[i][j] / s.Max
	}
	return out, nil
}

// Rank lists every grid point, best first. Ties keep grid order.
func (s *Surface) Rank() []Point {
	points := make([]Point, 0, len(s.FNumbers)*len(s.FieldsOfView))
	for i, n := range s.FNumbers {
		for j, fov := range s.FieldsOfView {
			points = append(points, Point{
				FNumber:     n,
				FieldOfView: fov,
				Value:       s.Values[i][j],
				Relative:    s.Values[i][j] / s.Max,
			})
		}
	}
	slices.SortStableFunc(points, func(a, b Point) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return points
}
