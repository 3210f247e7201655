package utils

import (
	"cmp"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

func Argmax[T cmp.Ordered](arr []T) (argmax int) {
	for i := range arr {
		if cmp.Compare(arr[i], arr[argmax]) == 1 {
			argmax = i
		}
	}
	return
}

type Number interface {
	constraints.Float | constraints.Integer
}

func MaxSlice[T Number](arr []T) (r T) {
	if len(arr) == 0 {
		return
	}
	return arr[Argmax(arr)]
}

func IntAbs(a int) int {
	if a < 0 {
		return -a
	} else {
		return a
	}
}

// Linspace returns n evenly spaced points over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	s := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range s {
		s[i] = math.FMA(float64(i), step, start)
	}
	s[n-1] = stop
	return s
}

// Logspace returns n points spaced evenly on a log scale over [10^start, 10^stop].
func Logspace(start, stop float64, n int) []float64 {
	s := Linspace(start, stop, n)
	for i := range s {
		s[i] = math.Pow(10, s[i])
	}
	return s
}

// Geomspace returns n points spaced evenly on a log scale over [start, stop].
// Both bounds must be positive.
func Geomspace(start, stop float64, n int) []float64 {
	return Logspace(math.Log10(start), math.Log10(stop), n)
}

func Intersect(a, b []string) *string {
	for i := range a {
		if slices.Contains(b, a[i]) {
			return &a[i]
		}
	}
	return nil
}

// RelativeDifference returns |a-b| / max(|a|, |b|), zero when both are zero.
func RelativeDifference(a, b float64) float64 {
	scale := max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}
