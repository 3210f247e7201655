package utils

import (
	"errors"
	"math"
)

var (
	ErrNoBracket       = errors.New("no sign change found")
	ErrIterationBudget = errors.New("iteration budget exhausted")
)

// BoundedBinarySearch narrows [falseDom, trueDom] to within eps of the
// condition's support boundary, giving up after maxSteps halvings.
// invariant: at *right* condition must be TRUE
// steps is the number of condition evaluations made.
func BoundedBinarySearch(condition func(float64) bool, falseDom, trueDom, eps float64, maxSteps int) (f, t float64, steps int, err error) {
	for math.Abs(trueDom-falseDom) > eps {
		if steps >= maxSteps {
			return falseDom, trueDom, steps, ErrIterationBudget
		}
		c := (falseDom + trueDom) * 0.5
		steps++
		if condition(c) {
			trueDom = c
		} else {
			falseDom = c
		}
	}
	return falseDom, trueDom, steps, nil
}

// BracketIncreasing walks outward from x0 in steps of width until a
// condition that holds on the right of its support boundary changes value.
// The condition must be monotone: false below the boundary, true above.
func BracketIncreasing(condition func(float64) bool, x0, width float64, maxSteps int) (falseDom, trueDom float64, steps int, err error) {
	steps = 1
	if condition(x0) {
		trueDom = x0
		for falseDom = x0 - width; steps < maxSteps; falseDom -= width {
			steps++
			if !condition(falseDom) {
				return falseDom, trueDom, steps, nil
			}
			trueDom = falseDom
		}
		return falseDom, trueDom, steps, ErrNoBracket
	}
	falseDom = x0
	for trueDom = x0 + width; steps < maxSteps; trueDom += width {
		steps++
		if condition(trueDom) {
			return falseDom, trueDom, steps, nil
		}
		falseDom = trueDom
	}
	return falseDom, trueDom, steps, ErrNoBracket
}
