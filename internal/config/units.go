package config

import (
	"fmt"

	"github.com/wildstyl3r/lanexopt/internal/utils"
)

var unitToSI = map[string]float64{
	"m":  1,    // [m]
	"cm": 1e-2, // [m]
	"mm": 1e-3, // [m]
	"um": 1e-6, // [m]
	"C":  1,    // [C]
	"uC": 1e-6, // [C]
	"nC": 1e-9, // [C]
	"pC": 1e-12,
	"fC": 1e-15,
}

type UnitClass int

const (
	Length UnitClass = iota
	Charge
)

func (c UnitClass) String() string {
	switch c {
	case Length:
		return "length"
	case Charge:
		return "charge"
	}
	return fmt.Sprintf("UnitClass(%d)", int(c))
}

var unitsInClass = map[UnitClass][]string{
	Length: {"um", "mm", "cm", "m"},
	Charge: {"fC", "pC", "nC", "uC", "C"},
}

var classesOfUnits = map[string]UnitClass{
	"m":  Length,
	"cm": Length,
	"mm": Length,
	"um": Length,
	"C":  Charge,
	"uC": Charge,
	"nC": Charge,
	"pC": Charge,
	"fC": Charge,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

// checkUnits completes units with the default unit of every class not listed
// and reports units that are unknown or repeat a class.
func checkUnits(units []string) (extended, conflicts []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			conflicts = append(conflicts, unit)
			continue
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
		}
	}
	extended = append([]string{}, units...)
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v with unit signature classes from units into SI when direct is
// true, and from SI into units otherwise. units must hold one unit per class,
// as returned by checkUnits.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToSI[*unit]
			}
		} else {
			for range absPower {
				v /= unitToSI[*unit]
			}
		}
	}
	return v
}

// UnitLabel renders a unit signature in the given units, e.g. "pC mm^-2".
func UnitLabel(classes []UnitElement, units []string) string {
	label := ""
	for _, uc := range classes {
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		if label != "" {
			label += " "
		}
		label += *unit
		if uc.Power != 1 {
			label += fmt.Sprintf("^%d", uc.Power)
		}
	}
	return label
}
