package constants

import "math"

const FourPi = 4. * math.Pi // [sr]

// Lanex light yield used throughout the dump-screen studies.
const LanexPhotonsPerCoulomb float64 = 1.75e9 / 1e-12           // [photons C^-1]
const LanexEfficiency float64 = LanexPhotonsPerCoulomb * FourPi // [photons C^-1 sr^-1]

const PeakBeamDensity float64 = 47e-9 / (1e-3 * 1e-3)           // [C m^-2] 47 nC/mm^2
const SingleCountDensity float64 = 5e-4 * 1e-12 / (1e-3 * 1e-3) // [C m^-2] 5e-4 pC/mm^2

const LogTolerance float64 = 1e-13 // bisection bracket width [decades]
