package optics

import "math"

// ApertureFractionByDistance is the share of a point source's isotropic
// emission that enters a circular aperture of diameter f/N at distance o:
// the lens area over the area of the sphere of radius o.
func ApertureFractionByDistance(focalLength, fNumber, objectDistance float64) (float64, error) {
	if err := Positive("focal length", focalLength); err != nil {
		return 0, err
	}
	if err := Positive("f-number", fNumber); err != nil {
		return 0, err
	}
	if objectDistance == 0 || math.IsNaN(objectDistance) {
		return 0, domain("aperture fraction", "object distance is zero")
	}
	radius := focalLength / (2. * fNumber)
	lensArea := math.Pi * radius * radius
	sphereArea := 4. * math.Pi * objectDistance * objectDistance
	return lensArea / sphereArea, nil
}

// ApertureFractionByMagnification is ApertureFractionByDistance with the
// object distance eliminated through o = (1 - 1/m) f: (m / ((m-1) 4 N))^2.
func ApertureFractionByMagnification(fNumber, m float64) (float64, error) {
	if err := Positive("f-number", fNumber); err != nil {
		return 0, err
	}
	if err := checkMagnification("aperture fraction", m); err != nil {
		return 0, err
	}
	r := m / ((m - 1.) * 4. * fNumber)
	return r * r, nil
}
