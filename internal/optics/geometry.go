// Package optics holds the thin-lens relations between object and image
// planes and the geometric light-collection fraction of a circular aperture.
//
// All lengths are in metres. Magnification is signed: a negative value means
// an inverted real image.
package optics

import "math"

func isInf(v float64) bool {
	return math.IsInf(v, 0)
}

// Magnification returns m = imageHeight / objectHeight.
func Magnification(imageHeight, objectHeight float64) (float64, error) {
	if objectHeight == 0 {
		return 0, domain("magnification", "object height is zero")
	}
	if math.IsNaN(imageHeight) || math.IsNaN(objectHeight) {
		return 0, &ValidationError{Field: "height", Value: math.NaN(), Reason: "is NaN"}
	}
	return imageHeight / objectHeight, nil
}

func checkMagnification(op string, m float64) error {
	switch {
	case math.IsNaN(m) || isInf(m):
		return &ValidationError{Field: "magnification", Value: m, Reason: "must be finite"}
	case m == 0:
		return domain(op, "magnification is zero")
	case m == 1:
		return domain(op, "unit magnification places the object at infinity")
	}
	return nil
}

// ObjectDistance returns the screen-to-lens distance o = (1 - 1/m) f.
func ObjectDistance(focalLength, m float64) (float64, error) {
	if err := Positive("focal length", focalLength); err != nil {
		return 0, err
	}
	if err := checkMagnification("object distance", m); err != nil {
		return 0, err
	}
	return (1. - 1./m) * focalLength, nil
}

// ObjectDistanceFromImage returns o = f i / (i - f).
func ObjectDistanceFromImage(focalLength, imageDistance float64) (float64, error) {
	if err := Positive("focal length", focalLength); err != nil {
		return 0, err
	}
	if imageDistance == focalLength {
		return 0, domain("object distance", "image distance equals focal length")
	}
	return focalLength * imageDistance / (imageDistance - focalLength), nil
}

// ImageDistance returns i = f o / (o - f).
func ImageDistance(focalLength, objectDistance float64) (float64, error) {
	if err := Positive("focal length", focalLength); err != nil {
		return 0, err
	}
	if objectDistance == focalLength {
		return 0, domain("image distance", "object at the focal point images to infinity")
	}
	return focalLength * objectDistance / (objectDistance - focalLength), nil
}

// ImageDistanceFromMagnification returns i = (1 - m) f.
func ImageDistanceFromMagnification(focalLength, m float64) (float64, error) {
	if err := Positive("focal length", focalLength); err != nil {
		return 0, err
	}
	if err := checkMagnification("image distance", m); err != nil {
		return 0, err
	}
	return (1. - m) * focalLength, nil
}

// ObjectHeightFromImage returns h_obj = -h_img o / i. A negative image height
// denotes an inverted real image.
func ObjectHeightFromImage(imageHeight, objectDistance, imageDistance float64) (float64, error) {
	if imageDistance == 0 {
		return 0, domain("object height", "image distance is zero")
	}
	return -imageHeight * objectDistance / imageDistance, nil
}

// Conjugate selects which conjugate quantity fixes the object distance.
type Conjugate func(*conjugate)

type conjugate struct {
	magnification *float64
	imageDistance *float64
}

func WithMagnification(m float64) Conjugate {
	return func(c *conjugate) { c.magnification = &m }
}

func WithImageDistance(i float64) Conjugate {
	return func(c *conjugate) { c.imageDistance = &i }
}

// ResolveObjectDistance computes the object distance from the focal length and
// exactly one of WithMagnification or WithImageDistance.
func ResolveObjectDistance(focalLength float64, opts ...Conjugate) (float64, error) {
	var c conjugate
	for _, opt := range opts {
		opt(&c)
	}
	switch {
	case c.magnification != nil && c.imageDistance != nil:
		return 0, &ValidationError{Field: "conjugate", Value: math.NaN(), Reason: "both magnification and image distance given"}
	case c.magnification != nil:
		return ObjectDistance(focalLength, *c.magnification)
	case c.imageDistance != nil:
		return ObjectDistanceFromImage(focalLength, *c.imageDistance)
	}
	return 0, &ValidationError{Field: "conjugate", Value: math.NaN(), Reason: "neither magnification nor image distance given"}
}
