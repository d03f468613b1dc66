// Package transform converts between three-phase quantities and space
// vectors, and between stationary and rotating coordinates.
package transform

import (
	"math"
	"math/cmplx"
)

var sqrt3 = math.Sqrt(3)

// ABCToComplex returns the space vector of a three-phase quantity using the
// peak-value scaling.
func ABCToComplex(abc [3]float64) complex128 {
	re := 2.0/3.0*abc[0] - (abc[1]+abc[2])/3.0
	im := (abc[1] - abc[2]) / sqrt3
	return complex(re, im)
}

// ComplexToABC returns the phase quantities of a space vector. The
// zero-sequence component is zero.
func ComplexToABC(u complex128) [3]float64 {
	re, im := real(u), imag(u)
	return [3]float64{
		re,
		0.5 * (-re + sqrt3*im),
		0.5 * (-re - sqrt3*im),
	}
}

// Rotate returns z rotated by theta, z*exp(j*theta).
func Rotate(z complex128, theta float64) complex128 {
	return z * cmplx.Rect(1, theta)
}

// WrapAngle limits theta into [-pi, pi).
func WrapAngle(theta float64) float64 {
	w := math.Mod(theta+math.Pi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	// a tiny negative remainder rounds up to exactly 2π
	if w >= 2*math.Pi {
		w = 0
	}
	return w - math.Pi
}
