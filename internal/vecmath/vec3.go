// Package vecmath provides minimal 3D vector arithmetic for body-based
// systems. States remain flat float slices; Vec3 is the view the N-body
// code works in.
package vecmath

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) MagSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Mag() float64 {
	return math.Sqrt(v.MagSq())
}

func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ClampMag limits magnitude to maxMag, preserving direction.
func (v Vec3) ClampMag(maxMag float64) Vec3 {
	magSq := v.MagSq()
	if magSq <= maxMag*maxMag {
		return v
	}
	return v.Scale(maxMag / math.Sqrt(magSq))
}

func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func FromArray(a [3]float64) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}
