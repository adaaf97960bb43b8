package numeric

import "math"

// Vec3 is a Cartesian vector in the launch-site frame: X east, Y north, Z up.
type Vec3 struct {
	X, Y, Z float64
}

// Zero is the zero vector.
var Zero = Vec3{}

// UnitZ points straight up.
var UnitZ = Vec3{Z: 1}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector along v, or the zero vector when v has
// zero length.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Zero
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (v Vec3) IsFinite() bool {
	return IsFinite(v.X) && IsFinite(v.Y) && IsFinite(v.Z)
}

// Rotate rotates v about the unit axis k by angle radians (Rodrigues).
func (v Vec3) Rotate(k Vec3, angle float64) Vec3 {
	if angle == 0 {
		return v
	}
	cos, sin := math.Cos(angle), math.Sin(angle)
	return v.Scale(cos).
		Add(k.Cross(v).Scale(sin)).
		Add(k.Scale(k.Dot(v) * (1 - cos)))
}
