// Package quat provides the small quaternion algebra the tracker needs:
// Hamilton product, axis-angle construction and the component-wise epsilon
// comparison used for output throttling.
package quat

import "math"

// Quat is a rotation quaternion in the device convention (x, y, z, w).
type Quat struct {
	X, Y, Z, W float64
}

func Identity() Quat {
	return Quat{W: 1}
}

// FromAxisAngle builds the rotation of angle radians around the given axis.
// The axis does not need to be normalized.
func FromAxisAngle(x, y, z, angle float64) Quat {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return Identity()
	}
	s := math.Sin(angle/2) / n
	return Quat{
		X: x * s,
		Y: y * s,
		Z: z * s,
		W: math.Cos(angle / 2),
	}
}

// Mul returns the Hamilton product q*r: r applied first, then q when rotating
// vectors, i.e. the usual composition for appending a mounting offset on the
// right.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

func (q Quat) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n == 0 {
		return Identity()
	}
	return Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

// EqualsEpsilon reports whether every component of q is within eps of r.
func (q Quat) EqualsEpsilon(r Quat, eps float64) bool {
	return math.Abs(q.X-r.X) <= eps &&
		math.Abs(q.Y-r.Y) <= eps &&
		math.Abs(q.Z-r.Z) <= eps &&
		math.Abs(q.W-r.W) <= eps
}
