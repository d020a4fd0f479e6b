// Package geometry derives display transforms.
//
// Rotations are Euler degrees (pitch X, yaw Y, roll Z) applied in YXZ order,
// normalized to unit quaternions. Everything here is pure.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/danmuck/overlayctl/internal/world"
)

var (
	axisX   = mgl64.Vec3{1, 0, 0}
	axisY   = mgl64.Vec3{0, 1, 0}
	axisZ   = mgl64.Vec3{0, 0, 1}
	Forward = axisZ
)

// EulerToRotation composes yaw(Y)·pitch(X)·roll(Z) from degrees.
func EulerToRotation(deg mgl64.Vec3) mgl64.Quat {
	pitch := mgl64.DegToRad(deg[0])
	yaw := mgl64.DegToRad(deg[1])
	roll := mgl64.DegToRad(deg[2])
	q := mgl64.QuatRotate(yaw, axisY).
		Mul(mgl64.QuatRotate(pitch, axisX)).
		Mul(mgl64.QuatRotate(roll, axisZ))
	return q.Normalize()
}

// RotationToEuler decomposes q in YXZ order and returns degrees.
// At pitch = ±90° yaw and roll share one degree of freedom and the split
// between them is arbitrary.
func RotationToEuler(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	pitch := math.Asin(clamp(-2*(y*z-w*x), -1, 1))
	yaw := math.Atan2(x*z+y*w, 0.5-y*y-x*x)
	roll := math.Atan2(y*x+w*z, 0.5-x*x-z*z)
	return mgl64.Vec3{
		mgl64.RadToDeg(pitch),
		mgl64.RadToDeg(yaw),
		mgl64.RadToDeg(roll),
	}
}

// AlignToDirection returns the minimal rotation taking +Z onto dir.
// Zero-length dir yields identity; callers guard.
func AlignToDirection(dir mgl64.Vec3) mgl64.Quat {
	if dir.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(Forward, dir.Normalize()).Normalize()
}

// Transform is the local display transform applied around the anchor.
type Transform struct {
	Translation   mgl64.Vec3
	LeftRotation  mgl64.Quat
	Scale         mgl64.Vec3
	RightRotation mgl64.Quat
}

// CenteredTransform keeps the scaled unit cube centered on the anchor:
// translation + q·(scale/2) = 0.
func CenteredTransform(scale, rotationDeg mgl64.Vec3) Transform {
	q := EulerToRotation(rotationDeg)
	half := scale.Mul(0.5)
	return Transform{
		Translation:   q.Rotate(half).Mul(-1),
		LeftRotation:  q,
		Scale:         scale,
		RightRotation: mgl64.QuatIdent(),
	}
}

// Segment is a unit-cube placement spanning two points.
type Segment struct {
	Mid         world.Location
	Scale       mgl64.Vec3
	RotationDeg mgl64.Vec3
	Length      float64
}

// SegmentTransform places a thickness×thickness prism from start to end.
// ok is false when the points coincide or live in different worlds.
func SegmentTransform(start, end world.Location, thickness float64) (Segment, bool) {
	if !start.SameWorld(end) {
		return Segment{}, false
	}
	dir := end.Pos.Sub(start.Pos)
	length := dir.Len()
	if length == 0 {
		return Segment{}, false
	}
	q := AlignToDirection(dir)
	return Segment{
		Mid:         world.Location{World: start.World, Pos: start.Pos.Add(end.Pos).Mul(0.5)},
		Scale:       mgl64.Vec3{thickness, thickness, length},
		RotationDeg: RotationToEuler(q),
		Length:      length,
	}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
