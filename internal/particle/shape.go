package particle

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape samples a spawn position and an outward direction in emitter-local space.
type Shape interface {
	Sample(rng *rand.Rand) (pos, dir mgl64.Vec3)
	Kind() string
}

// PointShape spawns every particle at Origin with a random direction.
type PointShape struct {
	Origin mgl64.Vec3
}

func (s PointShape) Kind() string { return "Point" }

func (s PointShape) Sample(rng *rand.Rand) (mgl64.Vec3, mgl64.Vec3) {
	return s.Origin, RandomUnitVector(rng)
}

// BoxShape spawns uniformly inside Origin ± Extents.
// The direction is the normal of the box face nearest to the sampled point.
type BoxShape struct {
	Origin  mgl64.Vec3
	Extents mgl64.Vec3
}

func (s BoxShape) Kind() string { return "Box" }

func (s BoxShape) Sample(rng *rand.Rand) (mgl64.Vec3, mgl64.Vec3) {
	var offset mgl64.Vec3
	for i := 0; i < 3; i++ {
		offset[i] = (rng.Float64()*2 - 1) * s.Extents[i]
	}

	axis, best := -1, -1.0
	for i := 0; i < 3; i++ {
		if s.Extents[i] <= 0 {
			continue
		}
		if f := math.Abs(offset[i]) / s.Extents[i]; f > best {
			axis, best = i, f
		}
	}
	if axis < 0 {
		// 退化为点
		return s.Origin, RandomUnitVector(rng)
	}
	var dir mgl64.Vec3
	dir[axis] = 1
	if offset[axis] < 0 {
		dir[axis] = -1
	}
	return s.Origin.Add(offset), dir
}

// SphereShape spawns inside the shell between InnerRadius and OuterRadius
// with a volume-uniform radius distribution. The direction is the outward normal.
type SphereShape struct {
	Origin      mgl64.Vec3
	InnerRadius float64
	OuterRadius float64
}

func (s SphereShape) Kind() string { return "Sphere" }

func (s SphereShape) Sample(rng *rand.Rand) (mgl64.Vec3, mgl64.Vec3) {
	dir := RandomUnitVector(rng)
	if s.OuterRadius == 0 {
		return s.Origin, dir
	}
	r0 := s.InnerRadius * s.InnerRadius * s.InnerRadius
	r1 := s.OuterRadius * s.OuterRadius * s.OuterRadius
	r := math.Cbrt(r0 + rng.Float64()*(r1-r0))
	return s.Origin.Add(dir.Mul(r)), dir
}

// RingShape spawns inside the annulus perpendicular to Axis with an
// area-uniform radius distribution. The direction is the in-plane radial.
type RingShape struct {
	Origin      mgl64.Vec3
	Axis        mgl64.Vec3
	InnerRadius float64
	OuterRadius float64
}

func (s RingShape) Kind() string { return "Ring" }

func (s RingShape) Sample(rng *rand.Rand) (mgl64.Vec3, mgl64.Vec3) {
	u, w := Basis(s.Axis.Normalize())
	theta := 2 * math.Pi * rng.Float64()
	radial := u.Mul(math.Cos(theta)).Add(w.Mul(math.Sin(theta)))

	r0 := s.InnerRadius * s.InnerRadius
	r1 := s.OuterRadius * s.OuterRadius
	r := math.Sqrt(r0 + rng.Float64()*(r1-r0))
	return s.Origin.Add(radial.Mul(r)), radial
}

// RandomUnitVector returns a direction uniformly distributed on the unit sphere.
func RandomUnitVector(rng *rand.Rand) mgl64.Vec3 {
	z := rng.Float64()*2 - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// Basis returns two unit vectors that, with n, form an orthonormal basis.
// n must be a unit vector.
func Basis(n mgl64.Vec3) (u, w mgl64.Vec3) {
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	u = n.Cross(ref).Normalize()
	w = n.Cross(u)
	return u, w
}

// SampleCone returns a unit direction uniformly distributed in solid angle
// within halfAngle (rad) of axis. A zero axis yields a zero vector.
//
// cosθ is drawn uniformly in [cos(halfAngle), 1] so that directions do not
// bunch up at the cone tip.
func SampleCone(rng *rand.Rand, axis mgl64.Vec3, halfAngle float64) mgl64.Vec3 {
	l := axis.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	n := axis.Mul(1 / l)
	if halfAngle <= 0 {
		return n
	}
	cosMax := math.Cos(math.Min(halfAngle, math.Pi))
	cosT := cosMax + (1-cosMax)*rng.Float64()
	sinT := math.Sqrt(math.Max(0, 1-cosT*cosT))
	phi := 2 * math.Pi * rng.Float64()

	u, w := Basis(n)
	return n.Mul(cosT).
		Add(u.Mul(sinT * math.Cos(phi))).
		Add(w.Mul(sinT * math.Sin(phi)))
}
