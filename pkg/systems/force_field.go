package systems

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/utils"
)

// noiseRange spreads per-particle offsets across the noise domain.
const noiseRange = 256.0

// Per-axis shifts decorrelate the three noise channels.
var noiseAxisShift = [3]mgl64.Vec3{
	{0, 0, 0},
	{31.416, 47.853, 12.793},
	{-71.337, 19.391, -53.021},
}

// ForceField combines the acceleration contributors of one emitter definition.
// It is read-only after construction and may be shared by every runtime of
// the same definition within an instance.
type ForceField struct {
	accel particle.Acceleration
	noise opensimplex.Noise // nil when the emitter has no noise
}

// NewForceField builds the force field for an emitter's acceleration block.
func NewForceField(a particle.Acceleration) *ForceField {
	ff := &ForceField{accel: a}
	if a.Noise != nil && a.Noise.Force != 0 {
		ff.noise = opensimplex.New(int64(a.Noise.Seed))
	}
	return ff
}

// Acceleration returns the acceleration acting on p.
//
// Contributors, in order: gravity, linear drag, radial and orbital
// acceleration about origin, and coherent noise. Radial and orbital terms
// contribute nothing when their direction is undefined (zero length).
func (f *ForceField) Acceleration(p *components.Particle, origin mgl64.Vec3, t float64) mgl64.Vec3 {
	a := f.accel
	acc := a.Gravity

	if a.LinearDamp != 0 {
		acc = acc.Sub(p.Velocity.Mul(a.LinearDamp))
	}

	rel := p.Position.Sub(origin)
	if a.RadialAccel != 0 {
		if l := rel.Len(); l > 0 {
			acc = acc.Add(rel.Mul(a.RadialAccel / l))
		}
	}
	if a.OrbitAccel != 0 {
		c := a.OrbitAxis.Cross(rel)
		if l := c.Len(); l > 0 {
			acc = acc.Add(c.Mul(a.OrbitAccel / l))
		}
	}

	if f.noise != nil {
		acc = acc.Add(f.noiseForce(p, t))
	}
	return acc
}

// noiseForce samples three noise channels at the particle's position and
// time and returns a vector of magnitude Noise.Force.
func (f *ForceField) noiseForce(p *components.Particle, t float64) mgl64.Vec3 {
	n := f.accel.Noise
	base := p.Position.Mul(n.Frequency).Add(noiseOffset(n.Seed, p.Seed))
	w := t * n.Frequency

	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		q := base.Add(noiseAxisShift[i])
		v[i] = f.noise.Eval4(q[0], q[1], q[2], w)
	}
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	return v.Mul(n.Force / l)
}

// noiseOffset derives a stable per-particle offset into the noise domain.
func noiseOffset(noiseSeed uint32, particleSeed uint64) mgl64.Vec3 {
	h := utils.SplitMix64(uint64(noiseSeed)<<32 ^ particleSeed)
	var o mgl64.Vec3
	for i := 0; i < 3; i++ {
		o[i] = utils.UnitFloat(h) * noiseRange
		h = utils.SplitMix64(h)
	}
	return o
}

// DampAngular applies angular damping directly to the angular velocity.
func (f *ForceField) DampAngular(p *components.Particle, dt float64) {
	if f.accel.AngularDamp == 0 {
		return
	}
	k := 1 - f.accel.AngularDamp*dt
	if k < 0 {
		k = 0
	}
	p.AngularVelocity *= k
}
