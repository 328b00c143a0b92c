package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/utils"
)

// burstCapReached reports whether the emitter has used up its max_bursts.
func burstCapReached(e *components.EmitterComponent) bool {
	return e.Def.Emit.HasBurstCap() && e.BurstsEmitted >= e.Def.Emit.MaxBursts
}

// canEmit reports whether the emitter may still spawn in a future step.
func canEmit(eff *components.EffectComponent, e *components.EmitterComponent) bool {
	if !e.Active || burstCapReached(e) {
		return false
	}
	return !isRoot(e) || eff.Emitting
}

func isRoot(e *components.EmitterComponent) bool {
	return e.Binding < 0
}

// emitBursts advances the spawn timer and fires every burst the elapsed
// time justifies. A zero interval fires exactly one burst per step.
func (ps *ParticleSystem) emitBursts(eff *components.EffectComponent, e *components.EmitterComponent, dt float64) {
	interval := e.Def.Emit.BurstInterval
	e.Timer += dt

	if interval == 0 {
		if !burstCapReached(e) {
			ps.burst(eff, e)
		}
		e.Timer = 0
		return
	}

	for e.Timer >= interval && !burstCapReached(e) {
		ps.burst(eff, e)
		e.Timer -= interval
	}
}

// burst spawns ParticlesPerBurst particles. Spawns into a full pool are
// counted in Dropped and otherwise ignored.
func (ps *ParticleSystem) burst(eff *components.EffectComponent, e *components.EmitterComponent) {
	for i := 0; i < e.Def.Emit.ParticlesPerBurst; i++ {
		if e.Pool.Full() {
			e.Dropped++
			continue
		}
		id, ok := e.Pool.Spawn(ps.initParticle(eff, e))
		if !ok {
			e.Dropped++
			continue
		}
		e.Spawned = append(e.Spawned, id)
		eff.Spawned++
	}
	e.BurstsEmitted++
}

// initParticle samples the initial state of one particle in world space.
func (ps *ParticleSystem) initParticle(eff *components.EffectComponent, e *components.EmitterComponent) components.Particle {
	rng := eff.RNG
	in := &e.Def.Init

	shape := e.Def.Emit.Shape
	if shape == nil {
		shape = particle.PointShape{}
	}
	localPos, localDir := shape.Sample(rng)
	pos := e.Origin.Add(e.Rotation.Rotate(localPos))
	normal := e.Rotation.Rotate(localDir)

	// 未指定方向时使用形状法线作为发射方向
	axis := normal
	if in.Direction.Len() > 0 {
		axis = e.Rotation.Rotate(in.Direction)
	}
	dir := particle.SampleCone(rng, axis, in.DirectionSpread)
	speed := in.Velocity.Sample(rng)

	angleAxis := particle.SampleCone(rng, e.Rotation.Rotate(in.AngleAxis), in.AngleAxisSpread)
	if angleAxis.Len() == 0 {
		angleAxis = mgl64.Vec3{0, 0, 1}
	}

	seed := utils.DeriveSeed(e.Seed, e.SpawnIndex)
	e.SpawnIndex++

	return components.Particle{
		Position:        pos,
		Velocity:        dir.Mul(speed),
		Angle:           in.Angle.Sample(rng),
		AngleAxis:       angleAxis,
		AngularVelocity: in.AngularVelocity.Sample(rng),
		Scale:           in.Scale.Sample(rng),
		Lifetime:        in.Lifetime.Sample(rng),
		Seed:            seed,
		SeedOffset:      utils.UnitFloat(seed),
	}
}

// integrate advances one particle by dt using semi-implicit Euler.
// The step is clipped to the particle's remaining lifetime so that an
// expiring particle ends exactly at its final transform.
//
// Returns true when the particle expired during this step.
func integrate(p *components.Particle, ff *ForceField, origin mgl64.Vec3, t, dt float64) bool {
	step := dt
	if remaining := p.Lifetime - p.Age; dt >= remaining {
		step = remaining
		p.Age = p.Lifetime
	} else {
		p.Age += dt
	}

	acc := ff.Acceleration(p, origin, t)
	p.Velocity = p.Velocity.Add(acc.Mul(step))
	p.Position = p.Position.Add(p.Velocity.Mul(step))
	p.Angle += p.AngularVelocity * step
	ff.DampAngular(p, step)

	return p.Age >= p.Lifetime
}
