package components

import "github.com/go-gl/mathgl/mgl64"

// Particle is the runtime state of one particle.
// Particles are values stored by slot in a ParticlePool and are never
// referenced by pointer outside the pool.
//
// This is a pure data component - it contains no methods.
type Particle struct {
	// Transform (世界坐标)
	Position mgl64.Vec3
	Velocity mgl64.Vec3

	// Rotation (旋转, 弧度)
	Angle           float64    // Current rotation about AngleAxis
	AngleAxis       mgl64.Vec3 // Unit rotation axis
	AngularVelocity float64    // rad/s

	Scale float64 // Uniform scale multiplier

	// Lifecycle (生命周期, 秒)
	Age      float64 // 0 <= Age <= Lifetime
	Lifetime float64

	// Per-particle random state (随机状态)
	Seed       uint64  // Derived from the emitter seed and spawn index
	SeedOffset float64 // Seed mapped to [0,1), used for sprite-sheet random start
}
