package components

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/ecs"
)

// EffectComponent holds instance-wide state. Each instance arena has
// exactly one entity carrying it.
//
// This is a pure data component - it contains no methods.
type EffectComponent struct {
	Def   *particle.Definition
	Roots []ecs.EntityID // Root emitter entities, in definition order

	// Instance transform (实例变换), applied to roots when WorldSpace is set
	WorldSpace bool
	Position   mgl64.Vec3
	Rotation   mgl64.Quat

	Emitting bool    // Root emitters spawn only while set
	Time     float64 // Seconds simulated so far
	Steps    int
	Spawned  int // Particles spawned by all emitters, reaped ones included

	Seed uint64
	RNG  *rand.Rand // Instance RNG; never shared between instances
}
