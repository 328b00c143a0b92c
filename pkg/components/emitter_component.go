package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/ecs"
)

// EmitterComponent is the mutable runtime of one emitter definition node.
//
// Root emitters are created with the instance; sub-emitters are created by
// the ParticleSystem when a parent particle triggers them. A sub-emitter is
// owned by its parent emitter entity, which lists it in Children.
//
// This is a pure data component following ECS principles - it contains no methods.
type EmitterComponent struct {
	// Configuration reference (定义节点，只读共享)
	Def *particle.Emitter

	// Hierarchy (层级关系)
	Parent   ecs.EntityID     // InvalidEntity for root emitters
	Binding  int              // Index into the parent's Def.Sub, -1 for roots
	Children [][]ecs.EntityID // Binding index -> child runtimes, created lazily

	// Start children attached to a live particle of this emitter
	Attached map[SlotID][]ecs.EntityID

	// Anchor (锚点): Start-triggered children follow the parent particle in Anchor
	Anchored bool
	Anchor   SlotID
	Created  int // EffectComponent.Steps of the step that created this runtime

	// World transform (世界变换), recomputed each step
	Base     mgl64.Vec3 // Spawn point inherited from the instance or parent particle
	Origin   mgl64.Vec3
	Rotation mgl64.Quat

	// Emitter state (发射器状态)
	Active        bool    // Whether the emitter may spawn
	Timer         float64 // Seconds accumulated since the last burst
	BurstsEmitted int
	Age           float64

	// Seeding (随机种子)
	Seed       uint64
	SpawnIndex uint64 // Monotonic spawn counter used to derive particle seeds

	// Particle storage
	Pool *ParticlePool

	// Diagnostics: spawns dropped because Pool was full (CapacityExceeded)
	Dropped int

	// Per-step scratch, reused to avoid allocation
	Spawned []SlotID
	Expired []SlotID

	// Render handoff (渲染输出), rebuilt after every step
	Records []DrawRecord
}
