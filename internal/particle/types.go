// Package particle provides the immutable definition tree of a particle effect
// and the YAML loader that builds it.
//
// An effect is a bounding volume plus a list of root emitters. Every emitter
// describes its spawn timing, spawn shape, initial value ranges, acceleration
// field, display and nested sub-emitters. Definitions are validated once at
// load time and are shared read-only by every runtime instance.
package particle

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Definition is the root of a loaded effect.
type Definition struct {
	Name     string     // Source name used in diagnostics
	Bounds   AABB       // Advisory culling volume, not enforced by the simulation
	Emitters []*Emitter // Root emitters, active from instance start
}

// AABB is an axis-aligned box given by center and half extents.
type AABB struct {
	Center  mgl64.Vec3
	Extents mgl64.Vec3
}

// Emitter is one node of the emitter tree.
type Emitter struct {
	// Local transform (相对父级原点的偏移)
	Position mgl64.Vec3
	Rotation mgl64.Quat

	Emit    Emission
	Init    Init
	Accel   Acceleration
	Display *Sprite // nil means the emitter is an invisible driver

	Sub []SubEmitter
}

// LocalRotation returns Rotation, treating the zero quaternion as identity.
func (e *Emitter) LocalRotation() mgl64.Quat {
	if e.Rotation == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}
	return e.Rotation
}

// Emission describes spawn timing (发射时机) and the spawn shape.
type Emission struct {
	MaxParticles      int     // Pool capacity
	ParticlesPerBurst int     // Particles spawned per burst
	BurstInterval     float64 // Seconds between bursts, 0 = one burst per step
	MaxBursts         int     // Burst cap, 0 = unlimited
	Shape             Shape
}

// HasBurstCap reports whether the emitter stops after MaxBursts bursts.
func (e Emission) HasBurstCap() bool {
	return e.MaxBursts > 0
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

// Sample returns a uniform value in [Min, Max].
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + (r.Max-r.Min)*rng.Float64()
}

// Init holds the per-particle initial value ranges.
// Angles are stored in radians; the YAML format authors them in degrees.
type Init struct {
	Lifetime        Range // Seconds
	Angle           Range // Initial rotation about AngleAxis (rad)
	AngleAxis       mgl64.Vec3
	AngleAxisSpread float64 // Cone half-angle around AngleAxis (rad)
	Direction       mgl64.Vec3
	DirectionSpread float64 // Cone half-angle around Direction (rad)
	Velocity        Range   // Initial speed
	AngularVelocity Range   // rad/s
	Scale           Range
}

// Acceleration holds the force field contributors (力场).
type Acceleration struct {
	Gravity     mgl64.Vec3
	LinearDamp  float64
	AngularDamp float64
	RadialAccel float64
	OrbitAccel  float64
	OrbitAxis   mgl64.Vec3
	Noise       *Noise // nil = no noise force
}

// Noise configures the coherent noise force.
type Noise struct {
	Seed      uint32
	Frequency float64
	Force     float64
}

// BillboardMode selects how the renderer orients a particle quad.
type BillboardMode int

const (
	BillboardNone BillboardMode = iota
	BillboardFaceCamera
	BillboardAlignVertical
	BillboardAlignVelocity
)

var billboardNames = map[BillboardMode]string{
	BillboardNone:          "None",
	BillboardFaceCamera:    "FaceCamera",
	BillboardAlignVertical: "AlignVertical",
	BillboardAlignVelocity: "AlignVelocity",
}

func (m BillboardMode) String() string {
	if s, ok := billboardNames[m]; ok {
		return s
	}
	return "Unknown"
}

// ParseBillboardMode maps a format tag to a BillboardMode.
func ParseBillboardMode(s string) (BillboardMode, bool) {
	for mode, name := range billboardNames {
		if name == s {
			return mode, true
		}
	}
	return BillboardNone, false
}

// Sprite is the visible display of an emitter.
type Sprite struct {
	Material  string // Forwarded untouched to the renderer
	Billboard BillboardMode
	Sheet     *SpriteSheet // nil = single cell
	Size      *Curve[mgl64.Vec2]
	Color     *Curve[mgl64.Vec4] // RGBA, 0-1 per channel
}

// SpriteSheet is a rows×columns atlas animated over particle age.
type SpriteSheet struct {
	Rows        int
	Columns     int
	RandomStart bool
	Timescale   float64 // Full sheet cycles per second
}

// Frames returns the number of cells in the sheet.
func (s *SpriteSheet) Frames() int {
	return s.Rows * s.Columns
}

// Trigger is the parent particle lifecycle event that activates a sub-emitter.
type Trigger int

const (
	TriggerStart Trigger = iota // Parent particle spawned
	TriggerStop                 // Parent particle expired
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "Start"
	case TriggerStop:
		return "Stop"
	}
	return "Unknown"
}

// ParseTrigger maps a format tag to a Trigger.
func ParseTrigger(s string) (Trigger, bool) {
	switch s {
	case "Start":
		return TriggerStart, true
	case "Stop":
		return TriggerStop, true
	}
	return TriggerStart, false
}

// SubEmitter binds a nested emitter to a trigger.
type SubEmitter struct {
	Trigger Trigger
	Emitter *Emitter
}

// Walk visits every emitter of the definition in depth-first pre-order
// without recursion. Returning false from fn stops the walk.
func (d *Definition) Walk(fn func(path string, e *Emitter) bool) {
	type item struct {
		path string
		e    *Emitter
	}
	stack := make([]item, 0, len(d.Emitters))
	for i := len(d.Emitters) - 1; i >= 0; i-- {
		stack = append(stack, item{indexPath("emitters", i), d.Emitters[i]})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.path, it.e) {
			return
		}
		for i := len(it.e.Sub) - 1; i >= 0; i-- {
			stack = append(stack, item{indexPath(it.path+".sub", i) + ".emitter", it.e.Sub[i].Emitter})
		}
	}
}

// EmitterCount returns the number of emitter nodes in the tree.
func (d *Definition) EmitterCount() int {
	n := 0
	d.Walk(func(string, *Emitter) bool {
		n++
		return true
	})
	return n
}
