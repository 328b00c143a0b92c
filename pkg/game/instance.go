package game

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/ecs"
	"github.com/decker502/fxsim/pkg/entities"
	"github.com/decker502/fxsim/pkg/systems"
)

// Options configures a new effect instance.
type Options struct {
	Seed       uint64     // Equal seeds replay identically
	Emitting   bool       // Start with root emission enabled
	WorldSpace bool       // Root emitters follow Position/Rotation
	Position   mgl64.Vec3 // Instance transform
	Rotation   mgl64.Quat // Zero value is identity
}

// Instance is one running effect. It exclusively owns its entity arena:
// the effect entity, every emitter runtime and every particle pool.
//
// An Instance is not safe for concurrent use; distinct instances may be
// advanced from different goroutines.
type Instance struct {
	def  *particle.Definition
	opts Options

	em       *ecs.EntityManager
	system   *systems.ParticleSystem
	effectID ecs.EntityID
}

// NewInstance instantiates def. Root emitter runtimes are created eagerly;
// sub-emitter runtimes are created by their triggers.
func NewInstance(def *particle.Definition, opts Options) (*Instance, error) {
	inst := &Instance{def: def, opts: opts}
	if err := inst.build(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (i *Instance) build() error {
	em := ecs.NewEntityManager()
	id, err := entities.CreateEffect(em, i.def, entities.EffectOptions{
		Seed:       i.opts.Seed,
		Emitting:   i.opts.Emitting,
		WorldSpace: i.opts.WorldSpace,
		Position:   i.opts.Position,
		Rotation:   i.opts.Rotation,
	})
	if err != nil {
		return fmt.Errorf("failed to instantiate effect: %w", err)
	}
	i.em = em
	i.effectID = id
	i.system = systems.NewParticleSystem(em, id)
	return nil
}

func (i *Instance) effect() *components.EffectComponent {
	eff, _ := ecs.GetComponent[*components.EffectComponent](i.em, i.effectID)
	return eff
}

// Advance steps the simulation by dt seconds.
func (i *Instance) Advance(dt float64) {
	i.system.Update(dt)
}

// Definition returns the shared definition the instance runs.
func (i *Instance) Definition() *particle.Definition {
	return i.def
}

// Seed returns the instance seed.
func (i *Instance) Seed() uint64 {
	return i.opts.Seed
}

// Time returns the simulated time in seconds and the number of steps taken.
func (i *Instance) Time() (float64, int) {
	eff := i.effect()
	return eff.Time, eff.Steps
}

// Emitting reports whether root emitters may spawn.
func (i *Instance) Emitting() bool {
	return i.effect().Emitting
}

// SetEmitting enables or disables root emission. Live particles and
// already triggered sub-emitters keep running.
func (i *Instance) SetEmitting(enabled bool) {
	i.effect().Emitting = enabled
	i.opts.Emitting = enabled
}

// SetTransform moves the instance. It only affects world-space instances,
// and only particles spawned afterwards.
func (i *Instance) SetTransform(pos mgl64.Vec3, rot mgl64.Quat) {
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}
	eff := i.effect()
	eff.Position = pos
	eff.Rotation = rot
	i.opts.Position = pos
	i.opts.Rotation = rot
}

// Reset discards all runtime state and restarts from time zero with the
// current options. With an unchanged seed the effect replays identically.
func (i *Instance) Reset() error {
	return i.build()
}

// Reseed restarts the effect with a new seed.
func (i *Instance) Reseed(seed uint64) error {
	i.opts.Seed = seed
	return i.build()
}

// Records calls fn once per Sprite emitter holding draw records, in
// top-down emitter order. The slice is only valid during the call.
func (i *Instance) Records(fn func(material string, records []components.DrawRecord)) {
	i.system.VisitEmitters(func(_ ecs.EntityID, e *components.EmitterComponent) {
		if e.Def.Display == nil || len(e.Records) == 0 {
			return
		}
		fn(e.Def.Display.Material, e.Records)
	})
}

// AppendRecords appends every draw record of the last step to dst.
func (i *Instance) AppendRecords(dst []components.DrawRecord) []components.DrawRecord {
	i.Records(func(_ string, records []components.DrawRecord) {
		dst = append(dst, records...)
	})
	return dst
}

// Stats returns diagnostic counters for the live emitter tree.
func (i *Instance) Stats() systems.Stats {
	return i.system.Stats()
}

// Finished reports whether the instance will never produce another particle.
func (i *Instance) Finished() bool {
	return i.system.Finished()
}
