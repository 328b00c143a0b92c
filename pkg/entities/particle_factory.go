package entities

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/ecs"
	"github.com/decker502/fxsim/pkg/utils"
)

// EffectOptions configures a new effect instance.
type EffectOptions struct {
	Seed       uint64     // Instance seed; equal seeds replay identically
	Emitting   bool       // Whether root emitters start spawning immediately
	WorldSpace bool       // Apply Position/Rotation to root emitters
	Position   mgl64.Vec3 // Instance transform
	Rotation   mgl64.Quat // Zero value is treated as identity
}

// CreateEffect creates the effect entity and one active emitter entity per
// root emitter definition.
//
// Parameters:
//   - em: EntityManager owned by the instance
//   - def: Validated, shared effect definition
//   - opts: Seed, transform and emission flags
//
// Returns:
//   - ecs.EntityID: The ID of the entity carrying the EffectComponent
//   - error: Error if the definition is nil or has no emitters
//
// Example:
//
//	effectID, err := CreateEffect(em, def, EffectOptions{Seed: 42, Emitting: true})
//	if err != nil {
//	    log.Printf("Failed to create effect: %v", err)
//	}
func CreateEffect(em *ecs.EntityManager, def *particle.Definition, opts EffectOptions) (ecs.EntityID, error) {
	if def == nil {
		return ecs.InvalidEntity, fmt.Errorf("effect definition is nil")
	}
	if len(def.Emitters) == 0 {
		return ecs.InvalidEntity, fmt.Errorf("effect '%s' has no emitters", def.Name)
	}

	rot := opts.Rotation
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}

	effectID := em.CreateEntity()
	effect := &components.EffectComponent{
		Def:        def,
		WorldSpace: opts.WorldSpace,
		Position:   opts.Position,
		Rotation:   rot,
		Emitting:   opts.Emitting,
		Seed:       opts.Seed,
		RNG:        rand.New(rand.NewPCG(opts.Seed, utils.SplitMix64(opts.Seed))),
		Roots:      make([]ecs.EntityID, 0, len(def.Emitters)),
	}
	em.AddComponent(effectID, effect)

	for _, e := range def.Emitters {
		id := createEmitter(em, effect.Seed, e, ecs.InvalidEntity, -1)
		effect.Roots = append(effect.Roots, id)
	}
	return effectID, nil
}

// CreateSubEmitter creates the runtime of parent's sub-emitter binding and
// lists it in parent.Children.
//
// Parameters:
//   - em: EntityManager owned by the instance
//   - instanceSeed: Seed of the owning instance
//   - parentID, parent: The triggering emitter entity and its component
//   - binding: Index into parent.Def.Sub
//   - base: Spawn point, the triggering particle's position
//
// Returns:
//   - ecs.EntityID: The new child emitter entity (active)
//   - *components.EmitterComponent: Its component, for anchoring by the caller
func CreateSubEmitter(em *ecs.EntityManager, instanceSeed uint64, parentID ecs.EntityID,
	parent *components.EmitterComponent, binding int, base mgl64.Vec3) (ecs.EntityID, *components.EmitterComponent) {
	sub := parent.Def.Sub[binding]
	id := createEmitter(em, instanceSeed, sub.Emitter, parentID, binding)
	child, _ := ecs.GetComponent[*components.EmitterComponent](em, id)
	child.Base = base
	child.Rotation = parent.Rotation.Mul(sub.Emitter.LocalRotation())
	child.Origin = base.Add(parent.Rotation.Rotate(sub.Emitter.Position))

	if parent.Children == nil {
		parent.Children = make([][]ecs.EntityID, len(parent.Def.Sub))
	}
	parent.Children[binding] = append(parent.Children[binding], id)
	return id, child
}

func createEmitter(em *ecs.EntityManager, instanceSeed uint64, def *particle.Emitter, parent ecs.EntityID, binding int) ecs.EntityID {
	id := em.CreateEntity()
	emitter := &components.EmitterComponent{
		Def:      def,
		Parent:   parent,
		Binding:  binding,
		Rotation: def.LocalRotation(),
		Origin:   def.Position,
		Active:   true,
		Seed:     utils.DeriveSeed(instanceSeed, uint64(id)),
		Pool:     components.NewParticlePool(def.Emit.MaxParticles),
	}
	if len(def.Sub) > 0 {
		emitter.Children = make([][]ecs.EntityID, len(def.Sub))
	}
	em.AddComponent(id, emitter)
	return id
}
