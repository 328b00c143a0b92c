package systems

import (
	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/ecs"
	"github.com/decker502/fxsim/pkg/entities"
)

// ParticleSystem advances one effect instance.
//
// Each step processes the emitter tree top-down in breadth-first order, so a
// parent always runs before the children it spawns in the same step. For
// every emitter the step runs:
//  1. Timing and spawning
//  2. Integration of all live particles
//  3. Start / Stop sub-emitter triggers
//  4. Freeing of expired particles
//  5. Draw record evaluation
//
// Start children are destroyed together with the particle they are attached
// to. A child created in the same step as its particle expires still runs
// that step and is destroyed once the pass completes. Drained sub-emitters
// are reaped after the pass. The system owns no state
// beyond caches and scratch buffers; all simulation state lives in the
// instance's EntityManager.
type ParticleSystem struct {
	EntityManager *ecs.EntityManager
	EffectID      ecs.EntityID

	fields  map[*particle.Emitter]*ForceField
	order   []ecs.EntityID
	orphans []ecs.EntityID
}

// NewParticleSystem creates a ParticleSystem for the effect entity effectID.
func NewParticleSystem(em *ecs.EntityManager, effectID ecs.EntityID) *ParticleSystem {
	return &ParticleSystem{
		EntityManager: em,
		EffectID:      effectID,
		fields:        make(map[*particle.Emitter]*ForceField),
	}
}

// Update advances the instance by dt seconds. Negative dt is treated as zero.
func (ps *ParticleSystem) Update(dt float64) {
	eff, ok := ecs.GetComponent[*components.EffectComponent](ps.EntityManager, ps.EffectID)
	if !ok {
		return
	}
	if dt < 0 {
		dt = 0
	}
	eff.Time += dt
	eff.Steps++

	queue := append(ps.order[:0], eff.Roots...)
	for i := 0; i < len(queue); i++ {
		id := queue[i]
		e, ok := ecs.GetComponent[*components.EmitterComponent](ps.EntityManager, id)
		if !ok {
			continue
		}
		ps.updateTransform(eff, e)
		ps.stepEmitter(eff, id, e, dt)
		for _, kids := range e.Children {
			queue = append(queue, kids...)
		}
	}

	for _, id := range ps.orphans {
		ps.destroy(id)
	}
	ps.orphans = ps.orphans[:0]

	ps.reap(queue)
	ps.order = queue
	ps.EntityManager.RemoveMarkedEntities()
}

// updateTransform recomputes the emitter's world origin and rotation.
func (ps *ParticleSystem) updateTransform(eff *components.EffectComponent, e *components.EmitterComponent) {
	def := e.Def
	if isRoot(e) {
		if eff.WorldSpace {
			e.Base = eff.Position
			e.Rotation = eff.Rotation.Mul(def.LocalRotation())
			e.Origin = e.Base.Add(eff.Rotation.Rotate(def.Position))
		} else {
			e.Base = def.Position
			e.Rotation = def.LocalRotation()
			e.Origin = def.Position
		}
		return
	}

	parent, ok := ecs.GetComponent[*components.EmitterComponent](ps.EntityManager, e.Parent)
	if !ok {
		return
	}
	if e.Anchored {
		// 跟随父粒子
		if p, alive := parent.Pool.Get(e.Anchor); alive {
			e.Base = p.Position
		}
	}
	e.Rotation = parent.Rotation.Mul(def.LocalRotation())
	e.Origin = e.Base.Add(parent.Rotation.Rotate(def.Position))
}

// stepEmitter runs one step of a single emitter.
func (ps *ParticleSystem) stepEmitter(eff *components.EffectComponent, id ecs.EntityID, e *components.EmitterComponent, dt float64) {
	e.Age += dt
	e.Spawned = e.Spawned[:0]
	e.Expired = e.Expired[:0]

	if canEmit(eff, e) {
		ps.emitBursts(eff, e, dt)
	}

	ff := ps.forceField(e.Def)
	t := eff.Time
	e.Pool.Each(func(slot components.SlotID, p *components.Particle) {
		if integrate(p, ff, e.Origin, t, dt) {
			e.Expired = append(e.Expired, slot)
		}
	})

	ps.triggerSubEmitters(eff, id, e)

	for _, slot := range e.Expired {
		e.Pool.Free(slot)
	}

	buildDrawRecords(e)
}

// triggerSubEmitters creates Start children for particles spawned this step
// and Stop children for particles that expired this step, then destroys the
// Start children of expired particles.
func (ps *ParticleSystem) triggerSubEmitters(eff *components.EffectComponent, id ecs.EntityID, e *components.EmitterComponent) {
	em := ps.EntityManager
	for binding, sub := range e.Def.Sub {
		switch sub.Trigger {
		case particle.TriggerStart:
			for _, slot := range e.Spawned {
				p, ok := e.Pool.Get(slot)
				if !ok {
					continue
				}
				childID, child := entities.CreateSubEmitter(em, eff.Seed, id, e, binding, p.Position)
				child.Anchored = true
				child.Anchor = slot
				child.Created = eff.Steps
				if e.Attached == nil {
					e.Attached = make(map[components.SlotID][]ecs.EntityID)
				}
				e.Attached[slot] = append(e.Attached[slot], childID)
			}
		case particle.TriggerStop:
			for _, slot := range e.Expired {
				if p, ok := e.Pool.Get(slot); ok {
					_, child := entities.CreateSubEmitter(em, eff.Seed, id, e, binding, p.Position)
					child.Created = eff.Steps
				}
			}
		}
	}

	for _, slot := range e.Expired {
		children, ok := e.Attached[slot]
		if !ok {
			continue
		}
		p, _ := e.Pool.Get(slot)
		for _, childID := range children {
			child, ok := ecs.GetComponent[*components.EmitterComponent](em, childID)
			if !ok {
				continue
			}
			if child.Created != eff.Steps {
				ps.destroy(childID)
				continue
			}
			// 同一步创建的子发射器先运行本步，整轮结束后销毁
			child.Anchored = false
			if p != nil {
				child.Base = p.Position
			}
			ps.orphans = append(ps.orphans, childID)
		}
		delete(e.Attached, slot)
	}
}

// destroy unlinks the emitter id from its parent and destroys it together
// with every runtime below it.
func (ps *ParticleSystem) destroy(id ecs.EntityID) {
	em := ps.EntityManager
	e, ok := ecs.GetComponent[*components.EmitterComponent](em, id)
	if !ok || em.IsMarked(id) {
		return
	}
	if parent, ok := ecs.GetComponent[*components.EmitterComponent](em, e.Parent); ok && e.Binding >= 0 {
		parent.Children[e.Binding] = removeID(parent.Children[e.Binding], id)
	}

	stack := []ecs.EntityID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c, ok := ecs.GetComponent[*components.EmitterComponent](em, cur); ok {
			for _, kids := range c.Children {
				stack = append(stack, kids...)
			}
			c.Pool.Reset()
			c.Records = c.Records[:0]
		}
		em.DestroyEntity(cur)
	}
}

// reap destroys sub-emitters that can no longer spawn and have no live
// particles or children. The order slice is walked backwards so that a
// whole drained chain is released in one step.
func (ps *ParticleSystem) reap(order []ecs.EntityID) {
	em := ps.EntityManager
	eff, _ := ecs.GetComponent[*components.EffectComponent](em, ps.EffectID)
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		e, ok := ecs.GetComponent[*components.EmitterComponent](em, id)
		if !ok || isRoot(e) || em.IsMarked(id) {
			continue
		}
		if canEmit(eff, e) || e.Pool.Len() > 0 || hasChildren(e) {
			continue
		}
		if parent, ok := ecs.GetComponent[*components.EmitterComponent](em, e.Parent); ok {
			parent.Children[e.Binding] = removeID(parent.Children[e.Binding], id)
		}
		em.DestroyEntity(id)
	}
}

func hasChildren(e *components.EmitterComponent) bool {
	for _, kids := range e.Children {
		if len(kids) > 0 {
			return true
		}
	}
	return false
}

func removeID(ids []ecs.EntityID, id ecs.EntityID) []ecs.EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// forceField returns the cached force field for def.
func (ps *ParticleSystem) forceField(def *particle.Emitter) *ForceField {
	ff, ok := ps.fields[def]
	if !ok {
		ff = NewForceField(def.Accel)
		ps.fields[def] = ff
	}
	return ff
}

// VisitEmitters calls fn for every live emitter in top-down breadth-first order.
func (ps *ParticleSystem) VisitEmitters(fn func(id ecs.EntityID, e *components.EmitterComponent)) {
	eff, ok := ecs.GetComponent[*components.EffectComponent](ps.EntityManager, ps.EffectID)
	if !ok {
		return
	}
	queue := append([]ecs.EntityID(nil), eff.Roots...)
	for i := 0; i < len(queue); i++ {
		e, ok := ecs.GetComponent[*components.EmitterComponent](ps.EntityManager, queue[i])
		if !ok {
			continue
		}
		fn(queue[i], e)
		for _, kids := range e.Children {
			queue = append(queue, kids...)
		}
	}
}

// Stats summarizes an instance for diagnostics.
type Stats struct {
	Emitters  int // Live emitter runtimes, roots included
	Particles int // Live particles across all pools
	Dropped   int // Spawns rejected by full pools (CapacityExceeded)
	Records   int // Draw records produced by the last step
	Spawned   int // Particles spawned since creation, destroyed emitters included
}

// Stats collects diagnostic counters over the live emitter tree.
// Dropped counts of already reaped sub-emitters are not included.
func (ps *ParticleSystem) Stats() Stats {
	var s Stats
	if eff, ok := ecs.GetComponent[*components.EffectComponent](ps.EntityManager, ps.EffectID); ok {
		s.Spawned = eff.Spawned
	}
	ps.VisitEmitters(func(_ ecs.EntityID, e *components.EmitterComponent) {
		s.Emitters++
		s.Particles += e.Pool.Len()
		s.Dropped += e.Dropped
		s.Records += len(e.Records)
	})
	return s
}

// Finished reports whether the instance can produce nothing further:
// no emitter may spawn again and no particle is alive.
func (ps *ParticleSystem) Finished() bool {
	eff, ok := ecs.GetComponent[*components.EffectComponent](ps.EntityManager, ps.EffectID)
	if !ok {
		return true
	}
	finished := true
	ps.VisitEmitters(func(_ ecs.EntityID, e *components.EmitterComponent) {
		if canEmit(eff, e) || e.Pool.Len() > 0 {
			finished = false
		}
	})
	return finished
}
