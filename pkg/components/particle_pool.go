package components

// SlotID identifies a pool slot. The generation makes stale IDs fail to
// resolve once the slot has been freed and reused.
type SlotID struct {
	Index uint32
	Gen   uint32
}

// ParticlePool is fixed-capacity particle storage for one emitter.
//
// Spawn never allocates after construction. Iteration visits live slots in
// ascending index order; callers that free particles during a pass collect
// the IDs and free them after the pass so that no slot is skipped.
type ParticlePool struct {
	slots []Particle
	gens  []uint32
	alive []bool
	free  []uint32 // 空闲槽位栈，栈顶为最小索引
	live  int
}

// NewParticlePool creates a pool with room for capacity particles.
func NewParticlePool(capacity int) *ParticlePool {
	if capacity < 0 {
		capacity = 0
	}
	p := &ParticlePool{
		slots: make([]Particle, capacity),
		gens:  make([]uint32, capacity),
		alive: make([]bool, capacity),
		free:  make([]uint32, capacity),
	}
	for i := range p.free {
		p.free[i] = uint32(capacity - 1 - i)
	}
	return p
}

// Cap returns the pool capacity.
func (p *ParticlePool) Cap() int {
	return len(p.slots)
}

// Len returns the number of live particles.
func (p *ParticlePool) Len() int {
	return p.live
}

// Full reports whether a Spawn would fail.
func (p *ParticlePool) Full() bool {
	return len(p.free) == 0
}

// Spawn stores particle in a free slot.
// Returns false, without touching live particles, when the pool is full.
func (p *ParticlePool) Spawn(particle Particle) (SlotID, bool) {
	if len(p.free) == 0 {
		return SlotID{}, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.slots[idx] = particle
	p.alive[idx] = true
	p.live++
	return SlotID{Index: idx, Gen: p.gens[idx]}, true
}

// Free releases the slot for reuse. Freeing a stale or already free ID is a no-op.
func (p *ParticlePool) Free(id SlotID) bool {
	if !p.valid(id) {
		return false
	}
	p.alive[id.Index] = false
	p.gens[id.Index]++
	p.slots[id.Index] = Particle{}
	p.free = append(p.free, id.Index)
	p.live--
	return true
}

// Get returns the live particle behind id.
func (p *ParticlePool) Get(id SlotID) (*Particle, bool) {
	if !p.valid(id) {
		return nil, false
	}
	return &p.slots[id.Index], true
}

func (p *ParticlePool) valid(id SlotID) bool {
	return int(id.Index) < len(p.slots) && p.alive[id.Index] && p.gens[id.Index] == id.Gen
}

// Each calls fn for every live particle in ascending slot order.
// fn may modify the particle but must not Spawn or Free.
func (p *ParticlePool) Each(fn func(id SlotID, particle *Particle)) {
	seen := 0
	for i := range p.slots {
		if seen == p.live {
			return
		}
		if !p.alive[i] {
			continue
		}
		seen++
		fn(SlotID{Index: uint32(i), Gen: p.gens[i]}, &p.slots[i])
	}
}

// Reset frees every slot.
func (p *ParticlePool) Reset() {
	n := len(p.slots)
	p.free = p.free[:0]
	for i := 0; i < n; i++ {
		if p.alive[i] {
			p.gens[i]++
			p.alive[i] = false
			p.slots[i] = Particle{}
		}
		p.free = append(p.free, uint32(n-1-i))
	}
	p.live = 0
}
