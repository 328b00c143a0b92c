package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/decker502/fxsim/internal/particle"
)

// ErrUnknownHandle is returned for handles that were never issued or have
// been destroyed.
var ErrUnknownHandle = errors.New("unknown effect handle")

// Handle identifies an instance owned by an EffectManager.
// Handles are never reused.
type Handle uint64

// EffectManager owns a set of effect instances addressed by handle.
//
// The handle table is guarded by a lock; each instance is touched by at most
// one goroutine at a time, so instances carry no locks of their own.
// Calls that address the same handle must not overlap with AdvanceAll.
type EffectManager struct {
	mu        sync.RWMutex
	instances map[Handle]*Instance
	next      Handle
}

// NewEffectManager creates an empty manager.
func NewEffectManager() *EffectManager {
	return &EffectManager{
		instances: make(map[Handle]*Instance),
	}
}

// Instantiate creates a new instance of def.
func (m *EffectManager) Instantiate(def *particle.Definition, opts Options) (Handle, error) {
	inst, err := NewInstance(def, opts)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.next++
	h := m.next
	m.instances[h] = inst
	m.mu.Unlock()

	log.Printf("[EffectManager] Instantiated effect %s as handle %d (seed=%d)", def.Name, h, opts.Seed)
	return h, nil
}

// Get returns the instance for h.
func (m *EffectManager) Get(h Handle) (*Instance, error) {
	m.mu.RLock()
	inst, ok := m.instances[h]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return inst, nil
}

// Advance steps one instance by dt seconds.
func (m *EffectManager) Advance(h Handle, dt float64) error {
	inst, err := m.Get(h)
	if err != nil {
		return err
	}
	inst.Advance(dt)
	return nil
}

// Destroy releases the instance. Destroying an unknown or already destroyed
// handle is a no-op.
func (m *EffectManager) Destroy(h Handle) {
	m.mu.Lock()
	_, ok := m.instances[h]
	delete(m.instances, h)
	m.mu.Unlock()
	if ok {
		log.Printf("[EffectManager] Destroyed handle %d", h)
	}
}

// Len returns the number of live instances.
func (m *EffectManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// Handles returns the live handles in ascending order.
func (m *EffectManager) Handles() []Handle {
	m.mu.RLock()
	hs := make([]Handle, 0, len(m.instances))
	for h := range m.instances {
		hs = append(hs, h)
	}
	m.mu.RUnlock()
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// AdvanceAll steps every live instance by dt using up to workers goroutines.
// workers <= 0 uses GOMAXPROCS. Instances are independent, so the result
// does not depend on the worker count.
//
// Returns ctx.Err() if the context is cancelled before all instances ran.
func (m *EffectManager) AdvanceAll(ctx context.Context, dt float64, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	m.mu.RLock()
	batch := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		batch = append(batch, inst)
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, inst := range batch {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inst.Advance(dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ReapFinished destroys every instance that reports Finished and returns
// how many were removed.
func (m *EffectManager) ReapFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for h, inst := range m.instances {
		if inst.Finished() {
			delete(m.instances, h)
			n++
		}
	}
	return n
}
