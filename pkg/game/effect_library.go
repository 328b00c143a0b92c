package game

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/decker502/fxsim/internal/particle"
)

// EffectLibrary loads effect definitions from a file system and caches them.
//
// Definitions are immutable after parsing, so the same *particle.Definition
// is handed out to every caller and may back any number of instances.
// The library is safe for concurrent use.
//
// Usage:
//
//	lib := NewEffectLibrary(embedded.Effects(), ".")
//	def, err := lib.Get("fireworks")
type EffectLibrary struct {
	fsys fs.FS
	root string

	mu    sync.RWMutex
	cache map[string]*particle.Definition // name -> definition
}

// NewEffectLibrary creates a library reading *.yaml files below root in fsys.
func NewEffectLibrary(fsys fs.FS, root string) *EffectLibrary {
	if root == "" {
		root = "."
	}
	return &EffectLibrary{
		fsys:  fsys,
		root:  root,
		cache: make(map[string]*particle.Definition),
	}
}

// Get returns the named definition, loading and validating it on first use.
// The name may omit the .yaml extension.
func (l *EffectLibrary) Get(name string) (*particle.Definition, error) {
	key := strings.TrimSuffix(name, ".yaml")

	l.mu.RLock()
	def, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return def, nil
	}

	def, err := particle.Load(l.fsys, path.Join(l.root, key))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	// 并发加载时保留先写入的定义
	if existing, ok := l.cache[key]; ok {
		def = existing
	} else {
		l.cache[key] = def
		log.Printf("[EffectLibrary] Loaded effect %s: %d emitters", key, def.EmitterCount())
	}
	l.mu.Unlock()
	return def, nil
}

// Names lists the effect files available below root, sorted, without extension.
func (l *EffectLibrary) Names() ([]string, error) {
	matches, err := fs.Glob(l.fsys, path.Join(l.root, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list effects: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(path.Base(m), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll loads every available effect and returns all failures joined.
// Successfully loaded effects stay cached even when others fail.
func (l *EffectLibrary) LoadAll() (int, error) {
	names, err := l.Names()
	if err != nil {
		return 0, err
	}
	var errs []error
	loaded := 0
	for _, name := range names {
		if _, err := l.Get(name); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	if len(errs) > 0 {
		return loaded, errors.Join(errs...)
	}
	return loaded, nil
}

// Invalidate drops the cached definition so the next Get reloads it.
// Instances created from the old definition keep using it.
func (l *EffectLibrary) Invalidate(name string) {
	l.mu.Lock()
	delete(l.cache, strings.TrimSuffix(name, ".yaml"))
	l.mu.Unlock()
}
