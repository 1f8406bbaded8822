package enhance

import (
	"fmt"
	"sync"
)

// Registry hands out shared engine handles keyed by Config, so identical
// configurations never instantiate the engine twice. Entries are never
// evicted; the registry lives for the process lifetime and is typically
// constructed once at startup and passed to whatever builds filters.
type Registry struct {
	mu        sync.Mutex
	factory   Factory
	instances map[Config]Enhancer
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:   factory,
		instances: make(map[Config]Enhancer),
	}
}

// GetOrCreate returns the engine for cfg, constructing it on first use.
// The lock is held across the lookup and the insert: the engine
// constructor is not assumed idempotent, so two concurrent first uses of
// the same key must not both construct.
func (r *Registry) GetOrCreate(cfg Config) (Enhancer, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("enhance: invalid engine config %+v", cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[cfg]; ok {
		return inst, nil
	}
	inst, err := r.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("enhance: create engine for %+v: %w", cfg, err)
	}
	r.instances[cfg] = inst
	return inst, nil
}

// Size returns the number of cached engine instances.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
