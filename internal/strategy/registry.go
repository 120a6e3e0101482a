package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Constructor builds a fresh strategy with default parameters.
type Constructor func() Strategy

// Registry maps strategy names to constructors. It is filled at process
// start; nothing is discovered from the filesystem.
type Registry interface {
	Register(name string, constructor Constructor) error
	New(name string) (Strategy, error)
	List() []string
}

// RegistryV1 is the map-backed Registry.
type RegistryV1 struct {
	constructors map[string]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *RegistryV1 {
	return &RegistryV1{
		constructors: make(map[string]Constructor),
		mu:           sync.RWMutex{},
	}
}

// DefaultRegistry returns a registry holding every built-in strategy.
func DefaultRegistry() *RegistryV1 {
	r := NewRegistry()
	// names are distinct, so registration cannot fail
	_ = r.Register(SMACrossoverName, func() Strategy { return NewSMACrossover() })
	_ = r.Register(FiveEMAName, func() Strategy { return NewFiveEMA() })

	return r
}

// Register adds a constructor under name.
func (r *RegistryV1) Register(name string, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || constructor == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name and constructor are required")
	}

	if _, exists := r.constructors[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", name)
	}

	r.constructors[name] = constructor

	return nil
}

// New builds the strategy registered under name.
func (r *RegistryV1) New(name string) (Strategy, error) {
	r.mu.RLock()
	constructor, exists := r.constructors[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return constructor(), nil
}

// List returns the registered names in sorted order.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
