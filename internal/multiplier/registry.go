package multiplier

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownMultiplier is returned for a name that is not registered.
var ErrUnknownMultiplier = errors.New("unknown multiplier")

// Factory creates and caches Multiplier instances by name.
type Factory interface {
	// Create returns a fresh Multiplier for name.
	Create(name string) (Multiplier, error)
	// Get returns the cached Multiplier for name, creating it on first use.
	Get(name string) (Multiplier, error)
	// List returns the registered names in sorted order.
	List() []string
	// Register adds or replaces a strategy.
	Register(name string, creator func() Kernel) error
	// GetAll returns every registered Multiplier.
	GetAll() map[string]Multiplier
}

// DefaultFactory is the standard Factory. It is safe for concurrent use.
type DefaultFactory struct {
	mu          sync.RWMutex
	creators    map[string]func() Kernel
	multipliers map[string]Multiplier
}

var _ Factory = (*DefaultFactory)(nil)

// NewDefaultFactory returns a factory with the built-in strategies:
//   - "definition": the O(n^3) reference kernel
//   - "blas": gonum sgemm
//   - "strassen": sequential Strassen-Winograd
//   - "strassen-parallel": Strassen-Winograd forking its seven products
//
// The Strassen strategies use opts, with Parallel forced per strategy.
func NewDefaultFactory(opts Options) *DefaultFactory {
	f := &DefaultFactory{
		creators:    make(map[string]func() Kernel),
		multipliers: make(map[string]Multiplier),
	}
	seq, par := opts, opts
	seq.Parallel = false
	par.Parallel = true

	_ = f.Register("definition", func() Kernel { return DefinitionKernel{} })
	_ = f.Register("blas", func() Kernel { return BLASKernel{} })
	_ = f.Register("strassen", func() Kernel { return StrassenKernel{Opts: seq} })
	_ = f.Register("strassen-parallel", func() Kernel { return StrassenKernel{Opts: par} })
	return f
}

// Register adds a strategy. Registering an existing name replaces it and
// drops the cached instance.
func (f *DefaultFactory) Register(name string, creator func() Kernel) error {
	if name == "" || creator == nil {
		return fmt.Errorf("invalid registration for multiplier %q", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = creator
	delete(f.multipliers, name)
	return nil
}

// Create returns a new, uncached Multiplier.
func (f *DefaultFactory) Create(name string) (Multiplier, error) {
	f.mu.RLock()
	creator, ok := f.creators[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMultiplier, name)
	}
	return Instrument(creator()), nil
}

// Get returns the cached Multiplier for name.
func (f *DefaultFactory) Get(name string) (Multiplier, error) {
	f.mu.RLock()
	if m, ok := f.multipliers[name]; ok {
		f.mu.RUnlock()
		return m, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.multipliers[name]; ok {
		return m, nil
	}
	creator, ok := f.creators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMultiplier, name)
	}
	m := Instrument(creator())
	f.multipliers[name] = m
	return m, nil
}

// List returns the sorted registered names.
func (f *DefaultFactory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll instantiates every registered strategy and returns a copy of the
// cache.
func (f *DefaultFactory) GetAll() map[string]Multiplier {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, creator := range f.creators {
		if _, ok := f.multipliers[name]; !ok {
			f.multipliers[name] = Instrument(creator())
		}
	}
	out := make(map[string]Multiplier, len(f.multipliers))
	for name, m := range f.multipliers {
		out[name] = m
	}
	return out
}

// Has reports whether name is registered.
func (f *DefaultFactory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[name]
	return ok
}
