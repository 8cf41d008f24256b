package engine

import (
	"sync"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

// registries hold the pluggable name -> function maps. Built-ins are
// loaded at engine construction; callers and plugins add their own at
// any time, so access is guarded.

type conditionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]core.ConditionFunc
}

func newConditionRegistry(builtins map[string]core.ConditionFunc) *conditionRegistry {
	funcs := make(map[string]core.ConditionFunc, len(builtins))
	for name, fn := range builtins {
		funcs[name] = fn
	}
	return &conditionRegistry{funcs: funcs}
}

func (r *conditionRegistry) register(name string, fn core.ConditionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *conditionRegistry) lookup(name string) (core.ConditionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

type actionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]core.ActionFunc
}

func newActionRegistry(builtins map[string]core.ActionFunc) *actionRegistry {
	funcs := make(map[string]core.ActionFunc, len(builtins))
	for name, fn := range builtins {
		funcs[name] = fn
	}
	return &actionRegistry{funcs: funcs}
}

func (r *actionRegistry) register(name string, fn core.ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *actionRegistry) lookup(name string) (core.ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// capabilityRegistry is the explicit replacement for method-name
// probing on records: record types register the condition/action names
// they can answer for.
type capabilityRegistry struct {
	mu   sync.RWMutex
	sets map[string]core.CapabilitySet
}

func newCapabilityRegistry() *capabilityRegistry {
	return &capabilityRegistry{sets: make(map[string]core.CapabilitySet)}
}

func (r *capabilityRegistry) register(recordType string, set core.CapabilitySet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[recordType] = set
}

// condition resolves a record-level condition: the record's own
// capability set wins over the per-type registration.
func (r *capabilityRegistry) condition(rec core.Record, name string) (core.ConditionFunc, bool) {
	if cp, ok := rec.(core.CapabilityProvider); ok {
		if fn, ok := cp.Capabilities().Conditions[name]; ok {
			return fn, true
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[rec.RecordType()]
	if !ok {
		return nil, false
	}
	fn, ok := set.Conditions[name]
	return fn, ok
}

func (r *capabilityRegistry) action(rec core.Record, name string) (core.ActionFunc, bool) {
	if cp, ok := rec.(core.CapabilityProvider); ok {
		if fn, ok := cp.Capabilities().Actions[name]; ok {
			return fn, true
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[rec.RecordType()]
	if !ok {
		return nil, false
	}
	fn, ok := set.Actions[name]
	return fn, ok
}
