package orchestrator

import "sync"

// compensationRegistry is the per-orchestration record of undo operations.
// Entries are pushed in forward-completion order and drained in strict
// reverse (LIFO) order, so dependent resources are torn down before the
// resources they depend on. Safe under concurrent pushes from sibling
// steps at the same plan level.
type compensationRegistry struct {
	mu      sync.Mutex
	entries []CompensationEntry
	drained bool
}

func newCompensationRegistry() *compensationRegistry {
	return &compensationRegistry{}
}

// push records the compensation for one successful forward step. Pushing
// after the registry has been drained is a contract violation; such an
// entry can never be compensated.
func (r *compensationRegistry) push(entry CompensationEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		panic("orchestrator: push on drained compensation registry")
	}
	r.entries = append(r.entries, entry)
}

// drain returns all entries in reverse push order and clears the registry.
// It may be called once per orchestration; subsequent calls return nil.
func (r *compensationRegistry) drain() []CompensationEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return nil
	}
	r.drained = true

	reversed := make([]CompensationEntry, len(r.entries))
	for i, e := range r.entries {
		reversed[len(r.entries)-1-i] = e
	}
	r.entries = nil
	return reversed
}

// len reports the number of registered entries.
func (r *compensationRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// resources returns the recorded ResourceRefs in push (completion) order.
func (r *compensationRegistry) resources() []ResourceRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]ResourceRef, len(r.entries))
	for i, e := range r.entries {
		refs[i] = e.Resource
	}
	return refs
}
