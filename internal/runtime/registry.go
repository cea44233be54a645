package runtime

import "sync"

// Entry is the minimal state tracked for a launched service. PIDs are not
// recorded because the process found at shutdown may not be the one spawned;
// the executable image name identifies the service's processes instead.
type Entry struct {
	Service    string
	Executable string
}

// Registry maps service names to their executable image names. It is written
// by the launcher during startup and read by the shutdown coordinator. Every
// access holds the lock only for the map operation itself.
type Registry struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Insert records that service was launched from executable. Inserting a known
// service replaces its executable while keeping its original position.
func (r *Registry) Insert(service, executable string) {
	if service == "" {
		panic("runtime.Registry.Insert: service must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[service]; ok {
		r.entries[i].Executable = executable
		return
	}
	r.index[service] = len(r.entries)
	r.entries = append(r.entries, Entry{Service: service, Executable: executable})
}

// Snapshot returns a copy of all entries in insertion order. Callers iterate
// the copy without holding the registry lock.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of tracked services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
