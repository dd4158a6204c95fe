package status

import (
	"sort"
	"sync"

	"github.com/kbukum/prefetchkit/prefetch"
)

// StatsSource is anything that reports session statistics. Track has the
// shape of a prefetch.SessionObserver, so a loader can register its sessions
// with prefetch.WithSessionObserver(registry.Track).
type StatsSource = prefetch.SessionInfo

// Registry tracks running sessions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]StatsSource
	last    map[string]prefetch.Stats
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]StatsSource),
		last:    make(map[string]prefetch.Stats),
	}
}

// Track adds src and returns a func that stops tracking it. The final
// snapshot taken at that point stays queryable.
func (r *Registry) Track(src StatsSource) (untrack func()) {
	id := src.ID()
	r.mu.Lock()
	r.sources[id] = src
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.sources[id]; ok {
			r.last[id] = s.Stats()
			delete(r.sources, id)
		}
	}
}

// Get returns the stats of one session, live or finished.
func (r *Registry) Get(id string) (prefetch.Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sources[id]; ok {
		return s.Stats(), true
	}
	st, ok := r.last[id]
	return st, ok
}

// Snapshot returns the stats of every session, ordered by session ID.
func (r *Registry) Snapshot() []prefetch.Stats {
	r.mu.RLock()
	out := make([]prefetch.Stats, 0, len(r.sources)+len(r.last))
	for _, s := range r.sources {
		out = append(out, s.Stats())
	}
	for _, st := range r.last {
		out = append(out, st)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
