package service

import (
	"context"
	"sort"
	"sync"

	"github.com/smsline/smsline/internal/model"
	appErr "github.com/smsline/smsline/internal/pkg/errors"
)

// entry pairs one Verification with its coordination state. The entry
// mutex guards the verification and the await bookkeeping; writes come
// only from the owning poller and from Cancel/Complete on the
// coordinator (single-writer rule for business fields).
type entry struct {
	mu sync.Mutex
	v  *model.Verification

	// consumed is the AwaitCode cursor: codes[0:consumed] have been
	// delivered to some awaiter. Lives here, not on the model, so
	// snapshots stay pure data.
	consumed int

	// notify is closed and replaced on every state change; awaiters
	// grab the current channel and block on it.
	notify chan struct{}

	// stopPoll cancels the owning poller's context.
	stopPoll context.CancelFunc

	// terminalAt is set when the verification reaches a terminal
	// status; drives retention eviction.
	terminalAt int64
}

func newEntry(v *model.Verification) *entry {
	return &entry{v: v, notify: make(chan struct{})}
}

// signalLocked wakes every awaiter. Callers hold e.mu.
func (e *entry) signalLocked() {
	close(e.notify)
	e.notify = make(chan struct{})
}

func (e *entry) snapshot() *model.Verification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.v.Clone()
}

// Registry is the in-memory table of verifications: the single source
// of truth for what is currently being waited on.
type Registry struct {
	mu            sync.RWMutex
	byID          map[string]*entry
	byCorrelation map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byID:          make(map[string]*entry),
		byCorrelation: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Insert(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := e.v.ID
	if _, exists := r.byID[id]; exists {
		return appErr.ErrConflict
	}
	r.byID[id] = e
	corr := e.v.CorrelationID
	if corr != "" {
		set := r.byCorrelation[corr]
		if set == nil {
			set = make(map[string]struct{})
			r.byCorrelation[corr] = set
		}
		set[id] = struct{}{}
	}
	return nil
}

func (r *Registry) Get(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return e, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	corr := e.v.CorrelationID
	if set, ok := r.byCorrelation[corr]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byCorrelation, corr)
		}
	}
}

// ListActive returns snapshots of every non-terminal verification.
func (r *Registry) ListActive() []*model.Verification {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var out []*model.Verification
	for _, e := range entries {
		snap := e.snapshot()
		if !snap.Status.Terminal() {
			out = append(out, snap)
		}
	}
	sortByRentedAt(out)
	return out
}

// ListByCorrelation returns snapshots of every verification ever linked
// to correlationID, oldest first.
func (r *Registry) ListByCorrelation(correlationID string) []*model.Verification {
	r.mu.RLock()
	var entries []*entry
	for id := range r.byCorrelation[correlationID] {
		if e, ok := r.byID[id]; ok {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	out := make([]*model.Verification, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	sortByRentedAt(out)
	return out
}

// ActivePrimary returns the newest non-terminal entry for a correlation
// id, or nil. At most one entry per correlation is non-terminal in
// normal operation; the newest wins if that ever does not hold.
func (r *Registry) ActivePrimary(correlationID string) *entry {
	r.mu.RLock()
	var entries []*entry
	for id := range r.byCorrelation[correlationID] {
		if e, ok := r.byID[id]; ok {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	var best *entry
	var bestRented int64
	for _, e := range entries {
		e.mu.Lock()
		terminal := e.v.Status.Terminal()
		rented := e.v.RentedAt
		e.mu.Unlock()
		if terminal {
			continue
		}
		if best == nil || rented > bestRented {
			best, bestRented = e, rented
		}
	}
	return best
}

// EvictTerminalBefore removes terminal entries whose terminal timestamp
// is older than cutoff (unix ms), returning the evicted ids.
func (r *Registry) EvictTerminalBefore(cutoff int64) []string {
	r.mu.RLock()
	candidates := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		candidates = append(candidates, e)
	}
	r.mu.RUnlock()

	var evicted []string
	for _, e := range candidates {
		e.mu.Lock()
		terminal := e.v.Status.Terminal()
		terminalAt := e.terminalAt
		id := e.v.ID
		e.mu.Unlock()
		if terminal && terminalAt > 0 && terminalAt < cutoff {
			r.Remove(id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// entries returns every live entry, for engine-internal sweeps.
func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out
}

func sortByRentedAt(list []*model.Verification) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].RentedAt == list[j].RentedAt {
			return list[i].ID < list[j].ID
		}
		return list[i].RentedAt < list[j].RentedAt
	})
}
