package store

import "github.com/appforge/runtime/internal/types"

// Begin pushes a deep copy of the entire store onto the transaction
// stack. Transactions nest with strict LIFO discipline and cover
// intra-flow atomicity only; there is no cross-flow isolation.
func (s *Store) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack = append(s.stack, s.snapshotLocked())
}

// Commit discards the most recent snapshot, keeping live state.
// Returns false when no transaction is open.
func (s *Store) Commit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) == 0 {
		return false
	}
	s.stack = s.stack[:len(s.stack)-1]
	return true
}

// Rollback pops the most recent snapshot and replaces live state
// wholesale, re-notifying every affected model as a replace. Returns
// false when no transaction is open.
func (s *Store) Rollback() bool {
	s.mu.Lock()
	if len(s.stack) == 0 {
		s.mu.Unlock()
		return false
	}

	snapshot := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	// union of live and restored models, so models created inside the
	// transaction get a replace notification too
	affected := make(map[string]struct{}, len(s.models))
	for m := range s.models {
		affected[m] = struct{}{}
	}
	for m := range snapshot {
		affected[m] = struct{}{}
	}

	s.models = snapshot
	s.mu.Unlock()

	for model := range affected {
		s.observe(model, "replace")
		s.notify(types.Change{Type: types.ChangeReplace, Model: model})
		s.announce(model, "replaced", "")
	}
	return true
}

// TransactionDepth returns how many snapshots are stacked.
func (s *Store) TransactionDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stack)
}

// snapshotLocked deep-copies every model; callers hold the write lock.
func (s *Store) snapshotLocked() map[string][]types.Record {
	out := make(map[string][]types.Record, len(s.models))
	for model, recs := range s.models {
		copied := make([]types.Record, len(recs))
		for i, rec := range recs {
			copied[i] = rec.Clone()
		}
		out[model] = copied
	}
	return out
}
