package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/appforge/runtime/internal/events"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/shared/id"
	"github.com/appforge/runtime/internal/types"
)

// Listener receives change notifications for one model, or for every
// model when registered globally.
type Listener func(types.Change)

// Subscription is the handle returned by Subscribe/SubscribeAll.
type Subscription struct {
	store  *Store
	id     int
	model  string
	global bool
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.store.unsubscribe(s)
}

// Metrics is the optional instrumentation hook the store reports into.
type Metrics interface {
	ObserveStoreOp(model, op string)
}

// Store is the reactive in-memory record store. Records live per model
// in insertion order; every mutation notifies scoped and global
// listeners and announces a typed event on the bus.
type Store struct {
	mu        sync.RWMutex
	models    map[string][]types.Record
	listeners map[string]map[int]Listener
	global    map[int]Listener
	nextSub   int
	stack     []map[string][]types.Record

	bus     *events.Bus
	ids     *id.Generator
	log     *logging.Logger
	metrics Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics wires an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithGenerator overrides the record-id generator, useful for
// deterministic tests.
func WithGenerator(g *id.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// New creates an empty store publishing change events on bus.
func New(bus *events.Bus, log *logging.Logger, opts ...Option) *Store {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Store{
		models:    make(map[string][]types.Record),
		listeners: make(map[string]map[int]Listener),
		global:    make(map[int]Listener),
		bus:       bus,
		ids:       id.Default(),
		log:       log.Component("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Models returns the names of models currently holding records.
func (s *Store) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.models))
	for m := range s.models {
		out = append(out, m)
	}
	return out
}

// GetRecords returns all records of a model in insertion order.
func (s *Store) GetRecords(model string) []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.models[model]
	out := make([]types.Record, len(recs))
	copy(out, recs)
	return out
}

// GetRecord returns the record with the given id, or nil.
func (s *Store) GetRecord(model, recordID string) types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, rec := s.find(model, recordID); rec != nil {
		return rec
	}
	return nil
}

// CreateRecord appends a record to the model, assigning an id when
// absent and stamping createdAt/updatedAt. Listeners are notified with
// a create change and a typed "created" event is announced.
func (s *Store) CreateRecord(model string, record types.Record) types.Record {
	rec := record.Clone()
	if rec == nil {
		rec = types.Record{}
	}

	if rec.ID() == "" {
		rec[types.KeyID] = s.ids.RecordID()
	}
	now := time.Now()
	if _, ok := rec[types.KeyCreatedAt]; !ok {
		rec[types.KeyCreatedAt] = now
	}
	rec[types.KeyUpdatedAt] = now

	s.mu.Lock()
	s.models[model] = append(s.models[model], rec)
	s.mu.Unlock()

	s.observe(model, "create")
	s.notify(types.Change{
		Type:     types.ChangeCreate,
		Model:    model,
		RecordID: rec.ID(),
		Record:   rec,
	})
	s.announce(model, "created", rec.ID())

	return rec
}

// UpdateRecord shallow-merges updates over the existing record,
// preserving id and createdAt and stamping updatedAt. The change
// carries the previous value. Returns nil when the record is absent.
func (s *Store) UpdateRecord(model, recordID string, updates map[string]interface{}) types.Record {
	s.mu.Lock()
	idx, rec := s.find(model, recordID)
	if rec == nil {
		s.mu.Unlock()
		return nil
	}

	previous := rec.Clone()
	merged := rec.Clone()
	for k, v := range updates {
		// id and createdAt are immutable
		if k == types.KeyID || k == types.KeyCreatedAt {
			continue
		}
		merged[k] = v
	}
	merged[types.KeyUpdatedAt] = time.Now()
	s.models[model][idx] = merged
	s.mu.Unlock()

	s.observe(model, "update")
	s.notify(types.Change{
		Type:     types.ChangeUpdate,
		Model:    model,
		RecordID: recordID,
		Record:   merged,
		Previous: previous,
	})
	s.announce(model, "updated", recordID)

	return merged
}

// DeleteRecord removes a record by id. Returns false, with no
// notification, when the record is absent.
func (s *Store) DeleteRecord(model, recordID string) bool {
	s.mu.Lock()
	idx, rec := s.find(model, recordID)
	if rec == nil {
		s.mu.Unlock()
		return false
	}

	s.models[model] = append(s.models[model][:idx], s.models[model][idx+1:]...)
	s.mu.Unlock()

	s.observe(model, "delete")
	s.notify(types.Change{
		Type:     types.ChangeDelete,
		Model:    model,
		RecordID: recordID,
		Record:   rec,
	})
	s.announce(model, "deleted", recordID)

	return true
}

// SetRecords replaces a model's records wholesale.
func (s *Store) SetRecords(model string, records []types.Record) {
	recs := make([]types.Record, len(records))
	for i, r := range records {
		recs[i] = r.Clone()
	}

	s.mu.Lock()
	s.models[model] = recs
	s.mu.Unlock()

	s.observe(model, "replace")
	s.notify(types.Change{Type: types.ChangeReplace, Model: model})
	s.announce(model, "replaced", "")
}

// ClearModel removes every record of a model.
func (s *Store) ClearModel(model string) {
	s.mu.Lock()
	delete(s.models, model)
	s.mu.Unlock()

	s.observe(model, "clear")
	s.notify(types.Change{Type: types.ChangeClear, Model: model})
	s.announce(model, "cleared", "")
}

// Subscribe registers a listener for one model's changes.
func (s *Store) Subscribe(model string, fn Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	if s.listeners[model] == nil {
		s.listeners[model] = make(map[int]Listener)
	}
	s.listeners[model][s.nextSub] = fn
	return &Subscription{store: s, id: s.nextSub, model: model}
}

// SubscribeAll registers a listener for every model's changes.
func (s *Store) SubscribeAll(fn Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	s.global[s.nextSub] = fn
	return &Subscription{store: s, id: s.nextSub, global: true}
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.global {
		delete(s.global, sub.id)
		return
	}
	if set, ok := s.listeners[sub.model]; ok {
		delete(set, sub.id)
		// dropping the last listener drops the model's set
		if len(set) == 0 {
			delete(s.listeners, sub.model)
		}
	}
}

// find locates a record by id; callers hold at least a read lock.
func (s *Store) find(model, recordID string) (int, types.Record) {
	for i, rec := range s.models[model] {
		if rec.ID() == recordID {
			return i, rec
		}
	}
	return -1, nil
}

// notify invokes scoped then global listeners synchronously,
// best-effort: a panicking listener is logged and its siblings still
// run.
func (s *Store) notify(change types.Change) {
	s.mu.RLock()
	var fns []Listener
	for _, fn := range s.listeners[change.Model] {
		fns = append(fns, fn)
	}
	for _, fn := range s.global {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		s.safeNotify(fn, change)
	}
}

func (s *Store) safeNotify(fn Listener, change types.Change) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("listener panicked",
				zap.String("model", change.Model),
				zap.String("change", string(change.Type)),
				zap.Any("panic", r))
		}
	}()
	fn(change)
}

// announce publishes the typed store event for a mutation.
func (s *Store) announce(model, verb, recordID string) {
	if s.bus == nil {
		return
	}
	data := map[string]interface{}{"model": model}
	if recordID != "" {
		data["recordId"] = recordID
	}
	s.bus.EmitSync("store:"+model+":"+verb, data, "store")
}

func (s *Store) observe(model, op string) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOp(model, op)
	}
}
