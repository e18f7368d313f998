package events

import (
	"strings"
	"sync"
	"time"

	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/types"
	"go.uber.org/zap"
)

// Handler receives a bus event. A returned error is logged and never
// propagated to the emitter or to sibling handlers.
type Handler func(types.Event) error

// Subscription is the handle returned by On/Once.
type Subscription struct {
	bus      *Bus
	id       int
	pattern  string
	wildcard bool
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
}

type entry struct {
	fn   Handler
	once bool
}

// Bus is a typed pub/sub with wildcard matching and bounded history.
// Exact listeners and wildcard listeners live in separate registries;
// "*" and "prefix:*" patterns register in the wildcard one.
type Bus struct {
	mu       sync.RWMutex
	exact    map[string]map[int]*entry
	wildcard map[string]map[int]*entry // keyed by matched prefix
	nextID   int
	history  *history
	log      *logging.Logger
}

// New creates a bus retaining up to historySize events.
func New(historySize int, log *logging.Logger) *Bus {
	if log == nil {
		log = logging.NewNop()
	}
	return &Bus{
		exact:    make(map[string]map[int]*entry),
		wildcard: make(map[string]map[int]*entry),
		history:  newHistory(historySize),
		log:      log.Component("events"),
	}
}

// On registers a listener for the given type pattern. "*" matches every
// event, "prefix:*" matches types beginning with "prefix:".
func (b *Bus) On(pattern string, fn Handler) *Subscription {
	return b.subscribe(pattern, fn, false)
}

// Once registers a listener removed after its first invocation.
func (b *Bus) Once(pattern string, fn Handler) *Subscription {
	return b.subscribe(pattern, fn, true)
}

// Off removes a subscription; equivalent to sub.Unsubscribe.
func (b *Bus) Off(sub *Subscription) {
	if sub != nil {
		b.remove(sub)
	}
}

func (b *Bus) subscribe(pattern string, fn Handler, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &entry{fn: fn, once: once}
	sub := &Subscription{bus: b, id: b.nextID, pattern: pattern}

	if prefix, ok := wildcardPrefix(pattern); ok {
		sub.wildcard = true
		if b.wildcard[prefix] == nil {
			b.wildcard[prefix] = make(map[int]*entry)
		}
		b.wildcard[prefix][sub.id] = e
		return sub
	}

	if b.exact[pattern] == nil {
		b.exact[pattern] = make(map[int]*entry)
	}
	b.exact[pattern][sub.id] = e
	return sub
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.wildcard {
		prefix, _ := wildcardPrefix(sub.pattern)
		if set, ok := b.wildcard[prefix]; ok {
			delete(set, sub.id)
			if len(set) == 0 {
				delete(b.wildcard, prefix)
			}
		}
		return
	}

	if set, ok := b.exact[sub.pattern]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.exact, sub.pattern)
		}
	}
}

// Emit records the event to history and dispatches it to every matching
// exact and wildcard listener. Listeners run concurrently; Emit returns
// once all of them settle. A panicking or erroring listener is logged
// and never suppresses its siblings.
func (b *Bus) Emit(eventType string, data map[string]interface{}, source ...string) types.Event {
	evt := types.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	if len(source) > 0 {
		evt.Source = source[0]
	}

	b.history.add(evt)

	handlers := b.collect(eventType)
	if len(handlers) == 0 {
		return evt
	}

	var wg sync.WaitGroup
	for _, fn := range handlers {
		wg.Add(1)
		go func(fn Handler) {
			defer wg.Done()
			b.invoke(fn, evt)
		}(fn)
	}
	wg.Wait()

	return evt
}

// EmitSync fires and forgets: it returns immediately and dispatches in
// the background so a slow or failing subscriber cannot stall the caller.
func (b *Bus) EmitSync(eventType string, data map[string]interface{}, source ...string) {
	evt := types.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	if len(source) > 0 {
		evt.Source = source[0]
	}

	b.history.add(evt)

	handlers := b.collect(eventType)
	for _, fn := range handlers {
		go b.invoke(fn, evt)
	}
}

func (b *Bus) invoke(fn Handler, evt types.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("listener panicked",
				zap.String("event", evt.Type),
				zap.Any("panic", r))
		}
	}()

	if err := fn(evt); err != nil {
		b.log.Warn("listener failed",
			zap.String("event", evt.Type),
			zap.Error(err))
	}
}

// collect gathers matching handlers and prunes once-listeners.
func (b *Bus) collect(eventType string) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()

	var handlers []Handler

	if set, ok := b.exact[eventType]; ok {
		for id, e := range set {
			handlers = append(handlers, e.fn)
			if e.once {
				delete(set, id)
			}
		}
		if len(set) == 0 {
			delete(b.exact, eventType)
		}
	}

	for prefix, set := range b.wildcard {
		if !strings.HasPrefix(eventType, prefix) {
			continue
		}
		for id, e := range set {
			handlers = append(handlers, e.fn)
			if e.once {
				delete(set, id)
			}
		}
		if len(set) == 0 {
			delete(b.wildcard, prefix)
		}
	}

	return handlers
}

// wildcardPrefix reports whether the pattern is a wildcard and returns
// the prefix emitted types are matched against.
func wildcardPrefix(pattern string) (string, bool) {
	if pattern == "*" {
		return "", true
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.TrimSuffix(pattern, "*"), true
	}
	return "", false
}

// matchPattern reports whether an emitted type matches a filter pattern,
// exact or wildcard.
func matchPattern(pattern, eventType string) bool {
	if pattern == "" {
		return true
	}
	if prefix, ok := wildcardPrefix(pattern); ok {
		return strings.HasPrefix(eventType, prefix)
	}
	return pattern == eventType
}
