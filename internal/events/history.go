package events

import (
	"sync"
	"time"

	"github.com/appforge/runtime/internal/types"
)

// HistoryFilter narrows a History query. Type accepts the same exact
// and wildcard forms as On. Zero values mean "no constraint".
type HistoryFilter struct {
	Type  string
	Since time.Time
	Limit int
}

// history is a bounded ring buffer of emitted events; the oldest entry
// is dropped once capacity is reached.
type history struct {
	mu    sync.RWMutex
	buf   []types.Event
	head  int
	count int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 1000
	}
	return &history{buf: make([]types.Event, capacity)}
}

func (h *history) add(evt types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[(h.head+h.count)%len(h.buf)] = evt
	if h.count < len(h.buf) {
		h.count++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
}

// snapshot returns retained events oldest-first.
func (h *history) snapshot() []types.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.Event, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(h.head+i)%len(h.buf)])
	}
	return out
}

// History returns retained events matching the filter in chronological
// order. Limit keeps the most recent entries.
func (b *Bus) History(filter HistoryFilter) []types.Event {
	all := b.history.snapshot()

	out := make([]types.Event, 0, len(all))
	for _, evt := range all {
		if !matchPattern(filter.Type, evt.Type) {
			continue
		}
		if !filter.Since.IsZero() && evt.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, evt)
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}
