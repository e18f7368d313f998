package types

import "time"

// Record is one entity instance: a loosely-typed string-keyed map that
// always carries a unique "id". Timestamps are stored under "createdAt"
// and "updatedAt" as time.Time values.
type Record map[string]interface{}

// Reserved record keys managed by the store.
const (
	KeyID        = "id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// ID returns the record's id, or "" if unset.
func (r Record) ID() string {
	id, _ := r[KeyID].(string)
	return id
}

// CreatedAt returns the creation timestamp, zero if unset.
func (r Record) CreatedAt() time.Time {
	t, _ := r[KeyCreatedAt].(time.Time)
	return t
}

// Clone returns a deep copy of the record. Nested maps and slices are
// copied; other values are shared (they are treated as immutable).
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Record:
		return map[string]interface{}(val.Clone())
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// ChangeType identifies the kind of mutation a store change describes.
type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeUpdate  ChangeType = "update"
	ChangeDelete  ChangeType = "delete"
	ChangeReplace ChangeType = "replace"
	ChangeClear   ChangeType = "clear"
)

// Change describes one store mutation, delivered to subscribers.
// RecordID, Record, and Previous are populated only where applicable:
// bulk replace/clear changes carry neither a record id nor a record.
type Change struct {
	Type     ChangeType `json:"type"`
	Model    string     `json:"model"`
	RecordID string     `json:"recordId,omitempty"`
	Record   Record     `json:"record,omitempty"`
	Previous Record     `json:"previousValue,omitempty"`
}

// Event is a bus payload retained in history.
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
