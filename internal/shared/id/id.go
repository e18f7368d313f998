// Package id provides centralized ID generation for the runtime.
//
// Two schemes are offered:
//   - ULIDs for long-lived identifiers (apps, subscriptions): k-sortable,
//     prefixed for debuggability (app_*, sub_*).
//   - Record IDs for store records: monotonic counter + timestamp +
//     random suffix. Unique within one process lifetime, not globally.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// AppID identifies a running application instance.
type AppID string

// SubscriptionID identifies a store or bus subscription.
type SubscriptionID string

const (
	AppPrefix          = "app"
	SubscriptionPrefix = "sub"
)

// Generator produces ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	counter   atomic.Uint64
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source, useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// RecordID generates a store record id: a monotonic counter joined with
// the current timestamp and a short random suffix. The counter strictly
// increases, so ids never collide within one process; the suffix only
// guards against casual cross-process clashes.
func (g *Generator) RecordID() string {
	n := g.counter.Add(1)

	suffix := make([]byte, 4)
	g.entropyMu.Lock()
	io.ReadFull(g.entropy, suffix)
	g.entropyMu.Unlock()

	return fmt.Sprintf("rec_%d_%d_%s", n, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// NewAppID generates a new application instance ID.
func NewAppID() AppID {
	return AppID(Default().GenerateWithPrefix(AppPrefix))
}

// NewSubscriptionID generates a new subscription ID.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(Default().GenerateWithPrefix(SubscriptionPrefix))
}

// NewRecordID generates a record id from the default generator.
func NewRecordID() string {
	return Default().RecordID()
}

func (id AppID) String() string          { return string(id) }
func (id SubscriptionID) String() string { return string(id) }

// IsValid checks if an ID string is a valid bare ULID.
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
