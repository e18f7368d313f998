package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := g.GenerateString()
		assert.False(t, seen[s], "duplicate ULID: %s", s)
		seen[s] = true
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	g := NewGenerator()
	s := g.GenerateWithPrefix(AppPrefix)
	assert.True(t, strings.HasPrefix(s, "app_"))
	assert.True(t, IsValid(strings.TrimPrefix(s, "app_")))
}

func TestRecordIDUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := g.RecordID()
		assert.True(t, strings.HasPrefix(s, "rec_"))
		assert.False(t, seen[s], "duplicate record id: %s", s)
		seen[s] = true
	}
}

func TestRecordIDConcurrent(t *testing.T) {
	g := NewGenerator()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s := g.RecordID()
				mu.Lock()
				if seen[s] {
					t.Errorf("duplicate record id under concurrency: %s", s)
				}
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestTypedIDs(t *testing.T) {
	app := NewAppID()
	sub := NewSubscriptionID()

	assert.True(t, strings.HasPrefix(app.String(), "app_"))
	assert.True(t, strings.HasPrefix(sub.String(), "sub_"))
}
