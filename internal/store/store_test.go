package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/runtime/internal/events"
	"github.com/appforge/runtime/internal/types"
)

func newTestStore() *Store {
	return New(events.New(100, nil), nil)
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	s := newTestStore()

	rec := s.CreateRecord("task", types.Record{"title": "first"})
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID())
	assert.False(t, rec.CreatedAt().IsZero())
	assert.Equal(t, "first", rec["title"])
}

func TestCreateKeepsProvidedID(t *testing.T) {
	s := newTestStore()

	rec := s.CreateRecord("task", types.Record{"id": "t1"})
	assert.Equal(t, "t1", rec.ID())
	assert.Equal(t, "t1", s.GetRecord("task", "t1").ID())
}

func TestCreatedIDsUniquePerModel(t *testing.T) {
	s := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		rec := s.CreateRecord("task", types.Record{})
		assert.False(t, seen[rec.ID()])
		seen[rec.ID()] = true
	}
}

func TestUpdateMergesAndPreservesCreatedAt(t *testing.T) {
	s := newTestStore()

	rec := s.CreateRecord("task", types.Record{"id": "t1", "status": "todo", "title": "x"})
	created := rec.CreatedAt()

	time.Sleep(2 * time.Millisecond)
	updated := s.UpdateRecord("task", "t1", map[string]interface{}{"status": "done"})
	require.NotNil(t, updated)

	assert.Equal(t, "done", updated["status"])
	assert.Equal(t, "x", updated["title"], "partial updates accumulate, not replace")
	assert.Equal(t, created, updated.CreatedAt(), "createdAt never changes")
	assert.Equal(t, "t1", updated.ID())

	// sequential partial updates accumulate
	s.UpdateRecord("task", "t1", map[string]interface{}{"priority": 2})
	final := s.GetRecord("task", "t1")
	assert.Equal(t, "done", final["status"])
	assert.Equal(t, 2, final["priority"])
}

func TestUpdateMissingReturnsNil(t *testing.T) {
	s := newTestStore()
	assert.Nil(t, s.UpdateRecord("task", "nope", map[string]interface{}{"a": 1}))
}

func TestDeleteMissingReturnsFalseWithoutNotification(t *testing.T) {
	s := newTestStore()

	var notified int
	s.Subscribe("task", func(types.Change) { notified++ })

	assert.False(t, s.DeleteRecord("task", "nope"))
	assert.Zero(t, notified)
}

func TestDeleteRemovesAndNotifies(t *testing.T) {
	s := newTestStore()
	s.CreateRecord("task", types.Record{"id": "t1"})

	var change types.Change
	s.Subscribe("task", func(c types.Change) { change = c })

	assert.True(t, s.DeleteRecord("task", "t1"))
	assert.Nil(t, s.GetRecord("task", "t1"))
	assert.Equal(t, types.ChangeDelete, change.Type)
	assert.Equal(t, "t1", change.RecordID)
	require.NotNil(t, change.Record)
	assert.Equal(t, "t1", change.Record.ID())
}

func TestSubscribeCreateFiresOnce(t *testing.T) {
	s := newTestStore()

	var changes []types.Change
	s.Subscribe("task", func(c types.Change) { changes = append(changes, c) })

	s.CreateRecord("task", types.Record{"id": "t1"})

	require.Len(t, changes, 1)
	assert.Equal(t, types.ChangeCreate, changes[0].Type)
}

func TestUpdateNotificationCarriesPrevious(t *testing.T) {
	s := newTestStore()
	s.CreateRecord("task", types.Record{"id": "t1", "status": "todo"})

	var change types.Change
	sub := s.Subscribe("task", func(c types.Change) { change = c })
	defer sub.Unsubscribe()

	s.UpdateRecord("task", "t1", map[string]interface{}{"status": "done"})

	assert.Equal(t, types.ChangeUpdate, change.Type)
	assert.Equal(t, "t1", change.RecordID)
	assert.Equal(t, "done", change.Record["status"])
	require.NotNil(t, change.Previous)
	assert.Equal(t, "todo", change.Previous["status"])
	assert.Equal(t, "done", s.GetRecord("task", "t1")["status"])
}

func TestGlobalListenerSeesEveryModel(t *testing.T) {
	s := newTestStore()

	var models []string
	s.SubscribeAll(func(c types.Change) { models = append(models, c.Model) })

	s.CreateRecord("task", types.Record{})
	s.CreateRecord("user", types.Record{})

	assert.Equal(t, []string{"task", "user"}, models)
}

func TestUnsubscribeRemovesModelSet(t *testing.T) {
	s := newTestStore()

	sub := s.Subscribe("task", func(types.Change) {})
	sub.Unsubscribe()

	s.mu.RLock()
	_, ok := s.listeners["task"]
	s.mu.RUnlock()
	assert.False(t, ok, "removing the last listener removes the model's set")
}

func TestPanickingListenerDoesNotBlockSiblings(t *testing.T) {
	s := newTestStore()

	var ok bool
	s.Subscribe("task", func(types.Change) { panic("bad listener") })
	s.Subscribe("task", func(types.Change) { ok = true })

	rec := s.CreateRecord("task", types.Record{"id": "t1"})

	assert.True(t, ok, "sibling listener must still run")
	assert.NotNil(t, s.GetRecord("task", rec.ID()), "mutation must survive listener panic")
}

func TestSetRecordsAndClearNotifyWithoutRecordID(t *testing.T) {
	s := newTestStore()

	var changes []types.Change
	s.Subscribe("task", func(c types.Change) { changes = append(changes, c) })

	s.SetRecords("task", []types.Record{{"id": "a"}, {"id": "b"}})
	s.ClearModel("task")

	require.Len(t, changes, 2)
	assert.Equal(t, types.ChangeReplace, changes[0].Type)
	assert.Empty(t, changes[0].RecordID)
	assert.Equal(t, types.ChangeClear, changes[1].Type)
	assert.Empty(t, s.GetRecords("task"))
}

func TestStoreAnnouncesTypedEvents(t *testing.T) {
	bus := events.New(100, nil)
	s := New(bus, nil)

	done := make(chan types.Event, 1)
	bus.On("store:task:*", func(evt types.Event) error {
		done <- evt
		return nil
	})

	s.CreateRecord("task", types.Record{"id": "t1"})

	select {
	case evt := <-done:
		assert.Equal(t, "store:task:created", evt.Type)
		assert.Equal(t, "t1", evt.Data["recordId"])
	case <-time.After(time.Second):
		t.Fatal("expected a store event")
	}
}
