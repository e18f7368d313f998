package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/runtime/internal/types"
)

func seedTasks(s *Store) {
	s.CreateRecord("task", types.Record{"id": "t1", "status": "a", "priority": 3, "title": "alpha"})
	s.CreateRecord("task", types.Record{"id": "t2", "status": "b", "priority": 1, "title": "beta"})
	s.CreateRecord("task", types.Record{"id": "t3", "status": "c", "priority": nil, "title": "gamma"})
	s.CreateRecord("task", types.Record{"id": "t4", "status": "a", "priority": 2, "title": "alphabet"})
}

func ids(recs []types.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	return out
}

func TestQueryBareValueIsEquality(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	got := s.Query("task", Query{Filter: map[string]interface{}{"status": "a"}})
	assert.ElementsMatch(t, []string{"t1", "t4"}, ids(got))
}

func TestQueryInOperator(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	got := s.Query("task", Query{Filter: map[string]interface{}{
		"status": map[string]interface{}{"$in": []interface{}{"a", "b"}},
	}})
	assert.ElementsMatch(t, []string{"t1", "t2", "t4"}, ids(got))

	none := s.Query("task", Query{Filter: map[string]interface{}{
		"status": map[string]interface{}{"$nin": []interface{}{"a", "b", "c"}},
	}})
	assert.Empty(t, none)
}

func TestQueryComparisonOperators(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	got := s.Query("task", Query{Filter: map[string]interface{}{
		"priority": map[string]interface{}{"$gte": 2},
	}})
	assert.ElementsMatch(t, []string{"t1", "t4"}, ids(got))

	got = s.Query("task", Query{Filter: map[string]interface{}{
		"priority": map[string]interface{}{"$lt": 2},
	}})
	assert.ElementsMatch(t, []string{"t2"}, ids(got))

	got = s.Query("task", Query{Filter: map[string]interface{}{
		"status": map[string]interface{}{"$ne": "a"},
	}})
	assert.ElementsMatch(t, []string{"t2", "t3"}, ids(got))
}

func TestQueryNullNeverInRange(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	// t3 has a nil priority: no range operator may match it
	for _, op := range []string{"$gt", "$gte", "$lt", "$lte"} {
		got := s.Query("task", Query{Filter: map[string]interface{}{
			"priority": map[string]interface{}{op: 0},
		}})
		assert.NotContains(t, ids(got), "t3", op)
	}
}

func TestQueryStringOperators(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	got := s.Query("task", Query{Filter: map[string]interface{}{
		"title": map[string]interface{}{"$startsWith": "alpha"},
	}})
	assert.ElementsMatch(t, []string{"t1", "t4"}, ids(got))

	got = s.Query("task", Query{Filter: map[string]interface{}{
		"title": map[string]interface{}{"$endsWith": "bet"},
	}})
	assert.ElementsMatch(t, []string{"t4"}, ids(got))

	got = s.Query("task", Query{Filter: map[string]interface{}{
		"title": map[string]interface{}{"$contains": "amm"},
	}})
	assert.ElementsMatch(t, []string{"t3"}, ids(got))
}

func TestQuerySortNullsLastBothDirections(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	asc := s.Query("task", Query{Sort: "priority", Order: "asc"})
	require.Len(t, asc, 4)
	assert.Equal(t, []string{"t2", "t4", "t1", "t3"}, ids(asc))

	desc := s.Query("task", Query{Sort: "priority", Order: "desc"})
	require.Len(t, desc, 4)
	assert.Equal(t, []string{"t1", "t4", "t2", "t3"}, ids(desc), "nulls last even descending")
}

func TestQueryPagination(t *testing.T) {
	s := newTestStore()
	seedTasks(s)

	page := s.Query("task", Query{Sort: "id", Offset: 1, Limit: 2})
	assert.Equal(t, []string{"t2", "t3"}, ids(page))

	past := s.Query("task", Query{Offset: 10})
	assert.Empty(t, past)
}
