package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]interface{}) *Env {
	return NewEnv(vars)
}

func TestLiteralsAndArithmetic(t *testing.T) {
	cases := map[string]interface{}{
		"1 + 2":          float64(3),
		"2 * 3 + 1":      float64(7),
		"10 / 4":         float64(2.5),
		"7 % 3":          float64(1),
		"-2 + 5":         float64(3),
		"'a' + 'b'":      "ab",
		"true":           true,
		"false":          false,
		"null":           nil,
		"(1 + 2) * 2":    float64(6),
		"'quoted \\' q'": "quoted ' q",
	}
	for src, want := range cases {
		got, err := Evaluate(src, env(nil))
		require.NoError(t, err, src)
		assert.Equal(t, want, got, src)
	}
}

func TestComparisons(t *testing.T) {
	e := env(map[string]interface{}{
		"record": map[string]interface{}{"status": "active", "priority": 3},
	})

	cases := map[string]bool{
		"record.status == 'active'":  true,
		"record.status != 'active'":  false,
		"record.priority > 2":        true,
		"record.priority >= 3":       true,
		"record.priority < 3":        false,
		"record.priority <= 2":       false,
		"'3' == 3":                   true, // loose numeric equality
		"record.status == 'active' && record.priority > 1": true,
		"record.status == 'done' || record.priority > 1":   true,
		"!(record.priority > 1)":                           false,
		"not (record.status == 'done')":                    true,
		"record.priority > 1 and record.priority < 5":      true,
		"record.priority > 5 or record.status == 'active'": true,
	}
	for src, want := range cases {
		got, err := EvaluateBool(src, e)
		require.NoError(t, err, src)
		assert.Equal(t, want, got, src)
	}
}

func TestPathResolution(t *testing.T) {
	e := env(map[string]interface{}{
		"data": map[string]interface{}{
			"settings": map[string]interface{}{"theme": "dark"},
		},
	})

	got, err := Evaluate("data.settings.theme", e)
	require.NoError(t, err)
	assert.Equal(t, "dark", got)

	// missing leaf resolves to nil, not an error
	got, err = Evaluate("data.settings.missing", e)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnknownIdentifierErrors(t *testing.T) {
	_, err := Evaluate("nope.thing", env(nil))
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	e := env(map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
		"none":  []interface{}{},
		"name":  "dana",
	})

	cases := map[string]interface{}{
		"count(items)":           float64(3),
		"count(items) > 2":       true,
		"isEmpty(none)":          true,
		"isEmpty(items)":         false,
		"isNotEmpty(items)":      true,
		"includes(items, 'b')":   true,
		"includes(items, 'z')":   false,
		"includes(name, 'an')":   true,
		"count(name)":            float64(4),
	}
	for src, want := range cases {
		got, err := Evaluate(src, e)
		require.NoError(t, err, src)
		assert.Equal(t, want, got, src)
	}
}

func TestTodayAndNow(t *testing.T) {
	got, err := Evaluate("now()", env(nil))
	require.NoError(t, err)
	_, ok := got.(time.Time)
	assert.True(t, ok)

	got, err = Evaluate("today()", env(nil))
	require.NoError(t, err)
	day, ok := got.(time.Time)
	require.True(t, ok)
	assert.Zero(t, day.Hour())

	ok, err = EvaluateBool("now() >= today()", env(nil))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDisallowedConstructsFail(t *testing.T) {
	for _, src := range []string{
		"import os",
		"items[0]",
		"a = 2",
		"func()",       // unknown helper
		"eval('1')",    // not on the allow-list
		"'unterminated",
		"1 +",
	} {
		_, err := Evaluate(src, env(map[string]interface{}{"items": []interface{}{}, "a": 1}))
		assert.Error(t, err, src)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := Evaluate("1 / 0", env(nil))
	assert.Error(t, err)
}

func TestShortCircuitSkipsErrors(t *testing.T) {
	// right side would error, but the left side decides the result
	got, err := EvaluateBool("false && missing.path", env(nil))
	require.NoError(t, err)
	assert.False(t, got)

	got, err = EvaluateBool("true || missing.path", env(nil))
	require.NoError(t, err)
	assert.True(t, got)
}
