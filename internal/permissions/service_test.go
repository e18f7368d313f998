package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/runtime/internal/types"
)

func schemaWithRules(rules ...types.AccessRule) *types.AppSchema {
	return &types.AppSchema{
		ID:          "crm",
		Entities:    []types.Entity{{ID: "task", Name: "Task"}},
		Pages:       []types.Page{{ID: "dashboard"}, {ID: "admin-panel"}},
		AccessRules: rules,
	}
}

func newService(role types.Role, userID string, rules ...types.AccessRule) *Service {
	return New(Context{
		UserID: userID,
		Role:   role,
		AppID:  "crm",
		Schema: schemaWithRules(rules...),
	}, nil, nil)
}

func TestCanViewPageDefaultAllow(t *testing.T) {
	svc := newService(types.RoleViewer, "u1")
	assert.True(t, svc.CanViewPage("dashboard"))
}

func TestCanViewPageRuleEnforced(t *testing.T) {
	rule := types.AccessRule{
		Type:    types.RulePageAccess,
		Target:  "admin-panel",
		Roles:   []types.Role{types.RoleAdmin},
		Allow:   types.Grants{Read: true},
		Enabled: true,
	}

	assert.False(t, newService(types.RoleViewer, "u1", rule).CanViewPage("admin-panel"))
	assert.True(t, newService(types.RoleAdmin, "u1", rule).CanViewPage("admin-panel"))
	// owner outranks admin and satisfies the same rule
	assert.True(t, newService(types.RoleOwner, "u1", rule).CanViewPage("admin-panel"))
	// a rule for one page leaves other pages open
	assert.True(t, newService(types.RoleViewer, "u1", rule).CanViewPage("dashboard"))
}

func TestDisabledRuleIgnored(t *testing.T) {
	rule := types.AccessRule{
		Type:    types.RulePageAccess,
		Target:  "admin-panel",
		Roles:   []types.Role{types.RoleAdmin},
		Allow:   types.Grants{Read: true},
		Enabled: false,
	}
	// the only rule is disabled, so the page falls back to default-allow
	assert.True(t, newService(types.RoleViewer, "u1", rule).CanViewPage("admin-panel"))
}

func TestFieldDefaults(t *testing.T) {
	viewer := newService(types.RoleViewer, "u1")
	editor := newService(types.RoleEditor, "u1")

	assert.True(t, viewer.CanViewField("task", "title"))
	assert.False(t, viewer.CanEditField("task", "title"), "viewer denied edit with no write-granting rule")
	assert.True(t, editor.CanEditField("task", "title"))
}

func TestFieldRuleGrantsWrite(t *testing.T) {
	rule := types.AccessRule{
		Type:    types.RuleFieldAccess,
		Target:  "task",
		Field:   "salary",
		Roles:   []types.Role{types.RoleAdmin},
		Allow:   types.Grants{Read: true, Write: true},
		Enabled: true,
	}

	assert.False(t, newService(types.RoleEditor, "u1", rule).CanEditField("task", "salary"))
	assert.True(t, newService(types.RoleAdmin, "u1", rule).CanEditField("task", "salary"))
}

func TestFilterRowsByCondition(t *testing.T) {
	rule := types.AccessRule{
		Type:      types.RuleRowAccess,
		Target:    "task",
		Roles:     []types.Role{types.RoleViewer},
		Condition: "assigned_to == current_user",
		Allow:     types.Grants{Read: true},
		Enabled:   true,
	}
	svc := newService(types.RoleViewer, "u42", rule)

	records := []types.Record{
		{"id": "t1", "assigned_to": "u42"},
		{"id": "t2", "assigned_to": "u7"},
		{"id": "t3"},
	}

	got := svc.FilterRows("task", records)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID())
}

func TestFilterRowsNoMatchingRuleDropsAll(t *testing.T) {
	svc := newService(types.RoleOwner, "u1")
	got := svc.FilterRows("task", []types.Record{{"id": "t1"}})
	assert.Empty(t, got, "absent row rules drop every record")
}

func TestVisibleRowsUnguardedEntityPassesThrough(t *testing.T) {
	rule := types.AccessRule{
		Type:      types.RuleRowAccess,
		Target:    "task",
		Roles:     []types.Role{types.RoleViewer},
		Condition: `id == "p1"`,
		Allow:     types.Grants{Read: true},
		Enabled:   true,
	}
	svc := newService(types.RoleViewer, "u1", rule)

	// "project" declares no row rules: everything is visible.
	records := []types.Record{{"id": "p1"}, {"id": "p2"}}
	assert.False(t, svc.HasRowRules("project"))
	assert.Len(t, svc.VisibleRows("project", records), 2)

	// "task" is guarded and falls through to strict filtering.
	assert.True(t, svc.HasRowRules("task"))
	assert.Len(t, svc.VisibleRows("task", records), 1)

	disabled := types.AccessRule{
		Type:    types.RuleRowAccess,
		Target:  "task",
		Allow:   types.Grants{Read: true},
		Enabled: false,
	}
	assert.False(t, newService(types.RoleViewer, "u1", disabled).HasRowRules("task"))
}

func TestFilterRowsUnconditionalRule(t *testing.T) {
	rule := types.AccessRule{
		Type:    types.RuleRowAccess,
		Target:  "task",
		Roles:   []types.Role{types.RoleEditor},
		Allow:   types.Grants{Read: true},
		Enabled: true,
	}

	records := []types.Record{{"id": "t1"}, {"id": "t2"}}
	assert.Len(t, newService(types.RoleEditor, "u1", rule).FilterRows("task", records), 2)
	assert.Empty(t, newService(types.RoleViewer, "u1", rule).FilterRows("task", records))
}

func TestCanPerformActionDefaults(t *testing.T) {
	assert.False(t, newService(types.RoleViewer, "u1").CanPerformAction("export"))
	assert.True(t, newService(types.RoleEditor, "u1").CanPerformAction("export"))
}

func TestCanPerformActionRule(t *testing.T) {
	rule := types.AccessRule{
		Type:    types.RuleActionAccess,
		Target:  "delete-all",
		Roles:   []types.Role{types.RoleOwner},
		Allow:   types.Grants{Write: true},
		Enabled: true,
	}

	assert.False(t, newService(types.RoleAdmin, "u1", rule).CanPerformAction("delete-all"))
	assert.True(t, newService(types.RoleOwner, "u1", rule).CanPerformAction("delete-all"))
}

func TestUpdateContextHotSwap(t *testing.T) {
	svc := newService(types.RoleViewer, "u1")
	assert.False(t, svc.CanPerformAction("export"))

	svc.UpdateContext("u2", types.RoleAdmin)
	assert.True(t, svc.CanPerformAction("export"))
}

func TestNilSchemaDefaults(t *testing.T) {
	svc := New(Context{Role: types.RoleViewer}, nil, nil)
	assert.True(t, svc.CanViewPage("anything"))
	assert.False(t, svc.CanEditField("task", "title"))
}
