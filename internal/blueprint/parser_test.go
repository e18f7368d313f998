package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/runtime/internal/types"
)

const yamlDoc = `
app:
  id: crm
  name: Simple CRM
  version: "1.0"
entities:
  - id: project
    fields:
      - name: string!
      - budget: number
  - id: task
    name: Work Item
    fields:
      - title: string
      - project_id: ref:project
      - id: assigned_to
        type: string
        name: Assignee
pages:
  - id: dashboard
  - id: task_list
    entity: task
flows:
  - id: add-task
    trigger: submit
    actions:
      - type: create_record
        config:
          model: task
      - type: show_notification
        blocking: false
        config:
          message: saved
  - id: archived
    enabled: false
access:
  - type: page_access
    target: dashboard
    roles: [viewer, editor]
  - type: row_access
    target: task
    roles: editor
    condition: "assigned_to == current_user"
    allow:
      read: true
      write: true
`

func TestParseYAML(t *testing.T) {
	schema, err := ParseFile([]byte(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, "crm", schema.ID)
	assert.Equal(t, "Simple CRM", schema.Name)
	assert.False(t, schema.CreatedAt.IsZero())

	require.Len(t, schema.Entities, 2)
	project := schema.Entity("project")
	require.NotNil(t, project)
	assert.Equal(t, "Project", project.Name, "display name defaults from the id")

	name := project.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "string", name.Type)
	assert.True(t, name.Required, "trailing ! marks the field required")

	task := schema.Entity("task")
	assert.Equal(t, "Work Item", task.Name, "explicit name wins")

	ref := task.Field("project_id")
	require.NotNil(t, ref)
	assert.Equal(t, "reference", ref.Type)
	require.NotNil(t, ref.Reference)
	assert.Equal(t, "project", ref.Reference.Entity)
	assert.Equal(t, "Project Id", ref.Name)

	assignee := task.Field("assigned_to")
	require.NotNil(t, assignee)
	assert.Equal(t, "Assignee", assignee.Name)
}

func TestParseYAMLFlows(t *testing.T) {
	schema, err := ParseFile([]byte(yamlDoc))
	require.NoError(t, err)

	require.Len(t, schema.Flows, 2)
	add := schema.Flow("add-task")
	require.NotNil(t, add)
	assert.True(t, add.Enabled, "enabled defaults to true")
	assert.Equal(t, map[string]interface{}{"type": "submit"}, add.Trigger,
		"bare trigger string expands to a typed map")
	require.Len(t, add.Actions, 2)
	assert.Equal(t, types.ActionCreateRecord, add.Actions[0].Type)
	assert.True(t, add.Actions[0].IsBlocking(), "blocking defaults to true")
	assert.False(t, add.Actions[1].IsBlocking())

	assert.False(t, schema.Flow("archived").Enabled)
}

func TestParseYAMLAccess(t *testing.T) {
	schema, err := ParseFile([]byte(yamlDoc))
	require.NoError(t, err)

	require.Len(t, schema.AccessRules, 2)

	page := schema.AccessRules[0]
	assert.Equal(t, types.RulePageAccess, page.Type)
	assert.Equal(t, []types.Role{types.RoleViewer, types.RoleEditor}, page.Roles)
	assert.True(t, page.Allow.Read, "omitted allow grants read only")
	assert.False(t, page.Allow.Write)
	assert.True(t, page.Enabled)
	assert.NotEmpty(t, page.ID, "missing rule ids are generated")

	row := schema.AccessRules[1]
	assert.Equal(t, []types.Role{types.RoleEditor}, row.Roles, "bare role string becomes a one-element list")
	assert.True(t, row.Allow.Write)
	assert.False(t, row.Allow.Delete)
	assert.Equal(t, "assigned_to == current_user", row.Condition)
}

func TestParseJSON(t *testing.T) {
	doc := `{
		"app": {"id": "notes", "name": "Notes"},
		"entities": [
			{"id": "note", "fields": [
				{"body": "string"},
				{"id": "author", "type": "string", "required": true}
			]}
		],
		"flows": [
			{"id": "save", "actions": [
				{"type": "create_record", "config": {"model": "note"},
				 "then": [{"type": "navigate", "config": {"page": "home"}}]}
			]}
		]
	}`

	schema, err := ParseFile([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "notes", schema.ID)

	note := schema.Entity("note")
	require.NotNil(t, note)
	assert.Equal(t, "string", note.Field("body").Type)
	assert.True(t, note.Field("author").Required)

	save := schema.Flow("save")
	require.NotNil(t, save)
	require.Len(t, save.Actions, 1)
	require.Len(t, save.Actions[0].Then, 1)
	assert.Equal(t, types.ActionNavigate, save.Actions[0].Then[0].Type)
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	_, err := ParseFile([]byte(`app: {name: Nameless}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.id")

	_, err = ParseFile([]byte(`app: {id: x}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.name")
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := ParseFile([]byte(`{"app": `))
	assert.Error(t, err)

	_, err = ParseFile([]byte("app:\n  id: x\n  name: X\nentities:\n  - fields: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity is missing an id")

	_, err = ParseFile([]byte("app:\n  id: x\n  name: X\naccess:\n  - target: t\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type")

	_, err = ParseFile([]byte("app:\n  id: x\n  name: X\nentities:\n  - id: e\n    fields:\n      - id: title\n        references: \"\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference target")
}

func TestTriggerMapForm(t *testing.T) {
	doc := `
app: {id: x, name: X}
flows:
  - id: nightly
    trigger:
      type: schedule
      cron: "0 2 * * *"
    actions:
      - type: refresh_data
`
	schema, err := ParseFile([]byte(doc))
	require.NoError(t, err)

	flow := schema.Flow("nightly")
	require.NotNil(t, flow)
	assert.Equal(t, "schedule", flow.Trigger["type"])
	assert.Equal(t, "0 2 * * *", flow.Trigger["cron"])

	_, err = ParseFile([]byte("app: {id: x, name: X}\nflows:\n  - id: f\n    trigger: 7\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger")
}

func TestShorthandFieldNamedLikeObjectKeys(t *testing.T) {
	// fields literally called "name" or "type" still parse as shorthand
	doc := `
app: {id: x, name: X}
entities:
  - id: contact
    fields:
      - name: string!
      - type: string
`
	schema, err := ParseFile([]byte(doc))
	require.NoError(t, err)

	contact := schema.Entity("contact")
	require.NotNil(t, contact)

	name := contact.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "string", name.Type)
	assert.True(t, name.Required)

	typ := contact.Field("type")
	require.NotNil(t, typ)
	assert.Equal(t, "string", typ.Type)
}

func TestReferenceObjectForm(t *testing.T) {
	doc := `
app: {id: x, name: X}
entities:
  - id: comment
    fields:
      - id: task_id
        reference:
          entity: task
          cascade: true
`
	schema, err := ParseFile([]byte(doc))
	require.NoError(t, err)

	f := schema.Entity("comment").Field("task_id")
	require.NotNil(t, f.Reference)
	assert.Equal(t, "task", f.Reference.Entity)
	assert.True(t, f.Reference.Cascade)
	assert.Equal(t, "reference", f.Type)
}
