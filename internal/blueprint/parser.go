// Package blueprint parses application blueprints into runtime schemas.
//
// A blueprint is the generated description of one app: its entities,
// pages, flows, and access rules. Blueprints arrive as JSON or YAML;
// both decode to the same document shape, and shorthand forms (string
// fields, bare role lists) are expanded here so the rest of the runtime
// only ever sees the full types.AppSchema.
package blueprint

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/appforge/runtime/internal/types"
)

// Document is the root structure of a blueprint file.
type Document struct {
	App      AppMetadata            `yaml:"app" json:"app"`
	Entities []EntityDef            `yaml:"entities,omitempty" json:"entities,omitempty"`
	Pages    []PageDef              `yaml:"pages,omitempty" json:"pages,omitempty"`
	Flows    []FlowDef              `yaml:"flows,omitempty" json:"flows,omitempty"`
	Access   []AccessDef            `yaml:"access,omitempty" json:"access,omitempty"`
	Nav      map[string]interface{} `yaml:"navigation,omitempty" json:"navigation,omitempty"`
	Theme    map[string]interface{} `yaml:"theme,omitempty" json:"theme,omitempty"`
}

// AppMetadata identifies the application.
type AppMetadata struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
}

// EntityDef declares one model. Fields accept two forms: the full
// object form, or the shorthand {name: type} single-pair map.
type EntityDef struct {
	ID     string        `yaml:"id" json:"id"`
	Name   string        `yaml:"name,omitempty" json:"name,omitempty"`
	Fields []interface{} `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// PageDef declares one UI page.
type PageDef struct {
	ID     string                 `yaml:"id" json:"id"`
	Name   string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Entity string                 `yaml:"entity,omitempty" json:"entity,omitempty"`
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
}

// FlowDef declares one flow. Enabled defaults to true when omitted.
// Trigger accepts either a bare event-type string or a full map.
type FlowDef struct {
	ID      string      `yaml:"id" json:"id"`
	Name    string      `yaml:"name,omitempty" json:"name,omitempty"`
	Trigger interface{} `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Enabled *bool       `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Actions []ActionDef `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// ActionDef declares one flow action.
type ActionDef struct {
	ID       string                 `yaml:"id,omitempty" json:"id,omitempty"`
	Type     string                 `yaml:"type" json:"type"`
	Config   map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
	Blocking *bool                  `yaml:"blocking,omitempty" json:"blocking,omitempty"`
	Then     []ActionDef            `yaml:"then,omitempty" json:"then,omitempty"`
	Else     []ActionDef            `yaml:"else,omitempty" json:"else,omitempty"`
	Each     []ActionDef            `yaml:"each,omitempty" json:"each,omitempty"`
}

// AccessDef declares one access rule. Roles accepts either a list or a
// single role string; Allow defaults to read-only when omitted.
type AccessDef struct {
	ID        string                 `yaml:"id,omitempty" json:"id,omitempty"`
	Type      string                 `yaml:"type" json:"type"`
	Target    string                 `yaml:"target" json:"target"`
	Field     string                 `yaml:"field,omitempty" json:"field,omitempty"`
	Roles     interface{}            `yaml:"roles,omitempty" json:"roles,omitempty"`
	Condition string                 `yaml:"condition,omitempty" json:"condition,omitempty"`
	Allow     map[string]interface{} `yaml:"allow,omitempty" json:"allow,omitempty"`
	Enabled   *bool                  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// Parser converts blueprint documents into AppSchemas.
type Parser struct{}

// NewParser creates a blueprint parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a blueprint document and expands it into an AppSchema.
// JSON and YAML are both accepted; the format is sniffed from the first
// significant byte.
func (p *Parser) Parse(content []byte) (*types.AppSchema, error) {
	var doc Document
	if looksLikeJSON(content) {
		if err := sonic.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON blueprint: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML blueprint: %w", err)
		}
	}
	return p.expand(&doc)
}

func looksLikeJSON(content []byte) bool {
	trimmed := bytes.TrimLeft(content, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func (p *Parser) expand(doc *Document) (*types.AppSchema, error) {
	if doc.App.ID == "" {
		return nil, fmt.Errorf("app.id is required")
	}
	if doc.App.Name == "" {
		return nil, fmt.Errorf("app.name is required")
	}

	now := time.Now()
	schema := &types.AppSchema{
		ID:          doc.App.ID,
		Name:        doc.App.Name,
		Description: doc.App.Description,
		Version:     doc.App.Version,
		CreatedAt:   now,
		UpdatedAt:   now,
		Navigation:  doc.Nav,
		Theme:       doc.Theme,
	}

	for _, e := range doc.Entities {
		entity, err := p.expandEntity(e)
		if err != nil {
			return nil, err
		}
		schema.Entities = append(schema.Entities, entity)
	}

	for _, pg := range doc.Pages {
		if pg.ID == "" {
			return nil, fmt.Errorf("page is missing an id")
		}
		schema.Pages = append(schema.Pages, types.Page{
			ID:     pg.ID,
			Name:   defaultName(pg.Name, pg.ID),
			Entity: pg.Entity,
			Config: pg.Config,
		})
	}

	for _, f := range doc.Flows {
		flow, err := p.expandFlow(f)
		if err != nil {
			return nil, err
		}
		schema.Flows = append(schema.Flows, flow)
	}

	for i, a := range doc.Access {
		rule, err := p.expandAccess(a, i)
		if err != nil {
			return nil, err
		}
		schema.AccessRules = append(schema.AccessRules, rule)
	}

	return schema, nil
}

func (p *Parser) expandEntity(def EntityDef) (types.Entity, error) {
	if def.ID == "" {
		return types.Entity{}, fmt.Errorf("entity is missing an id")
	}
	entity := types.Entity{
		ID:   def.ID,
		Name: defaultName(def.Name, def.ID),
	}
	for _, raw := range def.Fields {
		field, err := p.expandField(def.ID, raw)
		if err != nil {
			return types.Entity{}, err
		}
		entity.Fields = append(entity.Fields, field)
	}
	return entity, nil
}

// expandField accepts the full object form and the {name: type}
// shorthand, where type may carry suffixes: "string!" marks required,
// "ref:project" declares a reference field.
func (p *Parser) expandField(entityID string, raw interface{}) (types.Field, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		if isShorthandField(v) {
			for name, typ := range v {
				typeStr, ok := typ.(string)
				if !ok {
					return types.Field{}, fmt.Errorf("entity %q field %q: shorthand type must be a string", entityID, name)
				}
				field := parseShorthand(name, typeStr)
				if field.Reference != nil && field.Reference.Entity == "" {
					return types.Field{}, fmt.Errorf("entity %q field %q: reference target is required", entityID, name)
				}
				return field, nil
			}
		}
		return fieldFromObject(entityID, v)
	case map[interface{}]interface{}:
		return p.expandField(entityID, normalizeMap(v))
	default:
		return types.Field{}, fmt.Errorf("entity %q: unsupported field definition %T", entityID, raw)
	}
}

// isShorthandField reports whether the map is a single {name: type}
// pair rather than a full field object. Only a lone "id" key (or a
// non-string value) means the full-object form; any other single
// string pair is shorthand, so fields may be named "name" or "type".
func isShorthandField(m map[string]interface{}) bool {
	if len(m) != 1 {
		return false
	}
	for k, v := range m {
		if k == "id" {
			return false
		}
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

func parseShorthand(name, typ string) types.Field {
	field := types.Field{ID: name, Name: titleize(name)}
	if strings.HasSuffix(typ, "!") {
		field.Required = true
		typ = strings.TrimSuffix(typ, "!")
	}
	if target, ok := strings.CutPrefix(typ, "ref:"); ok {
		field.Type = "reference"
		field.Reference = &types.Reference{Entity: target}
	} else {
		field.Type = typ
	}
	return field
}

func fieldFromObject(entityID string, m map[string]interface{}) (types.Field, error) {
	id, _ := m["id"].(string)
	if id == "" {
		return types.Field{}, fmt.Errorf("entity %q has a field without an id", entityID)
	}
	field := types.Field{ID: id}
	field.Name, _ = m["name"].(string)
	if field.Name == "" {
		field.Name = titleize(id)
	}
	field.Type, _ = m["type"].(string)
	if field.Type == "" {
		field.Type = "string"
	}
	field.Required, _ = m["required"].(bool)

	switch ref := m["references"].(type) {
	case string:
		field.Type = "reference"
		field.Reference = &types.Reference{Entity: ref}
	}
	if refMap, ok := m["reference"].(map[string]interface{}); ok {
		target, _ := refMap["entity"].(string)
		cascade, _ := refMap["cascade"].(bool)
		field.Type = "reference"
		field.Reference = &types.Reference{Entity: target, Cascade: cascade}
	}
	if field.Reference != nil && field.Reference.Entity == "" {
		return types.Field{}, fmt.Errorf("entity %q field %q: reference target is required", entityID, id)
	}
	return field, nil
}

func (p *Parser) expandFlow(def FlowDef) (types.Flow, error) {
	if def.ID == "" {
		return types.Flow{}, fmt.Errorf("flow is missing an id")
	}
	trigger, err := expandTrigger(def.ID, def.Trigger)
	if err != nil {
		return types.Flow{}, err
	}
	flow := types.Flow{
		ID:      def.ID,
		Name:    defaultName(def.Name, def.ID),
		Trigger: trigger,
		Enabled: def.Enabled == nil || *def.Enabled,
	}
	for _, a := range def.Actions {
		action, err := p.expandAction(def.ID, a)
		if err != nil {
			return types.Flow{}, err
		}
		flow.Actions = append(flow.Actions, action)
	}
	return flow, nil
}

func expandTrigger(flowID string, raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return map[string]interface{}{"type": v}, nil
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		return normalizeMap(v), nil
	default:
		return nil, fmt.Errorf("flow %q: trigger must be a string or map", flowID)
	}
}

func (p *Parser) expandAction(flowID string, def ActionDef) (types.Action, error) {
	if def.Type == "" {
		return types.Action{}, fmt.Errorf("flow %q has an action without a type", flowID)
	}
	action := types.Action{
		ID:       def.ID,
		Type:     def.Type,
		Config:   def.Config,
		Blocking: def.Blocking,
	}
	for _, branch := range []struct {
		src []ActionDef
		dst *[]types.Action
	}{
		{def.Then, &action.Then},
		{def.Else, &action.Else},
		{def.Each, &action.Each},
	} {
		for _, child := range branch.src {
			sub, err := p.expandAction(flowID, child)
			if err != nil {
				return types.Action{}, err
			}
			*branch.dst = append(*branch.dst, sub)
		}
	}
	return action, nil
}

func (p *Parser) expandAccess(def AccessDef, index int) (types.AccessRule, error) {
	if def.Type == "" || def.Target == "" {
		return types.AccessRule{}, fmt.Errorf("access rule %d needs both a type and a target", index)
	}
	rule := types.AccessRule{
		ID:        def.ID,
		Type:      types.RuleType(def.Type),
		Target:    def.Target,
		Field:     def.Field,
		Condition: def.Condition,
		Enabled:   def.Enabled == nil || *def.Enabled,
	}
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("%s_%s_%d", def.Type, def.Target, index)
	}

	switch roles := def.Roles.(type) {
	case nil:
	case string:
		rule.Roles = []types.Role{types.Role(roles)}
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				rule.Roles = append(rule.Roles, types.Role(s))
			}
		}
	case []string:
		for _, r := range roles {
			rule.Roles = append(rule.Roles, types.Role(r))
		}
	default:
		return types.AccessRule{}, fmt.Errorf("access rule %q: roles must be a string or list", rule.ID)
	}

	// read-only when the rule grants nothing explicit
	rule.Allow = types.Grants{Read: true}
	if def.Allow != nil {
		rule.Allow.Read = boolOr(def.Allow["read"], true)
		rule.Allow.Write = boolOr(def.Allow["write"], false)
		rule.Allow.Delete = boolOr(def.Allow["delete"], false)
	}
	return rule, nil
}

func boolOr(v interface{}, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func defaultName(name, id string) string {
	if name != "" {
		return name
	}
	return titleize(id)
}

// titleize turns "project_id" into "Project Id".
func titleize(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func normalizeMap(m map[interface{}]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}

// ParseFile is a convenience wrapper for one-shot parsing.
func ParseFile(content []byte) (*types.AppSchema, error) {
	return NewParser().Parse(content)
}
