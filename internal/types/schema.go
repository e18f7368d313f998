package types

import "time"

// AppSchema is the generated description of one application: entities,
// pages, flows, and access rules. The runtime consumes this shape as-is;
// structural validation happens upstream in the generator.
type AppSchema struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Version     string                 `json:"version,omitempty"`
	CreatedAt   time.Time              `json:"created_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at,omitempty"`
	Entities    []Entity               `json:"entities,omitempty"`
	Pages       []Page                 `json:"pages,omitempty"`
	Flows       []Flow                 `json:"flows,omitempty"`
	AccessRules []AccessRule           `json:"access_rules,omitempty"`
	Navigation  map[string]interface{} `json:"navigation,omitempty"`
	Theme       map[string]interface{} `json:"theme,omitempty"`
}

// Entity describes one model: a named collection of records.
type Entity struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Field describes one entity field. Reference is set for fields whose
// value is another entity's record id.
type Field struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Required  bool       `json:"required,omitempty"`
	Reference *Reference `json:"reference,omitempty"`
}

// Reference carries reference-field metadata.
type Reference struct {
	Entity  string `json:"entity"`
	Cascade bool   `json:"cascade,omitempty"`
}

// Page describes one UI page. The runtime only needs its identity for
// access checks; layout is the materializer's concern.
type Page struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Entity string                 `json:"entity,omitempty"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// Entity returns the entity with the given id, or nil.
func (s *AppSchema) Entity(id string) *Entity {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i]
		}
	}
	return nil
}

// Flow returns the flow with the given id, or nil.
func (s *AppSchema) Flow(id string) *Flow {
	for i := range s.Flows {
		if s.Flows[i].ID == id {
			return &s.Flows[i]
		}
	}
	return nil
}

// Field returns the named field on the entity, or nil.
func (e *Entity) Field(id string) *Field {
	for i := range e.Fields {
		if e.Fields[i].ID == id {
			return &e.Fields[i]
		}
	}
	return nil
}

// ReferenceFields returns the entity's reference fields.
func (e *Entity) ReferenceFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Reference != nil {
			out = append(out, f)
		}
	}
	return out
}
