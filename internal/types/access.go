package types

// Role is a member of a totally ordered privilege hierarchy.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRanks = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Rank returns the role's position in the hierarchy; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r satisfies a check written for other: equal
// or higher rank. Unknown roles never satisfy anything.
func (r Role) AtLeast(other Role) bool {
	rank := r.Rank()
	return rank > 0 && rank >= other.Rank()
}

// RuleType identifies the granularity an access rule applies at.
type RuleType string

const (
	RulePageAccess   RuleType = "page_access"
	RuleFieldAccess  RuleType = "field_access"
	RuleRowAccess    RuleType = "row_access"
	RuleActionAccess RuleType = "action_access"
)

// Grants enumerates what a matching rule permits.
type Grants struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// AccessRule is a schema-declared policy scoping access by role and an
// optional condition expression, at page/field/row/action granularity.
// Target identifies the page, entity, or action; Field narrows
// field_access rules to one field (empty means all fields of Target).
type AccessRule struct {
	ID        string   `json:"id,omitempty"`
	Type      RuleType `json:"type"`
	Target    string   `json:"target"`
	Field     string   `json:"field,omitempty"`
	Roles     []Role   `json:"roles"`
	Condition string   `json:"condition,omitempty"`
	Allow     Grants   `json:"allow"`
	Enabled   bool     `json:"enabled"`
}

// AppliesTo reports whether the caller's role is listed on the rule or
// outranks a listed role.
func (r AccessRule) AppliesTo(role Role) bool {
	for _, listed := range r.Roles {
		if role == listed || role.AtLeast(listed) {
			return true
		}
	}
	return false
}
