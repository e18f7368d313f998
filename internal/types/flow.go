package types

// Flow is an ordered action list run by the flow engine when its
// trigger fires. Disabled flows refuse execution.
type Flow struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Trigger map[string]interface{} `json:"trigger,omitempty"`
	Actions []Action               `json:"actions"`
	Enabled bool                   `json:"enabled"`
}

// Action is one flow step. Config carries handler-specific settings.
// Blocking defaults to true: a failed blocking action halts the flow,
// a failed non-blocking one is recorded and skipped past.
// Then/Else hold nested branches for condition actions, Each holds the
// per-item body for loop actions.
type Action struct {
	ID       string                 `json:"id,omitempty"`
	Type     string                 `json:"type"`
	Config   map[string]interface{} `json:"config,omitempty"`
	Blocking *bool                  `json:"blocking,omitempty"`
	Then     []Action               `json:"then,omitempty"`
	Else     []Action               `json:"else,omitempty"`
	Each     []Action               `json:"each,omitempty"`
}

// IsBlocking reports whether a failure of this action halts the flow.
func (a Action) IsBlocking() bool {
	return a.Blocking == nil || *a.Blocking
}

// Well-known action types. The handler registry is open: hosts may
// register additional types.
const (
	ActionCreateRecord     = "create_record"
	ActionUpdateRecord     = "update_record"
	ActionDeleteRecord     = "delete_record"
	ActionCondition        = "condition"
	ActionLoop             = "loop"
	ActionNavigate         = "navigate"
	ActionShowNotification = "show_notification"
	ActionRefreshData      = "refresh_data"
)
