package permissions

import (
	"sync"

	"github.com/appforge/runtime/internal/condition"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/types"
)

// Context identifies the caller a service instance enforces rules for.
type Context struct {
	UserID string
	Role   types.Role
	AppID  string
	Schema *types.AppSchema
}

// Service enforces schema-declared access rules at page, field, row,
// and action granularity. Denials are always boolean or filtered-result
// outcomes, never errors.
type Service struct {
	mu   sync.RWMutex
	ctx  Context
	eval *condition.Evaluator
	log  *logging.Logger
}

// New creates a permissions service for one caller context. Row and
// rule conditions are resolved through the shared condition evaluator.
func New(ctx Context, eval *condition.Evaluator, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	if eval == nil {
		eval = condition.New(log, 0)
	}
	return &Service{ctx: ctx, eval: eval, log: log.Component("permissions")}
}

// UpdateContext hot-swaps the caller identity, e.g. on login or role
// change, without rebuilding the service.
func (s *Service) UpdateContext(userID string, role types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.UserID = userID
	s.ctx.Role = role
}

func (s *Service) caller() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// CanViewPage reports whether the caller may open the page. With no
// declared page rules the page is open to everyone; once any rule
// exists, some rule must list (or be outranked by) the caller's role
// and grant read.
func (s *Service) CanViewPage(pageID string) bool {
	ctx := s.caller()
	rules := s.rulesFor(ctx, types.RulePageAccess, pageID, "")
	if len(rules) == 0 {
		return true
	}
	for _, rule := range rules {
		if rule.AppliesTo(ctx.Role) && rule.Allow.Read && s.conditionHolds(ctx, rule, nil) {
			return true
		}
	}
	return false
}

// CanViewField reports field visibility; absent rules default to
// visible.
func (s *Service) CanViewField(entityID, fieldID string) bool {
	ctx := s.caller()
	rules := s.rulesFor(ctx, types.RuleFieldAccess, entityID, fieldID)
	if len(rules) == 0 {
		return true
	}
	for _, rule := range rules {
		if rule.AppliesTo(ctx.Role) && rule.Allow.Read {
			return true
		}
	}
	return false
}

// CanEditField reports field editability; absent rules allow editing
// only at or above the editor rank.
func (s *Service) CanEditField(entityID, fieldID string) bool {
	ctx := s.caller()
	rules := s.rulesFor(ctx, types.RuleFieldAccess, entityID, fieldID)
	if len(rules) == 0 {
		return ctx.Role.AtLeast(types.RoleEditor)
	}
	for _, rule := range rules {
		if rule.AppliesTo(ctx.Role) && rule.Allow.Write {
			return true
		}
	}
	return false
}

// FilterRows keeps only the records some row rule grants the caller
// read access to. A record with no matching allowing rule is dropped.
func (s *Service) FilterRows(entityID string, records []types.Record) []types.Record {
	ctx := s.caller()
	rules := s.rulesFor(ctx, types.RuleRowAccess, entityID, "")

	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		for _, rule := range rules {
			if rule.AppliesTo(ctx.Role) && rule.Allow.Read && s.conditionHolds(ctx, rule, rec) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// HasRowRules reports whether any enabled row rule targets the entity.
// Read surfaces use this to leave unguarded entities fully visible
// while FilterRows stays strict for guarded ones.
func (s *Service) HasRowRules(entityID string) bool {
	return len(s.rulesFor(s.caller(), types.RuleRowAccess, entityID, "")) > 0
}

// VisibleRows applies row filtering for read surfaces. Entities with
// no declared row rules pass through untouched; guarded entities
// delegate to FilterRows.
func (s *Service) VisibleRows(entityID string, records []types.Record) []types.Record {
	if !s.HasRowRules(entityID) {
		return records
	}
	return s.FilterRows(entityID, records)
}

// CanPerformAction reports whether the caller may run the action;
// absent rules default to editor and above.
func (s *Service) CanPerformAction(actionID string) bool {
	ctx := s.caller()
	rules := s.rulesFor(ctx, types.RuleActionAccess, actionID, "")
	if len(rules) == 0 {
		return ctx.Role.AtLeast(types.RoleEditor)
	}
	for _, rule := range rules {
		if rule.AppliesTo(ctx.Role) && rule.Allow.Write && s.conditionHolds(ctx, rule, nil) {
			return true
		}
	}
	return false
}

// rulesFor returns the enabled rules of one type scoped to a target,
// optionally narrowed to a field.
func (s *Service) rulesFor(ctx Context, ruleType types.RuleType, target, field string) []types.AccessRule {
	if ctx.Schema == nil {
		return nil
	}
	var out []types.AccessRule
	for _, rule := range ctx.Schema.AccessRules {
		if !rule.Enabled || rule.Type != ruleType || rule.Target != target {
			continue
		}
		if field != "" && rule.Field != "" && rule.Field != field {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// conditionHolds evaluates a rule's optional condition expression with
// the record's fields bound by name and current_user bound to the
// caller. Identifiers resolve through the restricted interpreter; no
// value is ever substituted into source text.
func (s *Service) conditionHolds(ctx Context, rule types.AccessRule, rec types.Record) bool {
	if rule.Condition == "" {
		return true
	}
	bound := rec.Clone()
	if bound == nil {
		bound = types.Record{}
	}
	bound["current_user"] = ctx.UserID
	return s.eval.EvaluateExpression(rule.Condition, condition.Context{Record: bound})
}
