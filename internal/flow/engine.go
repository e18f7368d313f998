package flow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/appforge/runtime/internal/condition"
	"github.com/appforge/runtime/internal/events"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/store"
	"github.com/appforge/runtime/internal/types"
)

// Handler executes one action type. The returned map becomes the
// action's output in the flow result.
type Handler func(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error)

// Execution is the per-run scope handed to handlers.
type Execution struct {
	Engine  *Engine
	FlowID  string
	Trigger map[string]interface{}
}

// Result is the structured outcome of one flow run. On failure it
// carries the first error plus the partial action trace.
type Result struct {
	Success bool           `json:"success"`
	FlowID  string         `json:"flow_id"`
	Results []ActionResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// ActionResult records one executed action.
type ActionResult struct {
	ActionID string                 `json:"action_id,omitempty"`
	Type     string                 `json:"type"`
	Success  bool                   `json:"success"`
	Output   map[string]interface{} `json:"output,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Metrics is the optional instrumentation hook for flow runs.
type Metrics interface {
	ObserveFlowRun(flowID string, success bool)
}

// Engine executes flows against the data store. It is the intended
// sole mutation path; one flow runs its actions strictly in declared
// order with no intra-flow parallelism.
type Engine struct {
	store  *store.Store
	bus    *events.Bus
	eval   *condition.Evaluator
	schema *types.AppSchema

	mu       sync.RWMutex
	handlers map[string]Handler

	log     *logging.Logger
	metrics Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics wires an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine with the built-in handler set registered.
func New(st *store.Store, bus *events.Bus, eval *condition.Evaluator, schema *types.AppSchema, log *logging.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	e := &Engine{
		store:    st,
		bus:      bus,
		eval:     eval,
		schema:   schema,
		handlers: make(map[string]Handler),
		log:      log.Component("flow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerBuiltins()
	return e
}

// Register adds or replaces the handler for an action type. The
// registry is open so hosts can add their own action types.
func (e *Engine) Register(actionType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[actionType] = h
}

func (e *Engine) handler(actionType string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[actionType]
	return h, ok
}

// ExecuteFlow runs the flow with the given trigger payload. A missing
// or disabled flow yields a structured failure. Actions run strictly
// in order; the first blocking failure halts the flow and returns the
// partial trace, while non-blocking failures are recorded and skipped
// past.
func (e *Engine) ExecuteFlow(ctx context.Context, flowID string, trigger map[string]interface{}) *Result {
	flow := e.schema.Flow(flowID)
	if flow == nil {
		return e.fail(flowID, nil, fmt.Sprintf("flow %q not found", flowID))
	}
	if !flow.Enabled {
		return e.fail(flowID, nil, fmt.Sprintf("flow %q is disabled", flowID))
	}

	exec := &Execution{Engine: e, FlowID: flowID, Trigger: trigger}
	results, err := e.runActions(ctx, exec, flow.Actions)
	if err != nil {
		return e.fail(flowID, results, err.Error())
	}

	if e.metrics != nil {
		e.metrics.ObserveFlowRun(flowID, true)
	}
	if e.bus != nil {
		e.bus.EmitSync("flow:"+flowID+":completed", map[string]interface{}{
			"flowId":  flowID,
			"actions": len(results),
		}, "flow-engine")
	}
	return &Result{Success: true, FlowID: flowID, Results: results}
}

// runActions executes an action list sequentially; nested branches
// reuse it for then/else and loop bodies.
func (e *Engine) runActions(ctx context.Context, exec *Execution, actions []types.Action) ([]ActionResult, error) {
	var results []ActionResult

	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		output, err := e.runAction(ctx, exec, action)
		if err != nil {
			results = append(results, ActionResult{
				ActionID: action.ID,
				Type:     action.Type,
				Error:    err.Error(),
			})
			if action.IsBlocking() {
				return results, err
			}
			e.log.Warn("non-blocking action failed",
				zap.String("flow", exec.FlowID),
				zap.String("action", action.Type),
				zap.Error(err))
			continue
		}

		results = append(results, ActionResult{
			ActionID: action.ID,
			Type:     action.Type,
			Success:  true,
			Output:   output,
		})
	}
	return results, nil
}

func (e *Engine) runAction(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	h, ok := e.handler(action.Type)
	if !ok {
		return nil, fmt.Errorf("no handler for action type %q", action.Type)
	}
	return h(ctx, exec, action)
}

func (e *Engine) fail(flowID string, results []ActionResult, msg string) *Result {
	if e.metrics != nil {
		e.metrics.ObserveFlowRun(flowID, false)
	}
	if e.bus != nil {
		e.bus.EmitSync("flow:"+flowID+":failed", map[string]interface{}{
			"flowId": flowID,
			"error":  msg,
		}, "flow-engine")
	}
	return &Result{FlowID: flowID, Results: results, Error: msg}
}

// formData extracts field data from a trigger payload: the value under
// "formData" when wrapped, the whole payload otherwise.
func formData(trigger map[string]interface{}) map[string]interface{} {
	if trigger == nil {
		return nil
	}
	if fd, ok := trigger["formData"].(map[string]interface{}); ok {
		return fd
	}
	return trigger
}

func configString(cfg map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := cfg[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
