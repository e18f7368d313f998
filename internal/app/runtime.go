package app

import (
	"github.com/appforge/runtime/internal/condition"
	"github.com/appforge/runtime/internal/events"
	"github.com/appforge/runtime/internal/flow"
	"github.com/appforge/runtime/internal/infrastructure/config"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/permissions"
	"github.com/appforge/runtime/internal/store"
	"github.com/appforge/runtime/internal/types"
)

// Runtime wires the full component set for one application: event bus,
// data store, condition evaluator, permission service, and flow engine,
// all bound to a single schema. There is no shared global state; every
// app gets its own Runtime and tests construct throwaway ones.
type Runtime struct {
	Schema      *types.AppSchema
	Bus         *events.Bus
	Store       *store.Store
	Evaluator   *condition.Evaluator
	Permissions *permissions.Service
	Flows       *flow.Engine

	log *logging.Logger
}

// Option configures a Runtime during construction.
type Option func(*options)

type options struct {
	storeOpts []store.Option
	flowOpts  []flow.Option
	user      permissions.Context
}

// WithStoreOptions forwards options to the data store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithFlowOptions forwards options to the flow engine.
func WithFlowOptions(opts ...flow.Option) Option {
	return func(o *options) { o.flowOpts = append(o.flowOpts, opts...) }
}

// WithUser sets the initial caller identity for permission checks.
func WithUser(userID string, role types.Role) Option {
	return func(o *options) {
		o.user.UserID = userID
		o.user.Role = role
	}
}

// NewRuntime assembles a runtime for the schema. cfg controls event
// history depth and expression cache TTL; a nil logger disables logging.
func NewRuntime(schema *types.AppSchema, cfg config.RuntimeConfig, log *logging.Logger, opts ...Option) *Runtime {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bus := events.New(cfg.EventHistorySize, componentLogger(log, "events"))
	st := store.New(bus, componentLogger(log, "store"), o.storeOpts...)
	eval := condition.New(componentLogger(log, "condition"), cfg.ExprCacheTTL)

	userCtx := o.user
	if schema != nil {
		userCtx.AppID = schema.ID
	}
	userCtx.Schema = schema
	perms := permissions.New(userCtx, eval, componentLogger(log, "permissions"))
	engine := flow.New(st, bus, eval, schema, componentLogger(log, "flow"), o.flowOpts...)

	return &Runtime{
		Schema:      schema,
		Bus:         bus,
		Store:       st,
		Evaluator:   eval,
		Permissions: perms,
		Flows:       engine,
		log:         log,
	}
}

// Reset drops all record data and abandons any open transactions while
// keeping subscriptions and registered handlers alive. Intended for
// test isolation between cases.
func (r *Runtime) Reset() {
	for r.Store.TransactionDepth() > 0 {
		r.Store.Rollback()
	}
	for _, model := range r.Store.Models() {
		r.Store.ClearModel(model)
	}
}

// Seed loads initial records per model without flowing through the
// flow engine. Used when spawning an app whose blueprint ships data.
func (r *Runtime) Seed(data map[string][]types.Record) {
	for model, records := range data {
		r.Store.SetRecords(model, records)
	}
}

func componentLogger(log *logging.Logger, name string) *logging.Logger {
	if log == nil {
		return nil
	}
	return log.Component(name)
}
