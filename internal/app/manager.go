package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appforge/runtime/internal/infrastructure/config"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/types"
)

// Instance is one running application.
type Instance struct {
	ID        string           `json:"id"`
	Schema    *types.AppSchema `json:"schema"`
	CreatedAt time.Time        `json:"created_at"`
	Runtime   *Runtime         `json:"-"`
}

// Manager owns the set of running app instances.
type Manager struct {
	apps sync.Map
	cfg  config.RuntimeConfig
	log  *logging.Logger
}

// NewManager creates an instance manager.
func NewManager(cfg config.RuntimeConfig, log *logging.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

// Spawn builds a runtime for the schema and registers it under a fresh
// instance id.
func (m *Manager) Spawn(schema *types.AppSchema, opts ...Option) *Instance {
	inst := &Instance{
		ID:        uuid.New().String(),
		Schema:    schema,
		CreatedAt: time.Now(),
		Runtime:   NewRuntime(schema, m.cfg, m.log, opts...),
	}
	m.apps.Store(inst.ID, inst)
	if m.log != nil {
		m.log.Info("app spawned",
			zap.String("instance_id", inst.ID),
			zap.String("app_id", schema.ID))
	}
	return inst
}

// Get retrieves an instance by id.
func (m *Manager) Get(id string) (*Instance, bool) {
	val, ok := m.apps.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Instance), true
}

// List returns all running instances.
func (m *Manager) List() []*Instance {
	var out []*Instance
	m.apps.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Instance))
		return true
	})
	return out
}

// Close tears an instance down and drops its data.
func (m *Manager) Close(id string) bool {
	val, ok := m.apps.LoadAndDelete(id)
	if !ok {
		return false
	}
	inst := val.(*Instance)
	inst.Runtime.Reset()
	if m.log != nil {
		m.log.Info("app closed", zap.String("instance_id", id))
	}
	return true
}

// Count returns the number of running instances.
func (m *Manager) Count() int {
	n := 0
	m.apps.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
