package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appforge/runtime/internal/app"
	"github.com/appforge/runtime/internal/blueprint"
	"github.com/appforge/runtime/internal/events"
	"github.com/appforge/runtime/internal/infrastructure/monitoring"
	"github.com/appforge/runtime/internal/store"
	"github.com/appforge/runtime/internal/types"
)

// Handlers contains all HTTP handlers for the runtime host.
type Handlers struct {
	apps    *app.Manager
	parser  *blueprint.Parser
	metrics *monitoring.Metrics
}

// NewHandlers creates a handler set.
func NewHandlers(apps *app.Manager, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		apps:    apps,
		parser:  blueprint.NewParser(),
		metrics: metrics,
	}
}

// Root reports service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "AppForge Runtime",
	})
}

// Health reports liveness and instance counts.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"apps":   h.apps.Count(),
	})
}

// SpawnApp parses a blueprint body (JSON or YAML) and starts a runtime
// for it. The caller identity comes from headers and scopes all later
// permission checks on the instance.
func (h *Handlers) SpawnApp(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	schema, err := h.parser.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, role := callerIdentity(c)
	inst := h.apps.Spawn(schema, app.WithUser(userID, role))
	if h.metrics != nil {
		h.metrics.RecordAppSpawned()
	}

	c.JSON(http.StatusCreated, gin.H{
		"instance_id": inst.ID,
		"app_id":      schema.ID,
		"name":        schema.Name,
	})
}

// ListApps lists running instances.
func (h *Handlers) ListApps(c *gin.Context) {
	instances := h.apps.List()
	out := make([]gin.H, 0, len(instances))
	for _, inst := range instances {
		out = append(out, gin.H{
			"instance_id": inst.ID,
			"app_id":      inst.Schema.ID,
			"name":        inst.Schema.Name,
			"created_at":  inst.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"apps": out, "count": len(out)})
}

// GetApp returns one instance with its schema.
func (h *Handlers) GetApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instance_id": inst.ID,
		"created_at":  inst.CreatedAt,
		"schema":      inst.Schema,
	})
}

// CloseApp tears an instance down.
func (h *Handlers) CloseApp(c *gin.Context) {
	if !h.apps.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "app instance not found"})
		return
	}
	if h.metrics != nil {
		h.metrics.RecordAppClosed()
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// ListRecords returns a model's records, filtered by the caller's row
// access.
func (h *Handlers) ListRecords(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	model := c.Param("model")
	records := inst.Runtime.Permissions.VisibleRows(model, inst.Runtime.Store.GetRecords(model))
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// QueryRecords runs a structured query against a model.
func (h *Handlers) QueryRecords(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	var query store.Query
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	model := c.Param("model")
	records := inst.Runtime.Store.Query(model, query)
	records = inst.Runtime.Permissions.VisibleRows(model, records)
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// GetRecord returns one record by id.
func (h *Handlers) GetRecord(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	model := c.Param("model")
	rec := inst.Runtime.Store.GetRecord(model, c.Param("recordId"))
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	visible := inst.Runtime.Permissions.VisibleRows(model, []types.Record{rec})
	if len(visible) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": visible[0]})
}

// CreateRecord inserts a record directly. Flows are the preferred
// mutation path; this endpoint exists for seeding and tooling.
func (h *Handlers) CreateRecord(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record body"})
		return
	}

	created := inst.Runtime.Store.CreateRecord(c.Param("model"), types.Record(body))
	c.JSON(http.StatusCreated, gin.H{"record": created})
}

// UpdateRecord merges updates into a record.
func (h *Handlers) UpdateRecord(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update body"})
		return
	}

	updated := inst.Runtime.Store.UpdateRecord(c.Param("model"), c.Param("recordId"), updates)
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": updated})
}

// DeleteRecord removes a record.
func (h *Handlers) DeleteRecord(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	if !inst.Runtime.Store.DeleteRecord(c.Param("model"), c.Param("recordId")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ExecuteFlow runs a flow with the request body as trigger payload.
func (h *Handlers) ExecuteFlow(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	flowID := c.Param("flowId")
	if !inst.Runtime.Permissions.CanPerformAction(flowID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "action not permitted"})
		return
	}

	var payload map[string]interface{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger payload"})
			return
		}
	}

	result := inst.Runtime.Flows.ExecuteFlow(c.Request.Context(), flowID, payload)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// EventHistory returns recent bus events, optionally filtered by type
// pattern and capped by limit.
func (h *Handlers) EventHistory(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	filter := events.HistoryFilter{
		Type:  c.Query("type"),
		Limit: intQuery(c, "limit", 100),
	}
	history := inst.Runtime.Bus.History(filter)
	c.JSON(http.StatusOK, gin.H{"events": history, "count": len(history)})
}

// CheckPermission answers a single access question for the caller.
func (h *Handlers) CheckPermission(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}

	var req struct {
		Kind   string `json:"kind" binding:"required"`
		Target string `json:"target" binding:"required"`
		Field  string `json:"field"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind and target are required"})
		return
	}

	perms := inst.Runtime.Permissions
	var allowed bool
	switch req.Kind {
	case "view_page":
		allowed = perms.CanViewPage(req.Target)
	case "view_field":
		allowed = perms.CanViewField(req.Target, req.Field)
	case "edit_field":
		allowed = perms.CanEditField(req.Target, req.Field)
	case "perform_action":
		allowed = perms.CanPerformAction(req.Target)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown permission kind"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

func (h *Handlers) instance(c *gin.Context) (*app.Instance, bool) {
	inst, ok := h.apps.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app instance not found"})
		return nil, false
	}
	userID, role := callerIdentity(c)
	if userID != "" {
		inst.Runtime.Permissions.UpdateContext(userID, role)
	}
	return inst, true
}
