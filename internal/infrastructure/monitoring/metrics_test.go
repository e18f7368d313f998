package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedRegistries(t *testing.T) {
	// two collectors must not collide
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveStoreOp("task", "create")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.StoreOps.WithLabelValues("task", "create")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StoreOps.WithLabelValues("task", "create")))
}

func TestObserveFlowRun(t *testing.T) {
	m := NewMetrics()
	m.ObserveFlowRun("add-task", true)
	m.ObserveFlowRun("add-task", false)
	m.ObserveFlowRun("add-task", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowRuns.WithLabelValues("add-task", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FlowRuns.WithLabelValues("add-task", "failure")))
}

func TestAppAndWSGauges(t *testing.T) {
	m := NewMetrics()
	m.RecordAppSpawned()
	m.RecordAppSpawned()
	m.RecordAppClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AppsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AppsTotal))

	m.RecordWSConnect()
	m.RecordWSDisconnect()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WSConnections))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveStoreOp("task", "create")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "runtime_store_operations_total")
}

func TestFlowTimer(t *testing.T) {
	m := NewMetrics()
	timer := NewFlowTimer(m, "f1")
	time.Sleep(time.Millisecond)
	timer.Stop()

	count := testutil.CollectAndCount(m.FlowDuration)
	assert.Equal(t, 1, count)
}
