package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for HTTP metrics collection.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, path, status, time.Since(start))
	}
}

// FlowTimer measures one flow execution and records its duration.
type FlowTimer struct {
	start   time.Time
	metrics *Metrics
	flowID  string
}

// NewFlowTimer starts timing a flow run.
func NewFlowTimer(metrics *Metrics, flowID string) *FlowTimer {
	return &FlowTimer{start: time.Now(), metrics: metrics, flowID: flowID}
}

// Stop records the elapsed duration.
func (t *FlowTimer) Stop() {
	t.metrics.FlowDuration.WithLabelValues(t.flowID).Observe(time.Since(t.start).Seconds())
}
