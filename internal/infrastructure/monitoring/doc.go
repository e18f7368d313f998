// Package monitoring provides Prometheus instrumentation for the
// runtime host: HTTP request metrics via Gin middleware, store and
// flow counters wired through the runtime's instrumentation hooks,
// and app/WebSocket gauges.
//
// Each Metrics owns its own registry; expose it with:
//
//	m := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(m))
//	router.GET("/metrics", gin.WrapH(m.Handler()))
package monitoring
