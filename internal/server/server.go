package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appforge/runtime/internal/api/middleware"
	"github.com/appforge/runtime/internal/app"
	apphttp "github.com/appforge/runtime/internal/http"
	"github.com/appforge/runtime/internal/infrastructure/config"
	"github.com/appforge/runtime/internal/infrastructure/monitoring"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/ws"
)

// Server hosts the runtime over HTTP and WebSocket.
type Server struct {
	router  *gin.Engine
	apps    *app.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
	httpSrv *http.Server
}

// NewServer wires managers, middleware, and routes.
func NewServer(cfg *config.Config, log *logging.Logger) *Server {
	metrics := monitoring.NewMetrics()
	apps := app.NewManager(cfg.Runtime, log)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := apphttp.NewHandlers(apps, metrics)
	wsHandler := ws.NewHandler(apps, log, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// App lifecycle
	router.POST("/apps", handlers.SpawnApp)
	router.GET("/apps", handlers.ListApps)
	router.GET("/apps/:id", handlers.GetApp)
	router.DELETE("/apps/:id", handlers.CloseApp)

	// Records
	router.GET("/apps/:id/records/:model", handlers.ListRecords)
	router.POST("/apps/:id/records/:model/query", handlers.QueryRecords)
	router.POST("/apps/:id/records/:model", handlers.CreateRecord)
	router.GET("/apps/:id/records/:model/:recordId", handlers.GetRecord)
	router.PATCH("/apps/:id/records/:model/:recordId", handlers.UpdateRecord)
	router.DELETE("/apps/:id/records/:model/:recordId", handlers.DeleteRecord)

	// Flows and events
	router.POST("/apps/:id/flows/:flowId/execute", handlers.ExecuteFlow)
	router.GET("/apps/:id/events", handlers.EventHistory)
	router.POST("/apps/:id/permissions/check", handlers.CheckPermission)

	// WebSocket stream per instance
	router.GET("/apps/:id/stream", wsHandler.HandleConnection)

	return &Server{
		router:  router,
		apps:    apps,
		metrics: metrics,
		log:     log,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(host, port string) error {
	s.httpSrv = &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.log != nil {
		s.log.Info("http server listening on " + s.httpSrv.Addr)
	}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
