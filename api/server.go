package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autonomiq/opsengine/api/handlers"
	"github.com/autonomiq/opsengine/api/middleware"
	"github.com/autonomiq/opsengine/api/websocket"
	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/database"
	"github.com/autonomiq/opsengine/pkg/database/queries"
)

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	wsConfig   config.WebSocketConfig
	db         *database.DB
	engine     handlers.EngineService
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, db *database.DB, engine handlers.EngineService, mode string) *Server {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	wsHub := websocket.NewHub(&wsCfg)

	s := &Server{
		router:   router,
		config:   cfg,
		wsConfig: wsCfg,
		db:       db,
		engine:   engine,
		wsHub:    wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	// Forward engine events to WebSocket clients
	if engine != nil {
		eventsChan := engine.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(corsConfig(s.config.CORS)))
	s.router.Use(middleware.SecurityHeaders())
	if s.config.MaxBodyBytes > 0 {
		s.router.Use(middleware.RequestSizeLimit(s.config.MaxBodyBytes))
	}
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		out.AllowOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		out.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		out.AllowHeaders = cfg.AllowedHeaders
	}
	if len(cfg.ExposedHeaders) > 0 {
		out.ExposeHeaders = cfg.ExposedHeaders
	}
	out.AllowCredentials = cfg.AllowCredentials
	return out
}

func (s *Server) setupRoutes() {
	// Repositories are only available with a database
	var (
		alertRepo    *queries.AlertRepository
		incidentRepo *queries.IncidentRepository
		scalingRepo  *queries.ScalingDecisionRepository
	)
	if s.db != nil {
		alertRepo = queries.NewAlertRepository(s.db.DB)
		incidentRepo = queries.NewIncidentRepository(s.db.DB)
		scalingRepo = queries.NewScalingDecisionRepository(s.db.DB)
	}

	healthHandler := handlers.NewHealthHandler(s.db)
	engineHandler := handlers.NewEngineHandler(s.engine)
	historyHandler := handlers.NewHistoryHandler(alertRepo, incidentRepo, scalingRepo, &s.config)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Ingest gets its own, tighter limit
	ingestLimiter := middleware.NewEndpointRateLimiter()
	ingestLimiter.AddEndpoint("/api/v1/telemetry", s.config.RateLimit*10, time.Minute)

	v1 := s.router.Group("/api/v1")
	v1.Use(ingestLimiter.Middleware())
	{
		v1.POST("/telemetry", engineHandler.Ingest)

		v1.GET("/services", engineHandler.ListServices)
		v1.GET("/health/services", engineHandler.GetAllServiceHealth)
		v1.GET("/services/:name/health", engineHandler.GetServiceHealth)
		v1.GET("/services/:name/forecast", engineHandler.GetForecast)
		v1.GET("/services/:name/scaling", engineHandler.GetScalingStatus)

		v1.GET("/alerts", engineHandler.ListAlerts)
		v1.GET("/alerts/correlations", engineHandler.ListCorrelations)

		v1.GET("/incidents", engineHandler.ListIncidents)
		v1.GET("/incidents/history", engineHandler.ListIncidentHistory)
		v1.GET("/workflows", engineHandler.ListWorkflows)

		v1.GET("/scaling/decisions", engineHandler.ListScalingHistory)
		v1.GET("/stats", engineHandler.GetStats)

		// Persisted records
		v1.GET("/history/alerts", historyHandler.GetAlerts)
		v1.GET("/history/incidents", historyHandler.GetIncidents)
		v1.GET("/history/incidents/stats", historyHandler.GetIncidentStats)
		v1.GET("/history/scaling", historyHandler.GetScalingDecisions)
		v1.GET("/history/scaling/stats", historyHandler.GetScalingStats)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
