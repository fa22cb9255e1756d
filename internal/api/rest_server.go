// Package api - REST интерфейс спектатора: вкладки, сцены, приём событий.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/al-spectator/internal/auth"
	"github.com/annel0/al-spectator/internal/eventbus"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/middleware"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/annel0/al-spectator/internal/spectator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version: версия сервиса в /api/server
const Version = "v0.1.0"

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	server     *http.Server
	relay      *relay.Relay
	spectators *spectator.Manager
	bus        eventbus.EventBus
	metrics    *ServerMetrics
	logger     *logging.Logger

	requireToken  bool
	ingestSecret  string
	maxIngestSize int64
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string             // адрес для запуска сервера
	Relay      *relay.Relay       // состояние вкладок
	Spectators *spectator.Manager // движки вкладок; nil - /scene недоступен
	Bus        eventbus.EventBus  // шина для приёма событий
	WebSocket  http.Handler       // обработчик /ws
	// Registry: регистр метрик; nil - дефолтный
	Registry *prometheus.Registry
	// RequireToken включает проверку JWT на приёме событий и управлении вкладками
	RequireToken bool
	// IngestSecret включает проверку HMAC подписи X-Signature тела события
	IngestSecret string
	Logger       *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8080"
	}
	if config.Logger == nil {
		config.Logger = logging.GetNetworkLogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery
	router.Use(corsMiddleware())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("spectator_api"))

	loggerMw := middleware.NewRequestLogger(config.Logger, "/metrics", "/health")
	router.Use(loggerMw.Handler())

	var (
		reg      prometheus.Registerer
		gatherer prometheus.Gatherer
	)
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("spectator_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:        router,
		relay:         config.Relay,
		spectators:    config.Spectators,
		bus:           config.Bus,
		metrics:       NewServerMetrics(),
		logger:        config.Logger,
		requireToken:  config.RequireToken,
		ingestSecret:  config.IngestSecret,
		maxIngestSize: 1 << 20,
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.WebSocket != nil {
		router.GET("/ws", gin.WrapH(config.WebSocket))
	}
	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/tabs", rs.handleListTabs)
		api.GET("/tabs/:tab", rs.handleGetTab)
		api.GET("/tabs/:tab/snapshot", rs.handleTabSnapshot)
		api.GET("/tabs/:tab/scene", rs.handleTabScene)
	}

	// Управление вкладками (admin)
	admin := api.Group("/")
	admin.Use(rs.jwtMiddleware(), rs.roleMiddleware(auth.RoleAdmin))
	{
		admin.POST("/tabs", rs.handleCreateTab)
	}

	// Приём событий игровых серверов (ingest)
	ingest := api.Group("/")
	ingest.Use(rs.jwtMiddleware(), rs.roleMiddleware(auth.RoleIngest))
	{
		ingest.POST("/tabs/:tab/events", rs.handleIngest)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := map[string]interface{}{
		"version":     Version,
		"name":        "AL Spectator",
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   memoryMB,
		"cpu_percent": cpuPercent,
		"tabs":        len(rs.relay.Tabs()),
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	}
	if rs.bus != nil {
		info["eventbus"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// Start запускает REST сервер; после Stop возвращает nil
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
