package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/al-spectator/internal/api"
	"github.com/annel0/al-spectator/internal/auth"
	"github.com/annel0/al-spectator/internal/config"
	"github.com/annel0/al-spectator/internal/eventbus"
	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/network"
	"github.com/annel0/al-spectator/internal/observability"
	"github.com/annel0/al-spectator/internal/presentation"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/annel0/al-spectator/internal/spectator"
	"github.com/annel0/al-spectator/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или SPECTATOR_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.Configure(logging.Options{
		Dir:          cfg.Server.LogDir,
		ConsoleLevel: logging.ParseLevel(cfg.Server.LogLevel),
		Levels:       logging.ParseLevels(cfg.Server.LogLevels),
	})
	if err := logging.InitDefaultLogger(logging.ComponentServer); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎥 Запуск AL Spectator...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	if cfg.Auth.JWTSecret != "" {
		if err := auth.SetJWTSecret(cfg.Auth.JWTSecret); err != nil {
			log.Fatalf("❌ Неверный auth.jwt_secret: %v", err)
		}
	} else if cfg.Auth.RequireToken {
		logging.Warn("⚠️ auth.jwt_secret не задан: токены действуют до перезапуска")
	}

	// === ИГРОВЫЕ ДАННЫЕ ===
	g := gamedata.Empty()
	if cfg.GameData.Path != "" {
		if g, err = gamedata.Load(cfg.GameData.Path); err != nil {
			log.Fatalf("❌ Ошибка загрузки игровых данных: %v", err)
		}
		logging.Info("📦 Игровые данные загружены из %s", cfg.GameData.Path)
	}

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === ХРАНИЛИЩЕ СНИМКОВ ===
	var repo storage.SnapshotRepo
	if cfg.Storage.RedisURL != "" {
		redisCfg := storage.DefaultRedisConfig()
		redisCfg.Addr = cfg.Storage.RedisURL
		redisCfg.Password = cfg.Storage.RedisPassword
		redisCfg.DB = cfg.Storage.RedisDB
		redisCfg.TTL = cfg.Storage.TTL()
		redisRepo, err := storage.NewRedisSnapshotRepo(ctx, redisCfg)
		if err != nil {
			log.Fatalf("❌ Ошибка подключения к Redis: %v", err)
		}
		repo = redisRepo
		logging.Info("💾 Снимки вкладок хранятся в Redis %s", redisCfg.Addr)
	} else {
		repo = storage.NewMemorySnapshotRepo()
		logging.Info("💾 Снимки вкладок хранятся в памяти")
	}
	defer repo.Close()

	// === RELAY И ПОЛУЧАТЕЛИ ===
	rel := relay.New(g, repo, relay.NewMetrics(reg), nil)

	spectators := spectator.NewManager(ctx, presentation.NewAtlas(g), spectator.Config{
		FrameInterval: cfg.Presentation.FrameInterval(),
		Engine: presentation.EngineConfig{
			DecayPerMs:    cfg.Presentation.DecayPerMs,
			AnimationFPS:  cfg.Presentation.AnimationFPS,
			StatusFilters: cfg.Presentation.StatusFilters,
		},
	}, nil)
	reg.MustRegister(spectators)

	hub := network.NewHub(rel, network.NewMetrics(reg), nil)

	rel.AddOutput(spectators)
	rel.AddOutput(hub)

	restored, err := rel.Restore(ctx)
	if err != nil {
		logging.Warn("⚠️ Восстановление вкладок: %v", err)
	}
	for _, tab := range cfg.Tabs {
		initial := relay.DefaultMap
		if tab.Map != "" {
			initial = protocol.MapData{Map: tab.Map, X: tab.X, Y: tab.Y}
		}
		rel.AddTab(tab.Name, initial)
	}
	logging.Info("📑 Вкладок: %d (восстановлено %d)", len(rel.Tabs()), restored)

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream,
			time.Duration(cfg.EventBus.Retention)*time.Hour)
		if err != nil {
			log.Fatalf("❌ Ошибка подключения к NATS: %v", err)
		}
		bus = jsBus
		logging.Info("📨 Шина событий: JetStream %s", cfg.EventBus.URL)
	} else {
		bus = eventbus.NewMemoryBus(cfg.EventBus.Buffer)
		logging.Info("📨 Шина событий: in-memory")
	}

	relaySub, err := bus.Subscribe(ctx, eventbus.Filter{}, rel.HandleEnvelope)
	if err != nil {
		log.Fatalf("❌ Ошибка подписки relay на шину: %v", err)
	}
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Логирование шины не запущено: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, reg)
	exporter.Start()

	persisted := make(chan struct{})
	go func() {
		defer close(persisted)
		rel.RunPersister(ctx, cfg.Storage.SaveInterval())
	}()

	// === REST API ===
	gin.SetMode(gin.ReleaseMode)
	rest := api.NewRestServer(api.Config{
		Port:         fmt.Sprintf(":%d", cfg.Server.GetHTTPPort()),
		Relay:        rel,
		Spectators:   spectators,
		Bus:          bus,
		WebSocket:    hub,
		Registry:     reg,
		RequireToken: cfg.Auth.RequireToken,
		IngestSecret: cfg.Auth.IngestSecret,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ REST API остановлен с ошибкой: %v", err)
			stop()
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API и WebSocket: http://localhost:%d (/ws)", cfg.Server.GetHTTPPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetHTTPPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	relaySub.Unsubscribe()
	hub.Close()
	spectators.Wait()
	<-persisted
	exporter.Stop()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
