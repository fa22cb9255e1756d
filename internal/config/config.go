package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	EventBus     EventBusConfig     `yaml:"eventbus"`
	Storage      StorageConfig      `yaml:"storage"`
	Presentation PresentationConfig `yaml:"presentation"`
	Auth         AuthConfig         `yaml:"auth"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	GameData     GameDataConfig     `yaml:"gamedata"`
	Tabs         []TabConfig        `yaml:"tabs"`
}

type ServerConfig struct {
	HTTPPort int    `yaml:"http_port"`
	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`

	// LogLevels: уровни консоли по компонентам, например network: debug
	LogLevels map[string]string `yaml:"log_levels"`
}

// EventBusConfig: пустой URL означает in-memory шину.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// StorageConfig: пустой RedisURL означает хранение снимков в памяти.
type StorageConfig struct {
	RedisURL       string `yaml:"redis_url"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	SnapshotTTL    int    `yaml:"snapshot_ttl_seconds"`
	SaveIntervalMs int    `yaml:"save_interval_ms"`
}

type PresentationConfig struct {
	FrameRate     int               `yaml:"frame_rate"`
	DecayPerMs    float64           `yaml:"decay_per_ms"`
	AnimationFPS  float64           `yaml:"animation_fps"`
	StatusFilters map[string]string `yaml:"status_filters"`
}

// AuthConfig: пустой IngestSecret отключает проверку подписи X-Signature
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	RequireToken bool   `yaml:"require_token"`
	IngestSecret string `yaml:"ingest_secret"`
}

// TelemetryConfig: пустой Endpoint означает localhost:4318
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type GameDataConfig struct {
	Path string `yaml:"path"`
}

// TabConfig описывает наблюдаемую игровую сессию и стартовую карту
type TabConfig struct {
	Name string  `yaml:"name"`
	Map  string  `yaml:"map"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: "info",
			LogDir:   "logs",
		},
		EventBus: EventBusConfig{
			Stream:    "SPECTATOR",
			Retention: 1,
			Buffer:    1024,
		},
		Storage: StorageConfig{
			SnapshotTTL:    3600,
			SaveIntervalMs: 1000,
		},
		Presentation: PresentationConfig{
			FrameRate:    60,
			DecayPerMs:   0.006,
			AnimationFPS: 6,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "al-spectator",
		},
	}
}

// GetHTTPPort возвращает порт REST/WebSocket с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "SPECTATOR_HTTP_PORT", 8080)
}

// FrameInterval возвращает период тика презентации
func (p *PresentationConfig) FrameInterval() time.Duration {
	rate := p.FrameRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// SaveInterval возвращает период сохранения снимков вкладок
func (s *StorageConfig) SaveInterval() time.Duration {
	if s.SaveIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(s.SaveIntervalMs) * time.Millisecond
}

// TTL возвращает время жизни снимка в Redis
func (s *StorageConfig) TTL() time.Duration {
	if s.SnapshotTTL <= 0 {
		return 0
	}
	return time.Duration(s.SnapshotTTL) * time.Second
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV SPECTATOR_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SPECTATOR_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя исправить fallback'ом
func (c *Config) Validate() error {
	if c.Presentation.DecayPerMs <= 0 {
		return fmt.Errorf("presentation.decay_per_ms должен быть > 0, получено %v", c.Presentation.DecayPerMs)
	}
	seen := make(map[string]bool, len(c.Tabs))
	for _, tab := range c.Tabs {
		if tab.Name == "" {
			return fmt.Errorf("tabs: пустое имя вкладки")
		}
		if seen[tab.Name] {
			return fmt.Errorf("tabs: повторяющаяся вкладка %q", tab.Name)
		}
		seen[tab.Name] = true
	}
	return nil
}
