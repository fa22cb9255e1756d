package logging

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Компоненты сервиса со своими файлами логов
const (
	ComponentServer       = "server"
	ComponentNetwork      = "network"
	ComponentRelay        = "relay"
	ComponentPresentation = "presentation"
	ComponentSpectator    = "spectator"
)

// Options: настройки логов из секции server конфигурации
type Options struct {
	Dir          string
	ConsoleLevel LogLevel
	// Levels переопределяет уровень консоли отдельных компонентов
	Levels map[string]LogLevel
}

// LoggerManager раздаёт логгеры компонентов и применяет к ним Options
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	opts    Options
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers: make(map[string]*Logger),
		opts:    Options{ConsoleLevel: INFO},
	}
}

// ParseLevels переводит уровни из конфигурации ("network: debug")
func ParseLevels(levels map[string]string) map[string]LogLevel {
	if len(levels) == 0 {
		return nil
	}
	out := make(map[string]LogLevel, len(levels))
	for component, name := range levels {
		out[strings.TrimSpace(component)] = ParseLevel(name)
	}
	return out
}

// Configure задаёт каталог и уровни. Уже созданные логгеры получают новый
// уровень консоли; файлы остаются в прежнем каталоге до перезапуска.
func (lm *LoggerManager) Configure(opts Options) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.opts = opts
	SetDirectory(opts.Dir)
	for component, logger := range lm.loggers {
		logger.SetConsoleLevel(lm.levelFor(component))
	}
}

// LevelFor возвращает уровень консоли компонента
func (lm *LoggerManager) LevelFor(component string) LogLevel {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.levelFor(component)
}

func (lm *LoggerManager) levelFor(component string) LogLevel {
	if level, ok := lm.opts.Levels[component]; ok {
		return level
	}
	return lm.opts.ConsoleLevel
}

// GetLogger возвращает логгер компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	logger.SetConsoleLevel(lm.levelFor(component))
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер; если файл не создаётся, пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
			minConsoleLevel: lm.LevelFor(component),
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// CloseAll закрывает файлы всех логгеров
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// Components возвращает отсортированные имена созданных логгеров
func (lm *LoggerManager) Components() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// Configure настраивает глобальный менеджер и логгер по умолчанию
func Configure(opts Options) {
	GetLoggerManager().Configure(opts)
	SetDefaultConsoleLevel(GetLoggerManager().LevelFor(ComponentServer))
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetNetworkLogger() *Logger { return GetComponentLogger(ComponentNetwork) }

func GetServerLogger() *Logger { return GetComponentLogger(ComponentServer) }

func GetRelayLogger() *Logger { return GetComponentLogger(ComponentRelay) }

func GetPresentationLogger() *Logger { return GetComponentLogger(ComponentPresentation) }

func GetSpectatorLogger() *Logger { return GetComponentLogger(ComponentSpectator) }
