package spectator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/presentation"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

// Manager держит по спектатору на вкладку и получает события relay
type Manager struct {
	ctx    context.Context
	atlas  *presentation.Atlas
	cfg    Config
	logger *logging.Logger

	mu         sync.RWMutex
	spectators map[string]*Spectator
	wg         sync.WaitGroup
}

// NewManager создаёт менеджер; спектаторы живут, пока не отменён ctx
func NewManager(ctx context.Context, atlas *presentation.Atlas, cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetSpectatorLogger()
	}
	return &Manager{
		ctx:        ctx,
		atlas:      atlas,
		cfg:        cfg,
		logger:     logger,
		spectators: make(map[string]*Spectator),
	}
}

// TabAdded запускает спектатора вкладки
func (m *Manager) TabAdded(tab string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spectators[tab]; ok {
		return
	}
	s := New(tab, m.atlas, m.cfg, m.logger)
	m.spectators[tab] = s

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx)
	}()
}

// Emit передаёт событие спектатору вкладки
func (m *Manager) Emit(tab string, msg *protocol.Message) {
	s, ok := m.Get(tab)
	if !ok {
		m.logger.Warn("⚠️ Событие %s для вкладки %s без спектатора", msg.Event, tab)
		return
	}
	s.Deliver(m.ctx, msg)
}

// Get возвращает спектатора вкладки
func (m *Manager) Get(tab string) (*Spectator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.spectators[tab]
	return s, ok
}

// Tabs возвращает отсортированные имена вкладок со спектаторами
func (m *Manager) Tabs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tabs := make([]string, 0, len(m.spectators))
	for tab := range m.spectators {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs
}

// Wait дожидается остановки всех спектаторов (после отмены ctx)
func (m *Manager) Wait() {
	m.wg.Wait()
}

// === Prometheus ===

var (
	entitiesDesc = prometheus.NewDesc(
		"spectator_scene_entities", "Сущности в сцене вкладки по фазе.", []string{"tab", "phase"}, nil)
	projectilesDesc = prometheus.NewDesc(
		"spectator_scene_projectiles", "Снаряды в сцене вкладки.", []string{"tab"}, nil)
	spawnFailuresDesc = prometheus.NewDesc(
		"spectator_spawn_failures_total", "Сущности, не попавшие в сцену.", []string{"tab"}, nil)
	ticksDesc = prometheus.NewDesc(
		"spectator_ticks_total", "Кадры движка вкладки.", []string{"tab"}, nil)
)

// Describe реализует prometheus.Collector
func (m *Manager) Describe(ch chan<- *prometheus.Desc) {
	ch <- entitiesDesc
	ch <- projectilesDesc
	ch <- spawnFailuresDesc
	ch <- ticksDesc
}

// Collect реализует prometheus.Collector по опубликованным срезам
func (m *Manager) Collect(ch chan<- prometheus.Metric) {
	for _, tab := range m.Tabs() {
		s, ok := m.Get(tab)
		if !ok {
			continue
		}
		st := s.Stats()
		ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, float64(st.Entities-st.Dying), tab, "active")
		ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, float64(st.Dying), tab, "dying")
		ch <- prometheus.MustNewConstMetric(projectilesDesc, prometheus.GaugeValue, float64(st.Projectiles), tab)
		ch <- prometheus.MustNewConstMetric(spawnFailuresDesc, prometheus.CounterValue, float64(st.SpawnFailures), tab)
		ch <- prometheus.MustNewConstMetric(ticksDesc, prometheus.CounterValue, float64(st.Ticks), tab)
	}
}

// String для логов
func (m *Manager) String() string {
	return fmt.Sprintf("spectators(%d)", len(m.Tabs()))
}
