// Package spectator запускает движок представления для каждой вкладки в
// отдельной горутине и публикует срезы сцены для чтения.
package spectator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/presentation"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/scenegraph"
)

// Config: параметры спектаторов
type Config struct {
	FrameInterval time.Duration
	Buffer        int
	MaxNodes      int
	Engine        presentation.EngineConfig
}

func (c *Config) normalize() {
	if c.FrameInterval <= 0 {
		c.FrameInterval = time.Second / 60
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
}

// Spectator: владелец движка одной вкладки. Только его горутина трогает
// движок и граф сцены; остальные читают опубликованный срез.
type Spectator struct {
	tab    string
	cfg    Config
	engine *presentation.Engine
	graph  *scenegraph.Graph
	logger *logging.Logger
	now    func() time.Time

	events chan *protocol.Message
	done   chan struct{}

	mu       sync.RWMutex
	snapshot presentation.Snapshot
	scene    scenegraph.View
	stats    presentation.Stats
}

// New создаёт спектатора; Run нужно запустить отдельно
func New(tab string, atlas *presentation.Atlas, cfg Config, logger *logging.Logger) *Spectator {
	cfg.normalize()
	if logger == nil {
		logger = logging.GetSpectatorLogger()
	}
	graph := scenegraph.New(cfg.MaxNodes)
	s := &Spectator{
		tab:    tab,
		cfg:    cfg,
		graph:  graph,
		engine: presentation.NewEngine(graph, atlas, presentation.NewRegistry(), cfg.Engine, logger),
		logger: logger,
		now:    time.Now,
		events: make(chan *protocol.Message, cfg.Buffer),
		done:   make(chan struct{}),
	}
	s.publish()
	return s
}

// Tab возвращает имя вкладки
func (s *Spectator) Tab() string { return s.tab }

// Deliver ставит событие в очередь. Блокируется, если очередь полна:
// пропуск события рассинхронизировал бы сцену. Возвращает false после
// остановки спектатора или отмены ctx.
func (s *Spectator) Deliver(ctx context.Context, msg *protocol.Message) bool {
	// закрытый done должен побеждать свободное место в буфере
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- msg:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Run: цикл спектатора: события применяются сразу при получении, тики
// идут с частотой кадров. Возвращается после отмены ctx.
func (s *Spectator) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	last := s.now()
	s.logger.Info("🎬 Спектатор вкладки %s запущен", s.tab)
	for {
		select {
		case msg := <-s.events:
			s.handle(msg)
		case <-ticker.C:
			now := s.now()
			s.step(float64(now.Sub(last)) / float64(time.Millisecond))
			last = now
		case <-ctx.Done():
			s.logger.Info("🛑 Спектатор вкладки %s остановлен", s.tab)
			return
		}
	}
}

func (s *Spectator) handle(msg *protocol.Message) {
	if err := s.engine.Handle(msg); err != nil {
		if errors.Is(err, protocol.ErrMalformedMessage) {
			s.logger.ProtocolError(logging.WARN, s.tab, err, msg.Data)
			return
		}
		s.logger.Warn("⚠️ %s: событие %s не применено: %v", s.tab, msg.Event, err)
	}
}

// step: один кадр с публикацией среза
func (s *Spectator) step(elapsedMs float64) {
	s.engine.Tick(elapsedMs)
	s.publish()
}

func (s *Spectator) publish() {
	snap := s.engine.Snapshot()
	scene := s.graph.Dump()
	stats := s.engine.Stats()

	s.mu.Lock()
	s.snapshot = snap
	s.scene = scene
	s.stats = stats
	s.mu.Unlock()
}

// Snapshot возвращает последний опубликованный срез движка
func (s *Spectator) Snapshot() presentation.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Scene возвращает последний опубликованный граф сцены
func (s *Spectator) Scene() scenegraph.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene
}

// Stats возвращает счётчики движка на момент последнего кадра
func (s *Spectator) Stats() presentation.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
