// Package relay принимает события игрового сервера, ведёт состояние
// вкладок и рассылает браузерам события интерфейса.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/al-spectator/internal/eventbus"
	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/storage"
)

var (
	// ErrTabNotFound возвращается для неизвестной вкладки
	ErrTabNotFound = errors.New("tab not found")
	// ErrMalformedEvent возвращается для события, которое не удалось разобрать
	ErrMalformedEvent = errors.New("malformed upstream event")
)

// DefaultMap: начальная карта новой вкладки
var DefaultMap = protocol.MapData{Map: "main", X: 0, Y: 0}

// Output получает события интерфейса. Emit вызывается под блокировкой
// вкладки и не должен надолго блокироваться.
type Output interface {
	// Emit отправляет событие подписчикам вкладки
	Emit(tab string, msg *protocol.Message)
	// TabAdded сообщает о новой вкладке
	TabAdded(tab string)
}

// Relay владеет вкладками и переводит события игрового сервера
type Relay struct {
	g       *gamedata.GData
	repo    storage.SnapshotRepo
	metrics *Metrics
	logger  *logging.Logger

	mu      sync.RWMutex
	tabs    map[string]*Tab
	order   []string
	outputs []Output
}

// New создаёт relay. repo и metrics могут быть nil.
func New(g *gamedata.GData, repo storage.SnapshotRepo, metrics *Metrics, logger *logging.Logger) *Relay {
	if g == nil {
		g = gamedata.Empty()
	}
	if logger == nil {
		logger = logging.GetRelayLogger()
	}
	return &Relay{
		g:       g,
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		tabs:    make(map[string]*Tab),
	}
}

// AddOutput подключает получателя событий. Получатель сразу узнаёт обо
// всех существующих вкладках.
func (r *Relay) AddOutput(o Output) {
	r.mu.Lock()
	r.outputs = append(r.outputs, o)
	tabs := append([]string(nil), r.order...)
	r.mu.Unlock()

	for _, name := range tabs {
		o.TabAdded(name)
	}
}

// AddTab регистрирует вкладку. Возвращает false, если она уже есть.
func (r *Relay) AddTab(name string, initial protocol.MapData) bool {
	return r.addTab(newTab(name, initial))
}

func (r *Relay) addTab(t *Tab) bool {
	r.mu.Lock()
	if _, exists := r.tabs[t.name]; exists {
		r.mu.Unlock()
		return false
	}
	r.tabs[t.name] = t
	r.order = append(r.order, t.name)
	outputs := append([]Output(nil), r.outputs...)
	count := len(r.tabs)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Tabs.Set(float64(count))
	}
	r.logger.Info("📑 Новая вкладка %s (%s)", t.name, t.mapData.Map)

	for _, o := range outputs {
		o.TabAdded(t.name)
	}

	// Получатели, подключившиеся раньше вкладки, получают её состояние
	t.mu.RLock()
	replay := t.replayLocked()
	for _, msg := range replay {
		for _, o := range outputs {
			o.Emit(t.name, msg)
		}
	}
	t.mu.RUnlock()
	return true
}

// Tabs возвращает имена вкладок в порядке регистрации
func (r *Relay) Tabs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tab возвращает вкладку по имени
func (r *Relay) Tab(name string) (*Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTabNotFound)
	}
	return t, nil
}

// Join вызывает fn с событиями, воспроизводящими вкладку. Пока fn
// работает, новые события вкладки не рассылаются, поэтому подписчик,
// добавленный в fn, не пропустит и не получит дважды ни одного события.
func (r *Relay) Join(name string, fn func(replay []*protocol.Message)) error {
	t, err := r.Tab(name)
	if err != nil {
		return err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t.replayLocked())
	return nil
}

// HandleEnvelope: обработчик шины событий. Вкладки, о которых relay ещё
// не знает, регистрируются при первом событии.
func (r *Relay) HandleEnvelope(ctx context.Context, ev *eventbus.Envelope) {
	if ev.Source == "" {
		r.logger.Warn("⚠️ Событие %s без вкладки пропущено", ev.ID)
		return
	}
	if _, err := r.Tab(ev.Source); err != nil {
		r.AddTab(ev.Source, DefaultMap)
	}
	if err := r.HandleUpstream(ctx, ev.Source, ev.EventType, ev.Payload); err != nil {
		r.logger.ProtocolError(logging.WARN, ev.Source, err, ev.Payload)
	}
}

// HandleUpstream применяет одно событие игрового сервера к вкладке
func (r *Relay) HandleUpstream(ctx context.Context, tabName, event string, payload json.RawMessage) error {
	t, err := r.Tab(tabName)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	err = r.apply(t, event, payload)
	result := "ok"
	switch {
	case errors.Is(err, errIgnored):
		result, err = "ignored", nil
	case err != nil:
		result = "error"
	}
	if r.metrics != nil {
		r.metrics.UpstreamEvents.WithLabelValues(event, result).Inc()
		r.metrics.Entities.WithLabelValues(t.name, "monster").Set(float64(len(t.monsters)))
		r.metrics.Entities.WithLabelValues(t.name, "character").Set(float64(len(t.players)))
	}
	return err
}

// errIgnored помечает события, которые relay сознательно не обрабатывает
var errIgnored = errors.New("ignored")

func decode(event string, payload json.RawMessage, target interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformedEvent, event)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, event, err)
	}
	return nil
}

// apply выполняется под блокировкой вкладки
func (r *Relay) apply(t *Tab, event string, payload json.RawMessage) error {
	switch event {
	case protocol.UpstreamEntities:
		var data protocol.EntitiesData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		if data.Type == "all" {
			t.monsters = make(map[string]protocol.EntityData)
			t.players = make(map[string]protocol.EntityData)
			r.emit(t, protocol.EventRemoveAll, nil)
		}
		r.upsertEntities(t, data)

	case protocol.UpstreamNewMap:
		var data protocol.NewMapData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		t.mapData = protocol.MapData{Map: data.Name, X: data.X, Y: data.Y}
		t.monsters = make(map[string]protocol.EntityData)
		t.players = make(map[string]protocol.EntityData)
		r.emit(t, protocol.EventMap, t.mapData)
		r.upsertEntities(t, data.Entities)
		r.logger.Debug("🗺️ %s: карта %s", t.name, data.Name)

	case protocol.UpstreamWelcome:
		var data protocol.WelcomeData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		// Сцена браузера очищается по событию map, состояние вкладки тоже
		t.mapData = protocol.MapData{Map: data.Map, X: data.X, Y: data.Y}
		t.monsters = make(map[string]protocol.EntityData)
		t.players = make(map[string]protocol.EntityData)
		r.emit(t, protocol.EventMap, t.mapData)

	case protocol.UpstreamPlayer:
		var data protocol.PlayerData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		if data.ID == "" {
			return fmt.Errorf("%w: player without id", ErrMalformedEvent)
		}
		// Вид следует за наблюдаемым персонажем
		t.mapData.X = data.X
		t.mapData.Y = data.Y
		character := characterData(data)
		t.players[data.ID] = character
		r.emit(t, protocol.EventCharacter, character)

	case protocol.UpstreamDeath:
		var data protocol.DeathData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		r.removeEntity(t, data.ID)

	case protocol.UpstreamDisappear:
		var data protocol.DisappearData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		r.removeEntity(t, data.ID)

	case protocol.UpstreamAction:
		var data protocol.ActionData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		return r.spawnProjectile(t, data)

	case protocol.UpstreamHit:
		var data protocol.HitData
		if err := decode(event, payload, &data); err != nil {
			return err
		}
		if data.PID == "" {
			return errIgnored
		}
		r.emit(t, protocol.EventRemove, data.PID)
		// Состояние вкладки снаряды не хранит
		return nil

	default:
		return errIgnored
	}

	t.touchLocked()
	return nil
}

func (r *Relay) upsertEntities(t *Tab, data protocol.EntitiesData) {
	for _, m := range data.Monsters {
		if m.ID == "" {
			continue
		}
		gm, err := r.g.Monster(m.Type)
		if err != nil {
			r.logger.Warn("⚠️ %s: тип монстра %q не найден в игровых данных", t.name, m.Type)
		}
		monster := monsterData(gm, m)
		t.monsters[m.ID] = monster
		r.emit(t, protocol.EventMonster, monster)
	}
	for _, p := range data.Players {
		if p.ID == "" {
			continue
		}
		character := characterData(p)
		t.players[p.ID] = character
		r.emit(t, protocol.EventCharacter, character)
	}
}

func (r *Relay) removeEntity(t *Tab, id string) {
	if _, ok := t.monsters[id]; ok {
		delete(t.monsters, id)
	} else {
		delete(t.players, id)
	}
	r.emit(t, protocol.EventRemove, id)
}

// spawnProjectile превращает атаку со снарядом в событие projectile:
// снаряд летит от атакующего к цели
func (r *Relay) spawnProjectile(t *Tab, data protocol.ActionData) error {
	if data.PID == "" || data.Projectile == "" {
		return errIgnored
	}
	x, y, ok := t.positionLocked(data.Attacker)
	if !ok {
		r.logger.Debug("%s: атакующий %s неизвестен, снаряд %s пропущен", t.name, data.Attacker, data.PID)
		return errIgnored
	}
	goalX, goalY, ok := t.positionLocked(data.Target)
	if !ok {
		r.logger.Debug("%s: цель %s неизвестна, снаряд %s пропущен", t.name, data.Target, data.PID)
		return errIgnored
	}

	projectile := protocol.ProjectileData{
		PID:        data.PID,
		Projectile: data.Projectile,
		X:          x,
		Y:          y,
		GoingX:     goalX,
		GoingY:     goalY,
	}
	if gp, err := r.g.Projectile(data.Projectile); err == nil {
		projectile.Speed = gp.Speed
	}
	r.emit(t, protocol.EventProjectile, projectile)
	return nil
}

// emit рассылает событие всем получателям; вызывается под блокировкой вкладки
func (r *Relay) emit(t *Tab, event string, data interface{}) {
	msg, err := protocol.NewMessage(event, data)
	if err != nil {
		r.logger.Error("❌ %s: не удалось сериализовать %s: %v", t.name, event, err)
		return
	}

	r.mu.RLock()
	outputs := r.outputs
	r.mu.RUnlock()

	for _, o := range outputs {
		o.Emit(t.name, msg)
	}
	if r.metrics != nil {
		r.metrics.UIEvents.WithLabelValues(event).Inc()
	}
}
