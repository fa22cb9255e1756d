package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/storage"
)

// Tab: текущее состояние одной наблюдаемой игровой сессии. Хранит
// последние значения, а не историю: браузер, переключившийся на вкладку,
// получает карту и все известные сущности.
type Tab struct {
	name string

	mu        sync.RWMutex
	mapData   protocol.MapData
	monsters  map[string]protocol.EntityData
	players   map[string]protocol.EntityData
	dirty     bool
	updatedAt time.Time
}

func newTab(name string, initial protocol.MapData) *Tab {
	return &Tab{
		name:      name,
		mapData:   initial,
		monsters:  make(map[string]protocol.EntityData),
		players:   make(map[string]protocol.EntityData),
		updatedAt: time.Now().UTC(),
	}
}

func tabFromSnapshot(snap *storage.TabSnapshot) *Tab {
	t := newTab(snap.Tab, snap.Map)
	for id, m := range snap.Monsters {
		t.monsters[id] = m
	}
	for id, p := range snap.Players {
		t.players[id] = p
	}
	t.updatedAt = snap.UpdatedAt
	return t
}

// Name возвращает имя вкладки
func (t *Tab) Name() string { return t.name }

// TabInfo: сводка по вкладке для REST
type TabInfo struct {
	Name      string           `json:"name"`
	Map       protocol.MapData `json:"map"`
	Monsters  int              `json:"monsters"`
	Players   int              `json:"players"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Info возвращает сводку
func (t *Tab) Info() TabInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TabInfo{
		Name:      t.name,
		Map:       t.mapData,
		Monsters:  len(t.monsters),
		Players:   len(t.players),
		UpdatedAt: t.updatedAt,
	}
}

// replayLocked строит последовательность событий, воспроизводящую
// состояние вкладки: карта, монстры, персонажи. Вызывается под блокировкой.
func (t *Tab) replayLocked() []*protocol.Message {
	msgs := make([]*protocol.Message, 0, 1+len(t.monsters)+len(t.players))
	if msg, err := protocol.NewMessage(protocol.EventMap, t.mapData); err == nil {
		msgs = append(msgs, msg)
	}
	for _, id := range sortedIDs(t.monsters) {
		if msg, err := protocol.NewMessage(protocol.EventMonster, t.monsters[id]); err == nil {
			msgs = append(msgs, msg)
		}
	}
	for _, id := range sortedIDs(t.players) {
		if msg, err := protocol.NewMessage(protocol.EventCharacter, t.players[id]); err == nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// snapshotLocked копирует состояние для хранилища
func (t *Tab) snapshotLocked() *storage.TabSnapshot {
	snap := &storage.TabSnapshot{
		Tab:       t.name,
		Map:       t.mapData,
		Monsters:  make(map[string]protocol.EntityData, len(t.monsters)),
		Players:   make(map[string]protocol.EntityData, len(t.players)),
		UpdatedAt: t.updatedAt,
	}
	for id, m := range t.monsters {
		snap.Monsters[id] = m
	}
	for id, p := range t.players {
		snap.Players[id] = p
	}
	return snap
}

// position ищет последнюю известную позицию сущности
func (t *Tab) positionLocked(id string) (x, y float64, ok bool) {
	if e, found := t.monsters[id]; found && e.X != nil && e.Y != nil {
		return *e.X, *e.Y, true
	}
	if e, found := t.players[id]; found && e.X != nil && e.Y != nil {
		return *e.X, *e.Y, true
	}
	return 0, 0, false
}

func (t *Tab) touchLocked() {
	t.dirty = true
	t.updatedAt = time.Now().UTC()
}

func sortedIDs(m map[string]protocol.EntityData) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
