package presentation

import (
	"fmt"
	"sort"

	"github.com/annel0/al-spectator/internal/logging"
)

// DefaultStatusFilters: статус-эффект → имя фильтра узла
var DefaultStatusFilters = map[string]string{
	"burned":   "burned",
	"poisoned": "poisoned",
	"frozen":   "frozen",
	"stunned":  "stunned",
	"cursed":   "cursed",
}

// addFilter добавляет фильтр, если его ещё нет. Возвращает true при изменении.
func addFilter(node Node, filter string) bool {
	current := node.Filters()
	for _, f := range current {
		if f == filter {
			return false
		}
	}
	next := make([]string, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, filter)
	node.SetFilters(next)
	return true
}

// removeFilter убирает фильтр, если он есть. Возвращает true при изменении.
func removeFilter(node Node, filter string) bool {
	current := node.Filters()
	next := make([]string, 0, len(current))
	for _, f := range current {
		if f != filter {
			next = append(next, f)
		}
	}
	if len(next) == len(current) {
		return false
	}
	node.SetFilters(next)
	return true
}

// syncStatusFilters приводит фильтры узла к набору статусов. Трогает только
// фильтры из таблицы; посторонние фильтры узла остаются на месте.
func syncStatusFilters(node Node, status StatusFlags, table map[string]string) {
	if node == nil {
		return
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if status.Has(name) {
			addFilter(node, table[name])
		} else {
			removeFilter(node, table[name])
		}
	}
}

// healthFraction: доля здоровья для полоски, в пределах [0, 1]
func healthFraction(s *EntityState) float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	f := s.Health / s.MaxHealth
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// cosmeticSlot: один слой косметики в z-порядке
type cosmeticSlot struct {
	name    string
	sprite  string
	offsetY float64
}

// cosmeticSlots возвращает слои над базовым скином снизу вверх:
// голова, макияж, лицо, причёска, шляпа
func (a *Atlas) cosmeticSlots(cx *Cosmetics) []cosmeticSlot {
	if cx == nil {
		return nil
	}
	g := a.GameData()
	slots := []cosmeticSlot{
		{name: "head", sprite: cx.Head, offsetY: -1},
		{name: "makeup", sprite: cx.Makeup, offsetY: -(1 + g.Cosmetics.DefaultMakeupPosition)},
		{name: "face", sprite: cx.Face, offsetY: -(1 + g.Cosmetics.DefaultFacePosition)},
		{name: "hair", sprite: cx.Hair, offsetY: -1},
		{name: "hat", sprite: cx.Hat, offsetY: -1},
	}
	out := slots[:0]
	for _, s := range slots {
		if s.sprite != "" {
			out = append(out, s)
		}
	}
	return out
}

// syncCosmetics приводит дочерние узлы косметики к набору слоёв состояния:
// совпадающие слои остаются, лишние уничтожаются, недостающие создаются.
// Слой, который не удалось найти или создать, пропускается с предупреждением.
func (e *Entity) syncCosmetics(scene Scene, atlas *Atlas, logger *logging.Logger) {
	if e.node == nil {
		return
	}
	baseW, _ := e.node.Size()

	current := make(map[string]*layer, len(e.layers))
	for _, l := range e.layers {
		current[l.name] = l
	}

	wanted := atlas.cosmeticSlots(e.State.Cosmetics)
	next := make([]*layer, 0, len(wanted))
	for i, slot := range wanted {
		if l, ok := current[slot.name]; ok && l.sprite == slot.sprite {
			delete(current, slot.name)
			l.node.SetZIndex(float64(i))
			next = append(next, l)
			continue
		}

		textures, err := atlas.CosmeticTextures(slot.sprite)
		if err != nil {
			logger.Warn("⚠️ Косметика %s=%s для %s не найдена: %v", slot.name, slot.sprite, e.State.ID, err)
			continue
		}
		node, err := scene.CreateNode(e.node, NodeSpec{
			Name:   fmt.Sprintf("%s/%s", e.State.ID, slot.name),
			Frames: textures.For(e.State.Facing),
			Scale:  1,
		})
		if err != nil {
			logger.Warn("⚠️ Не удалось создать слой %s для %s: %v", slot.name, e.State.ID, err)
			continue
		}

		// Слои уже базы выравниваются по правому краю
		w, _ := node.Size()
		node.SetPosition(baseW-w, slot.offsetY)
		node.SetZIndex(float64(i))
		next = append(next, &layer{name: slot.name, sprite: slot.sprite, node: node, textures: textures})
	}

	for _, l := range current {
		l.node.Destroy()
	}
	e.layers = next
}
