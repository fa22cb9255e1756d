package presentation

import "sort"

// EntityView: состояние сущности для чтения вне горутины движка
type EntityView struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Skin     string   `json:"skin"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	GoingX   float64  `json:"going_x"`
	GoingY   float64  `json:"going_y"`
	Speed    float64  `json:"speed"`
	Moving   bool     `json:"moving"`
	HP       float64  `json:"hp"`
	MaxHP    float64  `json:"max_hp"`
	Target   string   `json:"target,omitempty"`
	Facing   string   `json:"facing"`
	Phase    string   `json:"phase"`
	Alpha    float64  `json:"alpha"`
	Frame    int      `json:"frame"`
	Playing  bool     `json:"playing"`
	Status   []string `json:"status,omitempty"`
	Filters  []string `json:"filters,omitempty"`
	Layers   []string `json:"layers,omitempty"`
}

// ProjectileView: состояние снаряда для чтения
type ProjectileView struct {
	PID        string  `json:"pid"`
	Projectile string  `json:"projectile"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	GoingX     float64 `json:"going_x"`
	GoingY     float64 `json:"going_y"`
	Rotation   float64 `json:"rotation"`
}

// Snapshot: неизменяемый срез движка после тика
type Snapshot struct {
	Map         string           `json:"map"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Tick        uint64           `json:"tick"`
	Entities    []EntityView     `json:"entities"`
	Projectiles []ProjectileView `json:"projectiles"`
}

// Snapshot копирует состояние движка; сущности и снаряды упорядочены по id
func (en *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Map:         en.mapName,
		X:           en.anchor.X,
		Y:           en.anchor.Y,
		Tick:        en.stats.Ticks,
		Entities:    make([]EntityView, 0, en.registry.Len()),
		Projectiles: make([]ProjectileView, 0, len(en.projectiles)),
	}

	for _, id := range en.registry.IDs() {
		e, _ := en.registry.Get(id)
		s := e.State
		view := EntityView{
			ID:      s.ID,
			Kind:    s.Kind.String(),
			Skin:    s.Skin,
			X:       s.Position.X,
			Y:       s.Position.Y,
			GoingX:  s.Goal.X,
			GoingY:  s.Goal.Y,
			Speed:   s.Speed,
			Moving:  s.Moving,
			HP:      s.Health,
			MaxHP:   s.MaxHealth,
			Target:  s.TargetID,
			Facing:  s.Facing.String(),
			Phase:   e.Phase().String(),
			Alpha:   e.alpha,
			Frame:   e.anim.Frame(),
			Playing: e.anim.Playing(),
			Status:  s.Status.Names(),
			Layers:  e.LayerNames(),
		}
		if e.node != nil {
			view.Filters = append([]string(nil), e.node.Filters()...)
		}
		snap.Entities = append(snap.Entities, view)
	}

	for _, pid := range sortedKeys(en.projectiles) {
		p := en.projectiles[pid]
		snap.Projectiles = append(snap.Projectiles, ProjectileView{
			PID:        p.PID,
			Projectile: p.Name,
			X:          p.Position.X,
			Y:          p.Position.Y,
			GoingX:     p.Goal.X,
			GoingY:     p.Goal.Y,
			Rotation:   p.rotation,
		})
	}
	return snap
}

func sortedKeys(m map[string]*Projectile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
