package presentation

import "math"

// DirectionFromAngle переводит угол (радианы, 0 = +X) в одно из четырёх
// направлений. Границы интервалов важны для воспроизводимости:
//
//	(-π/4, π/4]             → East
//	(π/4, 3π/4]             → North
//	(3π/4, π] ∪ (-π, -3π/4] → West
//	иначе                   → South
func DirectionFromAngle(angle float64) Direction {
	switch {
	case angle > -math.Pi/4 && angle <= math.Pi/4:
		return East
	case angle > math.Pi/4 && angle <= 3*math.Pi/4:
		return North
	case angle > 3*math.Pi/4 || angle <= -3*math.Pi/4:
		return West
	default:
		return South
	}
}

// facingAngle выбирает источник направления: живая цель, затем движение
// (moved - сущность реально сдвинулась на этом тике).
// ok == false означает «сохранить прежнее направление».
func facingAngle(e *Entity, registry *Registry, movementAngle float64, moved bool) (angle float64, ok bool) {
	s := e.State
	if s.TargetID != "" && s.TargetID != s.ID {
		if target, found := registry.Get(s.TargetID); found {
			return s.Position.AngleTo(target.State.Position), true
		}
	}
	if moved {
		return movementAngle, true
	}
	return 0, false
}
