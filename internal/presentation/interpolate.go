package presentation

import (
	"github.com/annel0/al-spectator/internal/vec"
)

// Advance продвигает позицию к цели за elapsedMs миллисекунд (шаг Эйлера).
// Если за тик сущность дойдёт до цели или дальше, позиция ставится точно в
// цель и Moving сбрасывается. Возвращает угол движения и признак прибытия.
func Advance(s *EntityState, elapsedMs float64) (angle float64, arrived bool) {
	pos, angle, arrived := step(s.Position, s.Goal, s.Speed, elapsedMs)
	s.Position = pos
	if arrived {
		s.Moving = false
	}
	return angle, arrived
}

// step: общий шаг интерполяции для сущностей и снарядов
func step(pos, goal vec.Vec2Float, speed, elapsedMs float64) (vec.Vec2Float, float64, bool) {
	angle := pos.AngleTo(goal)
	speed = validSpeed(speed)
	distanceTraveled := speed * elapsedMs / 1000
	distanceToGoal := pos.DistanceTo(goal)

	if distanceTraveled >= distanceToGoal {
		return goal, angle, true
	}
	return pos.Add(vec.FromPolar(angle, distanceTraveled)), angle, false
}
