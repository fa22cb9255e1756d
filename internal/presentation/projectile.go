package presentation

import (
	"math"

	"github.com/annel0/al-spectator/internal/vec"
)

// Projectile: снаряд, летящий к точке цели. Уничтожается по прибытии.
type Projectile struct {
	PID      string
	Name     string
	Position vec.Vec2Float
	Goal     vec.Vec2Float
	Speed    float64

	node     Node
	anim     *Animator
	rotation float64
}

// Rotation возвращает поворот узла в радианах
func (p *Projectile) Rotation() float64 { return p.rotation }

// advance выполняет шаг снаряда. Возвращает true, если снаряд долетел и
// его узел уничтожен.
func (p *Projectile) advance(elapsedMs float64) bool {
	pos, angle, arrived := step(p.Position, p.Goal, p.Speed, elapsedMs)
	p.Position = pos
	if arrived {
		p.destroy()
		return true
	}

	// Текстура снаряда нарисована «носом» вверх
	p.rotation = angle + math.Pi/2
	if p.node != nil {
		w, h := p.node.Size()
		p.node.SetPosition(pos.X-w/2, pos.Y-h/2)
		p.node.SetRotation(p.rotation)
		p.node.SetZIndex(pos.Y)
		if p.anim.Advance(elapsedMs) {
			p.node.SetFrame(p.anim.Frame())
		}
	}
	return false
}

func (p *Projectile) destroy() {
	if p.node != nil {
		p.node.Destroy()
		p.node = nil
	}
}
