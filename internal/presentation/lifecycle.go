package presentation

// Phase: фаза жизненного цикла сущности
type Phase int

const (
	PhaseSpawning Phase = iota
	PhaseActive
	PhaseDying
	PhaseRemoved
)

func (p Phase) String() string {
	switch p {
	case PhaseSpawning:
		return "spawning"
	case PhaseActive:
		return "active"
	case PhaseDying:
		return "dying"
	case PhaseRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// tickContext передаётся состояниям на каждом тике
type tickContext struct {
	engine    *Engine
	elapsedMs float64
}

// lifecycleState: состояние конечного автомата
// Spawning → Active → Dying → Removed
type lifecycleState interface {
	Phase() Phase
	Enter(e *Entity)
	Update(e *Entity, tc *tickContext) lifecycleState
	Exit(e *Entity)
}

// setState выполняет переход с вызовом Exit/Enter
func (e *Entity) setState(next lifecycleState) {
	if e.lifecycle != nil {
		e.lifecycle.Exit(e)
	}
	e.lifecycle = next
	e.lifecycle.Enter(e)
}

// update выполняет тик текущего состояния и переход, если он нужен
func (e *Entity) update(tc *tickContext) {
	next := e.lifecycle.Update(e, tc)
	if next.Phase() != e.lifecycle.Phase() {
		e.setState(next)
	}
}

// terminate переводит сущность в Removed без затухания
func (e *Entity) terminate() {
	if e.Phase() != PhaseRemoved {
		e.setState(removedState{})
	}
}

// === Конкретные состояния ===

// spawningState: ресурсы ещё строятся
type spawningState struct{}

func (spawningState) Phase() Phase    { return PhaseSpawning }
func (spawningState) Enter(e *Entity) {}
func (spawningState) Exit(e *Entity)  {}

func (s spawningState) Update(e *Entity, tc *tickContext) lifecycleState {
	if e.node == nil {
		return s
	}
	return activeState{}
}

// activeState: обычная жизнь: движение, направление, анимация, оверлеи
type activeState struct{}

func (activeState) Phase() Phase { return PhaseActive }

func (activeState) Enter(e *Entity) {
	if e.node != nil {
		e.node.SetInteractive(true)
		e.node.SetOverlaysVisible(true)
	}
}

func (activeState) Exit(e *Entity) {}

func (a activeState) Update(e *Entity, tc *tickContext) lifecycleState {
	if e.State.Health <= 0 {
		return dyingState{}
	}
	tc.engine.animateEntity(e, tc.elapsedMs)
	return a
}

// dyingState: затухание после смерти; здоровье больше не проверяется,
// поэтому смерть не может начаться повторно
type dyingState struct{}

func (dyingState) Phase() Phase { return PhaseDying }

func (dyingState) Enter(e *Entity) {
	e.anim.GotoAndStop(IdleFrameFor(e.anim.Total()))
	e.syncFrame()
	if e.node != nil {
		e.node.SetInteractive(false)
		e.node.SetOverlaysVisible(false)
	}
}

func (dyingState) Exit(e *Entity) {}

func (d dyingState) Update(e *Entity, tc *tickContext) lifecycleState {
	e.alpha -= tc.engine.cfg.DecayPerMs * tc.elapsedMs
	if e.alpha <= 0 {
		e.alpha = 0
		return removedState{}
	}
	if e.node != nil {
		e.node.SetAlpha(e.alpha)
	}
	return d
}

// removedState: конечное состояние; ресурсы освобождаются при входе
type removedState struct{}

func (removedState) Phase() Phase { return PhaseRemoved }

func (removedState) Enter(e *Entity) {
	e.release()
}

func (removedState) Exit(e *Entity) {}

func (r removedState) Update(e *Entity, tc *tickContext) lifecycleState {
	return r
}
