package presentation

// layer: слой косметики, дочерний узел базового спрайта. Делит с ним
// направление и кадр.
type layer struct {
	name     string
	sprite   string
	node     Node
	textures Textures
}

// Entity связывает состояние с ресурсами представления
type Entity struct {
	State *EntityState

	node     Node
	textures Textures
	layers   []*layer
	anim     *Animator
	alpha    float64

	lifecycle lifecycleState

	// shown: скин и косметика, под которые построены узлы
	shown appearance

	// missingTarget: последняя цель, о которой уже сообщили «не найдена»
	missingTarget string
}

// appearance: всё, от чего зависят текстуры базы и слои косметики
type appearance struct {
	skin string
	cx   Cosmetics
}

func (e *Entity) look() appearance {
	a := appearance{skin: e.State.Skin}
	if e.State.Cosmetics != nil {
		a.cx = *e.State.Cosmetics
	}
	return a
}

func newEntity(state *EntityState) *Entity {
	e := &Entity{
		State: state,
		alpha: 1,
		anim:  NewAnimator(1, 0),
	}
	e.setState(spawningState{})
	return e
}

// Phase возвращает фазу жизненного цикла
func (e *Entity) Phase() Phase {
	if e.lifecycle == nil {
		return PhaseSpawning
	}
	return e.lifecycle.Phase()
}

// Alpha возвращает текущую прозрачность
func (e *Entity) Alpha() float64 { return e.alpha }

// Animator возвращает состояние анимации
func (e *Entity) Animator() *Animator { return e.anim }

// Node возвращает базовый узел сцены; nil после удаления
func (e *Entity) Node() Node { return e.node }

// LayerNames возвращает имена слоёв косметики в z-порядке
func (e *Entity) LayerNames() []string {
	names := make([]string, 0, len(e.layers))
	for _, l := range e.layers {
		names = append(names, l.name)
	}
	return names
}

// place ставит узел так, чтобы позиция сущности была серединой нижнего края
func (e *Entity) place() {
	if e.node == nil {
		return
	}
	w, h := e.node.Size()
	e.node.SetPosition(e.State.Position.X-w/2, e.State.Position.Y-h)
	e.node.SetZIndex(e.State.Position.Y)
}

// applyDirection переключает текстуры базы и слоёв на текущее направление
func (e *Entity) applyDirection() {
	frames := e.textures.For(e.State.Facing)
	e.anim.SetTotal(len(frames))
	if e.node != nil {
		e.node.SetTextures(frames)
	}
	for _, l := range e.layers {
		l.node.SetTextures(l.textures.For(e.State.Facing))
	}
}

// syncFrame выставляет кадр аниматора базе и слоям; у слоя может быть
// меньше кадров, тогда берётся последний
func (e *Entity) syncFrame() {
	frame := e.anim.Frame()
	if e.node != nil {
		e.node.SetFrame(frame)
	}
	for _, l := range e.layers {
		l.node.SetFrame(clampFrame(frame, len(l.textures.For(e.State.Facing))))
	}
}

// release освобождает узлы; повторный вызов ничего не делает
func (e *Entity) release() {
	for _, l := range e.layers {
		l.node.Destroy()
	}
	e.layers = nil
	if e.node != nil {
		e.node.Destroy()
		e.node = nil
	}
}
