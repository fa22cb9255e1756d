package presentation

// IdleFrame: средний кадр цикла, «стоячая» поза
const IdleFrame = 1

// Animator ведёт номер кадра; сцена лишь отображает его
type Animator struct {
	frame   int
	total   int
	playing bool
	fps     float64
	acc     float64 // накопленное время в мс с последней смены кадра
}

// NewAnimator создаёт аниматор на total кадров со скоростью fps кадров в секунду
func NewAnimator(total int, fps float64) *Animator {
	if total < 1 {
		total = 1
	}
	return &Animator{total: total, fps: fps}
}

func (a *Animator) Frame() int { return a.frame }

func (a *Animator) Total() int { return a.total }

func (a *Animator) Playing() bool { return a.playing }

// SetTotal меняет число кадров при смене набора текстур
func (a *Animator) SetTotal(total int) {
	if total < 1 {
		total = 1
	}
	a.total = total
	a.frame = clampFrame(a.frame, a.total)
}

// GotoAndPlay переходит на кадр и запускает воспроизведение
func (a *Animator) GotoAndPlay(frame int) {
	a.frame = clampFrame(frame, a.total)
	a.acc = 0
	a.playing = true
}

// GotoAndStop переходит на кадр и останавливает воспроизведение
func (a *Animator) GotoAndStop(frame int) {
	a.frame = clampFrame(frame, a.total)
	a.acc = 0
	a.playing = false
}

// Play продолжает воспроизведение с текущего кадра
func (a *Animator) Play() {
	a.playing = true
}

// Advance продвигает анимацию; возвращает true, если кадр сменился
func (a *Animator) Advance(elapsedMs float64) bool {
	if !a.playing || a.fps <= 0 || a.total <= 1 {
		return false
	}
	a.acc += elapsedMs
	frameMs := 1000 / a.fps
	changed := false
	for a.acc >= frameMs {
		a.acc -= frameMs
		a.frame = (a.frame + 1) % a.total
		changed = true
	}
	return changed
}

// IdleFrameFor возвращает кадр покоя для набора из total кадров
func IdleFrameFor(total int) int {
	return clampFrame(IdleFrame, total)
}

func clampFrame(frame, total int) int {
	if frame < 0 {
		return 0
	}
	if frame >= total {
		return total - 1
	}
	return frame
}
