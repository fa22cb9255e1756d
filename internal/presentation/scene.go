package presentation

// Frame: прямоугольник кадра в файле текстуры
type Frame struct {
	File string  `json:"file"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Textures: кадры анимации по направлениям (индекс = Direction)
type Textures [4][]Frame

// For возвращает кадры для направления
func (t Textures) For(d Direction) []Frame {
	if d < North || d > West {
		return t[North]
	}
	return t[d]
}

// NodeSpec описывает создаваемый узел сцены
type NodeSpec struct {
	Name   string
	Frames []Frame
	Scale  float64
}

// Node: узел графа сцены, которым управляет движок. Реализация
// принадлежит инструментарию рендеринга.
type Node interface {
	SetPosition(x, y float64)
	// Size возвращает размер текущего кадра с учётом масштаба
	Size() (w, h float64)
	SetTextures(frames []Frame)
	SetFrame(frame int)
	SetAlpha(alpha float64)
	SetRotation(rad float64)
	SetZIndex(z float64)
	SetInteractive(on bool)
	SetOverlaysVisible(on bool)
	SetHealthBar(fraction float64)
	Filters() []string
	SetFilters(filters []string)
	Destroy()
}

// Scene: вход в инструментарий рендеринга
type Scene interface {
	// CreateNode создаёт узел; parent == nil означает слой сущностей
	CreateNode(parent Node, spec NodeSpec) (Node, error)
	// SetMap переключает фон и центрирует вид
	SetMap(name string, x, y float64)
}
