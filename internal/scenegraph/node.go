package scenegraph

import "github.com/annel0/al-spectator/internal/presentation"

// Node: узел графа; реализует presentation.Node
type Node struct {
	graph    *Graph
	name     string
	parent   *Node
	children []*Node

	frames []presentation.Frame
	frame  int
	scale  float64

	x, y        float64
	alpha       float64
	rotation    float64
	z           float64
	interactive bool
	overlays    bool
	healthBar   float64
	filters     []string
	destroyed   bool
}

func (n *Node) Name() string { return n.name }

func (n *Node) Destroyed() bool { return n.destroyed }

func (n *Node) Position() (float64, float64) { return n.x, n.y }

func (n *Node) Alpha() float64 { return n.alpha }

func (n *Node) Frame() int { return n.frame }

func (n *Node) Frames() []presentation.Frame { return n.frames }

func (n *Node) Interactive() bool { return n.interactive }

func (n *Node) OverlaysVisible() bool { return n.overlays }

func (n *Node) HealthBar() float64 { return n.healthBar }

func (n *Node) Rotation() float64 { return n.rotation }

func (n *Node) ZIndex() float64 { return n.z }

func (n *Node) Children() []*Node { return n.children }

func (n *Node) SetPosition(x, y float64) {
	n.x = x
	n.y = y
}

// Size: размер текущего кадра с учётом масштаба
func (n *Node) Size() (float64, float64) {
	if n.frame < 0 || n.frame >= len(n.frames) {
		return 0, 0
	}
	f := n.frames[n.frame]
	return f.W * n.scale, f.H * n.scale
}

func (n *Node) SetTextures(frames []presentation.Frame) {
	n.frames = append(n.frames[:0:0], frames...)
	if n.frame >= len(n.frames) {
		n.frame = 0
	}
}

func (n *Node) SetFrame(frame int) {
	if frame < 0 || frame >= len(n.frames) {
		return
	}
	n.frame = frame
}

func (n *Node) SetAlpha(alpha float64) { n.alpha = alpha }

func (n *Node) SetRotation(rad float64) { n.rotation = rad }

func (n *Node) SetZIndex(z float64) { n.z = z }

func (n *Node) SetInteractive(on bool) { n.interactive = on }

func (n *Node) SetOverlaysVisible(on bool) { n.overlays = on }

func (n *Node) SetHealthBar(fraction float64) { n.healthBar = fraction }

func (n *Node) Filters() []string { return n.filters }

func (n *Node) SetFilters(filters []string) {
	n.filters = append([]string(nil), filters...)
}

// Destroy убирает узел и всех потомков из графа; повторный вызов безопасен
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	for len(n.children) > 0 {
		n.children[0].Destroy()
	}
	n.destroyed = true
	n.graph.detach(n)
	n.graph.count--
}

func (n *Node) view() NodeView {
	w, h := n.Size()
	v := NodeView{
		Name:        n.name,
		X:           n.x,
		Y:           n.y,
		W:           w,
		H:           h,
		Frame:       n.frame,
		Frames:      len(n.frames),
		Alpha:       n.alpha,
		Rotation:    n.rotation,
		Z:           n.z,
		Interactive: n.interactive,
		Overlays:    n.overlays,
		HealthBar:   n.healthBar,
		Filters:     append([]string(nil), n.filters...),
	}
	if n.frame >= 0 && n.frame < len(n.frames) {
		v.File = n.frames[n.frame].File
	}
	for _, c := range n.children {
		v.Children = append(v.Children, c.view())
	}
	return v
}
