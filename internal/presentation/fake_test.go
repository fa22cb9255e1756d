package presentation

// fakeNode: минимальный узел для модульных тестов
type fakeNode struct {
	frames      []Frame
	frame       int
	x, y        float64
	alpha       float64
	interactive bool
	overlays    bool
	health      float64
	filters     []string
	setFilters  int
	destroyed   int
}

func (n *fakeNode) SetPosition(x, y float64) { n.x, n.y = x, y }

func (n *fakeNode) Size() (float64, float64) {
	if len(n.frames) == 0 {
		return 0, 0
	}
	return n.frames[0].W, n.frames[0].H
}

func (n *fakeNode) SetTextures(frames []Frame)    { n.frames = frames }
func (n *fakeNode) SetFrame(frame int)            { n.frame = frame }
func (n *fakeNode) SetAlpha(alpha float64)        { n.alpha = alpha }
func (n *fakeNode) SetRotation(float64)           {}
func (n *fakeNode) SetZIndex(float64)             {}
func (n *fakeNode) SetInteractive(on bool)        { n.interactive = on }
func (n *fakeNode) SetOverlaysVisible(on bool)    { n.overlays = on }
func (n *fakeNode) SetHealthBar(fraction float64) { n.health = fraction }
func (n *fakeNode) Filters() []string             { return n.filters }

func (n *fakeNode) SetFilters(filters []string) {
	n.setFilters++
	n.filters = filters
}

func (n *fakeNode) Destroy() { n.destroyed++ }

// fakeScene создаёт fakeNode; fail заставляет CreateNode вернуть ошибку
type fakeScene struct {
	nodes []*fakeNode
	fail  error
}

func (s *fakeScene) CreateNode(parent Node, spec NodeSpec) (Node, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	n := &fakeNode{frames: spec.Frames, alpha: 1}
	s.nodes = append(s.nodes, n)
	return n, nil
}

func (s *fakeScene) SetMap(string, float64, float64) {}
