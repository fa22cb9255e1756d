// Package scenegraph - безголовый граф сцены: хранит то, что браузер
// нарисовал бы на экране, и отдаёт это в JSON для /api/tabs/:tab/scene.
package scenegraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/al-spectator/internal/presentation"
)

var _ presentation.Scene = (*Graph)(nil)

// ErrNodeLimit возвращается, когда граф заполнен
var ErrNodeLimit = errors.New("scene node limit reached")

// ErrForeignParent возвращается для родителя из другого графа
var ErrForeignParent = errors.New("parent node belongs to another scene")

// DefaultMaxNodes: лимит узлов по умолчанию
const DefaultMaxNodes = 10000

// Graph реализует presentation.Scene. Им владеет одна горутина (спектатор
// вкладки), поэтому блокировок нет.
type Graph struct {
	maxNodes int
	count    int
	roots    []*Node

	mapName string
	centerX float64
	centerY float64
}

// New создаёт граф с лимитом узлов; maxNodes <= 0 - значение по умолчанию
func New(maxNodes int) *Graph {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Graph{maxNodes: maxNodes}
}

// Len возвращает число живых узлов
func (g *Graph) Len() int { return g.count }

// Map возвращает текущую карту и центр вида
func (g *Graph) Map() (string, float64, float64) {
	return g.mapName, g.centerX, g.centerY
}

// SetMap переключает фон
func (g *Graph) SetMap(name string, x, y float64) {
	g.mapName = name
	g.centerX = x
	g.centerY = y
}

// CreateNode создаёт узел в корне или под parent
func (g *Graph) CreateNode(parent presentation.Node, spec presentation.NodeSpec) (presentation.Node, error) {
	if g.count >= g.maxNodes {
		return nil, fmt.Errorf("%w (%d)", ErrNodeLimit, g.maxNodes)
	}

	scale := spec.Scale
	if scale <= 0 {
		scale = 1
	}
	n := &Node{
		graph:       g,
		name:        spec.Name,
		frames:      append([]presentation.Frame(nil), spec.Frames...),
		scale:       scale,
		alpha:       1,
		interactive: true,
	}

	if parent != nil {
		p, ok := parent.(*Node)
		if !ok || p.graph != g || p.destroyed {
			return nil, ErrForeignParent
		}
		n.parent = p
		p.children = append(p.children, n)
	} else {
		g.roots = append(g.roots, n)
	}
	g.count++
	return n, nil
}

func (g *Graph) detach(n *Node) {
	if n.parent != nil {
		n.parent.children = removeNode(n.parent.children, n)
		return
	}
	g.roots = removeNode(g.roots, n)
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// NodeView: сериализуемое состояние узла
type NodeView struct {
	Name        string     `json:"name"`
	File        string     `json:"file,omitempty"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	W           float64    `json:"w"`
	H           float64    `json:"h"`
	Frame       int        `json:"frame"`
	Frames      int        `json:"frames"`
	Alpha       float64    `json:"alpha"`
	Rotation    float64    `json:"rotation,omitempty"`
	Z           float64    `json:"z"`
	Interactive bool       `json:"interactive"`
	Overlays    bool       `json:"overlays"`
	HealthBar   float64    `json:"health_bar"`
	Filters     []string   `json:"filters,omitempty"`
	Children    []NodeView `json:"children,omitempty"`
}

// View: сериализуемая сцена; корневые узлы отсортированы по z
type View struct {
	Map   string     `json:"map"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Nodes []NodeView `json:"nodes"`
}

// Dump строит копию сцены, безопасную для передачи другим горутинам
func (g *Graph) Dump() View {
	v := View{Map: g.mapName, X: g.centerX, Y: g.centerY, Nodes: make([]NodeView, 0, len(g.roots))}
	for _, n := range g.roots {
		v.Nodes = append(v.Nodes, n.view())
	}
	sort.SliceStable(v.Nodes, func(i, j int) bool {
		if v.Nodes[i].Z != v.Nodes[j].Z {
			return v.Nodes[i].Z < v.Nodes[j].Z
		}
		return v.Nodes[i].Name < v.Nodes[j].Name
	})
	return v
}
