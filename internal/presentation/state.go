package presentation

import (
	"math"
	"sort"

	"github.com/annel0/al-spectator/internal/vec"
)

// Kind различает монстров и персонажей
type Kind int

const (
	KindMonster Kind = iota
	KindCharacter
)

func (k Kind) String() string {
	if k == KindCharacter {
		return "character"
	}
	return "monster"
}

// Direction: одно из четырёх направлений взгляда; порядок совпадает с
// порядком строк в наборе текстур
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "?"
	}
}

// StatusFlags: множество активных статус-эффектов
type StatusFlags map[string]struct{}

// NewStatusFlags строит множество из имён
func NewStatusFlags(names ...string) StatusFlags {
	flags := make(StatusFlags, len(names))
	for _, name := range names {
		flags[name] = struct{}{}
	}
	return flags
}

// Has проверяет наличие эффекта
func (s StatusFlags) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names возвращает отсортированные имена эффектов
func (s StatusFlags) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cosmetics: слои косметики персонажа
type Cosmetics struct {
	Head   string
	Hair   string
	Hat    string
	Face   string
	Makeup string
}

// EntityState: состояние представления монстра или персонажа
type EntityState struct {
	ID              string
	Kind            Kind
	Skin            string
	Position        vec.Vec2Float
	Goal            vec.Vec2Float
	Speed           float64 // единиц карты в секунду
	Moving          bool
	Health          float64
	MaxHealth       float64
	Facing          Direction
	TargetID        string
	Status          StatusFlags
	Size            float64
	AlwaysAnimating bool
	Cosmetics       *Cosmetics
}

// Patch: частичное обновление. nil означает «поле не передано»; поля,
// отсутствующие в Patch, не могут попасть в состояние.
type Patch struct {
	Skin            *string
	X               *float64
	Y               *float64
	GoingX          *float64
	GoingY          *float64
	Speed           *float64
	Moving          *bool
	Health          *float64
	MaxHealth       *float64
	TargetID        *string
	Status          StatusFlags // nil = не передано, пустое множество = сбросить все
	Size            *float64
	AlwaysAnimating *bool
	Cosmetics       *Cosmetics
}

// newEntityState строит состояние новой сущности из патча и значений по умолчанию
func newEntityState(id string, kind Kind, p Patch) *EntityState {
	s := &EntityState{
		ID:     id,
		Kind:   kind,
		Facing: North,
		Status: StatusFlags{},
		Size:   1,
	}
	s.Apply(p)

	if p.GoingX == nil {
		s.Goal.X = s.Position.X
	}
	if p.GoingY == nil {
		s.Goal.Y = s.Position.Y
	}
	if p.Moving == nil {
		s.Moving = s.Position != s.Goal
	}
	if p.MaxHealth == nil {
		s.MaxHealth = s.Health
	}
	if p.Health == nil {
		// Без здоровья в сообщении сущность считается живой
		if s.MaxHealth <= 0 {
			s.MaxHealth = 1
		}
		s.Health = s.MaxHealth
	}
	return s
}

// validSpeed: отрицательная или нечисловая скорость считается нулевой, иначе
// сущность уходила бы от цели
func validSpeed(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Apply поверхностно переписывает переданные поля, не трогая остальные
func (s *EntityState) Apply(p Patch) {
	if p.Skin != nil {
		s.Skin = *p.Skin
	}
	if p.X != nil {
		s.Position.X = *p.X
	}
	if p.Y != nil {
		s.Position.Y = *p.Y
	}
	if p.GoingX != nil {
		s.Goal.X = *p.GoingX
	}
	if p.GoingY != nil {
		s.Goal.Y = *p.GoingY
	}
	if p.Speed != nil {
		s.Speed = validSpeed(*p.Speed)
	}
	if p.Moving != nil {
		s.Moving = *p.Moving
	}
	if p.Health != nil {
		s.Health = *p.Health
		if s.Health < 0 {
			s.Health = 0
		}
	}
	if p.MaxHealth != nil {
		s.MaxHealth = *p.MaxHealth
	}
	if p.TargetID != nil {
		s.TargetID = *p.TargetID
	}
	if p.Status != nil {
		s.Status = make(StatusFlags, len(p.Status))
		for name := range p.Status {
			s.Status[name] = struct{}{}
		}
	}
	if p.Size != nil && *p.Size > 0 {
		s.Size = *p.Size
	}
	if p.AlwaysAnimating != nil {
		s.AlwaysAnimating = *p.AlwaysAnimating
	}
	if p.Cosmetics != nil && s.Kind == KindCharacter {
		cx := *p.Cosmetics
		s.Cosmetics = &cx
	}
}
