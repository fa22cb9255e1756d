package protocol

import (
	"encoding/json"
	"sort"
)

// StatusInfo содержит активные статус-эффекты сущности; наличие ключа = эффект активен
type StatusInfo map[string]json.RawMessage

// Names возвращает отсортированные имена активных эффектов
func (s StatusInfo) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CXData описывает косметику персонажа
type CXData struct {
	Head   string `json:"head,omitempty"`
	Hair   string `json:"hair,omitempty"`
	Hat    string `json:"hat,omitempty"`
	Face   string `json:"face,omitempty"`
	Makeup string `json:"makeup,omitempty"`
}

// EntityData: снимок монстра или персонажа, отправляемый браузеру.
// Указатель nil означает «поле не передано» (частичное обновление).
type EntityData struct {
	ID     string     `json:"id"`
	Skin   string     `json:"skin,omitempty"`
	X      *float64   `json:"x,omitempty"`
	Y      *float64   `json:"y,omitempty"`
	GoingX *float64   `json:"going_x,omitempty"`
	GoingY *float64   `json:"going_y,omitempty"`
	Speed  *float64   `json:"speed,omitempty"`
	Moving *bool      `json:"moving,omitempty"`
	HP     *float64   `json:"hp,omitempty"`
	MaxHP  *float64   `json:"max_hp,omitempty"`
	Target *string    `json:"target,omitempty"`
	// nil: статусы не переданы, пустой объект - снять все
	S StatusInfo `json:"s"`

	// Только для монстров
	AA   *bool    `json:"aa,omitempty"`
	Size *float64 `json:"size,omitempty"`

	// Только для персонажей
	CX *CXData `json:"cx,omitempty"`
}

// ProjectileData: снаряд, летящий от атакующего к цели
type ProjectileData struct {
	PID        string  `json:"pid"`
	Projectile string  `json:"projectile"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	GoingX     float64 `json:"going_x"`
	GoingY     float64 `json:"going_y"`
	Speed      float64 `json:"speed,omitempty"`
}

// MapData: сигнал смены карты с центром вида в указанных координатах
type MapData struct {
	Map string  `json:"map"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// Float возвращает указатель на значение (для заполнения EntityData)
func Float(v float64) *float64 { return &v }

// Bool возвращает указатель на значение
func Bool(v bool) *bool { return &v }

// String возвращает указатель на значение
func String(v string) *string { return &v }
