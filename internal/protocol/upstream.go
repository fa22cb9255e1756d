package protocol

// Имена событий игрового сервера, которые понимает relay
const (
	UpstreamEntities  = "entities"
	UpstreamNewMap    = "new_map"
	UpstreamWelcome   = "welcome"
	UpstreamPlayer    = "player"
	UpstreamDeath     = "death"
	UpstreamDisappear = "disappear"
	UpstreamAction    = "action"
	UpstreamHit       = "hit"
)

// UpstreamMonster: монстр в формате игрового сервера; отсутствующие
// hp/max_hp/speed берутся из игровых данных по Type
type UpstreamMonster struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	GoingX float64    `json:"going_x"`
	GoingY float64    `json:"going_y"`
	Moving bool       `json:"moving"`
	HP     *float64   `json:"hp,omitempty"`
	MaxHP  *float64   `json:"max_hp,omitempty"`
	Speed  *float64   `json:"speed,omitempty"`
	Target string     `json:"target,omitempty"`
	S      StatusInfo `json:"s,omitempty"`
}

// PlayerData: персонаж в формате игрового сервера
type PlayerData struct {
	ID     string     `json:"id"`
	Skin   string     `json:"skin"`
	CX     *CXData    `json:"cx,omitempty"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	GoingX float64    `json:"going_x"`
	GoingY float64    `json:"going_y"`
	Moving bool       `json:"moving"`
	HP     float64    `json:"hp"`
	MaxHP  float64    `json:"max_hp"`
	Speed  float64    `json:"speed"`
	Target string     `json:"target,omitempty"`
	S      StatusInfo `json:"s,omitempty"`
}

// EntitiesData: пакет сущностей; Type == "all" означает полную замену
type EntitiesData struct {
	Type     string            `json:"type"`
	Map      string            `json:"map,omitempty"`
	Monsters []UpstreamMonster `json:"monsters"`
	Players  []PlayerData      `json:"players"`
}

// NewMapData: переход на новую карту вместе с её сущностями
type NewMapData struct {
	Name     string       `json:"name"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Entities EntitiesData `json:"entities"`
}

// WelcomeData: начальная позиция наблюдателя
type WelcomeData struct {
	Map string  `json:"map"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// DeathData: сущность умерла
type DeathData struct {
	ID string `json:"id"`
}

// DisappearData: сущность покинула зону видимости
type DisappearData struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// ActionData: атака; при наличии PID и Projectile порождает снаряд
type ActionData struct {
	Attacker   string `json:"attacker"`
	Target     string `json:"target"`
	Projectile string `json:"projectile,omitempty"`
	PID        string `json:"pid,omitempty"`
}

// HitData: попадание снаряда PID в сущность ID
type HitData struct {
	PID string `json:"pid,omitempty"`
	ID  string `json:"id"`
}
