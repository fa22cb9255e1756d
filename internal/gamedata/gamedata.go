package gamedata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrNotFound возвращается, когда имя не найдено в игровых данных
var ErrNotFound = errors.New("not found in game data")

// GMonster: описание типа монстра; значения используются как значения по умолчанию
type GMonster struct {
	AA    float64 `json:"aa"`
	HP    float64 `json:"hp"`
	Size  float64 `json:"size"`
	Skin  string  `json:"skin"`
	Speed float64 `json:"speed"`
}

// GSprites: лист спрайтов: матрица имён скинов rows x columns
type GSprites struct {
	File    string     `json:"file"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Matrix  [][]string `json:"matrix"`
	Type    string     `json:"type,omitempty"`
	Size    string     `json:"size,omitempty"`
}

// GImage: размеры файла изображения
type GImage struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GCosmetics: смещения и таблица цветов кожи для голов
type GCosmetics struct {
	DefaultFacePosition   float64             `json:"default_face_position"`
	DefaultMakeupPosition float64             `json:"default_makeup_position"`
	Head                  map[string][]string `json:"head"`
}

// GProjectile: скорость и анимация снаряда
type GProjectile struct {
	Speed     float64 `json:"speed"`
	Animation string  `json:"animation"`
}

// GAnimation: горизонтальная полоса кадров
type GAnimation struct {
	File   string `json:"file"`
	Frames int    `json:"frames"`
}

// GData: подмножество игровых данных, нужное спектатору
type GData struct {
	Monsters    map[string]GMonster    `json:"monsters"`
	Sprites     map[string]GSprites    `json:"sprites"`
	Images      map[string]GImage      `json:"images"`
	Cosmetics   GCosmetics             `json:"cosmetics"`
	Projectiles map[string]GProjectile `json:"projectiles"`
	Animations  map[string]GAnimation  `json:"animations"`
	Dimensions  map[string][]float64   `json:"dimensions"`
}

// SpriteLocation: положение скина в листе спрайтов
type SpriteLocation struct {
	Sheet   string
	Sprites GSprites
	Row     int
	Col     int
}

// Load читает игровые данные из JSON файла
func Load(path string) (*GData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение игровых данных %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает игровые данные из JSON
func Parse(data []byte) (*GData, error) {
	var g GData
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("разбор игровых данных: %w", err)
	}
	return &g, nil
}

// Empty возвращает пустые игровые данные (сервер работает без текстур)
func Empty() *GData {
	return &GData{}
}

// Monster возвращает описание типа монстра
func (g *GData) Monster(name string) (GMonster, error) {
	m, ok := g.Monsters[name]
	if !ok {
		return GMonster{}, fmt.Errorf("monster %q: %w", name, ErrNotFound)
	}
	return m, nil
}

// Projectile возвращает описание снаряда
func (g *GData) Projectile(name string) (GProjectile, error) {
	p, ok := g.Projectiles[name]
	if !ok {
		return GProjectile{}, fmt.Errorf("projectile %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// FindSprite ищет скин во всех листах. Листы перебираются в порядке имён,
// чтобы результат не зависел от порядка обхода map.
func (g *GData) FindSprite(skin string) (SpriteLocation, error) {
	sheets := make([]string, 0, len(g.Sprites))
	for name := range g.Sprites {
		sheets = append(sheets, name)
	}
	sort.Strings(sheets)

	for _, name := range sheets {
		sprites := g.Sprites[name]
		for row := 0; row < sprites.Rows && row < len(sprites.Matrix); row++ {
			for col := 0; col < sprites.Columns && col < len(sprites.Matrix[row]); col++ {
				if sprites.Matrix[row][col] == skin {
					return SpriteLocation{Sheet: name, Sprites: sprites, Row: row, Col: col}, nil
				}
			}
		}
	}
	return SpriteLocation{}, fmt.Errorf("sprite %q: %w", skin, ErrNotFound)
}

// Image возвращает размеры файла, игнорируя query-суффикс версии (?v=123)
func (g *GData) Image(file string) (GImage, error) {
	clean := CleanFile(file)
	img, ok := g.Images[clean]
	if !ok {
		return GImage{}, fmt.Errorf("image %q: %w", clean, ErrNotFound)
	}
	return img, nil
}

// CleanFile отрезает от пути query и fragment
func CleanFile(file string) string {
	if i := strings.IndexAny(file, "?#"); i >= 0 {
		return file[:i]
	}
	return file
}
