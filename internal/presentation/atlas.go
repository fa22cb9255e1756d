package presentation

import (
	"fmt"
	"sync"

	"github.com/annel0/al-spectator/internal/gamedata"
)

const (
	skinAnimationFrames = 3
	defaultHeadSkin     = "makeup117"
	skinTypeFull        = "full"
)

// sheetDirections переставляет строки листа (вниз, влево, вправо, вверх)
// в порядок Direction
var sheetDirections = [4]int{0, 2, 3, 1}

var defaultHeadOptions = []string{"sskin1a", "mskin1a", "lskin1a"}

// placeholderFrame используется, когда скина нет в игровых данных
var placeholderFrame = Frame{W: 26, H: 36}

// Atlas нарезает текстуры скинов, косметики и анимаций по игровым данным.
// Потокобезопасен: один атлас используется спектаторами всех вкладок.
type Atlas struct {
	g  *gamedata.GData
	mu sync.Mutex

	skins     map[string]Textures
	cosmetics map[string]Textures
	anims     map[string][]Frame
}

// NewAtlas создаёт атлас поверх игровых данных
func NewAtlas(g *gamedata.GData) *Atlas {
	if g == nil {
		g = gamedata.Empty()
	}
	return &Atlas{
		g:         g,
		skins:     make(map[string]Textures),
		cosmetics: make(map[string]Textures),
		anims:     make(map[string][]Frame),
	}
}

// GameData возвращает исходные игровые данные
func (a *Atlas) GameData() *gamedata.GData { return a.g }

// PlaceholderTextures: однокадровая заглушка для всех направлений
func PlaceholderTextures() Textures {
	var t Textures
	for d := range t {
		t[d] = []Frame{placeholderFrame}
	}
	return t
}

// SkinType возвращает тип листа скина ("full" для цельных скинов)
func (a *Atlas) SkinType(skin string) (string, error) {
	loc, err := a.g.FindSprite(skin)
	if err != nil {
		return "", err
	}
	if loc.Sprites.Type == "" {
		return skinTypeFull, nil
	}
	return loc.Sprites.Type, nil
}

// SkinTextures возвращает 3 кадра ходьбы на направление плюс повтор среднего
// кадра (0,1,2,1), чтобы цикл был «туда-обратно»
func (a *Atlas) SkinTextures(skin string) (Textures, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.skins[skin]; ok {
		return t, nil
	}

	loc, err := a.g.FindSprite(skin)
	if err != nil {
		return Textures{}, err
	}
	img, err := a.g.Image(loc.Sprites.File)
	if err != nil {
		return Textures{}, err
	}
	if loc.Sprites.Columns <= 0 || loc.Sprites.Rows <= 0 {
		return Textures{}, fmt.Errorf("sprite sheet %s: empty grid", loc.Sheet)
	}

	file := gamedata.CleanFile(loc.Sprites.File)
	width := img.Width / float64(loc.Sprites.Columns) / skinAnimationFrames
	height := img.Height / float64(loc.Sprites.Rows) / 4
	dims := a.g.Dimensions[skin]

	var t Textures
	for i, row := range sheetDirections {
		frames := make([]Frame, 0, skinAnimationFrames+1)
		for f := 0; f < skinAnimationFrames; f++ {
			frame := Frame{
				File: file,
				X:    float64(loc.Col*skinAnimationFrames)*width + float64(f)*width,
				Y:    float64(loc.Row*4)*height + float64(row)*height,
				W:    width,
				H:    height,
			}
			frames = append(frames, trimFrame(frame, dims))
		}
		frames = append(frames, frames[1])
		t[i] = frames
	}

	a.skins[skin] = t
	return t, nil
}

// trimFrame подрезает кадр по dimensions: [ширина, высота, сдвиг по X]
func trimFrame(f Frame, dims []float64) Frame {
	if len(dims) > 2 && dims[2] != 0 {
		f.X += dims[2]
	}
	if len(dims) > 0 && dims[0] != 0 {
		diff := f.W - dims[0]
		f.X += diff / 2
		f.W -= diff
	}
	if len(dims) > 1 && dims[1] != 0 {
		diff := f.H - dims[1]
		f.Y += diff
		f.H -= diff
	}
	return f
}

// CosmeticTextures возвращает однокадровые текстуры косметики (голова,
// причёска, шляпа, лицо, макияж)
func (a *Atlas) CosmeticTextures(name string) (Textures, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.cosmetics[name]; ok {
		return t, nil
	}

	loc, err := a.g.FindSprite(name)
	if err != nil {
		return Textures{}, err
	}
	img, err := a.g.Image(loc.Sprites.File)
	if err != nil {
		return Textures{}, err
	}
	if loc.Sprites.Columns <= 0 || loc.Sprites.Rows <= 0 {
		return Textures{}, fmt.Errorf("sprite sheet %s: empty grid", loc.Sheet)
	}

	file := gamedata.CleanFile(loc.Sprites.File)
	width := img.Width / float64(loc.Sprites.Columns)
	height := img.Height / float64(loc.Sprites.Rows) / 4

	var t Textures
	for i, row := range sheetDirections {
		t[i] = []Frame{{
			File: file,
			X:    float64(loc.Col) * width,
			Y:    float64(loc.Row*4)*height + float64(row)*height,
			W:    width,
			H:    height,
		}}
	}

	a.cosmetics[name] = t
	return t, nil
}

// SkinColorTextures выбирает тело по цвету кожи головы с учётом размера листа
func (a *Atlas) SkinColorTextures(head string) (Textures, error) {
	loc, err := a.g.FindSprite(head)
	if err != nil {
		return Textures{}, err
	}
	options := a.g.Cosmetics.Head[head]
	if len(options) < 3 {
		options = defaultHeadOptions
	}
	switch loc.Sprites.Size {
	case "small":
		return a.SkinTextures(options[0])
	case "large":
		return a.SkinTextures(options[2])
	default:
		return a.SkinTextures(options[1])
	}
}

// AnimationTextures нарезает горизонтальную полосу анимации (снаряды)
func (a *Atlas) AnimationTextures(name string) ([]Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if frames, ok := a.anims[name]; ok {
		return frames, nil
	}

	anim, ok := a.g.Animations[name]
	if !ok || anim.Frames <= 0 {
		return nil, fmt.Errorf("animation %q: %w", name, gamedata.ErrNotFound)
	}
	img, err := a.g.Image(anim.File)
	if err != nil {
		return nil, err
	}

	file := gamedata.CleanFile(anim.File)
	width := img.Width / float64(anim.Frames)
	frames := make([]Frame, 0, anim.Frames)
	for i := 0; i < anim.Frames; i++ {
		frames = append(frames, Frame{File: file, X: float64(i) * width, W: width, H: img.Height})
	}

	a.anims[name] = frames
	return frames, nil
}
