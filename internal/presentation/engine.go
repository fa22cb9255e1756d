package presentation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/vec"
)

// ErrSpawnFailed возвращается, когда не удалось создать базовый узел сущности
var ErrSpawnFailed = errors.New("spawn failed")

// Значения по умолчанию
const (
	DefaultDecayPerMs      = 0.006
	DefaultAnimationFPS    = 6.0
	DefaultProjectileSpeed = 300.0
)

// EngineConfig: параметры движка представления
type EngineConfig struct {
	DecayPerMs      float64
	AnimationFPS    float64
	StatusFilters   map[string]string
	ProjectileSpeed float64
	// Rand задаёт случайный стартовый кадр; nil - всегда кадр 0
	Rand *rand.Rand
}

func (c *EngineConfig) normalize() {
	if c.DecayPerMs <= 0 {
		c.DecayPerMs = DefaultDecayPerMs
	}
	if c.AnimationFPS <= 0 {
		c.AnimationFPS = DefaultAnimationFPS
	}
	if c.StatusFilters == nil {
		c.StatusFilters = DefaultStatusFilters
	}
	if c.ProjectileSpeed <= 0 {
		c.ProjectileSpeed = DefaultProjectileSpeed
	}
}

// Stats: счётчики движка для метрик
type Stats struct {
	Entities      int
	Dying         int
	Projectiles   int
	Spawned       uint64
	SpawnFailures uint64
	Removed       uint64
	Ticks         uint64
}

// Engine: движок интерполяции и анимации одной вкладки. Не потокобезопасен:
// события и тики должны приходить из одной горутины (см. spectator).
type Engine struct {
	cfg      EngineConfig
	scene    Scene
	atlas    *Atlas
	registry *Registry
	logger   *logging.Logger

	projectiles map[string]*Projectile
	mapName     string
	anchor      vec.Vec2Float

	stats Stats
}

// NewEngine создаёт движок поверх сцены, атласа и реестра
func NewEngine(scene Scene, atlas *Atlas, registry *Registry, cfg EngineConfig, logger *logging.Logger) *Engine {
	cfg.normalize()
	if atlas == nil {
		atlas = NewAtlas(nil)
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.GetPresentationLogger()
	}
	return &Engine{
		cfg:         cfg,
		scene:       scene,
		atlas:       atlas,
		registry:    registry,
		logger:      logger,
		projectiles: make(map[string]*Projectile),
	}
}

// Registry возвращает реестр сущностей
func (en *Engine) Registry() *Registry { return en.registry }

// Map возвращает имя текущей карты
func (en *Engine) Map() string { return en.mapName }

// Projectile возвращает снаряд по pid
func (en *Engine) Projectile(pid string) (*Projectile, bool) {
	p, ok := en.projectiles[pid]
	return p, ok
}

// Stats возвращает копию счётчиков
func (en *Engine) Stats() Stats {
	s := en.stats
	s.Entities = en.registry.Len()
	s.Projectiles = len(en.projectiles)
	s.Dying = 0
	for _, id := range en.registry.IDs() {
		if e, ok := en.registry.Get(id); ok && e.Phase() == PhaseDying {
			s.Dying++
		}
	}
	return s
}

// Handle применяет входящее событие сразу при получении
func (en *Engine) Handle(msg *protocol.Message) error {
	switch msg.Event {
	case protocol.EventMonster, protocol.EventCharacter:
		var data protocol.EntityData
		if err := msg.DecodeData(&data); err != nil {
			return err
		}
		kind := KindMonster
		if msg.Event == protocol.EventCharacter {
			kind = KindCharacter
		}
		_, err := en.Upsert(kind, data)
		return err

	case protocol.EventProjectile:
		var data protocol.ProjectileData
		if err := msg.DecodeData(&data); err != nil {
			return err
		}
		return en.UpsertProjectile(data)

	case protocol.EventRemove:
		var id string
		if err := msg.DecodeData(&id); err != nil {
			return err
		}
		en.Remove(id)
		return nil

	case protocol.EventRemoveAll:
		en.RemoveAll()
		return nil

	case protocol.EventMap:
		var data protocol.MapData
		if err := msg.DecodeData(&data); err != nil {
			return err
		}
		en.ChangeMap(data)
		return nil

	case protocol.EventNewTab:
		// Список вкладок не влияет на сцену
		return nil

	default:
		en.logger.Debug("Неизвестное событие %q пропущено", msg.Event)
		return nil
	}
}

// PatchFromData переводит данные события в Patch; отсутствующие поля
// остаются nil
func PatchFromData(kind Kind, data protocol.EntityData) Patch {
	p := Patch{
		X:         data.X,
		Y:         data.Y,
		GoingX:    data.GoingX,
		GoingY:    data.GoingY,
		Speed:     data.Speed,
		Moving:    data.Moving,
		Health:    data.HP,
		MaxHealth: data.MaxHP,
		TargetID:  data.Target,
		Size:      data.Size,
	}
	if data.Skin != "" {
		skin := data.Skin
		p.Skin = &skin
	}
	if data.S != nil {
		p.Status = NewStatusFlags(data.S.Names()...)
	}
	if kind == KindMonster {
		p.AlwaysAnimating = data.AA
	}
	if kind == KindCharacter && data.CX != nil {
		p.Cosmetics = &Cosmetics{
			Head:   data.CX.Head,
			Hair:   data.CX.Hair,
			Hat:    data.CX.Hat,
			Face:   data.CX.Face,
			Makeup: data.CX.Makeup,
		}
	}
	return p
}

// Upsert создаёт или обновляет монстра либо персонажа
func (en *Engine) Upsert(kind Kind, data protocol.EntityData) (*Entity, error) {
	if data.ID == "" {
		return nil, fmt.Errorf("%w: %s without id", protocol.ErrMalformedMessage, kind)
	}
	e, created, err := en.registry.Upsert(data.ID, kind, PatchFromData(kind, data), en.spawn)
	if err != nil {
		en.stats.SpawnFailures++
		en.logger.Error("❌ Не удалось создать %s %s: %v", kind, data.ID, err)
		return nil, err
	}
	if created {
		en.stats.Spawned++
		en.logger.Debug("✨ Создан %s %s (%s) в (%.1f, %.1f)", kind, e.State.ID, e.State.Skin, e.State.Position.X, e.State.Position.Y)
	}
	return e, nil
}

// spawn строит узлы сущности. Ошибка создания базового узла не даёт
// сущности попасть в реестр.
func (en *Engine) spawn(e *Entity) error {
	s := e.State
	textures, err := en.baseTextures(s)
	if err != nil {
		en.logger.Warn("⚠️ Скин %q для %s не найден, используется заглушка: %v", s.Skin, s.ID, err)
		textures = PlaceholderTextures()
	}
	e.textures = textures

	node, err := en.scene.CreateNode(nil, NodeSpec{
		Name:   s.ID,
		Frames: textures.For(s.Facing),
		Scale:  s.Size,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSpawnFailed, s.ID, err)
	}
	e.node = node

	frames := textures.For(s.Facing)
	e.anim = NewAnimator(len(frames), en.cfg.AnimationFPS)
	start := 0
	if en.cfg.Rand != nil {
		// Чтобы одинаковые монстры не шагали синхронно
		start = en.cfg.Rand.Intn(len(frames))
	}
	e.anim.GotoAndPlay(start)

	e.syncCosmetics(en.scene, en.atlas, en.logger)
	e.shown = e.look()
	e.syncFrame()
	e.place()
	node.SetAlpha(e.alpha)
	node.SetHealthBar(healthFraction(s))
	syncStatusFilters(node, s.Status, en.cfg.StatusFilters)

	e.setState(activeState{})
	return nil
}

// baseTextures выбирает текстуры тела. Персонажу с неполным скином тело
// подбирается по цвету головы.
func (en *Engine) baseTextures(s *EntityState) (Textures, error) {
	if s.Kind != KindCharacter {
		return en.atlas.SkinTextures(s.Skin)
	}
	skinType, err := en.atlas.SkinType(s.Skin)
	if err != nil || skinType == skinTypeFull {
		return en.atlas.SkinTextures(s.Skin)
	}
	if s.Cosmetics == nil {
		s.Cosmetics = &Cosmetics{}
	}
	if s.Cosmetics.Head == "" {
		s.Cosmetics.Head = defaultHeadSkin
	}
	return en.atlas.SkinColorTextures(s.Cosmetics.Head)
}

// refreshAppearance перестраивает текстуры базы и слои косметики, если
// скин или косметика изменились с прошлой сборки
func (en *Engine) refreshAppearance(e *Entity) {
	if e.node == nil || e.look() == e.shown {
		return
	}
	textures, err := en.baseTextures(e.State)
	if err != nil {
		en.logger.Warn("⚠️ Скин %q для %s не найден, используется заглушка: %v", e.State.Skin, e.State.ID, err)
		textures = PlaceholderTextures()
	}
	e.textures = textures
	e.syncCosmetics(en.scene, en.atlas, en.logger)
	e.applyDirection()
	e.syncFrame()
	e.shown = e.look()
}

// Remove удаляет сущность сразу, без затухания
func (en *Engine) Remove(id string) bool {
	if en.registry.Remove(id) {
		en.stats.Removed++
		en.logger.Debug("🗑️ Сущность %s удалена", id)
		return true
	}
	if p, ok := en.projectiles[id]; ok {
		p.destroy()
		delete(en.projectiles, id)
		return true
	}
	return false
}

// RemoveAll удаляет все сущности и снаряды
func (en *Engine) RemoveAll() {
	n := en.registry.Clear()
	en.stats.Removed += uint64(n)
	for pid, p := range en.projectiles {
		p.destroy()
		delete(en.projectiles, pid)
	}
	en.logger.Debug("🧹 Удалено сущностей: %d", n)
}

// ChangeMap очищает реестр и переключает фон сцены
func (en *Engine) ChangeMap(data protocol.MapData) {
	en.RemoveAll()
	en.mapName = data.Map
	en.anchor = vec.Vec2Float{X: data.X, Y: data.Y}
	en.scene.SetMap(data.Map, data.X, data.Y)
	en.logger.Info("🗺️ Карта %s (%.0f, %.0f)", data.Map, data.X, data.Y)
}

// UpsertProjectile создаёт снаряд или обновляет существующий по pid
func (en *Engine) UpsertProjectile(data protocol.ProjectileData) error {
	if data.PID == "" {
		return fmt.Errorf("%w: projectile without pid", protocol.ErrMalformedMessage)
	}
	if validSpeed(data.Speed) != data.Speed {
		return fmt.Errorf("%w: projectile %s speed %v", protocol.ErrMalformedMessage, data.PID, data.Speed)
	}
	pos := vec.Vec2Float{X: data.X, Y: data.Y}
	goal := vec.Vec2Float{X: data.GoingX, Y: data.GoingY}

	if p, ok := en.projectiles[data.PID]; ok {
		p.Position = pos
		p.Goal = goal
		if data.Speed > 0 {
			p.Speed = data.Speed
		}
		return nil
	}

	p := &Projectile{PID: data.PID, Name: data.Projectile, Position: pos, Goal: goal, Speed: data.Speed}
	frames := []Frame{placeholderFrame}
	if gp, err := en.atlas.GameData().Projectile(data.Projectile); err == nil {
		if p.Speed <= 0 {
			p.Speed = gp.Speed
		}
		if anim, err := en.atlas.AnimationTextures(gp.Animation); err == nil {
			frames = anim
		} else {
			en.logger.Warn("⚠️ Анимация снаряда %s не найдена: %v", data.Projectile, err)
		}
	} else {
		en.logger.Warn("⚠️ Снаряд %s не найден в игровых данных: %v", data.Projectile, err)
	}
	if p.Speed <= 0 {
		p.Speed = en.cfg.ProjectileSpeed
	}

	node, err := en.scene.CreateNode(nil, NodeSpec{Name: data.PID, Frames: frames, Scale: 1})
	if err != nil {
		en.stats.SpawnFailures++
		return fmt.Errorf("%w: projectile %s: %w", ErrSpawnFailed, data.PID, err)
	}
	node.SetInteractive(false)
	p.node = node
	p.anim = NewAnimator(len(frames), en.cfg.AnimationFPS)
	p.anim.GotoAndPlay(0)
	en.projectiles[data.PID] = p
	return nil
}

// Tick: один кадр: смерть, движение, направление, анимация, оверлеи
func (en *Engine) Tick(elapsedMs float64) {
	if elapsedMs < 0 || math.IsNaN(elapsedMs) {
		elapsedMs = 0
	}
	en.stats.Ticks++
	tc := &tickContext{engine: en, elapsedMs: elapsedMs}

	for _, id := range en.registry.IDs() {
		e, ok := en.registry.Get(id)
		if !ok {
			continue
		}
		e.update(tc)
		if e.Phase() == PhaseRemoved {
			en.registry.forget(id)
			en.stats.Removed++
			en.logger.Debug("💀 Сущность %s исчезла", id)
		}
	}

	for _, pid := range sortedKeys(en.projectiles) {
		if en.projectiles[pid].advance(elapsedMs) {
			delete(en.projectiles, pid)
		}
	}
}

// animateEntity: тик активной сущности
func (en *Engine) animateEntity(e *Entity, elapsedMs float64) {
	s := e.State
	en.refreshAppearance(e)

	var moveAngle float64
	moved := false
	if s.Moving {
		from := s.Position
		moved = from != s.Goal
		moveAngle, _ = Advance(s, elapsedMs)
		if en.logger.Enabled(logging.TRACE) {
			en.logger.Trace("Сущность %s: (%.2f,%.2f) -> (%.2f,%.2f) dir:%s",
				s.ID, from.X, from.Y, s.Position.X, s.Position.Y, s.Facing)
		}
	}
	e.place()

	en.reportMissingTarget(e)
	if angle, ok := facingAngle(e, en.registry, moveAngle, moved); ok {
		if dir := DirectionFromAngle(angle); dir != s.Facing {
			s.Facing = dir
			e.applyDirection()
			e.anim.GotoAndPlay(0)
			e.syncFrame()
		}
	}

	// Стоящая сущность замирает на кадре покоя, если не анимируется всегда
	if !s.Moving && !s.AlwaysAnimating {
		idle := IdleFrameFor(e.anim.Total())
		if e.anim.Playing() || e.anim.Frame() != idle {
			e.anim.GotoAndStop(idle)
			e.syncFrame()
		}
	} else if !e.anim.Playing() {
		e.anim.Play()
	}
	if e.anim.Advance(elapsedMs) {
		e.syncFrame()
	}

	if e.node != nil {
		e.node.SetHealthBar(healthFraction(s))
		syncStatusFilters(e.node, s.Status, en.cfg.StatusFilters)
	}
}

// reportMissingTarget пишет предупреждение один раз на каждую новую
// неизвестную цель
func (en *Engine) reportMissingTarget(e *Entity) {
	target := e.State.TargetID
	if target == "" || target == e.State.ID {
		e.missingTarget = ""
		return
	}
	if _, ok := en.registry.Get(target); ok {
		e.missingTarget = ""
		return
	}
	if e.missingTarget != target {
		e.missingTarget = target
		en.logger.Warn("⚠️ Цель %s сущности %s не найдена", target, e.State.ID)
	}
}
