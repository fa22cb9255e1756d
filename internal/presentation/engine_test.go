package presentation_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/presentation"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/scenegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGameData = `{
  "monsters": {"goo": {"aa": 0, "hp": 64, "size": 1, "skin": "goo", "speed": 6}},
  "sprites": {
    "monster1": {"file": "/images/sprites/monsters/M1.png?v=2", "rows": 1, "columns": 2, "matrix": [["goo", "bee"]]},
    "heads": {"file": "/images/sprites/heads.png", "rows": 1, "columns": 1, "matrix": [["makeup117"]], "type": "head"},
    "faces": {"file": "/images/sprites/faces.png", "rows": 1, "columns": 1, "matrix": [["face1"]], "type": "face"}
  },
  "images": {
    "/images/sprites/monsters/M1.png": {"width": 156, "height": 144},
    "/images/sprites/heads.png": {"width": 26, "height": 144},
    "/images/sprites/faces.png": {"width": 20, "height": 144}
  },
  "cosmetics": {"default_face_position": 2, "default_makeup_position": 0},
  "projectiles": {"arrow": {"speed": 300, "animation": "arrow"}}
}`

type harness struct {
	engine *presentation.Engine
	graph  *scenegraph.Graph
	logs   *bytes.Buffer
}

func newHarness(t *testing.T, maxNodes int) *harness {
	t.Helper()
	g, err := gamedata.Parse([]byte(testGameData))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	graph := scenegraph.New(maxNodes)
	engine := presentation.NewEngine(
		graph,
		presentation.NewAtlas(g),
		presentation.NewRegistry(),
		presentation.EngineConfig{AnimationFPS: 10},
		logging.NewWriterLogger("test", logs, logging.TRACE),
	)
	return &harness{engine: engine, graph: graph, logs: logs}
}

func (h *harness) send(t *testing.T, event string, data interface{}) error {
	t.Helper()
	msg, err := protocol.NewMessage(event, data)
	require.NoError(t, err)
	return h.engine.Handle(msg)
}

func (h *harness) entity(t *testing.T, id string) *presentation.Entity {
	t.Helper()
	e, ok := h.engine.Registry().Get(id)
	require.True(t, ok, "сущность %s должна быть в реестре", id)
	return e
}

func monster(id string, x, y float64) protocol.EntityData {
	return protocol.EntityData{ID: id, Skin: "goo", X: protocol.Float(x), Y: protocol.Float(y)}
}

func TestEngine_InterpolationScenario(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, map[string]interface{}{
		"id": "m1", "skin": "goo", "x": 0, "y": 0, "going_x": 100, "going_y": 0, "speed": 50,
	}))

	h.engine.Tick(1000)
	e := h.entity(t, "m1")
	assert.InDelta(t, 50, e.State.Position.X, 1e-9)
	assert.True(t, e.State.Moving)

	// Узел стоит серединой нижнего края на позиции сущности
	x, y := e.Node().(*scenegraph.Node).Position()
	assert.InDelta(t, 50-13, x, 1e-9)
	assert.InDelta(t, -36, y, 1e-9)

	h.engine.Tick(1000)
	assert.Equal(t, 100.0, e.State.Position.X)
	assert.False(t, e.State.Moving)
}

func TestEngine_UpdateKeepsInterpolation(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 0, 0)
	data.GoingX = protocol.Float(100)
	data.GoingY = protocol.Float(0)
	data.Speed = protocol.Float(50)
	require.NoError(t, h.send(t, protocol.EventMonster, data))
	h.engine.Tick(1000)

	// Частичное обновление без координат не сбрасывает движение
	require.NoError(t, h.send(t, protocol.EventMonster, protocol.EntityData{ID: "m1", HP: protocol.Float(10)}))
	h.engine.Tick(500)

	e := h.entity(t, "m1")
	assert.InDelta(t, 75, e.State.Position.X, 1e-9)
	assert.Equal(t, 10.0, e.State.Health)
}

func TestEngine_DeathFadeRemovesOnce(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("m1", 10, 10)))
	h.engine.Tick(16)

	require.NoError(t, h.send(t, protocol.EventMonster, protocol.EntityData{ID: "m1", HP: protocol.Float(0)}))
	h.engine.Tick(16)

	e := h.entity(t, "m1")
	assert.Equal(t, presentation.PhaseDying, e.Phase())
	node := e.Node().(*scenegraph.Node)
	assert.False(t, node.Interactive())
	assert.False(t, node.OverlaysVisible())
	assert.Equal(t, presentation.IdleFrame, e.Animator().Frame())
	assert.False(t, e.Animator().Playing())

	// Повторное «здоровье» не воскрешает умирающего
	require.NoError(t, h.send(t, protocol.EventMonster, protocol.EntityData{ID: "m1", HP: protocol.Float(50)}))

	prev := e.Alpha()
	ticks := 0
	for ; ticks < 100; ticks++ {
		if _, ok := h.engine.Registry().Get("m1"); !ok {
			break
		}
		assert.Equal(t, presentation.PhaseDying, e.Phase())
		h.engine.Tick(16)
		assert.LessOrEqual(t, e.Alpha(), prev)
		prev = e.Alpha()
	}

	assert.Equal(t, 11, ticks, "1 / (0.006 * 16) ≈ 10.4 кадра затухания")
	assert.Equal(t, presentation.PhaseRemoved, e.Phase())
	assert.True(t, node.Destroyed())
	assert.Equal(t, 0, h.graph.Len())
	assert.Equal(t, uint64(1), h.engine.Stats().Removed)

	h.engine.Tick(16)
	assert.Equal(t, uint64(1), h.engine.Stats().Removed, "удаление ровно один раз")
}

func TestEngine_RemoveDuringFadeIsImmediate(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 0, 0)
	data.HP = protocol.Float(0)
	require.NoError(t, h.send(t, protocol.EventMonster, data))
	h.engine.Tick(16)
	require.Equal(t, presentation.PhaseDying, h.entity(t, "m1").Phase())

	require.NoError(t, h.send(t, protocol.EventRemove, "m1"))
	_, ok := h.engine.Registry().Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 0, h.graph.Len())
}

func TestEngine_MapChangeClearsEverything(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("m1", 0, 0)))
	require.NoError(t, h.send(t, protocol.EventMonster, monster("m2", 5, 5)))
	require.NoError(t, h.send(t, protocol.EventProjectile, protocol.ProjectileData{PID: "p1", Projectile: "arrow", GoingX: 100}))
	require.Equal(t, 3, h.graph.Len())

	require.NoError(t, h.send(t, protocol.EventMap, protocol.MapData{Map: "halloween", X: 10, Y: 20}))

	assert.Equal(t, 0, h.engine.Registry().Len())
	assert.Equal(t, 0, h.graph.Len())
	name, x, y := h.graph.Map()
	assert.Equal(t, "halloween", name)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)

	snap := h.engine.Snapshot()
	assert.Equal(t, "halloween", snap.Map)
	assert.Empty(t, snap.Entities)
	assert.Empty(t, snap.Projectiles)
}

func TestEngine_RemoveAll(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("m1", 0, 0)))
	require.NoError(t, h.engine.Handle(&protocol.Message{Event: protocol.EventRemoveAll}))
	assert.Equal(t, 0, h.engine.Registry().Len())
}

func TestEngine_DirectionChangeRestartsAnimation(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 100, 0)
	data.GoingX = protocol.Float(0)
	data.GoingY = protocol.Float(0)
	data.Speed = protocol.Float(10)
	require.NoError(t, h.send(t, protocol.EventMonster, data))

	e := h.entity(t, "m1")
	require.Equal(t, presentation.North, e.State.Facing)

	h.engine.Tick(16)
	assert.Equal(t, presentation.West, e.State.Facing)
	assert.Equal(t, 0, e.Animator().Frame())
	assert.True(t, e.Animator().Playing())

	// Постоянный угол не меняет направление
	for i := 0; i < 20; i++ {
		h.engine.Tick(16)
		assert.Equal(t, presentation.West, e.State.Facing)
	}
}

func TestEngine_TargetWinsOverMovement(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("t1", 0, -100)))

	data := monster("m1", 0, 0)
	data.GoingX = protocol.Float(100)
	data.GoingY = protocol.Float(0)
	data.Speed = protocol.Float(10)
	data.Target = protocol.String("t1")
	require.NoError(t, h.send(t, protocol.EventMonster, data))

	h.engine.Tick(16)
	assert.Equal(t, presentation.South, h.entity(t, "m1").State.Facing)
}

func TestEngine_UnknownTargetWarnsOnce(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 0, 0)
	data.Target = protocol.String("ghost")
	require.NoError(t, h.send(t, protocol.EventMonster, data))

	for i := 0; i < 5; i++ {
		h.engine.Tick(16)
	}
	assert.Equal(t, 1, strings.Count(h.logs.String(), "Цель ghost"))
	assert.Equal(t, presentation.North, h.entity(t, "m1").State.Facing, "направление сохраняется")
}

func TestEngine_IdleFreezeAndAlwaysAnimating(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("idle", 0, 0)))
	aa := monster("bee", 10, 0)
	aa.AA = protocol.Bool(true)
	require.NoError(t, h.send(t, protocol.EventMonster, aa))

	h.engine.Tick(16)

	idle := h.entity(t, "idle")
	assert.Equal(t, presentation.IdleFrame, idle.Animator().Frame())
	assert.False(t, idle.Animator().Playing())

	bee := h.entity(t, "bee")
	assert.True(t, bee.Animator().Playing())
	frame := bee.Animator().Frame()
	h.engine.Tick(100)
	assert.Equal(t, (frame+1)%4, bee.Animator().Frame())
}

func TestEngine_StatusFiltersFollowState(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 0, 0)
	data.S = protocol.StatusInfo{"burned": json.RawMessage(`{"ms": 1000}`)}
	require.NoError(t, h.send(t, protocol.EventMonster, data))
	h.engine.Tick(16)

	node := h.entity(t, "m1").Node().(*scenegraph.Node)
	assert.Equal(t, []string{"burned"}, node.Filters())

	h.engine.Tick(16)
	assert.Equal(t, []string{"burned"}, node.Filters(), "фильтр не дублируется")

	// Пустой объект s снимает все эффекты
	require.NoError(t, h.send(t, protocol.EventMonster, map[string]interface{}{"id": "m1", "s": map[string]interface{}{}}))
	h.engine.Tick(16)
	assert.Empty(t, node.Filters())
}

func TestEngine_HealthBar(t *testing.T) {
	h := newHarness(t, 0)
	data := monster("m1", 0, 0)
	data.HP = protocol.Float(30)
	data.MaxHP = protocol.Float(120)
	require.NoError(t, h.send(t, protocol.EventMonster, data))
	h.engine.Tick(16)

	assert.Equal(t, 0.25, h.entity(t, "m1").Node().(*scenegraph.Node).HealthBar())
}

func TestEngine_SpawnFailureLeavesNoEntity(t *testing.T) {
	h := newHarness(t, 1)
	require.NoError(t, h.send(t, protocol.EventMonster, monster("m1", 0, 0)))

	err := h.send(t, protocol.EventMonster, monster("m2", 0, 0))
	assert.ErrorIs(t, err, presentation.ErrSpawnFailed)
	assert.ErrorIs(t, err, scenegraph.ErrNodeLimit)

	_, ok := h.engine.Registry().Get("m2")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), h.engine.Stats().SpawnFailures)
}

func TestEngine_MissingSkinUsesPlaceholder(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventMonster, protocol.EntityData{ID: "x", Skin: "dragon"}))

	e := h.entity(t, "x")
	w, hh := e.Node().Size()
	assert.Equal(t, 26.0, w)
	assert.Equal(t, 36.0, hh)
	assert.Contains(t, h.logs.String(), "dragon")
}

func TestEngine_CharacterCosmeticLayers(t *testing.T) {
	h := newHarness(t, 0)
	data := protocol.EntityData{
		ID: "hero", Skin: "goo", X: protocol.Float(0), Y: protocol.Float(0),
		CX: &protocol.CXData{Head: "makeup117", Face: "face1", Hat: "missing-hat"},
	}
	require.NoError(t, h.send(t, protocol.EventCharacter, data))

	e := h.entity(t, "hero")
	assert.Equal(t, []string{"head", "face"}, e.LayerNames(), "z-порядок, отсутствующий слой пропущен")

	children := e.Node().(*scenegraph.Node).Children()
	require.Len(t, children, 2)

	x, y := children[0].Position()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, -1.0, y)

	x, y = children[1].Position()
	assert.Equal(t, 6.0, x, "узкий слой выравнивается по правому краю")
	assert.Equal(t, -3.0, y)

	// Слои делят направление с базой
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{
		ID: "hero", GoingX: protocol.Float(-50), GoingY: protocol.Float(0), Speed: protocol.Float(10),
	}))
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{ID: "hero", Moving: protocol.Bool(true)}))
	h.engine.Tick(16)
	assert.Equal(t, presentation.West, e.State.Facing)
	assert.Equal(t, 0, children[0].Frame())

	h.engine.Remove("hero")
	assert.Equal(t, 0, h.graph.Len(), "слои удаляются вместе с базой")
}

func TestEngine_CosmeticsFollowUpdates(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{
		ID: "hero", Skin: "goo", X: protocol.Float(0), Y: protocol.Float(0),
		CX: &protocol.CXData{Head: "makeup117", Face: "face1"},
	}))
	e := h.entity(t, "hero")
	base := e.Node().(*scenegraph.Node)
	require.Len(t, base.Children(), 2)
	head := base.Children()[0]

	// Лицо снято
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{
		ID: "hero", CX: &protocol.CXData{Head: "makeup117"},
	}))
	h.engine.Tick(16)
	h.engine.Tick(16)
	assert.Equal(t, []string{"head"}, e.LayerNames())
	require.Len(t, base.Children(), 1)
	assert.Same(t, head, base.Children()[0], "неизменный слой не пересоздаётся")
	assert.Equal(t, 2, h.graph.Len())

	// Лицо вернулось
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{
		ID: "hero", CX: &protocol.CXData{Head: "makeup117", Face: "face1"},
	}))
	h.engine.Tick(16)
	assert.Equal(t, []string{"head", "face"}, e.LayerNames())
	assert.Len(t, base.Children(), 2)
	assert.Equal(t, 3, h.graph.Len())

	// Новый скин меняет текстуры базы
	before := base.Frames()[0]
	require.NoError(t, h.send(t, protocol.EventCharacter, protocol.EntityData{ID: "hero", Skin: "bee"}))
	h.engine.Tick(16)
	after := base.Frames()[0]
	assert.NotEqual(t, before.X, after.X)
	assert.Equal(t, 3, h.graph.Len())
}

func TestEngine_ProjectileFliesAndDisappears(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.send(t, protocol.EventProjectile, protocol.ProjectileData{
		PID: "p1", Projectile: "arrow", X: 0, Y: 0, GoingX: 100, GoingY: 0,
	}))

	h.engine.Tick(200)
	p, ok := h.engine.Projectile("p1")
	require.True(t, ok)
	assert.InDelta(t, 60, p.Position.X, 1e-9, "скорость из игровых данных")
	assert.InDelta(t, math.Pi/2, p.Rotation(), 1e-9)

	h.engine.Tick(200)
	_, ok = h.engine.Projectile("p1")
	assert.False(t, ok)
	assert.Equal(t, 0, h.graph.Len())
}

func TestEngine_MovementTraceOnlyWhenEnabled(t *testing.T) {
	g, err := gamedata.Parse([]byte(testGameData))
	require.NoError(t, err)

	for _, level := range []logging.LogLevel{logging.INFO, logging.TRACE} {
		var logs bytes.Buffer
		engine := presentation.NewEngine(scenegraph.New(0), presentation.NewAtlas(g), nil,
			presentation.EngineConfig{}, logging.NewWriterLogger("test", &logs, level))
		m := monster("m1", 0, 0)
		m.GoingX = protocol.Float(100)
		m.Speed = protocol.Float(10)
		_, err := engine.Upsert(presentation.KindMonster, m)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			engine.Tick(16)
		}
		if level == logging.TRACE {
			assert.Contains(t, logs.String(), "Сущность m1:")
		} else {
			assert.NotContains(t, logs.String(), "Сущность m1:")
		}
	}
}

func TestEngine_ProjectileNegativeSpeedRejected(t *testing.T) {
	h := newHarness(t, 0)
	err := h.send(t, protocol.EventProjectile, protocol.ProjectileData{
		PID: "p1", Projectile: "arrow", GoingX: 100, Speed: -10,
	})
	assert.ErrorIs(t, err, protocol.ErrMalformedMessage)
	_, ok := h.engine.Projectile("p1")
	assert.False(t, ok)
	assert.Equal(t, 0, h.graph.Len())
}

func TestEngine_MalformedEventRejected(t *testing.T) {
	h := newHarness(t, 0)
	err := h.engine.Handle(&protocol.Message{Event: protocol.EventMonster, Data: json.RawMessage(`"oops"`)})
	assert.ErrorIs(t, err, protocol.ErrMalformedMessage)

	err = h.send(t, protocol.EventMonster, protocol.EntityData{})
	assert.ErrorIs(t, err, protocol.ErrMalformedMessage)
	assert.Equal(t, 0, h.engine.Registry().Len())
}
