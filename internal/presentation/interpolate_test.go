package presentation

import (
	"math"
	"testing"

	"github.com/annel0/al-spectator/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestAdvance_HalfwayThenArrive(t *testing.T) {
	st := newEntityState("m1", KindMonster, Patch{
		X: f(0), Y: f(0), GoingX: f(100), GoingY: f(0), Speed: f(50),
	})
	assert.True(t, st.Moving)

	_, arrived := Advance(st, 1000)
	assert.False(t, arrived)
	assert.InDelta(t, 50, st.Position.X, 1e-9)
	assert.InDelta(t, 0, st.Position.Y, 1e-9)
	assert.True(t, st.Moving)

	_, arrived = Advance(st, 1000)
	assert.True(t, arrived)
	assert.Equal(t, vec.Vec2Float{X: 100, Y: 0}, st.Position)
	assert.False(t, st.Moving)
}

func TestAdvance_NeverOvershoots(t *testing.T) {
	st := newEntityState("m", KindMonster, Patch{
		X: f(10), Y: f(10), GoingX: f(13), GoingY: f(14), Speed: f(1000),
	})
	_, arrived := Advance(st, 16)
	assert.True(t, arrived)
	assert.Equal(t, st.Goal, st.Position, "позиция ставится ровно в цель")
}

func TestAdvance_ExactArrivalSnaps(t *testing.T) {
	// Пройденное расстояние равно оставшемуся: прибытие по >=
	st := newEntityState("m", KindMonster, Patch{
		X: f(0), Y: f(0), GoingX: f(0), GoingY: f(10), Speed: f(10),
	})
	_, arrived := Advance(st, 1000)
	assert.True(t, arrived)
	assert.Equal(t, vec.Vec2Float{X: 0, Y: 10}, st.Position)
}

func TestAdvance_DistanceMonotonic(t *testing.T) {
	st := newEntityState("m", KindMonster, Patch{
		X: f(-40), Y: f(25), GoingX: f(300), GoingY: f(-120), Speed: f(37),
	})
	prev := st.Position.DistanceTo(st.Goal)
	for i := 0; i < 1000 && st.Moving; i++ {
		Advance(st, 16.6)
		d := st.Position.DistanceTo(st.Goal)
		assert.LessOrEqual(t, d, prev+1e-9)
		prev = d
	}
	assert.False(t, st.Moving)
	assert.Equal(t, st.Goal, st.Position)
}

func TestAdvance_ZeroElapsedKeepsPosition(t *testing.T) {
	st := newEntityState("m", KindMonster, Patch{
		X: f(0), Y: f(0), GoingX: f(10), GoingY: f(0), Speed: f(10),
	})
	_, arrived := Advance(st, 0)
	assert.False(t, arrived)
	assert.Equal(t, vec.Vec2Float{}, st.Position)
}

func TestAdvance_InvalidSpeedNeverMovesAway(t *testing.T) {
	for _, speed := range []float64{-50, math.NaN(), math.Inf(1), math.Inf(-1)} {
		st := newEntityState("m1", KindMonster, Patch{
			X: f(0), Y: f(0), GoingX: f(100), GoingY: f(0), Speed: f(speed),
		})
		assert.Equal(t, 0.0, st.Speed, "скорость %v", speed)

		prev := st.Position.DistanceTo(st.Goal)
		for i := 0; i < 3; i++ {
			Advance(st, 1000)
			d := st.Position.DistanceTo(st.Goal)
			assert.LessOrEqual(t, d, prev, "скорость %v", speed)
			prev = d
		}
		assert.Equal(t, vec.Vec2Float{X: 0, Y: 0}, st.Position, "скорость %v", speed)
	}

	// Обновление с отрицательной скоростью тоже обнуляется
	st := newEntityState("m2", KindMonster, Patch{X: f(0), GoingX: f(10), Speed: f(5)})
	st.Apply(Patch{Speed: f(-5)})
	assert.Equal(t, 0.0, st.Speed)
}
