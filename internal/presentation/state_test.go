package presentation

import (
	"testing"

	"github.com/annel0/al-spectator/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestNewEntityState_Defaults(t *testing.T) {
	st := newEntityState("m", KindMonster, Patch{X: f(5), Y: f(7)})

	assert.Equal(t, vec.Vec2Float{X: 5, Y: 7}, st.Goal, "без цели сущность стоит")
	assert.False(t, st.Moving)
	assert.Equal(t, North, st.Facing)
	assert.Equal(t, 1.0, st.Size)
	assert.Equal(t, 1.0, st.Health, "без здоровья сущность жива")
	assert.Equal(t, 1.0, st.MaxHealth)
	assert.NotNil(t, st.Status)
}

func TestNewEntityState_MaxHealthFromHealth(t *testing.T) {
	st := newEntityState("m", KindMonster, Patch{Health: f(40)})
	assert.Equal(t, 40.0, st.MaxHealth)

	st = newEntityState("m", KindMonster, Patch{MaxHealth: f(80)})
	assert.Equal(t, 80.0, st.Health)
}

func TestApply_OnlySuppliedFields(t *testing.T) {
	st := newEntityState("c", KindCharacter, Patch{
		X: f(1), Y: f(2), GoingX: f(10), GoingY: f(2), Speed: f(30), Health: f(90), MaxHealth: f(100),
		Status: NewStatusFlags("poisoned"),
	})

	st.Apply(Patch{Health: f(-5), TargetID: s("m1")})

	assert.Equal(t, 0.0, st.Health, "здоровье не уходит ниже нуля")
	assert.Equal(t, "m1", st.TargetID)
	assert.Equal(t, 30.0, st.Speed)
	assert.Equal(t, vec.Vec2Float{X: 10, Y: 2}, st.Goal)
	assert.True(t, st.Status.Has("poisoned"), "статусы без поля s не меняются")

	st.Apply(Patch{Status: NewStatusFlags()})
	assert.Empty(t, st.Status)

	st.Apply(Patch{Size: f(0)})
	assert.Equal(t, 1.0, st.Size)
}

func TestApply_CosmeticsOnlyForCharacters(t *testing.T) {
	m := newEntityState("m", KindMonster, Patch{Cosmetics: &Cosmetics{Hat: "hat1"}})
	assert.Nil(t, m.Cosmetics)

	c := newEntityState("c", KindCharacter, Patch{Cosmetics: &Cosmetics{Hat: "hat1"}})
	if assert.NotNil(t, c.Cosmetics) {
		assert.Equal(t, "hat1", c.Cosmetics.Hat)
	}
}
