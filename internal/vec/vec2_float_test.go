package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_DistanceAndAngle(t *testing.T) {
	a := Vec2Float{X: 0, Y: 0}
	b := Vec2Float{X: 3, Y: 4}

	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.Equal(t, 5.0, b.Sub(a).Length())
	assert.InDelta(t, math.Atan2(4, 3), a.AngleTo(b), 1e-12)
	assert.Equal(t, 0.0, a.AngleTo(Vec2Float{X: 10}))
}

func TestFromPolar(t *testing.T) {
	v := FromPolar(math.Pi/2, 2)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 2, v.Y, 1e-12)

	sum := Vec2Float{X: 1, Y: 1}.Add(FromPolar(0, 1).Mul(3))
	assert.Equal(t, Vec2Float{X: 4, Y: 1}, sum)
}
