package presentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnimator_AdvanceWraps(t *testing.T) {
	a := NewAnimator(4, 10) // 100 мс на кадр
	a.GotoAndPlay(2)

	assert.False(t, a.Advance(50))
	assert.Equal(t, 2, a.Frame())

	assert.True(t, a.Advance(50))
	assert.Equal(t, 3, a.Frame())

	assert.True(t, a.Advance(200))
	assert.Equal(t, 1, a.Frame(), "кадры идут по кругу")
}

func TestAnimator_StoppedDoesNotAdvance(t *testing.T) {
	a := NewAnimator(4, 10)
	a.GotoAndStop(IdleFrame)
	assert.False(t, a.Advance(1000))
	assert.Equal(t, IdleFrame, a.Frame())
	assert.False(t, a.Playing())
}

func TestAnimator_SetTotalClampsFrame(t *testing.T) {
	a := NewAnimator(4, 10)
	a.GotoAndStop(3)
	a.SetTotal(2)
	assert.Equal(t, 1, a.Frame())
	assert.Equal(t, 0, IdleFrameFor(1))
	assert.Equal(t, IdleFrame, IdleFrameFor(4))
}
