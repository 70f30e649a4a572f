package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGain(t *testing.T) {
	t.Parallel()

	level, silent := gain(0)
	assert.True(t, silent)
	assert.Zero(t, level)

	level, silent = gain(1)
	assert.False(t, silent)
	assert.InDelta(t, 0.0, level, 1e-9)

	level, _ = gain(0.5)
	assert.InDelta(t, -1.0, level, 1e-9)

	level, _ = gain(4)
	assert.InDelta(t, 0.0, level, 1e-9, "volume above 1 is capped")
}

func TestNopPlayer(t *testing.T) {
	t.Parallel()

	var p Player = NewSoundManager(t.TempDir(), 0.5)
	assert.NotPanics(t, func() {
		p.Play(Hit)
		p.SetVolume(0)
		p.Close()
	})
}
