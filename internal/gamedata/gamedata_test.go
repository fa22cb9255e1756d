package gamedata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "monsters": {"goo": {"aa": 0, "hp": 64, "size": 1, "skin": "goo", "speed": 6}},
  "sprites": {
    "monster1": {"file": "/images/sprites/monsters/M1.png?v=2", "rows": 1, "columns": 2, "matrix": [["goo", "bee"]]},
    "heads": {"file": "/images/sprites/heads.png", "rows": 1, "columns": 1, "matrix": [["makeup117"]], "type": "head"}
  },
  "images": {"/images/sprites/monsters/M1.png": {"width": 156, "height": 144}},
  "projectiles": {"arrow": {"speed": 300, "animation": "arrow"}}
}`

func TestParseAndLookup(t *testing.T) {
	g, err := Parse([]byte(sample))
	require.NoError(t, err)

	m, err := g.Monster("goo")
	require.NoError(t, err)
	assert.Equal(t, 64.0, m.HP)

	_, err = g.Monster("dragon")
	assert.True(t, errors.Is(err, ErrNotFound))

	loc, err := g.FindSprite("bee")
	require.NoError(t, err)
	assert.Equal(t, "monster1", loc.Sheet)
	assert.Equal(t, 0, loc.Row)
	assert.Equal(t, 1, loc.Col)

	img, err := g.Image(loc.Sprites.File)
	require.NoError(t, err, "query-суффикс версии игнорируется")
	assert.Equal(t, 156.0, img.Width)

	p, err := g.Projectile("arrow")
	require.NoError(t, err)
	assert.Equal(t, 300.0, p.Speed)
}

func TestFindSprite_Missing(t *testing.T) {
	g := Empty()
	_, err := g.FindSprite("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCleanFile(t *testing.T) {
	assert.Equal(t, "/a.png", CleanFile("/a.png?v=1"))
	assert.Equal(t, "/a.png", CleanFile("/a.png#x"))
	assert.Equal(t, "/a.png", CleanFile("/a.png"))
}
