package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/party-games/internal/apperrors"
)

func TestReader_DefaultsAndTypes(t *testing.T) {
	t.Parallel()

	doc := Doc{"gameState": map[string]any{"g": map[string]any{
		"turn":   "p1",
		"n":      int64(3),
		"f":      float64(2),
		"ok":     true,
		"cells":  []any{int64(1), int64(2)},
		"names":  []any{"a", "b"},
		"nested": map[string]any{"k": "v"},
		"moves":  []any{map[string]any{"x": int64(1)}},
	}}}

	r := NewReader(doc, "gameState.g")
	assert.Equal(t, "p1", r.String("turn", ""))
	assert.Equal(t, "def", r.String("missing", "def"))
	assert.Equal(t, 3, r.Int("n", 0))
	assert.Equal(t, 2, r.Int("f", 0))
	assert.True(t, r.Bool("ok", false))
	assert.Equal(t, []int{1, 2}, r.Ints("cells"))
	assert.Equal(t, []string{"a", "b"}, r.Strings("names"))
	assert.Equal(t, "v", r.Map("nested").String("k", ""))
	assert.Len(t, r.MapList("moves"), 1)
	assert.Equal(t, 1, r.MapList("moves")[0].Int("x", 0))
	assert.True(t, r.Has("turn"))
	assert.False(t, r.Has("missing"))
	assert.NoError(t, r.Err())
}

func TestReader_MissingBaseIsEmpty(t *testing.T) {
	t.Parallel()

	r := NewReader(Doc{}, "gameState.codenames")
	assert.Equal(t, 0, r.Int("x", 0))
	assert.Empty(t, r.Keys())
	assert.NoError(t, r.Err())
}

func TestReader_TypeMismatchRecordsFirstError(t *testing.T) {
	t.Parallel()

	r := NewReader(Doc{"g": map[string]any{"turn": int64(1), "moves": "nope"}}, "g")
	_ = r.String("turn", "")
	_ = r.List("moves")

	var de *apperrors.DecodeError
	assert.ErrorAs(t, r.Err(), &de)
	assert.Equal(t, "g.turn", de.Path)
	assert.ErrorIs(t, r.Err(), apperrors.ErrDesync)
}

func TestReader_BaseNotMap(t *testing.T) {
	t.Parallel()

	r := NewReader(Doc{"g": "scalar"}, "g")
	assert.Error(t, r.Err())
}

func TestReader_IntLists(t *testing.T) {
	t.Parallel()

	r := NewReader(Doc{"ships": []any{[]any{int64(1), int64(2)}, []any{int64(7)}}}, "")
	assert.Equal(t, [][]int{{1, 2}, {7}}, r.IntLists("ships"))
	assert.NoError(t, r.Err())

	bad := NewReader(Doc{"ships": []any{[]any{"x"}}}, "")
	assert.Nil(t, bad.IntLists("ships"))
	var de *apperrors.DecodeError
	assert.ErrorAs(t, bad.Err(), &de)
	assert.Equal(t, "ships[0][0]", de.Path)
}
