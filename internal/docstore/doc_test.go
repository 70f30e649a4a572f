package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoc_GetSetDelete(t *testing.T) {
	t.Parallel()

	d := Doc{}
	require.NoError(t, d.Set("gameState.battleships.currentTurn", "p1"))
	require.NoError(t, d.Set("gameState.battleships.energy.p1", 3))

	v, ok := d.Get("gameState.battleships.currentTurn")
	assert.True(t, ok)
	assert.Equal(t, "p1", v)

	v, ok = d.Get("gameState.battleships.energy.p1")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	d.Delete("gameState.battleships.energy")
	_, ok = d.Get("gameState.battleships.energy.p1")
	assert.False(t, ok)

	_, ok = d.Get("gameState.missing.path")
	assert.False(t, ok)
}

func TestDoc_InvalidPath(t *testing.T) {
	t.Parallel()

	d := Doc{}
	assert.ErrorIs(t, d.Set("", 1), ErrInvalidPath)
	assert.ErrorIs(t, d.Set("a..b", 1), ErrInvalidPath)
	assert.ErrorIs(t, d.Set("_rev", 1), ErrInvalidPath)
}

func TestDoc_CloneIsDeep(t *testing.T) {
	t.Parallel()

	d := Doc{"players": []any{map[string]any{"uid": "p1"}}, "meta": map[string]any{"n": int64(1)}}
	c := d.Clone()
	c["meta"].(map[string]any)["n"] = int64(2)
	c["players"].([]any)[0].(map[string]any)["uid"] = "p2"

	assert.Equal(t, int64(1), d["meta"].(map[string]any)["n"])
	assert.Equal(t, "p1", d["players"].([]any)[0].(map[string]any)["uid"])
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	type move struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	assert.Equal(t, int64(5), Normalize(5))
	assert.Equal(t, []any{"a", "b"}, Normalize([]string{"a", "b"}))
	assert.Equal(t, []any{int64(1), int64(2)}, Normalize([]int{1, 2}))
	assert.Equal(t, map[string]any{"x": int64(3), "y": int64(4)}, Normalize(move{X: 3, Y: 4}))
}

func TestFlattenUnflatten_RoundTrip(t *testing.T) {
	t.Parallel()

	doc := Doc{
		"code":    "123456",
		"players": []any{map[string]any{"uid": "p1", "name": "Alice"}},
		"gameState": map[string]any{
			"battleships": map[string]any{
				"energy": map[string]any{"p1": int64(2)},
				"mines":  map[string]any{},
				"result": nil,
				"ratio":  1.5,
				"ready":  true,
			},
		},
	}

	flat := make(map[string]string)
	require.NoError(t, flatten("", doc, flat))
	assert.Equal(t, "2", flat["gameState.battleships.energy.p1"])
	assert.Equal(t, emptyMapMarker, flat["gameState.battleships.mines"])

	back, err := unflatten(flat)
	require.NoError(t, err)
	assert.Equal(t, Normalize(doc), Normalize(back))
}

func TestFlatten_RejectsDottedKeys(t *testing.T) {
	t.Parallel()

	err := flatten("", Doc{"a.b": 1}, map[string]string{})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPlanUpdates(t *testing.T) {
	t.Parallel()

	fields := map[string]string{
		"_rev":           "4",
		"state.moves":    `[]`,
		"state.energy":   emptyMapMarker,
		"state.mines.p1": `[1,2]`,
		"state.mines.p2": `[3]`,
	}
	p, err := planUpdates(fields, Updates{
		"state.mines":     map[string]any{"p1": []int{2}},
		"state.energy.p1": Increment(2),
		"state.moves":     DeleteField(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"state.mines.p1", "state.mines.p2", "state.energy", "state.moves"}, p.del)
	assert.Equal(t, map[string]any{"state.mines.p1": "[2]"}, p.set)
	assert.Equal(t, map[string]int64{"state.energy.p1": 2}, p.incr)
}

func TestPlanUpdates_IncrementMapFails(t *testing.T) {
	t.Parallel()

	_, err := planUpdates(map[string]string{"a.b": "1"}, Updates{"a": Increment(1)})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestApplyLocal(t *testing.T) {
	t.Parallel()

	d := Doc{"energy": map[string]any{"p1": int64(1)}, "moves": []any{}}
	require.NoError(t, applyLocal(d, Updates{
		"energy.p1": Increment(2),
		"energy.p2": Increment(1),
		"moves":     DeleteField(),
		"status":    "playing",
	}))

	assert.Equal(t, Doc{"energy": map[string]any{"p1": int64(3), "p2": int64(1)}, "status": "playing"}, d)
}

func TestNotification_RoundTrip(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Key:    "rooms/123456",
		Rev:    7,
		Exists: true,
		Data:   Doc{"status": "playing", "gameState": map[string]any{"n": int64(4), "list": []any{"x"}}},
	}
	data, err := encodeNotification(snap)
	require.NoError(t, err)

	back, err := decodeNotification(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Key, back.Key)
	assert.Equal(t, snap.Rev, back.Rev)
	assert.True(t, back.Exists)
	assert.Equal(t, Normalize(snap.Data), Normalize(back.Data))

	deleted, err := encodeNotification(&Snapshot{Key: "rooms/1"})
	require.NoError(t, err)
	back, err = decodeNotification(deleted)
	require.NoError(t, err)
	assert.False(t, back.Exists)
}

func TestSplitKey(t *testing.T) {
	t.Parallel()

	c, id := SplitKey(Key("rooms", "123456"))
	assert.Equal(t, "rooms", c)
	assert.Equal(t, "123456", id)

	c, id = SplitKey("loose")
	assert.Empty(t, c)
	assert.Equal(t, "loose", id)
}
