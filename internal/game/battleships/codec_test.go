package battleships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
)

func roundTrip(t *testing.T, s Session) Session {
	t.Helper()
	data := docstore.Normalize(map[string]any(Encode(s))).(map[string]any)
	got, err := Decode(data)
	require.NoError(t, err)
	return got
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	empty := New("a")
	assert.Equal(t, empty, roundTrip(t, empty))

	mid := placedSession(t)
	mid = mustFire(t, mid, "a", 9, 9).Session
	mid.Energy["a"] = 3
	assert.Equal(t, mid, roundTrip(t, mid))

	done := mid.Clone()
	done.Result = "b"
	assert.Equal(t, done, roundTrip(t, done))
}

func TestDecode_MissingFieldsUseDefaults(t *testing.T) {
	t.Parallel()

	s, err := Decode(docstore.Doc{"starter": "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", s.CurrentTurn)
	assert.Empty(t, s.Moves)
	assert.NotNil(t, s.Energy)
}

func TestDecode_TypeError(t *testing.T) {
	t.Parallel()

	_, err := Decode(docstore.Doc{"moves": []any{map[string]any{"cell": "x"}}})
	var de *apperrors.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "moves[0].cell", de.Path)
}
