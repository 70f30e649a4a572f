package triviatoe

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

	assert.Equal(t, New(), roundTrip(t, New()))

	mid := answered(t, started(t), 0, 1000, 1, 2000)
	assert.Equal(t, mid, roundTrip(t, mid))

	done, err := Surrender(place(t, mid, mid.FirstMover, 4), "o")
	require.NoError(t, err)
	assert.Equal(t, done, roundTrip(t, done))
}

func TestDecode_TypeError(t *testing.T) {
	t.Parallel()

	_, err := Decode(docstore.Doc{"answers": map[string]any{"x": map[string]any{"at": "soon"}}})
	var de *apperrors.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "answers.x.at", de.Path)
}

func TestViewFor_HidesAnswerUntilReveal(t *testing.T) {
	t.Parallel()

	s, err := AnswerQuestion(started(t), "x", 0, 1)
	require.NoError(t, err)

	v := ViewFor(s, "o")
	assert.Nil(t, v.Question.Answer)
	assert.Nil(t, v.MyChoice)
	assert.True(t, v.Answered["x"])
	assert.Empty(t, v.Choices)
	assert.Equal(t, "O", v.Mark)

	s, err = AnswerQuestion(s, "o", 1, 2)
	require.NoError(t, err)
	v = ViewFor(s, "o")
	require.NotNil(t, v.Question.Answer)
	assert.Equal(t, s.Question.Answer, *v.Question.Answer)
	require.NotNil(t, v.MyChoice)
	assert.Equal(t, 1, *v.MyChoice)
	assert.Equal(t, map[string]int{"x": 0, "o": 1}, v.Choices)
	assert.Equal(t, s.FirstMover, v.ToMove)
}
