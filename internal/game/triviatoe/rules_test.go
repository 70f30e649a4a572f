package triviatoe

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
)

var testQuestions = []Question{
	{Text: "1+1", Choices: []string{"1", "2"}, Answer: 1},
	{Text: "2+2", Choices: []string{"4", "5"}, Answer: 0},
}

// started X=x，O=o，当前为第一题
func started(t *testing.T) Session {
	t.Helper()
	s, err := Start(New(), []string{"x", "o"}, testQuestions, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	if s.X != "x" {
		s.X, s.O = s.O, s.X
	}
	return s
}

// answered 双方作答后进入 REVEAL
func answered(t *testing.T, s Session, xChoice int, xAt int64, oChoice int, oAt int64) Session {
	t.Helper()
	s, err := AnswerQuestion(s, "x", xChoice, xAt)
	require.NoError(t, err)
	s, err = AnswerQuestion(s, "o", oChoice, oAt)
	require.NoError(t, err)
	return s
}

func place(t *testing.T, s Session, uid string, cell int) Session {
	t.Helper()
	o, err := Place(s, uid, cell)
	require.NoError(t, err)
	return o.Session
}

func TestBuiltinQuestions(t *testing.T) {
	t.Parallel()

	qs := BuiltinQuestions()
	assert.NotEmpty(t, qs)
	for _, q := range qs {
		assert.Less(t, q.Answer, len(q.Choices))
	}

	_, err := ParseQuestions([]byte("- text: q\n  choices: [a, b]\n  answer: 5\n"))
	assert.Error(t, err)
	_, err = ParseQuestions([]byte("[]"))
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	t.Parallel()

	_, err := Start(New(), []string{"x"}, testQuestions, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, apperrors.ErrNotEnoughPlayers)

	s := started(t)
	assert.Equal(t, StateQuestion, s.State)
	assert.Equal(t, 1, s.Round)
	assert.Len(t, s.Asked, 1)
	assert.Equal(t, testQuestions[s.Asked[0]].Text, s.Question.Text)

	_, err = Start(s, []string{"x", "o"}, testQuestions, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)
}

func TestAnswer_OncePerRound(t *testing.T) {
	t.Parallel()

	s := started(t)
	_, err := AnswerQuestion(s, "z", 0, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotInRoom)
	_, err = AnswerQuestion(s, "x", 9, 1)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	s, err = AnswerQuestion(s, "x", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, StateQuestion, s.State)
	_, err = AnswerQuestion(s, "x", 1, 2)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove)

	_, err = Place(s, "x", 0)
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)
}

func TestFirstMover(t *testing.T) {
	t.Parallel()

	correct := started(t).Question.Answer
	wrong := 1 - correct

	tests := []struct {
		name         string
		xChoice, oCh int
		xAt, oAt     int64
		want         string
	}{
		{"correct beats faster incorrect", wrong, correct, 1, 5, "o"},
		{"both correct, earlier wins", correct, correct, 9, 3, "o"},
		{"both wrong, earlier wins", wrong, wrong, 2, 3, "x"},
		{"tie goes to X", correct, correct, 4, 4, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := answered(t, started(t), tt.xChoice, tt.xAt, tt.oCh, tt.oAt)
			assert.Equal(t, StateReveal, s.State)
			assert.Equal(t, tt.want, s.FirstMover)
		})
	}
}

func TestPlace_MoveOrder(t *testing.T) {
	t.Parallel()

	s := answered(t, started(t), 0, 1, 0, 2) // 同对同错时 x 先答
	require.Equal(t, "x", s.FirstMover)

	s, err := BeginMoves(s)
	require.NoError(t, err)
	assert.Equal(t, StateMove1, s.State)

	_, err = Place(s, "o", 0)
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)
	_, err = Place(s, "x", 9)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	s = place(t, s, "x", 4)
	assert.Equal(t, StateMove2, s.State)
	_, err = Place(s, "x", 0)
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)
	_, err = Place(s, "o", 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove, "occupied")

	s = place(t, s, "o", 0)
	assert.Equal(t, StateWaitingForReady, s.State)
	assert.Equal(t, []string{"O", "", "", "", "X", "", "", "", ""}, s.Board)
}

func TestPlace_RevealCanBeCutShort(t *testing.T) {
	t.Parallel()

	s := answered(t, started(t), 0, 1, 0, 2)
	s = place(t, s, "x", 0)
	assert.Equal(t, StateMove2, s.State)
}

func TestReady_NextRound(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(2, 2))
	s := answered(t, started(t), 0, 1, 0, 2)
	s = place(t, place(t, s, "x", 4), "o", 0)

	_, err := MarkReady(started(t), "x", testQuestions, rng)
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)

	s, err = MarkReady(s, "x", testQuestions, rng)
	require.NoError(t, err)
	s, err = MarkReady(s, "x", testQuestions, rng)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingForReady, s.State, "ready is idempotent")

	first := s.Question.Text
	s, err = MarkReady(s, "o", testQuestions, rng)
	require.NoError(t, err)
	assert.Equal(t, StateQuestion, s.State)
	assert.Equal(t, 2, s.Round)
	assert.NotEqual(t, first, s.Question.Text, "questions are not repeated until the bank is exhausted")
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Ready)
	assert.Empty(t, s.FirstMover)
	assert.Equal(t, "X", s.Board[4], "board carries over")
}

func TestCheckWin(t *testing.T) {
	t.Parallel()

	// X 已有 0、1，MOVE_1 直接三连
	s := answered(t, started(t), 0, 1, 0, 2)
	s.Board = []string{"X", "X", "", "O", "O", "", "", "", ""}
	o, err := Place(s, "x", 2)
	require.NoError(t, err)
	assert.Equal(t, "x", o.Winner)
	assert.Equal(t, StateFinished, o.Session.State)

	// O 在 MOVE_2 三连
	s = answered(t, started(t), 0, 1, 0, 2)
	s.Board = []string{"X", "X", "", "O", "O", "", "", "", ""}
	s = place(t, s, "x", 8)
	o, err = Place(s, "o", 5)
	require.NoError(t, err)
	assert.Equal(t, "o", o.Winner)

	_, err = Surrender(o.Session, "x")
	assert.ErrorIs(t, err, apperrors.ErrGameOver)
}

func TestCheckWin_DrawOnFullBoard(t *testing.T) {
	t.Parallel()

	s := answered(t, started(t), 0, 1, 0, 2)
	s.Board = []string{"X", "O", "X", "X", "O", "O", "O", "X", ""}
	o, err := Place(s, "x", 8)
	require.NoError(t, err)
	assert.True(t, o.Draw)
	assert.Empty(t, o.Winner)
	assert.Equal(t, StateFinished, o.Session.State)
}

func TestSurrender(t *testing.T) {
	t.Parallel()

	_, err := Surrender(New(), "x")
	assert.ErrorIs(t, err, apperrors.ErrNotInRoom)

	s, err := Surrender(started(t), "o")
	require.NoError(t, err)
	assert.Equal(t, "x", s.Winner)
	assert.Equal(t, StateFinished, s.State)
}

func TestLineWinner(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "O", LineWinner([]string{"O", "", "", "", "O", "", "", "", "O"}))
	assert.Equal(t, "X", LineWinner([]string{"", "", "X", "", "X", "", "X", "", ""}))
	assert.Empty(t, LineWinner(make([]string, Cells)))
}
