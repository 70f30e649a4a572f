package ohpardon

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
)

var players = []string{"red", "blue", "green"}

// rolled 构造一个已掷出 roll 点的局面
func rolled(s Session, roll int) Session {
	out := s.Clone()
	out.Roll = roll
	return out
}

func TestSeatsAndEntries(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	assert.Equal(t, "red", s.Color("red"))
	assert.Equal(t, "blue", s.Color("blue"))
	assert.Equal(t, 0, s.Entry("red"))
	assert.Equal(t, 10, s.Entry("blue"))
	assert.Equal(t, 20, s.Entry("green"))
	assert.Equal(t, 5, s.Absolute("blue", 35))
	assert.Equal(t, -1, s.Absolute("blue", Home))
	assert.Equal(t, -1, s.Absolute("blue", GoalStart))
}

func TestRoll_OncePerTurnAndPassesWhenStuck(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	_, err := Roll(s, "blue", rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)

	rng := rand.New(rand.NewPCG(1, 1))
	for range 50 {
		o, err := Roll(s, "red", rng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, o.Value, 1)
		assert.LessOrEqual(t, o.Value, 6)
		if o.Value == EntryRoll {
			assert.False(t, o.Passed)
			assert.Equal(t, "red", o.Session.CurrentTurn)
			_, err = Roll(o.Session, "red", rng)
			assert.ErrorIs(t, err, apperrors.ErrAlreadyRolled)
		} else {
			assert.True(t, o.Passed, "all pawns at home need a six")
			assert.Equal(t, "blue", o.Session.CurrentTurn)
			assert.Zero(t, o.Session.Roll)
		}
	}
}

func TestMove_RequiresRoll(t *testing.T) {
	t.Parallel()

	_, err := Move(New(players, "red"), "red", 0)
	assert.ErrorIs(t, err, apperrors.ErrNotRolled)
}

func TestMove_LeaveHomeOnSix(t *testing.T) {
	t.Parallel()

	o, err := Move(rolled(New(players, "red"), 6), "red", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{Home, Home, 0, Home}, o.Session.Pawns["red"])
	assert.Equal(t, "blue", o.Session.CurrentTurn, "strict round robin, no bonus turn")
	assert.Zero(t, o.Session.Roll)
	assert.Equal(t, LogEntry{PlayerID: "red", Pawn: 2, From: Home, To: 0, Roll: 6}, o.Entry)
	assert.Len(t, o.Session.Log, 1)

	_, err = Move(rolled(New(players, "red"), 5), "red", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove)
}

func TestMove_IllegalTargets(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Pawns["red"] = []int{40, 3, 42, Home}

	_, err := Move(rolled(s, 4), "red", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove, "overshooting the goal lane")

	_, err = Move(rolled(s, 2), "red", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove, "landing on own pawn")

	_, err = Move(rolled(s, 1), "red", 7)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMove, "no such pawn")

	o, err := Move(rolled(s, 3), "red", 0)
	require.NoError(t, err)
	assert.Equal(t, 43, o.Session.Pawns["red"][0])
}

func TestMove_CapturesOpponent(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Pawns["red"] = []int{12, Home, Home, Home}
	s.Pawns["blue"] = []int{5, Home, Home, Home} // 绝对位置 15

	o, err := Move(rolled(s, 3), "red", 0)
	require.NoError(t, err)
	assert.Equal(t, 15, o.Session.Pawns["red"][0])
	assert.Equal(t, Home, o.Session.Pawns["blue"][0])
	assert.Equal(t, []Capture{{PlayerID: "blue", Pawn: 0}}, o.Entry.Captured)
}

func TestMove_PawnOnOwnEntryIsProtected(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Pawns["red"] = []int{8, Home, Home, Home}
	s.Pawns["blue"] = []int{0, Home, Home, Home} // 停在自己的入口 10

	o, err := Move(rolled(s, 2), "red", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, o.Session.Absolute("red", o.Session.Pawns["red"][0]))
	assert.Equal(t, 0, o.Session.Pawns["blue"][0], "protected pawn shares the cell")
	assert.Empty(t, o.Entry.Captured)
}

func TestMove_GoalLaneIsPrivate(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Pawns["red"] = []int{38, Home, Home, Home}
	s.Pawns["blue"] = []int{30, Home, Home, Home} // 绝对位置 0，red 的 40 在终点通道

	o, err := Move(rolled(s, 2), "red", 0)
	require.NoError(t, err)
	assert.Equal(t, 40, o.Session.Pawns["red"][0])
	assert.Equal(t, 30, o.Session.Pawns["blue"][0])
}

func TestMove_WinWhenAllPawnsInGoal(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Pawns["red"] = []int{40, 41, 42, 37}

	o, err := Move(rolled(s, 6), "red", 3)
	require.NoError(t, err)
	assert.Equal(t, "red", o.Winner)
	assert.Equal(t, "red", o.Session.Winner)

	_, err = Roll(o.Session, "red", rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, apperrors.ErrGameOver)
}

func TestRoundRobinWrapsAround(t *testing.T) {
	t.Parallel()

	s := New(players, "green")
	s.Pawns["green"] = []int{1, Home, Home, Home}
	o, err := Move(rolled(s, 1), "green", 0)
	require.NoError(t, err)
	assert.Equal(t, "red", o.Session.CurrentTurn)
}

func TestSurrender(t *testing.T) {
	t.Parallel()

	s := rolled(New(players, "red"), 6)
	s, err := Surrender(s, "red")
	require.NoError(t, err)
	assert.Equal(t, "blue", s.CurrentTurn)
	assert.Zero(t, s.Roll)
	assert.Empty(t, s.Winner)

	s, err = Surrender(s, "green")
	require.NoError(t, err)
	assert.Equal(t, "blue", s.Winner)

	_, err = Surrender(s, "blue")
	assert.ErrorIs(t, err, apperrors.ErrGameOver)
}

func TestSurrender_SkipsForfeitedInRotation(t *testing.T) {
	t.Parallel()

	s, err := Surrender(New(players, "red"), "blue")
	require.NoError(t, err)
	s.Pawns["red"] = []int{1, Home, Home, Home}

	o, err := Move(rolled(s, 1), "red", 0)
	require.NoError(t, err)
	assert.Equal(t, "green", o.Session.CurrentTurn)
}

func TestReset_RotatesStarter(t *testing.T) {
	t.Parallel()

	s := New(players, "red")
	s.Winner = "red"
	assert.Equal(t, "blue", Reset(s, players).Starter)
	assert.Equal(t, "red", Reset(New(players, "green"), players).Starter)
}
