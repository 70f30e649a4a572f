package codenames

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/testutil"
)

type fixture struct {
	store    *docstore.RedisStore
	dir      *room.Directory
	svc      *Service
	recorder *testutil.MockRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	recorder := &testutil.MockRecorder{}
	svc := NewService(store, gamesync.RetryPolicy{Attempts: 3, Base: time.Millisecond, Max: time.Millisecond},
		recorder, rand.New(rand.NewPCG(7, 8)), nil)
	dir := room.NewDirectory(store, room.WithBcryptCost(bcrypt.MinCost))
	dir.Register(room.GameCodenames, svc.Hooks())
	return &fixture{store: store, dir: dir, svc: svc, recorder: recorder}
}

// startedRoom 四人开局，并把牌面换成 fixedSession
func (f *fixture) startedRoom(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	code, err := f.dir.Host(ctx, room.HostRequest{GameID: room.GameCodenames, HostUID: "a", HostName: "A"})
	require.NoError(t, err)
	for _, uid := range []string{"b", "c"} {
		_, err = f.dir.Join(ctx, code, room.Player{UID: uid, Name: uid}, "")
		require.NoError(t, err)
	}
	assert.ErrorIs(t, f.dir.Start(ctx, code, "a"), apperrors.ErrNotEnoughPlayers)
	_, err = f.dir.Join(ctx, code, room.Player{UID: "d", Name: "d"}, "")
	require.NoError(t, err)
	require.NoError(t, f.dir.Start(ctx, code, "a"))

	require.NoError(t, f.store.Update(ctx, room.Key(code), docstore.Updates{
		room.GameStatePath(room.GameCodenames): map[string]any(Encode(fixedSession())),
	}))
	return code
}

func (f *fixture) session(t *testing.T, code string) (*room.Room, Session) {
	t.Helper()
	r, s, err := f.svc.sync.Read(context.Background(), code)
	require.NoError(t, err)
	return r, s
}

func TestService_StartDealsBoard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	code := room.StartWith(t, f.dir, room.GameCodenames, "a", "b", "c", "d")

	_, s := f.session(t, code)
	assert.Len(t, s.Cards, BoardSize)
	assert.Equal(t, RoleMaster, s.Members["a"].Role)
	assert.Equal(t, TeamBlue, s.Members["b"].Team)
	assert.Equal(t, StarterCards, s.Remaining[s.StartingTeam])
}

func TestService_ClueGuessFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code := f.startedRoom(t)

	_, err := f.svc.Guess(ctx, code, "c", 0)
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)

	require.NoError(t, f.svc.GiveClue(ctx, code, "a", "fruit", 1))
	_, s := f.session(t, code)
	assert.False(t, s.MasterPhase)
	assert.Equal(t, 2, s.GuessesLeft)
	assert.Equal(t, "fruit", s.Clue.Word)

	out, err := f.svc.Guess(ctx, code, "c", 3)
	require.NoError(t, err)
	assert.Equal(t, ColorRed, out.Color)

	out, err = f.svc.Guess(ctx, code, "c", 20)
	require.NoError(t, err)
	assert.True(t, out.TurnOver)

	_, s = f.session(t, code)
	assert.True(t, s.Cards[3].Revealed)
	assert.True(t, s.Cards[20].Revealed)
	assert.Equal(t, 8, s.Remaining[TeamRed])
	assert.Equal(t, TeamBlue, s.CurrentTeam)
	assert.True(t, s.MasterPhase)
	assert.Empty(t, s.Clue.Word)
	assert.Len(t, s.Clues, 1)

	require.NoError(t, f.svc.GiveClue(ctx, code, "b", "sea", 2))
	require.NoError(t, f.svc.EndTurn(ctx, code, "d"))
	_, s = f.session(t, code)
	assert.Equal(t, TeamRed, s.CurrentTeam)
}

func TestService_AssassinEndsGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code := f.startedRoom(t)
	f.recorder.On("RecordResult", mock.Anything, mock.MatchedBy(func(res game.Result) bool {
		return res.GameID == room.GameCodenames && len(res.Players) == 4 &&
			assert.ObjectsAreEqual([]string{"b", "d"}, res.Winners)
	})).Return(nil).Once()

	require.NoError(t, f.svc.GiveClue(ctx, code, "a", "fruit", 1))
	out, err := f.svc.Guess(ctx, code, "c", 24)
	require.NoError(t, err)
	assert.Equal(t, TeamBlue, out.Winner)

	r, s := f.session(t, code)
	assert.Equal(t, room.StatusEnded, r.Status)
	assert.Equal(t, TeamBlue, s.Winner)

	_, err = f.svc.Guess(ctx, code, "c", 0)
	assert.ErrorIs(t, err, apperrors.ErrGameOver)
	f.recorder.AssertExpectations(t)
}

func TestService_JoinTeamAndRematch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code := f.startedRoom(t)
	f.recorder.On("RecordResult", mock.Anything, mock.Anything).Return(nil)

	err := f.svc.JoinTeam(ctx, code, "outsider", TeamRed, RoleGuesser)
	assert.ErrorIs(t, err, apperrors.ErrNotInRoom)
	err = f.svc.JoinTeam(ctx, code, "d", TeamRed, RoleMaster)
	assert.ErrorIs(t, err, apperrors.ErrWrongRole)
	require.NoError(t, f.svc.JoinTeam(ctx, code, "d", TeamRed, RoleGuesser))

	require.NoError(t, f.svc.Surrender(ctx, code, "b"))
	_, s := f.session(t, code)
	assert.Equal(t, TeamRed, s.Winner)
	assert.Equal(t, Member{Team: TeamRed, Role: RoleGuesser}, s.Members["d"])

	for _, uid := range []string{"a", "b", "c", "d"} {
		_, err = f.dir.VoteRematch(ctx, code, uid)
		require.NoError(t, err)
	}
	r, s := f.session(t, code)
	assert.Equal(t, room.StatusPlaying, r.Status)
	assert.Empty(t, s.Winner)
	assert.Equal(t, TeamRed, s.Members["d"].Team, "teams survive a rematch")
}

func TestService_SeatsFrozenOnceCluesStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code := f.startedRoom(t)

	err := f.svc.JoinTeam(ctx, code, "a", TeamRed, RoleGuesser)
	assert.ErrorIs(t, err, apperrors.ErrWrongRole)

	require.NoError(t, f.svc.GiveClue(ctx, code, "a", "fruit", 1))
	err = f.svc.Act(ctx, code, "c", ActionJoinTeam, json.RawMessage(`{"team":"red","role":"master"}`))
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)
	err = f.svc.JoinTeam(ctx, code, "d", TeamRed, RoleGuesser)
	assert.ErrorIs(t, err, apperrors.ErrWrongPhase)

	_, s := f.session(t, code)
	assert.Equal(t, "a", s.Master(TeamRed))
	assert.Equal(t, Member{Team: TeamBlue, Role: RoleGuesser}, s.Members["d"])
}

func TestService_ActDispatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code := f.startedRoom(t)

	require.NoError(t, f.svc.Act(ctx, code, "a", ActionClue, json.RawMessage(`{"word":"fruit","number":2}`)))
	require.NoError(t, f.svc.Act(ctx, code, "c", ActionGuess, json.RawMessage(`{"index":0}`)))
	require.NoError(t, f.svc.Act(ctx, code, "c", ActionEndTurn, nil))

	err := f.svc.Act(ctx, code, "b", ActionClue, json.RawMessage(`nope`))
	assert.Equal(t, protocol.ErrCodeInvalidMsg, apperrors.Code(err))
	err = f.svc.Act(ctx, code, "b", "shout", nil)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, apperrors.Code(err))
}

func TestService_WatchRedacts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	code := f.startedRoom(t)

	views, err := f.svc.Watch(ctx, code, "c")
	require.NoError(t, err)
	v := <-views
	require.NoError(t, v.Err)
	pv := v.State.(PlayerView)
	assert.Equal(t, RoleGuesser, pv.Role)
	for _, c := range pv.Cards {
		assert.Empty(t, c.Color)
	}
}
