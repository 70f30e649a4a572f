package room

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
)

func newTestDirectory(t *testing.T, opts ...Option) (*Directory, *docstore.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := docstore.NewRedisStore(client, docstore.WithMaxRetries(50))
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewDirectory(store, opts...), store
}

func sequentialCodes(codes ...string) func() string {
	var i atomic.Int32
	return func() string {
		n := int(i.Add(1)) - 1
		if n < len(codes) {
			return codes[n]
		}
		return fmt.Sprintf("%06d", n)
	}
}

func TestGenerateRoomCode(t *testing.T) {
	t.Parallel()

	for range 100 {
		code := generateRoomCode()
		assert.Len(t, code, roomCodeLength)
		for _, c := range code {
			assert.Contains(t, roomCodeChars, string(c))
		}
	}
}

func TestHost_CreatesRoomWithCapacity(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	code, err := dir.Host(ctx, HostRequest{GameID: GameBattleships, HostUID: "a", HostName: "Alice"})
	require.NoError(t, err)
	assert.Len(t, code, roomCodeLength)

	r, err := dir.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, GameBattleships, r.GameID)
	assert.Equal(t, 2, r.Capacity)
	assert.Equal(t, "a", r.HostUID)
	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, []Player{{UID: "a", Name: "Alice"}}, r.Players)
	assert.Equal(t, "Alice 的房间", r.Name)
	assert.Empty(t, r.GameState)

	code, err = dir.Host(ctx, HostRequest{GameID: GameOhPardon, HostUID: "a", HostName: "Alice"})
	require.NoError(t, err)
	r, err = dir.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Capacity)
}

func TestHost_UnknownGame(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	for _, id := range []string{"spaceinvaders", "spy", "memory", "wherewhen"} {
		_, err := dir.Host(context.Background(), HostRequest{GameID: id, HostUID: "a"})
		assert.ErrorIs(t, err, apperrors.ErrUnknownGame, id)
		assert.False(t, IsMultiplayer(id), id)
	}
}

func TestHost_RegeneratesOnCollision(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t, WithCodeGenerator(sequentialCodes("111111", "111111", "222222")))
	ctx := context.Background()

	first, err := dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "a"})
	require.NoError(t, err)
	second, err := dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "b"})
	require.NoError(t, err)

	assert.Equal(t, "111111", first)
	assert.Equal(t, "222222", second)
}

func TestJoin_Errors(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := dir.Join(ctx, "000000", Player{UID: "b"}, "")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)

	code, err := dir.Host(ctx, HostRequest{GameID: GameBattleships, HostUID: "a", HostName: "A", Password: "1234"})
	require.NoError(t, err)

	_, err = dir.Join(ctx, code, Player{UID: "b", Name: "B"}, "wrong")
	assert.ErrorIs(t, err, apperrors.ErrWrongPassword)

	gameID, err := dir.Join(ctx, code, Player{UID: "b", Name: "B"}, "1234")
	require.NoError(t, err)
	assert.Equal(t, GameBattleships, gameID)

	_, err = dir.Join(ctx, code, Player{UID: "c", Name: "C"}, "1234")
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)

	// 重复加入是空操作
	gameID, err = dir.Join(ctx, code, Player{UID: "b", Name: "B"}, "")
	require.NoError(t, err)
	assert.Equal(t, GameBattleships, gameID)

	r, err := dir.Get(ctx, code)
	require.NoError(t, err)
	assert.Len(t, r.Players, 2)
	assert.NotEqual(t, "1234", r.PasswordHash, "password must be hashed")
}

func TestJoin_ConcurrentJoinsRespectCapacity(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	code, err := dir.Host(ctx, HostRequest{GameID: GameOhPardon, HostUID: "host"})
	require.NoError(t, err)

	results := make(chan error, 6)
	for i := range 6 {
		go func() {
			_, err := dir.Join(ctx, code, Player{UID: fmt.Sprintf("p%d", i)}, "")
			results <- err
		}()
	}
	joined, full := 0, 0
	for range 6 {
		err := <-results
		switch {
		case err == nil:
			joined++
		case assert.ErrorIs(t, err, apperrors.ErrRoomFull):
			full++
		}
	}
	assert.Equal(t, 3, joined)
	assert.Equal(t, 3, full)

	r, err := dir.Get(ctx, code)
	require.NoError(t, err)
	assert.Len(t, r.Players, 4)
}

func TestJoin_GameStarted(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	code, err := dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "a"})
	require.NoError(t, err)
	_, err = dir.Join(ctx, code, Player{UID: "b"}, "")
	require.NoError(t, err)
	require.NoError(t, dir.Start(ctx, code, "a"))

	_, err = dir.Join(ctx, code, Player{UID: "c"}, "")
	assert.ErrorIs(t, err, apperrors.ErrGameStarted)
}

func TestListPublic_FiltersAndSorts(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	dir, _ := newTestDirectory(t, WithClock(clock))
	ctx := context.Background()

	first, err := dir.Host(ctx, HostRequest{GameID: GameOhPardon, HostUID: "a", HostName: "A"})
	require.NoError(t, err)
	_, err = dir.Host(ctx, HostRequest{GameID: GameOhPardon, HostUID: "b", Private: true})
	require.NoError(t, err)
	_, err = dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "c"})
	require.NoError(t, err)
	full, err := dir.Host(ctx, HostRequest{GameID: GameBattleships, HostUID: "d"})
	require.NoError(t, err)
	_, err = dir.Join(ctx, full, Player{UID: "e"}, "")
	require.NoError(t, err)
	second, err := dir.Host(ctx, HostRequest{GameID: GameOhPardon, HostUID: "f", Password: "x"})
	require.NoError(t, err)

	list, err := dir.ListPublic(ctx, GameOhPardon)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].Code)
	assert.Equal(t, second, list[1].Code)
	assert.False(t, list[0].Locked)
	assert.True(t, list[1].Locked)

	list, err = dir.ListPublic(ctx, GameBattleships)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPublicRooms_Streams(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := dir.PublicRooms(ctx, GameCodenames)
	require.NoError(t, err)
	assert.Empty(t, <-ch)

	code, err := dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "a"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case list := <-ch:
			return len(list) == 1 && list[0].Code == code
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	code, err := dir.Host(ctx, HostRequest{GameID: GameCodenames, HostUID: "a"})
	require.NoError(t, err)

	require.NoError(t, dir.Delete(ctx, code))
	_, err = dir.Get(ctx, code)
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	assert.ErrorIs(t, dir.Delete(ctx, code), apperrors.ErrRoomNotFound)
}

func TestCount(t *testing.T) {
	t.Parallel()

	d, _ := newTestDirectory(t)
	ctx := context.Background()
	d.Register(GameTriviatoe, Hooks{MinPlayers: 2})

	code, err := d.Host(ctx, HostRequest{GameID: GameTriviatoe, HostUID: "a", HostName: "A"})
	require.NoError(t, err)
	_, err = d.Host(ctx, HostRequest{GameID: GameBattleships, HostUID: "c", HostName: "C"})
	require.NoError(t, err)

	n, err := d.Count(ctx, StatusWaiting)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = d.Join(ctx, code, Player{UID: "b", Name: "B"}, "")
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx, code, "a"))

	n, err = d.Count(ctx, StatusPlaying)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
