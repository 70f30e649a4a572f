package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/party-games/internal/auth"
	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/arcade"
	"github.com/palemoky/party-games/internal/game/battleships"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/server/handler"
	"github.com/palemoky/party-games/internal/storage"
	"github.com/palemoky/party-games/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith lets a test adjust the default config before the server is built
func newTestServerWith(t *testing.T, tweak func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	client, _ := testutil.NewRedis(t)
	store := docstore.NewRedisStore(client, docstore.WithMaxRetries(100))
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	cfg := config.Default()
	if tweak != nil {
		tweak(cfg)
	}
	srv, err := NewServer(cfg, Deps{
		Redis: client,
		Rooms: room.NewDirectory(store, room.WithBcryptCost(bcrypt.MinCost)),
		Games: []handler.GameService{
			battleships.NewService(store, gamesync.DefaultRetry, nil, rand.New(rand.NewPCG(1, 2))),
		},
		Leaderboard: storage.NewLeaderboard(client),
		Issuer:      issuer,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server, query url.Values) string {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func dial(t *testing.T, ts *httptest.Server, query url.Values) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == want {
			return msg
		}
	}
}

func write(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	data, err := codec.Encode(codec.MustNewMessage(msgType, payload))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func connected(t *testing.T, conn *websocket.Conn) protocol.ConnectedPayload {
	t.Helper()
	p, err := codec.ParsePayload[protocol.ConnectedPayload](readUntil(t, conn, protocol.MsgConnected))
	require.NoError(t, err)
	return *p
}

func TestWebSocket_ConnectAndPing(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	conn := dial(t, ts, url.Values{"name": {"小明"}})

	hello := connected(t, conn)
	assert.Equal(t, "小明", hello.PlayerName)
	assert.NotEmpty(t, hello.PlayerID)
	assert.NotEmpty(t, hello.Token)
	require.Eventually(t, func() bool { return srv.GetOnlineCount() == 1 }, time.Second, 10*time.Millisecond)

	write(t, conn, protocol.MsgPing, protocol.PingPayload{Timestamp: 7})
	pong, err := codec.ParsePayload[protocol.PongPayload](readUntil(t, conn, protocol.MsgPong))
	require.NoError(t, err)
	assert.Equal(t, int64(7), pong.ClientTimestamp)
}

func TestWebSocket_InvalidMessage(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)
	conn := dial(t, ts, nil)
	connected(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	p, err := codec.ParsePayload[protocol.ErrorPayload](readUntil(t, conn, protocol.MsgError))
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, p.Code)
}

func TestWebSocket_TokenKeepsUID(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	first := dial(t, ts, nil)
	hello := connected(t, first)

	// Reconnecting with the token restores the identity and replaces the old connection
	second := dial(t, ts, url.Values{"token": {hello.Token}})
	again := connected(t, second)
	assert.Equal(t, hello.PlayerID, again.PlayerID)
	assert.Equal(t, hello.PlayerName, again.PlayerName)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	require.Eventually(t, func() bool { return srv.GetOnlineCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, srv.GetClientByID(hello.PlayerID))
}

func TestWebSocket_HostAndState(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)
	conn := dial(t, ts, url.Values{"name": {"Host"}})
	connected(t, conn)

	write(t, conn, protocol.MsgHostRoom, protocol.HostRoomPayload{Game: room.GameBattleships, Name: "海战"})
	hosted, err := codec.ParsePayload[protocol.RoomCodePayload](readUntil(t, conn, protocol.MsgRoomHosted))
	require.NoError(t, err)

	state, err := codec.ParsePayload[protocol.StatePayload](readUntil(t, conn, protocol.MsgState))
	require.NoError(t, err)
	assert.Equal(t, hosted.RoomCode, state.Room.Code)
	assert.Equal(t, "海战", state.Room.Name)

	resp, err := http.Get(ts.URL + "/api/rooms?game=" + room.GameBattleships)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list protocol.RoomListPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, hosted.RoomCode, list.Rooms[0].Code)
}

func TestMaintenanceMode(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	conn := dial(t, ts, nil)
	connected(t, conn)

	srv.EnterMaintenanceMode()
	assert.True(t, srv.IsMaintenanceMode())
	p, err := codec.ParsePayload[protocol.ErrorPayload](readUntil(t, conn, protocol.MsgError))
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeServerMaintenance, p.Code)

	// Existing players cannot open rooms
	write(t, conn, protocol.MsgHostRoom, protocol.HostRoomPayload{Game: room.GameBattleships})
	p, err = codec.ParsePayload[protocol.ErrorPayload](readUntil(t, conn, protocol.MsgError))
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeServerMaintenance, p.Code)

	// New connections are refused
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, nil), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.ExitMaintenanceMode()
	assert.False(t, srv.IsMaintenanceMode())
}

func TestIPFilterRejects(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	require.NoError(t, srv.ipFilter.Block("127.0.0.0/8"))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, nil), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, srv.semaphore, "a rejected connection releases its slot")
}

func TestActionFloodIsThrottledThenKicked(t *testing.T) {
	t.Parallel()

	_, ts := newTestServerWith(t, func(cfg *config.Config) {
		cfg.Security.MessageLimit.ActionsPerSecond = 1
	})
	conn := dial(t, ts, nil)
	connected(t, conn)

	fire := protocol.ActionPayload{Game: room.GameBattleships, RoomCode: "000000", Kind: "fire"}
	write(t, conn, protocol.MsgAction, fire)
	write(t, conn, protocol.MsgAction, fire)

	var codes []int
	for len(codes) < 2 {
		p, err := codec.ParsePayload[protocol.ErrorPayload](readUntil(t, conn, protocol.MsgError))
		require.NoError(t, err)
		codes = append(codes, p.Code)
	}
	assert.Equal(t, protocol.ErrCodeRateLimit, codes[1], "second action within a second is dropped")
	assert.NotEqual(t, protocol.ErrCodeRateLimit, codes[0], "first action reaches the handler")

	// non-action traffic is unaffected
	write(t, conn, protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
	readUntil(t, conn, protocol.MsgPong)

	// keep flooding until the server hangs up
	flood, err := codec.Encode(codec.MustNewMessage(protocol.MsgAction, fire))
	require.NoError(t, err)
	for range maxStrikes + 1 {
		if conn.WriteMessage(websocket.TextMessage, flood) != nil {
			break
		}
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) {
				assert.False(t, netErr.Timeout(), "connection should be closed by the server")
			}
			break
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var h HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.False(t, h.Maintenance)
}

func TestLeaderboardEndpoint(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	ctx := context.Background()
	_, err := srv.leaderboard.SubmitScore(ctx, arcade.GameJorisJump, "p1", 50)
	require.NoError(t, err)
	_, err = srv.leaderboard.SubmitScore(ctx, arcade.GameJorisJump, "p2", 90)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/leaderboard/" + arcade.GameJorisJump + "?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var board protocol.LeaderboardPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "p2", board.Entries[0].PlayerID)
	assert.Equal(t, int64(90), board.Entries[0].Score)
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	ctx := context.Background()
	for _, code := range []string{"111111", "222222"} {
		require.NoError(t, srv.leaderboard.RecordResult(ctx, game.Result{
			GameID:   room.GameBattleships,
			RoomCode: code,
			Players:  []string{"p1", "p2"},
			Winners:  []string{"p1"},
			EndedAt:  time.Now(),
		}))
	}

	resp, err := http.Get(ts.URL + "/api/history/" + room.GameBattleships + "?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []game.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "222222", results[0].RoomCode)

	resp2, err := http.Get(ts.URL + "/api/history/" + arcade.GameJorisJump)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestListRoomsEndpoint_UnknownGame(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/rooms?game=chess")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var p protocol.ErrorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, protocol.ErrCodeUnknownGame, p.Code)
}
