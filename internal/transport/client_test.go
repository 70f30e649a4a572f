package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

var upgrader = websocket.Upgrader{}

func echoHandler(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			break
		}
		_ = c.WriteMessage(mt, message)
	}
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestClient_ConnectAndSend(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer s.Close()

	client := NewClient(wsURL(s))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	assert.True(t, client.IsConnected())

	require.NoError(t, client.Send(protocol.MsgPing, protocol.PingPayload{Timestamp: 123456}))

	received, err := client.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPing, received.Type)
}

func TestClient_SendAfterClose(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer s.Close()

	client := NewClient(wsURL(s))
	require.NoError(t, client.Connect(context.Background()))
	client.Close()
	client.Close()

	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.Ping(), ErrClosed)
}

func TestClient_ActEncodesData(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer s.Close()

	client := NewClient(wsURL(s))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	require.NoError(t, client.Act("battleships", "ABCD", "fire", map[string]int{"x": 1, "y": 2}))
	msg, err := client.ReceiveWithTimeout(time.Second)
	require.NoError(t, err)

	p, err := codec.ParsePayload[protocol.ActionPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", p.RoomCode)
	assert.Equal(t, "fire", p.Kind)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(p.Data))
}

// identityServer greets every connection with a connected message and drops
// the first connection right after.
type identityServer struct {
	mu     sync.Mutex
	tokens []string
	conns  atomic.Int32
}

func (s *identityServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokens = append(s.tokens, r.URL.Query().Get("token"))
	s.mu.Unlock()

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	n := s.conns.Add(1)
	data, _ := codec.Encode(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:   "p1",
		PlayerName: "Alice",
		Token:      "tok",
	}))
	_ = c.WriteMessage(websocket.TextMessage, data)
	if n == 1 {
		return
	}
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *identityServer) seenTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func TestClient_ReconnectsWithToken(t *testing.T) {
	t.Parallel()

	srv := &identityServer{}
	s := httptest.NewServer(srv)
	defer s.Close()

	reconnected := make(chan struct{}, 1)
	client := NewClient(wsURL(s), WithReconnect(3, 10*time.Millisecond))
	client.OnReconnect = func() { reconnected <- struct{}{} }
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case <-reconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not reconnect")
	}

	tokens := srv.seenTokens()
	require.Len(t, tokens, 2)
	assert.Empty(t, tokens[0])
	assert.Equal(t, "tok", tokens[1])

	id, name, token := client.Identity()
	assert.Equal(t, "p1", id)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "tok", token)
	assert.False(t, client.IsReconnecting())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	srv := &identityServer{}
	s := httptest.NewServer(srv)

	closed := make(chan struct{})
	var attempts atomic.Int32
	client := NewClient(wsURL(s), WithReconnect(2, 10*time.Millisecond))
	client.OnReconnecting = func(attempt, _ int) { attempts.Store(int32(attempt)) }
	client.OnClose = func() { close(closed) }

	// Stop accepting connections once the first one is established
	var once sync.Once
	client.OnMessage = func(*protocol.Message) { once.Do(s.Close) }
	require.NoError(t, client.Connect(context.Background()))

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not give up")
	}
	assert.Equal(t, int32(2), attempts.Load())
	assert.True(t, client.IsClosed())
}

func TestClient_WithoutTokenClosesOnDrop(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = c.Close()
	}))
	defer s.Close()

	closed := make(chan struct{})
	client := NewClient(wsURL(s))
	client.OnClose = func() { close(closed) }
	require.NoError(t, client.Connect(context.Background()))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not close")
	}
	assert.False(t, client.IsReconnecting())
}
