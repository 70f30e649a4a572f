package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/protocol"
)

// fakeClock is advanced by hand so token buckets refill deterministically
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock               { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }
func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func connCfg(perSec, perMin, banSec int) config.RateLimitConfig {
	return config.RateLimitConfig{MaxPerSecond: perSec, MaxPerMinute: perMin, BanDuration: banSec}
}

func newConnLimiter(cfg config.RateLimitConfig) (*ConnLimiter, *fakeClock) {
	clock := newFakeClock()
	l := NewConnLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func newMessageLimiter(cfg config.MessageLimitConfig) (*MessageLimiter, *fakeClock) {
	clock := newFakeClock()
	l := NewMessageLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func TestConnLimiter_BurstThenBan(t *testing.T) {
	t.Parallel()

	l, clock := newConnLimiter(connCfg(3, 60, 30))
	for i := range 3 {
		assert.True(t, l.Allow("198.51.100.1", ""), "attempt %d", i)
	}
	assert.False(t, l.Allow("198.51.100.1", ""))
	assert.True(t, l.IsBanned("198.51.100.1", ""))

	// bucket refills within the ban but the ban still holds
	clock.Advance(10 * time.Second)
	assert.False(t, l.Allow("198.51.100.1", ""))

	clock.Advance(21 * time.Second)
	assert.False(t, l.IsBanned("198.51.100.1", ""))
	assert.True(t, l.Allow("198.51.100.1", ""))
}

func TestConnLimiter_PlayerIsTrackedAcrossAddresses(t *testing.T) {
	t.Parallel()

	l, _ := newConnLimiter(connCfg(2, 60, 60))
	assert.True(t, l.Allow("198.51.100.1", "u1"))
	assert.True(t, l.Allow("198.51.100.2", "u1"))

	// a third address does not give the same player a fresh budget
	assert.False(t, l.Allow("198.51.100.3", "u1"))
	assert.True(t, l.IsBanned("203.0.113.9", "u1"))

	// the address itself is not banned, so other players behind it still connect
	assert.False(t, l.IsBanned("198.51.100.3", ""))
	assert.True(t, l.Allow("198.51.100.3", "u2"))
}

func TestConnLimiter_Sweep(t *testing.T) {
	t.Parallel()

	l, clock := newConnLimiter(connCfg(1, 60, 3600))
	require.True(t, l.Allow("198.51.100.1", "u1"))
	require.True(t, l.Allow("198.51.100.2", ""))
	require.False(t, l.Allow("198.51.100.2", ""))

	clock.Advance(limiterIdleTTL + time.Second)
	assert.Equal(t, 2, l.Sweep(), "idle entries go, the banned one stays")
	assert.True(t, l.IsBanned("198.51.100.2", ""))
	assert.Len(t, l.buckets, 1)
}

func TestMessageLimiter_ActionBudget(t *testing.T) {
	t.Parallel()

	l, clock := newMessageLimiter(config.MessageLimitConfig{MaxPerSecond: 20, ActionsPerSecond: 2, RoomOpsPerMinute: 20})
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgAction))
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgSubmitScore))
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgAction))

	// other traffic still flows while actions are throttled
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgPing))
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgGetLeaderboard))
	assert.Equal(t, VerdictAllow, l.Check("b", protocol.MsgAction), "budgets are per player")

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgAction))
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgAction))
}

func TestMessageLimiter_RoomOps(t *testing.T) {
	t.Parallel()

	l, clock := newMessageLimiter(config.MessageLimitConfig{MaxPerSecond: 20, ActionsPerSecond: 8, RoomOpsPerMinute: 20})
	for _, mt := range []protocol.MessageType{protocol.MsgHostRoom, protocol.MsgJoinRoom, protocol.MsgRematch} {
		assert.Equal(t, VerdictAllow, l.Check("a", mt), mt)
	}
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgStartGame))
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgLeaveRoom), "leaving is never throttled by the room budget")

	// 20 per minute refills one slot every 3s
	clock.Advance(3*time.Second + 100*time.Millisecond)
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgJoinRoom))
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgJoinRoom))
}

func TestMessageLimiter_TotalBudgetCoversUndecodable(t *testing.T) {
	t.Parallel()

	l, _ := newMessageLimiter(config.MessageLimitConfig{MaxPerSecond: 3, ActionsPerSecond: 8, RoomOpsPerMinute: 20})
	for range 3 {
		assert.Equal(t, VerdictAllow, l.Check("a", ""))
	}
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgPing))
}

func TestMessageLimiter_KickAfterRepeatedStrikes(t *testing.T) {
	t.Parallel()

	l, clock := newMessageLimiter(config.MessageLimitConfig{MaxPerSecond: 20, ActionsPerSecond: 1, RoomOpsPerMinute: 20})
	require.Equal(t, VerdictAllow, l.Check("a", protocol.MsgAction))
	for i := range maxStrikes {
		require.Equal(t, VerdictDeny, l.Check("a", protocol.MsgAction), "strike %d", i+1)
	}
	assert.Equal(t, maxStrikes, l.Strikes("a"))
	assert.Equal(t, VerdictKick, l.Check("a", protocol.MsgAction))

	// a reconnect under the same uid keeps the record; a quiet minute clears it
	clock.Advance(strikeWindow + time.Second)
	assert.Zero(t, l.Strikes("a"))
	assert.Equal(t, VerdictAllow, l.Check("a", protocol.MsgAction))
	assert.Equal(t, VerdictDeny, l.Check("a", protocol.MsgAction))
	assert.Equal(t, 1, l.Strikes("a"))
}

func TestMessageLimiter_Sweep(t *testing.T) {
	t.Parallel()

	l, clock := newMessageLimiter(config.MessageLimitConfig{MaxPerSecond: 20, ActionsPerSecond: 8, RoomOpsPerMinute: 20})
	l.Check("a", protocol.MsgPing)
	clock.Advance(limiterIdleTTL / 2)
	l.Check("b", protocol.MsgPing)
	clock.Advance(limiterIdleTTL/2 + time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Contains(t, l.players, "b")
}

func TestIPFilter_Lists(t *testing.T) {
	t.Parallel()

	f, err := NewIPFilter(nil, []string{"203.0.113.0/24", "2001:db8::1"}, nil)
	require.NoError(t, err)
	assert.False(t, f.IsAllowed("203.0.113.7"))
	assert.False(t, f.IsAllowed("::ffff:203.0.113.7"), "mapped v4 hits the v4 range")
	assert.False(t, f.IsAllowed("2001:db8::1"))
	assert.True(t, f.IsAllowed("198.51.100.1"))
	assert.False(t, f.IsAllowed("not-an-ip"))

	require.NoError(t, f.Block("198.51.100.1"))
	assert.False(t, f.IsAllowed("198.51.100.1"))
	require.NoError(t, f.Unblock("198.51.100.1"))
	assert.True(t, f.IsAllowed("198.51.100.1"))
	assert.Error(t, f.Block("10.0.0.0/33"))

	only, err := NewIPFilter([]string{"10.0.0.0/8"}, []string{"10.9.9.9"}, nil)
	require.NoError(t, err)
	assert.True(t, only.IsAllowed("10.1.2.3"))
	assert.False(t, only.IsAllowed("10.9.9.9"), "block wins over allow")
	assert.False(t, only.IsAllowed("192.168.0.1"))

	_, err = NewIPFilter(nil, nil, []string{"proxy.local"})
	assert.Error(t, err)
}

func TestIPFilter_ClientIP(t *testing.T) {
	t.Parallel()

	direct, err := NewIPFilter(nil, nil, nil)
	require.NoError(t, err)
	proxied, err := NewIPFilter(nil, nil, []string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter *IPFilter
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"direct ignores forwarded headers", direct, "198.51.100.1:5000", "6.6.6.6", "7.7.7.7", "198.51.100.1"},
		{"untrusted sender cannot spoof", proxied, "198.51.100.1:5000", "6.6.6.6", "", "198.51.100.1"},
		{"rightmost untrusted hop", proxied, "10.0.0.1:443", "6.6.6.6, 5.5.5.5, 10.0.0.2", "", "5.5.5.5"},
		{"real ip header behind proxy", proxied, "10.0.0.1:443", "", "7.7.7.7", "7.7.7.7"},
		{"proxy only chain falls back to proxy", proxied, "10.0.0.1:443", "10.0.0.3", "", "10.0.0.1"},
		{"ipv6 remote", direct, "[2001:db8::5]:443", "", "", "2001:db8::5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, tt.filter.ClientIP(r))
		})
	}
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	oc := NewOriginChecker([]string{"https://play.example.com", "party.test", "*.games.example.org"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://play.example.com", true},
		{"http://play.example.com", false},
		{"https://PLAY.example.com", true},
		{"http://party.test:8080", true},
		{"https://a.games.example.org", true},
		{"https://games.example.org", false},
		{"https://evilgames.example.org", false},
		{"https://evil.com", false},
		{"null", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, oc.Check(r), "origin %q", tt.origin)
	}

	all := NewOriginChecker([]string{"*"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	assert.True(t, all.Check(r))
}
