package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/scheduler"
)

const (
	limiterIdleTTL = 10 * time.Minute // 空闲记录的保留时间
	strikeWindow   = time.Minute      // 超过这么久没有超限，违规次数清零
	maxStrikes     = 5                // 窗口内超限次数超过该值时断开连接
	roomOpsBurst   = 3
)

// --- 新连接限流 ---

// ConnLimiter 新连接限流：每个 IP 和每个已知玩家 uid 各一个令牌桶，
// 桶空后该键被封禁 banDuration。换 IP 重连或多个玩家共用出口 IP 都会被分别计数。
type ConnLimiter struct {
	mu      sync.Mutex
	buckets map[string]*connBucket

	limit rate.Limit
	burst int
	ban   time.Duration
	now   func() time.Time
}

type connBucket struct {
	lim         *rate.Limiter
	lastSeen    time.Time
	bannedUntil time.Time
}

// NewConnLimiter 每个键允许瞬时 MaxPerSecond 次，长期平均 MaxPerMinute 次/分钟
func NewConnLimiter(cfg config.RateLimitConfig) *ConnLimiter {
	return &ConnLimiter{
		buckets: make(map[string]*connBucket),
		limit:   rate.Limit(float64(cfg.MaxPerMinute) / 60),
		burst:   cfg.MaxPerSecond,
		ban:     cfg.BanDurationTime(),
		now:     time.Now,
	}
}

func connKeys(ip, uid string) []string {
	keys := []string{"ip:" + ip}
	if uid != "" {
		keys = append(keys, "uid:"+uid)
	}
	return keys
}

func (l *ConnLimiter) bucket(key string, now time.Time) *connBucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &connBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow 记录一次连接尝试；uid 为空（新玩家）时只按 IP 计数
func (l *ConnLimiter) Allow(ip, uid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	keys := connKeys(ip, uid)
	buckets := make([]*connBucket, len(keys))
	for i, key := range keys {
		buckets[i] = l.bucket(key, now)
		if now.Before(buckets[i].bannedUntil) {
			return false
		}
	}
	for i, b := range buckets {
		if !b.lim.AllowN(now, 1) {
			b.bannedUntil = now.Add(l.ban)
			logger.WithField("key", keys[i]).Warnf("⚠️ 连接过于频繁，封禁 %v", l.ban)
			return false
		}
	}
	return true
}

// IsBanned ip 或 uid 任一处于封禁期
func (l *ConnLimiter) IsBanned(ip, uid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, key := range connKeys(ip, uid) {
		if b, ok := l.buckets[key]; ok && now.Before(b.bannedUntil) {
			return true
		}
	}
	return false
}

// Sweep 删除空闲且未封禁的记录，返回删除数量
func (l *ConnLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL && !now.Before(b.bannedUntil) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// --- 玩家消息限流 ---

// msgClass 消息限流类别
type msgClass int

const (
	classAction msgClass = iota // 游戏动作、分数提交
	classRoom                   // 开房、加入、开局、再来一局，涉及 bcrypt 和房间事务
	classCount
)

func classOf(t protocol.MessageType) (msgClass, bool) {
	switch t {
	case protocol.MsgAction, protocol.MsgSubmitScore:
		return classAction, true
	case protocol.MsgHostRoom, protocol.MsgJoinRoom, protocol.MsgStartGame, protocol.MsgRematch:
		return classRoom, true
	}
	return 0, false
}

// rateLimitText 超限时回复给玩家的提示
func rateLimitText(t protocol.MessageType) string {
	c, ok := classOf(t)
	switch {
	case ok && c == classAction:
		return "游戏操作过于频繁，请放慢速度"
	case ok && c == classRoom:
		return "房间操作过于频繁，请稍后再试"
	}
	return "消息发送过于频繁"
}

// Verdict 限流结果
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictDeny          // 丢弃这条消息
	VerdictKick          // 反复超限，断开连接
)

// MessageLimiter 按玩家 uid 限制消息速率。所有消息共用一个总桶，
// 游戏动作和房间操作另有更严格的桶。记录按 uid 保存，重连不会重置额度。
type MessageLimiter struct {
	mu      sync.Mutex
	players map[string]*playerRate

	total   rate.Limit
	burst   int
	classes [classCount]struct {
		limit rate.Limit
		burst int
	}
	now func() time.Time
}

type playerRate struct {
	total      *rate.Limiter
	classes    [classCount]*rate.Limiter
	strikes    int
	lastStrike time.Time
	lastSeen   time.Time
}

// NewMessageLimiter 根据配置创建消息限流器
func NewMessageLimiter(cfg config.MessageLimitConfig) *MessageLimiter {
	ml := &MessageLimiter{
		players: make(map[string]*playerRate),
		total:   rate.Limit(cfg.MaxPerSecond),
		burst:   cfg.MaxPerSecond,
		now:     time.Now,
	}
	ml.classes[classAction].limit = rate.Limit(cfg.ActionsPerSecond)
	ml.classes[classAction].burst = cfg.ActionsPerSecond
	ml.classes[classRoom].limit = rate.Limit(float64(cfg.RoomOpsPerMinute) / 60)
	ml.classes[classRoom].burst = min(roomOpsBurst, cfg.RoomOpsPerMinute)
	return ml
}

func (ml *MessageLimiter) player(uid string, now time.Time) *playerRate {
	p, ok := ml.players[uid]
	if !ok {
		p = &playerRate{total: rate.NewLimiter(ml.total, ml.burst)}
		for c := range p.classes {
			p.classes[c] = rate.NewLimiter(ml.classes[c].limit, ml.classes[c].burst)
		}
		ml.players[uid] = p
	}
	p.lastSeen = now
	return p
}

// Check 记录 uid 发来的一条 t 类型消息；无法解析的消息传空类型，只计入总桶
func (ml *MessageLimiter) Check(uid string, t protocol.MessageType) Verdict {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	p := ml.player(uid, now)

	allowed := p.total.AllowN(now, 1)
	if c, ok := classOf(t); ok && allowed {
		allowed = p.classes[c].AllowN(now, 1)
	}
	if allowed {
		return VerdictAllow
	}

	if now.Sub(p.lastStrike) > strikeWindow {
		p.strikes = 0
	}
	p.strikes++
	p.lastStrike = now
	if p.strikes > maxStrikes {
		logger.WithField("player", uid).Warnf("🚫 %s 消息反复超限 (%d 次)", t, p.strikes)
		return VerdictKick
	}
	return VerdictDeny
}

// Strikes 当前窗口内的超限次数
func (ml *MessageLimiter) Strikes(uid string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if p, ok := ml.players[uid]; ok && ml.now().Sub(p.lastStrike) <= strikeWindow {
		return p.strikes
	}
	return 0
}

// Sweep 删除空闲玩家的记录，返回删除数量
func (ml *MessageLimiter) Sweep() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	removed := 0
	for uid, p := range ml.players {
		if now.Sub(p.lastSeen) > limiterIdleTTL {
			delete(ml.players, uid)
			removed++
		}
	}
	return removed
}

// sweeper 可以被周期清理的限流器
type sweeper interface {
	Sweep() int
}

// startSweeping 定期清理所有限流器，ctx 取消后停止
func startSweeping(ctx context.Context, interval time.Duration, limiters ...sweeper) *scheduler.Task {
	return scheduler.Every(ctx, interval, func(context.Context) bool {
		for _, l := range limiters {
			if n := l.Sweep(); n > 0 {
				logger.Debugf("🧹 清理限流记录 %d 条", n)
			}
		}
		return true
	})
}
