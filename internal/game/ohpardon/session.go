// Package ohpardon 飞行棋（Oh Pardon）：掷骰、走子、吃子和终点通道。
package ohpardon

import "slices"

const (
	RingSize       = 40 // 公共环形跑道
	EntrySpacing   = 10 // 相邻座位入口间隔
	PawnsPerPlayer = 4
	Home           = -1
	GoalStart      = RingSize     // 40..43 为各自的终点通道
	GoalEnd        = RingSize + 3 // 43
	EntryRoll      = 6            // 出家需要掷出 6
	MaxPlayers     = 4
)

// Colors 按座位分配的颜色
var Colors = []string{"red", "blue", "green", "yellow"}

// Capture 一次吃子
type Capture struct {
	PlayerID string `json:"player_id"`
	Pawn     int    `json:"pawn"`
}

// LogEntry 走子记录
type LogEntry struct {
	PlayerID string    `json:"player_id"`
	Pawn     int       `json:"pawn"`
	From     int       `json:"from"`
	To       int       `json:"to"`
	Roll     int       `json:"roll"`
	Captured []Capture `json:"captured,omitempty"`
}

// Session 飞行棋会话。棋子位置是相对自己入口的步数：-1 在家，0..39 在环上，40..43 在终点通道。
type Session struct {
	Players     []string
	Pawns       map[string][]int
	Starter     string
	CurrentTurn string
	Roll        int // 0 表示本回合尚未掷骰
	Log         []LogEntry
	Forfeited   []string
	Winner      string
}

// New 新的一局，starter 先手
func New(players []string, starter string) Session {
	s := Session{
		Players:     slices.Clone(players),
		Pawns:       make(map[string][]int, len(players)),
		Starter:     starter,
		CurrentTurn: starter,
		Log:         []LogEntry{},
		Forfeited:   []string{},
	}
	for _, uid := range players {
		s.Pawns[uid] = []int{Home, Home, Home, Home}
	}
	return s
}

// Clone 深拷贝
func (s Session) Clone() Session {
	out := s
	out.Players = slices.Clone(s.Players)
	out.Pawns = make(map[string][]int, len(s.Pawns))
	for uid, p := range s.Pawns {
		out.Pawns[uid] = slices.Clone(p)
	}
	out.Log = slices.Clone(s.Log)
	out.Forfeited = slices.Clone(s.Forfeited)
	return out
}

// Seat 座位号
func (s Session) Seat(uid string) int {
	return slices.Index(s.Players, uid)
}

// Color 玩家颜色
func (s Session) Color(uid string) string {
	if i := s.Seat(uid); i >= 0 {
		return Colors[i]
	}
	return ""
}

// Entry 玩家入口在环上的绝对位置
func (s Session) Entry(uid string) int {
	return s.Seat(uid) * EntrySpacing
}

// Absolute 棋子在环上的绝对位置；在家或终点通道返回 -1
func (s Session) Absolute(uid string, pos int) int {
	if pos < 0 || pos >= RingSize {
		return -1
	}
	return (s.Entry(uid) + pos) % RingSize
}

// Active 未认输的玩家
func (s Session) Active() []string {
	out := make([]string, 0, len(s.Players))
	for _, uid := range s.Players {
		if !slices.Contains(s.Forfeited, uid) {
			out = append(out, uid)
		}
	}
	return out
}

// next 按座位顺序的下一位未认输玩家
func (s Session) next(uid string) string {
	seat := s.Seat(uid)
	for i := 1; i <= len(s.Players); i++ {
		cand := s.Players[(seat+i)%len(s.Players)]
		if !slices.Contains(s.Forfeited, cand) {
			return cand
		}
	}
	return uid
}

// Finished 玩家所有棋子都进入终点通道
func (s Session) Finished(uid string) bool {
	pawns := s.Pawns[uid]
	if len(pawns) == 0 {
		return false
	}
	for _, p := range pawns {
		if p < GoalStart {
			return false
		}
	}
	return true
}
