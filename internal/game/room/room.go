// Package room 房间目录：开房、加入、大厅列表、离开、开始和再来一局。
package room

import (
	"slices"
	"time"

	"github.com/palemoky/party-games/internal/docstore"
)

// Collection 房间文档所在的集合
const Collection = "rooms"

const (
	roomCodeLength = 6            // 房间号长度
	roomCodeChars  = "0123456789" // 房间号字符集
)

// Player 房间中的玩家
type Player struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Room 房间文档的头部信息，GameState 为 gameState.<gameId> 子文档
type Room struct {
	Code         string
	GameID       string
	Name         string
	HostUID      string
	HostName     string
	PasswordHash string
	Private      bool
	Capacity     int
	Players      []Player // 按座位顺序
	Status       Status
	RematchVotes []string
	CreatedAt    time.Time
	GameState    docstore.Doc
}

// Summary 大厅展示用的房间摘要
type Summary struct {
	Code      string    `json:"code"`
	GameID    string    `json:"game_id"`
	Name      string    `json:"name"`
	HostName  string    `json:"host_name"`
	Players   int       `json:"players"`
	Capacity  int       `json:"capacity"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// Key 房间在存储中的 key
func Key(code string) string {
	return docstore.Key(Collection, code)
}

// GameStatePath 游戏状态子文档的路径
func GameStatePath(gameID string) string {
	return "gameState." + gameID
}

// Seat 返回玩家座位号，不在房间返回 -1
func (r *Room) Seat(uid string) int {
	return slices.IndexFunc(r.Players, func(p Player) bool { return p.UID == uid })
}

// HasPlayer 玩家是否在房间中
func (r *Room) HasPlayer(uid string) bool {
	return r.Seat(uid) >= 0
}

// IsFull 房间是否已满
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Capacity
}

// Joinable 是否出现在公开大厅
func (r *Room) Joinable() bool {
	return r.Status == StatusWaiting && !r.Private && !r.IsFull()
}

// Opponent 双人游戏中的对手，没有对手返回空
func (r *Room) Opponent(uid string) string {
	for _, p := range r.Players {
		if p.UID != uid {
			return p.UID
		}
	}
	return ""
}

// PlayerName 返回玩家昵称
func (r *Room) PlayerName(uid string) string {
	if i := r.Seat(uid); i >= 0 {
		return r.Players[i].Name
	}
	return ""
}

// PlayerUIDs 按座位顺序返回玩家 id
func (r *Room) PlayerUIDs() []string {
	uids := make([]string, len(r.Players))
	for i, p := range r.Players {
		uids[i] = p.UID
	}
	return uids
}

// Summary 生成大厅摘要
func (r *Room) Summary() Summary {
	return Summary{
		Code:      r.Code,
		GameID:    r.GameID,
		Name:      r.Name,
		HostName:  r.HostName,
		Players:   len(r.Players),
		Capacity:  r.Capacity,
		Locked:    r.PasswordHash != "",
		CreatedAt: r.CreatedAt,
	}
}
