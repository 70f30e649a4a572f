package protocol

import (
	"encoding/json"
	"time"
)

// --- 客户端请求 Payloads ---

// HelloPayload 登录请求，Token 为空时服务端分配新身份
type HelloPayload struct {
	Token string `json:"token,omitempty"`
	Name  string `json:"name,omitempty"`
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// HostRoomPayload 开房请求
type HostRoomPayload struct {
	Game     string `json:"game"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
	Private  bool   `json:"private,omitempty"`
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	RoomCode string `json:"room_code"`
	Password string `json:"password,omitempty"`
}

// RoomPayload 只携带房间号的请求（离开、开始、再来一局）
type RoomPayload struct {
	RoomCode string `json:"room_code"`
}

// ListRoomsPayload 房间列表请求
type ListRoomsPayload struct {
	Game string `json:"game"`
}

// ActionPayload 游戏内动作，Data 由各游戏自行解析
type ActionPayload struct {
	Game     string          `json:"game"`
	RoomCode string          `json:"room_code"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// SubmitScorePayload 街机分数提交
type SubmitScorePayload struct {
	Game  string `json:"game"`
	Score int64  `json:"score"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Game  string `json:"game"`
	Limit int    `json:"limit"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Token      string `json:"token"` // 重连时携带以保持身份
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// RoomCodePayload 开房/加入成功响应
type RoomCodePayload struct {
	RoomCode string `json:"room_code"`
	Game     string `json:"game"`
}

// RoomInfo 大厅中的房间摘要
type RoomInfo struct {
	Code      string    `json:"code"`
	Game      string    `json:"game"`
	Name      string    `json:"name"`
	HostName  string    `json:"host_name"`
	Players   int       `json:"players"`
	Capacity  int       `json:"capacity"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomListPayload 房间列表
type RoomListPayload struct {
	Game  string     `json:"game"`
	Rooms []RoomInfo `json:"rooms"`
}

// PlayerInfo 房间中的玩家
type PlayerInfo struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// RoomState 房间头部信息
type RoomState struct {
	Code         string       `json:"code"`
	Game         string       `json:"game"`
	Name         string       `json:"name"`
	HostUID      string       `json:"host_uid"`
	Status       string       `json:"status"`
	Capacity     int          `json:"capacity"`
	Players      []PlayerInfo `json:"players"`
	RematchVotes []string     `json:"rematch_votes,omitempty"`
}

// StatePayload 房间与游戏状态推送，Game 为当前玩家可见的视图
type StatePayload struct {
	Room RoomState `json:"room"`
	Game any       `json:"game,omitempty"`
	Rev  int64     `json:"rev"`
}

// DesyncPayload 会话无法解析
type DesyncPayload struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
}

// LeaderboardPayload 排行榜结果
type LeaderboardPayload struct {
	Game    string             `json:"game"`
	Entries []LeaderboardEntry `json:"entries"`
}
