package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgHello MessageType = "hello" // 携带身份令牌登录
	MsgPing  MessageType = "ping"  // 心跳 ping

	// 房间操作
	MsgHostRoom   MessageType = "host_room"   // 开房
	MsgJoinRoom   MessageType = "join_room"   // 加入房间
	MsgLeaveRoom  MessageType = "leave_room"  // 离开房间
	MsgListRooms  MessageType = "list_rooms"  // 获取房间列表
	MsgWatchRooms MessageType = "watch_rooms" // 订阅大厅
	MsgStartGame  MessageType = "start_game"  // 房主开始游戏
	MsgRematch    MessageType = "rematch"     // 再来一局投票

	// 游戏操作
	MsgAction MessageType = "action" // 游戏内动作

	// 排行榜
	MsgSubmitScore    MessageType = "submit_score"    // 提交街机分数
	MsgGetLeaderboard MessageType = "get_leaderboard" // 获取排行榜
)

// 服务端 → 客户端 消息类型
const (
	MsgConnected   MessageType = "connected"   // 连接成功
	MsgPong        MessageType = "pong"        // 心跳 pong
	MsgRoomHosted  MessageType = "room_hosted" // 房间创建成功
	MsgRoomJoined  MessageType = "room_joined" // 加入房间成功
	MsgRoomList    MessageType = "room_list"   // 房间列表
	MsgState       MessageType = "state"       // 房间与游戏状态
	MsgDesync      MessageType = "desync"      // 状态无法解析，需重新加入
	MsgError       MessageType = "error"       // 错误消息
	MsgLeaderboard MessageType = "leaderboard" // 排行榜结果
)

// IsClientMessage 是否是客户端可以发送的消息类型
func IsClientMessage(t MessageType) bool {
	switch t {
	case MsgHello, MsgPing, MsgHostRoom, MsgJoinRoom, MsgLeaveRoom, MsgListRooms,
		MsgWatchRooms, MsgStartGame, MsgRematch, MsgAction, MsgSubmitScore, MsgGetLeaderboard:
		return true
	}
	return false
}
