package transport

import (
	"encoding/json"

	"github.com/palemoky/party-games/internal/protocol"
)

// Hello 更换昵称或恢复身份
func (c *Client) Hello(token, name string) error {
	return c.Send(protocol.MsgHello, protocol.HelloPayload{Token: token, Name: name})
}

// HostRoom 创建房间
func (c *Client) HostRoom(game, name, password string, private bool) error {
	return c.Send(protocol.MsgHostRoom, protocol.HostRoomPayload{
		Game:     game,
		Name:     name,
		Password: password,
		Private:  private,
	})
}

// JoinRoom 加入房间
func (c *Client) JoinRoom(code, password string) error {
	return c.Send(protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomCode: code, Password: password})
}

// LeaveRoom 离开房间
func (c *Client) LeaveRoom(code string) error {
	return c.Send(protocol.MsgLeaveRoom, protocol.RoomPayload{RoomCode: code})
}

// ListRooms 查询公开房间
func (c *Client) ListRooms(game string) error {
	return c.Send(protocol.MsgListRooms, protocol.ListRoomsPayload{Game: game})
}

// WatchRooms 订阅公开房间列表
func (c *Client) WatchRooms(game string) error {
	return c.Send(protocol.MsgWatchRooms, protocol.ListRoomsPayload{Game: game})
}

// StartGame 房主开始游戏
func (c *Client) StartGame(code string) error {
	return c.Send(protocol.MsgStartGame, protocol.RoomPayload{RoomCode: code})
}

// Rematch 投票再来一局
func (c *Client) Rematch(code string) error {
	return c.Send(protocol.MsgRematch, protocol.RoomPayload{RoomCode: code})
}

// Act 发送游戏动作，data 为动作参数
func (c *Client) Act(game, code, kind string, data any) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	return c.Send(protocol.MsgAction, protocol.ActionPayload{
		Game:     game,
		RoomCode: code,
		Kind:     kind,
		Data:     raw,
	})
}

// SubmitScore 提交街机得分
func (c *Client) SubmitScore(game string, score int64) error {
	return c.Send(protocol.MsgSubmitScore, protocol.SubmitScorePayload{Game: game, Score: score})
}

// GetLeaderboard 请求排行榜
func (c *Client) GetLeaderboard(game string, limit int) error {
	return c.Send(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Game: game, Limit: limit})
}
