package handler

import (
	"context"
	"errors"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

var errMaintenance = apperrors.New(protocol.ErrCodeServerMaintenance, "服务器维护中，暂停创建和加入房间")

// handleHostRoom 处理开房
func (h *Handler) handleHostRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	if h.server.IsMaintenanceMode() {
		return errMaintenance
	}
	payload, err := parse[protocol.HostRoomPayload](msg)
	if err != nil {
		return err
	}
	g, err := h.game(payload.Game)
	if err != nil {
		return err
	}

	code, err := h.rooms.Host(ctx, room.HostRequest{
		GameID:   payload.Game,
		RoomName: payload.Name,
		HostUID:  client.GetID(),
		HostName: client.GetName(),
		Password: payload.Password,
		Private:  payload.Private,
	})
	if err != nil {
		return err
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomHosted, protocol.RoomCodePayload{
		RoomCode: code,
		Game:     payload.Game,
	}))
	return h.watchRoom(client, g, code)
}

// handleJoinRoom 处理加入房间，已在房间中时相当于重新订阅
func (h *Handler) handleJoinRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	if h.server.IsMaintenanceMode() {
		return errMaintenance
	}
	payload, err := parse[protocol.JoinRoomPayload](msg)
	if err != nil {
		return err
	}

	gameID, err := h.rooms.Join(ctx, payload.RoomCode, room.Player{UID: client.GetID(), Name: client.GetName()}, payload.Password)
	if err != nil {
		return err
	}
	g, err := h.game(gameID)
	if err != nil {
		return err
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomCodePayload{
		RoomCode: payload.RoomCode,
		Game:     gameID,
	}))
	return h.watchRoom(client, g, payload.RoomCode)
}

// handleLeaveRoom 处理离开房间
func (h *Handler) handleLeaveRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.RoomPayload](msg)
	if err != nil {
		return err
	}
	client.Unsubscribe(subRoom)
	return h.rooms.Leave(ctx, payload.RoomCode, client.GetID())
}

// handleStartGame 房主开始游戏
func (h *Handler) handleStartGame(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.RoomPayload](msg)
	if err != nil {
		return err
	}
	return h.rooms.Start(ctx, payload.RoomCode, client.GetID())
}

// handleRematch 再来一局投票，结果通过状态推送体现
func (h *Handler) handleRematch(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.RoomPayload](msg)
	if err != nil {
		return err
	}
	_, err = h.rooms.VoteRematch(ctx, payload.RoomCode, client.GetID())
	return err
}

// handleListRooms 一次性获取公开房间列表
func (h *Handler) handleListRooms(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.ListRoomsPayload](msg)
	if err != nil {
		return err
	}
	if !room.IsMultiplayer(payload.Game) {
		return apperrors.ErrUnknownGame
	}
	list, err := h.rooms.ListPublic(ctx, payload.Game)
	if err != nil {
		return err
	}
	client.SendMessage(roomListMessage(payload.Game, list))
	return nil
}

// handleWatchRooms 订阅大厅，列表变化时推送 room_list
func (h *Handler) handleWatchRooms(_ context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.ListRoomsPayload](msg)
	if err != nil {
		return err
	}
	if !room.IsMultiplayer(payload.Game) {
		return apperrors.ErrUnknownGame
	}

	ctx := client.Subscribe(subLobby)
	lists, err := h.rooms.PublicRooms(ctx, payload.Game)
	if err != nil {
		client.Unsubscribe(subLobby)
		return err
	}
	go func() {
		for list := range lists {
			client.SendMessage(roomListMessage(payload.Game, list))
		}
	}()
	return nil
}

// watchRoom 订阅房间，每次提交推送一次 state；无法解析时推送 desync
func (h *Handler) watchRoom(client types.ClientInterface, g GameService, code string) error {
	ctx := client.Subscribe(subRoom)
	views, err := g.Watch(ctx, code, client.GetID())
	if err != nil {
		client.Unsubscribe(subRoom)
		return err
	}
	go h.pushViews(client, code, views)
	return nil
}

func (h *Handler) pushViews(client types.ClientInterface, code string, views <-chan gamesync.View) {
	for v := range views {
		switch {
		case v.Err == nil:
			client.SendMessage(codec.MustNewMessage(protocol.MsgState, protocol.StatePayload{
				Room: roomState(v.Room),
				Game: v.State,
				Rev:  v.Rev,
			}))
		case errors.Is(v.Err, apperrors.ErrDesync):
			logger.WithField("room", code).Warnf("⚠️ 会话不同步: %v", v.Err)
			client.SendMessage(codec.MustNewMessage(protocol.MsgDesync, protocol.DesyncPayload{
				RoomCode: code,
				Reason:   v.Err.Error(),
			}))
		default:
			h.sendError(client, protocol.MsgState, v.Err)
		}
	}
}

func roomState(r *room.Room) protocol.RoomState {
	players := make([]protocol.PlayerInfo, len(r.Players))
	for i, p := range r.Players {
		players[i] = protocol.PlayerInfo{UID: p.UID, Name: p.Name}
	}
	return protocol.RoomState{
		Code:         r.Code,
		Game:         r.GameID,
		Name:         r.Name,
		HostUID:      r.HostUID,
		Status:       string(r.Status),
		Capacity:     r.Capacity,
		Players:      players,
		RematchVotes: r.RematchVotes,
	}
}

// RoomInfos 转换大厅摘要
func RoomInfos(list []room.Summary) []protocol.RoomInfo {
	out := make([]protocol.RoomInfo, len(list))
	for i, s := range list {
		out[i] = protocol.RoomInfo{
			Code:      s.Code,
			Game:      s.GameID,
			Name:      s.Name,
			HostName:  s.HostName,
			Players:   s.Players,
			Capacity:  s.Capacity,
			Locked:    s.Locked,
			CreatedAt: s.CreatedAt,
		}
	}
	return out
}

func roomListMessage(gameID string, list []room.Summary) *protocol.Message {
	return codec.MustNewMessage(protocol.MsgRoomList, protocol.RoomListPayload{
		Game:  gameID,
		Rooms: RoomInfos(list),
	})
}
