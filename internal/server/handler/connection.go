package handler

import (
	"context"
	"time"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(_ context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.PingPayload](msg)
	if err != nil {
		return err
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
	return nil
}

// handleHello 用令牌恢复身份或改名
func (h *Handler) handleHello(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.HelloPayload](msg)
	if err != nil {
		return err
	}

	token := payload.Token
	if token == "" {
		token = client.GetToken()
	}
	id, fresh, err := h.issuer.Resume(token, payload.Name)
	if err != nil {
		return err
	}

	oldID := client.GetID()
	if oldID != id.UID {
		// 身份变化后旧身份的订阅不再有效
		client.Unsubscribe(subRoom)
	}
	client.SetIdentity(id.UID, id.Name, fresh)
	h.server.Rebind(oldID, client)
	h.Welcome(ctx, client)

	logger.WithField("player", id.UID).Infof("👋 玩家 %s 已登录", id.Name)
	return nil
}

// Welcome 发送 connected 消息并记录昵称
func (h *Handler) Welcome(ctx context.Context, client types.ClientInterface) {
	if err := h.leaderboard.SetName(ctx, client.GetID(), client.GetName()); err != nil {
		logger.WithField("player", client.GetID()).Warnf("⚠️ 保存昵称失败: %v", err)
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:   client.GetID(),
		PlayerName: client.GetName(),
		Token:      client.GetToken(),
	}))
}
