package handler

import (
	"context"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game/arcade"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// handleAction 把游戏动作交给对应的游戏服务，新状态通过房间订阅推送
func (h *Handler) handleAction(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.ActionPayload](msg)
	if err != nil {
		return err
	}
	if payload.RoomCode == "" || payload.Kind == "" {
		return apperrors.New(protocol.ErrCodeInvalidMsg, "缺少房间号或动作类型")
	}
	g, err := h.game(payload.Game)
	if err != nil {
		return err
	}
	return g.Act(ctx, payload.RoomCode, client.GetID(), payload.Kind, payload.Data)
}

// handleSubmitScore 提交街机分数，回复最新排行榜
func (h *Handler) handleSubmitScore(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.SubmitScorePayload](msg)
	if err != nil {
		return err
	}
	if !slices.Contains(arcade.Games, payload.Game) {
		return apperrors.ErrUnknownGame
	}
	if payload.Score < 0 {
		return apperrors.New(protocol.ErrCodeInvalidMsg, "分数不能为负")
	}
	if _, err := h.leaderboard.SubmitScore(ctx, payload.Game, client.GetID(), payload.Score); err != nil {
		return err
	}
	return h.sendLeaderboard(ctx, client, payload.Game, 0)
}

// handleGetLeaderboard 获取排行榜
func (h *Handler) handleGetLeaderboard(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error {
	payload, err := parse[protocol.GetLeaderboardPayload](msg)
	if err != nil {
		return err
	}
	if !h.hasBoard(payload.Game) {
		return apperrors.ErrUnknownGame
	}
	return h.sendLeaderboard(ctx, client, payload.Game, payload.Limit)
}

func (h *Handler) sendLeaderboard(ctx context.Context, client types.ClientInterface, gameID string, limit int) error {
	entries, err := h.leaderboard.Top(ctx, gameID, limit)
	if err != nil {
		return err
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboard, protocol.LeaderboardPayload{
		Game:    gameID,
		Entries: entries,
	}))
	return nil
}

// hasBoard 街机游戏和已注册的多人游戏有排行榜
func (h *Handler) hasBoard(gameID string) bool {
	if slices.Contains(arcade.Games, gameID) {
		return true
	}
	_, ok := h.games[gameID]
	return ok
}
