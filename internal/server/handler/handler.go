// Package handler 把客户端消息分发到房间目录、游戏服务和排行榜。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/auth"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// 单个请求的存储操作超时
const requestTimeout = 10 * time.Second

// 订阅 key
const (
	subLobby = "lobby"
	subRoom  = "room"
)

// GameService 可开房间的游戏
type GameService interface {
	GameID() string
	Hooks() room.Hooks
	Watch(ctx context.Context, code, uid string) (<-chan gamesync.View, error)
	Act(ctx context.Context, code, uid, kind string, data json.RawMessage) error
}

// Leaderboard 排行榜
type Leaderboard interface {
	SetName(ctx context.Context, playerID, name string) error
	SubmitScore(ctx context.Context, gameID, playerID string, score int64) (int64, error)
	Top(ctx context.Context, gameID string, limit int) ([]protocol.LeaderboardEntry, error)
}

// nopLeaderboard 未配置排行榜时使用：分数不保存，榜单为空
type nopLeaderboard struct{}

func (nopLeaderboard) SetName(context.Context, string, string) error { return nil }

func (nopLeaderboard) SubmitScore(_ context.Context, _, _ string, score int64) (int64, error) {
	return score, nil
}

func (nopLeaderboard) Top(context.Context, string, int) ([]protocol.LeaderboardEntry, error) {
	return []protocol.LeaderboardEntry{}, nil
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	Rooms       *room.Directory
	Games       []GameService
	Leaderboard Leaderboard
	Issuer      *auth.Issuer
}

// Handler 消息处理器
type Handler struct {
	server      types.ServerInterface
	rooms       *room.Directory
	games       map[string]GameService
	leaderboard Leaderboard
	issuer      *auth.Issuer
	handlers    map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(ctx context.Context, client types.ClientInterface, msg *protocol.Message) error

// NewHandler 创建处理器，并把各游戏的开局钩子注册到房间目录
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:      deps.Server,
		rooms:       deps.Rooms,
		games:       make(map[string]GameService, len(deps.Games)),
		leaderboard: deps.Leaderboard,
		issuer:      deps.Issuer,
	}
	if h.leaderboard == nil {
		h.leaderboard = nopLeaderboard{}
	}
	for _, g := range deps.Games {
		h.games[g.GameID()] = g
		h.rooms.Register(g.GameID(), g.Hooks())
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgHello: h.handleHello,
		protocol.MsgPing:  h.handlePing,

		// 房间操作
		protocol.MsgHostRoom:   h.handleHostRoom,
		protocol.MsgJoinRoom:   h.handleJoinRoom,
		protocol.MsgLeaveRoom:  h.handleLeaveRoom,
		protocol.MsgListRooms:  h.handleListRooms,
		protocol.MsgWatchRooms: h.handleWatchRooms,
		protocol.MsgStartGame:  h.handleStartGame,
		protocol.MsgRematch:    h.handleRematch,

		// 游戏操作
		protocol.MsgAction: h.handleAction,

		// 排行榜
		protocol.MsgSubmitScore:    h.handleSubmitScore,
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
	}
}

// Handle 处理消息，处理失败时回复带错误码的 error 消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	handler, ok := h.handlers[msg.Type]
	if !ok {
		logger.WithField("player", client.GetID()).Warnf("⚠️ 未知消息类型: '%s' (Payload 长度=%d)", msg.Type, len(msg.Payload))
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := handler(ctx, client, msg); err != nil {
		h.sendError(client, msg.Type, err)
	}
}

// sendError 把错误映射为错误码发给客户端
func (h *Handler) sendError(client types.ClientInterface, msgType protocol.MessageType, err error) {
	code := apperrors.Code(err)
	text := protocol.ErrorMessages[code]

	var ge *apperrors.GameError
	if errors.As(err, &ge) && ge.Message != "" {
		text = ge.Message
	}
	if code == protocol.ErrCodeUnknown {
		logger.WithField("player", client.GetID()).Errorf("❌ 处理 %s 失败: %v", msgType, err)
	}
	client.SendMessage(codec.NewErrorMessageWithText(code, text))
}

// parse 解析 Payload，失败时返回 ErrCodeInvalidMsg
func parse[T any](msg *protocol.Message) (*T, error) {
	p, err := codec.ParsePayload[T](msg)
	if err != nil {
		return nil, apperrors.New(protocol.ErrCodeInvalidMsg, "%s", protocol.ErrorMessages[protocol.ErrCodeInvalidMsg])
	}
	return p, nil
}

func (h *Handler) game(gameID string) (GameService, error) {
	g, ok := h.games[gameID]
	if !ok {
		return nil, apperrors.ErrUnknownGame
	}
	return g, nil
}
