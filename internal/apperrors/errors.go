package apperrors

import (
	"errors"
	"fmt"

	"github.com/palemoky/party-games/internal/protocol"
)

// GameError 游戏错误（房间、会话、规则引擎共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// Is 按错误码比较，带自定义文本的同码错误也能匹配哨兵错误
func (e *GameError) Is(target error) bool {
	var ge *GameError
	if !errors.As(target, &ge) {
		return false
	}
	return e.Code == ge.Code
}

// New 创建带自定义文本的错误
func New(code int, format string, args ...any) *GameError {
	return &GameError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// 预定义错误
var (
	ErrRoomNotFound     = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrRoomFull         = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNotInRoom        = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrGameStarted      = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrWrongPassword    = &GameError{Code: protocol.ErrCodeWrongPassword, Message: "房间密码错误"}
	ErrNotHost          = &GameError{Code: protocol.ErrCodeNotHost, Message: "只有房主可以执行此操作"}
	ErrNotEnoughPlayers = &GameError{Code: protocol.ErrCodeNotEnoughPlayers, Message: "玩家人数不足"}
	ErrUnknownGame      = &GameError{Code: protocol.ErrCodeUnknownGame, Message: "未知的游戏类型"}

	ErrGameNotStart  = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "游戏尚未开始"}
	ErrNotYourTurn   = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "还没轮到您"}
	ErrInvalidMove   = &GameError{Code: protocol.ErrCodeInvalidMove, Message: "无效的操作"}
	ErrGameOver      = &GameError{Code: protocol.ErrCodeGameOver, Message: "游戏已结束"}
	ErrNoOpponent    = &GameError{Code: protocol.ErrCodeNoOpponent, Message: "对手尚未加入"}
	ErrOutOfRange    = &GameError{Code: protocol.ErrCodeOutOfRange, Message: "坐标超出范围"}
	ErrAlreadyFired  = &GameError{Code: protocol.ErrCodeAlreadyFired, Message: "该位置已经攻击过"}
	ErrNotRolled     = &GameError{Code: protocol.ErrCodeNotRolled, Message: "请先掷骰子"}
	ErrAlreadyRolled = &GameError{Code: protocol.ErrCodeAlreadyRolled, Message: "本回合已经掷过骰子"}
	ErrInvalidFleet  = &GameError{Code: protocol.ErrCodeInvalidFleet, Message: "舰队布置无效"}
	ErrWrongPhase    = &GameError{Code: protocol.ErrCodeWrongPhase, Message: "当前阶段不允许该操作"}
	ErrWrongRole     = &GameError{Code: protocol.ErrCodeWrongRole, Message: "您的角色不能执行该操作"}

	ErrDesync       = &GameError{Code: protocol.ErrCodeDesync, Message: "会话不同步，请重新加入房间"}
	ErrDisconnected = &GameError{Code: protocol.ErrCodeDisconnected, Message: "与存储服务断开连接"}
	ErrConflict     = &GameError{Code: protocol.ErrCodeConflict, Message: "操作冲突，请重试"}
)

// DecodeError 远端文档无法解析为会话
type DecodeError struct {
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("解析字段 %s 失败: %s", e.Path, e.Reason)
}

// Is 让 errors.Is(err, ErrDesync) 对解析错误成立
func (e *DecodeError) Is(target error) bool {
	return target == ErrDesync
}

// Code 返回错误对应的错误码，未知错误返回 ErrCodeUnknown
func Code(err error) int {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return protocol.ErrCodeDesync
	}
	return protocol.ErrCodeUnknown
}

// IsRetryable 只有存储层的瞬时错误值得重试，规则校验错误不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code == protocol.ErrCodeDisconnected || ge.Code == protocol.ErrCodeConflict
	}
	var de *DecodeError
	return !errors.As(err, &de)
}
