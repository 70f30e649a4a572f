// Package game 各游戏共享的对局结果定义
package game

import (
	"context"
	"time"

	"github.com/palemoky/party-games/internal/logger"
)

// Result 一局结束时的结果
type Result struct {
	GameID   string    `json:"game_id"`
	RoomCode string    `json:"room_code"`
	Players  []string  `json:"players"`
	Winners  []string  `json:"winners"` // 团队游戏可能有多名胜者，平局为空
	EndedAt  time.Time `json:"ended_at"`
}

// Recorder 保存对局结果（历史记录、排行榜）
type Recorder interface {
	RecordResult(ctx context.Context, res Result) error
}

// NopRecorder 不记录任何结果
type NopRecorder struct{}

func (NopRecorder) RecordResult(context.Context, Result) error { return nil }

// Record 保存结果，失败只记录日志
func Record(ctx context.Context, rec Recorder, res Result) {
	if res.EndedAt.IsZero() {
		res.EndedAt = time.Now()
	}
	if err := rec.RecordResult(ctx, res); err != nil {
		logger.WithField("room", res.RoomCode).Warnf("⚠️ 记录对局结果失败: %v", err)
	}
}
