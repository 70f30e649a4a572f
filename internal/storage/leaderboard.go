// Package storage 排行榜、玩家统计和对局历史，全部保存在 Redis。
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/protocol"
)

const (
	// Redis key
	playerStatsKey   = "player:stats:"
	playerNamesKey   = "player:names"
	winsBoardKey     = "leaderboard:wins:"
	scoreBoardKey    = "leaderboard:score:"
	weeklyWinsKey    = "leaderboard:weekly:"
	historyKeyPrefix = "history:"

	defaultLimit = 10
	maxLimit     = 100
	// 每个游戏保留的历史条数
	historySize = 1000
)

// PlayerStats 玩家在某个游戏中的统计
type PlayerStats struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	GameID     string `json:"game_id"`

	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`

	// 正数为连胜，负数为连败
	CurrentStreak int `json:"current_streak"`
	MaxWinStreak  int `json:"max_win_streak"`

	LastPlayedAt int64 `json:"last_played_at"`
	CreatedAt    int64 `json:"created_at"`
}

// WinRate 胜率（百分比）
func (s *PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalGames) * 100
}

// Leaderboard 排行榜与对局记录，实现 game.Recorder
type Leaderboard struct {
	redis *redis.Client
	now   func() time.Time
}

// NewLeaderboard 创建排行榜
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client, now: time.Now}
}

func statsKey(gameID, playerID string) string {
	return playerStatsKey + gameID + ":" + playerID
}

func (lb *Leaderboard) weeklyKey(gameID string) string {
	year, week := lb.now().ISOWeek()
	return fmt.Sprintf("%s%s:%d-W%02d", weeklyWinsKey, gameID, year, week)
}

// SetName 记录玩家昵称，排行榜展示时使用
func (lb *Leaderboard) SetName(ctx context.Context, playerID, name string) error {
	if name == "" {
		return nil
	}
	return lb.redis.HSet(ctx, playerNamesKey, playerID, name).Err()
}

// GetPlayerStats 获取玩家统计，没有记录时返回 nil
func (lb *Leaderboard) GetPlayerStats(ctx context.Context, gameID, playerID string) (*PlayerStats, error) {
	data, err := lb.redis.Get(ctx, statsKey(gameID, playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode stats of %s: %w", playerID, err)
	}
	return &stats, nil
}

func (lb *Leaderboard) savePlayerStats(ctx context.Context, stats *PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return lb.redis.Set(ctx, statsKey(stats.GameID, stats.PlayerID), data, 0).Err()
}

func (lb *Leaderboard) getOrCreateStats(ctx context.Context, gameID, playerID string) (*PlayerStats, error) {
	stats, err := lb.GetPlayerStats(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &PlayerStats{
			PlayerID:  playerID,
			GameID:    gameID,
			CreatedAt: lb.now().Unix(),
		}
	}
	return stats, nil
}

// updateWinLossStats 更新胜负统计和连胜/连败
func updateWinLossStats(stats *PlayerStats, isWinner bool) {
	if isWinner {
		stats.Wins++
		stats.CurrentStreak = max(1, stats.CurrentStreak+1)
	} else {
		stats.Losses++
		stats.CurrentStreak = min(-1, stats.CurrentStreak-1)
	}

	if stats.CurrentStreak > stats.MaxWinStreak {
		stats.MaxWinStreak = stats.CurrentStreak
	}
}

// RecordResult 记录一局多人游戏的结果：玩家统计、胜场榜和历史
func (lb *Leaderboard) RecordResult(ctx context.Context, res game.Result) error {
	winners := make(map[string]bool, len(res.Winners))
	for _, uid := range res.Winners {
		winners[uid] = true
	}

	names, err := lb.names(ctx, res.Players)
	if err != nil {
		return err
	}

	for _, uid := range res.Players {
		stats, err := lb.getOrCreateStats(ctx, res.GameID, uid)
		if err != nil {
			return err
		}
		stats.PlayerName = names[uid]
		stats.TotalGames++
		stats.LastPlayedAt = lb.now().Unix()
		updateWinLossStats(stats, winners[uid])
		if err := lb.savePlayerStats(ctx, stats); err != nil {
			return err
		}
	}

	if len(res.Winners) > 0 {
		weekly := lb.weeklyKey(res.GameID)
		_, err := lb.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, uid := range res.Winners {
				pipe.ZIncrBy(ctx, winsBoardKey+res.GameID, 1, uid)
				pipe.ZIncrBy(ctx, weekly, 1, uid)
			}
			pipe.Expire(ctx, weekly, 8*24*time.Hour)
			return nil
		})
		if err != nil {
			return fmt.Errorf("update wins board: %w", err)
		}
	}

	return lb.pushHistory(ctx, res)
}

// SubmitScore 提交街机分数，只保留个人最高分，返回当前最高分
func (lb *Leaderboard) SubmitScore(ctx context.Context, gameID, playerID string, score int64) (int64, error) {
	key := scoreBoardKey + gameID
	if err := lb.redis.ZAddGT(ctx, key, redis.Z{Score: float64(score), Member: playerID}).Err(); err != nil {
		return 0, err
	}
	best, err := lb.redis.ZScore(ctx, key, playerID).Result()
	if err != nil {
		return 0, err
	}
	return int64(best), nil
}

// boardKey 多人游戏按胜场排名，街机游戏按最高分排名
func boardKey(gameID string) string {
	if room.IsMultiplayer(gameID) {
		return winsBoardKey + gameID
	}
	return scoreBoardKey + gameID
}

// Top 获取排行榜前 limit 名
func (lb *Leaderboard) Top(ctx context.Context, gameID string, limit int) ([]protocol.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	results, err := lb.redis.ZRevRangeWithScores(ctx, boardKey(gameID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, z := range results {
		ids[i], _ = z.Member.(string)
	}
	names, err := lb.names(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]protocol.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		entries = append(entries, protocol.LeaderboardEntry{
			Rank:       i + 1,
			PlayerID:   ids[i],
			PlayerName: names[ids[i]],
			Score:      int64(z.Score),
		})
	}
	return entries, nil
}

// Rank 获取玩家排名，未上榜返回 -1
func (lb *Leaderboard) Rank(ctx context.Context, gameID, playerID string) (int64, error) {
	rank, err := lb.redis.ZRevRank(ctx, boardKey(gameID), playerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil
}

func (lb *Leaderboard) names(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := lb.redis.HMGet(ctx, playerNamesKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[ids[i]] = s
		}
	}
	return out, nil
}
