package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/palemoky/party-games/internal/game"
)

func (lb *Leaderboard) pushHistory(ctx context.Context, res game.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	key := historyKeyPrefix + res.GameID
	pipe := lb.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -historySize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return nil
}

// History 返回某个游戏最近的 n 条对局，最新的在前
func (lb *Leaderboard) History(ctx context.Context, gameID string, n int) ([]game.Result, error) {
	if n <= 0 {
		n = defaultLimit
	}
	raw, err := lb.redis.LRange(ctx, historyKeyPrefix+gameID, int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]game.Result, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var res game.Result
		if err := json.Unmarshal([]byte(raw[i]), &res); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, res)
	}
	return out, nil
}
