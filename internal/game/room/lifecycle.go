package room

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/scheduler"
)

// Leave 玩家离开房间。房主离开时转让给下一位玩家，最后一位玩家离开时删除房间。
func (d *Directory) Leave(ctx context.Context, code, uid string) error {
	empty := false
	err := d.store.Transaction(ctx, Key(code), func(snap *docstore.Snapshot) (docstore.Updates, error) {
		r, err := decodeRoom(snap)
		if err != nil {
			return nil, err
		}
		seat := r.Seat(uid)
		if seat < 0 {
			return nil, apperrors.ErrNotInRoom
		}
		players := slices.Delete(slices.Clone(r.Players), seat, seat+1)
		if len(players) == 0 {
			empty = true
			return docstore.Updates{"players": []any{}, "status": string(StatusEnded)}, nil
		}

		updates := docstore.Updates{
			"players":      PlayersValue(players),
			"rematchVotes": removeVote(r.RematchVotes, uid),
		}
		if r.HostUID == uid {
			updates["hostUid"] = players[0].UID
			updates["hostName"] = players[0].Name
		}
		return updates, nil
	})
	if err != nil {
		return storeError(err)
	}

	logger.WithField("room", code).Infof("🚪 玩家 %s 离开房间 %s", uid, code)
	if empty {
		if err := d.Delete(ctx, code); err != nil && !errors.Is(err, apperrors.ErrRoomNotFound) {
			return err
		}
	}
	return nil
}

func removeVote(votes []string, uid string) []string {
	out := make([]string, 0, len(votes))
	for _, v := range votes {
		if v != uid {
			out = append(out, v)
		}
	}
	return out
}

// Start 房主开始游戏
func (d *Directory) Start(ctx context.Context, code, uid string) error {
	err := d.store.Transaction(ctx, Key(code), func(snap *docstore.Snapshot) (docstore.Updates, error) {
		r, err := decodeRoom(snap)
		if err != nil {
			return nil, err
		}
		if r.HostUID != uid {
			return nil, apperrors.ErrNotHost
		}
		if r.Status != StatusWaiting {
			return nil, apperrors.ErrGameStarted
		}
		hooks := d.hooksFor(r.GameID)
		if len(r.Players) < hooks.MinPlayers {
			return nil, apperrors.ErrNotEnoughPlayers
		}
		state := docstore.Doc{}
		if hooks.Start != nil {
			if state, err = hooks.Start(r); err != nil {
				return nil, err
			}
		}
		return docstore.Updates{
			"status":                string(StatusPlaying),
			"rematchVotes":          []any{},
			GameStatePath(r.GameID): map[string]any(state),
		}, nil
	})
	if err != nil {
		return storeError(err)
	}
	logger.WithField("room", code).Infof("🎮 房间 %s 开始游戏", code)
	return nil
}

// VoteRematch 投票再来一局。所有玩家都投票后重置游戏状态并返回 true。
func (d *Directory) VoteRematch(ctx context.Context, code, uid string) (bool, error) {
	reset := false
	err := d.store.Transaction(ctx, Key(code), func(snap *docstore.Snapshot) (docstore.Updates, error) {
		reset = false
		r, err := decodeRoom(snap)
		if err != nil {
			return nil, err
		}
		if !r.HasPlayer(uid) {
			return nil, apperrors.ErrNotInRoom
		}
		if r.Status != StatusEnded {
			return nil, apperrors.ErrWrongPhase
		}

		votes := r.RematchVotes
		if !slices.Contains(votes, uid) {
			votes = append(votes, uid)
		}
		for _, p := range r.Players {
			if !slices.Contains(votes, p.UID) {
				return docstore.Updates{"rematchVotes": votes}, nil
			}
		}

		hooks := d.hooksFor(r.GameID)
		if len(r.Players) < hooks.MinPlayers {
			return nil, apperrors.ErrNotEnoughPlayers
		}
		resetFn := hooks.Reset
		if resetFn == nil {
			resetFn = hooks.Start
		}
		state := docstore.Doc{}
		if resetFn != nil {
			if state, err = resetFn(r); err != nil {
				return nil, err
			}
		}
		reset = true
		return docstore.Updates{
			"status":                string(StatusPlaying),
			"rematchVotes":          []any{},
			GameStatePath(r.GameID): map[string]any(state),
		}, nil
	})
	if err != nil {
		return false, storeError(err)
	}
	if reset {
		logger.WithField("room", code).Infof("🔁 房间 %s 再来一局", code)
	}
	return reset, nil
}

// Cleanup 删除超时仍在等待的房间，返回删除数量
func (d *Directory) Cleanup(ctx context.Context) (int, error) {
	rooms, err := d.list(ctx)
	if err != nil {
		return 0, err
	}
	deadline := d.now().Add(-d.roomTimeout)
	removed := 0
	for _, r := range rooms {
		if r.Status != StatusWaiting || r.CreatedAt.After(deadline) {
			continue
		}
		if err := d.Delete(ctx, r.Code); err != nil && !errors.Is(err, apperrors.ErrRoomNotFound) {
			logger.WithField("room", r.Code).Warnf("⚠️ 清理房间失败: %v", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Infof("🧹 清理了 %d 个超时房间", removed)
	}
	return removed, nil
}

// StartCleanup 周期性清理超时房间
func (d *Directory) StartCleanup(ctx context.Context, interval time.Duration) *scheduler.Task {
	return scheduler.Every(ctx, interval, func(ctx context.Context) bool {
		if _, err := d.Cleanup(ctx); err != nil {
			logger.Warnf("⚠️ 房间清理失败: %v", err)
		}
		return true
	})
}
