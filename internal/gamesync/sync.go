// Package gamesync 把房间文档中的游戏状态同步为强类型会话：订阅解码，事务提交，失败重试。
package gamesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/logger"
)

// Decoder 把 gameState.<gameId> 子文档解析为会话
type Decoder[S any] func(docstore.Doc) (S, error)

// Encoder 把会话编码为子文档
type Encoder[S any] func(S) docstore.Doc

// Update 流中的一次推送；Err 非空时 Room/Session 无效
type Update[S any] struct {
	Room    *room.Room
	Session S
	Rev     int64
	Err     error
}

// Change 一次提交要写入的内容。State 的路径相对于游戏子文档。
type Change struct {
	State  docstore.Updates
	Status room.Status // 为空表示不修改房间状态
}

// MutateFunc 根据最新的房间和会话计算变更；返回 nil 表示无需写入
type MutateFunc[S any] func(r *room.Room, s S) (*Change, error)

// RetryPolicy 远端写入的重试策略
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultRetry 默认重试策略：50ms 起步，指数增长，最多 1s
var DefaultRetry = RetryPolicy{Attempts: 5, Base: 50 * time.Millisecond, Max: time.Second}

// backoff 返回第 n 次重试前的等待时间
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.Base
	for range n {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	return d
}

// Syncer 单个游戏的会话同步器
type Syncer[S any] struct {
	store  docstore.Store
	gameID string
	decode Decoder[S]
	encode Encoder[S]
	retry  RetryPolicy
}

// New 创建同步器
func New[S any](store docstore.Store, gameID string, decode Decoder[S], encode Encoder[S], retry RetryPolicy) *Syncer[S] {
	if retry.Attempts <= 0 {
		retry.Attempts = 1
	}
	return &Syncer[S]{store: store, gameID: gameID, decode: decode, encode: encode, retry: retry}
}

// GameID 同步的游戏
func (s *Syncer[S]) GameID() string { return s.gameID }

// Stream 订阅房间，每次提交推送一次解码后的会话。
// 解码失败推送 Err 为 *apperrors.DecodeError 的更新；房间被删除时推送 ErrRoomNotFound 并关闭。
func (s *Syncer[S]) Stream(ctx context.Context, code string) (<-chan Update[S], error) {
	snaps, err := s.store.Watch(ctx, room.Key(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDisconnected, err)
	}

	out := make(chan Update[S], 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			u := s.updateFrom(snap)
			if u.Err != nil {
				logger.WithField("room", code).Warnf("⚠️ 会话推送错误: %v", u.Err)
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
			if !snap.Exists {
				return
			}
		}
	}()
	return out, nil
}

func (s *Syncer[S]) updateFrom(snap *docstore.Snapshot) Update[S] {
	if !snap.Exists {
		return Update[S]{Rev: snap.Rev, Err: apperrors.ErrRoomNotFound}
	}
	r, sess, err := s.parse(snap)
	if err != nil {
		return Update[S]{Rev: snap.Rev, Err: err}
	}
	return Update[S]{Room: r, Session: sess, Rev: snap.Rev}
}

func (s *Syncer[S]) parse(snap *docstore.Snapshot) (*room.Room, S, error) {
	var zero S
	if !snap.Exists {
		return nil, zero, apperrors.ErrRoomNotFound
	}
	r, err := room.FromSnapshot(snap)
	if err != nil {
		return nil, zero, err
	}
	if r.GameID != s.gameID {
		return nil, zero, apperrors.ErrUnknownGame
	}
	sess, err := s.decode(r.GameState)
	if err != nil {
		return nil, zero, err
	}
	return r, sess, nil
}

// Read 一次性读取房间和会话
func (s *Syncer[S]) Read(ctx context.Context, code string) (*room.Room, S, error) {
	var zero S
	snap, err := s.store.Get(ctx, room.Key(code))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, zero, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return nil, zero, fmt.Errorf("%w: %w", apperrors.ErrDisconnected, err)
	}
	return s.parse(snap)
}

// Mutate 在一个乐观事务中完成 读取-校验-写入。
// 规则校验错误直接返回；存储错误按退避策略重试。
func (s *Syncer[S]) Mutate(ctx context.Context, code string, fn MutateFunc[S]) error {
	return s.withRetry(ctx, code, func() error {
		return s.store.Transaction(ctx, room.Key(code), func(snap *docstore.Snapshot) (docstore.Updates, error) {
			r, sess, err := s.parse(snap)
			if err != nil {
				return nil, err
			}
			change, err := fn(r, sess)
			if err != nil || change == nil {
				return nil, err
			}
			return s.updates(change), nil
		})
	})
}

// Put 整体写入会话，用于开局和重开
func (s *Syncer[S]) Put(ctx context.Context, code string, sess S) error {
	return s.withRetry(ctx, code, func() error {
		return s.store.Update(ctx, room.Key(code), docstore.Updates{
			room.GameStatePath(s.gameID): map[string]any(s.encode(sess)),
		})
	})
}

func (s *Syncer[S]) updates(c *Change) docstore.Updates {
	prefix := room.GameStatePath(s.gameID) + "."
	out := make(docstore.Updates, len(c.State)+1)
	for path, v := range c.State {
		out[prefix+path] = v
	}
	if c.Status != "" {
		out["status"] = string(c.Status)
	}
	return out
}

func (s *Syncer[S]) withRetry(ctx context.Context, code string, op func() error) error {
	var err error
	for attempt := range s.retry.Attempts {
		if attempt > 0 {
			wait := s.retry.backoff(attempt - 1)
			logger.WithField("room", code).Debugf("🔄 第 %d 次重试，等待 %v: %v", attempt, wait, err)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = op()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, docstore.ErrNotFound):
			return apperrors.ErrRoomNotFound
		case ctx.Err() != nil:
			return ctx.Err()
		case !apperrors.IsRetryable(err):
			return err
		}
	}

	logger.WithField("room", code).Warnf("⚠️ 写入失败，已重试 %d 次: %v", s.retry.Attempts, err)
	if errors.Is(err, docstore.ErrConflict) {
		return apperrors.ErrConflict
	}
	return fmt.Errorf("%w: %w", apperrors.ErrDisconnected, err)
}
