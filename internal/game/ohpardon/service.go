package ohpardon

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
)

// 动作类型
const (
	ActionRoll      = "roll"
	ActionMove      = "move"
	ActionSurrender = "surrender"
)

// MoveData 走子动作
type MoveData struct {
	Pawn int `json:"pawn"`
}

// Service 飞行棋服务
type Service struct {
	sync     *gamesync.Syncer[Session]
	recorder game.Recorder

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewService 创建服务
func NewService(store docstore.Store, retry gamesync.RetryPolicy, recorder game.Recorder, rng *rand.Rand) *Service {
	if recorder == nil {
		recorder = game.NopRecorder{}
	}
	return &Service{
		sync:     gamesync.New(store, room.GameOhPardon, Decode, Encode, retry),
		recorder: recorder,
		rng:      rng,
	}
}

// GameID 游戏 ID
func (s *Service) GameID() string { return room.GameOhPardon }

// Hooks 房间钩子：房主先手，重开时先手顺延
func (s *Service) Hooks() room.Hooks {
	return room.Hooks{
		MinPlayers: 2,
		Start: func(r *room.Room) (docstore.Doc, error) {
			players := r.PlayerUIDs()
			return Encode(New(players, players[0])), nil
		},
		Reset: func(r *room.Room) (docstore.Doc, error) {
			prev, err := Decode(r.GameState)
			if err != nil {
				return nil, err
			}
			return Encode(Reset(prev, r.PlayerUIDs())), nil
		},
	}
}

// Watch 订阅视图
func (s *Service) Watch(ctx context.Context, code, _ string) (<-chan gamesync.View, error) {
	updates, err := s.sync.Stream(ctx, code)
	if err != nil {
		return nil, err
	}
	return gamesync.Project(ctx, updates, func(_ *room.Room, sess Session) any {
		return ViewOf(sess)
	}), nil
}

// Act 分发客户端动作
func (s *Service) Act(ctx context.Context, code, uid, kind string, data json.RawMessage) error {
	switch kind {
	case ActionRoll:
		_, err := s.Roll(ctx, code, uid)
		return err
	case ActionMove:
		var d MoveData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "走子数据无效: %v", err)
		}
		_, err := s.Move(ctx, code, uid, d.Pawn)
		return err
	case ActionSurrender:
		return s.Surrender(ctx, code, uid)
	default:
		return apperrors.New(protocol.ErrCodeInvalidMsg, "未知动作: %s", kind)
	}
}

func requirePlaying(r *room.Room) error {
	switch r.Status {
	case room.StatusWaiting:
		return apperrors.ErrGameNotStart
	case room.StatusEnded:
		return apperrors.ErrGameOver
	}
	return nil
}

// Roll 掷骰
func (s *Service) Roll(ctx context.Context, code, uid string) (RollOutcome, error) {
	var out RollOutcome
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		s.rngMu.Lock()
		o, err := Roll(sess, uid, s.rng)
		s.rngMu.Unlock()
		if err != nil {
			return nil, err
		}
		out = o
		return &gamesync.Change{State: docstore.Updates{
			"roll":        int64(o.Session.Roll),
			"currentTurn": o.Session.CurrentTurn,
		}}, nil
	})
	if err != nil {
		return RollOutcome{}, err
	}
	if out.Passed {
		logger.WithField("room", code).Debugf("🎲 玩家 %s 掷出 %d，无子可走", uid, out.Value)
	}
	return out, nil
}

// Move 走子
func (s *Service) Move(ctx context.Context, code, uid string, pawn int) (MoveOutcome, error) {
	var out MoveOutcome
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		o, err := Move(sess, uid, pawn)
		if err != nil {
			return nil, err
		}
		out = o
		next := o.Session
		updates := docstore.Updates{
			"pawns." + uid: intsValue(next.Pawns[uid]),
			"roll":         int64(0),
			"currentTurn":  next.CurrentTurn,
			"log":          logValue(next.Log),
		}
		for _, c := range o.Entry.Captured {
			updates["pawns."+c.PlayerID] = intsValue(next.Pawns[c.PlayerID])
		}
		change := &gamesync.Change{State: updates}
		if o.Winner != "" {
			updates["winner"] = o.Winner
			change.Status = room.StatusEnded
		}
		return change, nil
	})
	if err != nil {
		return MoveOutcome{}, err
	}

	log := logger.WithField("room", code)
	for _, c := range out.Entry.Captured {
		log.Infof("🎯 玩家 %s 吃掉了 %s 的棋子 %d", uid, c.PlayerID, c.Pawn)
	}
	if out.Winner != "" {
		log.Infof("🏆 飞行棋结束，胜者 %s", out.Winner)
		s.record(ctx, code, out.Session.Players, out.Winner)
	}
	return out, nil
}

// Surrender 认输
func (s *Service) Surrender(ctx context.Context, code, uid string) error {
	var next Session
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		n, err := Surrender(sess, uid)
		if err != nil {
			return nil, err
		}
		next = n
		change := &gamesync.Change{State: docstore.Updates{
			"forfeited":   stringsValue(n.Forfeited),
			"currentTurn": n.CurrentTurn,
			"roll":        int64(n.Roll),
		}}
		if n.Winner != "" {
			change.State["winner"] = n.Winner
			change.Status = room.StatusEnded
		}
		return change, nil
	})
	if err != nil {
		return err
	}
	logger.WithField("room", code).Infof("🏳️ 玩家 %s 认输", uid)
	if next.Winner != "" {
		s.record(ctx, code, next.Players, next.Winner)
	}
	return nil
}

func (s *Service) record(ctx context.Context, code string, players []string, winner string) {
	game.Record(ctx, s.recorder, game.Result{
		GameID:   room.GameOhPardon,
		RoomCode: code,
		Players:  players,
		Winners:  []string{winner},
	})
}
