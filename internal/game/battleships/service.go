package battleships

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
	ActionPlaceFleet = "place_fleet"
	ActionFire       = "fire"
	ActionSurrender  = "surrender"
)

// PlaceFleetData 布阵动作
type PlaceFleetData struct {
	Ships []Placement `json:"ships"`
	Mines []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"mines"`
}

// FireData 开火动作
type FireData struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Service 海战棋服务
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
		sync:     gamesync.New(store, room.GameBattleships, Decode, Encode, retry),
		recorder: recorder,
		rng:      rng,
	}
}

// GameID 游戏 ID
func (s *Service) GameID() string { return room.GameBattleships }

// Hooks 房间开局和重开钩子
func (s *Service) Hooks() room.Hooks {
	return room.Hooks{
		MinPlayers: 2,
		Start: func(r *room.Room) (docstore.Doc, error) {
			s.rngMu.Lock()
			starter := r.Players[s.rng.IntN(len(r.Players))].UID
			s.rngMu.Unlock()
			return Encode(New(starter)), nil
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

// Stream 订阅会话
func (s *Service) Stream(ctx context.Context, code string) (<-chan gamesync.Update[Session], error) {
	return s.sync.Stream(ctx, code)
}

// Watch 订阅 uid 的视图
func (s *Service) Watch(ctx context.Context, code, uid string) (<-chan gamesync.View, error) {
	updates, err := s.sync.Stream(ctx, code)
	if err != nil {
		return nil, err
	}
	return gamesync.Project(ctx, updates, func(r *room.Room, sess Session) any {
		return ViewFor(sess, r.PlayerUIDs(), uid)
	}), nil
}

// Act 分发客户端动作
func (s *Service) Act(ctx context.Context, code, uid, kind string, data json.RawMessage) error {
	switch kind {
	case ActionPlaceFleet:
		var d PlaceFleetData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "布阵数据无效: %v", err)
		}
		mines := make([]int, 0, len(d.Mines))
		for _, m := range d.Mines {
			if !inBounds(m.X, m.Y) {
				return apperrors.ErrOutOfRange
			}
			mines = append(mines, CellOf(m.X, m.Y))
		}
		return s.PlaceFleet(ctx, code, uid, d.Ships, mines)
	case ActionFire:
		var d FireData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "开火数据无效: %v", err)
		}
		_, err := s.Fire(ctx, code, uid, d.X, d.Y)
		return err
	case ActionSurrender:
		return s.Surrender(ctx, code, uid)
	default:
		return apperrors.New(protocol.ErrCodeInvalidMsg, "未知动作: %s", kind)
	}
}

// PlaceFleet 布阵
func (s *Service) PlaceFleet(ctx context.Context, code, uid string, fleet []Placement, mines []int) error {
	return s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if r.Status != room.StatusPlaying {
			return nil, apperrors.ErrGameNotStart
		}
		next, err := PlaceFleet(sess, r.PlayerUIDs(), uid, fleet, mines)
		if err != nil {
			return nil, err
		}
		return &gamesync.Change{State: docstore.Updates{
			"ships." + uid: shipsValue(next.Ships[uid]),
			"mines." + uid: intsValue(next.Mines[uid]),
		}}, nil
	})
}

// Fire 开火。能量以原子自增写入。
func (s *Service) Fire(ctx context.Context, code, uid string, x, y int) (Outcome, error) {
	var (
		out     Outcome
		players []string
	)
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if r.Status == room.StatusWaiting {
			return nil, apperrors.ErrGameNotStart
		}
		players = r.PlayerUIDs()

		s.rngMu.Lock()
		o, err := Fire(sess, players, uid, x, y, s.rng)
		s.rngMu.Unlock()
		if err != nil {
			return nil, err
		}
		out = o
		return fireChange(sess, o), nil
	})
	if err != nil {
		return Outcome{}, err
	}

	log := logger.WithField("room", code)
	if out.MineHit {
		log.Infof("💥 玩家 %s 在 (%d,%d) 触雷，遭到 %d 次反击", uid, x, y, len(out.Retaliation))
	}
	if out.Winner != "" {
		log.Infof("🏆 海战棋结束，胜者 %s", out.Winner)
		s.record(ctx, code, players, out.Winner)
	}
	return out, nil
}

// fireChange 构造开火的增量写入
func fireChange(prev Session, o Outcome) *gamesync.Change {
	next := o.Session
	updates := docstore.Updates{
		"moves":       movesValue(next.Moves),
		"currentTurn": next.CurrentTurn,
	}
	if o.MineHit {
		updates["triggered"] = triggeredValue(next.Triggered)
		for uid, mines := range next.Mines {
			if len(mines) != len(prev.Mines[uid]) {
				updates["mines."+uid] = intsValue(mines)
			}
		}
	}
	for uid, d := range o.EnergyDelta {
		if d != 0 {
			updates["energy."+uid] = docstore.Increment(int64(d))
		}
	}
	change := &gamesync.Change{State: updates}
	if o.Winner != "" {
		updates["result"] = o.Winner
		change.Status = room.StatusEnded
	}
	return change
}

// Surrender 认输
func (s *Service) Surrender(ctx context.Context, code, uid string) error {
	var (
		winner  string
		players []string
	)
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if r.Status == room.StatusWaiting {
			return nil, apperrors.ErrGameNotStart
		}
		players = r.PlayerUIDs()
		next, err := Surrender(sess, players, uid)
		if err != nil {
			return nil, err
		}
		winner = next.Result
		return &gamesync.Change{
			State:  docstore.Updates{"result": next.Result},
			Status: room.StatusEnded,
		}, nil
	})
	if err != nil {
		return err
	}
	logger.WithField("room", code).Infof("🏳️ 玩家 %s 认输", uid)
	s.record(ctx, code, players, winner)
	return nil
}

func (s *Service) record(ctx context.Context, code string, players []string, winner string) {
	game.Record(ctx, s.recorder, game.Result{
		GameID:   room.GameBattleships,
		RoomCode: code,
		Players:  players,
		Winners:  []string{winner},
	})
}
