package codenames

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
	ActionJoinTeam  = "join_team"
	ActionClue      = "clue"
	ActionGuess     = "guess"
	ActionEndTurn   = "end_turn"
	ActionSurrender = "surrender"
)

// JoinTeamData 选队动作
type JoinTeamData struct {
	Team string `json:"team"`
	Role string `json:"role"`
}

// ClueData 提示动作
type ClueData struct {
	Word   string `json:"word"`
	Number int    `json:"number"`
}

// GuessData 翻牌动作
type GuessData struct {
	Index int `json:"index"`
}

// Service 行动代号服务
type Service struct {
	sync     *gamesync.Syncer[Session]
	recorder game.Recorder
	words    []string

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewService 创建服务，words 为空时使用内置词库
func NewService(store docstore.Store, retry gamesync.RetryPolicy, recorder game.Recorder, rng *rand.Rand, words []string) *Service {
	if recorder == nil {
		recorder = game.NopRecorder{}
	}
	if len(words) < BoardSize {
		words = Words()
	}
	return &Service{
		sync:     gamesync.New(store, room.GameCodenames, Decode, Encode, retry),
		recorder: recorder,
		words:    words,
		rng:      rng,
	}
}

// GameID 游戏 ID
func (s *Service) GameID() string { return room.GameCodenames }

// Hooks 开局按座位分队发牌，重开保留分队
func (s *Service) Hooks() room.Hooks {
	return room.Hooks{
		MinPlayers: 4,
		Start: func(r *room.Room) (docstore.Doc, error) {
			s.rngMu.Lock()
			defer s.rngMu.Unlock()
			return Encode(Deal(s.words, AutoAssign(r.PlayerUIDs()), s.rng)), nil
		},
		Reset: func(r *room.Room) (docstore.Doc, error) {
			prev, err := Decode(r.GameState)
			if err != nil {
				return nil, err
			}
			s.rngMu.Lock()
			defer s.rngMu.Unlock()
			return Encode(Reset(prev, s.words, s.rng)), nil
		},
	}
}

// Watch 订阅 uid 的视图
func (s *Service) Watch(ctx context.Context, code, uid string) (<-chan gamesync.View, error) {
	updates, err := s.sync.Stream(ctx, code)
	if err != nil {
		return nil, err
	}
	return gamesync.Project(ctx, updates, func(_ *room.Room, sess Session) any {
		return ViewFor(sess, uid)
	}), nil
}

// Act 分发客户端动作
func (s *Service) Act(ctx context.Context, code, uid, kind string, data json.RawMessage) error {
	switch kind {
	case ActionJoinTeam:
		var d JoinTeamData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "选队数据无效: %v", err)
		}
		return s.JoinTeam(ctx, code, uid, d.Team, d.Role)
	case ActionClue:
		var d ClueData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "提示数据无效: %v", err)
		}
		return s.GiveClue(ctx, code, uid, d.Word, d.Number)
	case ActionGuess:
		var d GuessData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "翻牌数据无效: %v", err)
		}
		_, err := s.Guess(ctx, code, uid, d.Index)
		return err
	case ActionEndTurn:
		return s.EndTurn(ctx, code, uid)
	case ActionSurrender:
		return s.Surrender(ctx, code, uid)
	default:
		return apperrors.New(protocol.ErrCodeInvalidMsg, "未知动作: %s", kind)
	}
}

func requirePlaying(r *room.Room, uid string) error {
	switch r.Status {
	case room.StatusWaiting:
		return apperrors.ErrGameNotStart
	case room.StatusEnded:
		return apperrors.ErrGameOver
	}
	if !r.HasPlayer(uid) {
		return apperrors.ErrNotInRoom
	}
	return nil
}

// turnUpdates 换手后需要写回的字段
func turnUpdates(n Session) docstore.Updates {
	return docstore.Updates{
		"currentTeam":   n.CurrentTeam,
		"isMasterPhase": n.MasterPhase,
		"clue":          clueValue(n.Clue),
		"guessesLeft":   int64(n.GuessesLeft),
	}
}

// JoinTeam 选择队伍和角色
func (s *Service) JoinTeam(ctx context.Context, code, uid, team, role string) error {
	return s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r, uid); err != nil {
			return nil, err
		}
		next, err := JoinTeam(sess, uid, team, role)
		if err != nil {
			return nil, err
		}
		return &gamesync.Change{State: docstore.Updates{
			"members." + uid: memberValue(next.Members[uid]),
		}}, nil
	})
}

// GiveClue 队长给提示
func (s *Service) GiveClue(ctx context.Context, code, uid, word string, number int) error {
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r, uid); err != nil {
			return nil, err
		}
		next, err := GiveClue(sess, uid, word, number)
		if err != nil {
			return nil, err
		}
		updates := turnUpdates(next)
		updates["clues"] = cluesValue(next.Clues)
		return &gamesync.Change{State: updates}, nil
	})
	if err != nil {
		return err
	}
	logger.WithField("room", code).Debugf("🕵️ 队长 %s 提示: %s %d", uid, word, number)
	return nil
}

// Guess 翻牌
func (s *Service) Guess(ctx context.Context, code, uid string, index int) (GuessOutcome, error) {
	var out GuessOutcome
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r, uid); err != nil {
			return nil, err
		}
		o, err := Guess(sess, uid, index)
		if err != nil {
			return nil, err
		}
		out = o
		next := o.Session
		remaining := map[string]any{}
		for team, n := range next.Remaining {
			remaining[team] = int64(n)
		}
		updates := turnUpdates(next)
		updates["cards"] = cardsValue(next.Cards)
		updates["remaining"] = remaining
		change := &gamesync.Change{State: updates}
		if o.Winner != "" {
			updates["winner"] = o.Winner
			change.Status = room.StatusEnded
		}
		return change, nil
	})
	if err != nil {
		return GuessOutcome{}, err
	}

	if out.Winner != "" {
		log := logger.WithField("room", code)
		if out.Color == ColorAssassin {
			log.Infof("💀 %s 翻到了刺客", uid)
		}
		log.Infof("🏆 行动代号结束，%s 队获胜", out.Winner)
		s.record(ctx, code, out.Session)
	}
	return out, nil
}

// EndTurn 结束本回合
func (s *Service) EndTurn(ctx context.Context, code, uid string) error {
	return s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r, uid); err != nil {
			return nil, err
		}
		next, err := EndTurn(sess, uid)
		if err != nil {
			return nil, err
		}
		return &gamesync.Change{State: turnUpdates(next)}, nil
	})
}

// Surrender 认输
func (s *Service) Surrender(ctx context.Context, code, uid string) error {
	var next Session
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r, uid); err != nil {
			return nil, err
		}
		n, err := Surrender(sess, uid)
		if err != nil {
			return nil, err
		}
		next = n
		return &gamesync.Change{
			State:  docstore.Updates{"winner": n.Winner},
			Status: room.StatusEnded,
		}, nil
	})
	if err != nil {
		return err
	}
	logger.WithField("room", code).Infof("🏳️ 玩家 %s 认输，%s 队获胜", uid, next.Winner)
	s.record(ctx, code, next)
	return nil
}

func (s *Service) record(ctx context.Context, code string, sess Session) {
	game.Record(ctx, s.recorder, game.Result{
		GameID:   room.GameCodenames,
		RoomCode: code,
		Players:  sortedMembers(sess),
		Winners:  sess.TeamMembers(sess.Winner),
	})
}
