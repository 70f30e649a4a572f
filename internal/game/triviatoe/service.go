package triviatoe

import (
	"context"
	"encoding/json"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/scheduler"
)

// 动作类型
const (
	ActionAnswer    = "answer"
	ActionPlace     = "place"
	ActionReady     = "ready"
	ActionSurrender = "surrender"
)

// DefaultRevealDelay 揭晓答案的展示时间
const DefaultRevealDelay = 3 * time.Second

// AnswerData 作答动作
type AnswerData struct {
	Choice int `json:"choice"`
}

// PlaceData 落子动作
type PlaceData struct {
	Cell int `json:"cell"`
}

// Service 问答井字棋服务，服务器负责裁决所有状态转换
type Service struct {
	sync        *gamesync.Syncer[Session]
	recorder    game.Recorder
	questions   []Question
	revealDelay time.Duration
	now         func() time.Time

	rng   *rand.Rand
	rngMu sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*scheduler.Task
}

// Option 服务选项
type Option func(*Service)

// WithQuestions 替换内置题库
func WithQuestions(qs []Question) Option {
	return func(s *Service) {
		if len(qs) > 0 {
			s.questions = qs
		}
	}
}

// WithRevealDelay 设置揭晓展示时间
func WithRevealDelay(d time.Duration) Option {
	return func(s *Service) { s.revealDelay = d }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建服务
func NewService(store docstore.Store, retry gamesync.RetryPolicy, recorder game.Recorder, rng *rand.Rand, opts ...Option) *Service {
	if recorder == nil {
		recorder = game.NopRecorder{}
	}
	s := &Service{
		sync:        gamesync.New(store, room.GameTriviatoe, Decode, Encode, retry),
		recorder:    recorder,
		questions:   BuiltinQuestions(),
		revealDelay: DefaultRevealDelay,
		now:         time.Now,
		rng:         rng,
		timers:      map[string]*scheduler.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GameID 游戏 ID
func (s *Service) GameID() string { return room.GameTriviatoe }

func (s *Service) start(r *room.Room) (docstore.Doc, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	sess, err := Start(New(), r.PlayerUIDs(), s.questions, s.rng)
	if err != nil {
		return nil, err
	}
	return Encode(sess), nil
}

// Hooks 开局和重开都重新分配 X/O
func (s *Service) Hooks() room.Hooks {
	return room.Hooks{
		MinPlayers: 2,
		Start:      s.start,
		Reset:      s.start,
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
	case ActionAnswer:
		var d AnswerData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "作答数据无效: %v", err)
		}
		return s.Answer(ctx, code, uid, d.Choice)
	case ActionPlace:
		var d PlaceData
		if err := json.Unmarshal(data, &d); err != nil {
			return apperrors.New(protocol.ErrCodeInvalidMsg, "落子数据无效: %v", err)
		}
		_, err := s.Place(ctx, code, uid, d.Cell)
		return err
	case ActionReady:
		return s.Ready(ctx, code, uid)
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

// Answer 作答，时间以服务器收到为准
func (s *Service) Answer(ctx context.Context, code, uid string, choice int) error {
	var next Session
	at := s.now().UnixMilli()
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		n, err := AnswerQuestion(sess, uid, choice, at)
		if err != nil {
			return nil, err
		}
		next = n
		return &gamesync.Change{State: docstore.Updates{
			"answers." + uid: map[string]any{"choice": int64(choice), "at": at},
			"state":          string(n.State),
			"firstMover":     n.FirstMover,
		}}, nil
	})
	if err != nil {
		return err
	}
	if next.State == StateReveal {
		logger.WithField("room", code).Debugf("💡 第 %d 轮揭晓，%s 先手", next.Round, next.FirstMover)
		s.scheduleMoves(ctx, code, next.Round)
	}
	return nil
}

// scheduleMoves 揭晓展示结束后进入 MOVE_1；计时器触发后从 timers 中移除
func (s *Service) scheduleMoves(ctx context.Context, code string, round int) {
	var task *scheduler.Task

	s.timersMu.Lock()
	prev := s.timers[code]
	task = scheduler.After(context.WithoutCancel(ctx), s.revealDelay, func(ctx context.Context) {
		defer func() {
			s.timersMu.Lock()
			if s.timers[code] == task {
				delete(s.timers, code)
			}
			s.timersMu.Unlock()
		}()

		err := s.sync.Mutate(ctx, code, func(_ *room.Room, sess Session) (*gamesync.Change, error) {
			if sess.State != StateReveal || sess.Round != round {
				return nil, nil
			}
			n, err := BeginMoves(sess)
			if err != nil {
				return nil, err
			}
			return &gamesync.Change{State: docstore.Updates{"state": string(n.State)}}, nil
		})
		if err != nil {
			logger.WithField("room", code).Warnf("⚠️ 进入落子阶段失败: %v", err)
		}
	})
	s.timers[code] = task
	s.timersMu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// pendingTimers 尚未触发的计时器数量
func (s *Service) pendingTimers() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return len(s.timers)
}

// Place 落子
func (s *Service) Place(ctx context.Context, code, uid string, cell int) (PlaceOutcome, error) {
	var out PlaceOutcome
	err := s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		o, err := Place(sess, uid, cell)
		if err != nil {
			return nil, err
		}
		out = o
		change := &gamesync.Change{State: docstore.Updates{
			"board": stringsValue(o.Session.Board),
			"state": string(o.Session.State),
		}}
		if o.Session.State == StateFinished {
			change.State["winner"] = o.Winner
			change.State["draw"] = o.Draw
			change.Status = room.StatusEnded
		}
		return change, nil
	})
	if err != nil {
		return PlaceOutcome{}, err
	}
	if out.Session.State == StateFinished {
		log := logger.WithField("room", code)
		if out.Draw {
			log.Info("🤝 问答井字棋平局")
		} else {
			log.Infof("🏆 问答井字棋结束，胜者 %s", out.Winner)
		}
		s.record(ctx, code, out.Session)
	}
	return out, nil
}

// Ready 准备下一轮
func (s *Service) Ready(ctx context.Context, code, uid string) error {
	return s.sync.Mutate(ctx, code, func(r *room.Room, sess Session) (*gamesync.Change, error) {
		if err := requirePlaying(r); err != nil {
			return nil, err
		}
		s.rngMu.Lock()
		n, err := MarkReady(sess, uid, s.questions, s.rng)
		s.rngMu.Unlock()
		if err != nil {
			return nil, err
		}
		updates := docstore.Updates{
			"ready": stringsValue(n.Ready),
			"state": string(n.State),
		}
		if n.State == StateQuestion {
			updates["round"] = int64(n.Round)
			updates["question"] = questionValue(n.Question)
			updates["asked"] = intsValue(n.Asked)
			updates["answers"] = map[string]any{}
			updates["firstMover"] = ""
		}
		return &gamesync.Change{State: updates}, nil
	})
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
		return &gamesync.Change{
			State:  docstore.Updates{"winner": n.Winner, "state": string(n.State)},
			Status: room.StatusEnded,
		}, nil
	})
	if err != nil {
		return err
	}
	logger.WithField("room", code).Infof("🏳️ 玩家 %s 认输", uid)
	s.record(ctx, code, next)
	return nil
}

// Close 停止所有待执行的计时器
func (s *Service) Close() {
	s.timersMu.Lock()
	tasks := slices.Collect(maps.Values(s.timers))
	clear(s.timers)
	s.timersMu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}

func (s *Service) record(ctx context.Context, code string, sess Session) {
	res := game.Result{
		GameID:   room.GameTriviatoe,
		RoomCode: code,
		Players:  sess.Players(),
	}
	if sess.Winner != "" {
		res.Winners = []string{sess.Winner}
	}
	game.Record(ctx, s.recorder, res)

	s.timersMu.Lock()
	t, ok := s.timers[code]
	delete(s.timers, code)
	s.timersMu.Unlock()
	if ok {
		t.Stop()
	}
}
