package triviatoe

import (
	"math/rand/v2"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

// PlaceOutcome 落子结果
type PlaceOutcome struct {
	Session Session
	Cell    int
	Winner  string
	Draw    bool
}

// Start 随机分配 X/O 并出第一题
func Start(s Session, players []string, questions []Question, rng *rand.Rand) (Session, error) {
	if s.State != StateXOAssign {
		return s, apperrors.ErrWrongPhase
	}
	if len(players) != 2 {
		return s, apperrors.ErrNotEnoughPlayers
	}
	next := s.Clone()
	next.X, next.O = players[0], players[1]
	if rng.IntN(2) == 1 {
		next.X, next.O = next.O, next.X
	}
	nextQuestion(&next, questions, rng)
	return next, nil
}

// nextQuestion 出一道本局没出过的题，题库用完后重新开始
func nextQuestion(s *Session, questions []Question, rng *rand.Rand) {
	if len(s.Asked) >= len(questions) {
		s.Asked = []int{}
	}
	var pool []int
	for i := range questions {
		if !slices.Contains(s.Asked, i) {
			pool = append(pool, i)
		}
	}
	idx := pool[rng.IntN(len(pool))]
	s.Asked = append(s.Asked, idx)
	s.Question = questions[idx]
	s.Question.Choices = slices.Clone(s.Question.Choices)
	s.Round++
	s.Answers = map[string]Answer{}
	s.FirstMover = ""
	s.Ready = []string{}
	s.State = StateQuestion
}

func checkPlayer(s Session, uid string) error {
	if s.State == StateFinished {
		return apperrors.ErrGameOver
	}
	if uid == "" || (uid != s.X && uid != s.O) {
		return apperrors.ErrNotInRoom
	}
	return nil
}

// AnswerQuestion 作答，每人每轮一次；双方都答完后进入 REVEAL 并决定先手
func AnswerQuestion(s Session, uid string, choice int, at int64) (Session, error) {
	if err := checkPlayer(s, uid); err != nil {
		return s, err
	}
	if s.State != StateQuestion {
		return s, apperrors.ErrWrongPhase
	}
	if _, ok := s.Answers[uid]; ok {
		return s, apperrors.New(protocol.ErrCodeInvalidMove, "本轮已经作答")
	}
	if choice < 0 || choice >= len(s.Question.Choices) {
		return s, apperrors.ErrOutOfRange
	}

	next := s.Clone()
	next.Answers[uid] = Answer{Choice: choice, At: at}
	if len(next.Answers) == 2 {
		next.FirstMover = firstMover(next)
		next.State = StateReveal
	}
	return next, nil
}

// firstMover 答对优先，同对同错时先答者优先，同时作答时 X 优先
func firstMover(s Session) string {
	ax, ao := s.Answers[s.X], s.Answers[s.O]
	xOK, oOK := ax.Choice == s.Question.Answer, ao.Choice == s.Question.Answer
	switch {
	case xOK && !oOK:
		return s.X
	case oOK && !xOK:
		return s.O
	case ao.At < ax.At:
		return s.O
	default:
		return s.X
	}
}

// BeginMoves 揭晓结束，进入 MOVE_1
func BeginMoves(s Session) (Session, error) {
	if s.State != StateReveal {
		return s, apperrors.ErrWrongPhase
	}
	next := s.Clone()
	next.State = StateMove1
	return next, nil
}

// Place 落子。MOVE_1 只接受先手，MOVE_2 只接受另一位；REVEAL 阶段先手落子视为提前结束揭晓。
func Place(s Session, uid string, cell int) (PlaceOutcome, error) {
	if err := checkPlayer(s, uid); err != nil {
		return PlaceOutcome{}, err
	}
	var mover string
	switch s.State {
	case StateReveal, StateMove1:
		mover = s.FirstMover
	case StateMove2:
		mover = s.Opponent(s.FirstMover)
	default:
		return PlaceOutcome{}, apperrors.ErrWrongPhase
	}
	if uid != mover {
		return PlaceOutcome{}, apperrors.ErrNotYourTurn
	}
	if cell < 0 || cell >= Cells {
		return PlaceOutcome{}, apperrors.ErrOutOfRange
	}
	if s.Board[cell] != "" {
		return PlaceOutcome{}, apperrors.New(protocol.ErrCodeInvalidMove, "格子 %d 已被占用", cell)
	}

	next := s.Clone()
	next.Board[cell] = next.Mark(uid)
	first := s.State != StateMove2
	if first && LineWinner(next.Board) == "" && !Full(next.Board) {
		next.State = StateMove2
	} else {
		next.State = StateCheckWin
		checkWin(&next)
	}
	return PlaceOutcome{Session: next, Cell: cell, Winner: next.Winner, Draw: next.Draw}, nil
}

// checkWin 三连获胜，满盘平局，否则等待双方准备下一轮
func checkWin(s *Session) {
	switch m := LineWinner(s.Board); {
	case m == MarkX:
		s.Winner, s.State = s.X, StateFinished
	case m == MarkO:
		s.Winner, s.State = s.O, StateFinished
	case Full(s.Board):
		s.Draw, s.State = true, StateFinished
	default:
		s.State = StateWaitingForReady
	}
}

// MarkReady 准备下一轮；双方都准备后出下一题
func MarkReady(s Session, uid string, questions []Question, rng *rand.Rand) (Session, error) {
	if err := checkPlayer(s, uid); err != nil {
		return s, err
	}
	if s.State != StateWaitingForReady {
		return s, apperrors.ErrWrongPhase
	}
	next := s.Clone()
	if !slices.Contains(next.Ready, uid) {
		next.Ready = append(next.Ready, uid)
	}
	if len(next.Ready) == 2 {
		nextQuestion(&next, questions, rng)
	}
	return next, nil
}

// Surrender 认输
func Surrender(s Session, uid string) (Session, error) {
	if err := checkPlayer(s, uid); err != nil {
		return s, err
	}
	if s.State == StateXOAssign {
		return s, apperrors.ErrGameNotStart
	}
	next := s.Clone()
	next.Winner = s.Opponent(uid)
	next.State = StateFinished
	return next, nil
}
