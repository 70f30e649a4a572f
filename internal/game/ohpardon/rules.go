package ohpardon

import (
	"math/rand/v2"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

// RollOutcome 掷骰结果
type RollOutcome struct {
	Session Session
	Value   int
	Passed  bool // 没有可走的棋子，回合直接交给下一位
}

// MoveOutcome 走子结果
type MoveOutcome struct {
	Session Session
	Entry   LogEntry
	Winner  string
}

func checkTurn(s Session, uid string) error {
	if s.Winner != "" {
		return apperrors.ErrGameOver
	}
	if s.Seat(uid) < 0 || slices.Contains(s.Forfeited, uid) {
		return apperrors.ErrNotInRoom
	}
	if s.CurrentTurn != uid {
		return apperrors.ErrNotYourTurn
	}
	return nil
}

// Roll 掷骰，每回合一次
func Roll(s Session, uid string, rng *rand.Rand) (RollOutcome, error) {
	if err := checkTurn(s, uid); err != nil {
		return RollOutcome{}, err
	}
	if s.Roll != 0 {
		return RollOutcome{}, apperrors.ErrAlreadyRolled
	}

	next := s.Clone()
	value := rng.IntN(6) + 1
	next.Roll = value
	out := RollOutcome{Value: value}
	if len(LegalPawns(next, uid)) == 0 {
		next.Roll = 0
		next.CurrentTurn = next.next(uid)
		out.Passed = true
	}
	out.Session = next
	return out, nil
}

// target 棋子走 roll 步后的位置；非法返回 false
func target(s Session, uid string, pawn, roll int) (int, bool) {
	pawns := s.Pawns[uid]
	if pawn < 0 || pawn >= len(pawns) {
		return 0, false
	}
	pos := pawns[pawn]
	var to int
	switch {
	case pos == Home && roll == EntryRoll:
		to = 0
	case pos == Home:
		return 0, false
	default:
		to = pos + roll
	}
	if to > GoalEnd {
		return 0, false
	}
	for i, p := range pawns {
		if i != pawn && p == to {
			return 0, false
		}
	}
	return to, true
}

// LegalPawns 当前骰子下可以走的棋子
func LegalPawns(s Session, uid string) []int {
	if s.Roll == 0 {
		return nil
	}
	var out []int
	for i := range s.Pawns[uid] {
		if _, ok := target(s, uid, i, s.Roll); ok {
			out = append(out, i)
		}
	}
	return out
}

// Move 按已掷出的点数走子。落在对手棋子上时把它送回家，除非对方正停在自己的入口上。
func Move(s Session, uid string, pawn int) (MoveOutcome, error) {
	if err := checkTurn(s, uid); err != nil {
		return MoveOutcome{}, err
	}
	if s.Roll == 0 {
		return MoveOutcome{}, apperrors.ErrNotRolled
	}
	to, ok := target(s, uid, pawn, s.Roll)
	if !ok {
		return MoveOutcome{}, apperrors.New(protocol.ErrCodeInvalidMove, "棋子 %d 不能走 %d 步", pawn, s.Roll)
	}

	next := s.Clone()
	entry := LogEntry{PlayerID: uid, Pawn: pawn, From: s.Pawns[uid][pawn], To: to, Roll: s.Roll}
	next.Pawns[uid][pawn] = to

	if abs := next.Absolute(uid, to); abs >= 0 {
		for _, other := range next.Players {
			if other == uid {
				continue
			}
			for i, p := range next.Pawns[other] {
				// 停在自己入口的棋子受保护
				if p == 0 || next.Absolute(other, p) != abs {
					continue
				}
				next.Pawns[other][i] = Home
				entry.Captured = append(entry.Captured, Capture{PlayerID: other, Pawn: i})
			}
		}
	}

	next.Log = append(next.Log, entry)
	next.Roll = 0
	out := MoveOutcome{Entry: entry}
	if next.Finished(uid) {
		next.Winner = uid
		out.Winner = uid
	} else {
		next.CurrentTurn = next.next(uid)
	}
	out.Session = next
	return out, nil
}

// Surrender 认输；只剩一名玩家时该玩家获胜
func Surrender(s Session, uid string) (Session, error) {
	if s.Winner != "" {
		return s, apperrors.ErrGameOver
	}
	if s.Seat(uid) < 0 || slices.Contains(s.Forfeited, uid) {
		return s, apperrors.ErrNotInRoom
	}
	next := s.Clone()
	next.Forfeited = append(next.Forfeited, uid)
	active := next.Active()
	if len(active) == 1 {
		next.Winner = active[0]
	}
	if next.CurrentTurn == uid {
		next.Roll = 0
		next.CurrentTurn = next.next(uid)
	}
	return next, nil
}

// Reset 再来一局，先手顺延到下一个座位
func Reset(prev Session, players []string) Session {
	starter := players[0]
	if i := slices.Index(players, prev.Starter); i >= 0 {
		starter = players[(i+1)%len(players)]
	}
	return New(players, starter)
}
