// Package triviatoe 问答井字棋：先答对的玩家先落子，三连获胜。
package triviatoe

import (
	"maps"
	"slices"
)

// State 回合状态
type State string

// 状态机：XO_ASSIGN → QUESTION → REVEAL → MOVE_1 → MOVE_2 → CHECK_WIN → WAITING_FOR_READY | FINISHED
const (
	StateXOAssign        State = "XO_ASSIGN"
	StateQuestion        State = "QUESTION"
	StateReveal          State = "REVEAL"
	StateMove1           State = "MOVE_1"
	StateMove2           State = "MOVE_2"
	StateCheckWin        State = "CHECK_WIN"
	StateWaitingForReady State = "WAITING_FOR_READY"
	StateFinished        State = "FINISHED"
)

// 棋子
const (
	MarkX = "X"
	MarkO = "O"
)

const Cells = 9

var lines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Answer 玩家的作答，At 为服务器收到的毫秒时间戳
type Answer struct {
	Choice int
	At     int64
}

// Session 问答井字棋会话
type Session struct {
	State      State
	X          string
	O          string
	Board      []string // 9 格，"" / "X" / "O"
	Round      int
	Question   Question
	Asked      []int // 已出过的题号
	Answers    map[string]Answer
	FirstMover string
	Ready      []string
	Winner     string
	Draw       bool
}

// New 等待分配 X/O 的空会话
func New() Session {
	return Session{
		State:   StateXOAssign,
		Board:   make([]string, Cells),
		Asked:   []int{},
		Answers: map[string]Answer{},
		Ready:   []string{},
	}
}

// Clone 深拷贝
func (s Session) Clone() Session {
	out := s
	out.Board = slices.Clone(s.Board)
	out.Question.Choices = slices.Clone(s.Question.Choices)
	out.Asked = slices.Clone(s.Asked)
	out.Answers = maps.Clone(s.Answers)
	out.Ready = slices.Clone(s.Ready)
	return out
}

// Players X 在前
func (s Session) Players() []string {
	return []string{s.X, s.O}
}

// Mark 玩家的棋子
func (s Session) Mark(uid string) string {
	switch uid {
	case s.X:
		return MarkX
	case s.O:
		return MarkO
	}
	return ""
}

// Opponent 对手
func (s Session) Opponent(uid string) string {
	if uid == s.X {
		return s.O
	}
	return s.X
}

// LineWinner 三连的棋子，没有返回空
func LineWinner(board []string) string {
	for _, l := range lines {
		if m := board[l[0]]; m != "" && m == board[l[1]] && m == board[l[2]] {
			return m
		}
	}
	return ""
}

// Full 棋盘是否已满
func Full(board []string) bool {
	return !slices.Contains(board, "")
}
