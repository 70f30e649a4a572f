// Package battleships 海战棋：布阵、开火、水雷反击和能量奖励。
package battleships

import (
	"maps"
	"slices"
)

const (
	BoardSize      = 10
	Cells          = BoardSize * BoardSize
	MinesPerPlayer = 2
	// RetaliationShots 触雷后雷主反击的次数
	RetaliationShots = 3
)

// FleetLengths 每位玩家的舰队
var FleetLengths = []int{5, 4, 3, 3, 2}

// Move 一次开火，PlayerID 为开火方，目标是对方的棋盘
type Move struct {
	Cell        int
	PlayerID    string
	Retaliation bool
}

// TriggeredMine 被触发的水雷
type TriggeredMine struct {
	Cell  int
	Owner string
}

// Session 海战棋会话
type Session struct {
	Starter     string
	CurrentTurn string
	Ships       map[string][][]int // uid -> 每艘船占据的格子
	Mines       map[string][]int   // uid -> 尚未触发的水雷
	Moves       []Move
	Triggered   []TriggeredMine
	Energy      map[string]int
	Result      string // 胜者 uid，空表示未结束
}

// New 新的一局，starter 先手
func New(starter string) Session {
	return Session{
		Starter:     starter,
		CurrentTurn: starter,
		Ships:       map[string][][]int{},
		Mines:       map[string][]int{},
		Moves:       []Move{},
		Triggered:   []TriggeredMine{},
		Energy:      map[string]int{},
	}
}

// Clone 深拷贝
func (s Session) Clone() Session {
	out := s
	out.Ships = make(map[string][][]int, len(s.Ships))
	for uid, ships := range s.Ships {
		cp := make([][]int, len(ships))
		for i, ship := range ships {
			cp[i] = slices.Clone(ship)
		}
		out.Ships[uid] = cp
	}
	out.Mines = make(map[string][]int, len(s.Mines))
	for uid, mines := range s.Mines {
		out.Mines[uid] = slices.Clone(mines)
	}
	out.Moves = slices.Clone(s.Moves)
	out.Triggered = slices.Clone(s.Triggered)
	out.Energy = maps.Clone(s.Energy)
	if out.Energy == nil {
		out.Energy = map[string]int{}
	}
	return out
}

// Placed 玩家是否已布阵
func (s Session) Placed(uid string) bool {
	return len(s.Ships[uid]) > 0
}

// Started 双方都已布阵
func (s Session) Started(players []string) bool {
	if len(players) < 2 {
		return false
	}
	for _, uid := range players {
		if !s.Placed(uid) {
			return false
		}
	}
	return true
}

// HitsOn 返回 uid 棋盘上被对方击中过的格子
func (s Session) HitsOn(uid string) map[int]bool {
	hits := make(map[int]bool)
	for _, m := range s.Moves {
		if m.PlayerID != uid {
			hits[m.Cell] = true
		}
	}
	return hits
}

// SunkCount 返回 uid 已被击沉的船数
func (s Session) SunkCount(uid string) int {
	hits := s.HitsOn(uid)
	n := 0
	for _, ship := range s.Ships[uid] {
		if shipSunk(ship, hits) {
			n++
		}
	}
	return n
}

// FleetDestroyed uid 的所有船格都被击中
func (s Session) FleetDestroyed(uid string) bool {
	ships := s.Ships[uid]
	return len(ships) > 0 && s.SunkCount(uid) == len(ships)
}

func shipSunk(ship []int, hits map[int]bool) bool {
	for _, c := range ship {
		if !hits[c] {
			return false
		}
	}
	return true
}

// CellOf 坐标转格子编号
func CellOf(x, y int) int {
	return y*BoardSize + x
}

// XY 格子编号转坐标
func XY(cell int) (x, y int) {
	return cell % BoardSize, cell / BoardSize
}
