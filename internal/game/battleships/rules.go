package battleships

import (
	"math/rand/v2"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

// Placement 一艘船的摆放：船头坐标、长度、方向
type Placement struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Length   int  `json:"length"`
	Vertical bool `json:"vertical"`
}

// Cells 船占据的格子
func (p Placement) Cells() ([]int, error) {
	if p.Length <= 0 {
		return nil, apperrors.New(protocol.ErrCodeInvalidFleet, "船的长度无效: %d", p.Length)
	}
	cells := make([]int, 0, p.Length)
	for i := range p.Length {
		x, y := p.X, p.Y
		if p.Vertical {
			y += i
		} else {
			x += i
		}
		if !inBounds(x, y) {
			return nil, apperrors.New(protocol.ErrCodeInvalidFleet, "船超出棋盘: (%d,%d)", x, y)
		}
		cells = append(cells, CellOf(x, y))
	}
	return cells, nil
}

func inBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

// Outcome 一次开火的结果
type Outcome struct {
	Session     Session
	Cell        int
	Hit         bool  // 击中了船
	MineHit     bool  // 触发了水雷
	Retaliation []int // 雷主反击的格子
	EnergyDelta map[string]int
	Winner      string
}

func opponentOf(players []string, uid string) string {
	for _, p := range players {
		if p != uid {
			return p
		}
	}
	return ""
}

// PlaceFleet 布阵。船必须横平竖直、互不重叠、长度与舰队一致；水雷不能放在自己的船上。
func PlaceFleet(s Session, players []string, uid string, fleet []Placement, mines []int) (Session, error) {
	if !slices.Contains(players, uid) {
		return s, apperrors.ErrNotInRoom
	}
	if s.Result != "" {
		return s, apperrors.ErrGameOver
	}
	if s.Placed(uid) {
		return s, apperrors.ErrWrongPhase
	}

	lengths := make([]int, len(fleet))
	for i, p := range fleet {
		lengths[i] = p.Length
	}
	want := slices.Clone(FleetLengths)
	slices.Sort(lengths)
	slices.Sort(want)
	if !slices.Equal(lengths, want) {
		return s, apperrors.New(protocol.ErrCodeInvalidFleet, "舰队必须由长度 %v 的船组成", FleetLengths)
	}

	occupied := make(map[int]bool)
	ships := make([][]int, 0, len(fleet))
	for _, p := range fleet {
		cells, err := p.Cells()
		if err != nil {
			return s, err
		}
		for _, c := range cells {
			if occupied[c] {
				return s, apperrors.New(protocol.ErrCodeInvalidFleet, "船只重叠: %d", c)
			}
			occupied[c] = true
		}
		ships = append(ships, cells)
	}

	if len(mines) != MinesPerPlayer {
		return s, apperrors.New(protocol.ErrCodeInvalidFleet, "需要布置 %d 颗水雷", MinesPerPlayer)
	}
	seen := make(map[int]bool)
	for _, m := range mines {
		if m < 0 || m >= Cells || seen[m] || occupied[m] {
			return s, apperrors.New(protocol.ErrCodeInvalidFleet, "水雷位置无效: %d", m)
		}
		seen[m] = true
	}

	out := s.Clone()
	out.Ships[uid] = ships
	out.Mines[uid] = slices.Clone(mines)
	slices.Sort(out.Mines[uid])
	return out, nil
}

// Fire 向对方棋盘 (x,y) 开火。
// 触雷时移除该雷，雷主立即向攻击方未被击中的格子反击 3 次；两种情况都交换回合、结算新击沉船只的能量并判断胜负。
func Fire(s Session, players []string, uid string, x, y int, rng *rand.Rand) (Outcome, error) {
	if s.Result != "" {
		return Outcome{}, apperrors.ErrGameOver
	}
	if !slices.Contains(players, uid) {
		return Outcome{}, apperrors.ErrNotInRoom
	}
	opp := opponentOf(players, uid)
	if opp == "" {
		return Outcome{}, apperrors.ErrNoOpponent
	}
	if !s.Started(players) {
		return Outcome{}, apperrors.ErrGameNotStart
	}
	if s.CurrentTurn != uid {
		return Outcome{}, apperrors.ErrNotYourTurn
	}
	if !inBounds(x, y) {
		return Outcome{}, apperrors.ErrOutOfRange
	}
	cell := CellOf(x, y)
	if s.HitsOn(opp)[cell] {
		return Outcome{}, apperrors.ErrAlreadyFired
	}

	before := map[string]int{uid: s.SunkCount(uid), opp: s.SunkCount(opp)}
	next := s.Clone()
	out := Outcome{Cell: cell, Hit: onShip(s.Ships[opp], cell)}

	next.Moves = append(next.Moves, Move{Cell: cell, PlayerID: uid})
	if i := slices.Index(next.Mines[opp], cell); i >= 0 {
		out.MineHit = true
		next.Mines[opp] = slices.Delete(next.Mines[opp], i, i+1)
		next.Triggered = append(next.Triggered, TriggeredMine{Cell: cell, Owner: opp})
		out.Retaliation = retaliate(next, uid, rng)
		for _, c := range out.Retaliation {
			next.Moves = append(next.Moves, Move{Cell: c, PlayerID: opp, Retaliation: true})
		}
	}
	next.CurrentTurn = opp

	// 每艘新击沉的船：对手 +1，被击沉方 +2
	out.EnergyDelta = map[string]int{}
	for _, side := range []string{uid, opp} {
		if n := next.SunkCount(side) - before[side]; n > 0 {
			out.EnergyDelta[opponentOf(players, side)] += n
			out.EnergyDelta[side] += 2 * n
		}
	}
	for p, d := range out.EnergyDelta {
		next.Energy[p] += d
	}

	switch {
	case next.FleetDestroyed(opp):
		out.Winner = uid
	case next.FleetDestroyed(uid):
		out.Winner = opp
	}
	next.Result = out.Winner
	out.Session = next
	return out, nil
}

func onShip(ships [][]int, cell int) bool {
	for _, ship := range ships {
		if slices.Contains(ship, cell) {
			return true
		}
	}
	return false
}

// retaliate 在 target 棋盘上随机挑选未被击中的格子
func retaliate(s Session, target string, rng *rand.Rand) []int {
	hits := s.HitsOn(target)
	candidates := make([]int, 0, Cells)
	for c := range Cells {
		if !hits[c] {
			candidates = append(candidates, c)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	n := min(RetaliationShots, len(candidates))
	return slices.Clone(candidates[:n])
}

// Surrender 认输，对手获胜
func Surrender(s Session, players []string, uid string) (Session, error) {
	if s.Result != "" {
		return s, apperrors.ErrGameOver
	}
	if !slices.Contains(players, uid) {
		return s, apperrors.ErrNotInRoom
	}
	opp := opponentOf(players, uid)
	if opp == "" {
		return s, apperrors.ErrNoOpponent
	}
	out := s.Clone()
	out.Result = opp
	return out, nil
}

// Reset 再来一局，上一局的后手先手
func Reset(prev Session, players []string) Session {
	starter := opponentOf(players, prev.Starter)
	if starter == "" && len(players) > 0 {
		starter = players[0]
	}
	return New(starter)
}
