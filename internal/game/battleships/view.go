package battleships

import "slices"

// MoveView 棋盘上的一次开火
type MoveView struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	PlayerID    string `json:"player_id"`
	Hit         bool   `json:"hit"`
	Retaliation bool   `json:"retaliation"`
}

// PlayerView 某位玩家能看到的局面：自己的船和雷、对方被击沉的船
type PlayerView struct {
	Me            string          `json:"me"`
	Opponent      string          `json:"opponent"`
	CurrentTurn   string          `json:"current_turn"`
	Result        string          `json:"result,omitempty"`
	Placed        map[string]bool `json:"placed"`
	MyShips       [][]int         `json:"my_ships"`
	MyMines       []int           `json:"my_mines"`
	SunkEnemy     [][]int         `json:"sunk_enemy"`
	Moves         []MoveView      `json:"moves"`
	TriggeredMine []int           `json:"triggered_mines"`
	Energy        map[string]int  `json:"energy"`
}

// ViewFor 生成 uid 的视图
func ViewFor(s Session, players []string, uid string) PlayerView {
	opp := opponentOf(players, uid)
	v := PlayerView{
		Me:          uid,
		Opponent:    opp,
		CurrentTurn: s.CurrentTurn,
		Result:      s.Result,
		Placed:      map[string]bool{},
		MyShips:     s.Ships[uid],
		MyMines:     s.Mines[uid],
		SunkEnemy:   [][]int{},
		Energy:      s.Energy,
	}
	for _, p := range players {
		v.Placed[p] = s.Placed(p)
	}

	hits := s.HitsOn(opp)
	for _, ship := range s.Ships[opp] {
		if shipSunk(ship, hits) || s.Result != "" {
			v.SunkEnemy = append(v.SunkEnemy, ship)
		}
	}
	for _, m := range s.Moves {
		target := opp
		if m.PlayerID != uid {
			target = uid
		}
		x, y := XY(m.Cell)
		v.Moves = append(v.Moves, MoveView{
			X:           x,
			Y:           y,
			PlayerID:    m.PlayerID,
			Hit:         onShip(s.Ships[target], m.Cell),
			Retaliation: m.Retaliation,
		})
	}
	for _, t := range s.Triggered {
		v.TriggeredMine = append(v.TriggeredMine, t.Cell)
	}
	slices.Sort(v.TriggeredMine)
	return v
}
