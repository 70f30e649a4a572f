package ohpardon

// PawnView 一枚棋子
type PawnView struct {
	Pawn     int `json:"pawn"`
	Position int `json:"position"` // 相对位置
	Cell     int `json:"cell"`     // 环上绝对位置，在家或终点通道为 -1
}

// PlayerView 一位玩家的棋子
type PlayerView struct {
	UID       string     `json:"uid"`
	Color     string     `json:"color"`
	Entry     int        `json:"entry"`
	Pawns     []PawnView `json:"pawns"`
	Forfeited bool       `json:"forfeited"`
}

// View 飞行棋局面，所有信息公开
type View struct {
	Players     []PlayerView `json:"players"`
	CurrentTurn string       `json:"current_turn"`
	Roll        int          `json:"roll"`
	Legal       []int        `json:"legal"`
	Winner      string       `json:"winner,omitempty"`
	LastMove    *LogEntry    `json:"last_move,omitempty"`
}

// ViewOf 生成视图
func ViewOf(s Session) View {
	v := View{
		CurrentTurn: s.CurrentTurn,
		Roll:        s.Roll,
		Legal:       LegalPawns(s, s.CurrentTurn),
		Winner:      s.Winner,
	}
	forfeited := make(map[string]bool, len(s.Forfeited))
	for _, uid := range s.Forfeited {
		forfeited[uid] = true
	}
	for _, uid := range s.Players {
		pv := PlayerView{UID: uid, Color: s.Color(uid), Entry: s.Entry(uid), Forfeited: forfeited[uid]}
		for i, pos := range s.Pawns[uid] {
			pv.Pawns = append(pv.Pawns, PawnView{Pawn: i, Position: pos, Cell: s.Absolute(uid, pos)})
		}
		v.Players = append(v.Players, pv)
	}
	if n := len(s.Log); n > 0 {
		last := s.Log[n-1]
		v.LastMove = &last
	}
	return v
}
