package battleships

import (
	"github.com/palemoky/party-games/internal/docstore"
)

// Encode 编码为 gameState.battleships 子文档
func Encode(s Session) docstore.Doc {
	ships := map[string]any{}
	for uid, list := range s.Ships {
		ships[uid] = shipsValue(list)
	}
	mines := map[string]any{}
	for uid, list := range s.Mines {
		mines[uid] = intsValue(list)
	}
	energy := map[string]any{}
	for uid, n := range s.Energy {
		energy[uid] = int64(n)
	}
	return docstore.Doc{
		"starter":     s.Starter,
		"currentTurn": s.CurrentTurn,
		"ships":       ships,
		"mines":       mines,
		"moves":       movesValue(s.Moves),
		"triggered":   triggeredValue(s.Triggered),
		"energy":      energy,
		"result":      s.Result,
	}
}

func shipsValue(ships [][]int) []any {
	rows := make([]any, len(ships))
	for i, ship := range ships {
		rows[i] = intsValue(ship)
	}
	return rows
}

func intsValue(ints []int) []any {
	out := make([]any, len(ints))
	for i, n := range ints {
		out[i] = int64(n)
	}
	return out
}

func movesValue(moves []Move) []any {
	out := make([]any, len(moves))
	for i, m := range moves {
		out[i] = map[string]any{"cell": int64(m.Cell), "playerId": m.PlayerID, "retaliation": m.Retaliation}
	}
	return out
}

func triggeredValue(mines []TriggeredMine) []any {
	out := make([]any, len(mines))
	for i, m := range mines {
		out[i] = map[string]any{"cell": int64(m.Cell), "owner": m.Owner}
	}
	return out
}

// Decode 解析子文档；缺失字段取默认值，类型错误返回 *apperrors.DecodeError
func Decode(doc docstore.Doc) (Session, error) {
	r := docstore.NewReader(doc, "")
	s := New(r.String("starter", ""))
	s.CurrentTurn = r.String("currentTurn", s.Starter)
	s.Result = r.String("result", "")

	ships := r.Map("ships")
	for _, uid := range ships.Keys() {
		s.Ships[uid] = ships.IntLists(uid)
	}
	mines := r.Map("mines")
	for _, uid := range mines.Keys() {
		s.Mines[uid] = mines.Ints(uid)
	}
	energy := r.Map("energy")
	for _, uid := range energy.Keys() {
		s.Energy[uid] = energy.Int(uid, 0)
	}
	for _, m := range r.MapList("moves") {
		s.Moves = append(s.Moves, Move{
			Cell:        m.Int("cell", 0),
			PlayerID:    m.String("playerId", ""),
			Retaliation: m.Bool("retaliation", false),
		})
	}
	for _, m := range r.MapList("triggered") {
		s.Triggered = append(s.Triggered, TriggeredMine{Cell: m.Int("cell", 0), Owner: m.String("owner", "")})
	}

	if err := r.Err(); err != nil {
		return Session{}, err
	}
	return s, nil
}
