package ohpardon

import (
	"github.com/palemoky/party-games/internal/docstore"
)

// Encode 编码为 gameState.ohpardon 子文档
func Encode(s Session) docstore.Doc {
	pawns := map[string]any{}
	for uid, p := range s.Pawns {
		pawns[uid] = intsValue(p)
	}
	return docstore.Doc{
		"players":     stringsValue(s.Players),
		"pawns":       pawns,
		"starter":     s.Starter,
		"currentTurn": s.CurrentTurn,
		"roll":        int64(s.Roll),
		"log":         logValue(s.Log),
		"forfeited":   stringsValue(s.Forfeited),
		"winner":      s.Winner,
	}
}

func intsValue(ints []int) []any {
	out := make([]any, len(ints))
	for i, n := range ints {
		out[i] = int64(n)
	}
	return out
}

func stringsValue(ss []string) []any {
	out := make([]any, len(ss))
	for i, v := range ss {
		out[i] = v
	}
	return out
}

func logValue(log []LogEntry) []any {
	out := make([]any, len(log))
	for i, e := range log {
		captured := make([]any, len(e.Captured))
		for j, c := range e.Captured {
			captured[j] = map[string]any{"playerId": c.PlayerID, "pawn": int64(c.Pawn)}
		}
		out[i] = map[string]any{
			"playerId": e.PlayerID,
			"pawn":     int64(e.Pawn),
			"from":     int64(e.From),
			"to":       int64(e.To),
			"roll":     int64(e.Roll),
			"captured": captured,
		}
	}
	return out
}

// Decode 解析子文档
func Decode(doc docstore.Doc) (Session, error) {
	r := docstore.NewReader(doc, "")
	s := New(r.Strings("players"), r.String("starter", ""))
	s.CurrentTurn = r.String("currentTurn", s.Starter)
	s.Roll = r.Int("roll", 0)
	s.Winner = r.String("winner", "")
	if f := r.Strings("forfeited"); f != nil {
		s.Forfeited = f
	}

	pawns := r.Map("pawns")
	for _, uid := range pawns.Keys() {
		s.Pawns[uid] = pawns.Ints(uid)
	}
	for _, e := range r.MapList("log") {
		entry := LogEntry{
			PlayerID: e.String("playerId", ""),
			Pawn:     e.Int("pawn", 0),
			From:     e.Int("from", Home),
			To:       e.Int("to", Home),
			Roll:     e.Int("roll", 0),
		}
		for _, c := range e.MapList("captured") {
			entry.Captured = append(entry.Captured, Capture{PlayerID: c.String("playerId", ""), Pawn: c.Int("pawn", 0)})
		}
		s.Log = append(s.Log, entry)
	}

	if err := r.Err(); err != nil {
		return Session{}, err
	}
	return s, nil
}
