package codenames

import (
	"github.com/palemoky/party-games/internal/docstore"
)

// Encode 编码为 gameState.codenames 子文档
func Encode(s Session) docstore.Doc {
	members := map[string]any{}
	for uid, m := range s.Members {
		members[uid] = memberValue(m)
	}
	remaining := map[string]any{}
	for team, n := range s.Remaining {
		remaining[team] = int64(n)
	}
	return docstore.Doc{
		"cards":         cardsValue(s.Cards),
		"members":       members,
		"startingTeam":  s.StartingTeam,
		"currentTeam":   s.CurrentTeam,
		"isMasterPhase": s.MasterPhase,
		"clue":          clueValue(s.Clue),
		"guessesLeft":   int64(s.GuessesLeft),
		"remaining":     remaining,
		"clues":         cluesValue(s.Clues),
		"winner":        s.Winner,
	}
}

func memberValue(m Member) map[string]any {
	return map[string]any{"team": m.Team, "role": m.Role}
}

func cardsValue(cards []Card) []any {
	out := make([]any, len(cards))
	for i, c := range cards {
		out[i] = map[string]any{"word": c.Word, "color": c.Color, "revealed": c.Revealed}
	}
	return out
}

func clueValue(c Clue) map[string]any {
	return map[string]any{"team": c.Team, "word": c.Word, "number": int64(c.Number)}
}

func cluesValue(clues []Clue) []any {
	out := make([]any, len(clues))
	for i, c := range clues {
		out[i] = clueValue(c)
	}
	return out
}

// Decode 解析子文档
func Decode(doc docstore.Doc) (Session, error) {
	r := docstore.NewReader(doc, "")
	s := Session{
		Cards:        []Card{},
		Members:      map[string]Member{},
		StartingTeam: r.String("startingTeam", TeamRed),
		MasterPhase:  r.Bool("isMasterPhase", true),
		GuessesLeft:  r.Int("guessesLeft", 0),
		Remaining:    map[string]int{},
		Clues:        []Clue{},
		Winner:       r.String("winner", ""),
	}
	s.CurrentTeam = r.String("currentTeam", s.StartingTeam)

	for _, c := range r.MapList("cards") {
		s.Cards = append(s.Cards, Card{
			Word:     c.String("word", ""),
			Color:    c.String("color", ColorNeutral),
			Revealed: c.Bool("revealed", false),
		})
	}
	members := r.Map("members")
	for _, uid := range members.Keys() {
		m := members.Map(uid)
		s.Members[uid] = Member{Team: m.String("team", ""), Role: m.String("role", RoleGuesser)}
	}
	remaining := r.Map("remaining")
	for _, team := range remaining.Keys() {
		s.Remaining[team] = remaining.Int(team, 0)
	}
	s.Clue = decodeClue(r.Map("clue"))
	for _, c := range r.MapList("clues") {
		s.Clues = append(s.Clues, decodeClue(c))
	}

	if err := r.Err(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func decodeClue(r *docstore.Reader) Clue {
	return Clue{Team: r.String("team", ""), Word: r.String("word", ""), Number: r.Int("number", 0)}
}
