package triviatoe

import (
	"github.com/palemoky/party-games/internal/docstore"
)

// Encode 编码为 gameState.triviatoe 子文档
func Encode(s Session) docstore.Doc {
	return docstore.Doc{
		"state":      string(s.State),
		"x":          s.X,
		"o":          s.O,
		"board":      stringsValue(s.Board),
		"round":      int64(s.Round),
		"question":   questionValue(s.Question),
		"asked":      intsValue(s.Asked),
		"answers":    answersValue(s.Answers),
		"firstMover": s.FirstMover,
		"ready":      stringsValue(s.Ready),
		"winner":     s.Winner,
		"draw":       s.Draw,
	}
}

func stringsValue(ss []string) []any {
	out := make([]any, len(ss))
	for i, v := range ss {
		out[i] = v
	}
	return out
}

func intsValue(ints []int) []any {
	out := make([]any, len(ints))
	for i, n := range ints {
		out[i] = int64(n)
	}
	return out
}

func questionValue(q Question) map[string]any {
	return map[string]any{
		"text":    q.Text,
		"choices": stringsValue(q.Choices),
		"answer":  int64(q.Answer),
	}
}

func answersValue(answers map[string]Answer) map[string]any {
	out := make(map[string]any, len(answers))
	for uid, a := range answers {
		out[uid] = map[string]any{"choice": int64(a.Choice), "at": a.At}
	}
	return out
}

// Decode 解析子文档
func Decode(doc docstore.Doc) (Session, error) {
	r := docstore.NewReader(doc, "")
	s := New()
	s.State = State(r.String("state", string(StateXOAssign)))
	s.X = r.String("x", "")
	s.O = r.String("o", "")
	if b := r.Strings("board"); len(b) == Cells {
		s.Board = b
	}
	s.Round = r.Int("round", 0)
	if a := r.Ints("asked"); a != nil {
		s.Asked = a
	}
	s.FirstMover = r.String("firstMover", "")
	if rd := r.Strings("ready"); rd != nil {
		s.Ready = rd
	}
	s.Winner = r.String("winner", "")
	s.Draw = r.Bool("draw", false)

	q := r.Map("question")
	s.Question = Question{Text: q.String("text", ""), Answer: q.Int("answer", 0)}
	if c := q.Strings("choices"); len(c) > 0 {
		s.Question.Choices = c
	}
	answers := r.Map("answers")
	for _, uid := range answers.Keys() {
		a := answers.Map(uid)
		s.Answers[uid] = Answer{Choice: a.Int("choice", 0), At: a.Int64("at", 0)}
	}

	if err := r.Err(); err != nil {
		return Session{}, err
	}
	return s, nil
}
