package triviatoe

// QuestionView 题目；揭晓前不带答案
type QuestionView struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Answer  *int     `json:"answer,omitempty"`
}

// PlayerView 某位玩家能看到的局面
type PlayerView struct {
	Me         string          `json:"me"`
	Mark       string          `json:"mark"`
	State      State           `json:"state"`
	X          string          `json:"x"`
	O          string          `json:"o"`
	Board      []string        `json:"board"`
	Round      int             `json:"round"`
	Question   QuestionView    `json:"question"`
	Answered   map[string]bool `json:"answered"`
	MyChoice   *int            `json:"my_choice,omitempty"`
	Choices    map[string]int  `json:"choices,omitempty"` // 揭晓后双方的选择
	FirstMover string          `json:"first_mover,omitempty"`
	ToMove     string          `json:"to_move,omitempty"`
	Ready      []string        `json:"ready"`
	Winner     string          `json:"winner,omitempty"`
	Draw       bool            `json:"draw"`
}

// ViewFor 生成 uid 的视图
func ViewFor(s Session, uid string) PlayerView {
	v := PlayerView{
		Me:         uid,
		Mark:       s.Mark(uid),
		State:      s.State,
		X:          s.X,
		O:          s.O,
		Board:      s.Board,
		Round:      s.Round,
		Question:   QuestionView{Text: s.Question.Text, Choices: s.Question.Choices},
		Answered:   map[string]bool{},
		FirstMover: s.FirstMover,
		Ready:      s.Ready,
		Winner:     s.Winner,
		Draw:       s.Draw,
	}
	for p, a := range s.Answers {
		v.Answered[p] = true
		if p == uid {
			choice := a.Choice
			v.MyChoice = &choice
		}
	}
	if s.State != StateQuestion && s.State != StateXOAssign {
		answer := s.Question.Answer
		v.Question.Answer = &answer
		v.Choices = map[string]int{}
		for p, a := range s.Answers {
			v.Choices[p] = a.Choice
		}
	}
	switch s.State {
	case StateReveal, StateMove1:
		v.ToMove = s.FirstMover
	case StateMove2:
		v.ToMove = s.Opponent(s.FirstMover)
	}
	return v
}
