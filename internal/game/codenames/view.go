package codenames

// CardView 一张牌；队员看不到未翻开牌的颜色
type CardView struct {
	Word     string `json:"word"`
	Color    string `json:"color,omitempty"`
	Revealed bool   `json:"revealed"`
}

// TeamView 一支队伍
type TeamView struct {
	Master    string   `json:"master,omitempty"`
	Members   []string `json:"members"`
	Remaining int      `json:"remaining"`
}

// PlayerView 某位玩家能看到的局面
type PlayerView struct {
	Me          string              `json:"me"`
	Team        string              `json:"team,omitempty"`
	Role        string              `json:"role,omitempty"`
	Cards       []CardView          `json:"cards"`
	Teams       map[string]TeamView `json:"teams"`
	CurrentTeam string              `json:"current_team"`
	MasterPhase bool                `json:"is_master_phase"`
	ClueWord    string              `json:"clue_word,omitempty"`
	ClueNumber  int                 `json:"clue_number"`
	GuessesLeft int                 `json:"guesses_left"`
	Winner      string              `json:"winner,omitempty"`
}

// ViewFor 生成 uid 的视图：队长和终局后可以看到全部颜色
func ViewFor(s Session, uid string) PlayerView {
	me := s.Members[uid]
	seeAll := me.Role == RoleMaster || s.Winner != ""
	v := PlayerView{
		Me:          uid,
		Team:        me.Team,
		Role:        me.Role,
		Cards:       make([]CardView, len(s.Cards)),
		Teams:       map[string]TeamView{},
		CurrentTeam: s.CurrentTeam,
		MasterPhase: s.MasterPhase,
		ClueWord:    s.Clue.Word,
		ClueNumber:  s.Clue.Number,
		GuessesLeft: s.GuessesLeft,
		Winner:      s.Winner,
	}
	for i, c := range s.Cards {
		cv := CardView{Word: c.Word, Revealed: c.Revealed}
		if c.Revealed || seeAll {
			cv.Color = c.Color
		}
		v.Cards[i] = cv
	}
	for _, team := range []string{TeamRed, TeamBlue} {
		v.Teams[team] = TeamView{
			Master:    s.Master(team),
			Members:   s.TeamMembers(team),
			Remaining: s.Remaining[team],
		}
	}
	return v
}
