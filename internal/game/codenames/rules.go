package codenames

import (
	"math/rand/v2"
	"strings"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

// GuessOutcome 翻牌结果
type GuessOutcome struct {
	Session  Session
	Index    int
	Color    string
	TurnOver bool
	Winner   string
}

// Deal 从词库随机抽 25 个词并分配颜色，随机决定先手队
func Deal(words []string, members map[string]Member, rng *rand.Rand) Session {
	starter := TeamRed
	if rng.IntN(2) == 1 {
		starter = TeamBlue
	}
	second := Other(starter)

	colors := make([]string, 0, BoardSize)
	for range StarterCards {
		colors = append(colors, starter)
	}
	for range SecondCards {
		colors = append(colors, second)
	}
	for range NeutralCards {
		colors = append(colors, ColorNeutral)
	}
	for range AssassinCards {
		colors = append(colors, ColorAssassin)
	}
	rng.Shuffle(len(colors), func(i, j int) { colors[i], colors[j] = colors[j], colors[i] })

	picked := rng.Perm(len(words))[:BoardSize]
	cards := make([]Card, BoardSize)
	for i, w := range picked {
		cards[i] = Card{Word: words[w], Color: colors[i]}
	}

	if members == nil {
		members = map[string]Member{}
	}
	return Session{
		Cards:        cards,
		Members:      members,
		StartingTeam: starter,
		CurrentTeam:  starter,
		MasterPhase:  true,
		Remaining:    map[string]int{starter: StarterCards, second: SecondCards},
		Clues:        []Clue{},
	}
}

// Reset 再来一局：重新发牌，保留队伍和角色
func Reset(prev Session, words []string, rng *rand.Rand) Session {
	return Deal(words, prev.Clone().Members, rng)
}

// JoinTeam 选择队伍和角色；只能在第一条提示之前换，每队只能有一名队长，队长看过底牌后不能再换
func JoinTeam(s Session, uid, team, role string) (Session, error) {
	if s.Winner != "" {
		return s, apperrors.ErrGameOver
	}
	if !ValidTeam(team) || (role != RoleMaster && role != RoleGuesser) {
		return s, apperrors.New(protocol.ErrCodeInvalidMove, "无效的队伍或角色: %s/%s", team, role)
	}
	if len(s.Clues) > 0 {
		return s, apperrors.New(protocol.ErrCodeWrongPhase, "已经给出提示，不能再换队")
	}
	want := Member{Team: team, Role: role}
	if cur, ok := s.Members[uid]; ok && cur.Role == RoleMaster && cur != want {
		return s, apperrors.New(protocol.ErrCodeWrongRole, "队长不能换队或换角色")
	}
	if role == RoleMaster {
		if m := s.Master(team); m != "" && m != uid {
			return s, apperrors.New(protocol.ErrCodeWrongRole, "%s 队已经有队长了", team)
		}
	}
	next := s.Clone()
	next.Members[uid] = want
	return next, nil
}

// checkActor 校验 uid 是当前队伍的 role
func checkActor(s Session, uid, role string) error {
	if s.Winner != "" {
		return apperrors.ErrGameOver
	}
	m, ok := s.Members[uid]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	if m.Team != s.CurrentTeam {
		return apperrors.ErrNotYourTurn
	}
	if m.Role != role {
		return apperrors.ErrWrongRole
	}
	return nil
}

// GiveClue 队长给出提示，本回合最多可以猜 number+1 次
func GiveClue(s Session, uid, word string, number int) (Session, error) {
	if err := checkActor(s, uid, RoleMaster); err != nil {
		return s, err
	}
	if !s.MasterPhase {
		return s, apperrors.ErrWrongPhase
	}
	word = strings.TrimSpace(word)
	if word == "" || strings.ContainsAny(word, " \t") || number < 0 || number > BoardSize {
		return s, apperrors.New(protocol.ErrCodeInvalidMove, "提示必须是一个词和一个非负数字")
	}
	for _, c := range s.Cards {
		if !c.Revealed && strings.EqualFold(c.Word, word) {
			return s, apperrors.New(protocol.ErrCodeInvalidMove, "提示不能是桌面上的词")
		}
	}

	next := s.Clone()
	next.Clue = Clue{Team: s.CurrentTeam, Word: word, Number: number}
	next.Clues = append(next.Clues, next.Clue)
	next.GuessesLeft = number + 1
	next.MasterPhase = false
	return next, nil
}

// Guess 队员翻开一张牌
func Guess(s Session, uid string, index int) (GuessOutcome, error) {
	if err := checkActor(s, uid, RoleGuesser); err != nil {
		return GuessOutcome{}, err
	}
	if s.MasterPhase {
		return GuessOutcome{}, apperrors.ErrWrongPhase
	}
	if index < 0 || index >= len(s.Cards) {
		return GuessOutcome{}, apperrors.ErrOutOfRange
	}
	if s.Cards[index].Revealed {
		return GuessOutcome{}, apperrors.New(protocol.ErrCodeInvalidMove, "这张牌已经翻开")
	}

	next := s.Clone()
	next.Cards[index].Revealed = true
	color := next.Cards[index].Color
	team := s.CurrentTeam
	out := GuessOutcome{Index: index, Color: color}

	switch color {
	case ColorAssassin:
		next.Winner = Other(team)
	case team:
		next.Remaining[team]--
		next.GuessesLeft--
		switch {
		case next.Remaining[team] == 0:
			next.Winner = team
		case next.GuessesLeft == 0:
			passTurn(&next)
			out.TurnOver = true
		}
	default:
		if color != ColorNeutral {
			next.Remaining[color]--
			if next.Remaining[color] == 0 {
				next.Winner = color
			}
		}
		if next.Winner == "" {
			passTurn(&next)
			out.TurnOver = true
		}
	}

	out.Winner = next.Winner
	out.Session = next
	return out, nil
}

// EndTurn 队员主动结束本回合
func EndTurn(s Session, uid string) (Session, error) {
	if err := checkActor(s, uid, RoleGuesser); err != nil {
		return s, err
	}
	if s.MasterPhase {
		return s, apperrors.ErrWrongPhase
	}
	next := s.Clone()
	passTurn(&next)
	return next, nil
}

// Surrender 认输，对方队伍获胜
func Surrender(s Session, uid string) (Session, error) {
	if s.Winner != "" {
		return s, apperrors.ErrGameOver
	}
	m, ok := s.Members[uid]
	if !ok {
		return s, apperrors.ErrNotInRoom
	}
	next := s.Clone()
	next.Winner = Other(m.Team)
	return next, nil
}

func passTurn(s *Session) {
	s.CurrentTeam = Other(s.CurrentTeam)
	s.MasterPhase = true
	s.Clue = Clue{}
	s.GuessesLeft = 0
}

// AutoAssign 按座位交替分队，每队第一个人当队长
func AutoAssign(players []string) map[string]Member {
	members := make(map[string]Member, len(players))
	for i, uid := range players {
		team := TeamRed
		if i%2 == 1 {
			team = TeamBlue
		}
		role := RoleGuesser
		if i < 2 {
			role = RoleMaster
		}
		members[uid] = Member{Team: team, Role: role}
	}
	return members
}
