// Package codenames 行动代号：队长给提示，队员翻牌，先翻完本队单词的一方获胜。
package codenames

import (
	_ "embed"
	"maps"
	"slices"
	"strings"
)

// 队伍
const (
	TeamRed  = "red"
	TeamBlue = "blue"
)

// 角色
const (
	RoleMaster  = "master"
	RoleGuesser = "guesser"
)

// 牌面颜色
const (
	ColorRed      = TeamRed
	ColorBlue     = TeamBlue
	ColorNeutral  = "neutral"
	ColorAssassin = "assassin"
)

// 牌面分布：先手队 9 张，后手队 8 张，中立 7 张，刺客 1 张
const (
	BoardSize     = 25
	StarterCards  = 9
	SecondCards   = 8
	NeutralCards  = 7
	AssassinCards = 1
)

//go:embed words.txt
var wordList string

// Words 内置词库
func Words() []string {
	return strings.Fields(wordList)
}

// Card 一张牌
type Card struct {
	Word     string
	Color    string
	Revealed bool
}

// Member 玩家所在队伍和角色
type Member struct {
	Team string
	Role string
}

// Clue 队长的提示
type Clue struct {
	Team   string
	Word   string
	Number int
}

// Session 行动代号会话
type Session struct {
	Cards        []Card
	Members      map[string]Member
	StartingTeam string
	CurrentTeam  string
	MasterPhase  bool
	Clue         Clue // 当前回合的提示，队长阶段为空
	GuessesLeft  int
	Remaining    map[string]int
	Clues        []Clue
	Winner       string // 获胜队伍
}

// Other 另一支队伍
func Other(team string) string {
	if team == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// ValidTeam 队伍名是否合法
func ValidTeam(team string) bool {
	return team == TeamRed || team == TeamBlue
}

// Clone 深拷贝
func (s Session) Clone() Session {
	out := s
	out.Cards = slices.Clone(s.Cards)
	out.Members = maps.Clone(s.Members)
	out.Remaining = maps.Clone(s.Remaining)
	out.Clues = slices.Clone(s.Clues)
	return out
}

// Master 队伍的队长，没有返回空
func (s Session) Master(team string) string {
	for _, uid := range slices.Sorted(maps.Keys(s.Members)) {
		m := s.Members[uid]
		if m.Team == team && m.Role == RoleMaster {
			return uid
		}
	}
	return ""
}

// TeamMembers 队伍成员，按 uid 排序
func (s Session) TeamMembers(team string) []string {
	var out []string
	for _, uid := range slices.Sorted(maps.Keys(s.Members)) {
		if s.Members[uid].Team == team {
			out = append(out, uid)
		}
	}
	return out
}

// Unrevealed 尚未翻开的牌的下标
func (s Session) Unrevealed() []int {
	var out []int
	for i, c := range s.Cards {
		if !c.Revealed {
			out = append(out, i)
		}
	}
	return out
}

// sortedMembers 所有已选队的玩家，按 uid 排序
func sortedMembers(s Session) []string {
	return slices.Sorted(maps.Keys(s.Members))
}
