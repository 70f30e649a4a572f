package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/party-games/internal/game/room"
)

// --- 视图渲染 ---

func (m *OnlineModel) center(s string) string {
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, s)
}

func (m *OnlineModel) connectingView() string {
	if m.error != "" {
		return m.center(errorStyle.Render(m.error))
	}
	return m.center("🔌 正在连接服务器...")
}

func (m *OnlineModel) lobbyView() string {
	var sb strings.Builder

	sb.WriteString(m.center(titleStyle("🎉 派对游戏厅")))
	sb.WriteString("\n\n")
	if m.playerName != "" {
		sb.WriteString(m.center(fmt.Sprintf("欢迎, %s!", m.playerName)))
		sb.WriteString("\n\n")
	}

	lines := []string{"请选择:", ""}
	for i, item := range lobbyMenu {
		line := fmt.Sprintf("  %d. %s", i+1, item.label)
		if i == m.menuIndex {
			line = selectStyle.Render(fmt.Sprintf("▶ %d. %s", i+1, item.label))
		}
		lines = append(lines, line)
	}
	sb.WriteString(m.center(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))))
	sb.WriteString("\n\n")

	m.input.Placeholder = "输入选项或房间号（房间号 密码）"
	sb.WriteString(m.center(m.input.View()))
	return sb.String()
}

func (m *OnlineModel) roomListView() string {
	var sb strings.Builder
	sb.WriteString(m.center(titleStyle("🔍 公开房间")))
	sb.WriteString("\n\n")

	if len(m.rooms) == 0 {
		sb.WriteString(m.center(hintStyle.Render("暂无公开房间，可以自己创建一个")))
	} else {
		lines := make([]string, 0, len(m.rooms))
		for i, r := range m.rooms {
			lock := ""
			if r.Locked {
				lock = " 🔒"
			}
			line := fmt.Sprintf("%s  %-16s 房主 %-10s %d/%d%s", r.Code, r.Name, r.HostName, r.Players, r.Capacity, lock)
			if i == m.roomIndex {
				line = selectStyle.Render("▶ " + line)
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
		sb.WriteString(m.center(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.center(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.center(hintStyle.Render("↑/↓ 选择  回车加入  ESC 返回")))
	return sb.String()
}

// names 房间内 uid 到昵称
func (m *OnlineModel) names() map[string]string {
	names := map[string]string{}
	if m.room != nil {
		for _, p := range m.room.Players {
			names[p.UID] = p.Name
		}
	}
	return names
}

func (m *OnlineModel) roomHeader() string {
	if m.room == nil {
		return ""
	}
	title := m.room.Name
	if title == "" {
		title = m.room.Game
	}
	return titleStyle(fmt.Sprintf("🏠 %s  房间号 %s", title, m.room.Code))
}

func (m *OnlineModel) waitingView() string {
	if m.room == nil {
		return ""
	}
	lines := []string{m.roomHeader(), ""}
	for _, p := range m.room.Players {
		mark := "  "
		if p.UID == m.room.HostUID {
			mark = "👑"
		}
		lines = append(lines, fmt.Sprintf("%s %s", mark, p.Name))
	}
	for range max(m.room.Capacity-len(m.room.Players), 0) {
		lines = append(lines, hintStyle.Render("   等待玩家加入..."))
	}

	hint := "等待房主开始，输入 Q 离开"
	if m.room.HostUID == m.playerID {
		hint = "输入 S 开始游戏，Q 离开"
	}
	lines = append(lines, "", promptStyle.Render(m.input.View()), hintStyle.Render(hint))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *OnlineModel) gameView() string {
	if m.room == nil {
		return ""
	}
	parts := []string{m.roomHeader(), ""}
	if m.room.Game == room.GameBattleships {
		parts = append(parts, m.battle.View(m.names()))
	} else {
		parts = append(parts, hintStyle.Render("该游戏暂不支持终端界面"))
	}

	if m.phase == PhaseGameOver {
		votes := fmt.Sprintf("再来一局 %d/%d", len(m.room.RematchVotes), len(m.room.Players))
		parts = append(parts, "", votes, promptStyle.Render(m.input.View()))
	} else {
		parts = append(parts, hintStyle.Render("G 投降"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *OnlineModel) leaderboardView() string {
	game := leaderboardGames[m.boardIndex]
	title := arcadeTitles[game]
	unit := "分"
	if title == "" {
		title = "⚓ 海战棋"
		unit = "胜"
	}

	var sb strings.Builder
	sb.WriteString(m.center(titleStyle("🏆 排行榜 · " + title)))
	sb.WriteString("\n\n")

	var lines []string
	if m.leaderboard.Game == game {
		for _, e := range m.leaderboard.Entries {
			name := e.PlayerName
			if name == "" {
				name = e.PlayerID
			}
			line := fmt.Sprintf("%2d. %-12s %6d %s", e.Rank, name, e.Score, unit)
			if e.PlayerID == m.playerID {
				line = selectStyle.Render(line)
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = []string{hintStyle.Render("暂无记录")}
	}
	sb.WriteString(m.center(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))))
	sb.WriteString("\n")
	sb.WriteString(m.center(hintStyle.Render("←/→ 切换游戏  ESC 返回")))
	return sb.String()
}

// statusLine 错误、重连和延迟提示
func (m *OnlineModel) statusLine() string {
	var parts []string
	if m.error != "" && m.phase != PhaseConnecting {
		parts = append(parts, errorStyle.Render(m.error))
	}
	if m.reconnectMessage != "" {
		parts = append(parts, m.reconnectMessage)
	}
	if m.latency > 0 && !m.reconnecting {
		parts = append(parts, hintStyle.Render(fmt.Sprintf("📶 %dms", m.latency)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\n" + strings.Join(parts, "\n")
}
