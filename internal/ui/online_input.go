package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/party-games/internal/game/arcade"
	"github.com/palemoky/party-games/internal/game/battleships"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/sound"
)

type menuKind int

const (
	menuHost menuKind = iota
	menuRooms
	menuArcade
	menuLeaderboard
)

type menuItem struct {
	label string
	game  string
	kind  menuKind
}

var lobbyMenu = []menuItem{
	{"⚓ 海战棋：创建房间", room.GameBattleships, menuHost},
	{"🔍 海战棋：公开房间", room.GameBattleships, menuRooms},
	{arcadeTitles[arcade.GameSpaceInvaders], arcade.GameSpaceInvaders, menuArcade},
	{arcadeTitles[arcade.GameJorisJump], arcade.GameJorisJump, menuArcade},
	{arcadeTitles[arcade.GameScreamOSaur], arcade.GameScreamOSaur, menuArcade},
	{"🏆 排行榜", "", menuLeaderboard},
}

// leaderboardGames 排行榜可切换的游戏
var leaderboardGames = append([]string{room.GameBattleships}, arcade.Games...)

const leaderboardSize = 10

// handleKeyPress 处理按键消息，返回是否已处理和命令
func (m *OnlineModel) handleKeyPress(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return true, m.quit()
	case tea.KeyEsc:
		return m.handleEscKey()
	}

	switch m.phase {
	case PhaseArcade:
		return true, m.handleArcadeKey(msg)
	case PhasePlaying:
		return m.handleBattleKey(msg)
	case PhaseLobby:
		switch msg.Type {
		case tea.KeyUp:
			m.menuIndex = (m.menuIndex - 1 + len(lobbyMenu)) % len(lobbyMenu)
			return true, nil
		case tea.KeyDown:
			m.menuIndex = (m.menuIndex + 1) % len(lobbyMenu)
			return true, nil
		}
	case PhaseRoomList:
		switch msg.Type {
		case tea.KeyUp:
			if m.roomIndex > 0 {
				m.roomIndex--
			}
			return true, nil
		case tea.KeyDown:
			if m.roomIndex < len(m.rooms)-1 {
				m.roomIndex++
			}
			return true, nil
		}
	case PhaseLeaderboard:
		switch msg.Type {
		case tea.KeyLeft:
			m.boardIndex = (m.boardIndex - 1 + len(leaderboardGames)) % len(leaderboardGames)
			return true, m.requestLeaderboard()
		case tea.KeyRight:
			m.boardIndex = (m.boardIndex + 1) % len(leaderboardGames)
			return true, m.requestLeaderboard()
		}
	}

	if msg.Type == tea.KeyEnter {
		return true, m.handleEnter()
	}
	return false, nil
}

// handleEscKey 处理 ESC 键
func (m *OnlineModel) handleEscKey() (bool, tea.Cmd) {
	switch m.phase {
	case PhaseRoomList, PhaseLeaderboard:
		m.backToLobby()
		return true, nil
	case PhaseArcade:
		m.backToLobby()
		return true, nil
	case PhaseWaiting, PhaseGameOver:
		m.leaveRoom()
		return true, nil
	case PhasePlaying:
		// 对局中 ESC 不退出，避免误操作
		m.error = "游戏进行中，按 G 投降"
		return true, clearErrorAfter(3 * time.Second)
	}
	return true, m.quit()
}

func (m *OnlineModel) quit() tea.Cmd {
	if m.arcade != nil {
		m.arcade.Stop()
	}
	m.client.Close()
	m.sound.Close()
	return tea.Quit
}

func (m *OnlineModel) leaveRoom() {
	if m.room != nil {
		_ = m.client.LeaveRoom(m.room.Code)
	}
	m.backToLobby()
}

// handleArcadeKey 街机按键；结束后回车返回大厅
func (m *OnlineModel) handleArcadeKey(msg tea.KeyMsg) tea.Cmd {
	if m.arcade.Over() {
		if msg.Type == tea.KeyEnter {
			m.backToLobby()
		}
		return nil
	}
	m.arcade.Key(msg.String(), time.Now())
	return nil
}

// handleBattleKey 海战棋按键
func (m *OnlineModel) handleBattleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	b := m.battle
	switch msg.String() {
	case "up", "k":
		b.Move(0, -1)
	case "down", "j":
		b.Move(0, 1)
	case "left", "h":
		b.Move(-1, 0)
	case "right", "l":
		b.Move(1, 0)
	case "r", "R":
		b.Rotate()
	case "u", "U":
		b.Undo()
	case "g", "G":
		m.act(battleships.ActionSurrender, nil)
	case " ":
		switch {
		case b.Placing():
			if err := b.PlaceAtCursor(); err != nil {
				m.error = err.Error()
				return true, clearErrorAfter(3 * time.Second)
			}
			m.sound.Play(sound.Move)
		case b.MyTurn():
			if b.AlreadyFired() {
				m.error = "这里已经开过火了"
				return true, clearErrorAfter(3 * time.Second)
			}
			m.act(battleships.ActionFire, b.Target())
		}
	case "enter":
		if b.Placing() && b.DraftReady() {
			m.act(battleships.ActionPlaceFleet, b.FleetData())
		}
	default:
		return false, nil
	}
	return true, nil
}

func (m *OnlineModel) act(kind string, data any) {
	if m.room == nil {
		return
	}
	if err := m.client.Act(m.room.Game, m.room.Code, kind, data); err != nil {
		m.error = fmt.Sprintf("发送失败: %v", err)
	}
}

// handleEnter 处理回车键
func (m *OnlineModel) handleEnter() tea.Cmd {
	input := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.error = ""

	switch m.phase {
	case PhaseLobby:
		// 一位数字是菜单项，更长的输入是房间号（可在空格后附密码）
		if input == "" {
			return m.selectMenu(lobbyMenu[m.menuIndex])
		}
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(lobbyMenu) {
			m.menuIndex = n - 1
			return m.selectMenu(lobbyMenu[n-1])
		}
		m.joinByInput(input)

	case PhaseRoomList:
		if input != "" {
			m.joinByInput(input)
		} else if m.roomIndex < len(m.rooms) {
			_ = m.client.JoinRoom(m.rooms[m.roomIndex].Code, "")
		}

	case PhaseWaiting:
		switch strings.ToLower(input) {
		case "s", "start":
			if m.room != nil {
				_ = m.client.StartGame(m.room.Code)
			}
		case "q", "quit":
			m.leaveRoom()
		}

	case PhaseGameOver:
		switch strings.ToLower(input) {
		case "r", "rematch":
			if m.room != nil {
				_ = m.client.Rematch(m.room.Code)
			}
		case "q", "quit":
			m.leaveRoom()
		}
	}
	return nil
}

func (m *OnlineModel) joinByInput(input string) {
	code, password, _ := strings.Cut(input, " ")
	_ = m.client.JoinRoom(code, strings.TrimSpace(password))
}

// selectMenu 执行大厅菜单项
func (m *OnlineModel) selectMenu(item menuItem) tea.Cmd {
	switch item.kind {
	case menuHost:
		_ = m.client.HostRoom(item.game, fmt.Sprintf("%s 的房间", m.playerName), "", false)
	case menuRooms:
		m.phase = PhaseRoomList
		m.rooms = nil
		m.roomIndex = 0
		m.input.Placeholder = "或直接输入房间号..."
		_ = m.client.WatchRooms(item.game)
	case menuArcade:
		a, err := NewArcadeModel(item.game, m.rng)
		if err != nil {
			m.error = err.Error()
			return nil
		}
		m.arcade = a
		m.phase = PhaseArcade
		return a.Start()
	case menuLeaderboard:
		m.phase = PhaseLeaderboard
		return m.requestLeaderboard()
	}
	return nil
}

func (m *OnlineModel) requestLeaderboard() tea.Cmd {
	if err := m.client.GetLeaderboard(leaderboardGames[m.boardIndex], leaderboardSize); err != nil {
		m.error = fmt.Sprintf("请求排行榜失败: %v", err)
	}
	return nil
}
