package ui

import (
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/party-games/internal/game/battleships"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/sound"
)

// stateEnvelope 保留游戏视图的原始 JSON，按游戏类型解码
type stateEnvelope struct {
	Room protocol.RoomState `json:"room"`
	Game json.RawMessage    `json:"game"`
	Rev  int64              `json:"rev"`
}

// handleServerMessage 处理服务器消息
func (m *OnlineModel) handleServerMessage(msg *protocol.Message) tea.Cmd {
	switch msg.Type {
	case protocol.MsgConnected:
		return m.handleMsgConnected(msg)
	case protocol.MsgRoomHosted, protocol.MsgRoomJoined:
		return m.handleMsgRoomEntered(msg)
	case protocol.MsgRoomList:
		return m.handleMsgRoomList(msg)
	case protocol.MsgState:
		return m.handleMsgState(msg)
	case protocol.MsgDesync:
		return m.handleMsgDesync(msg)
	case protocol.MsgError:
		return m.handleMsgError(msg)
	case protocol.MsgLeaderboard:
		return m.handleMsgLeaderboard(msg)
	}
	return nil
}

func (m *OnlineModel) handleMsgConnected(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.ConnectedPayload](msg)
	if err != nil {
		return nil
	}
	m.playerID = payload.PlayerID
	m.playerName = payload.PlayerName
	if m.phase == PhaseConnecting {
		m.phase = PhaseLobby
		m.error = ""
	}
	if m.settings != nil {
		if err := m.settings.SetIdentity(payload.PlayerName, payload.Token); err != nil {
			logger.Warnf("⚠️ 保存身份失败: %v", err)
		}
	}
	return nil
}

func (m *OnlineModel) handleMsgRoomEntered(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.RoomCodePayload](msg)
	if err != nil {
		return nil
	}
	if m.room == nil || m.room.Code != payload.RoomCode {
		m.room = &protocol.RoomState{Code: payload.RoomCode, Game: payload.Game}
		m.rev = 0
		m.battle.Reset()
	}
	m.phase = PhaseWaiting
	m.input.Reset()
	m.input.Placeholder = "房主输入 S 开始"
	return nil
}

func (m *OnlineModel) handleMsgRoomList(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.RoomListPayload](msg)
	if err != nil {
		return nil
	}
	m.rooms = payload.Rooms
	if m.roomIndex >= len(m.rooms) {
		m.roomIndex = max(len(m.rooms)-1, 0)
	}
	return nil
}

// handleMsgState 应用状态推送；旧版本被丢弃
func (m *OnlineModel) handleMsgState(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[stateEnvelope](msg)
	if err != nil || m.room == nil || payload.Room.Code != m.room.Code {
		return nil
	}
	if payload.Rev < m.rev {
		return nil
	}
	m.rev = payload.Rev
	prev := m.room.Status
	state := payload.Room
	m.room = &state

	switch room.Status(state.Status) {
	case room.StatusWaiting:
		m.phase = PhaseWaiting
	case room.StatusPlaying:
		if prev == string(room.StatusEnded) {
			m.battle.Reset()
		}
		m.phase = PhasePlaying
		m.input.Placeholder = ""
	case room.StatusEnded:
		m.phase = PhaseGameOver
		m.input.Placeholder = "输入 R 再来一局，Q 离开"
	}

	if state.Game == room.GameBattleships && len(payload.Game) > 0 {
		var view battleships.PlayerView
		if err := json.Unmarshal(payload.Game, &view); err == nil {
			m.playEffects(view)
			m.battle.Apply(view)
		}
	}
	return nil
}

// playEffects 对比新旧视图播放音效
func (m *OnlineModel) playEffects(next battleships.PlayerView) {
	prev := m.battle.view
	switch {
	case next.Result != "" && prev.Result == "":
		if next.Result == next.Me {
			m.sound.Play(sound.Win)
		} else {
			m.sound.Play(sound.Lose)
		}
	case len(next.SunkEnemy) > len(prev.SunkEnemy):
		m.sound.Play(sound.Sunk)
	case len(next.Moves) > len(prev.Moves):
		if next.Moves[len(next.Moves)-1].Hit {
			m.sound.Play(sound.Hit)
		} else {
			m.sound.Play(sound.Miss)
		}
	}
}

// handleMsgDesync 会话无法解析：回到大厅
func (m *OnlineModel) handleMsgDesync(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.DesyncPayload](msg)
	if err != nil {
		return nil
	}
	logger.Warnf("⚠️ 房间 %s 状态不同步: %s", payload.RoomCode, payload.Reason)
	m.backToLobby()
	m.error = "房间状态异常，已返回大厅"
	return clearErrorAfter(5 * time.Second)
}

func (m *OnlineModel) handleMsgError(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.ErrorPayload](msg)
	if err != nil {
		return nil
	}
	m.error = payload.Message
	if m.error == "" {
		m.error = protocol.ErrorMessages[payload.Code]
	}
	if payload.Code == protocol.ErrCodeRoomNotFound && m.room != nil {
		m.backToLobby()
	}
	return clearErrorAfter(5 * time.Second)
}

func (m *OnlineModel) handleMsgLeaderboard(msg *protocol.Message) tea.Cmd {
	payload, err := codec.ParsePayload[protocol.LeaderboardPayload](msg)
	if err != nil {
		return nil
	}
	m.leaderboard = *payload
	return nil
}

// backToLobby 离开房间或街机，回到大厅
func (m *OnlineModel) backToLobby() {
	if m.arcade != nil {
		m.arcade.Stop()
		m.arcade = nil
	}
	m.room = nil
	m.rev = 0
	m.battle.Reset()
	m.phase = PhaseLobby
	m.input.Reset()
	m.input.Placeholder = "输入选项或房间号"
	m.input.Focus()
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return ClearErrorMsg{} })
}
