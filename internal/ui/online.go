// Package ui 终端客户端：大厅、海战棋棋盘和街机游戏
package ui

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/settings"
	"github.com/palemoky/party-games/internal/sound"
	"github.com/palemoky/party-games/internal/transport"
)

// Phase 界面阶段
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseLobby
	PhaseRoomList
	PhaseWaiting
	PhasePlaying
	PhaseGameOver
	PhaseArcade
	PhaseLeaderboard
)

const connectTimeout = 10 * time.Second

// ServerMessage 服务器消息（用于 tea.Msg）
type ServerMessage struct {
	Msg *protocol.Message
}

// ConnectedMsg 连接成功消息
type ConnectedMsg struct{}

// ConnectionErrorMsg 连接错误消息
type ConnectionErrorMsg struct {
	Err error
}

// ReconnectingMsg 正在重连消息
type ReconnectingMsg struct {
	Attempt  int
	MaxTries int
}

// ReconnectSuccessMsg 重连成功消息
type ReconnectSuccessMsg struct{}

// ConnectionClosedMsg 连接已关闭且不再重连
type ConnectionClosedMsg struct{}

// LatencyMsg 延迟更新
type LatencyMsg struct {
	Millis int64
}

// ClearReconnectMsg 清除重连消息
type ClearReconnectMsg struct{}

// ClearErrorMsg 清除错误消息
type ClearErrorMsg struct{}

// OnlineModel 联网模式的 model
type OnlineModel struct {
	client   *transport.Client
	settings *settings.Store
	sound    sound.Player
	rng      *rand.Rand

	phase Phase
	error string

	// 玩家信息
	playerID   string
	playerName string

	// 网络状态
	latency          int64
	reconnecting     bool
	reconnectMessage string
	events           chan tea.Msg // 连接回调转发到 Bubble Tea

	// 大厅
	menuIndex   int
	rooms       []protocol.RoomInfo
	roomIndex   int
	leaderboard protocol.LeaderboardPayload
	boardIndex  int

	// 房间
	room   *protocol.RoomState
	rev    int64
	battle *BattleModel
	arcade *ArcadeModel

	input  textinput.Model
	width  int
	height int
}

// NewOnlineModel 创建联网模式 model；store 和 player 可以为 nil
func NewOnlineModel(c *transport.Client, store *settings.Store, player sound.Player) *OnlineModel {
	ti := textinput.New()
	ti.Placeholder = "输入选项或房间号"
	ti.CharLimit = 16
	ti.Width = 24
	ti.Focus()

	if player == nil {
		player = sound.Nop{}
	}
	events := make(chan tea.Msg, 16)
	m := &OnlineModel{
		client:   c,
		settings: store,
		sound:    player,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		phase:    PhaseConnecting,
		events:   events,
		battle:   NewBattleModel(),
		input:    ti,
	}

	// 连接回调在读写协程里触发，通过 channel 交给 Bubble Tea
	forward := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}
	c.OnReconnecting = func(attempt, total int) { forward(ReconnectingMsg{Attempt: attempt, MaxTries: total}) }
	c.OnReconnect = func() { forward(ReconnectSuccessMsg{}) }
	c.OnClose = func() { forward(ConnectionClosedMsg{}) }
	c.OnLatencyUpdate = func(ms int64) { forward(LatencyMsg{Millis: ms}) }
	return m
}

func (m *OnlineModel) Init() tea.Cmd {
	return tea.Batch(
		m.connectToServer(),
		textinput.Blink,
		m.listenForEvents(),
	)
}

// listenForEvents 监听连接回调
func (m *OnlineModel) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// connectToServer 连接服务器
func (m *OnlineModel) connectToServer() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := m.client.Connect(ctx); err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// listenForMessages 监听服务器消息
func (m *OnlineModel) listenForMessages() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Receive()
		if !ok {
			return ConnectionClosedMsg{}
		}
		return ServerMessage{Msg: msg}
	}
}

func (m *OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if handled, cmd := m.handleKeyPress(msg); handled {
			return m, cmd
		}

	case ConnectedMsg:
		m.client.StartHeartbeat()
		cmds = append(cmds, m.listenForMessages())

	case ConnectionErrorMsg:
		m.error = fmt.Sprintf("无法连接到服务器: %v\n\n按 ESC 退出", msg.Err)
		m.phase = PhaseConnecting

	case ReconnectingMsg:
		m.reconnecting = true
		m.reconnectMessage = fmt.Sprintf("🔄 正在重连 (%d/%d)...", msg.Attempt, msg.MaxTries)
		cmds = append(cmds, m.listenForEvents())

	case ReconnectSuccessMsg:
		m.reconnecting = false
		m.reconnectMessage = "✅ 重连成功！"
		// 订阅随连接丢失，重新加入房间
		if m.room != nil {
			_ = m.client.JoinRoom(m.room.Code, "")
		}
		cmds = append(cmds, m.listenForEvents(), tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return ClearReconnectMsg{}
		}))

	case ConnectionClosedMsg:
		m.reconnecting = false
		m.reconnectMessage = ""
		m.error = "与服务器的连接已断开，按 ESC 退出"
		cmds = append(cmds, m.listenForEvents())

	case LatencyMsg:
		m.latency = msg.Millis
		cmds = append(cmds, m.listenForEvents())

	case ClearReconnectMsg:
		m.reconnectMessage = ""

	case ClearErrorMsg:
		m.error = ""

	case ServerMessage:
		if cmd := m.handleServerMessage(msg.Msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.listenForMessages())

	case FrameMsg:
		if cmd := m.handleFrame(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleFrame 刷新街机画面，结束时提交得分
func (m *OnlineModel) handleFrame(msg FrameMsg) tea.Cmd {
	if m.arcade == nil || m.phase != PhaseArcade {
		return nil
	}
	m.arcade.Apply(msg.Frame, time.Now())
	if !m.arcade.Over() {
		return m.arcade.WaitFrame()
	}
	if m.arcade.MarkSubmitted() {
		m.sound.Play(sound.Lose)
		if err := m.client.SubmitScore(m.arcade.game, m.arcade.Score()); err != nil {
			m.error = fmt.Sprintf("提交得分失败: %v", err)
		}
	}
	return nil
}

func (m *OnlineModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.phase {
	case PhaseConnecting:
		content = m.connectingView()
	case PhaseLobby:
		content = m.lobbyView()
	case PhaseRoomList:
		content = m.roomListView()
	case PhaseWaiting:
		content = m.waitingView()
	case PhasePlaying, PhaseGameOver:
		content = m.gameView()
	case PhaseArcade:
		content = m.arcade.Render()
	case PhaseLeaderboard:
		content = m.leaderboardView()
	}

	return docStyle.Render(content + m.statusLine())
}
