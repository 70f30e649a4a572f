package ui

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/party-games/internal/game/arcade"
	"github.com/palemoky/party-games/internal/scheduler"
)

// 街机画面的字符尺寸
const (
	arcadeCols = 60
	arcadeRows = 22

	// 键盘按下后输入保持的时长
	inputHold = 120 * time.Millisecond
)

// FrameMsg 街机循环推送的一帧
type FrameMsg struct {
	Frame arcade.Frame
}

var arcadeTitles = map[string]string{
	arcade.GameSpaceInvaders: "👾 太空侵略者",
	arcade.GameJorisJump:     "🦘 乔里斯跳跳",
	arcade.GameScreamOSaur:   "🦖 尖叫恐龙",
}

var spriteGlyphs = map[string]rune{
	"ship":     'A',
	"invader":  'W',
	"shot":     '|',
	"bomb":     '*',
	"player":   '@',
	"platform": '=',
	"saur":     'R',
	"cactus":   '#',
}

// worldSize 各世界的坐标范围
func worldSize(game string) (w, h float64) {
	switch game {
	case arcade.GameSpaceInvaders:
		return arcade.InvadersWidth, arcade.InvadersHeight
	case arcade.GameJorisJump:
		return arcade.JumpWidth, arcade.JumpHeight
	default:
		return arcade.SaurWidth, arcade.SaurHeight
	}
}

// ArcadeModel 在本地运行的单人街机游戏
type ArcadeModel struct {
	game   string
	loop   *arcade.Loop
	task   *scheduler.Task
	cancel context.CancelFunc
	frames chan arcade.Frame

	frame     arcade.Frame
	submitted bool

	// 键盘模拟触屏、倾斜和麦克风
	move    float64
	moveAt  time.Time
	shout   bool
	shoutAt time.Time
}

// NewArcadeModel 创建街机游戏
func NewArcadeModel(game string, rng *rand.Rand) (*ArcadeModel, error) {
	world, err := arcade.NewWorld(game, rng)
	if err != nil {
		return nil, err
	}
	return &ArcadeModel{
		game:   game,
		loop:   arcade.NewLoop(world, arcade.TickInterval),
		frames: make(chan arcade.Frame, 1),
	}, nil
}

// Start 启动循环，返回等待帧的命令
func (a *ArcadeModel) Start() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.task = a.loop.Start(ctx, a.publish)
	return a.WaitFrame()
}

// publish 只保留最新一帧
func (a *ArcadeModel) publish(f arcade.Frame) {
	select {
	case a.frames <- f:
	default:
		select {
		case <-a.frames:
		default:
		}
		select {
		case a.frames <- f:
		default:
		}
	}
}

// WaitFrame 等待下一帧
func (a *ArcadeModel) WaitFrame() tea.Cmd {
	frames := a.frames
	return func() tea.Msg {
		return FrameMsg{Frame: <-frames}
	}
}

// Stop 停止循环
func (a *ArcadeModel) Stop() {
	if a.task != nil {
		a.task.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// Apply 记录一帧并把保持中的按键写入输入
func (a *ArcadeModel) Apply(f arcade.Frame, now time.Time) {
	a.frame = f
	in := arcade.Input{}
	if now.Sub(a.moveAt) < inputHold {
		in.Move = a.move
		in.Tilt = a.move
	}
	if a.shout && now.Sub(a.shoutAt) < inputHold {
		in.Amplitude = 1
	}
	a.loop.SetInput(in)
}

// Key 处理按键：左右移动/倾斜，空格开火或尖叫
func (a *ArcadeModel) Key(key string, now time.Time) {
	switch key {
	case "left", "a":
		a.move, a.moveAt = -1, now
	case "right", "d":
		a.move, a.moveAt = 1, now
	case " ", "up", "w":
		a.shout, a.shoutAt = true, now
		in := arcade.Input{Fire: true, Amplitude: 1}
		if now.Sub(a.moveAt) < inputHold {
			in.Move, in.Tilt = a.move, a.move
		}
		a.loop.SetInput(in)
	}
}

// Over 游戏是否结束
func (a *ArcadeModel) Over() bool { return a.frame.Over }

// Score 当前得分
func (a *ArcadeModel) Score() int64 { return int64(a.frame.Score) }

// MarkSubmitted 得分只提交一次，首次调用返回 true
func (a *ArcadeModel) MarkSubmitted() bool {
	if a.submitted {
		return false
	}
	a.submitted = true
	return true
}

// Render 把精灵缩放到字符画面
func (a *ArcadeModel) Render() string {
	w, h := worldSize(a.game)
	grid := make([][]rune, arcadeRows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", arcadeCols))
	}

	for _, s := range a.frame.Sprites {
		glyph, ok := spriteGlyphs[s.Kind]
		if !ok {
			glyph = '?'
		}
		x0 := scale(s.Rect.X, w, arcadeCols)
		x1 := max(scale(s.Rect.X+s.Rect.W, w, arcadeCols)-1, x0)
		y0 := scale(s.Rect.Y, h, arcadeRows)
		y1 := max(scale(s.Rect.Y+s.Rect.H, h, arcadeRows)-1, y0)
		for y := max(y0, 0); y <= min(y1, arcadeRows-1); y++ {
			for x := max(x0, 0); x <= min(x1, arcadeCols-1); x++ {
				grid[y][x] = glyph
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteString("\n")
	}
	header := fmt.Sprintf("%s  得分 %d", arcadeTitles[a.game], a.frame.Score)
	if a.game == arcade.GameSpaceInvaders {
		header += fmt.Sprintf("  生命 %d", a.frame.Health)
	}
	body := boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
	footer := hintStyle.Render("←/→ 移动  空格 开火/跳跃  ESC 退出")
	if a.frame.Over {
		footer = loseStyle.Render(fmt.Sprintf("游戏结束！最终得分 %d  回车返回大厅", a.frame.Score))
	}
	return strings.Join([]string{titleStyle(header), body, footer}, "\n")
}

func scale(v, size float64, cells int) int {
	return int(math.Floor(v / size * float64(cells)))
}
