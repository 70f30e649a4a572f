// Package arcade 单人街机小游戏：固定帧率循环和三个世界（太空侵略者、跳跃、尖叫恐龙）。
package arcade

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/palemoky/party-games/internal/scheduler"
)

// TickInterval 约 60 帧每秒
const TickInterval = 16 * time.Millisecond

// Input 触屏、加速度计和麦克风的输入
type Input struct {
	Move      float64 // -1..1，水平移动
	Fire      bool    // 单次触发，消费后清除
	Tilt      float64 // -1..1，设备倾斜
	Amplitude float64 // 0..1，麦克风音量
}

// Sprite 需要绘制的实体
type Sprite struct {
	Kind string `json:"kind"`
	Rect Rect   `json:"rect"`
}

// Frame 每一帧发布的快照
type Frame struct {
	Tick    int      `json:"tick"`
	Score   int      `json:"score"`
	Health  int      `json:"health"`
	Sprites []Sprite `json:"sprites"`
	Over    bool     `json:"over"`
}

// World 一个可以逐帧推进的游戏世界
type World interface {
	Name() string
	Step(in Input)
	Score() int
	Health() int
	Sprites() []Sprite
	Over() bool
}

// Loop 驱动 World 的固定帧率循环
type Loop struct {
	world    World
	interval time.Duration

	mu    sync.Mutex
	input Input
	tick  int
}

// NewLoop 创建循环；interval 为 0 时使用 TickInterval
func NewLoop(world World, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Loop{world: world, interval: interval}
}

// World 当前世界
func (l *Loop) World() World { return l.world }

// SetInput 更新输入；Fire 会保留到下一帧被消费
func (l *Loop) SetInput(in Input) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in.Fire = in.Fire || l.input.Fire
	l.input = in
}

// Tick 推进一帧并返回快照；游戏结束后不再推进
func (l *Loop) Tick() Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.world.Over() {
		l.world.Step(l.input)
		l.tick++
		l.input.Fire = false
	}
	return Frame{
		Tick:    l.tick,
		Score:   l.world.Score(),
		Health:  l.world.Health(),
		Sprites: l.world.Sprites(),
		Over:    l.world.Over(),
	}
}

// Start 每个 interval 推进一帧并调用 publish，直到 ctx 取消或游戏结束
func (l *Loop) Start(ctx context.Context, publish func(Frame)) *scheduler.Task {
	return scheduler.Every(ctx, l.interval, func(context.Context) bool {
		f := l.Tick()
		publish(f)
		return !f.Over
	})
}

// 街机游戏 ID
const (
	GameSpaceInvaders = "space_invaders"
	GameJorisJump     = "joris_jump"
	GameScreamOSaur   = "scream_o_saur"
)

// Games 所有街机游戏
var Games = []string{GameSpaceInvaders, GameJorisJump, GameScreamOSaur}

// NewWorld 按游戏 ID 创建世界
func NewWorld(id string, rng *rand.Rand) (World, error) {
	switch id {
	case GameSpaceInvaders:
		return NewSpaceInvaders(rng), nil
	case GameJorisJump:
		return NewJorisJump(rng), nil
	case GameScreamOSaur:
		return NewScreamOSaur(rng), nil
	}
	return nil, fmt.Errorf("未知的街机游戏: %q", id)
}
