package arcade

import "math/rand/v2"

// 跳跃参数
const (
	JumpWidth  = 120.0
	JumpHeight = 200.0

	jumperW       = 8.0
	jumperH       = 8.0
	gravity       = 0.35
	bounceSpeed   = 8.5
	tiltSpeed     = 3.0
	platformW     = 20.0
	platformH     = 3.0
	platformGap   = 28.0 // 相邻平台的垂直间距
	cameraLine    = JumpHeight / 3
	platformCount = 8 // JumpHeight/platformGap 向下取整再加底部平台
)

// JorisJump 重力下落，踩到平台反弹；镜头随玩家上升，分数为最大高度
type JorisJump struct {
	rng *rand.Rand

	player    Rect
	vy        float64
	platforms []Rect
	climbed   float64 // 镜头累计上移的距离
	best      float64
	over      bool
}

// NewJorisJump 新游戏，玩家站在最底部的平台上
func NewJorisJump(rng *rand.Rand) *JorisJump {
	g := &JorisJump{rng: rng}
	base := Rect{X: (JumpWidth - platformW) / 2, Y: JumpHeight - 10, W: platformW, H: platformH}
	g.platforms = append(g.platforms, base)
	for i := 1; i < platformCount; i++ {
		g.platforms = append(g.platforms, g.randomPlatform(base.Y-float64(i)*platformGap))
	}
	g.player = Rect{X: base.X + (platformW-jumperW)/2, Y: base.Y - jumperH, W: jumperW, H: jumperH}
	g.vy = -bounceSpeed
	return g
}

func (g *JorisJump) randomPlatform(y float64) Rect {
	return Rect{X: g.rng.Float64() * (JumpWidth - platformW), Y: y, W: platformW, H: platformH}
}

func (g *JorisJump) Name() string { return GameJorisJump }

// Step 推进一帧
func (g *JorisJump) Step(in Input) {
	if g.over {
		return
	}

	// 倾斜控制水平移动，左右穿屏
	g.player.X += clamp(in.Tilt, -1, 1) * tiltSpeed
	switch {
	case g.player.X+g.player.W/2 < 0:
		g.player.X += JumpWidth
	case g.player.X+g.player.W/2 > JumpWidth:
		g.player.X -= JumpWidth
	}

	prevBottom := g.player.Bottom()
	g.vy += gravity
	g.player.Y += g.vy

	// 只有下落时从上方穿过平台顶面才反弹
	if g.vy > 0 {
		for _, p := range g.platforms {
			if prevBottom <= p.Y && g.player.Bottom() >= p.Y &&
				g.player.Right() > p.X && g.player.X < p.Right() {
				g.player.Y = p.Y - g.player.H
				g.vy = -bounceSpeed
				break
			}
		}
	}

	if g.player.Y < cameraLine {
		g.scroll(cameraLine - g.player.Y)
	}
	g.best = max(g.best, g.climbed+(JumpHeight-g.player.Bottom()))

	if g.player.Y > JumpHeight {
		g.over = true
	}
}

// scroll 镜头上移 dy：所有实体下移，移出屏幕的平台被回收到顶部
func (g *JorisJump) scroll(dy float64) {
	g.climbed += dy
	g.player.Y += dy
	top := JumpHeight
	kept := g.platforms[:0]
	for _, p := range g.platforms {
		p.Y += dy
		if p.Y <= JumpHeight {
			kept = append(kept, p)
			top = min(top, p.Y)
		}
	}
	g.platforms = kept
	for top > 0 {
		top -= platformGap
		g.platforms = append(g.platforms, g.randomPlatform(top))
	}
}

func (g *JorisJump) Score() int  { return int(g.best) }
func (g *JorisJump) Health() int { return boolHealth(g.over) }
func (g *JorisJump) Over() bool  { return g.over }

// Sprites 当前所有实体
func (g *JorisJump) Sprites() []Sprite {
	out := make([]Sprite, 0, len(g.platforms)+1)
	out = append(out, Sprite{Kind: "player", Rect: g.player})
	for _, p := range g.platforms {
		out = append(out, Sprite{Kind: "platform", Rect: p})
	}
	return out
}

func boolHealth(over bool) int {
	if over {
		return 0
	}
	return 1
}
