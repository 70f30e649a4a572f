package arcade

import "math/rand/v2"

// 尖叫恐龙参数
const (
	SaurWidth  = 200.0
	SaurHeight = 80.0

	groundY           = SaurHeight - 10
	saurX             = 20.0
	saurW             = 10.0
	saurH             = 12.0
	ScreamThreshold   = 0.6
	jumpSpeed         = 6.0
	saurGravity       = 0.4
	baseSpeed         = 2.0
	maxSpeed          = 6.0
	speedPerDistance  = 0.0008
	minObstacleGap    = 60.0
	obstacleChance    = 0.03
	obstacleW         = 6.0
	obstacleMinHeight = 8.0
	obstacleMaxHeight = 16.0
)

// ScreamOSaur 喊叫超过阈值时起跳，障碍物越来越快，撞上即结束；分数为跑过的距离
type ScreamOSaur struct {
	rng *rand.Rand

	saur      Rect
	vy        float64
	obstacles []Rect
	distance  float64
	sinceLast float64 // 距上一个障碍物生成后跑过的距离
	over      bool
}

// NewScreamOSaur 新游戏
func NewScreamOSaur(rng *rand.Rand) *ScreamOSaur {
	return &ScreamOSaur{
		rng:  rng,
		saur: Rect{X: saurX, Y: groundY - saurH, W: saurW, H: saurH},
	}
}

func (g *ScreamOSaur) Name() string { return GameScreamOSaur }

// Grounded 是否站在地面上
func (g *ScreamOSaur) Grounded() bool {
	return g.saur.Bottom() >= groundY
}

// Speed 当前速度，随距离增长
func (g *ScreamOSaur) Speed() float64 {
	return min(baseSpeed+g.distance*speedPerDistance, maxSpeed)
}

// Step 推进一帧
func (g *ScreamOSaur) Step(in Input) {
	if g.over {
		return
	}

	if in.Amplitude > ScreamThreshold && g.Grounded() {
		g.vy = -jumpSpeed
	}
	g.vy += saurGravity
	g.saur.Y += g.vy
	if g.Grounded() {
		g.saur.Y = groundY - saurH
		g.vy = 0
	}

	speed := g.Speed()
	g.distance += speed
	g.sinceLast += speed
	kept := g.obstacles[:0]
	for _, o := range g.obstacles {
		o.X -= speed
		if o.Right() > 0 {
			kept = append(kept, o)
		}
	}
	g.obstacles = kept

	if g.sinceLast > minObstacleGap && g.rng.Float64() < obstacleChance {
		h := obstacleMinHeight + g.rng.Float64()*(obstacleMaxHeight-obstacleMinHeight)
		g.obstacles = append(g.obstacles, Rect{X: SaurWidth, Y: groundY - h, W: obstacleW, H: h})
		g.sinceLast = 0
	}

	if FirstHit(g.saur, g.obstacles) >= 0 {
		g.over = true
	}
}

func (g *ScreamOSaur) Score() int  { return int(g.distance) }
func (g *ScreamOSaur) Health() int { return boolHealth(g.over) }
func (g *ScreamOSaur) Over() bool  { return g.over }

// Sprites 当前所有实体
func (g *ScreamOSaur) Sprites() []Sprite {
	out := make([]Sprite, 0, len(g.obstacles)+1)
	out = append(out, Sprite{Kind: "saur", Rect: g.saur})
	for _, o := range g.obstacles {
		out = append(out, Sprite{Kind: "cactus", Rect: o})
	}
	return out
}
