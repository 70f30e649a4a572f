package arcade

import "math/rand/v2"

// 太空侵略者参数，坐标单位为逻辑像素
const (
	InvadersWidth  = 160.0
	InvadersHeight = 200.0

	InvaderRows    = 5
	InvaderCols    = 8
	invaderW       = 10.0
	invaderH       = 8.0
	invaderGap     = 6.0
	invaderStepX   = 0.5
	invaderStepY   = 6.0
	invaderScore   = 10
	rowFireChance  = 0.004
	shipW          = 12.0
	shipH          = 6.0
	shipSpeed      = 2.5
	bulletW        = 1.0
	bulletH        = 4.0
	bulletSpeed    = 5.0
	enemyBulletSpd = 2.0
	startHealth    = 3
)

// SpaceInvaders 5×8 的侵略者方阵左右行进，碰到边缘下移一行
type SpaceInvaders struct {
	rng *rand.Rand

	ship         Rect
	invaders     [InvaderRows][InvaderCols]bool
	originX      float64
	originY      float64
	dir          float64
	shot         *Rect
	enemyBullets []Rect
	score        int
	health       int
	wave         int
	over         bool
}

// NewSpaceInvaders 新游戏
func NewSpaceInvaders(rng *rand.Rand) *SpaceInvaders {
	g := &SpaceInvaders{
		rng:    rng,
		ship:   Rect{X: (InvadersWidth - shipW) / 2, Y: InvadersHeight - shipH - 2, W: shipW, H: shipH},
		health: startHealth,
	}
	g.spawnWave()
	return g
}

func (g *SpaceInvaders) spawnWave() {
	for r := range InvaderRows {
		for c := range InvaderCols {
			g.invaders[r][c] = true
		}
	}
	g.originX = invaderGap
	g.originY = 10 + float64(g.wave)*invaderStepY
	g.dir = 1
	g.wave++
}

// invaderRect 第 r 行第 c 列侵略者的位置
func (g *SpaceInvaders) invaderRect(r, c int) Rect {
	return Rect{
		X: g.originX + float64(c)*(invaderW+invaderGap),
		Y: g.originY + float64(r)*(invaderH+invaderGap),
		W: invaderW,
		H: invaderH,
	}
}

func (g *SpaceInvaders) alive() (rects []Rect, idx [][2]int) {
	for r := range InvaderRows {
		for c := range InvaderCols {
			if g.invaders[r][c] {
				rects = append(rects, g.invaderRect(r, c))
				idx = append(idx, [2]int{r, c})
			}
		}
	}
	return rects, idx
}

func (g *SpaceInvaders) Name() string { return GameSpaceInvaders }

// Step 推进一帧
func (g *SpaceInvaders) Step(in Input) {
	if g.over {
		return
	}
	g.moveShip(in)
	g.march()
	g.moveBullets()
	g.enemyFire()
	g.collide()

	if rects, _ := g.alive(); len(rects) == 0 {
		g.spawnWave()
	}
	if g.health <= 0 {
		g.over = true
	}
}

func (g *SpaceInvaders) moveShip(in Input) {
	g.ship.X = clamp(g.ship.X+in.Move*shipSpeed, 0, InvadersWidth-shipW)
	if in.Fire && g.shot == nil {
		g.shot = &Rect{X: g.ship.X + shipW/2, Y: g.ship.Y - bulletH, W: bulletW, H: bulletH}
	}
}

// march 方阵整体移动，最外侧侵略者碰到边缘时下移并反向
func (g *SpaceInvaders) march() {
	rects, _ := g.alive()
	if len(rects) == 0 {
		return
	}
	minX, maxX := rects[0].X, rects[0].Right()
	for _, r := range rects {
		minX = min(minX, r.X)
		maxX = max(maxX, r.Right())
	}
	dx := g.dir * invaderStepX
	if minX+dx < 0 || maxX+dx > InvadersWidth {
		g.dir = -g.dir
		g.originY += invaderStepY
	} else {
		g.originX += dx
	}
}

func (g *SpaceInvaders) moveBullets() {
	if g.shot != nil {
		g.shot.Y -= bulletSpeed
		if g.shot.Bottom() < 0 {
			g.shot = nil
		}
	}
	kept := g.enemyBullets[:0]
	for _, b := range g.enemyBullets {
		b.Y += enemyBulletSpd
		if b.Y < InvadersHeight {
			kept = append(kept, b)
		}
	}
	g.enemyBullets = kept
}

// enemyFire 每一行按概率从该行随机一个侵略者发射子弹
func (g *SpaceInvaders) enemyFire() {
	for r := range InvaderRows {
		if g.rng.Float64() >= rowFireChance {
			continue
		}
		var cols []int
		for c := range InvaderCols {
			if g.invaders[r][c] {
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			continue
		}
		src := g.invaderRect(r, cols[g.rng.IntN(len(cols))])
		g.enemyBullets = append(g.enemyBullets, Rect{X: src.X + src.W/2, Y: src.Bottom(), W: bulletW, H: bulletH})
	}
}

func (g *SpaceInvaders) collide() {
	rects, idx := g.alive()
	if g.shot != nil {
		if i := FirstHit(*g.shot, rects); i >= 0 {
			g.invaders[idx[i][0]][idx[i][1]] = false
			g.score += invaderScore
			g.shot = nil
		}
	}

	kept := g.enemyBullets[:0]
	for _, b := range g.enemyBullets {
		if b.Intersects(g.ship) {
			g.health--
			continue
		}
		kept = append(kept, b)
	}
	g.enemyBullets = kept

	for _, r := range rects {
		if r.Bottom() >= g.ship.Y {
			g.over = true
			return
		}
	}
}

func (g *SpaceInvaders) Score() int  { return g.score }
func (g *SpaceInvaders) Health() int { return max(g.health, 0) }
func (g *SpaceInvaders) Over() bool  { return g.over }

// Sprites 当前所有实体
func (g *SpaceInvaders) Sprites() []Sprite {
	rects, _ := g.alive()
	out := make([]Sprite, 0, len(rects)+len(g.enemyBullets)+2)
	out = append(out, Sprite{Kind: "ship", Rect: g.ship})
	for _, r := range rects {
		out = append(out, Sprite{Kind: "invader", Rect: r})
	}
	if g.shot != nil {
		out = append(out, Sprite{Kind: "shot", Rect: *g.shot})
	}
	for _, b := range g.enemyBullets {
		out = append(out, Sprite{Kind: "bomb", Rect: b})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
