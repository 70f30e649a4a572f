package arcade

// Rect 轴对齐矩形，Y 轴向下
type Rect struct {
	X, Y, W, H float64
}

// Intersects 两个矩形是否重叠（贴边不算）
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Bottom 下边缘
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Right 右边缘
func (r Rect) Right() float64 { return r.X + r.W }

// Translate 平移
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// FirstHit 按优先级返回第一个与 r 相交的障碍物下标，没有返回 -1
func FirstHit(r Rect, obstacles []Rect) int {
	for i, o := range obstacles {
		if r.Intersects(o) {
			return i
		}
	}
	return -1
}
