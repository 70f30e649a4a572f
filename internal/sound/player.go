// Package sound 客户端音效服务，通过 Player 接口注入到界面
package sound

import "math"

// 音效名称，对应 assets/sounds 下的文件名（不含扩展名）
const (
	Hit     = "hit"
	Miss    = "miss"
	Sunk    = "sunk"
	Move    = "move"
	Capture = "capture"
	Reveal  = "reveal"
	Win     = "win"
	Lose    = "lose"
	Tick    = "tick"
)

// Player 音效服务
type Player interface {
	Play(name string)
	SetVolume(v float64)
	Close()
}

// gain 把 0~1 的音量换算为以 2 为底的增益，0 表示静音
func gain(v float64) (level float64, silent bool) {
	if v <= 0 {
		return 0, true
	}
	return math.Log2(min(v, 1)), false
}

// Nop 不发声的 Player
type Nop struct{}

func (Nop) Play(string)       {}
func (Nop) SetVolume(float64) {}
func (Nop) Close()            {}

var _ Player = Nop{}
