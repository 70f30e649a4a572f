package room

// Status 房间状态
type Status string

const (
	StatusWaiting Status = "waiting" // 等待玩家加入
	StatusPlaying Status = "playing" // 游戏中
	StatusEnded   Status = "ended"   // 已分出结果，等待再来一局
)

// 游戏 ID，同时也是 gameState 下的子文档名
const (
	GameBattleships = "battleships"
	GameOhPardon    = "ohpardon"
	GameCodenames   = "codenames"
	GameTriviatoe   = "triviatoe"
)

// multiplayerGames 可以开房间的游戏；街机游戏是单人的，不经过房间目录
var multiplayerGames = map[string]bool{
	GameBattleships: true,
	GameOhPardon:    true,
	GameCodenames:   true,
	GameTriviatoe:   true,
}

// IsMultiplayer 是否是可开房间的游戏
func IsMultiplayer(gameID string) bool {
	return multiplayerGames[gameID]
}

// Capacity 房间容量，在开房时确定
func Capacity(gameID string) int {
	switch gameID {
	case GameBattleships, GameTriviatoe:
		return 2
	default:
		return 4
	}
}
