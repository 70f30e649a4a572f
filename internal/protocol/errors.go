package protocol

// 错误码
const (
	ErrCodeUnknown      = 1000
	ErrCodeInvalidMsg   = 1001
	ErrCodeRateLimit    = 1002 // 速率限制
	ErrCodeUnauthorized = 1003 // 身份令牌无效

	ErrCodeRoomNotFound     = 2001
	ErrCodeRoomFull         = 2002
	ErrCodeNotInRoom        = 2003
	ErrCodeGameStarted      = 2004 // 游戏已开始
	ErrCodeWrongPassword    = 2005
	ErrCodeNotHost          = 2006
	ErrCodeNotEnoughPlayers = 2007
	ErrCodeUnknownGame      = 2008

	ErrCodeGameNotStart  = 3001
	ErrCodeNotYourTurn   = 3002
	ErrCodeInvalidMove   = 3003
	ErrCodeGameOver      = 3004
	ErrCodeNoOpponent    = 3005
	ErrCodeOutOfRange    = 3006
	ErrCodeAlreadyFired  = 3007
	ErrCodeNotRolled     = 3008
	ErrCodeAlreadyRolled = 3009
	ErrCodeInvalidFleet  = 3010
	ErrCodeWrongPhase    = 3011
	ErrCodeWrongRole     = 3012

	ErrCodeDesync       = 4001 // 会话状态无法解析，需要重新加入
	ErrCodeDisconnected = 4002 // 存储不可用
	ErrCodeConflict     = 4003 // 并发写入冲突

	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeUnauthorized:      "身份令牌无效",
	ErrCodeRoomNotFound:      "房间不存在",
	ErrCodeRoomFull:          "房间已满",
	ErrCodeNotInRoom:         "您不在房间中",
	ErrCodeGameStarted:       "游戏已开始",
	ErrCodeWrongPassword:     "房间密码错误",
	ErrCodeNotHost:           "只有房主可以执行此操作",
	ErrCodeNotEnoughPlayers:  "玩家人数不足",
	ErrCodeUnknownGame:       "未知的游戏类型",
	ErrCodeGameNotStart:      "游戏尚未开始",
	ErrCodeNotYourTurn:       "还没轮到您",
	ErrCodeInvalidMove:       "无效的操作",
	ErrCodeGameOver:          "游戏已结束",
	ErrCodeNoOpponent:        "对手尚未加入",
	ErrCodeOutOfRange:        "坐标超出范围",
	ErrCodeAlreadyFired:      "该位置已经攻击过",
	ErrCodeNotRolled:         "请先掷骰子",
	ErrCodeAlreadyRolled:     "本回合已经掷过骰子",
	ErrCodeInvalidFleet:      "舰队布置无效",
	ErrCodeWrongPhase:        "当前阶段不允许该操作",
	ErrCodeWrongRole:         "您的角色不能执行该操作",
	ErrCodeDesync:            "会话不同步，请重新加入房间",
	ErrCodeDisconnected:      "与存储服务断开连接",
	ErrCodeConflict:          "操作冲突，请重试",
	ErrCodeServerMaintenance: "服务器维护中",
}
