package types

import (
	"context"

	"github.com/palemoky/party-games/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
	// Rebind 客户端身份变化后重新登记，同 uid 的旧连接会被踢下线
	Rebind(oldID string, client ClientInterface)
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	GetName() string
	GetToken() string
	SetIdentity(id, name, token string)
	SendMessage(msg *protocol.Message)
	// Subscribe 开启一个以 key 区分的订阅，同 key 的旧订阅被取消；连接断开时全部取消
	Subscribe(key string) context.Context
	Unsubscribe(key string)
	Close()
}
