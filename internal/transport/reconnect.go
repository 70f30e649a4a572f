package transport

import (
	"context"
	"time"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
)

// Ping 发送心跳，服务器回 pong 后更新延迟
func (c *Client) Ping() error {
	return c.Send(protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
}

// StartHeartbeat 启动心跳检测
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if c.IsConnected() && !c.reconnecting.Load() {
					_ = c.Ping()
				}
			case <-c.done:
				return
			}
		}
	}()
}

// tryReconnect 指数退避重连，新连接携带令牌，服务器回 connected 即视为成功
func (c *Client) tryReconnect() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			c.reconnecting.Store(false)
		}
	}()

	backoff := c.reconnectInterval

	for {
		c.mu.Lock()
		if c.closed || c.reconnectCount >= c.maxReconnects {
			c.mu.Unlock()
			break
		}
		c.reconnectCount++
		attempt := c.reconnectCount
		c.mu.Unlock()

		if c.OnReconnecting != nil {
			c.OnReconnecting(attempt, c.maxReconnects)
		}

		select {
		case <-time.After(backoff):
		case <-c.done:
			c.reconnecting.Store(false)
			return
		}

		backoff *= 2
		if backoff > maxReconnectInterval {
			backoff = maxReconnectInterval
		}

		ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			logger.Debugf("重连失败 (%d/%d): %v", attempt, c.maxReconnects, err)
			continue
		}

		logger.Infof("🔁 已重新连接 (%d/%d)", attempt, c.maxReconnects)
		c.start(conn)
		return
	}

	// 重连失败
	c.reconnecting.Store(false)
	logger.Warnf("⚠️ 重连失败，放弃")
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}
