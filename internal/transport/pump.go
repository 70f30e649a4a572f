package transport

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer c.handleReadExit(conn, stop)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		msg, err := codec.Decode(message)
		if err != nil {
			logger.Warnf("消息解析错误: %v", err)
			continue
		}

		c.processMessage(msg)
	}
}

func (c *Client) handleReadExit(conn *websocket.Conn, stop chan struct{}) {
	if r := recover(); r != nil {
		logger.LogPanic(r)
	}
	close(stop)
	_ = conn.Close()

	if c.IsClosed() {
		return
	}
	// 拿到过令牌才重连
	c.mu.RLock()
	canResume := c.Token != ""
	c.mu.RUnlock()
	if canResume {
		// 重连后的连接在握手前断开时继续计数重试
		c.reconnecting.Store(true)
		go c.tryReconnect()
		return
	}
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		if c.OnError != nil {
			c.OnError(err)
		}
	}
}

func (c *Client) processMessage(msg *protocol.Message) {
	isReconnected := c.handleInternalMessage(msg)

	if c.OnMessage != nil {
		c.OnMessage(msg)
	}

	select {
	case c.receive <- msg:
	default:
	}

	// 重连成功回调放在最后，确保消息已经发送到 channel
	if isReconnected && c.OnReconnect != nil {
		c.OnReconnect()
	}
}

// handleInternalMessage 处理身份与延迟消息，返回是否为重连后的首条 connected
func (c *Client) handleInternalMessage(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgConnected:
		payload, err := codec.ParsePayload[protocol.ConnectedPayload](msg)
		if err != nil {
			return false
		}
		c.mu.Lock()
		c.PlayerID = payload.PlayerID
		c.PlayerName = payload.PlayerName
		c.Token = payload.Token
		c.reconnectCount = 0
		c.mu.Unlock()
		return c.reconnecting.CompareAndSwap(true, false)
	case protocol.MsgPong:
		payload, err := codec.ParsePayload[protocol.PongPayload](msg)
		if err == nil && payload.ClientTimestamp > 0 {
			latency := time.Now().UnixMilli() - payload.ClientTimestamp
			c.latency.Store(latency)
			if c.OnLatencyUpdate != nil {
				c.OnLatencyUpdate(latency)
			}
		}
	}
	return false
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return

		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
