package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小，布阵动作比普通消息大
	maxMessageSize = 8192

	sendBufferSize = 256
)

// Client 代表一个连接的玩家
type Client struct {
	ID    string
	Name  string
	Token string
	IP    string

	server *Server
	conn   *websocket.Conn
	send   chan []byte

	// 订阅（大厅、房间）在连接断开时一并取消
	ctx    context.Context
	cancel context.CancelFunc
	subs   map[string]context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]context.CancelFunc),
	}
}

func (c *Client) log() *logrus.Entry {
	return logger.WithFields(logrus.Fields{"player": c.GetID(), "ip": c.IP})
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log().Debugf("读取错误: %v", err)
			}
			return
		}

		msg, err := codec.Decode(data)
		var msgType protocol.MessageType
		if err == nil {
			msgType = msg.Type
		}
		switch c.server.messageLimiter.Check(c.GetID(), msgType) {
		case VerdictKick:
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "操作过于频繁，连接已断开"))
			c.log().Warn("🚫 多次超速，断开连接")
			return
		case VerdictDeny:
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, rateLimitText(msgType)))
			continue
		}

		if err != nil {
			c.log().Debugf("消息解析错误: %v", err)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
	}
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，缓冲区满时断开连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := codec.Encode(msg)
	if err != nil {
		c.log().Errorf("消息编码错误: %v", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log().Warn("⚠️ 发送缓冲区已满，断开连接")
		go c.Close()
	}
}

// handleDisconnect 处理断开连接；房间座位保留，重连后凭令牌继续
func (c *Client) handleDisconnect() {
	c.cancel()
	c.server.unregisterClient(c)
	c.Close()
}

// Close 关闭发送通道，WritePump 随之退出
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		c.cancel()
		close(c.send)
	}
}

// GetID 玩家 id
func (c *Client) GetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ID
}

// GetName 玩家昵称
func (c *Client) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Name
}

// GetToken 当前身份令牌
func (c *Client) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Token
}

// SetIdentity 设置玩家身份
func (c *Client) SetIdentity(id, name, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ID, c.Name, c.Token = id, name, token
}

// Subscribe 开启订阅，返回的 ctx 在替换、退订或断开时取消
func (c *Client) Subscribe(key string) context.Context {
	ctx, cancel := context.WithCancel(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.subs[key]; ok {
		old()
	}
	c.subs[key] = cancel
	return ctx
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.subs[key]; ok {
		cancel()
		delete(c.subs, key)
	}
}
