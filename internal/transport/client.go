// Package transport 客户端 WebSocket 连接，断线后携带令牌自动重连
package transport

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	handshakeTimeout = 10 * time.Second

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 最大重连次数
	defaultMaxReconnects = 5
	// 首次重连间隔
	defaultReconnectInterval = 2 * time.Second
	// 重连间隔上限
	maxReconnectInterval = 30 * time.Second
)

var (
	ErrClosed         = errors.New("transport: connection closed")
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Client WebSocket 客户端
type Client struct {
	ServerURL string

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	PlayerID   string
	PlayerName string
	Token      string // 身份令牌，重连时携带

	latency atomic.Int64

	// 回调
	OnMessage       func(*protocol.Message)  // 消息回调
	OnError         func(error)              // 错误回调
	OnClose         func()                   // 关闭回调
	OnReconnect     func()                   // 重连成功回调
	OnReconnecting  func(attempt, total int) // 正在重连回调
	OnLatencyUpdate func(int64)              // 延迟更新回调

	maxReconnects     int
	reconnectInterval time.Duration

	mu             sync.RWMutex
	closed         bool
	reconnecting   atomic.Bool
	reconnectCount int
}

// Option 客户端选项
type Option func(*Client)

// WithReconnect 设置最大重连次数和首次重连间隔
func WithReconnect(attempts int, interval time.Duration) Option {
	return func(c *Client) {
		c.maxReconnects = attempts
		c.reconnectInterval = interval
	}
}

// WithIdentity 以已保存的令牌和昵称连接
func WithIdentity(token, name string) Option {
	return func(c *Client) {
		c.Token = token
		c.PlayerName = name
	}
}

// NewClient 创建客户端
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		ServerURL:         serverURL,
		send:              make(chan []byte, 256),
		receive:           make(chan *protocol.Message, 256),
		done:              make(chan struct{}),
		maxReconnects:     defaultMaxReconnects,
		reconnectInterval: defaultReconnectInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect 连接服务器
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.start(conn)
	return nil
}

// start 登记连接并启动读写协程，stop 在读协程退出时关闭
func (c *Client) start(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.readPump(conn, stop)
	go c.writePump(conn, stop)
}

// dial 建立连接，令牌和昵称放在查询参数里
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	q := u.Query()
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	if c.PlayerName != "" {
		q.Set("name", c.PlayerName)
	}
	c.mu.RUnlock()
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// Receive 消息通道，缓冲满时丢弃
func (c *Client) Receive() <-chan *protocol.Message {
	return c.receive
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Send 构造并发送消息
func (c *Client) Send(msgType protocol.MessageType, payload any) error {
	msg, err := codec.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Close 关闭连接，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil
}

// IsClosed 是否已被主动关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Latency 当前延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// Identity 返回当前玩家 id、昵称和令牌
func (c *Client) Identity() (id, name, token string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PlayerID, c.PlayerName, c.Token
}

// ReceiveWithTimeout 等待下一条消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	case <-c.done:
		return nil, ErrClosed
	}
}
