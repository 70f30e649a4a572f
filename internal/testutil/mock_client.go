//go:build !production

package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetToken() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetIdentity(id, name, token string) {
	m.Called(id, name, token)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Subscribe(key string) context.Context {
	args := m.Called(key)
	return args.Get(0).(context.Context)
}

func (m *MockClient) Unsubscribe(key string) {
	m.Called(key)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 记录收到消息的并发安全客户端，不使用 testify mock
type SimpleClient struct {
	ID    string
	Name  string
	Token string

	mu       sync.Mutex
	messages []*protocol.Message
	subs     map[string]context.CancelFunc
}

func (c *SimpleClient) GetID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ID
}

func (c *SimpleClient) GetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Name
}

func (c *SimpleClient) GetToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Token
}

func (c *SimpleClient) SetIdentity(id, name, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ID, c.Name, c.Token = id, name, token
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Subscribe(key string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]context.CancelFunc)
	}
	if old, ok := c.subs[key]; ok {
		old()
	}
	c.subs[key] = cancel
	return ctx
}

func (c *SimpleClient) Unsubscribe(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.subs[key]; ok {
		cancel()
		delete(c.subs, key)
	}
}

// Close 取消所有订阅
func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, cancel := range c.subs {
		cancel()
		delete(c.subs, key)
	}
}

// Messages 返回已收到消息的副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*protocol.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last 返回最后一条指定类型的消息，没有返回 nil
func (c *SimpleClient) Last(t protocol.MessageType) *protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Type == t {
			return c.messages[i]
		}
	}
	return nil
}

// Subscribed 是否存在某个订阅
func (c *SimpleClient) Subscribed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[key]
	return ok
}
