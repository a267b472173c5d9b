//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/server/session"
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

func (m *MockClient) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) Identity() session.Identity {
	args := m.Called()
	return args.Get(0).(session.Identity)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 简单的客户端实现，记录收到的消息，不使用 testify
type SimpleClient struct {
	ID    string
	Ident session.Identity

	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
}

func (c *SimpleClient) GetID() string              { return c.ID }
func (c *SimpleClient) GetName() string            { return c.Ident.Username }
func (c *SimpleClient) GetRoom() string            { return c.Ident.RoomCode }
func (c *SimpleClient) Identity() session.Identity { return c.Ident }

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Messages 已收到消息的副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.messages...)
}

// Closed 是否已被关闭
func (c *SimpleClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
