//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/muuzika/internal/protocol"
)

// MockNotifier 房间变化接收方 mock
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RoomUpdated(room protocol.RoomDTO) {
	m.Called(room)
}

func (m *MockNotifier) RoomClosed(code string) {
	m.Called(code)
}

// RecordingNotifier 记录所有房间变化，可并发调用
type RecordingNotifier struct {
	mu      sync.Mutex
	updates []protocol.RoomDTO
	closed  []string
}

func (n *RecordingNotifier) RoomUpdated(room protocol.RoomDTO) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, room)
}

func (n *RecordingNotifier) RoomClosed(code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, code)
}

// Updates 收到的快照副本
func (n *RecordingNotifier) Updates() []protocol.RoomDTO {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]protocol.RoomDTO(nil), n.updates...)
}

// Latest 某个房间版本最高的快照
func (n *RecordingNotifier) Latest(code string) (protocol.RoomDTO, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var latest protocol.RoomDTO
	found := false
	for _, u := range n.updates {
		if u.Code == code && (!found || u.Version > latest.Version) {
			latest = u
			found = true
		}
	}
	return latest, found
}

// Closed 收到关闭通知的房间号
func (n *RecordingNotifier) Closed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.closed...)
}
