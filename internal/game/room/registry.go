package room

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/palemoky/muuzika/internal/apperrors"
)

// Registry 活跃房间注册表，只负责按房间号存取，不持有房间锁
type Registry struct {
	codes       CodeGenerator
	maxAttempts int
	clock       clockwork.Clock
	rooms       map[string]*Room
	mu          sync.RWMutex
}

// NewRegistry 创建注册表
func NewRegistry(codes CodeGenerator, maxAttempts int, clk clockwork.Clock) *Registry {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Registry{
		codes:       codes,
		maxAttempts: maxAttempts,
		clock:       clk,
		rooms:       make(map[string]*Room),
	}
}

// Create 生成未使用的房间号并插入新房间。
// init 在房间对外可见之前执行，可为 nil。
func (rg *Registry) Create(opts Options, init func(*Room)) (*Room, error) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	for range rg.maxAttempts {
		code := rg.codes.Generate()
		if _, exists := rg.rooms[code]; exists {
			continue
		}

		r := New(code, opts, rg.clock)
		if init != nil {
			init(r)
		}
		rg.rooms[code] = r
		return r, nil
	}
	return nil, apperrors.ErrCodeSpaceExhausted
}

// Get 获取房间，不存在时返回 nil
func (rg *Registry) Get(code string) *Room {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.rooms[code]
}

// Remove 移除房间，可重复调用
func (rg *Registry) Remove(code string) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	delete(rg.rooms, code)
}

// Len 活跃房间数
func (rg *Registry) Len() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return len(rg.rooms)
}

// Rooms 返回当前所有房间的快照列表
func (rg *Registry) Rooms() []*Room {
	rg.mu.RLock()
	defer rg.mu.RUnlock()

	rooms := make([]*Room, 0, len(rg.rooms))
	for _, r := range rg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}
