package server

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
	"github.com/palemoky/muuzika/internal/types"
)

// roomClients 一个房间内已绑定的连接，按用户名索引
type roomClients struct {
	clients map[string]types.ClientInterface
	version uint64 // 已推送的最新快照版本
}

// Hub 维护房间与实时连接的绑定，并将房间变化推送给连接
type Hub struct {
	rooms map[string]*roomClients
	mu    sync.Mutex
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*roomClients)}
}

// Register 绑定连接，同一玩家已有连接时旧连接被关闭。
// 绑定后应通过 Deliver 补发一次完整状态。
func (h *Hub) Register(c types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	code, name := c.GetRoom(), c.GetName()
	rc, ok := h.rooms[code]
	if !ok {
		rc = &roomClients{clients: make(map[string]types.ClientInterface)}
		h.rooms[code] = rc
	}

	if old, ok := rc.clients[name]; ok && old != c {
		log.Info().Str("room", code).Str("player", name).Msg("🔁 新连接替换旧连接")
		old.Close()
	}
	rc.clients[name] = c
}

// Deliver 向刚绑定的连接发送完整状态。
// 房间已推送过更新的版本时跳过，连接已经收到了更新的状态。
func (h *Hub) Deliver(c types.ClientInterface, state protocol.StateSync) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rc, ok := h.rooms[c.GetRoom()]
	if !ok || rc.clients[c.GetName()] != c || state.Room.Version < rc.version {
		return false
	}
	rc.version = state.Room.Version
	c.SendMessage(codec.MustNewMessage(protocol.MsgStateSync, state))
	return true
}

// Unregister 解除绑定。只有 c 仍是该玩家的当前连接时返回 true
func (h *Hub) Unregister(c types.ClientInterface) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	code, name := c.GetRoom(), c.GetName()
	rc, ok := h.rooms[code]
	if !ok || rc.clients[name] != c {
		return false
	}
	delete(rc.clients, name)
	if len(rc.clients) == 0 {
		delete(h.rooms, code)
	}
	return true
}

// RoomUpdated 向房间内每个连接推送各自视角的状态，旧版本快照被丢弃
func (h *Hub) RoomUpdated(room protocol.RoomDTO) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rc, ok := h.rooms[room.Code]
	if !ok || room.Version <= rc.version {
		return
	}
	rc.version = room.Version

	for name, c := range rc.clients {
		player, ok := room.FindPlayer(name)
		if !ok {
			// 已被移出房间
			continue
		}
		c.SendMessage(codec.MustNewMessage(protocol.MsgStateSync, protocol.StateSync{Room: room, Player: player}))
	}
}

// RoomClosed 通知房间内所有连接并关闭它们
func (h *Hub) RoomClosed(code string) {
	h.mu.Lock()
	rc, ok := h.rooms[code]
	delete(h.rooms, code)
	h.mu.Unlock()

	if !ok {
		return
	}

	msg := codec.MustNewMessage(protocol.MsgRoomClosed, protocol.RoomClosedPayload{RoomCode: code})
	for _, c := range rc.clients {
		c.SendMessage(msg)
		c.Close()
	}
}

// Current 返回玩家当前绑定的连接
func (h *Hub) Current(code, name string) (types.ClientInterface, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rc, ok := h.rooms[code]
	if !ok {
		return nil, false
	}
	c, ok := rc.clients[name]
	return c, ok
}

// OnlineCount 已绑定的连接数
func (h *Hub) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, rc := range h.rooms {
		n += len(rc.clients)
	}
	return n
}

// Broadcast 广播消息给所有连接
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rc := range h.rooms {
		for _, c := range rc.clients {
			c.SendMessage(msg)
		}
	}
}

// CloseAll 关闭所有连接
func (h *Hub) CloseAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*roomClients)
	h.mu.Unlock()

	for _, rc := range rooms {
		for _, c := range rc.clients {
			c.Close()
		}
	}
}
