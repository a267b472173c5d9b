package coordinator

import "github.com/palemoky/muuzika/internal/protocol"

// Notifier 接收房间变化，调用时房间锁已释放。
// 同一房间的快照可能乱序到达，接收方应按 Version 丢弃旧快照。
type Notifier interface {
	RoomUpdated(room protocol.RoomDTO)
	RoomClosed(code string)
}

// Notifiers 依次通知多个接收方
type Notifiers []Notifier

func (ns Notifiers) RoomUpdated(room protocol.RoomDTO) {
	for _, n := range ns {
		n.RoomUpdated(room)
	}
}

func (ns Notifiers) RoomClosed(code string) {
	for _, n := range ns {
		n.RoomClosed(code)
	}
}
