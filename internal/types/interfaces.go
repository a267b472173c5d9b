package types

import (
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/server/session"
)

// ClientInterface 定义实时通道客户端接口（用于打破循环依赖）
type ClientInterface interface {
	GetID() string
	GetName() string
	GetRoom() string
	Identity() session.Identity
	SendMessage(msg *protocol.Message)
	Close()
}
