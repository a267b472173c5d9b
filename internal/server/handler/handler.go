package handler

import (
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/game/coordinator"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
	"github.com/palemoky/muuzika/internal/server/session"
	"github.com/palemoky/muuzika/internal/types"
)

// RoomService 房间协调器提供给边界层的操作
type RoomService interface {
	CreateRoom(username string) (*coordinator.Joined, error)
	JoinRoom(code, username string) (*coordinator.Joined, error)
	Reconnect(token string) (protocol.StateSync, session.Identity, error)
	Resume(id session.Identity) (protocol.StateSync, error)
	Disconnect(id session.Identity) error
	Leave(id session.Identity) error
	AdvanceRound(id session.Identity) (protocol.StateSync, error)
	SubmitAnswer(id session.Identity) error
	SyncAll(id session.Identity) (protocol.StateSync, error)
	InMaintenance() bool
	RoomCount() int
}

// Binder 解除连接与玩家的绑定
type Binder interface {
	Unregister(c types.ClientInterface) bool
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Rooms RoomService
	Hub   Binder
	Clock clockwork.Clock
}

// Handler 实时通道消息处理器
type Handler struct {
	rooms    RoomService
	hub      Binder
	clock    clockwork.Clock
	handlers map[protocol.MessageType]handlerFunc
}

// handlerFunc 返回调用结果数据，错误转换为失败结果
type handlerFunc func(client types.ClientInterface, msg *protocol.Message) (any, error)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		rooms: deps.Rooms,
		hub:   deps.Hub,
		clock: deps.Clock,
	}
	h.initHandlers()
	return h
}

func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		protocol.MsgSyncAll: func(c types.ClientInterface, _ *protocol.Message) (any, error) {
			return h.rooms.SyncAll(c.Identity())
		},
		protocol.MsgAdvanceRound: func(c types.ClientInterface, _ *protocol.Message) (any, error) {
			return h.rooms.AdvanceRound(c.Identity())
		},
		protocol.MsgSubmitAnswer: func(c types.ClientInterface, _ *protocol.Message) (any, error) {
			return nil, h.rooms.SubmitAnswer(c.Identity())
		},
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgPing:
		h.handlePing(client, msg)
		return
	case protocol.MsgLeave:
		h.handleLeave(client, msg)
		return
	}

	handler, ok := h.handlers[msg.Type]
	if !ok {
		log.Warn().
			Str("type", string(msg.Type)).
			Str("player", client.GetName()).
			Str("client", client.GetID()).
			Int("payload", len(msg.Payload)).
			Msg("⚠️ 未知消息类型")
		client.SendMessage(codec.NewFailureMessage(msg.ID, protocol.ErrCodeInvalidMsg, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg]))
		return
	}

	data, err := handler(client, msg)
	if err != nil {
		client.SendMessage(failure(msg.ID, err))
		return
	}
	client.SendMessage(codec.NewResultMessage(msg.ID, data))
}

// handlePing 心跳
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	ping, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}
	pong := codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: ping.Timestamp,
		ServerTimestamp: h.clock.Now().UnixMilli(),
	})
	pong.ID = msg.ID
	client.SendMessage(pong)
}

// handleLeave 离开房间后服务端关闭连接
func (h *Handler) handleLeave(client types.ClientInterface, msg *protocol.Message) {
	h.hub.Unregister(client)
	if err := h.rooms.Leave(client.Identity()); err != nil {
		client.SendMessage(failure(msg.ID, err))
	} else {
		client.SendMessage(codec.NewResultMessage(msg.ID, nil))
	}
	client.Close()
}

// failure 将协调器错误转换为对外的失败结果
func failure(id string, err error) *protocol.Message {
	pub := apperrors.Public(err)
	var ge *apperrors.GameError
	if !errors.As(err, &ge) || ge.Kind == apperrors.KindInternal {
		log.Error().Err(err).Msg("❗ 处理请求失败")
	}
	return codec.NewFailureMessage(id, pub.Code, pub.Message)
}
