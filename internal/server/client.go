package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/logger"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
	"github.com/palemoky/muuzika/internal/server/session"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client 一个已绑定到房间玩家的实时连接
type Client struct {
	ID string
	IP string

	identity session.Identity
	server   *Server
	conn     *websocket.Conn
	send     chan []byte
	limiter  *MessageLimiter

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建客户端
func NewClient(s *Server, conn *websocket.Conn, id session.Identity) *Client {
	return &Client{
		ID:       uuid.NewString(),
		identity: id,
		server:   s,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		limiter:  NewMessageLimiter(s.config.Security.MessageLimit, s.clock),
	}
}

func (c *Client) GetID() string              { return c.ID }
func (c *Client) GetName() string            { return c.identity.Username }
func (c *Client) GetRoom() string            { return c.identity.RoomCode }
func (c *Client) Identity() session.Identity { return c.identity }

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", c.ID).Msg("读取错误")
			}
			return
		}

		allowed, disconnect := c.limiter.Allow()
		if disconnect {
			log.Warn().Str("player", c.GetName()).Str("ip", c.IP).Msg("🚫 客户端因多次超速被断开连接")
			return
		}
		if !allowed {
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeRateLimit))
			continue
		}

		msg, err := codec.Decode(message)
		if err != nil {
			log.Debug().Err(err).Str("client", c.ID).Msg("消息解析错误")
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
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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

// SendMessage 发送消息给客户端，缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := codec.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type)).Msg("❗ 消息编码错误")
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		c.mu.RUnlock()
	default:
		c.mu.RUnlock()
		log.Warn().Str("client", c.ID).Str("player", c.GetName()).Msg("⚠️ 发送缓冲区已满")
		c.Close()
	}
}

// Close 关闭客户端连接，可重复调用
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// handleDisconnect 连接断开后解绑，仍是当前连接时标记玩家离线
func (c *Client) handleDisconnect() {
	c.server.unbind(c)
}
