package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
	"github.com/palemoky/muuzika/internal/server/session"
	"github.com/palemoky/muuzika/internal/types"
)

// handleHub 校验令牌、绑定玩家后升级为 WebSocket
func (s *Server) handleHub(c *gin.Context) {
	r := c.Request
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.rooms.InMaintenance() {
		log.Info().Str("ip", clientIP).Msg("🔧 维护模式，拒绝新连接")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"code":  protocol.ErrCodeServerMaintenance,
			"error": protocol.ErrorMessages[protocol.ErrCodeServerMaintenance],
		})
		return
	}

	// 连接数限制检查，连接关闭时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn().Int("max", s.maxConnections).Str("ip", clientIP).Msg("🚫 达到最大连接数限制")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server full"})
		return
	}
	release := func() { <-s.semaphore }

	if !s.originChecker.Check(r) {
		release()
		log.Warn().Str("origin", r.Header.Get("Origin")).Str("ip", clientIP).Msg("🚫 来源验证失败")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		release()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	_, id, err := s.rooms.Reconnect(bearerToken(r))
	if err != nil {
		release()
		log.Debug().Err(err).Str("ip", clientIP).Msg("🚫 连接令牌无效")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":  protocol.ErrCodeUnauthorized,
			"error": protocol.ErrorMessages[protocol.ErrCodeUnauthorized],
		})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		release()
		log.Debug().Err(err).Str("ip", clientIP).Msg("WebSocket 升级失败")
		s.releasePlayer(id)
		return
	}

	client := NewClient(s, conn, id)
	client.IP = clientIP
	s.bind(client)

	log.Info().
		Str("room", id.RoomCode).
		Str("player", id.Username).
		Str("client", client.ID).
		Msg("✅ 玩家已连接")

	go client.WritePump()
	go func() {
		defer release()
		client.ReadPump()
	}()
}

// bind 注册连接后再次恢复在线状态并补发完整状态，
// 覆盖从 Reconnect 到注册之间旧连接的掉线处理和房间变化
func (s *Server) bind(c types.ClientInterface) {
	s.hub.Register(c)

	state, err := s.rooms.Resume(c.Identity())
	if err != nil {
		c.SendMessage(failureEnvelope(err))
		c.Close()
		return
	}
	s.hub.Deliver(c, state)
}

// unbind 连接断开时解除绑定，只有当前绑定的连接才会让玩家掉线
func (s *Server) unbind(c types.ClientInterface) {
	if !s.hub.Unregister(c) {
		return
	}
	s.releasePlayer(c.Identity())
}

// releasePlayer 标记玩家掉线。若此时已有新连接完成注册，则恢复其在线状态
func (s *Server) releasePlayer(id session.Identity) {
	err := s.rooms.Disconnect(id)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrPlayerNotFound):
		// 已离开房间或房间已关闭
		return
	default:
		log.Error().Err(err).Str("room", id.RoomCode).Str("player", id.Username).Msg("❗ 处理断线失败")
		return
	}

	current, ok := s.hub.Current(id.RoomCode, id.Username)
	if !ok {
		return
	}
	if _, err := s.rooms.Resume(current.Identity()); err != nil && !errors.Is(err, apperrors.ErrPlayerNotFound) {
		log.Error().Err(err).Str("room", id.RoomCode).Str("player", id.Username).Msg("❗ 恢复在线状态失败")
	}
}

func failureEnvelope(err error) *protocol.Message {
	pub := apperrors.Public(err)
	return codec.NewErrorMessageWithText(pub.Code, pub.Message)
}
