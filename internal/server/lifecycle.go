package server

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
)

const (
	statsInterval = 30 * time.Second
	visitorMaxAge = 10 * time.Minute
)

// monitorStats 定期记录服务器状态并清理限流记录
func (s *Server) monitorStats(ctx context.Context) {
	ticker := s.clock.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		stats := s.stats()
		removed := s.rateLimiter.Cleanup(visitorMaxAge)

		log.Info().
			Int("rooms", stats.Rooms).
			Int("online", stats.Online).
			Int("goroutines", runtime.NumGoroutine()).
			Int("connections", stats.Connections).
			Int("max_connections", stats.MaxConnections).
			Float64("mem_mb", float64(m.Alloc)/1024/1024).
			Int("visitors_removed", removed).
			Msg("📊 [监控]")
	}
}

// EnterMaintenanceMode 进入维护模式：停止新连接和房间创建，并通知在线玩家
func (s *Server) EnterMaintenanceMode() {
	s.rooms.EnterMaintenance()
	s.hub.Broadcast(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
	log.Info().Msg("🔧 进入维护模式：停止新连接和房间创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	return s.rooms.InMaintenance()
}

// GracefulShutdown 关闭所有房间并停止 HTTP 服务
func (s *Server) GracefulShutdown(ctx context.Context) {
	s.EnterMaintenanceMode()

	// 关闭房间会通知并断开所有已绑定的连接
	s.rooms.Shutdown()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️ HTTP 服务关闭超时")
		}
	}
	s.hub.CloseAll()

	// 房间关闭事件已全部入队，等镜像写完再关闭 Redis
	s.stopStore(ctx)
	if s.redis != nil {
		_ = s.redis.Close()
	}

	log.Info().Msg("服务器已关闭")
}

func (s *Server) stopStore(ctx context.Context) {
	s.storeCancel()
	if s.store == nil {
		return
	}
	select {
	case <-s.storeDone:
	case <-ctx.Done():
		log.Warn().Msg("⚠️ 房间快照写入超时")
	}
}
