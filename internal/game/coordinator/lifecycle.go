package coordinator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/game/room"
)

// onTimer 返回房间定时器回调。回调重新加锁并认领凭据，过期或已取消的触发被丢弃
func (c *Coordinator) onTimer(r *room.Room) func(room.TimerTicket) {
	return func(t room.TimerTicket) {
		err := c.mutate(r, func() error {
			if !r.Claim(t) || r.Status() == room.StatusClosed {
				log.Debug().Str("room", r.Code).Stringer("cause", t.Cause()).Msg("⏱️ 丢弃过期定时器")
				return nil
			}

			switch t.Cause() {
			case room.TimerCloseRoom:
				if r.ConnectedCount() == 0 {
					c.closeLocked(r, "empty")
				}
			case room.TimerRemovePlayer:
				if p := r.Player(t.Target()); p != nil && !p.Connected {
					c.removeLocked(r, p.Username, "disconnect grace expired")
				}
			case room.TimerEndRound:
				if r.Status() == room.StatusRoundInProgress {
					return r.EndRound()
				}
			}
			return nil
		})
		if err != nil {
			log.Debug().Err(err).Str("room", r.Code).Stringer("cause", t.Cause()).Msg("⏱️ 定时器处理失败")
		}
	}
}

// Run 定期清理空闲房间，直到 ctx 结束
func (c *Coordinator) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.SweepIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := c.sweep(); n > 0 {
				log.Info().Int("closed", n).Msg("🧹 已清理空闲房间")
			}
		}
	}
}

// sweep 关闭长时间没有任何变化的房间，进行中的回合不受影响
func (c *Coordinator) sweep() int {
	idle := c.cfg.IdleTimeoutDuration()
	closed := 0

	for _, r := range c.registry.Rooms() {
		_ = c.mutate(r, func() error {
			switch r.Status() {
			case room.StatusClosed, room.StatusRoundInProgress:
				return nil
			}
			if c.clock.Since(r.LastActivity()) < idle {
				return nil
			}
			c.closeLocked(r, "idle")
			closed++
			return nil
		})
	}
	return closed
}

// EnterMaintenance 停止创建和加入房间
func (c *Coordinator) EnterMaintenance() {
	c.maintenance.Store(true)
}

// InMaintenance 是否处于维护模式
func (c *Coordinator) InMaintenance() bool {
	return c.maintenance.Load()
}

// Shutdown 进入维护模式并关闭所有房间
func (c *Coordinator) Shutdown() {
	c.EnterMaintenance()
	for _, r := range c.registry.Rooms() {
		_ = c.mutate(r, func() error {
			c.closeLocked(r, "shutdown")
			return nil
		})
	}
}
