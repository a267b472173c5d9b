package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/game/room"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/server/session"
)

// CreateRoom 创建房间，创建者成为房主
func (c *Coordinator) CreateRoom(username string) (*Joined, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if c.maintenance.Load() {
		return nil, apperrors.ErrServerMaintenance
	}

	sessionID := uuid.NewString()
	r, err := c.registry.Create(c.options, func(r *room.Room) {
		_ = r.AddPlayer(&room.Player{Username: name, Connected: true, SessionID: sessionID})
	})
	if err != nil {
		log.Error().Err(err).Msg("❗ 无法分配房间号")
		return nil, err
	}

	id := session.Identity{RoomCode: r.Code, Username: name, SessionID: sessionID}
	token, err := c.issuer.Issue(id)
	if err != nil {
		_ = c.mutate(r, func() error {
			c.closeLocked(r, "token error")
			return nil
		})
		return nil, fmt.Errorf("issue token: %w", err)
	}

	r.Lock()
	state, _ := r.StateFor(name)
	r.Unlock()
	c.notifier.RoomUpdated(state.Room)

	log.Info().Str("room", r.Code).Str("player", name).Msg("🏠 房间已创建")
	return &Joined{Token: token, Identity: id, State: state}, nil
}

// JoinRoom 加入大厅中的房间
func (c *Coordinator) JoinRoom(code, username string) (*Joined, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if c.maintenance.Load() {
		return nil, apperrors.ErrServerMaintenance
	}

	r := c.registry.Get(strings.TrimSpace(code))
	if r == nil {
		return nil, apperrors.ErrRoomNotFound
	}

	id := session.Identity{RoomCode: r.Code, Username: name, SessionID: uuid.NewString()}
	token, err := c.issuer.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	var state protocol.StateSync
	err = c.mutate(r, func() error {
		if r.Status() == room.StatusClosed {
			return apperrors.ErrRoomNotFound
		}
		if err := r.AddPlayer(&room.Player{Username: name, Connected: true, SessionID: id.SessionID}); err != nil {
			return err
		}
		r.Cancel(room.TimerCloseRoom, "")
		state, _ = r.StateFor(name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room", r.Code).Str("player", name).Msg("👤 玩家加入房间")
	return &Joined{Token: token, Identity: id, State: state}, nil
}

// Reconnect 通道绑定：校验令牌并恢复玩家在线状态
func (c *Coordinator) Reconnect(token string) (protocol.StateSync, session.Identity, error) {
	id, err := c.issuer.Verify(token)
	if err != nil {
		return protocol.StateSync{}, session.Identity{}, err
	}

	state, err := c.Resume(id)
	if err != nil {
		return protocol.StateSync{}, session.Identity{}, err
	}
	return state, id, nil
}

// Resume 将已验证身份的玩家标记为在线，取消移除和关闭倒计时，返回最新状态。
// 连接绑定完成后再调用一次，覆盖旧连接在绑定前迟到的掉线处理。
func (c *Coordinator) Resume(id session.Identity) (protocol.StateSync, error) {
	var state protocol.StateSync
	err := c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		r.Cancel(room.TimerRemovePlayer, p.Username)
		r.Cancel(room.TimerCloseRoom, "")
		if r.SetConnected(p.Username, true) {
			log.Info().Str("room", r.Code).Str("player", p.Username).Msg("📶 玩家已连接")
		}
		state, _ = r.StateFor(p.Username)
		return nil
	})
	if err != nil {
		return protocol.StateSync{}, err
	}
	return state, nil
}

// Disconnect 通道解绑：标记离线并开始断线宽限期
func (c *Coordinator) Disconnect(id session.Identity) error {
	return c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		if !p.Connected {
			return nil
		}
		r.SetConnected(p.Username, false)
		r.Schedule(room.TimerRemovePlayer, p.Username, c.cfg.DelayDisconnectedPlayerRemoval, c.onTimer(r))
		c.endRoundIfAllSubmittedLocked(r)
		if r.ConnectedCount() == 0 {
			c.scheduleCloseLocked(r)
		}

		log.Info().
			Str("room", r.Code).
			Str("player", p.Username).
			Str("leader", r.Leader()).
			Msg("📴 玩家掉线")
		return nil
	})
}

// Leave 主动离开房间，重复调用不会报错
func (c *Coordinator) Leave(id session.Identity) error {
	err := c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		c.removeLocked(r, p.Username, "left")
		return nil
	})
	if errors.Is(err, apperrors.ErrPlayerNotFound) {
		return nil
	}
	return err
}

// AdvanceRound 房主推进房间状态：开始第一回合、开始下一回合或在最后一回合后关闭房间
func (c *Coordinator) AdvanceRound(id session.Identity) (protocol.StateSync, error) {
	var state protocol.StateSync
	err := c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		if r.Leader() != p.Username {
			return apperrors.ErrNotLeader
		}

		switch r.Status() {
		case room.StatusInLobby:
			if r.Len() < c.cfg.MinPlayersToStart {
				return apperrors.ErrInvalidTransition
			}
			if err := c.startRoundLocked(r); err != nil {
				return err
			}
		case room.StatusRoundResults:
			if r.HasMoreRounds() {
				if err := c.startRoundLocked(r); err != nil {
					return err
				}
			} else {
				c.closeLocked(r, "finished")
			}
		default:
			return apperrors.ErrInvalidTransition
		}

		state, _ = r.StateFor(p.Username)
		return nil
	})
	return state, err
}

// SubmitAnswer 记录玩家作答，所有在线玩家作答后提前结束回合
func (c *Coordinator) SubmitAnswer(id session.Identity) error {
	return c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		done, err := r.MarkSubmitted(p.Username)
		if err != nil {
			return err
		}
		if done {
			return r.EndRound()
		}
		return nil
	})
}

// AwardPoints 供计分模块为玩家加分
func (c *Coordinator) AwardPoints(code, username string, points uint) error {
	r := c.registry.Get(code)
	if r == nil {
		return apperrors.ErrRoomNotFound
	}
	return c.mutate(r, func() error {
		switch r.Status() {
		case room.StatusRoundInProgress, room.StatusRoundResults:
		case room.StatusClosed:
			return apperrors.ErrRoomNotFound
		default:
			return apperrors.ErrInvalidTransition
		}
		if !r.AwardPoints(username, points) {
			return apperrors.ErrPlayerNotFound
		}
		return nil
	})
}

// SyncAll 返回调用者视角的完整状态
func (c *Coordinator) SyncAll(id session.Identity) (protocol.StateSync, error) {
	var state protocol.StateSync
	err := c.withPlayer(id, func(r *room.Room, p *room.Player) error {
		state, _ = r.StateFor(p.Username)
		return nil
	})
	return state, err
}

// removeLocked 移除玩家，必要时提前结束回合或开始关闭倒计时
func (c *Coordinator) removeLocked(r *room.Room, username, reason string) {
	r.Cancel(room.TimerRemovePlayer, username)
	if !r.RemovePlayer(username) {
		return
	}
	log.Info().
		Str("room", r.Code).
		Str("player", username).
		Str("reason", reason).
		Str("leader", r.Leader()).
		Msg("👋 玩家离开房间")

	c.endRoundIfAllSubmittedLocked(r)
	if r.ConnectedCount() == 0 {
		c.scheduleCloseLocked(r)
	}
}

// endRoundIfAllSubmittedLocked 在线玩家减少后，剩余玩家都已作答则提前结束回合
func (c *Coordinator) endRoundIfAllSubmittedLocked(r *room.Room) {
	if r.Status() == room.StatusRoundInProgress && r.AllSubmitted() {
		_ = r.EndRound()
	}
}

func (c *Coordinator) startRoundLocked(r *room.Room) error {
	if err := r.StartRound(); err != nil {
		return err
	}
	r.Schedule(room.TimerEndRound, "", r.Options().RoundDuration, c.onTimer(r))
	log.Debug().Str("room", r.Code).Int("round", r.Round()).Msg("🎵 回合开始")
	return nil
}

// scheduleCloseLocked 无人在线时开始关闭倒计时，已在倒计时则不重置
func (c *Coordinator) scheduleCloseLocked(r *room.Room) {
	if r.HasTimer(room.TimerCloseRoom, "") {
		return
	}
	r.Schedule(room.TimerCloseRoom, "", c.cfg.DelayCloseRoomAfterLastPlayerLeft, c.onTimer(r))
}
