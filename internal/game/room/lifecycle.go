package room

import (
	"github.com/palemoky/muuzika/internal/apperrors"
)

// HasMoreRounds 是否还有未进行的回合
func (r *Room) HasMoreRounds() bool {
	return r.round < int(r.options.RoundsCount)
}

// StartRound 开始下一回合（大厅或回合结算 → 回合进行中）
func (r *Room) StartRound() error {
	if !r.status.CanTransitionTo(StatusRoundInProgress) || !r.HasMoreRounds() {
		return apperrors.ErrInvalidTransition
	}

	r.round++
	for _, p := range r.players {
		p.Submitted = false
	}
	r.status = StatusRoundInProgress
	r.touch()
	return nil
}

// EndRound 结束当前回合（回合进行中 → 回合结算）
func (r *Room) EndRound() error {
	if !r.status.CanTransitionTo(StatusRoundResults) {
		return apperrors.ErrInvalidTransition
	}
	r.Cancel(TimerEndRound, "")
	r.status = StatusRoundResults
	r.touch()
	return nil
}

// MarkSubmitted 记录玩家作答，返回是否所有在线玩家都已作答
func (r *Room) MarkSubmitted(username string) (bool, error) {
	if r.status != StatusRoundInProgress {
		return false, apperrors.ErrInvalidTransition
	}
	p := r.Player(username)
	if p == nil {
		return false, apperrors.ErrPlayerNotFound
	}
	if !p.Submitted {
		p.Submitted = true
		r.touch()
	}
	return r.AllSubmitted(), nil
}

// AllSubmitted 是否所有在线玩家都已作答
func (r *Room) AllSubmitted() bool {
	connected := 0
	for _, p := range r.players {
		if !p.Connected {
			continue
		}
		connected++
		if !p.Submitted {
			return false
		}
	}
	return connected > 0
}

// Close 关闭房间并取消所有定时器，已关闭时返回 false
func (r *Room) Close() bool {
	if r.status == StatusClosed {
		return false
	}
	r.cancelAll()
	r.status = StatusClosed
	r.touch()
	return true
}
