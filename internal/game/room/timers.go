package room

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerCause 定时器用途
type TimerCause int

const (
	TimerCloseRoom    TimerCause = iota // 最后一位在线玩家离开后关闭房间
	TimerRemovePlayer                   // 断线宽限期结束后移除玩家
	TimerEndRound                       // 回合时间到
)

func (c TimerCause) String() string {
	switch c {
	case TimerCloseRoom:
		return "close_room"
	case TimerRemovePlayer:
		return "remove_player"
	case TimerEndRound:
		return "end_round"
	}
	return "unknown"
}

type timerKey struct {
	cause  TimerCause
	target string
}

type pendingTimer struct {
	timer clockwork.Timer
	seq   uint64
}

// TimerTicket 定时器凭据。回调触发后必须持锁调用 Claim 校验凭据仍然有效
type TimerTicket struct {
	key timerKey
	seq uint64
}

func (t TimerTicket) Cause() TimerCause { return t.key.cause }
func (t TimerTicket) Target() string    { return t.key.target }

// Schedule 安排定时器，替换同一用途和目标的旧定时器。
// fire 在独立 goroutine 中运行，调用方需在其中加锁并 Claim。
func (r *Room) Schedule(cause TimerCause, target string, d time.Duration, fire func(TimerTicket)) TimerTicket {
	key := timerKey{cause: cause, target: target}
	r.cancel(key)

	r.timerSeq++
	ticket := TimerTicket{key: key, seq: r.timerSeq}
	r.timers[key] = &pendingTimer{
		seq:   ticket.seq,
		timer: r.clock.AfterFunc(d, func() { fire(ticket) }),
	}
	return ticket
}

// Claim 认领已触发的定时器。已取消或被替换的定时器返回 false，触发应被丢弃
func (r *Room) Claim(t TimerTicket) bool {
	p, ok := r.timers[t.key]
	if !ok || p.seq != t.seq {
		return false
	}
	delete(r.timers, t.key)
	return true
}

// Cancel 取消定时器，返回是否存在待触发的定时器
func (r *Room) Cancel(cause TimerCause, target string) bool {
	return r.cancel(timerKey{cause: cause, target: target})
}

// HasTimer 是否有待触发的定时器
func (r *Room) HasTimer(cause TimerCause, target string) bool {
	_, ok := r.timers[timerKey{cause: cause, target: target}]
	return ok
}

// PendingTimers 待触发的定时器数量
func (r *Room) PendingTimers() int {
	return len(r.timers)
}

func (r *Room) cancel(key timerKey) bool {
	p, ok := r.timers[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(r.timers, key)
	return true
}

func (r *Room) cancelAll() {
	for key := range r.timers {
		r.cancel(key)
	}
}
