package coordinator

import (
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/config"
	"github.com/palemoky/muuzika/internal/game/room"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/server/session"
)

const maxUsernameLength = 32

// TokenIssuer 签发和校验连接令牌
type TokenIssuer interface {
	Issue(id session.Identity) (string, error)
	Verify(token string) (session.Identity, error)
}

// Joined 创建或加入房间的结果
type Joined struct {
	Token    string
	Identity session.Identity
	State    protocol.StateSync
}

// Coordinator 房间协调器，所有客户端操作和定时器都经由它修改房间
type Coordinator struct {
	cfg      config.RoomConfig
	options  room.Options
	registry *room.Registry
	issuer   TokenIssuer
	clock    clockwork.Clock
	notifier Notifier

	maintenance atomic.Bool
}

// New 创建协调器，notifier 可为 nil
func New(cfg config.RoomConfig, registry *room.Registry, issuer TokenIssuer, clk clockwork.Clock, notifier Notifier) *Coordinator {
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &Coordinator{
		cfg:      cfg,
		options:  room.OptionsFromConfig(&cfg),
		registry: registry,
		issuer:   issuer,
		clock:    clk,
		notifier: notifier,
	}
}

// Authenticate 校验令牌并返回身份
func (c *Coordinator) Authenticate(token string) (session.Identity, error) {
	return c.issuer.Verify(token)
}

// RoomCount 活跃房间数
func (c *Coordinator) RoomCount() int {
	return c.registry.Len()
}

// mutate 持有房间锁执行 fn，解锁后发布变化。
// fn 返回后会检查房间约束，违反时强制关闭房间。
func (c *Coordinator) mutate(r *room.Room, fn func() error) error {
	r.Lock()
	before := r.Version()
	err := fn()
	if err == nil {
		err = c.enforceInvariants(r)
	}

	changed := r.Version() != before
	closed := r.Status() == room.StatusClosed
	var snapshot protocol.RoomDTO
	if changed && !closed {
		snapshot = r.Snapshot()
	}
	r.Unlock()

	switch {
	case changed && closed:
		c.notifier.RoomClosed(r.Code)
	case changed:
		c.notifier.RoomUpdated(snapshot)
	}
	return err
}

// withPlayer 定位令牌对应的房间和玩家并在锁内执行 fn
func (c *Coordinator) withPlayer(id session.Identity, fn func(r *room.Room, p *room.Player) error) error {
	r := c.registry.Get(id.RoomCode)
	if r == nil {
		return apperrors.ErrPlayerNotFound
	}
	return c.mutate(r, func() error {
		if r.Status() == room.StatusClosed {
			return apperrors.ErrPlayerNotFound
		}
		p := r.Player(id.Username)
		if p == nil || p.SessionID != id.SessionID {
			return apperrors.ErrPlayerNotFound
		}
		return fn(r, p)
	})
}

func (c *Coordinator) enforceInvariants(r *room.Room) error {
	if err := r.CheckInvariants(); err != nil {
		log.Error().
			Str("room", r.Code).
			Str("leader", r.Leader()).
			Int("players", r.Len()).
			Msg("❗ 房间状态异常，强制关闭")
		c.closeLocked(r, "invariant violation")
		return err
	}
	return nil
}

// closeLocked 关闭房间并从注册表移除，调用方需持有房间锁
func (c *Coordinator) closeLocked(r *room.Room, reason string) {
	if !r.Close() {
		return
	}
	c.registry.Remove(r.Code)
	log.Info().Str("room", r.Code).Str("reason", reason).Msg("🧹 房间已关闭")
}

// normalizeUsername 去除首尾空白并校验用户名
func normalizeUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLength {
		return "", apperrors.ErrInvalidUsername
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", apperrors.ErrInvalidUsername
		}
	}
	return name, nil
}
