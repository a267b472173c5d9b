package room

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/config"
)

// Player 房间中的玩家
type Player struct {
	Username  string
	Score     uint
	Connected bool
	SessionID string // 与连接令牌的 jti 绑定
	Submitted bool   // 本回合是否已作答
}

// Options 房间选项，创建时由配置确定
type Options struct {
	RoundTypes    config.RoundTypes
	RoundsCount   uint16
	RoundDuration time.Duration
	MaxPlayers    uint16
}

// OptionsFromConfig 使用配置中的默认值生成房间选项
func OptionsFromConfig(c *config.RoomConfig) Options {
	return Options{
		RoundTypes:    c.DefaultPossibleRoundTypes,
		RoundsCount:   c.DefaultRoundsCount,
		RoundDuration: c.DefaultRoundDuration,
		MaxPlayers:    c.DefaultMaxPlayersCount,
	}
}

// Room 游戏房间。
// Code 和 CreatedAt 创建后不变，其余状态只能在持有锁时读写。
type Room struct {
	sync.Mutex

	Code      string
	CreatedAt time.Time

	status       Status
	leader       string
	players      []*Player // 按加入顺序
	options      Options
	round        int
	version      uint64
	lastActivity time.Time

	clock    clockwork.Clock
	timers   map[timerKey]*pendingTimer
	timerSeq uint64
}

// New 创建处于大厅状态的空房间
func New(code string, opts Options, clk clockwork.Clock) *Room {
	now := clk.Now()
	return &Room{
		Code:         code,
		CreatedAt:    now,
		status:       StatusInLobby,
		options:      opts,
		lastActivity: now,
		clock:        clk,
		timers:       make(map[timerKey]*pendingTimer),
	}
}

func (r *Room) Status() Status          { return r.status }
func (r *Room) Leader() string          { return r.leader }
func (r *Room) Options() Options        { return r.options }
func (r *Room) Round() int              { return r.round }
func (r *Room) Version() uint64         { return r.version }
func (r *Room) Len() int                { return len(r.players) }
func (r *Room) LastActivity() time.Time { return r.lastActivity }

// Player 按用户名查找玩家，区分大小写
func (r *Room) Player(username string) *Player {
	if i := indexOf(r.players, username); i >= 0 {
		return r.players[i]
	}
	return nil
}

// Players 返回按加入顺序排列的玩家副本切片
func (r *Room) Players() []*Player {
	return slices.Clone(r.players)
}

// ConnectedCount 在线玩家数
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// AddPlayer 加入玩家。空房间的第一个玩家成为房主，房主离线时由新加入的在线玩家接任
func (r *Room) AddPlayer(p *Player) error {
	if r.status != StatusInLobby {
		return apperrors.ErrRoomNotJoinable
	}
	if len(r.players) >= int(r.options.MaxPlayers) {
		return apperrors.ErrRoomFull
	}
	if r.Player(p.Username) != nil {
		return apperrors.ErrUsernameTaken
	}

	r.players = append(r.players, p)
	r.leader = ElectLeader(r.players, r.leader)
	r.touch()
	return nil
}

// RemovePlayer 移除玩家，必要时同步转移房主
func (r *Room) RemovePlayer(username string) bool {
	idx := indexOf(r.players, username)
	if idx < 0 {
		return false
	}

	r.players = slices.Delete(r.players, idx, idx+1)
	if r.leader == username {
		r.leader = leaderAfterRemoval(r.players, idx)
	}
	r.touch()
	return true
}

// SetConnected 修改在线状态并重新选举房主，状态未变化时返回 false
func (r *Room) SetConnected(username string, connected bool) bool {
	p := r.Player(username)
	if p == nil || p.Connected == connected {
		return false
	}
	p.Connected = connected
	r.leader = ElectLeader(r.players, r.leader)
	r.touch()
	return true
}

// AwardPoints 为玩家加分
func (r *Room) AwardPoints(username string, points uint) bool {
	p := r.Player(username)
	if p == nil {
		return false
	}
	p.Score += points
	r.touch()
	return true
}

// CheckInvariants 检查房主和人数约束
func (r *Room) CheckInvariants() error {
	if r.status == StatusClosed {
		return nil
	}
	if len(r.players) > int(r.options.MaxPlayers) {
		return apperrors.ErrInvariantViolation
	}
	if len(r.players) == 0 {
		if r.leader != "" {
			return apperrors.ErrInvariantViolation
		}
		return nil
	}
	if r.Player(r.leader) == nil {
		return apperrors.ErrInvariantViolation
	}
	return nil
}

// touch 记录一次外部可见的变化
func (r *Room) touch() {
	r.version++
	r.lastActivity = r.clock.Now()
}
