package coordinator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/game/room"
)

func TestScenario_AliceAndBob(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	assert.Equal(t, string(room.StatusInLobby), alice.State.Room.Status)
	assert.Len(t, alice.State.Room.Players, 1)
	assert.Equal(t, "alice", alice.State.Room.LeaderUsername)

	bob := e.join(t, code, "bob")
	assert.Len(t, bob.State.Room.Players, 2)
	assert.Equal(t, "alice", bob.State.Room.LeaderUsername)

	require.NoError(t, e.c.Leave(alice.Identity))
	state, err := e.c.SyncAll(bob.Identity)
	require.NoError(t, err)
	assert.Equal(t, "bob", state.Room.LeaderUsername)
	assert.Len(t, state.Room.Players, 1)

	require.NoError(t, e.c.Leave(bob.Identity))
	e.inspect(code, func(r *room.Room) {
		assert.Zero(t, r.Len())
		assert.True(t, r.HasTimer(room.TimerCloseRoom, ""))
	})

	e.clk.Advance(testRoomConfig.DelayCloseRoomAfterLastPlayerLeft)
	require.Eventually(t, func() bool { return e.c.registry.Get(code) == nil }, time.Second, 5*time.Millisecond)

	_, err = e.c.JoinRoom(code, "carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestScenario_DisconnectedPlayerThenEmptyRoom(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	require.NoError(t, e.c.Disconnect(alice.Identity))

	e.inspect(code, func(r *room.Room) {
		assert.Equal(t, "alice", r.Leader(), "no connected player to take over")
		assert.True(t, r.HasTimer(room.TimerRemovePlayer, "alice"))
		assert.True(t, r.HasTimer(room.TimerCloseRoom, ""))
	})

	e.clk.Advance(testRoomConfig.DelayDisconnectedPlayerRemoval)
	require.Eventually(t, func() bool {
		n := -1
		e.inspect(code, func(r *room.Room) { n = r.Len() })
		return n == 0
	}, time.Second, 5*time.Millisecond)

	e.clk.Advance(testRoomConfig.DelayCloseRoomAfterLastPlayerLeft - testRoomConfig.DelayDisconnectedPlayerRemoval)
	require.Eventually(t, func() bool { return e.c.RoomCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{code}, e.notifier.Closed())
}

func TestScenario_RoundsRunToCompletion(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	bob := e.join(t, code, "bob")

	_, err := e.c.AdvanceRound(bob.Identity)
	assert.ErrorIs(t, err, apperrors.ErrNotLeader)

	state, err := e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusRoundInProgress), state.Room.Status)
	assert.Equal(t, 1, state.Room.Round)

	_, err = e.c.AdvanceRound(alice.Identity)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// 第一回合超时结束
	e.clk.Advance(testRoomConfig.DefaultRoundDuration)
	require.Eventually(t, func() bool {
		s, err := e.c.SyncAll(alice.Identity)
		return err == nil && s.Room.Status == string(room.StatusRoundResults)
	}, time.Second, 5*time.Millisecond)

	state, err = e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Room.Round)

	// 第二回合所有人作答后提前结束
	require.NoError(t, e.c.SubmitAnswer(alice.Identity))
	s, err := e.c.SyncAll(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusRoundInProgress), s.Room.Status)

	require.NoError(t, e.c.SubmitAnswer(bob.Identity))
	s, err = e.c.SyncAll(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusRoundResults), s.Room.Status)
	e.inspect(code, func(r *room.Room) {
		assert.False(t, r.HasTimer(room.TimerEndRound, ""))
	})

	// 最后一回合之后推进即关闭房间
	state, err = e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusClosed), state.Room.Status)
	assert.Nil(t, e.c.registry.Get(code))
	assert.Equal(t, []string{code}, e.notifier.Closed())
}

func TestScenario_SubmitAnswerOutsideRound(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	assert.ErrorIs(t, e.c.SubmitAnswer(alice.Identity), apperrors.ErrInvalidTransition)
}

func TestScenario_LeavingPlayerEndsRoundWhenOthersSubmitted(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	bob := e.join(t, code, "bob")

	_, err := e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	require.NoError(t, e.c.SubmitAnswer(alice.Identity))
	require.NoError(t, e.c.Leave(bob.Identity))

	s, err := e.c.SyncAll(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusRoundResults), s.Room.Status)
}

func TestScenario_DisconnectingPlayerEndsRoundWhenOthersSubmitted(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	bob := e.join(t, code, "bob")

	_, err := e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	require.NoError(t, e.c.SubmitAnswer(alice.Identity))
	require.NoError(t, e.c.Disconnect(bob.Identity))

	s, err := e.c.SyncAll(alice.Identity)
	require.NoError(t, err)
	assert.Equal(t, string(room.StatusRoundResults), s.Room.Status)

	// 回合计时器已取消，宽限期内 bob 仍在房间
	e.inspect(code, func(r *room.Room) {
		assert.False(t, r.HasTimer(room.TimerEndRound, ""))
		assert.True(t, r.HasTimer(room.TimerRemovePlayer, "bob"))
		assert.NotNil(t, r.Player("bob"))
	})
}

func TestScenario_LastDisconnectKeepsRoundRunning(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode

	_, err := e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)
	require.NoError(t, e.c.Disconnect(alice.Identity))

	e.inspect(code, func(r *room.Room) {
		assert.Equal(t, room.StatusRoundInProgress, r.Status())
		assert.True(t, r.HasTimer(room.TimerCloseRoom, ""))
	})
}

func TestScenario_AwardPoints(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode

	assert.ErrorIs(t, e.c.AwardPoints(code, "alice", 10), apperrors.ErrInvalidTransition)
	assert.ErrorIs(t, e.c.AwardPoints("999999", "alice", 10), apperrors.ErrRoomNotFound)

	_, err := e.c.AdvanceRound(alice.Identity)
	require.NoError(t, err)

	require.NoError(t, e.c.AwardPoints(code, "alice", 10))
	require.NoError(t, e.c.AwardPoints(code, "alice", 5))
	assert.ErrorIs(t, e.c.AwardPoints(code, "nobody", 5), apperrors.ErrPlayerNotFound)

	s, err := e.c.SyncAll(alice.Identity)
	require.NoError(t, err)
	assert.EqualValues(t, 15, s.Player.Score)
}

func TestScenario_ConcurrentJoinsRespectCapacity(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode

	var (
		wg      sync.WaitGroup
		joined  atomic.Int32
		full    atomic.Int32
		players = 16
	)
	for i := range players {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.c.JoinRoom(code, fmt.Sprintf("player-%d", i))
			switch {
			case err == nil:
				joined.Add(1)
			case assert.ErrorIs(t, err, apperrors.ErrRoomFull):
				full.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, testRoomConfig.DefaultMaxPlayersCount-1, joined.Load())
	assert.EqualValues(t, players-int(testRoomConfig.DefaultMaxPlayersCount-1), full.Load())
	e.inspect(code, func(r *room.Room) {
		assert.Equal(t, int(testRoomConfig.DefaultMaxPlayersCount), r.Len())
		assert.NoError(t, r.CheckInvariants())
	})
}

func TestScenario_ConcurrentDisconnectsKeepSingleLeader(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	alice := e.create(t, "alice")
	code := alice.Identity.RoomCode
	joined := []*Joined{alice}
	for _, name := range []string{"bob", "carol", "dave"} {
		joined = append(joined, e.join(t, code, name))
	}

	var wg sync.WaitGroup
	for _, j := range joined[:3] {
		wg.Add(1)
		go func(j *Joined) {
			defer wg.Done()
			assert.NoError(t, e.c.Disconnect(j.Identity))
		}(j)
	}
	wg.Wait()

	e.inspect(code, func(r *room.Room) {
		assert.Equal(t, "dave", r.Leader())
		assert.Equal(t, 1, r.ConnectedCount())
		assert.False(t, r.HasTimer(room.TimerCloseRoom, ""))
	})
}
