package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/config"
	"github.com/palemoky/muuzika/internal/game/coordinator"
	"github.com/palemoky/muuzika/internal/game/room"
	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/protocol/codec"
	"github.com/palemoky/muuzika/internal/server/session"
	"github.com/palemoky/muuzika/internal/testutil"
	"github.com/palemoky/muuzika/internal/types"
)

type fakeBinder struct {
	mu       sync.Mutex
	released []string
}

func (b *fakeBinder) Unregister(c types.ClientInterface) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = append(b.released, c.GetName())
	return true
}

func setupHandler(t *testing.T) (*Handler, *coordinator.Coordinator, *fakeBinder, *clockwork.FakeClock) {
	t.Helper()

	clk := clockwork.NewFakeClock()
	cfg := config.RoomConfig{
		DelayCloseRoomAfterLastPlayerLeft: time.Minute,
		DelayDisconnectedPlayerRemoval:    30 * time.Second,
		DefaultPossibleRoundTypes:         config.RoundTypesBoth,
		DefaultRoundsCount:                3,
		DefaultRoundDuration:              30 * time.Second,
		DefaultMaxPlayersCount:            8,
		MaxCodeAttempts:                   3,
		MinPlayersToStart:                 1,
		IdleTimeout:                       120,
		SweepInterval:                     60,
	}
	issuer := session.NewIssuer(config.JwtConfig{
		Key:      "handler-test-key-0123456789abcdefgh",
		Issuer:   "muuzika",
		Audience: "muuzika-players",
		MaxAge:   24,
	}, clk)
	registry := room.NewRegistry(room.NewSequenceCodes("424242"), cfg.MaxCodeAttempts, clk)
	coord := coordinator.New(cfg, registry, issuer, clk, nil)

	binder := &fakeBinder{}
	h := NewHandler(HandlerDeps{Rooms: coord, Hub: binder, Clock: clk})
	return h, coord, binder, clk
}

func clientFor(j *coordinator.Joined) *testutil.SimpleClient {
	return &testutil.SimpleClient{ID: "conn-" + j.Identity.Username, Ident: j.Identity}
}

func lastResult(t *testing.T, c *testutil.SimpleClient) (*protocol.Message, *protocol.InvocationResult) {
	t.Helper()
	msgs := c.Messages()
	require.NotEmpty(t, msgs)
	msg := msgs[len(msgs)-1]
	require.Equal(t, protocol.MsgResult, msg.Type)
	res, err := codec.ParsePayload[protocol.InvocationResult](msg)
	require.NoError(t, err)
	return msg, res
}

func TestHandler_SyncAll(t *testing.T) {
	t.Parallel()
	h, coord, _, _ := setupHandler(t)

	alice, err := coord.CreateRoom("alice")
	require.NoError(t, err)
	c := clientFor(alice)

	h.Handle(c, &protocol.Message{Type: protocol.MsgSyncAll, ID: "1"})

	msg, res := lastResult(t, c)
	assert.Equal(t, "1", msg.ID)
	assert.True(t, res.Success)

	raw, err := json.Marshal(res.Data)
	require.NoError(t, err)
	var state protocol.StateSync
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, "424242", state.Room.Code)
	assert.Equal(t, "alice", state.Player.Username)
}

func TestHandler_AdvanceRound(t *testing.T) {
	t.Parallel()
	h, coord, _, _ := setupHandler(t)

	alice, err := coord.CreateRoom("alice")
	require.NoError(t, err)
	bob, err := coord.JoinRoom(alice.Identity.RoomCode, "bob")
	require.NoError(t, err)

	bc := clientFor(bob)
	h.Handle(bc, &protocol.Message{Type: protocol.MsgAdvanceRound, ID: "a"})
	_, res := lastResult(t, bc)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, protocol.ErrCodeNotLeader, res.Error.Code)

	ac := clientFor(alice)
	h.Handle(ac, &protocol.Message{Type: protocol.MsgAdvanceRound, ID: "b"})
	_, res = lastResult(t, ac)
	assert.True(t, res.Success)

	h.Handle(ac, &protocol.Message{Type: protocol.MsgSubmitAnswer, ID: "c"})
	_, res = lastResult(t, ac)
	assert.True(t, res.Success)
}

func TestHandler_SubmitAnswerOutsideRound(t *testing.T) {
	t.Parallel()
	h, coord, _, _ := setupHandler(t)

	alice, err := coord.CreateRoom("alice")
	require.NoError(t, err)
	c := clientFor(alice)

	h.Handle(c, &protocol.Message{Type: protocol.MsgSubmitAnswer, ID: "x"})
	_, res := lastResult(t, c)
	require.NotNil(t, res.Error)
	assert.Equal(t, protocol.ErrCodeInvalidTransition, res.Error.Code)
}

func TestHandler_Leave(t *testing.T) {
	t.Parallel()
	h, coord, binder, _ := setupHandler(t)

	alice, err := coord.CreateRoom("alice")
	require.NoError(t, err)
	c := clientFor(alice)

	h.Handle(c, &protocol.Message{Type: protocol.MsgLeave, ID: "bye"})

	_, res := lastResult(t, c)
	assert.True(t, res.Success)
	assert.True(t, c.Closed())
	assert.Equal(t, []string{"alice"}, binder.released)

	// 离开后旧身份无法再操作，对外只暴露通用的 not found
	h.Handle(c, &protocol.Message{Type: protocol.MsgSyncAll, ID: "again"})
	_, res = lastResult(t, c)
	require.NotNil(t, res.Error)
	assert.Equal(t, protocol.ErrCodeNotFound, res.Error.Code)
}

func TestHandler_Ping(t *testing.T) {
	t.Parallel()
	h, _, _, clk := setupHandler(t)

	c := &testutil.SimpleClient{ID: "c1"}
	h.Handle(c, codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{Timestamp: 123}))

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MsgPong, msgs[0].Type)
	pong, err := codec.ParsePayload[protocol.PongPayload](msgs[0])
	require.NoError(t, err)
	assert.EqualValues(t, 123, pong.ClientTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), pong.ServerTimestamp)
}

func TestHandler_UnknownType(t *testing.T) {
	t.Parallel()
	h, _, _, _ := setupHandler(t)

	c := &testutil.SimpleClient{ID: "c1"}
	h.Handle(c, &protocol.Message{Type: "launch_rockets", ID: "7"})

	msg, res := lastResult(t, c)
	assert.Equal(t, "7", msg.ID)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, res.Error.Code)
}
