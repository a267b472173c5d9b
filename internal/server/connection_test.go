package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/protocol"
	"github.com/palemoky/muuzika/internal/server/session"
	"github.com/palemoky/muuzika/internal/testutil"
)

func (e *testServer) identity(t *testing.T, token string) session.Identity {
	t.Helper()
	id, err := e.coord.Authenticate(token)
	require.NoError(t, err)
	return id
}

func (e *testServer) player(t *testing.T, id session.Identity) protocol.PlayerDTO {
	t.Helper()
	s, err := e.coord.SyncAll(id)
	require.NoError(t, err)
	return s.Player
}

func TestServer_LateDisconnectAfterRebind(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	alice := e.createRoom(t, "alice")
	id := e.identity(t, alice.Token)

	old := &testutil.SimpleClient{ID: "old", Ident: id}
	e.s.bind(old)

	// 旧连接读取失败并解除绑定，掉线处理尚未执行
	require.True(t, e.s.hub.Unregister(old))

	// 新连接完成注册
	fresh := &testutil.SimpleClient{ID: "fresh", Ident: id}
	e.s.bind(fresh)

	// 旧连接的掉线处理迟到
	e.s.releasePlayer(id)

	assert.True(t, e.player(t, id).IsConnected)

	e.clk.Advance(time.Hour)
	s, err := e.coord.SyncAll(id)
	require.NoError(t, err, "player with a live connection must not be removed")
	assert.True(t, s.Player.IsConnected)
	assert.False(t, fresh.Closed())
}

func TestServer_DisconnectBeforeRebind(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	alice := e.createRoom(t, "alice")
	id := e.identity(t, alice.Token)

	old := &testutil.SimpleClient{ID: "old", Ident: id}
	e.s.bind(old)
	e.s.unbind(old)
	assert.False(t, e.player(t, id).IsConnected)

	fresh := &testutil.SimpleClient{ID: "fresh", Ident: id}
	e.s.bind(fresh)
	assert.True(t, e.player(t, id).IsConnected)

	var synced bool
	for _, msg := range fresh.Messages() {
		if msg.Type == protocol.MsgStateSync {
			synced = true
		}
	}
	assert.True(t, synced)

	e.clk.Advance(time.Hour)
	_, err := e.coord.SyncAll(id)
	require.NoError(t, err)
}

func TestServer_UnbindReplacedConnectionKeepsPlayer(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	alice := e.createRoom(t, "alice")
	id := e.identity(t, alice.Token)

	old := &testutil.SimpleClient{ID: "old", Ident: id}
	fresh := &testutil.SimpleClient{ID: "fresh", Ident: id}
	e.s.bind(old)
	e.s.bind(fresh)

	e.s.unbind(old)
	assert.True(t, old.Closed())
	assert.True(t, e.player(t, id).IsConnected)
}
