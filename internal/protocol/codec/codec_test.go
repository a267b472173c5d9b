package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/muuzika/internal/protocol"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	msg.ID = "req-1"

	data, err := Encode(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPing, decoded.Type)
	assert.Equal(t, "req-1", decoded.ID)

	ping, err := ParsePayload[protocol.PingPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ping.Timestamp)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestParsePayload_Empty(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload[protocol.PingPayload](&protocol.Message{Type: protocol.MsgPing})
	require.NoError(t, err)
	assert.Zero(t, p.Timestamp)
}

func TestResultMessages(t *testing.T) {
	t.Parallel()

	ok := NewResultMessage("a", map[string]int{"n": 1})
	assert.Equal(t, protocol.MsgResult, ok.Type)
	assert.Equal(t, "a", ok.ID)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(ok.Payload))

	fail := NewFailureMessage("b", protocol.ErrCodeNotLeader, "nope")
	var res struct {
		Success bool                  `json:"success"`
		Error   protocol.ErrorPayload `json:"error"`
	}
	require.NoError(t, json.Unmarshal(fail.Payload, &res))
	assert.False(t, res.Success)
	assert.Equal(t, protocol.ErrCodeNotLeader, res.Error.Code)
	assert.Equal(t, "nope", res.Error.Message)
}

func TestNewErrorMessage(t *testing.T) {
	t.Parallel()

	msg := NewErrorMessage(protocol.ErrCodeRateLimit)
	assert.Equal(t, protocol.MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), protocol.ErrorMessages[protocol.ErrCodeRateLimit])
}
