package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/protocol"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPing, msg.Type)
	assert.JSONEq(t, `{"timestamp":42}`, string(msg.Payload))

	empty, err := NewMessage(protocol.MsgListRooms, nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Payload)
}

func TestMustNewMessage_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNewMessage(protocol.MsgPing, make(chan int))
	})
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgAction, protocol.ActionPayload{
		Game: "battleships", RoomCode: "000001", Kind: "fire", Data: []byte(`{"x":1,"y":2}`),
	})
	p, err := ParsePayload[protocol.ActionPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, "fire", p.Kind)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(p.Data))

	// Missing payload parses to the zero value
	empty, err := ParsePayload[protocol.ListRoomsPayload](&protocol.Message{Type: protocol.MsgListRooms})
	require.NoError(t, err)
	assert.Empty(t, empty.Game)

	_, err = ParsePayload[protocol.ActionPayload](&protocol.Message{Type: protocol.MsgAction, Payload: []byte(`[1,2]`)})
	assert.Error(t, err)
}

func TestNewErrorMessage(t *testing.T) {
	t.Parallel()

	msg := NewErrorMessage(protocol.ErrCodeRoomFull)
	assert.Equal(t, protocol.MsgError, msg.Type)
	p, err := ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeRoomFull, p.Code)
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeRoomFull], p.Message)

	custom := NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "坏消息")
	p, err = ParsePayload[protocol.ErrorPayload](custom)
	require.NoError(t, err)
	assert.Equal(t, "坏消息", p.Message)
}
