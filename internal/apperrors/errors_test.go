package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/party-games/internal/protocol"
)

func TestGameError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	custom := New(protocol.ErrCodeNotYourTurn, "轮到 %s 了", "p2")
	assert.ErrorIs(t, custom, ErrNotYourTurn)
	assert.NotErrorIs(t, custom, ErrGameOver)

	wrapped := fmt.Errorf("fire: %w", ErrAlreadyFired)
	assert.ErrorIs(t, wrapped, ErrAlreadyFired)
}

func TestDecodeError_IsDesync(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("stream: %w", &DecodeError{Path: "gameState.battleships.moves", Reason: "not a list"})
	assert.ErrorIs(t, err, ErrDesync)
	assert.Equal(t, protocol.ErrCodeDesync, Code(err))
	assert.Contains(t, err.Error(), "gameState.battleships.moves")
}

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, protocol.ErrCodeRoomFull, Code(ErrRoomFull))
	assert.Equal(t, protocol.ErrCodeUnknown, Code(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrNotYourTurn))
	assert.False(t, IsRetryable(&DecodeError{Path: "x"}))
	assert.True(t, IsRetryable(ErrConflict))
	assert.True(t, IsRetryable(ErrDisconnected))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
}
