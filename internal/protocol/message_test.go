package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsClientMessage(t *testing.T) {
	t.Parallel()

	assert.True(t, IsClientMessage(MsgAction))
	assert.True(t, IsClientMessage(MsgHello))
	assert.False(t, IsClientMessage(MsgState))
	assert.False(t, IsClientMessage("bogus"))
}

func TestErrorMessagesCoverCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []int{ErrCodeUnknown, ErrCodeRateLimit, ErrCodeDesync, ErrCodeServerMaintenance, ErrCodeWrongRole} {
		assert.NotEmpty(t, ErrorMessages[code], "code %d", code)
	}
}
