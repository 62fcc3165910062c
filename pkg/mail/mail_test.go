package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@taskforge.io", "a@x.com", "Your OTP", "Your OTP is 123456."))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@taskforge.io\r\n"))
	assert.Contains(t, msg, "To: a@x.com\r\n")
	assert.Contains(t, msg, "Subject: Your OTP\r\n")
	assert.Contains(t, msg, "\r\n\r\nYour OTP is 123456.")
}

func TestRecorder_CapturesMessages(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	_, ok := rec.Last()
	assert.False(t, ok)

	require.NoError(t, rec.Send(ctx, "a@x.com", "first", "body one"))
	require.NoError(t, rec.Send(ctx, "b@x.com", "second", "body two"))

	assert.Len(t, rec.Messages(), 2)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "b@x.com", last.Recipient)
	assert.Equal(t, "second", last.Subject)
}

func TestRecorder_FailWith(t *testing.T) {
	rec := NewRecorder()
	rec.FailWith = errors.New("relay down")

	err := rec.Send(context.Background(), "a@x.com", "s", "b")
	assert.Error(t, err)
	assert.Empty(t, rec.Messages(), "failed sends are not recorded")
}
