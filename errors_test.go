package seq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-seq/internal/channel"
	"github.com/behrlich/go-seq/internal/pv/loopback"
	"github.com/behrlich/go-seq/internal/vartype"
)

func TestErrorMessage(t *testing.T) {
	err := NewChannelError("pvGet", "x", ErrCodeDisconnected, "disconnected")
	assert.Contains(t, err.Error(), "disconnected")
	assert.Contains(t, err.Error(), "chan=x")
}

func TestErrorIs(t *testing.T) {
	err := NewChannelError("pvGet", "x", ErrCodeTimeout, "get completion timeout")
	var target error = &Error{Code: ErrCodeTimeout}
	assert.True(t, errors.Is(err, target))

	other := &Error{Code: ErrCodeTransport}
	assert.False(t, errors.Is(err, other))
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewChannelError("pvPut", "y", ErrCodeResource, "queue full")
	wrapped := WrapError("flush", inner)
	require.Equal(t, ErrCodeResource, wrapped.Code)
	assert.Equal(t, "y", wrapped.Channel)
	assert.ErrorIs(t, wrapped, inner)
}

func TestWrapErrorPlain(t *testing.T) {
	wrapped := WrapError("connect", errors.New("boom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeTransport, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Inner.Error())
}

func TestIsCode(t *testing.T) {
	err := NewError("start", ErrCodeConfiguration, "bad magic")
	assert.True(t, IsCode(err, ErrCodeConfiguration))
	assert.False(t, IsCode(err, ErrCodeTimeout))
}

// TestIsCodeClassifiesRawChannelError covers the real pvGet/pvPut
// failure path: action code gets a *channel.Channel straight from
// ss.Channel(idx), so the error it returns on a disconnected get is
// never wrapped into a *seq.Error — IsCode still has to classify it.
func TestIsCodeClassifiesRawChannelError(t *testing.T) {
	client := loopback.New()
	ch := channel.New(channel.Config{Name: "x", Tag: vartype.Long, Count: 1, NumStateSets: 1, Client: client})

	err := ch.PvGet(0, channel.Sync, 0)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDisconnected))
	assert.False(t, IsCode(err, ErrCodeTimeout))
}
