package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(New("original"), "fetch issue %d", 42)
	assert.Equal(t, "fetch issue 42: original", wrapped.Error())
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("missing token"), "set ISSUEBOT_SLACK_APP_TOKEN")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "set ISSUEBOT_SLACK_APP_TOKEN", hints[0])
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsUpstreamError(nil))
}

func TestUpstreamSentinels(t *testing.T) {
	transport := Wrap(ErrUpstreamTransport, "dial tcp: connection refused")
	data := Wrap(ErrUpstreamData, "Not Found")

	assert.True(t, IsUpstreamError(transport))
	assert.True(t, IsUpstreamError(data))
	assert.True(t, Is(data, ErrUpstreamData))
	assert.False(t, Is(data, ErrUpstreamTransport))
	assert.False(t, IsUpstreamError(ErrNotFound))
}

func TestNewInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("text must not be empty (got %d bytes)", 0)

	assert.True(t, IsInvalidRequestError(err))
	assert.Contains(t, err.Error(), "text must not be empty")
}

func TestStackTrace(t *testing.T) {
	detailed := fmt.Sprintf("%+v", New("with stack"))
	assert.Contains(t, detailed, "errors_test.go")
}

func ExampleWrap() {
	err := Wrap(New("connection refused"), "failed to open socket")
	fmt.Println(err)
	// Output: failed to open socket: connection refused
}
