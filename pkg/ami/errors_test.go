package ami_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ami.Error{Kind: ami.KindConnectionLost, Message: "read EOF"})
	assert.True(t, errors.Is(err, ami.ErrConnectionLost))
	assert.False(t, errors.Is(err, ami.ErrAuthFailed))
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("reset by peer")
	amiErr := &ami.Error{Kind: ami.KindConnectionLost, Message: "read", Err: cause}
	assert.Equal(t, cause, errors.Unwrap(amiErr))
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	amiErr := &ami.Error{Kind: ami.KindAuthFailed, Message: "authentication rejected"}
	assert.Contains(t, amiErr.Error(), "AuthFailed")
	assert.Contains(t, amiErr.Error(), "authentication rejected")
}
