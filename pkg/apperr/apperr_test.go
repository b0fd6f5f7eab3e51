package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(Validation("bad input")))
	assert.Equal(t, CodeStore, CodeOf(errors.New("raw driver error")))

	wrapped := fmt.Errorf("handler: %w", NotFound("conversation not found"))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeNotFound))
}

func TestUnwrap(t *testing.T) {
	origin := errors.New("connection reset")
	err := Store("lookup failed", origin)

	assert.ErrorIs(t, err, origin)
	assert.Contains(t, err.Error(), "connection reset")
}

// store internals never reach the wire
func TestSafeMessage(t *testing.T) {
	assert.Equal(t, "not a conversation participant", SafeMessage(Validation("not a conversation participant")))
	assert.Equal(t, "operation failed", SafeMessage(Store("lookup failed", errors.New("dial tcp refused"))))
	assert.Equal(t, "operation failed", SafeMessage(errors.New("raw")))
}
