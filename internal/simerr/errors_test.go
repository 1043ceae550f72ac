package simerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("apply command: %w", NotFound("team", "t-9"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestValidationFields(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Validation("bad setup", "pressing", "tempo"))

	assert.Equal(t, []string{"pressing", "tempo"}, Fields(err))
	assert.Contains(t, err.Error(), "pressing, tempo")
	assert.Nil(t, Fields(InvalidState("no session")))
}

func TestFormatUnwrapsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Format("decode bundle", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, Code(""), CodeOf(cause))
}
