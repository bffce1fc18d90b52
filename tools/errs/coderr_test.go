package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWithDetailKeepsSentinelImmutable(t *testing.T) {
	err := ErrValidation.WithDetail("username too short")
	assert.Empty(t, ErrValidation.Detail)
	assert.Contains(t, err.Error(), "username too short")
	assert.Equal(t, ErrValidation.Code, err.Code)
}

func TestIsMatchesByCode(t *testing.T) {
	err := ErrDuplicate.WithDetail("email taken")
	assert.True(t, ErrDuplicate.Is(err))
	assert.False(t, ErrNotFound.Is(err))
}

func TestIsThroughWrapping(t *testing.T) {
	err := errors.Wrap(ErrEmptyContent, "create message")
	assert.True(t, ErrEmptyContent.Is(err))

	ce := CodeOf(err)
	assert.NotNil(t, ce)
	assert.Equal(t, ErrEmptyContent.Code, ce.Code)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Nil(t, CodeOf(errors.New("boom")))
}
