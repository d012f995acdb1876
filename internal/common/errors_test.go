package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrorsMatchGenericKind(t *testing.T) {
	wrapped := fmt.Errorf("start job: %w", ErrJobActive)

	assert.True(t, IsConflict(wrapped))
	assert.True(t, errors.Is(wrapped, ErrJobActive))
	assert.Equal(t, "start job: transcription already in progress", wrapped.Error())

	assert.True(t, IsUnavailable(ErrQueueFull))
	assert.True(t, IsConfiguration(ErrNoEmbedder))
	assert.False(t, IsConflict(ErrQueueFull))
}

func TestResourceErrors(t *testing.T) {
	assert.True(t, IsNotFound(ErrJobNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", ErrTranscriptNotFound)))
	assert.True(t, IsConflict(ErrVideoExists))
	assert.Equal(t, "video not found", ErrVideoNotFound.Error())
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "videoId", Message: "is required"}

	assert.Equal(t, "videoId: is required", err.Error())
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("decode: %w", err)))
	assert.False(t, IsBadRequest(err))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrTokenExpired))
	assert.True(t, IsUnauthorized(ErrInvalidToken))
	assert.False(t, IsUnauthorized(ErrNotFound))
	assert.False(t, IsUnauthorized(nil))
}
