package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMatchesKindAndCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Wrap(ErrIndexingFailed, cause)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrIndexingFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDeletionFailed)
	assert.Contains(t, err.Error(), "extending or updating search index failed")
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestWrapNilCauseIsNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrIndexingFailed, nil))
}

func TestWrapfFormatsCause(t *testing.T) {
	err := Wrapf(ErrUnsupportedLanguage, "no stemmer for language %q", "klingon")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Contains(t, err.Error(), `"klingon"`)
}

func TestEngineErrorUnwrapsThroughLayers(t *testing.T) {
	inner := errors.New("store offline")
	err := fmt.Errorf("search: %w", Wrap(ErrQueryFailed, inner))

	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, inner)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, ErrQueryFailed, engineErr.Kind)
}
