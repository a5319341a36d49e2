// Package errors defines the error taxonomy of the search engine. All store
// failures surface as one of the sentinel kinds below, wrapped together with
// their original cause.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexingFailed is reported when a batch write transaction exhausted
	// its retries or hit a non-transient store error.
	ErrIndexingFailed = errors.New("extending or updating search index failed")

	// ErrDeletionFailed is reported when removing rows from the index failed.
	ErrDeletionFailed = errors.New("deleting entries from search index failed")

	// ErrQueryFailed is reported when the store rejected a search query.
	ErrQueryFailed = errors.New("searching the index failed")

	ErrInvalidDocument     = errors.New("invalid document")
	ErrUnsupportedLanguage = errors.New("unsupported stemmer language")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// EngineError pairs one of the sentinel kinds with the underlying cause.
type EngineError struct {
	Kind  error
	Cause error
}

func (e *EngineError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Cause.Error())
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel kind, so callers can test with
// errors.Is(err, ErrIndexingFailed) while errors.As/Is still reach the cause
// chain through Unwrap.
func (e *EngineError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Wrap attaches a sentinel kind to a cause. A nil cause returns nil.
func Wrap(kind error, cause error) error {
	if cause == nil {
		return nil
	}
	return &EngineError{Kind: kind, Cause: cause}
}

// Wrapf attaches a sentinel kind to a formatted cause.
func Wrapf(kind error, format string, args ...any) error {
	return &EngineError{Kind: kind, Cause: fmt.Errorf(format, args...)}
}
