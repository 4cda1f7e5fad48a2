package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/trylock/viewer-sub003/internal/cache"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/query"
	"github.com/trylock/viewer-sub003/internal/views"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	ErrConfigInvalid   = "CONFIG_INVALID"
	ErrLibraryNotFound = "LIBRARY_NOT_FOUND"

	ErrQueryInvalid   = "QUERY_INVALID"
	ErrPatternInvalid = "PATTERN_INVALID"
	ErrQueryFailed    = "QUERY_FAILED"
	ErrCancelled      = "CANCELLED"

	ErrViewNotFound    = "VIEW_NOT_FOUND"
	ErrViewNameInvalid = "VIEW_NAME_INVALID"

	ErrFileNotFound      = "FILE_NOT_FOUND"
	ErrAttributeNotFound = "ATTRIBUTE_NOT_FOUND"

	ErrDatabaseError = "DATABASE_ERROR"
	ErrIndexLocked   = "INDEX_LOCKED"

	ErrInvalidInput = "INVALID_INPUT"
	ErrInternal     = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnIndexFailed = "INDEX_FAILED"
)

// errReported is returned by commands that already wrote a JSON error
// envelope. Execute turns it into a non-zero exit without printing it
// again.
var errReported = errors.New("error already reported")

// errorCode picks the error code for err.
func errorCode(err error) string {
	switch {
	case errors.Is(err, query.ErrCompilation):
		return ErrQueryInvalid
	case errors.Is(err, glob.ErrInvalidPattern):
		return ErrPatternInvalid
	case errors.Is(err, views.ErrNotFound):
		return ErrViewNotFound
	case errors.Is(err, views.ErrInvalidName):
		return ErrViewNameInvalid
	case errors.Is(err, cache.ErrAttributeNotFound):
		return ErrAttributeNotFound
	case errors.Is(err, cache.ErrLocked):
		return ErrIndexLocked
	case errors.Is(err, os.ErrNotExist):
		return ErrFileNotFound
	case isCancellation(err):
		return ErrCancelled
	}
	return ErrInternal
}

// fail reports err with the code errorCode picks for it.
func fail(err error) error {
	return handleError(errorCode(err), err, "")
}

// failf wraps err with a message and reports it.
func failf(err error, format string, args ...any) error {
	return fail(fmt.Errorf(format+": %w", append(args, err)...))
}
