package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSource rejects adding a second script from the same URL.
	ErrDuplicateSource = errors.New("a script from this URL already exists")

	// ErrNotFound is returned when no script matches the given id.
	ErrNotFound = errors.New("script not found")

	// ErrNotRefreshable is returned for scripts without a source URL.
	ErrNotRefreshable = errors.New("cannot refresh manually added script")
)

// DependencyError reports the first dependency fetch failure, which aborts
// the surrounding registry operation.
type DependencyError struct {
	URL string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("failed to fetch dependency %s: %v", e.URL, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
