package install

import (
	"fmt"
	"time"
)

// CloneError reports a git clone subprocess that exited non-zero.
type CloneError struct {
	URL    string
	Output string
	Err    error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %s: %v", e.URL, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// SecondaryBuildError reports a dependency-install or build subprocess that
// exited non-zero.
type SecondaryBuildError struct {
	Dir    string
	Output string
	Err    error
}

func (e *SecondaryBuildError) Error() string {
	return fmt.Sprintf("secondary build in %s: %v", e.Dir, e.Err)
}

func (e *SecondaryBuildError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a unit that exceeded its per-unit deadline.
type TimeoutError struct {
	Package string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("package %s timed out after %s", e.Package, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
