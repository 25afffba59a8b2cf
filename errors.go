package swrcache

import (
	"errors"
	"fmt"
)

var (
	// ErrSuspended matches every *SuspendedError.
	ErrSuspended = errors.New("swrcache: data not ready")
	// ErrInvariant is raised (as a panic) when a resource is in no known state.
	ErrInvariant = errors.New("swrcache: resource state invariant violated")
	// ErrTypeMismatch means the same key is queried with different value types.
	ErrTypeMismatch = errors.New("swrcache: key already in flight with a different value type")
	ErrEmptyKey     = errors.New("swrcache: empty query key")
	ErrClosed       = errors.New("swrcache: client closed")
)

// SuspendedError is returned by Query while the data for Key is still being
// produced. Rendering code should abandon the current pass and retry once
// Done is closed.
type SuspendedError struct {
	Key  string
	done <-chan struct{}
}

func (e *SuspendedError) Error() string {
	return fmt.Sprintf("swrcache: %q not ready", e.Key)
}

// Done is closed when the pending computation settles.
func (e *SuspendedError) Done() <-chan struct{} { return e.done }

func (e *SuspendedError) Is(target error) bool { return target == ErrSuspended }

type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
