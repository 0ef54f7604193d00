package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the referenced profile or assignment does not exist.
	// Readers treat it as "no assignment yet".
	ErrNotFound = errors.New("not found")

	// ErrConflict means an assignment changed since the caller read it.
	ErrConflict = errors.New("assignment was modified concurrently")

	// ErrForbidden means the caller's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports every region that broke a containment rule,
// together with the set the caller was allowed to use.
type ValidationError struct {
	Rule      string   `json:"rule"`
	Invalid   []string `json:"invalid"`
	Permitted []string `json:"permitted"`
	Messages  []string `json:"messages,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	return fmt.Sprintf("%s: invalid regions [%s]; permitted [%s]",
		e.Rule, strings.Join(e.Invalid, ", "), strings.Join(e.Permitted, ", "))
}

// StoreError wraps a failure of the persistence layer. It is surfaced as-is
// and never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore tags err as a StoreError unless it is one of the domain
// sentinels, which callers must still be able to match directly.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
