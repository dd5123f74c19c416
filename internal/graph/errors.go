package graph

import (
	"errors"
	"fmt"
)

// ErrIdentityNotFound is returned when a handle or key matches no account in
// the store or at the remote source. Not retriable.
var ErrIdentityNotFound = errors.New("graph: account not found")

// RemoteError wraps a failed or interrupted remote neighbor fetch. The call
// committed nothing, so retrying the same Neighbors call restarts the fetch
// cleanly.
type RemoteError struct {
	Key string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("graph: remote fetch for %s: %v", e.Key, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure. The in-memory view is not
// advanced past what the store accepted.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("graph: store %s for %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
