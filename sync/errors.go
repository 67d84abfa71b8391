// ABOUTME: Typed errors shared by the remote adapters and the engine
// ABOUTME: Distinguishes transient rate limits from permanent remote failures
package sync

import (
	"errors"
	"fmt"
)

// ErrIncompleteData marks a lead event missing required fields. Recovered
// locally; no partial writes happen.
var ErrIncompleteData = errors.New("incomplete data")

// ErrRateLimited is the transient error adapters retry internally.
// Exhausting retries surfaces it wrapped in a RemoteError.
var ErrRateLimited = errors.New("rate limited")

// AuthError is a permanent credential failure from a remote service. Never
// retried; the pass is marked failed.
type AuthError struct {
	Service string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError wraps any other remote failure, including exhausted retries.
type RemoteError struct {
	Service string
	Op      string
	Status  int
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Service, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
