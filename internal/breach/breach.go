// Package breach reports whether a password is known to have been leaked
// in a data breach.
package breach

import (
	"context"
)

// Checker is implemented by breach corpora lookups.
type Checker interface {
	// Leaked reports whether password appears in a known breach corpus.
	Leaked(ctx context.Context, password string) (bool, error)
}

// Static is a Checker backed by a fixed in-memory set of leaked passwords.
// It is used when the remote corpus is disabled and in tests.
type Static struct {
	leaked map[string]struct{}
}

// NewStatic returns a Static checker that reports every given password as leaked.
func NewStatic(passwords ...string) *Static {
	s := &Static{leaked: make(map[string]struct{}, len(passwords))}
	for _, p := range passwords {
		s.leaked[p] = struct{}{}
	}
	return s
}

// Leaked reports whether password is in the static set.
func (s *Static) Leaked(_ context.Context, password string) (bool, error) {
	_, ok := s.leaked[password]
	return ok, nil
}

var _ Checker = (*Static)(nil)
