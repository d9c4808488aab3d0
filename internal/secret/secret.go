// Package secret holds sensitive configuration values such as mnemonics so that they are
// handed out only for the duration of a callback and cleared from memory afterwards.
package secret

import (
	"errors"
	"sync"

	"github.com/fluuu/partybeaver-deployments/internal/memzero"
)

// ErrDestroyed is returned when a destroyed or empty secret is used.
var ErrDestroyed = errors.New("secret is empty or has been destroyed")

const redacted = "[REDACTED]"

// Secret is a byte string that never prints its value.
type Secret struct {
	mu  sync.Mutex
	val []byte
}

// New copies v into a new Secret.
func New(v string) *Secret {
	return &Secret{val: []byte(v)}
}

// Use calls fn with a private copy of the value. The copy is zeroed when fn returns, so fn
// must not retain it.
func (s *Secret) Use(fn func(v []byte) error) error {
	if s == nil {
		return ErrDestroyed
	}

	s.mu.Lock()
	if len(s.val) == 0 {
		s.mu.Unlock()
		return ErrDestroyed
	}
	buf := make([]byte, len(s.val))
	copy(buf, s.val)
	s.mu.Unlock()

	defer memzero.Zero(buf)

	return fn(buf)
}

// Empty reports whether the secret holds no value.
func (s *Secret) Empty() bool {
	if s == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.val) == 0
}

// Destroy zeroes the stored value. Later calls to Use return ErrDestroyed.
func (s *Secret) Destroy() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	memzero.Zero(s.val)
	s.val = nil
}

// String implements fmt.Stringer without revealing the value.
func (s *Secret) String() string { return redacted }

// GoString implements fmt.GoStringer without revealing the value.
func (s *Secret) GoString() string { return redacted }

// MarshalText keeps the value out of JSON and YAML output.
func (s *Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
