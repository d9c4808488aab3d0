package secret

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Use(t *testing.T) {
	t.Parallel()

	s := New("test test junk")

	var leaked []byte
	err := s.Use(func(v []byte) error {
		assert.Equal(t, "test test junk", string(v))
		leaked = v

		return nil
	})
	require.NoError(t, err)

	// the copy handed to the callback is cleared afterwards
	assert.Equal(t, make([]byte, len("test test junk")), leaked)

	// the stored value survives
	require.NoError(t, s.Use(func(v []byte) error {
		assert.Equal(t, "test test junk", string(v))
		return nil
	}))
}

func TestSecret_UseReturnsCallbackError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	err := New("x").Use(func([]byte) error { return wantErr })
	require.ErrorIs(t, err, wantErr)
}

func TestSecret_Destroy(t *testing.T) {
	t.Parallel()

	s := New("abandon abandon")
	assert.False(t, s.Empty())

	s.Destroy()
	assert.True(t, s.Empty())

	err := s.Use(func([]byte) error { return nil })
	require.ErrorIs(t, err, ErrDestroyed)

	var nilSecret *Secret
	require.ErrorIs(t, nilSecret.Use(func([]byte) error { return nil }), ErrDestroyed)
	assert.True(t, nilSecret.Empty())
	nilSecret.Destroy()
}

func TestSecret_NeverPrinted(t *testing.T) {
	t.Parallel()

	s := New("very secret words")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))

	b, err := json.Marshal(struct{ M *Secret }{M: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"M":"[REDACTED]"}`, string(b))
}
