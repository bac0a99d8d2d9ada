package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

func TestWindowBoundInvariant(t *testing.T) {
	s := NewSessionStore(64)

	for n := 1; n <= 200; n++ {
		s.Append("user-1", "yaprak", model.RoleUser, fmt.Sprintf("turn-%d", n))

		want := n
		if want > 64 {
			want = 64
		}
		require.Equal(t, want, s.Len("user-1", "yaprak"), "after %d appends", n)
	}

	// The surviving turns are exactly the most recent 64, in order.
	w := s.Window("user-1", "yaprak", "system prompt")
	require.Len(t, w, 65)
	assert.Equal(t, model.RoleSystem, w[0].Role)
	assert.Equal(t, "system prompt", w[0].Content)
	for i, entry := range w[1:] {
		assert.Equal(t, fmt.Sprintf("turn-%d", 200-64+i+1), entry.Content)
	}
}

func TestWindowFIFOEviction(t *testing.T) {
	s := NewSessionStore(3)

	s.Append("u", "damla", model.RoleUser, "a")
	s.Append("u", "damla", model.RoleAssistant, "b")
	s.Append("u", "damla", model.RoleUser, "c")
	s.Append("u", "damla", model.RoleAssistant, "d")

	w := s.Window("u", "damla", "sys")
	require.Len(t, w, 4)
	assert.Equal(t, "b", w[1].Content)
	assert.Equal(t, "c", w[2].Content)
	assert.Equal(t, "d", w[3].Content)
}

func TestWindowSystemEntryNotCounted(t *testing.T) {
	s := NewSessionStore(2)

	s.Append("u", "tohum", model.RoleUser, "one")
	s.Append("u", "tohum", model.RoleAssistant, "two")

	assert.Equal(t, 2, s.Len("u", "tohum"))

	w := s.Window("u", "tohum", "sys")
	require.Len(t, w, 3)
	assert.Equal(t, "one", w[1].Content)
	assert.Equal(t, "two", w[2].Content)
}

func TestWindowReset(t *testing.T) {
	s := NewSessionStore(64)

	s.Append("u", "yaprak", model.RoleUser, "hello")
	require.Equal(t, 1, s.Len("u", "yaprak"))

	s.Reset("u", "yaprak")
	assert.Equal(t, 0, s.Len("u", "yaprak"))

	w := s.Window("u", "yaprak", "sys")
	assert.Len(t, w, 1)
}

func TestWindowSessionIsolation(t *testing.T) {
	s := NewSessionStore(64)

	s.Append("u1", "yaprak", model.RoleUser, "from u1")
	s.Append("u2", "yaprak", model.RoleUser, "from u2")
	s.Append("u1", "damla", model.RoleUser, "other persona")

	assert.Equal(t, 1, s.Len("u1", "yaprak"))
	assert.Equal(t, 1, s.Len("u2", "yaprak"))
	assert.Equal(t, 1, s.Len("u1", "damla"))

	s.Reset("u1", "yaprak")
	assert.Equal(t, 0, s.Len("u1", "yaprak"))
	assert.Equal(t, 1, s.Len("u2", "yaprak"))
	assert.Equal(t, 1, s.Len("u1", "damla"))
}

func TestWindowReturnsCopy(t *testing.T) {
	s := NewSessionStore(64)
	s.Append("u", "yaprak", model.RoleUser, "hello")

	w := s.Window("u", "yaprak", "sys")
	w[1].Content = "mutated"

	w2 := s.Window("u", "yaprak", "sys")
	assert.Equal(t, "hello", w2[1].Content)
}
