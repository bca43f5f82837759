package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingSetAndExpiry(t *testing.T) {
	tr := newTypingTracker()
	now := time.Now()
	tr.now = func() time.Time { return now }

	tr.Set("chat-1", "u1")
	tr.Set("chat-1", "u2")
	assert.ElementsMatch(t, []string{"u1", "u2"}, tr.Active("chat-1"))

	now = now.Add(typingTimeout + time.Millisecond)
	assert.Empty(t, tr.Active("chat-1"), "entries past the timeout are pruned")
}

func TestTypingSetExtendsExpiry(t *testing.T) {
	tr := newTypingTracker()
	now := time.Now()
	tr.now = func() time.Time { return now }

	tr.Set("chat-1", "u1")
	now = now.Add(2 * time.Second)
	tr.Set("chat-1", "u1")
	now = now.Add(2 * time.Second)

	assert.ElementsMatch(t, []string{"u1"}, tr.Active("chat-1"),
		"a fresh keystroke resets the clock")
}

func TestTypingClear(t *testing.T) {
	tr := newTypingTracker()

	assert.False(t, tr.Clear("chat-1", "u1"), "clearing an absent entry is a no-op")

	tr.Set("chat-1", "u1")
	assert.True(t, tr.Clear("chat-1", "u1"))
	assert.False(t, tr.Clear("chat-1", "u1"))
	assert.Empty(t, tr.Active("chat-1"))
}

func TestTypingClearExpiredEntryStillReports(t *testing.T) {
	tr := newTypingTracker()
	now := time.Now()
	tr.now = func() time.Time { return now }

	tr.Set("chat-1", "u1")
	now = now.Add(typingTimeout + time.Second)

	// explicit stop wins even when the entry has lapsed but was never pruned
	assert.True(t, tr.Clear("chat-1", "u1"))
}

func TestTypingChatsAreIndependent(t *testing.T) {
	tr := newTypingTracker()

	tr.Set("chat-1", "u1")
	tr.Set("chat-2", "u1")
	tr.Clear("chat-1", "u1")

	assert.Empty(t, tr.Active("chat-1"))
	assert.ElementsMatch(t, []string{"u1"}, tr.Active("chat-2"))
}
