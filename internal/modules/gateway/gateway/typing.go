package gateway

import (
	"sync"
	"time"
)

// typingTracker records which users are typing in which chats. An entry
// expires typingTimeout after the last keystroke signal; expiry is lazy,
// pruned whenever the chat's active set is read, so no background sweep
// is needed.
type typingTracker struct {
	mu      sync.Mutex
	entries map[string]map[string]time.Time // chat id -> user id -> expiry
	now     func() time.Time
}

func newTypingTracker() *typingTracker {
	return &typingTracker{
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

// Set marks a user as typing in a chat, extending the expiry if the user
// was already typing.
func (t *typingTracker) Set(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.entries[chatID]
	if !ok {
		users = make(map[string]time.Time)
		t.entries[chatID] = users
	}
	users[userID] = t.now().Add(typingTimeout)
}

// Clear removes a user's typing entry. Reports whether an entry was
// present, expired or not; an explicit stop always wins over lazy expiry.
func (t *typingTracker) Clear(chatID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.entries[chatID]
	if !ok {
		return false
	}
	if _, present := users[userID]; !present {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.entries, chatID)
	}
	return true
}

// Active returns the users currently typing in a chat, pruning any
// entries that have expired.
func (t *typingTracker) Active(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.entries[chatID]
	if !ok {
		return nil
	}
	now := t.now()
	out := make([]string, 0, len(users))
	for userID, expiry := range users {
		if now.After(expiry) {
			delete(users, userID)
			continue
		}
		out = append(out, userID)
	}
	if len(users) == 0 {
		delete(t.entries, chatID)
	}
	return out
}
