package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"bare string", []any{"chat-1"}, "chat-1"},
		{"padded string", []any{"  chat-1  "}, "chat-1"},
		{"object", []any{map[string]interface{}{"chatId": "chat-1"}}, "chat-1"},
		{"wrong key", []any{map[string]interface{}{"roomId": "chat-1"}}, ""},
		{"no args", nil, ""},
		{"nil arg", []any{nil}, ""},
		{"number", []any{map[string]interface{}{"chatId": 42}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idFromArgs("chatId", tt.args...))
		})
	}
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Equal(t, "abc", NormalizeToken("Bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("bearer   abc "))
	assert.Equal(t, "", NormalizeToken("   "))
}
