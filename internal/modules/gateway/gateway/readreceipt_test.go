package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkReadAppliesOnce(t *testing.T) {
	store := newFakeStore()
	store.addMessage("m1", "chat-1", "u1", "hi")
	a := &readReceiptAggregator{store: store}

	msg, applied, err := a.MarkRead(context.Background(), "m1", "u2")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "chat-1", msg.ChatID)

	_, applied, err = a.MarkRead(context.Background(), "m1", "u2")
	require.NoError(t, err)
	assert.False(t, applied, "duplicate mark must not apply again")
}

func TestMarkReadDistinctReaders(t *testing.T) {
	store := newFakeStore()
	store.addMessage("m1", "chat-1", "u1", "hi")
	a := &readReceiptAggregator{store: store}

	_, applied, err := a.MarkRead(context.Background(), "m1", "u2")
	require.NoError(t, err)
	assert.True(t, applied)

	_, applied, err = a.MarkRead(context.Background(), "m1", "u3")
	require.NoError(t, err)
	assert.True(t, applied, "a different reader is a new mark")
}

func TestMarkReadMissingMessage(t *testing.T) {
	a := &readReceiptAggregator{store: newFakeStore()}

	_, _, err := a.MarkRead(context.Background(), "nope", "u2")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.addMessage("m1", "chat-1", "u1", "hi")
	store.errs["AppendReadMark"] = errors.New("db down")
	a := &readReceiptAggregator{store: store}

	_, applied, err := a.MarkRead(context.Background(), "m1", "u2")

	require.Error(t, err)
	assert.False(t, applied)
}
