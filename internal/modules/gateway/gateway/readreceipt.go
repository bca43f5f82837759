package gateway

import (
	"context"

	"github.com/chatspace/core/internal/models"
)

// readReceiptAggregator records read marks against messages. Idempotence
// lives in the store's unique (message, user) constraint, so concurrent
// duplicate marks collapse to a single applied write.
type readReceiptAggregator struct {
	store Store
}

// MarkRead looks up the message and appends a read mark for the user.
// applied is false when the mark already existed. Returns ErrNotFound
// when the message does not exist or has been deleted.
func (a *readReceiptAggregator) MarkRead(ctx context.Context, messageID, userID string) (msg *models.MessageModel, applied bool, err error) {
	msg, err = a.store.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	if msg == nil {
		return nil, false, ErrNotFound
	}
	applied, err = a.store.AppendReadMark(ctx, messageID, userID)
	if err != nil {
		return nil, false, err
	}
	return msg, applied, nil
}
