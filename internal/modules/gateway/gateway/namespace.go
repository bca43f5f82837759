package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func (h *Hub) registerNamespace() {
	chatNS := h.sio.Of(namespaceChat, nil)
	_ = chatNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		token := NormalizeToken(extractToken(client))

		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		identity, err := h.auth.Authenticate(ctx, token)
		cancel()
		if err != nil {
			message, wireSafe := clientErrorMessage(err)
			if !wireSafe && h.logger != nil {
				h.logger.Warn("gateway handshake failed",
					zap.String("sid", string(client.Id())), zap.Error(err))
			}
			_ = client.Emit(eventError, map[string]interface{}{"message": message})
			client.Disconnect(true)
			return
		}

		c := &conn{
			id:        string(client.Id()),
			user:      identity,
			createdAt: time.Now(),
			emit: func(event string, payload any) {
				_ = client.Emit(event, payload)
			},
		}

		// The disconnect listener must be live before admission is queued:
		// a drop during the chat listing below then reaches the Run loop
		// ahead of the registration, which the loop discards cleanly.
		_ = client.On("disconnect", func(_ ...any) {
			h.unregister <- c
		})

		for _, event := range []string{
			eventJoinChat, eventSendMessage, eventTyping,
			eventStopTyping, eventReadMessage, eventLeaveChat,
		} {
			event := event
			_ = client.On(event, func(eventArgs ...any) {
				h.dispatch(c, event, eventArgs...)
			})
		}

		lctx, lcancel := context.WithTimeout(context.Background(), storeCallTimeout)
		chatIDs, err := h.store.ListChatIDsForUser(lctx, identity.UserID)
		lcancel()
		if err != nil && h.logger != nil {
			h.logger.Warn("gateway list chats failed",
				zap.String("userId", identity.UserID), zap.Error(err))
		}

		h.register <- registration{c: c, chatIDs: chatIDs}

		if h.logger != nil {
			h.logger.Info("gateway connection established",
				zap.String("sid", c.id), zap.String("userId", identity.UserID))
		}
	})
}

// dispatch routes one inbound event from an authenticated connection. Bad
// events cost the sender an error emission, never the connection.
func (h *Hub) dispatch(c *conn, event string, args ...any) {
	if c.stateNow() != stateActive {
		h.emitError(c, &ProtocolError{Reason: NotAuthenticated})
		return
	}

	switch event {
	case eventJoinChat:
		chatID := idFromArgs("chatId", args...)
		if chatID == "" {
			return
		}
		if h.rooms.Join(c.id, chatID) {
			h.Emit(TargetRoomExcept(chatID, c.id), eventUserJoinedChat, chatEventPayload(c.user, chatID))
		}

	case eventLeaveChat:
		chatID := idFromArgs("chatId", args...)
		if chatID == "" {
			return
		}
		h.typing.Clear(chatID, c.user.UserID)
		if h.rooms.Leave(c.id, chatID) {
			h.Emit(TargetRoomExcept(chatID, c.id), eventUserLeftChat, chatEventPayload(c.user, chatID))
		}

	case eventSendMessage:
		messageID := idFromArgs("messageId", args...)
		if messageID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		msg, err := h.store.FindMessageByID(ctx, messageID)
		cancel()
		if err != nil {
			h.emitError(c, err)
			return
		}
		if msg == nil {
			h.emitError(c, ErrNotFound)
			return
		}
		h.typing.Clear(msg.ChatID, c.user.UserID)
		h.Emit(TargetRoom(msg.ChatID), eventNewMessage, msg)

	case eventTyping:
		chatID := idFromArgs("chatId", args...)
		if chatID == "" {
			return
		}
		h.typing.Set(chatID, c.user.UserID)
		h.Emit(TargetRoomExcept(chatID, c.id), eventUserTyping, chatEventPayload(c.user, chatID))

	case eventStopTyping:
		chatID := idFromArgs("chatId", args...)
		if chatID == "" {
			return
		}
		if h.typing.Clear(chatID, c.user.UserID) {
			h.Emit(TargetRoomExcept(chatID, c.id), eventUserStopTyping, chatEventPayload(c.user, chatID))
		}

	case eventReadMessage:
		messageID := idFromArgs("messageId", args...)
		if messageID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		msg, applied, err := h.receipts.MarkRead(ctx, messageID, c.user.UserID)
		cancel()
		if err != nil {
			h.emitError(c, err)
			return
		}
		if applied {
			h.Emit(TargetRoom(msg.ChatID), eventMessageRead, map[string]interface{}{
				"messageId": messageID,
				"userId":    c.user.UserID,
			})
		}

	default:
		h.emitError(c, &ProtocolError{Reason: UnknownEvent})
	}
}

// emitError goes straight to the originating socket, bypassing the outbound
// queue; errors are private to the sender and carry no ordering guarantee.
// Only auth and protocol errors reach the client verbatim. Store and other
// infrastructure failures stay in the log and the client gets a generic
// line, internal error detail is not for the wire.
func (h *Hub) emitError(c *conn, err error) {
	message, wireSafe := clientErrorMessage(err)
	if !wireSafe && h.logger != nil {
		h.logger.Warn("gateway event failed",
			zap.String("sid", c.id), zap.String("userId", c.user.UserID), zap.Error(err))
	}
	c.emit(eventError, map[string]interface{}{"message": message})
}

// clientErrorMessage decides what a client may see of an error. Auth and
// protocol errors are phrased for the wire already; everything else is
// infrastructure detail and collapses to a generic line.
func clientErrorMessage(err error) (message string, wireSafe bool) {
	var authErr *AuthError
	var protoErr *ProtocolError
	switch {
	case errors.As(err, &authErr), errors.As(err, &protoErr), errors.Is(err, ErrNotFound):
		return err.Error(), true
	default:
		return "internal error", false
	}
}

func chatEventPayload(user Identity, chatID string) map[string]interface{} {
	return map[string]interface{}{
		"userId": user.UserID,
		"name":   user.Name,
		"chatId": chatID,
	}
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if auth, ok := handshake.Auth.(map[string]interface{}); ok {
		if token := strFromAny(auth["token"]); token != "" {
			return token
		}
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	if token := firstValueFromMultiMap(handshake.Headers, "authorization"); token != "" {
		return token
	}
	return ""
}

// NormalizeToken strips an optional Bearer prefix from a raw credential.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// idFromArgs accepts either a bare string argument or an object carrying the
// id under the given key, matching what different client builds send.
func idFromArgs(key string, args ...any) string {
	if len(args) == 0 || args[0] == nil {
		return ""
	}
	switch raw := args[0].(type) {
	case string:
		return strings.TrimSpace(raw)
	case map[string]interface{}:
		return strFromAny(raw[key])
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return ""
		}
		out := map[string]interface{}{}
		if err := json.Unmarshal(data, &out); err != nil {
			return ""
		}
		return strFromAny(out[key])
	}
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	if len(values) == 0 {
		return ""
	}
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		v := strings.TrimSpace(list[0])
		if v != "" {
			return v
		}
	}
	return ""
}

func strFromAny(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return ""
	}
}
