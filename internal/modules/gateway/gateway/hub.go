package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chatspace/core/internal/models"
	pkgredis "github.com/chatspace/core/internal/pkg/redis"
	redis "github.com/redis/go-redis/v9"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func NewHub(store Store, verifier CredentialVerifier, rc *pkgredis.Client, logger *zap.Logger) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		conns:      make(map[string]*conn),
		presence:   newPresenceRegistry(),
		rooms:      newRoomRegistry(),
		typing:     newTypingTracker(),
		register:   make(chan registration, 64),
		unregister: make(chan *conn, 64),
		outbound:   make(chan envelope, 256),
		store:      store,
		rc:         rc,
		logger:     logger,
		sio:        sio,
	}
	h.receipts = &readReceiptAggregator{store: store}
	h.auth = NewAuthenticator(verifier, store)
	h.registerNamespace()
	return h
}

// Run owns admission, teardown and delivery until the context is cancelled.
// Serializing all three on one goroutine means a connect and a racing
// disconnect for the same connection can never interleave, and events for
// the same room are delivered in the order they were accepted.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return
		case reg := <-h.register:
			h.admit(reg)
		case c := <-h.unregister:
			h.teardown(c)
		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// admit activates a registered connection: it joins every chat the user
// participates in, and if this is the user's first live connection the user
// flips online and everyone else hears about it. When the transport already
// queued a disconnect for the connection, the activation swap fails and the
// registration is dropped without touching any registry.
func (h *Hub) admit(reg registration) {
	c := reg.c
	if !c.transition(stateUnauthenticated, stateActive) {
		return
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	h.rooms.JoinAll(c.id, reg.chatIDs)

	becameOnline := h.presence.Connect(c.user.UserID, c.id)
	if becameOnline {
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		if err := h.store.SetUserStatus(ctx, c.user.UserID, models.UserOnline, time.Now()); err != nil && h.logger != nil {
			h.logger.Warn("gateway set online failed",
				zap.String("userId", c.user.UserID), zap.Error(err))
		}
		cancel()
		h.Emit(TargetAllExcept(c.id), eventUserOnline, map[string]interface{}{
			"userId": c.user.UserID,
		})
	}

	h.updateDailyPeak(h.presence.OnlineCount())
}

// teardown runs exactly once per connection, guarded by the Closed CAS.
// After it returns no registry holds the connection id.
func (h *Hub) teardown(c *conn) {
	if !c.transition(stateActive, stateClosed) {
		// never admitted; marking it closed makes a pending admit drop it
		c.transition(stateUnauthenticated, stateClosed)
		return
	}

	h.rooms.PurgeConnection(c.id)

	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()

	wentOffline := h.presence.Disconnect(c.user.UserID, c.id)
	if wentOffline {
		lastSeen, _ := h.presence.LastSeen(c.user.UserID)
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		defer cancel()
		if err := h.store.SetUserStatus(ctx, c.user.UserID, models.UserOffline, lastSeen); err != nil && h.logger != nil {
			h.logger.Warn("gateway set offline failed",
				zap.String("userId", c.user.UserID), zap.Error(err))
		}
		h.Emit(TargetAllExcept(c.id), eventUserOffline, map[string]interface{}{
			"userId": c.user.UserID,
		})
	}
}

// updateDailyPeak records the day's high-water mark of distinct online
// users, matching the stats endpoint's online-user count.
func (h *Hub) updateDailyPeak(currentOnline int) {
	if h.rc == nil || currentOnline < 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dateKey := shortDateKey(time.Now())

	peak := 0
	current, err := h.rc.Raw().HGet(ctx, redisKeyPeakOnline, dateKey).Result()
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(current)); parseErr == nil {
			peak = parsed
		}
	case err == redis.Nil:
		// no-op
	default:
		if h.logger != nil {
			h.logger.Warn("gateway get peak online failed", zap.Error(err))
		}
	}

	if currentOnline > peak {
		if err := h.rc.Raw().HSet(ctx, redisKeyPeakOnline, dateKey, currentOnline).Err(); err != nil && h.logger != nil {
			h.logger.Warn("gateway set peak online failed", zap.Error(err))
		}
	}
}

func shortDateKey(t time.Time) string {
	return t.Format("1-2-06")
}

// OnlineUserCount returns the number of distinct users with at least one
// live connection.
func (h *Hub) OnlineUserCount() int {
	return h.presence.OnlineCount()
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ActiveRoomCount returns the number of rooms with at least one subscriber.
func (h *Hub) ActiveRoomCount() int {
	return h.rooms.RoomCount()
}

// PeakOnlineToday reads back today's recorded peak from Redis.
func (h *Hub) PeakOnlineToday(ctx context.Context) int {
	if h.rc == nil {
		return 0
	}
	raw, err := h.rc.Raw().HGet(ctx, redisKeyPeakOnline, shortDateKey(time.Now())).Result()
	if err != nil {
		return 0
	}
	peak, _ := strconv.Atoi(strings.TrimSpace(raw))
	return peak
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
