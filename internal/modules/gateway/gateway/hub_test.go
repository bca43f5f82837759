package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatspace/core/internal/models"
)

type recordedEvent struct {
	event   string
	payload any
}

// testClient stands in for one socket: it records everything the hub
// emits to its connection.
type testClient struct {
	c      *conn
	mu     sync.Mutex
	events []recordedEvent
}

func (tc *testClient) record(event string, payload any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.events = append(tc.events, recordedEvent{event: event, payload: payload})
}

func (tc *testClient) count(event string) int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	n := 0
	for _, e := range tc.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (tc *testClient) last(event string) (any, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for i := len(tc.events) - 1; i >= 0; i-- {
		if tc.events[i].event == event {
			return tc.events[i].payload, true
		}
	}
	return nil, false
}

func newTestHub(t *testing.T, store Store, run bool) *Hub {
	t.Helper()
	h := NewHub(store, func(token string) (string, error) {
		return token, nil // tests use the user id as the credential
	}, nil, zap.NewNop())
	if run {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go h.Run(ctx)
	}
	return h
}

func newConn(connID string, user Identity) *testClient {
	tc := &testClient{}
	tc.c = &conn{
		id:        connID,
		user:      user,
		createdAt: time.Now(),
		emit:      tc.record,
	}
	return tc
}

// connect pushes a registration through the Run loop and waits until the
// hub has fully admitted the connection.
func connect(t *testing.T, h *Hub, connID string, user Identity) *testClient {
	t.Helper()
	tc := newConn(connID, user)
	chatIDs, err := h.store.ListChatIDsForUser(context.Background(), user.UserID)
	require.NoError(t, err)
	h.register <- registration{c: tc.c, chatIDs: chatIDs}
	waitFor(t, func() bool {
		h.presence.mu.RLock()
		defer h.presence.mu.RUnlock()
		e, ok := h.presence.entries[user.UserID]
		if !ok {
			return false
		}
		_, held := e.conns[connID]
		return held
	})
	return tc
}

// admitDirect admits a connection synchronously for tests that drive the
// Run loop's work by hand.
func admitDirect(h *Hub, connID string, user Identity) *testClient {
	tc := newConn(connID, user)
	h.admit(registration{c: tc.c})
	return tc
}

// drainDeliveries delivers everything queued on the outbound channel; call
// it only on hubs without a running loop.
func drainDeliveries(h *Hub) {
	for {
		select {
		case msg := <-h.outbound:
			h.deliver(msg)
		default:
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestAdmitBroadcastsOnlineOnce(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	waitFor(t, func() bool { return alice.count(eventUserOnline) == 1 })
	payload, _ := alice.last(eventUserOnline)
	assert.Equal(t, map[string]interface{}{"userId": "u2"}, payload)
	assert.Equal(t, 0, bob.count(eventUserOnline), "the new arrival does not hear itself")
	assert.Equal(t, models.UserOnline, store.statusOf("u2"))

	// a second device for the same user stays silent
	connect(t, h, "conn-b2", Identity{UserID: "u2", Name: "bob"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, alice.count(eventUserOnline))
	assert.Equal(t, 3, h.ConnectionCount())
	assert.Equal(t, 2, h.OnlineUserCount())
}

func TestTeardownBroadcastsOfflineOnLastDevice(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob1 := connect(t, h, "conn-b1", Identity{UserID: "u2", Name: "bob"})
	bob2 := connect(t, h, "conn-b2", Identity{UserID: "u2", Name: "bob"})

	h.unregister <- bob1.c
	waitFor(t, func() bool { return h.ConnectionCount() == 2 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, alice.count(eventUserOffline), "one device left, still online")
	assert.Equal(t, models.UserOnline, store.statusOf("u2"))

	h.unregister <- bob2.c
	waitFor(t, func() bool { return alice.count(eventUserOffline) == 1 })
	payload, _ := alice.last(eventUserOffline)
	assert.Equal(t, map[string]interface{}{"userId": "u2"}, payload)
	assert.Equal(t, models.UserOffline, store.statusOf("u2"))
	assert.Equal(t, 1, h.ConnectionCount())
	assert.Equal(t, 1, h.OnlineUserCount())
}

func TestTeardownLeavesNoState(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.chats["u1"] = []string{"chat-1", "chat-2"}
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	assert.Equal(t, 2, h.ActiveRoomCount())

	h.unregister <- alice.c
	waitFor(t, func() bool { return h.ConnectionCount() == 0 })

	assert.Equal(t, 0, h.ActiveRoomCount())
	assert.Empty(t, h.rooms.Rooms("conn-a"))
	assert.Equal(t, stateClosed, alice.c.stateNow())

	// teardown is idempotent
	h.unregister <- alice.c
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestDisconnectDuringAdmissionLeavesNoState(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	store.chats["u1"] = []string{"chat-1"}
	h := newTestHub(t, store, true)

	tc := newConn("conn-a", Identity{UserID: "u1", Name: "alice"})

	// the drop arrives while the chat listing is still in flight, so the
	// hub may see the disconnect before the registration
	h.unregister <- tc.c
	h.register <- registration{c: tc.c, chatIDs: []string{"chat-1"}}

	// a later registration flushes the queue behind the racing pair
	connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	waitFor(t, func() bool {
		return tc.c.stateNow() == stateClosed &&
			h.ConnectionCount() == 1 &&
			!h.presence.IsOnline("u1")
	})
	assert.Empty(t, h.rooms.Members("chat-1"))
	assert.Empty(t, h.rooms.Rooms("conn-a"))
	assert.NotEqual(t, models.UserOnline, store.statusOf("u1"),
		"a connection closed mid-admission must not stay online")
}

func TestAutoJoinedChatsReceiveMessages(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	store.chats["u1"] = []string{"chat-1"}
	store.chats["u2"] = []string{"chat-1"}
	store.addMessage("m1", "chat-1", "u2", "hello")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	h.dispatch(bob.c, eventSendMessage, map[string]interface{}{"messageId": "m1"})

	waitFor(t, func() bool { return alice.count(eventNewMessage) == 1 })
	payload, _ := alice.last(eventNewMessage)
	msg, ok := payload.(*models.MessageModel)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Content)
	// the sender's own room membership receives it too
	waitFor(t, func() bool { return bob.count(eventNewMessage) == 1 })
}

func TestDispatchSendUnknownMessage(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	h := newTestHub(t, store, true)
	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})

	h.dispatch(alice.c, eventSendMessage, map[string]interface{}{"messageId": "missing"})

	waitFor(t, func() bool { return alice.count(eventError) == 1 })
	payload, _ := alice.last(eventError)
	assert.Equal(t, map[string]interface{}{"message": "not found"}, payload)
}

func TestDispatchStoreFailureHidesDetail(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.chats["u1"] = []string{"chat-1"}
	store.addMessage("m1", "chat-1", "u1", "hello")
	store.errs["FindMessageByID"] = errors.New("dial tcp 10.0.0.5:3306: connection refused")
	h := newTestHub(t, store, true)
	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})

	h.dispatch(alice.c, eventSendMessage, map[string]interface{}{"messageId": "m1"})

	require.Equal(t, 1, alice.count(eventError))
	payload, _ := alice.last(eventError)
	assert.Equal(t, map[string]interface{}{"message": "internal error"}, payload,
		"store failure detail never reaches the wire")

	h.dispatch(alice.c, eventReadMessage, map[string]interface{}{"messageId": "m1"})

	require.Equal(t, 2, alice.count(eventError))
	payload, _ = alice.last(eventError)
	assert.Equal(t, map[string]interface{}{"message": "internal error"}, payload)
}

func TestDispatchJoinAndLeave(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	h.dispatch(alice.c, eventJoinChat, "chat-9")
	h.dispatch(bob.c, eventJoinChat, "chat-9")

	waitFor(t, func() bool { return alice.count(eventUserJoinedChat) == 1 })
	payload, _ := alice.last(eventUserJoinedChat)
	assert.Equal(t, map[string]interface{}{
		"userId": "u2", "name": "bob", "chatId": "chat-9",
	}, payload)
	assert.Equal(t, 0, bob.count(eventUserJoinedChat), "joiner does not hear itself")

	// re-join is silent
	h.dispatch(bob.c, eventJoinChat, "chat-9")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, alice.count(eventUserJoinedChat))

	h.dispatch(bob.c, eventLeaveChat, "chat-9")
	waitFor(t, func() bool { return alice.count(eventUserLeftChat) == 1 })

	// leaving again is silent
	h.dispatch(bob.c, eventLeaveChat, "chat-9")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, alice.count(eventUserLeftChat))
}

func TestDispatchTypingFlow(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	store.chats["u1"] = []string{"chat-1"}
	store.chats["u2"] = []string{"chat-1"}
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	h.dispatch(bob.c, eventTyping, map[string]interface{}{"chatId": "chat-1"})
	waitFor(t, func() bool { return alice.count(eventUserTyping) == 1 })
	payload, _ := alice.last(eventUserTyping)
	assert.Equal(t, map[string]interface{}{
		"userId": "u2", "name": "bob", "chatId": "chat-1",
	}, payload)
	assert.Equal(t, 0, bob.count(eventUserTyping))

	h.dispatch(bob.c, eventStopTyping, map[string]interface{}{"chatId": "chat-1"})
	waitFor(t, func() bool { return alice.count(eventUserStopTyping) == 1 })

	// stop without an active typing entry stays silent
	h.dispatch(bob.c, eventStopTyping, map[string]interface{}{"chatId": "chat-1"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, alice.count(eventUserStopTyping))
}

func TestDispatchReadMessage(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	store.chats["u1"] = []string{"chat-1"}
	store.chats["u2"] = []string{"chat-1"}
	store.addMessage("m1", "chat-1", "u1", "hello")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := connect(t, h, "conn-b", Identity{UserID: "u2", Name: "bob"})

	h.dispatch(bob.c, eventReadMessage, map[string]interface{}{"messageId": "m1"})
	waitFor(t, func() bool { return alice.count(eventMessageRead) == 1 })
	payload, _ := alice.last(eventMessageRead)
	assert.Equal(t, map[string]interface{}{"messageId": "m1", "userId": "u2"}, payload)

	// duplicate reads fan out nothing
	h.dispatch(bob.c, eventReadMessage, map[string]interface{}{"messageId": "m1"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, alice.count(eventMessageRead))
	assert.Equal(t, 0, bob.count(eventError))
}

func TestDispatchRejectsNonActiveConnection(t *testing.T) {
	store := newFakeStore()
	h := newTestHub(t, store, true)

	tc := &testClient{}
	tc.c = &conn{id: "conn-x", emit: tc.record}

	h.dispatch(tc.c, eventJoinChat, "chat-1")

	require.Equal(t, 1, tc.count(eventError))
	payload, _ := tc.last(eventError)
	assert.Equal(t, map[string]interface{}{"message": "not authenticated"}, payload)
}

func TestDispatchUnknownEvent(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	h := newTestHub(t, store, true)
	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})

	h.dispatch(alice.c, "self_destruct")

	waitFor(t, func() bool { return alice.count(eventError) == 1 })
	payload, _ := alice.last(eventError)
	assert.Equal(t, map[string]interface{}{"message": "unknown event"}, payload)
}

func TestRoomMembershipCapturedAtEmission(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	h := newTestHub(t, store, false) // no Run loop, deliveries driven by hand

	alice := admitDirect(h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	h.rooms.Join(alice.c.id, "chat-1")

	h.Emit(TargetRoom("chat-1"), eventNewMessage, "payload")

	// bob joins after the emission was accepted but before delivery
	bob := admitDirect(h, "conn-b", Identity{UserID: "u2", Name: "bob"})
	h.rooms.Join(bob.c.id, "chat-1")

	drainDeliveries(h)

	assert.Equal(t, 1, alice.count(eventNewMessage))
	assert.Equal(t, 0, bob.count(eventNewMessage),
		"membership is captured at emission time; late joiners miss it")
}

func TestDeliverSkipsClosedConnections(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	store.addUser("u2", "bob")
	h := newTestHub(t, store, false)

	alice := admitDirect(h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	bob := admitDirect(h, "conn-b", Identity{UserID: "u2", Name: "bob"})
	h.rooms.Join(alice.c.id, "chat-1")
	h.rooms.Join(bob.c.id, "chat-1")

	// bob closes after the emission is accepted with him in the snapshot
	h.Emit(TargetRoom("chat-1"), eventNewMessage, "payload")
	bob.c.transition(stateActive, stateClosed)

	drainDeliveries(h)

	assert.Equal(t, 1, alice.count(eventNewMessage))
	assert.Equal(t, 0, bob.count(eventNewMessage))
}

func TestSameRoomOrderingPreserved(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "alice")
	h := newTestHub(t, store, true)

	alice := connect(t, h, "conn-a", Identity{UserID: "u1", Name: "alice"})
	h.rooms.Join(alice.c.id, "chat-1")

	for i := 0; i < 20; i++ {
		h.Emit(TargetRoom("chat-1"), eventNewMessage, i)
	}

	waitFor(t, func() bool { return alice.count(eventNewMessage) == 20 })
	alice.mu.Lock()
	defer alice.mu.Unlock()
	seq := 0
	for _, e := range alice.events {
		if e.event != eventNewMessage {
			continue
		}
		assert.Equal(t, seq, e.payload)
		seq++
	}
}
