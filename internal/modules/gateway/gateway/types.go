package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatspace/core/internal/models"
	pkgredis "github.com/chatspace/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceChat = "/chat"

	// inbound events
	eventJoinChat    = "join_chat"
	eventSendMessage = "send_message"
	eventTyping      = "typing"
	eventStopTyping  = "stop_typing"
	eventReadMessage = "read_message"
	eventLeaveChat   = "leave_chat"

	// outbound events
	eventUserOnline     = "user_online"
	eventUserOffline    = "user_offline"
	eventUserJoinedChat = "user_joined_chat"
	eventUserLeftChat   = "user_left_chat"
	eventNewMessage     = "new_message"
	eventUserTyping     = "user_typing"
	eventUserStopTyping = "user_stop_typing"
	eventMessageRead    = "message_read"
	eventError          = "error"

	typingTimeout = 3 * time.Second

	redisKeyPeakOnline = "chat:gateway:peak_online"

	storeCallTimeout = 5 * time.Second
)

// Store is the persistence collaborator consumed by the gateway. The REST
// modules provide the production implementation; the gateway never touches
// the database directly.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*models.UserModel, error)
	ListChatIDsForUser(ctx context.Context, userID string) ([]string, error)
	FindMessageByID(ctx context.Context, id string) (*models.MessageModel, error)
	AppendReadMark(ctx context.Context, messageID, userID string) (bool, error)
	SetUserStatus(ctx context.Context, userID string, status models.UserStatus, lastSeen time.Time) error
}

// CredentialVerifier maps an opaque credential token to a user id.
type CredentialVerifier func(credential string) (string, error)

// Identity is the verified owner of a connection.
type Identity struct {
	UserID string
	Name   string
}

type connState int32

const (
	stateUnauthenticated connState = iota
	stateActive
	stateClosed
)

// conn is one live socket. The transport owns it; the registries only hold
// its id, never the struct, so a purge really severs every reference.
type conn struct {
	id        string
	user      Identity
	createdAt time.Time
	state     atomic.Int32
	emit      func(event string, payload any)
}

func (c *conn) stateNow() connState { return connState(c.state.Load()) }

func (c *conn) transition(from, to connState) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// registration carries an authenticated connection and its chat memberships
// into the Run loop for admission. The chat listing happens on the transport
// goroutine so a slow store call never stalls the loop.
type registration struct {
	c       *conn
	chatIDs []string
}

// envelope is one outbound emission queued for ordered delivery. Room
// targets carry the membership captured when the emission was accepted.
type envelope struct {
	target  Target
	conns   []string
	event   string
	payload any
}

// Hub owns all live connection state and routes every event between the
// socket layer and the presence/room/typing/read-receipt registries.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn

	presence *presenceRegistry
	rooms    *roomRegistry
	typing   *typingTracker
	receipts *readReceiptAggregator
	auth     *Authenticator

	register   chan registration
	unregister chan *conn
	outbound   chan envelope

	store  Store
	rc     *pkgredis.Client
	logger *zap.Logger
	sio    *socketio.Server
}
