// Package bus defines the pub/sub + request/response abstraction the
// core consumes. The transport itself (§1: "deliberately out of
// scope") lives in the wsbus subpackage; this package only fixes the
// interface shape so the core never depends on a concrete transport.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Broadcast is the reserved target id meaning "all subscribed peers".
const Broadcast = "*"

// Message is one unit on the bus: a kind (the routing key), a target
// client (or Broadcast), a payload, and enough identity to correlate a
// response with its request.
type Message struct {
	ID      string
	Kind    string
	Source  string
	Target  string
	Payload map[string]any
}

// NewMessageID generates a bus-unique message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// Handler processes one inbound message addressed to this client (or
// broadcast to all clients) and returns the response payload. Handlers
// that change orchestrator state are expected to set "retval":0 on
// success, mirroring the original RPC convention.
type Handler func(ctx context.Context, msg Message) (map[string]any, error)

// ClientInfo is what GetInfoForAllClients reports about one registered
// bus peer: its classifications (used for uniqueness/discovery checks)
// and an arbitrary presentation tag.
type ClientInfo struct {
	Classifications []string
	Tag             map[string]any
}

// Client is the abstraction the core requires of the message bus:
// construct a message, send it (optionally waiting for a response),
// register handlers for inbound kinds, and enumerate/ping peers.
type Client interface {
	// ConstructMessage builds a Message addressed from this client to
	// target, of the given kind, carrying payload.
	ConstructMessage(kind, target string, payload map[string]any) Message

	// SendMessage delivers msg. If wait > 0 it blocks for a response up
	// to that duration and returns the responder's payload; wait == 0
	// is fire-and-forget and returns (nil, nil) once the send completes.
	SendMessage(ctx context.Context, msg Message, wait time.Duration) (map[string]any, error)

	// AddMessageHandler registers the handler invoked for every inbound
	// message of the given kind addressed to this client (directly or
	// via broadcast).
	AddMessageHandler(kind string, h Handler)

	// GetInfoForAllClients enumerates every peer currently registered
	// on the bus, keyed by client name.
	GetInfoForAllClients(ctx context.Context) (map[string]ClientInfo, error)

	// IsAlive pings clientName and reports whether it responded.
	IsAlive(ctx context.Context, clientName string) bool

	// Start begins dispatching inbound messages to registered handlers.
	Start(ctx context.Context) error

	// Stop disconnects from the bus. Safe to call more than once.
	Stop() error
}
