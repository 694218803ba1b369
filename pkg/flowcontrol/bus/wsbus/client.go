package wsbus

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
)

// Client is the bus.Client implementation backed by one websocket
// connection to a wsbus.Server.
type Client struct {
	name            string
	serverAddr      string
	classifications []string
	pubList         []string
	subList         []string
	tag             map[string]any

	logger *slog.Logger
	conn   *websocket.Conn

	handlersMu sync.RWMutex
	handlers   map[string]bus.Handler

	pendingMu sync.Mutex
	pending   map[string]chan map[string]any

	writeMu sync.Mutex
	done    chan struct{}
}

// NewClient builds a Client. serverAddr is the wsbus.Server's address
// (host:port, as returned by Server.Addr), not a full URL.
func NewClient(serverAddr, name string, classifications, pubList, subList []string, tag map[string]any, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:            name,
		classifications: classifications,
		pubList:         pubList,
		subList:         subList,
		tag:             tag,
		logger:          logger.With("component", "bus-client", "client", name),
		handlers:        make(map[string]bus.Handler),
		pending:         make(map[string]chan map[string]any),
		done:            make(chan struct{}),
		serverAddr:      serverAddr,
	}
}

func (c *Client) ConstructMessage(kind, target string, payload map[string]any) bus.Message {
	return bus.Message{ID: bus.NewMessageID(), Kind: kind, Source: c.name, Target: target, Payload: payload}
}

func (c *Client) AddMessageHandler(kind string, h bus.Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[kind] = h
}

func (c *Client) Start(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.serverAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("wsbus: dial %s: %w", u.String(), err)
	}
	c.conn = conn

	reg := frame{
		Frame:           "register",
		ClientName:      c.name,
		Classifications: c.classifications,
		PubList:         c.pubList,
		SubList:         c.subList,
		Tag:             c.tag,
	}
	if err := conn.WriteJSON(reg); err != nil {
		conn.Close()
		return fmt.Errorf("wsbus: register: %w", err)
	}

	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("wsbus: read loop ended", "error", err)
			}
			return
		}
		switch f.Frame {
		case "response", "pong":
			c.deliverPending(f)
		case "publish":
			go c.dispatch(f)
		}
	}
}

func (c *Client) deliverPending(f frame) {
	c.pendingMu.Lock()
	ch, ok := c.pending[f.ID]
	if ok {
		delete(c.pending, f.ID)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- f.Payload
	}
}

func (c *Client) dispatch(f frame) {
	c.handlersMu.RLock()
	h, ok := c.handlers[f.MsgKind]
	c.handlersMu.RUnlock()
	if !ok {
		return
	}

	msg := bus.Message{ID: f.ID, Kind: f.MsgKind, Source: f.Source, Target: f.Target, Payload: f.Payload}
	result, err := h(context.Background(), msg)
	if err != nil {
		c.logger.Error("wsbus: handler error", "kind", f.MsgKind, "error", err)
		result = map[string]any{"retval": 1, "error": err.Error()}
	}

	resp := frame{Frame: "response", ID: f.ID, MsgKind: f.MsgKind, Source: c.name, Target: f.Source, Payload: result}
	if err := c.writeFrame(resp); err != nil {
		c.logger.Error("wsbus: failed to send response", "error", err)
	}
}

func (c *Client) writeFrame(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *Client) SendMessage(ctx context.Context, msg bus.Message, wait time.Duration) (map[string]any, error) {
	f := frame{Frame: "publish", ID: msg.ID, MsgKind: msg.Kind, Source: msg.Source, Target: msg.Target, Payload: msg.Payload}
	if f.Source == "" {
		f.Source = c.name
	}

	if wait <= 0 {
		return nil, c.writeFrame(f)
	}

	ch := make(chan map[string]any, 1)
	c.pendingMu.Lock()
	c.pending[msg.ID] = ch
	c.pendingMu.Unlock()

	if err := c.writeFrame(f); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	select {
	case payload := <-ch:
		return payload, nil
	case <-waitCtx.Done():
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("wsbus: timed out waiting for response to %s", msg.Kind)
	}
}

func (c *Client) GetInfoForAllClients(ctx context.Context) (map[string]bus.ClientInfo, error) {
	// Ask the broker directly over a short-lived HTTP request so this
	// doesn't need a registered peer on the other end to answer — the
	// directory is a broker-side concern, not a message kind.
	return queryDirectory(ctx, c.serverAddr)
}

func (c *Client) IsAlive(ctx context.Context, clientName string) bool {
	id := bus.NewMessageID()
	ch := make(chan map[string]any, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	f := frame{Frame: "ping", ID: id, Source: c.name, Target: clientName}
	if err := c.writeFrame(f); err != nil {
		return false
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	select {
	case <-ch:
		return true
	case <-waitCtx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return false
	}
}

func (c *Client) Stop() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
