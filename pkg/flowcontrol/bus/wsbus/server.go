package wsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server is the broker: a minimal pub/sub + directory service that
// bus.Client implementations connect to over websocket. It fans
// broadcast frames out to subscribed peers and routes directly-targeted
// frames (requests and responses) to a single peer's connection.
//
// The broker is deliberately a separate, swappable concern from the
// orchestrator core — this is the concrete collaborator the core's
// bus.Client abstraction is built against, provided here so the module
// is runnable end to end rather than only unit-testable against a fake.
type Server struct {
	logger    *slog.Logger
	dir       *directory
	http      *http.Server
	mu        sync.RWMutex
	peers     map[string]*peerConn
}

type peerConn struct {
	name    string
	conn    *websocket.Conn
	writeMu sync.Mutex
	subList map[string]bool
}

func (p *peerConn) send(f frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(f)
}

// ServerConfig configures the broker.
type ServerConfig struct {
	Address       string // host:port to listen on
	DirectoryPath string // sqlite file backing the peer directory
}

// NewServer builds a Server. Call Start to begin listening.
func NewServer(cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := openDirectory(cfg.DirectoryPath)
	if err != nil {
		return nil, err
	}
	s := &Server{
		logger: logger.With("component", "bus-server"),
		dir:    dir,
		peers:  make(map[string]*peerConn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/peers", s.handlePeers)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	s.http = &http.Server{Addr: cfg.Address, Handler: mux}
	return s, nil
}

// Start begins accepting websocket connections. It does not block.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("wsbus: listen %s: %w", s.http.Addr, err)
	}
	s.http.Addr = ln.Addr().String()
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("wsbus: server error", "error", err)
		}
	}()
	s.logger.Info("wsbus: broker listening", "address", s.http.Addr)
	return nil
}

// Addr returns the actual listening address (useful when Address was ":0").
func (s *Server) Addr() string {
	return s.http.Addr
}

// Stop gracefully shuts down the broker and closes the peer directory.
func (s *Server) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.dir.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// handlePeers reports the broker's persisted peer directory as JSON,
// keyed by client name. Used by Client.GetInfoForAllClients.
func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	peers, err := s.dir.all()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make(map[string]directoryEntry, len(peers))
	for name, rec := range peers {
		out[name] = directoryEntry{Classifications: rec.Classifications, Tag: rec.Tag}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type directoryEntry struct {
	Classifications []string       `json:"classifications"`
	Tag             map[string]any `json:"tag"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("wsbus: upgrade failed", "error", err)
		return
	}

	var reg frame
	if err := conn.ReadJSON(&reg); err != nil || reg.Frame != "register" {
		s.logger.Warn("wsbus: peer did not register", "error", err)
		conn.Close()
		return
	}

	pc := &peerConn{
		name:    reg.ClientName,
		conn:    conn,
		subList: toSet(reg.SubList),
	}

	s.mu.Lock()
	s.peers[pc.name] = pc
	s.mu.Unlock()

	if err := s.dir.upsert(pc.name, reg.Classifications, reg.Tag); err != nil {
		s.logger.Warn("wsbus: failed to persist peer registration", "client", pc.name, "error", err)
	}
	s.logger.Info("wsbus: peer registered", "client", pc.name, "classifications", reg.Classifications)

	defer func() {
		s.mu.Lock()
		delete(s.peers, pc.name)
		s.mu.Unlock()
		conn.Close()
		s.logger.Info("wsbus: peer disconnected", "client", pc.name)
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		s.route(f)
	}
}

func (s *Server) route(f frame) {
	switch f.Frame {
	case "ping":
		s.mu.RLock()
		_, ok := s.peers[f.Target]
		s.mu.RUnlock()
		if ok {
			s.deliverDirect(f.Source, frame{Frame: "pong", ID: f.ID, Source: f.Target, Target: f.Source})
		}
		return
	case "pong":
		s.deliverDirect(f.Target, f)
		return
	}

	if f.Target == "" {
		return
	}
	if f.Target == broadcastTarget {
		s.deliverBroadcast(f)
		return
	}
	s.deliverDirect(f.Target, f)
}

const broadcastTarget = "*"

func (s *Server) deliverDirect(target string, f frame) {
	s.mu.RLock()
	p, ok := s.peers[target]
	s.mu.RUnlock()
	if !ok {
		s.logger.Debug("wsbus: target not connected, dropping frame", "target", target, "kind", f.MsgKind, "payload", marshalPayload(f.Payload))
		return
	}
	if err := p.send(f); err != nil {
		s.logger.Warn("wsbus: failed to deliver frame", "target", target, "error", err)
	}
}

func (s *Server) deliverBroadcast(f frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, p := range s.peers {
		if name == f.Source {
			continue
		}
		if !p.subList[f.MsgKind] {
			continue
		}
		if err := p.send(f); err != nil {
			s.logger.Warn("wsbus: failed to broadcast frame", "target", name, "error", err)
		}
	}
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// marshalPayload renders a payload as JSON for log output, falling back
// to its %v form if it cannot be marshaled.
func marshalPayload(p map[string]any) string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("<%v>", p)
	}
	return string(b)
}
