// File: server/server.go
package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"github.com/pong1v1/server/game"
	"github.com/pong1v1/server/utils"
)

const statusAskTimeout = 500 * time.Millisecond

// Server owns the HTTP surface, the websocket endpoint, the actor engine,
// and the process-wide client registry.
type Server struct {
	cfg           utils.Config
	logger        *zap.Logger
	engine        *bollywood.Engine
	matchmakerPID *bollywood.PID
	upgrader      websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
}

// New builds a Server and spawns its MatchmakerActor.
func New(cfg utils.Config, logger *zap.Logger) *Server {
	engine := bollywood.NewEngine()
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients connect from arbitrary origins; there is nothing to
			// protect behind the socket besides the match itself.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	producer := game.NewMatchmakerProducer(engine, cfg, logger, rng)
	s.matchmakerPID = engine.Spawn(bollywood.NewProps(producer))
	return s
}

// Handler returns the HTTP routes: liveness probes, status, and the
// websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte("pong-server-ok"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// handleStatus asks the matchmaker for its counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reply, err := s.engine.Ask(s.matchmakerPID, game.StatusRequest{}, statusAskTimeout)
	if err != nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	status, ok := reply.(game.StatusResponse)
	if !ok {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleWS upgrades the connection, registers a Client, greets it with
// hello, and starts the pumps.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s, conn)
	s.register(client)
	s.logger.Info("peer connected", zap.String("peer", client.id), zap.String("addr", conn.RemoteAddr().String()))

	go client.writePump()
	go client.readPump()

	client.Send(game.HelloMessage{Type: "hello", ID: client.id})
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, known := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()
	if known {
		s.logger.Info("peer disconnected", zap.String("peer", c.id))
	}
}

// ClientCount reports the number of registered peers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close drops every connection and shuts the actor engine down.
func (s *Server) Close(timeout time.Duration) {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	s.engine.Shutdown(timeout)
}
