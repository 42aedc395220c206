// Package server implements the Server Loop (spec component C7): the
// WebSocket acceptor, per-connection reader/writer goroutines, the
// periodic ticker set, and the glue between the event bus and the wire.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/lab1702/gridkeep/internal/config"
	"github.com/lab1702/gridkeep/internal/connection"
	"github.com/lab1702/gridkeep/internal/engine"
	gmetrics "github.com/lab1702/gridkeep/internal/metrics"
)

// pongWaitMultiplier sets how long the reader tolerates a missing pong
// before it gives up on the connection: this multiple of the configured
// ping interval.
const pongWaitMultiplier = 2

// Rate limit applied to inbound application messages per connection,
// independent of the transport-level ping/pong keepalive.
const (
	inboundRateLimit = 10 // messages per second
	inboundBurst     = 20
)

// Server owns the shared Game, the connection Registry, and the
// goroutines that move bytes between them.
type Server struct {
	cfg      *config.Config
	game     *engine.Game
	registry *connection.Registry
	metrics  *gmetrics.Metrics
	log      *logrus.Entry
	upgrader websocket.Upgrader

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Server wired to game and registry, and subscribes its
// event-bus bridge (spec.md §4.5) so Bump/PlayerJoined/PlayerLeft events
// become outgoing wire messages.
func New(cfg *config.Config, game *engine.Game, registry *connection.Registry, m *gmetrics.Metrics, log *logrus.Entry) *Server {
	s := &Server{
		cfg:      cfg,
		game:     game,
		registry: registry,
		metrics:  m,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		stopCh: make(chan struct{}),
	}
	s.wireEvents()
	return s
}

// Routes registers the server's HTTP handlers onto mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
}

// Run starts the state-broadcast and purge tickers and blocks until ctx is
// canceled or Shutdown is called. Transport pings are sent per connection
// by wsClient.writePump, not from here.
func (s *Server) Run(ctx context.Context) {
	stateTicker := time.NewTicker(s.cfg.StateBroadcastInterval)
	purgeTicker := time.NewTicker(s.cfg.PurgeInterval)
	defer stateTicker.Stop()
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-stateTicker.C:
			s.broadcastState()
		case <-purgeTicker.C:
			now := time.Now()
			s.registry.Purge(now, s.cfg.ConnectionGrace)
			s.game.PurgeExpired(now, s.cfg.PlayerGrace)
			s.refreshGauges()
		}
	}
}

// Shutdown stops the ticker loop, tells every connected client the server
// is going away, and closes all transports. It waits for outstanding
// per-connection goroutines to finish.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		errBytes, err := buildErrorMessage(apperr.New(apperr.ServerShutdown, "server is shutting down"))
		if err == nil {
			s.registry.Broadcast(errBytes)
		}

		for _, id := range s.registry.ActiveClientIDs() {
			if c, ok := s.registry.Get(id); ok {
				if ws, ok := c.Sink.(*wsClient); ok {
					close(ws.send)
				}
			}
		}
	})
	s.wg.Wait()
}

// HandleWebSocket upgrades an HTTP request and spawns the read/write
// goroutines for the new connection (spec.md §4.7 "On accept").
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newWSClient(conn)
	clientID := s.registry.Register(client)
	client.clientID = clientID

	s.log.WithField("clientId", clientID).Info("connection accepted")
	s.refreshGauges()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		client.writePump(s.cfg.PingInterval)
	}()

	s.readPump(client)
}

// readPump reads frames from one connection until the transport closes or
// the connection is disconnected, passing each to dispatch. It
// runs in the goroutine that called HandleWebSocket.
func (s *Server) readPump(client *wsClient) {
	conn := client.conn
	pongWait := s.cfg.PingInterval * pongWaitMultiplier

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(inboundRateLimit), inboundBurst)

	defer s.handleDisconnectTransport(client.clientID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if !limiter.Allow() {
			s.sendErrorTo(client.clientID, apperr.New(apperr.RateLimited, "message rate limit exceeded"))
			continue
		}

		s.registry.Touch(client.clientID, time.Now())
		s.dispatch(client.clientID, raw)
	}
}

// handleDisconnectTransport is invoked when a connection's transport
// closes for any reason (client close, write failure, read timeout). It
// marks the connection disconnected and, if it carried a player, moves
// that player to the disconnected registry so it can be restored within
// grace (spec.md §4.3, §4.7 "On close").
func (s *Server) handleDisconnectTransport(clientID uuid.UUID) {
	c, ok := s.registry.Get(clientID)
	if ok && c.HasPlayer {
		s.game.RemovePlayer(c.PlayerID, engine.RemoveDisconnect, time.Now())
	}
	s.registry.MarkDisconnected(clientID, time.Now())
	s.refreshGauges()
	s.log.WithField("clientId", clientID).Info("connection closed")
}

func (s *Server) refreshGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveConnections.Set(float64(s.registry.ActiveCount()))
	s.metrics.DisconnectedPlayers.Set(float64(s.registry.DisconnectedCount()))
	s.metrics.ActivePlayers.Set(float64(len(s.game.Snapshot().Players)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
