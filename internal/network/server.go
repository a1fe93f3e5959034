package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server accepts TCP (and optionally WebSocket) connections and feeds them to
// a single Hub.
type Server struct {
	hub      *Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader

	hubOnce   sync.Once
	readyOnce sync.Once
	addrMu    sync.Mutex
	addr      net.Addr
	ready     chan struct{}
}

// NewServer wires the game logic into a new hub.
func NewServer(handler EventHandler, log zerolog.Logger) *Server {
	return &Server{
		hub: NewHub(handler, log.With().Str("component", "hub").Logger()),
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game client is not a browser page; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ready: make(chan struct{}),
	}
}

// Listen binds address and serves until ctx is cancelled. A bind failure is
// returned immediately; errors on single connections never stop the loop.
func (s *Server) Listen(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. It owns ln and closes it on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.startHub(ctx)

	s.addrMu.Lock()
	if s.addr == nil {
		s.addr = ln.Addr()
	}
	s.addrMu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("session server listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("accept loop stopped")
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		s.attach(NewTCPConn(conn))
	}
}

// Ready is closed once the first listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr blocks until Serve has a listener and returns the first one's address.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// ServeWS upgrades an HTTP request and joins the connection to the hub.
// It must only be used while Serve is running.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")
	s.attach(NewWSConn(conn))
}

func (s *Server) startHub(ctx context.Context) {
	s.hubOnce.Do(func() {
		go s.hub.Run(ctx)
	})
}

// attach registers the connection and starts its goroutines. The accept loop
// never waits on an individual client beyond the hub handoff.
func (s *Server) attach(conn LineConn) {
	client := newClient(conn, s.hub, s.log)
	if !s.hub.registerClient(client) {
		conn.Close()
		return
	}
	go client.writeLoop()
	go client.readLoop()
}
