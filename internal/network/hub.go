package network

import (
	"context"

	"github.com/rs/zerolog"
)

// clientMessage pairs a message with the client that sent it.
type clientMessage struct {
	client *Client
	msg    Message
}

// Hub keeps the set of live clients and routes their events to the handler.
// Every handler call happens on the hub goroutine, so the handler sees join,
// leave and line events in one total order.
type Hub struct {
	// Accessed only by the hub goroutine.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	incoming   chan clientMessage
	done       chan struct{}

	handler EventHandler
	log     zerolog.Logger
}

// NewHub creates a hub; call Run to start it.
func NewHub(handler EventHandler, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage),
		done:       make(chan struct{}),
		handler:    handler,
		log:        log,
	}
}

// Run processes events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			c.close()
			c.conn.Close()
		}
		h.log.Info().Msg("hub stopped")
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug().Str("conn", c.id).Int("clients", len(h.clients)).Msg("client registered")
			h.handler.OnConnect(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				// Closing send stops the client's writeLoop.
				c.close()
				h.log.Debug().Str("conn", c.id).Int("clients", len(h.clients)).Msg("client unregistered")
				h.handler.OnDisconnect(c)
			}

		case cm := <-h.incoming:
			// The hub does not look at the content; the handler does.
			h.handler.OnMessage(cm.client, cm.msg)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(cm clientMessage) bool {
	select {
	case h.incoming <- cm:
		return true
	case <-h.done:
		return false
	}
}
