package session

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"nsulife/internal/config"
	"nsulife/internal/network"
	"nsulife/internal/services/events"

	"github.com/rs/zerolog"
)

// CommandHandlerFunc handles one message type received from a peer.
type CommandHandlerFunc func(h *GameHandler, p network.Peer, msg network.Message)

// GameHandler is the session server logic behind the network hub. OnConnect,
// OnDisconnect and OnMessage run on the hub goroutine; everything else is
// safe for concurrent use.
type GameHandler struct {
	rules    config.Rules
	registry *Registry
	events   events.Publisher
	log      zerolog.Logger

	router map[string]CommandHandlerFunc

	// Owned by the hub goroutine. The slice is replaced on every change and
	// never written in place, so a copy of the header is a stable snapshot.
	clients []network.Peer

	started atomic.Bool

	timerMu    sync.Mutex
	startTimer *time.Timer
}

// NewGameHandler builds the handler and registers its commands.
func NewGameHandler(rules config.Rules, registry *Registry, pub events.Publisher, log zerolog.Logger) *GameHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	h := &GameHandler{
		rules:    rules,
		registry: registry,
		events:   pub,
		log:      log,
		router:   make(map[string]CommandHandlerFunc),
	}
	h.registerRelayHandlers()
	return h
}

// OnConnect admits a new connection into the lobby.
func (h *GameHandler) OnConnect(p network.Peer) {
	h.clients = append(slices.Clone(h.clients), p)

	if h.started.Load() {
		h.log.Info().Str("conn", p.ID()).Msg("game already started, rejecting join")
		p.Send(network.GameStarted())
		h.publish(events.Event{Kind: events.KindJoinRejected, Conn: p.ID()})
		return
	}

	id, ok := h.registry.Claim()
	if !ok {
		h.log.Warn().Str("conn", p.ID()).Int("capacity", h.registry.Capacity()).Msg("lobby full, connection left unassigned")
		return
	}
	p.SetPlayerID(id)

	count := h.registry.ConnectedCount()
	h.log.Info().Str("conn", p.ID()).Int("player", id).Int("connected", count).Msg("player joined")

	h.broadcast(network.LobbyUpdate(count), nil)
	p.Send(network.PlayerID(id))
	h.publish(events.Event{Kind: events.KindPlayerJoined, Conn: p.ID(), PlayerID: id})

	if count >= h.rules.MinPlayersToStart && h.started.CompareAndSwap(false, true) {
		h.scheduleStart()
	}
}

// OnDisconnect frees the peer's slot and tells everyone else.
func (h *GameHandler) OnDisconnect(p network.Peer) {
	h.clients = slices.DeleteFunc(slices.Clone(h.clients), func(c network.Peer) bool { return c == p })

	id := p.PlayerID()
	if id == 0 || !h.registry.Release(id) {
		h.log.Debug().Str("conn", p.ID()).Msg("unassigned connection left")
		return
	}

	count := h.registry.ConnectedCount()
	h.log.Info().Str("conn", p.ID()).Int("player", id).Int("connected", count).Msg("player left")

	h.broadcast(network.LobbyUpdate(count), nil)
	h.broadcast(network.PlayerDisconnect(id), p)
	h.publish(events.Event{Kind: events.KindPlayerLeft, Conn: p.ID(), PlayerID: id})
}

// OnMessage dispatches to the registered command. Unknown types are ignored.
func (h *GameHandler) OnMessage(p network.Peer, msg network.Message) {
	handler, ok := h.router[msg.Type]
	if !ok {
		h.log.Debug().Str("conn", p.ID()).Str("type", msg.Type).Msg("ignoring unknown message")
		return
	}
	handler(h, p, msg)
}

// scheduleStart sends START_GAME after the start delay to the peers
// connected right now. Peers gone by then are skipped by Send.
func (h *GameHandler) scheduleStart() {
	recipients := h.clients
	delay := h.rules.StartDelay
	h.log.Info().Int("recipients", len(recipients)).Dur("delay", delay).Msg("starting game")

	h.timerMu.Lock()
	defer h.timerMu.Unlock()
	h.startTimer = time.AfterFunc(delay, func() {
		sent := 0
		for _, c := range recipients {
			if c.Send(network.StartGame()) {
				sent++
			}
		}
		h.log.Info().Int("sent", sent).Msg("START_GAME sent")
		h.publish(events.Event{Kind: events.KindGameStarted})
	})
}

func (h *GameHandler) stopStartTimer() {
	h.timerMu.Lock()
	defer h.timerMu.Unlock()
	if h.startTimer != nil {
		h.startTimer.Stop()
		h.startTimer = nil
	}
}

// broadcast sends msg to every client except skip.
func (h *GameHandler) broadcast(msg network.Message, skip network.Peer) {
	for _, c := range h.clients {
		if c == skip {
			continue
		}
		c.Send(msg)
	}
}

func (h *GameHandler) publish(e events.Event) {
	if e.Connected == 0 {
		e.Connected = h.registry.ConnectedCount()
	}
	h.events.Publish(e)
}

// Started reports whether the lobby is closed to new players.
func (h *GameHandler) Started() bool { return h.started.Load() }

// Close cancels a pending START_GAME.
func (h *GameHandler) Close() {
	h.stopStartTimer()
}
