package session

import (
	"nsulife/internal/game/turn"
	"nsulife/internal/network"
	"nsulife/internal/services/events"
)

func (h *GameHandler) registerRelayHandlers() {
	h.router[network.TypePlayerMove] = handlePlayerMove
	h.router[network.TypePlayerHover] = handlePlayerHover
	h.router[network.TypeTurnComplete] = handleTurnComplete
	h.router[network.TypeUpdateStats] = handleStats
	h.router[network.TypeSyncPlayer] = handleStats
	h.router[network.TypeResetGame] = handleResetGame
}

// handlePlayerMove relays a position update to everyone but the sender.
func handlePlayerMove(h *GameHandler, p network.Peer, msg network.Message) {
	if _, err := network.ParseMove(msg); err != nil {
		h.log.Debug().Err(err).Str("conn", p.ID()).Msg("dropping move")
		return
	}
	h.broadcast(msg, p)
}

func handlePlayerHover(h *GameHandler, p network.Peer, msg network.Message) {
	if _, err := network.ParseHover(msg); err != nil {
		h.log.Debug().Err(err).Str("conn", p.ID()).Msg("dropping hover")
		return
	}
	h.broadcast(msg, p)
}

// handleTurnComplete computes the next turn from the reported one and the
// live player count, and tells every client including the sender. No turn
// state is kept between calls.
func handleTurnComplete(h *GameHandler, p network.Peer, msg network.Message) {
	tc, err := network.ParseTurnComplete(msg)
	if err != nil {
		h.log.Debug().Err(err).Str("conn", p.ID()).Msg("dropping turn completion")
		return
	}
	connected := h.registry.ConnectedCount()
	next, nextTurn, kind := turn.Advance(tc.PlayerID, tc.TurnNumber, connected, h.rules.MaxTurns)
	update := network.TurnUpdate{PlayerID: next, TurnNumber: nextTurn, Kind: string(kind)}

	h.log.Info().
		Int("from_player", tc.PlayerID).
		Int("player", next).
		Int("turn", nextTurn).
		Str("kind", update.Kind).
		Msg("turn advanced")
	h.broadcast(update.Message(), nil)
	h.publish(events.Event{Kind: events.KindTurnAdvanced, PlayerID: next, TurnNumber: nextTurn, TurnKind: update.Kind, Connected: connected})
}

// handleStats stores UPDATE_STATS and SYNC_PLAYER in the slot and echoes the
// line to every client.
func handleStats(h *GameHandler, p network.Peer, msg network.Message) {
	s, err := network.ParseStats(msg)
	if err != nil {
		h.log.Debug().Err(err).Str("conn", p.ID()).Msg("dropping stats")
		return
	}
	h.registry.UpdateStats(s.PlayerID, statsFromWire(s))
	h.broadcast(msg, nil)
}

// handleResetGame reopens the lobby. Every connection loses its player id
// and has to be readmitted by reconnecting.
func handleResetGame(h *GameHandler, p network.Peer, _ network.Message) {
	h.stopStartTimer()
	h.started.Store(false)
	h.registry.Reset()
	for _, c := range h.clients {
		c.SetPlayerID(0)
	}
	h.log.Info().Str("conn", p.ID()).Msg("game reset")
	h.broadcast(network.GameReset(), nil)
	h.publish(events.Event{Kind: events.KindGameReset, Conn: p.ID()})
}
