// Package events publishes session lifecycle events for other services.
package events

import (
	"time"
)

// Kind names an event; it is also the last element of the subject.
type Kind string

const (
	KindPlayerJoined Kind = "player_joined"
	KindPlayerLeft   Kind = "player_left"
	KindJoinRejected Kind = "join_rejected"
	KindGameStarted  Kind = "game_started"
	KindTurnAdvanced Kind = "turn_advanced"
	KindGameReset    Kind = "game_reset"
)

// Event is one thing that happened in the session server.
type Event struct {
	Kind       Kind      `json:"kind"`
	Conn       string    `json:"conn,omitempty"`
	PlayerID   int       `json:"playerId,omitempty"`
	TurnNumber int       `json:"turnNumber,omitempty"`
	TurnKind   string    `json:"turnKind,omitempty"`
	Connected  int       `json:"connected"`
	At         time.Time `json:"at"`
}

// Publisher sends events. Publish must not block for long and must be safe
// for concurrent use: it is called from the hub goroutine and from the game
// start timer.
type Publisher interface {
	Publish(e Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}
