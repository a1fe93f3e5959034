package network

// Peer is the view of a connected client offered to the game logic.
type Peer interface {
	// ID is a unique id for the connection, used in logs and events.
	ID() string
	RemoteAddr() string

	// PlayerID is 0 until a slot is assigned.
	PlayerID() int
	SetPlayerID(id int)

	// Send queues a message for the peer. It returns false when the peer is
	// already closed or could not keep up; the message is then lost.
	Send(msg Message) bool
}

// EventHandler connects the network layer to the game logic.
// All three methods are called from the hub goroutine, one at a time.
type EventHandler interface {
	// OnConnect is called once a new client is registered.
	OnConnect(p Peer)

	// OnDisconnect is called after the client's read loop has ended.
	OnDisconnect(p Peer)

	// OnMessage is called for every well formed line received from a client.
	OnMessage(p Peer, msg Message)
}
