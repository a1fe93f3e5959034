package network

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sendBuffer is how many outbound lines may wait for a slow client before it
// is considered dead.
const sendBuffer = 256

// Client is a connected player as seen by the server. It owns the line
// connection and its two goroutines.
type Client struct {
	id   string
	conn LineConn
	hub  *Hub
	log  zerolog.Logger

	playerID atomic.Int64

	// The hub puts lines here and writeLoop sends them.
	mu     sync.Mutex
	closed bool
	send   chan string
}

func newClient(conn LineConn, hub *Hub, log zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  log.With().Str("conn", id).Str("remote", addrString(conn.RemoteAddr())).Logger(),
		send: make(chan string, sendBuffer),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) RemoteAddr() string { return addrString(c.conn.RemoteAddr()) }

func (c *Client) PlayerID() int { return int(c.playerID.Load()) }

func (c *Client) SetPlayerID(id int) { c.playerID.Store(int64(id)) }

// Send never blocks. A client whose queue is full is closed, which surfaces
// as a disconnect through its read loop.
func (c *Client) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg.String():
		return true
	default:
		c.log.Warn().Int("player", c.PlayerID()).Msg("send queue full, dropping client")
		c.closeLocked()
		c.conn.Close()
		return false
	}
}

// close stops the write loop. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.log.Debug().Msg("connection closed")
			} else {
				c.log.Info().Err(err).Msg("read failed")
			}
			return
		}

		msg, err := Parse(line)
		if err != nil {
			c.log.Debug().Err(err).Msg("ignoring line")
			continue
		}

		if !c.hub.deliver(clientMessage{client: c, msg: msg}) {
			return
		}
	}
}

// writeLoop pumps lines from the send channel to the connection.
func (c *Client) writeLoop() {
	defer c.conn.Close()

	for line := range c.send {
		if err := c.conn.WriteLine(line); err != nil {
			c.log.Info().Err(err).Msg("write failed")
			c.close()
			return
		}
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
