package session

import (
	"fmt"
	"sync"
	"time"

	"nsulife/internal/config"
	"nsulife/internal/network"
	"nsulife/internal/services/events"

	"github.com/rs/zerolog"
)

// fakePeer records what the handler sends. The start timer sends from its own
// goroutine, hence the lock.
type fakePeer struct {
	id string

	mu       sync.Mutex
	playerID int
	sent     []string
	closed   bool
}

func newPeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string         { return p.id }
func (p *fakePeer) RemoteAddr() string { return "pipe:" + p.id }

func (p *fakePeer) PlayerID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerID
}

func (p *fakePeer) SetPlayerID(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playerID = id
}

func (p *fakePeer) Send(msg network.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.sent = append(p.sent, msg.String())
	return true
}

func (p *fakePeer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// lines returns and clears what was sent so far.
func (p *fakePeer) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.sent
	p.sent = nil
	return out
}

func (p *fakePeer) has(line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.sent {
		if l == line {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func testRules() config.Rules {
	r := config.DefaultRules()
	r.StartDelay = 20 * time.Millisecond
	return r
}

func newTestHandler(rules config.Rules) (*GameHandler, *recordingPublisher) {
	pub := &recordingPublisher{}
	h := NewGameHandler(rules, NewRegistry(rules.MaxPlayers), pub, zerolog.Nop())
	return h, pub
}

// join connects n fresh peers named p1..pn.
func join(h *GameHandler, n int) []*fakePeer {
	peers := make([]*fakePeer, n)
	for i := range peers {
		peers[i] = newPeer(fmt.Sprintf("p%d", i+1))
		h.OnConnect(peers[i])
	}
	return peers
}

func send(h *GameHandler, p *fakePeer, line string) {
	msg, err := network.Parse(line)
	if err != nil {
		return
	}
	h.OnMessage(p, msg)
}
