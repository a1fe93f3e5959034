// Package client is the player side of the session protocol: it keeps one
// server connection, remembers the assigned player id and hands incoming
// lines to the lobby screen and the turn orchestrator.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nsulife/internal/game/player"
	"nsulife/internal/network"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNoPlayerID       = errors.New("no player id assigned")
)

// Observer receives lobby level events. Calls come from the receive
// goroutine, one at a time.
type Observer interface {
	OnLobbyUpdate(connected int)
	OnStartGame()
	// OnJoinRejected is called when the server answered GAME_STARTED.
	OnJoinRejected()
	OnGameReset()
	OnConnectionLost(err error)
}

// TurnHandler receives in-game traffic; turn.Orchestrator implements it.
type TurnHandler interface {
	OnPlayerMove(mv network.Move)
	OnPlayerDisconnect(playerID int)
	OnTurnUpdate(u network.TurnUpdate)
	OnPlayerHover(h network.Hover)
	OnPlayerStats(s network.Stats)
}

// Option configures a Session.
type Option func(*Session)

// WithMoveRate limits moving PLAYER_MOVE updates to perSecond. Zero or less
// disables the limit.
func WithMoveRate(perSecond float64) Option {
	return func(s *Session) {
		if perSecond <= 0 {
			s.moves = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.moves = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithDialTimeout bounds Connect.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Session) { s.dialTimeout = d }
}

// Session is one client connection. It is safe for concurrent use.
type Session struct {
	observer    Observer
	log         zerolog.Logger
	moves       *rate.Limiter
	dialTimeout time.Duration

	turnMu sync.RWMutex
	turns  TurnHandler

	connected atomic.Bool
	playerID  atomic.Int64

	// mu guards conn. It is never held across socket I/O; the LineConn
	// serialises its own writes.
	mu   sync.Mutex
	conn network.LineConn
}

// New creates a disconnected session. observer may be nil.
func New(observer Observer, log zerolog.Logger, opts ...Option) *Session {
	if observer == nil {
		observer = nopObserver{}
	}
	s := &Session{
		observer:    observer,
		log:         log,
		moves:       rate.NewLimiter(rate.Limit(10), 1),
		dialTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTurnHandler installs the receiver of in-game lines. Lines arriving
// while none is set are dropped.
func (s *Session) SetTurnHandler(th TurnHandler) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.turns = th
}

// Connect dials host:port and starts the receive goroutine.
func (s *Session) Connect(ctx context.Context, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return ErrAlreadyConnected
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: s.dialTimeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	conn := network.NewTCPConn(c)
	s.conn = conn
	s.playerID.Store(0)
	s.connected.Store(true)
	s.log.Info().Str("addr", addr).Msg("connected")

	go s.receive(conn)
	return nil
}

// Disconnect closes the socket. It does not wait for the receive goroutine
// or for writes in flight, which fail once the socket is closed, and does
// not report OnConnectionLost.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected.Store(false)
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
		s.log.Info().Msg("disconnected")
	}
}

func (s *Session) Connected() bool { return s.connected.Load() }

// PlayerID is 0 until the server assigns one.
func (s *Session) PlayerID() int { return int(s.playerID.Load()) }

// SendMessage writes one protocol line.
func (s *Session) SendMessage(text string) error {
	if strings.ContainsAny(text, "\r\n") {
		return fmt.Errorf("line contains a line break: %w", network.ErrMalformed)
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteLine(text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Session) send(msg network.Message) error {
	return s.SendMessage(msg.String())
}

func (s *Session) ownID() (int, error) {
	if !s.Connected() {
		return 0, ErrNotConnected
	}
	id := s.PlayerID()
	if id == 0 {
		return 0, ErrNoPlayerID
	}
	return id, nil
}

// SendPlayerMove publishes the local player's position. Updates while
// moving are throttled and the excess is dropped; a stop is always sent.
// It reports whether the update went out.
func (s *Session) SendPlayerMove(mv network.Move) (bool, error) {
	id, err := s.ownID()
	if err != nil {
		return false, err
	}
	if mv.Moving && !s.moves.Allow() {
		return false, nil
	}
	mv.PlayerID = id
	mv.HasRemaining = true
	if err := s.send(mv.Message()); err != nil {
		return false, err
	}
	return true, nil
}

// SendTurnComplete reports the end of the given turn.
func (s *Session) SendTurnComplete(playerID, turnNumber int) error {
	return s.send(network.TurnComplete{PlayerID: playerID, TurnNumber: turnNumber}.Message())
}

func (s *Session) SendPlayerHover(index int) error {
	id, err := s.ownID()
	if err != nil {
		return err
	}
	return s.send(network.Hover{PlayerID: id, Index: index}.Message())
}

// SendPlayerStats pushes the local stats as UPDATE_STATS.
func (s *Session) SendPlayerStats(stats player.Stats) error {
	id, err := s.ownID()
	if err != nil {
		return err
	}
	return s.send(wireStats(id, stats).Message(network.TypeUpdateStats))
}

// SendSyncPlayer pushes the final stats of playerID as SYNC_PLAYER.
func (s *Session) SendSyncPlayer(playerID int, stats player.Stats) error {
	return s.send(wireStats(playerID, stats).Message(network.TypeSyncPlayer))
}

// SendReset asks the server to reopen the lobby.
func (s *Session) SendReset() error {
	return s.send(network.ResetGame())
}

func wireStats(id int, st player.Stats) network.Stats {
	return network.Stats{
		PlayerID:    id,
		Skill:       st.Skill,
		Education:   st.Education,
		Health:      st.Health,
		Money:       st.Money,
		BankDeposit: st.BankDeposit,
	}
}

type nopObserver struct{}

func (nopObserver) OnLobbyUpdate(int)      {}
func (nopObserver) OnStartGame()           {}
func (nopObserver) OnJoinRejected()        {}
func (nopObserver) OnGameReset()           {}
func (nopObserver) OnConnectionLost(error) {}
