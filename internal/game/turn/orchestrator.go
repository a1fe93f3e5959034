package turn

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"nsulife/internal/config"
	"nsulife/internal/game/player"
	"nsulife/internal/network"

	"github.com/rs/zerolog"
)

var (
	ErrNotYourTurn = errors.New("not the local player's turn")
	ErrBusy        = errors.New("an action is still in progress")
	ErrTooClose    = errors.New("destination too close")
	ErrNoTime      = errors.New("no time left this turn")
	ErrGameOver    = errors.New("game is over")
)

// Sink carries the local player's outbound events to the server.
type Sink interface {
	SendTurnComplete(playerID, turnNumber int) error
	SendSyncPlayer(playerID int, stats player.Stats) error
}

// Presenter is the scene that shows turn state. Calls are made outside the
// orchestrator lock and may call back into it.
type Presenter interface {
	// CloseInteraction dismisses any open popup or pending choice.
	CloseInteraction()
	TurnStarted(playerID, turnNumber int, kind Kind, local bool)
	RemoteHover(playerID, index int)
	GameOver(players []player.Snapshot)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocalAdvance makes the orchestrator compute the next turn itself after
// a completion, for single player games with no server.
func WithLocalAdvance() Option {
	return func(o *Orchestrator) { o.localAdvance = true }
}

// effects are side effects collected under the lock and run after it.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

// Orchestrator is the turn state machine of one client.
//
// Only SetTurn advances the turn. The local player's completion is reported
// through the Sink and the orchestrator then waits for the server's echo.
type Orchestrator struct {
	rules        config.Rules
	sink         Sink
	presenter    Presenter
	log          zerolog.Logger
	localAdvance bool

	mu             sync.Mutex
	localID        int
	players        map[int]*player.Player
	state          State
	current        int
	turnNumber     int
	completionSent bool
	settled        bool
}

// New creates an orchestrator waiting for its first turn.
func New(rules config.Rules, sink Sink, presenter Presenter, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rules:     rules,
		sink:      sink,
		presenter: presenter,
		log:       log,
		players:   make(map[int]*player.Player),
		state:     WaitingForTurnStart,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetLocalPlayer records which player this client controls.
func (o *Orchestrator) SetLocalPlayer(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.localID = id
	p := o.playerLocked(id)
	p.Remote = false
}

// Reset forgets the finished or abandoned game so the next START_GAME begins
// from turn 1 with fresh players.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.players = make(map[int]*player.Player)
	o.localID = 0
	o.current = 0
	o.turnNumber = 0
	o.completionSent = false
	o.settled = false
	o.state = WaitingForTurnStart
	o.log.Info().Msg("turn state reset")
}

// EnsurePlayers makes sure players 1..n exist.
func (o *Orchestrator) EnsurePlayers(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := 1; id <= n; id++ {
		o.playerLocked(id)
	}
}

// SetTurn starts the turn of playerID. It is driven by TURN_UPDATE or, in
// single player mode, by the orchestrator itself.
func (o *Orchestrator) SetTurn(playerID, turnNumber int, kind Kind) {
	var fx effects
	o.mu.Lock()
	o.setTurnLocked(playerID, turnNumber, kind, &fx)
	o.mu.Unlock()
	fx.run()
}

func (o *Orchestrator) setTurnLocked(playerID, turnNumber int, kind Kind, fx *effects) {
	if o.state == GameEnded {
		o.log.Debug().Int("player", playerID).Int("turn", turnNumber).Msg("turn update after game end ignored")
		return
	}
	if playerID < 1 || turnNumber < o.turnNumber {
		o.log.Warn().Int("player", playerID).Int("turn", turnNumber).Int("current_turn", o.turnNumber).Msg("stale turn update ignored")
		return
	}
	// Each turn starts once; a repeated announcement must not charge the
	// health penalty or refill the budget again.
	if playerID == o.current && turnNumber == o.turnNumber {
		o.log.Debug().Int("player", playerID).Int("turn", turnNumber).Msg("repeated turn update ignored")
		return
	}

	fx.add(o.presenter.CloseInteraction)

	// A week wrap while already in the last week ends the game.
	if turnNumber > o.rules.MaxTurns || (kind == KindWeek && o.turnNumber >= o.rules.MaxTurns) {
		o.endGameLocked(fx)
		return
	}

	if kind == KindWeek {
		o.state = WeekBoundary
		for _, p := range o.players {
			if p.Departed {
				continue
			}
			if bonus := p.ApplyInterest(o.rules.InterestRate); bonus > 0 {
				o.log.Debug().Int("player", p.ID).Int("bonus", bonus).Msg("interest paid")
			}
		}
		o.log.Info().Int("turn", turnNumber).Msg("new week")
	}

	p := o.playerLocked(playerID)
	if !p.Departed {
		p.ApplyHealthPenalty(o.rules.TurnHealthPenalty)
		p.ResetBudget(o.rules.DayHours, o.rules.LowHealthHours, o.rules.LowHealthThreshold)
	}

	o.current = playerID
	o.turnNumber = turnNumber
	o.completionSent = false
	o.state = TurnActive

	local := playerID == o.localID
	o.log.Info().Int("player", playerID).Int("turn", turnNumber).Str("kind", string(kind)).Bool("local", local).Msg("turn started")
	fx.add(func() { o.presenter.TurnStarted(playerID, turnNumber, kind, local) })
}

// endGameLocked settles every deposit exactly once.
func (o *Orchestrator) endGameLocked(fx *effects) {
	o.state = GameEnded
	if o.settled {
		return
	}
	o.settled = true

	for _, p := range o.players {
		if !p.Departed {
			p.Settle()
		}
	}
	o.log.Info().Int("turn", o.turnNumber).Msg("game ended")

	if local, ok := o.players[o.localID]; ok && o.sink != nil {
		id, stats := local.ID, local.Stats
		fx.add(func() {
			if err := o.sink.SendSyncPlayer(id, stats); err != nil {
				o.log.Warn().Err(err).Msg("final stats push failed")
			}
		})
	}
	snaps := o.snapshotsLocked()
	fx.add(func() { o.presenter.GameOver(snaps) })
}

// Tick decays the local player's budget by one step. Running out of time
// closes any interaction and completes the turn.
func (o *Orchestrator) Tick() {
	var fx effects
	o.mu.Lock()
	if o.isLocalTurnLocked() && (o.state == TurnActive || o.state == WaitingForTurnCompletion) {
		p := o.players[o.localID]
		p.Spend(o.rules.DecayStep)
		if !p.HasTime() {
			fx.add(o.presenter.CloseInteraction)
			o.completeLocked(&fx)
		}
	}
	o.mu.Unlock()
	fx.run()
}

// Run calls Tick every DecayInterval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.rules.DecayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// CommitMove starts a walk to dst and charges its cost.
func (o *Orchestrator) CommitMove(dst player.Position) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, err := o.actorLocked()
	if err != nil {
		return 0, err
	}
	cost, ok := player.MoveCost(p.Pos, dst)
	if !ok {
		return 0, ErrTooClose
	}
	spent := p.Spend(cost)
	p.Dest = &dst
	p.Moving = true
	if dst.Y < p.Pos.Y {
		p.Facing = player.FacingBack
	} else {
		p.Facing = player.FacingFront
	}
	o.state = WaitingForTurnCompletion
	return spent, nil
}

// CommitActivity charges hours for something done inside a location.
func (o *Orchestrator) CommitActivity(hours float64) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, err := o.actorLocked()
	if err != nil {
		return 0, err
	}
	spent := p.Spend(hours)
	o.state = WaitingForTurnCompletion
	return spent, nil
}

func (o *Orchestrator) actorLocked() (*player.Player, error) {
	switch {
	case o.state == GameEnded:
		return nil, ErrGameOver
	case !o.isLocalTurnLocked():
		return nil, ErrNotYourTurn
	case o.state != TurnActive:
		return nil, ErrBusy
	}
	p := o.players[o.localID]
	if !p.HasTime() {
		return nil, ErrNoTime
	}
	return p, nil
}

// ActionSettled reports the end of a committed action. The action is over
// only when the player is not moving and has no destination left. With
// time remaining the player may act again; without, the turn completes.
func (o *Orchestrator) ActionSettled(isMoving, hasDestination bool) {
	var fx effects
	o.mu.Lock()
	if o.state == WaitingForTurnCompletion && o.isLocalTurnLocked() && !isMoving && !hasDestination {
		p := o.players[o.localID]
		if p.Dest != nil {
			p.Pos = *p.Dest
			p.Dest = nil
		}
		p.Moving = false
		if p.HasTime() {
			o.state = TurnActive
		} else {
			o.completeLocked(&fx)
		}
	}
	o.mu.Unlock()
	fx.run()
}

// completeLocked ends the local turn at most once per turn.
func (o *Orchestrator) completeLocked(fx *effects) {
	if o.completionSent {
		return
	}
	o.completionSent = true
	if p, ok := o.players[o.current]; ok {
		p.WarpHome()
	}
	o.state = WaitingForTurnStart

	id, turn := o.current, o.turnNumber
	o.log.Info().Int("player", id).Int("turn", turn).Msg("turn complete")
	if o.sink != nil {
		fx.add(func() {
			if err := o.sink.SendTurnComplete(id, turn); err != nil {
				o.log.Warn().Err(err).Msg("turn completion not sent")
			}
		})
	}
	if o.localAdvance {
		next, nextTurn, kind := Advance(id, turn, o.activeCountLocked(), o.rules.MaxTurns)
		fx.add(func() { o.SetTurn(next, nextTurn, kind) })
	}
}

// --- relayed input ---

// OnTurnUpdate applies a TURN_UPDATE from the server.
func (o *Orchestrator) OnTurnUpdate(u network.TurnUpdate) {
	o.SetTurn(u.PlayerID, u.TurnNumber, Kind(u.Kind))
}

// OnPlayerMove mirrors a remote player's position and budget.
func (o *Orchestrator) OnPlayerMove(mv network.Move) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if mv.PlayerID < 1 || mv.PlayerID == o.localID {
		return
	}
	p := o.playerLocked(mv.PlayerID)
	if p.Departed {
		return
	}
	p.Pos = player.Position{X: mv.X, Y: mv.Y}
	p.Facing = mv.Direction
	p.Moving = mv.Moving
	switch {
	case mv.HasDest:
		p.Dest = &player.Position{X: mv.DestX, Y: mv.DestY}
	case !mv.Moving:
		p.Dest = nil
	}
	if mv.HasRemaining {
		p.SetRemaining(mv.Remaining, o.rules.DayHours)
	}
}

// OnPlayerDisconnect freezes a departed player.
func (o *Orchestrator) OnPlayerDisconnect(playerID int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.players[playerID]; ok {
		p.Departed = true
		p.Moving = false
		p.Dest = nil
		o.log.Info().Int("player", playerID).Msg("player left, stats frozen")
	}
}

// OnPlayerHover forwards a remote hover to the scene.
func (o *Orchestrator) OnPlayerHover(h network.Hover) {
	o.mu.Lock()
	local := o.localID
	o.mu.Unlock()
	if h.PlayerID != local {
		o.presenter.RemoteHover(h.PlayerID, h.Index)
	}
}

// OnPlayerStats records stats pushed by another player.
func (o *Orchestrator) OnPlayerStats(s network.Stats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.PlayerID < 1 || s.PlayerID == o.localID {
		return
	}
	p := o.playerLocked(s.PlayerID)
	if p.Departed {
		return
	}
	p.Stats = player.Stats{
		Skill:       s.Skill,
		Education:   s.Education,
		Health:      s.Health,
		Money:       s.Money,
		BankDeposit: s.BankDeposit,
	}
}

// --- queries ---

// WithLocalPlayer runs fn on the local player under the lock. The economy
// uses it to change stats.
func (o *Orchestrator) WithLocalPlayer(fn func(p *player.Player) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == GameEnded {
		return ErrGameOver
	}
	return fn(o.playerLocked(o.localID))
}

// LocalMove describes the local player for a PLAYER_MOVE line.
func (o *Orchestrator) LocalMove() network.Move {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.playerLocked(o.localID)
	mv := network.Move{
		PlayerID:     p.ID,
		X:            p.Pos.X,
		Y:            p.Pos.Y,
		Direction:    p.Facing,
		Moving:       p.Moving,
		Remaining:    p.Remaining,
		HasRemaining: true,
	}
	if p.Dest != nil {
		mv.DestX, mv.DestY, mv.HasDest = p.Dest.X, p.Dest.Y, true
	}
	return mv
}

// IsLocalTurn reports whether the local player holds the turn.
func (o *Orchestrator) IsLocalTurn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isLocalTurnLocked()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	remaining := make(map[int]float64, len(o.players))
	for id, p := range o.players {
		remaining[id] = p.Remaining
	}
	return Snapshot{
		State:           o.state,
		CurrentPlayerID: o.current,
		TurnNumber:      o.turnNumber,
		Remaining:       remaining,
	}
}

// Players returns every known player ordered by id.
func (o *Orchestrator) Players() []player.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotsLocked()
}

func (o *Orchestrator) snapshotsLocked() []player.Snapshot {
	out := make([]player.Snapshot, 0, len(o.players))
	for _, p := range o.players {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (o *Orchestrator) isLocalTurnLocked() bool {
	return o.localID > 0 && o.current == o.localID
}

func (o *Orchestrator) playerLocked(id int) *player.Player {
	p, ok := o.players[id]
	if !ok {
		p = player.New(id, id != o.localID, o.rules.DayHours)
		o.players[id] = p
	}
	return p
}

func (o *Orchestrator) activeCountLocked() int {
	n := 0
	for _, p := range o.players {
		if !p.Departed {
			n++
		}
	}
	return n
}
