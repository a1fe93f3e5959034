package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"nsulife/internal/client"
	"nsulife/internal/config"
	"nsulife/internal/game/player"
	"nsulife/internal/game/turn"

	"github.com/rs/zerolog"
)

// bot is the scene stand-in: it observes the lobby, presents turns by
// logging them and plays the local player's turns.
type bot struct {
	cfg     *config.Client
	sess    *client.Session
	orch    *turn.Orchestrator
	resolve func() (string, int, error)
	stop    context.CancelFunc
	log     zerolog.Logger

	myTurn chan struct{}
}

func newBot(cfg *config.Client, sess *client.Session, stop context.CancelFunc, log zerolog.Logger) *bot {
	return &bot{
		cfg:    cfg,
		sess:   sess,
		stop:   stop,
		log:    log,
		myTurn: make(chan struct{}, 1),
	}
}

func (b *bot) connect(ctx context.Context) error {
	host, port, err := b.resolve()
	if err != nil {
		return err
	}
	return b.sess.Connect(ctx, host, port)
}

// --- client.Observer ---

func (b *bot) OnLobbyUpdate(connected int) {
	b.log.Info().Int("connected", connected).Msg("lobby")
	b.orch.EnsurePlayers(connected)
}

// OnStartGame starts the first turn locally; the server only announces
// later ones.
func (b *bot) OnStartGame() {
	id := b.sess.PlayerID()
	b.log.Info().Int("player", id).Msg("game starting")
	b.orch.SetLocalPlayer(id)
	b.orch.SetTurn(1, 1, turn.KindTurn)
}

func (b *bot) OnJoinRejected() {
	b.log.Warn().Msg("game already running, giving up")
	b.stop()
}

// OnGameReset rejoins the reopened lobby with a fresh connection.
func (b *bot) OnGameReset() {
	b.log.Info().Msg("game reset, rejoining")
	b.orch.Reset()
	go func() {
		b.sess.Disconnect()
		if err := b.connect(context.Background()); err != nil {
			b.log.Error().Err(err).Msg("rejoin failed")
			b.stop()
		}
	}()
}

func (b *bot) OnConnectionLost(err error) {
	b.log.Error().Err(err).Msg("lost the server")
	b.stop()
}

// --- turn.Presenter ---

func (b *bot) CloseInteraction() {}

func (b *bot) TurnStarted(playerID, turnNumber int, kind turn.Kind, local bool) {
	b.log.Info().Int("player", playerID).Int("turn", turnNumber).Str("kind", string(kind)).Bool("mine", local).Msg("turn")
	if local {
		select {
		case b.myTurn <- struct{}{}:
		default:
		}
	}
}

func (b *bot) RemoteHover(playerID, index int) {
	if index >= 0 && index < len(player.Places) {
		b.log.Debug().Int("player", playerID).Str("place", player.Places[index].Name).Msg("hover")
	}
}

func (b *bot) GameOver(players []player.Snapshot) {
	for _, p := range players {
		b.log.Info().
			Int("player", p.ID).
			Int("money", p.Stats.Money).
			Int("skill", p.Stats.Skill).
			Int("education", p.Stats.Education).
			Int("health", p.Stats.Health).
			Bool("departed", p.Departed).
			Msg("final standing")
	}
	b.stop()
}

// --- playing ---

func (b *bot) play(ctx context.Context) {
	for {
		select {
		case <-b.myTurn:
			b.takeTurn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// takeTurn acts until the orchestrator takes the turn away.
func (b *bot) takeTurn(ctx context.Context) {
	for b.orch.IsLocalTurn() && b.orch.State() == turn.TurnActive {
		if !b.sleep(ctx, b.cfg.ThinkTime) {
			return
		}
		place := player.Places[rand.IntN(len(player.Places))]
		if b.sess != nil {
			b.sess.SendPlayerHover(indexOf(place))
		}

		spent, err := b.orch.CommitMove(place.Spot)
		switch {
		case errors.Is(err, turn.ErrTooClose):
			spent, err = b.orch.CommitActivity(float64(1 + rand.IntN(4)))
			if err == nil {
				b.doActivity(place)
			}
		case err == nil:
			b.publishMove()
			b.sleep(ctx, b.cfg.ThinkTime/2)
		}
		if err != nil {
			b.log.Debug().Err(err).Msg("action refused")
			return
		}
		b.log.Debug().Str("place", place.Name).Float64("hours", spent).Msg("acted")

		b.orch.ActionSettled(false, false)
		b.publishMove()
	}
}

// doActivity changes stats the way the place would and shares them.
func (b *bot) doActivity(place player.Place) {
	err := b.orch.WithLocalPlayer(func(p *player.Player) error {
		switch place.Name {
		case "bank":
			if p.Stats.Money > 100 {
				return p.Deposit(p.Stats.Money / 2)
			}
		case "university":
			p.Stats.Education++
		case "gym":
			p.Stats.Health = min(100, p.Stats.Health+5)
		case "job center":
			p.Stats.Money += 50
			p.Stats.Skill++
		}
		return nil
	})
	if err != nil {
		b.log.Debug().Err(err).Str("place", place.Name).Msg("activity failed")
		return
	}
	if b.sess != nil {
		for _, s := range b.orch.Players() {
			if s.ID == b.sess.PlayerID() {
				b.sess.SendPlayerStats(s.Stats)
			}
		}
	}
}

func (b *bot) publishMove() {
	if b.sess == nil {
		return
	}
	if _, err := b.sess.SendPlayerMove(b.orch.LocalMove()); err != nil {
		b.log.Debug().Err(err).Msg("move not sent")
	}
}

func (b *bot) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func indexOf(place player.Place) int {
	for i, p := range player.Places {
		if p.Name == place.Name {
			return i
		}
	}
	return -1
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
