package turn

import (
	"errors"
	"testing"

	"nsulife/internal/config"
	"nsulife/internal/game/player"
	"nsulife/internal/network"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var gym = player.Position{X: 697, Y: 435}

func testRules() config.Rules {
	r := config.DefaultRules()
	r.DayHours = 3
	r.LowHealthHours = 2
	r.DecayStep = 1
	return r
}

func newLocal(t *testing.T, rules config.Rules, localID int, opts ...Option) (*Orchestrator, *mockSink, *mockPresenter) {
	t.Helper()
	sink := new(mockSink)
	pres := quietPresenter()
	o := New(rules, sink, pres, zerolog.Nop(), opts...)
	o.SetLocalPlayer(localID)
	o.EnsurePlayers(2)
	return o, sink, pres
}

func TestSetTurnStartsLocalTurn(t *testing.T) {
	sink := new(mockSink)
	pres := new(mockPresenter)
	pres.On("CloseInteraction").Once()
	pres.On("TurnStarted", 1, 1, KindTurn, true).Once()

	o := New(config.DefaultRules(), sink, pres, zerolog.Nop())
	o.SetLocalPlayer(1)
	o.SetTurn(1, 1, KindTurn)

	assert.Equal(t, TurnActive, o.State())
	assert.True(t, o.IsLocalTurn())
	snap := o.Snapshot()
	assert.Equal(t, 1, snap.CurrentPlayerID)
	assert.Equal(t, 1, snap.TurnNumber)
	assert.Equal(t, 24.0, snap.Remaining[1])
	assert.Equal(t, 95, o.Players()[0].Stats.Health)
	pres.AssertExpectations(t)
}

func TestRemoteTurnDoesNotAcceptLocalActions(t *testing.T) {
	o, _, pres := newLocal(t, testRules(), 1)
	o.SetTurn(2, 1, KindTurn)

	pres.AssertCalled(t, "TurnStarted", 2, 1, KindTurn, false)
	_, err := o.CommitMove(gym)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = o.CommitActivity(1)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// Remote turns never decay locally.
	o.Tick()
	assert.Equal(t, 3.0, o.Snapshot().Remaining[2])
}

func TestTickExhaustionCompletesOnce(t *testing.T) {
	o, sink, pres := newLocal(t, testRules(), 1)
	sink.On("SendTurnComplete", 1, 1).Return(nil).Once()

	o.SetTurn(1, 1, KindTurn)
	o.Tick()
	o.Tick()
	sink.AssertNotCalled(t, "SendTurnComplete", mock.Anything, mock.Anything)

	o.Tick()
	o.Tick()

	sink.AssertNumberOfCalls(t, "SendTurnComplete", 1)
	assert.Equal(t, WaitingForTurnStart, o.State())
	assert.Equal(t, 0.0, o.Snapshot().Remaining[1])
	pres.AssertCalled(t, "CloseInteraction")
}

func TestCompletionWarpsHome(t *testing.T) {
	o, sink, _ := newLocal(t, testRules(), 1)
	sink.On("SendTurnComplete", 1, 1).Return(nil).Once()

	o.SetTurn(1, 1, KindTurn)
	spent, err := o.CommitMove(gym)
	require.NoError(t, err)
	assert.Equal(t, 3.0, spent)

	mv := o.LocalMove()
	assert.True(t, mv.Moving)
	assert.True(t, mv.HasDest)

	o.ActionSettled(false, false)

	sink.AssertExpectations(t)
	mv = o.LocalMove()
	assert.Equal(t, player.Home.X, mv.X)
	assert.Equal(t, player.Home.Y, mv.Y)
	assert.False(t, mv.Moving)
	assert.False(t, mv.HasDest)
}

func TestActionSettledWaitsForArrival(t *testing.T) {
	rules := testRules()
	rules.DayHours = 24
	o, sink, _ := newLocal(t, rules, 1)

	o.SetTurn(1, 1, KindTurn)
	spent, err := o.CommitMove(gym)
	require.NoError(t, err)
	assert.Equal(t, 7.0, spent)

	_, err = o.CommitActivity(1)
	assert.ErrorIs(t, err, ErrBusy)

	o.ActionSettled(true, true)
	assert.Equal(t, WaitingForTurnCompletion, o.State())
	o.ActionSettled(false, true)
	assert.Equal(t, WaitingForTurnCompletion, o.State())

	o.ActionSettled(false, false)
	assert.Equal(t, TurnActive, o.State())
	mv := o.LocalMove()
	assert.Equal(t, gym.X, mv.X)
	assert.Equal(t, 17.0, mv.Remaining)
	sink.AssertNotCalled(t, "SendTurnComplete", mock.Anything, mock.Anything)
}

func TestCommitMoveTooClose(t *testing.T) {
	o, _, _ := newLocal(t, testRules(), 1)
	o.SetTurn(1, 1, KindTurn)

	_, err := o.CommitMove(player.Position{X: player.Home.X + 5, Y: player.Home.Y})
	assert.ErrorIs(t, err, ErrTooClose)
	assert.Equal(t, TurnActive, o.State())
}

func TestTickDuringActionThenSettleSendsOnce(t *testing.T) {
	o, sink, _ := newLocal(t, testRules(), 1)
	sink.On("SendTurnComplete", 1, 1).Return(nil).Once()

	o.SetTurn(1, 1, KindTurn)
	_, err := o.CommitActivity(2)
	require.NoError(t, err)
	o.Tick()
	o.ActionSettled(false, false)
	o.Tick()

	sink.AssertNumberOfCalls(t, "SendTurnComplete", 1)
}

func TestSinkErrorIsNotFatal(t *testing.T) {
	o, sink, _ := newLocal(t, testRules(), 1)
	sink.On("SendTurnComplete", 1, 1).Return(errors.New("not connected"))

	o.SetTurn(1, 1, KindTurn)
	_, err := o.CommitActivity(5)
	require.NoError(t, err)
	o.ActionSettled(false, false)

	assert.Equal(t, WaitingForTurnStart, o.State())
}

func TestWeekPaysInterestToActivePlayers(t *testing.T) {
	o, _, pres := newLocal(t, testRules(), 1)
	o.EnsurePlayers(3)
	require.NoError(t, o.WithLocalPlayer(func(p *player.Player) error { return p.Deposit(200) }))
	o.OnPlayerStats(network.Stats{PlayerID: 2, Health: 100, Money: 0, BankDeposit: 100})
	o.OnPlayerStats(network.Stats{PlayerID: 3, Health: 100, Money: 0, BankDeposit: 100})
	o.OnPlayerDisconnect(3)

	o.SetTurn(1, 2, KindWeek)

	pres.AssertCalled(t, "TurnStarted", 1, 2, KindWeek, true)
	byID := map[int]player.Snapshot{}
	for _, s := range o.Players() {
		byID[s.ID] = s
	}
	assert.Equal(t, 210, byID[1].Stats.BankDeposit)
	assert.Equal(t, 105, byID[2].Stats.BankDeposit)
	assert.Equal(t, 100, byID[3].Stats.BankDeposit)
	assert.True(t, byID[3].Departed)
}

func TestLowHealthGetsReducedBudget(t *testing.T) {
	o, _, _ := newLocal(t, config.DefaultRules(), 1)
	require.NoError(t, o.WithLocalPlayer(func(p *player.Player) error {
		p.Stats.Health = 32
		return nil
	}))

	o.SetTurn(1, 1, KindTurn)

	assert.Equal(t, 16.0, o.Snapshot().Remaining[1])
	assert.Equal(t, 27, o.Players()[0].Stats.Health)
}

func TestStaleTurnUpdateIgnored(t *testing.T) {
	o, _, _ := newLocal(t, testRules(), 1)
	o.SetTurn(2, 3, KindTurn)
	o.SetTurn(1, 2, KindTurn)

	snap := o.Snapshot()
	assert.Equal(t, 2, snap.CurrentPlayerID)
	assert.Equal(t, 3, snap.TurnNumber)
}

func TestRepeatedTurnUpdateStartsTurnOnce(t *testing.T) {
	o, sink, pres := newLocal(t, testRules(), 1)
	sink.On("SendTurnComplete", 1, 1).Return(nil).Once()

	o.SetTurn(1, 1, KindTurn)
	o.Tick()
	o.SetTurn(1, 1, KindTurn)

	assert.Equal(t, 95, o.Players()[0].Stats.Health, "penalty charged once")
	assert.Equal(t, 2.0, o.Snapshot().Remaining[1], "budget not refilled")
	pres.AssertNumberOfCalls(t, "TurnStarted", 1)

	// Completion is still reported once, even if the same turn is announced
	// again afterwards.
	o.Tick()
	o.Tick()
	o.SetTurn(1, 1, KindTurn)
	o.Tick()
	o.Tick()
	sink.AssertNumberOfCalls(t, "SendTurnComplete", 1)
	assert.Equal(t, WaitingForTurnStart, o.State())
}

func TestResetStartsOverFromFirstTurn(t *testing.T) {
	rules := testRules()
	rules.MaxTurns = 1
	o, sink, _ := newLocal(t, rules, 1)
	sink.On("SendSyncPlayer", 1, mock.Anything).Return(nil).Once()

	o.SetTurn(1, 2, KindWeek)
	require.Equal(t, GameEnded, o.State())

	o.Reset()
	assert.Equal(t, WaitingForTurnStart, o.State())
	assert.Empty(t, o.Players())

	o.SetLocalPlayer(2)
	o.EnsurePlayers(2)
	o.SetTurn(1, 1, KindTurn)
	snap := o.Snapshot()
	assert.Equal(t, TurnActive, o.State())
	assert.Equal(t, 1, snap.TurnNumber)
	assert.False(t, o.IsLocalTurn())
}

func TestGameEndsAndSettlesOnce(t *testing.T) {
	rules := testRules()
	rules.MaxTurns = 2
	sink := new(mockSink)
	pres := quietPresenter()
	o := New(rules, sink, pres, zerolog.Nop())
	o.SetLocalPlayer(1)
	o.EnsurePlayers(2)
	require.NoError(t, o.WithLocalPlayer(func(p *player.Player) error { return p.Deposit(100) }))

	o.SetTurn(1, 1, KindTurn)
	o.SetTurn(1, 2, KindWeek)
	assert.Equal(t, TurnActive, o.State())

	// Deposit 105 after interest, 500-100 in hand.
	sink.On("SendSyncPlayer", 1, mock.MatchedBy(func(s player.Stats) bool {
		return s.BankDeposit == 0 && s.Money == 505
	})).Return(nil).Once()

	o.SetTurn(1, 2, KindWeek)
	o.SetTurn(1, 2, KindWeek)
	o.SetTurn(2, 3, KindTurn)

	assert.Equal(t, GameEnded, o.State())
	sink.AssertExpectations(t)
	pres.AssertNumberOfCalls(t, "GameOver", 1)

	err := o.WithLocalPlayer(func(p *player.Player) error { return nil })
	assert.ErrorIs(t, err, ErrGameOver)
	_, err = o.CommitActivity(1)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestTurnBeyondMaxEndsGame(t *testing.T) {
	rules := testRules()
	rules.MaxTurns = 2
	o, sink, pres := newLocal(t, rules, 2)
	sink.On("SendSyncPlayer", 2, mock.Anything).Return(nil).Once()

	o.SetTurn(1, 3, KindWeek)

	assert.Equal(t, GameEnded, o.State())
	pres.AssertNumberOfCalls(t, "GameOver", 1)
	sink.AssertExpectations(t)
}

func TestRemoteMoveMirrorsPlayer(t *testing.T) {
	o, _, _ := newLocal(t, testRules(), 1)

	o.OnPlayerMove(network.Move{PlayerID: 2, X: 10, Y: 20, Direction: player.FacingBack, Moving: true,
		Remaining: 99, HasRemaining: true, DestX: 300, DestY: 400, HasDest: true})
	// Our own echo is ignored.
	o.OnPlayerMove(network.Move{PlayerID: 1, X: 1, Y: 1})

	snap := o.Snapshot()
	assert.Equal(t, 3.0, snap.Remaining[2], "relayed budget is clamped to the day")
	assert.Equal(t, 3.0, snap.Remaining[1])
	assert.Equal(t, player.Home.X, o.LocalMove().X)

	o.OnPlayerDisconnect(2)
	o.OnPlayerMove(network.Move{PlayerID: 2, X: 50, Y: 50, HasRemaining: true, Remaining: 1})
	o.OnPlayerStats(network.Stats{PlayerID: 2, Money: 9999})

	for _, s := range o.Players() {
		if s.ID == 2 {
			assert.True(t, s.Departed)
			assert.Equal(t, 500, s.Stats.Money)
			assert.Equal(t, 3.0, s.Remaining)
		}
	}
}

func TestHoverForwardedForRemotesOnly(t *testing.T) {
	sink := new(mockSink)
	pres := new(mockPresenter)
	pres.On("RemoteHover", 2, 4).Once()
	o := New(testRules(), sink, pres, zerolog.Nop())
	o.SetLocalPlayer(1)

	o.OnPlayerHover(network.Hover{PlayerID: 1, Index: 3})
	o.OnPlayerHover(network.Hover{PlayerID: 2, Index: 4})

	pres.AssertExpectations(t)
}

func TestTurnUpdateFromWire(t *testing.T) {
	o, _, pres := newLocal(t, testRules(), 2)
	o.OnTurnUpdate(network.TurnUpdate{PlayerID: 2, TurnNumber: 4, Kind: network.KindWeek})

	pres.AssertCalled(t, "TurnStarted", 2, 4, KindWeek, true)
	assert.Equal(t, 4, o.Snapshot().TurnNumber)
}

func TestLocalAdvanceSinglePlayer(t *testing.T) {
	sink := new(mockSink)
	sink.On("SendTurnComplete", mock.Anything, mock.Anything).Return(nil)
	pres := quietPresenter()
	o := New(testRules(), sink, pres, zerolog.Nop(), WithLocalAdvance())
	o.SetLocalPlayer(1)

	o.SetTurn(1, 1, KindTurn)
	_, err := o.CommitActivity(3)
	require.NoError(t, err)
	o.ActionSettled(false, false)

	assert.Equal(t, TurnActive, o.State())
	snap := o.Snapshot()
	assert.Equal(t, 1, snap.CurrentPlayerID)
	assert.Equal(t, 2, snap.TurnNumber)
	pres.AssertCalled(t, "TurnStarted", 1, 2, KindWeek, true)
}
