package turn

import (
	"nsulife/internal/game/player"

	"github.com/stretchr/testify/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendTurnComplete(playerID, turnNumber int) error {
	args := m.Called(playerID, turnNumber)
	return args.Error(0)
}

func (m *mockSink) SendSyncPlayer(playerID int, stats player.Stats) error {
	args := m.Called(playerID, stats)
	return args.Error(0)
}

type mockPresenter struct {
	mock.Mock
}

func (m *mockPresenter) CloseInteraction() {
	m.Called()
}

func (m *mockPresenter) TurnStarted(playerID, turnNumber int, kind Kind, local bool) {
	m.Called(playerID, turnNumber, kind, local)
}

func (m *mockPresenter) RemoteHover(playerID, index int) {
	m.Called(playerID, index)
}

func (m *mockPresenter) GameOver(players []player.Snapshot) {
	m.Called(players)
}

// quietPresenter accepts every scene call.
func quietPresenter() *mockPresenter {
	p := new(mockPresenter)
	p.On("CloseInteraction").Maybe()
	p.On("TurnStarted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	p.On("RemoteHover", mock.Anything, mock.Anything).Maybe()
	p.On("GameOver", mock.Anything).Maybe()
	return p
}
