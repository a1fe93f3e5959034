package client

import (
	"nsulife/internal/network"
)

// receive reads lines until the connection fails. It never restarts.
func (s *Session) receive(conn network.LineConn) {
	legacyLobby := false
	for {
		line, err := conn.ReadLine()
		if err != nil {
			s.lost(conn, err)
			return
		}
		msg, err := network.Parse(line)
		if err != nil {
			continue
		}

		// Older servers send LOBBY_UPDATE and PLAYER_COUNT:<n> as two lines.
		if msg.Type == network.TypeLobbyUpdate && len(msg.Fields) == 0 {
			legacyLobby = true
			continue
		}
		if msg.Type == network.TypePlayerCount && !legacyLobby {
			s.log.Debug().Msg("player count without lobby header")
		}
		legacyLobby = false

		s.dispatch(msg)
	}
}

// lost marks the session disconnected unless it has been replaced already.
func (s *Session) lost(conn network.LineConn, err error) {
	s.mu.Lock()
	current := s.conn == conn
	if current {
		s.conn = nil
		s.connected.Store(false)
	}
	s.mu.Unlock()
	conn.Close()

	if !current {
		return
	}
	s.log.Warn().Err(err).Msg("connection lost")
	s.observer.OnConnectionLost(err)
}

func (s *Session) dispatch(msg network.Message) {
	switch msg.Type {
	case network.TypeLobbyUpdate, network.TypePlayerCount:
		n, err := network.ParseLobbyCount(msg)
		if err != nil {
			s.drop(msg, err)
			return
		}
		s.observer.OnLobbyUpdate(n)

	case network.TypeStartGame:
		s.observer.OnStartGame()

	case network.TypeGameStarted:
		s.log.Info().Msg("join rejected, game already running")
		s.observer.OnJoinRejected()

	case network.TypeGameReset:
		s.playerID.Store(0)
		s.observer.OnGameReset()

	case network.TypePlayerID:
		id, err := msg.Int(0)
		if err != nil || id < 1 {
			s.drop(msg, err)
			return
		}
		s.playerID.Store(int64(id))
		s.log.Info().Int("player", id).Msg("player id assigned")

	default:
		s.dispatchTurn(msg)
	}
}

func (s *Session) dispatchTurn(msg network.Message) {
	s.turnMu.RLock()
	th := s.turns
	s.turnMu.RUnlock()
	if th == nil {
		return
	}

	switch msg.Type {
	case network.TypePlayerMove:
		mv, err := network.ParseMove(msg)
		if err != nil {
			s.drop(msg, err)
			return
		}
		th.OnPlayerMove(mv)

	case network.TypePlayerDisconnect:
		id, err := msg.Int(0)
		if err != nil {
			s.drop(msg, err)
			return
		}
		th.OnPlayerDisconnect(id)

	case network.TypeTurnUpdate:
		u, err := network.ParseTurnUpdate(msg)
		if err != nil {
			s.drop(msg, err)
			return
		}
		th.OnTurnUpdate(u)

	case network.TypePlayerHover:
		h, err := network.ParseHover(msg)
		if err != nil {
			s.drop(msg, err)
			return
		}
		th.OnPlayerHover(h)

	case network.TypeUpdateStats, network.TypeSyncPlayer:
		st, err := network.ParseStats(msg)
		if err != nil {
			s.drop(msg, err)
			return
		}
		th.OnPlayerStats(st)
	}
}

func (s *Session) drop(msg network.Message, err error) {
	s.log.Debug().Err(err).Str("type", msg.Type).Msg("ignoring line")
}
