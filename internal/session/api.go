package session

import (
	"encoding/json"
	"net/http"

	"nsulife/internal/game/player"
	"nsulife/internal/network"
)

// LobbyStatus is the JSON body of GET /lobby.
type LobbyStatus struct {
	Started   bool   `json:"started"`
	Connected int    `json:"connected"`
	Capacity  int    `json:"capacity"`
	Slots     []Slot `json:"slots"`
}

// Status reads the lobby without going through the hub.
func (h *GameHandler) Status() LobbyStatus {
	slots := h.registry.Snapshot()
	n := 0
	for _, s := range slots {
		if s.Connected {
			n++
		}
	}
	return LobbyStatus{
		Started:   h.started.Load(),
		Connected: n,
		Capacity:  len(slots),
		Slots:     slots,
	}
}

// LobbyHandler serves Status as JSON.
func (h *GameHandler) LobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(h.Status()); err != nil {
			h.log.Warn().Err(err).Msg("encode lobby status")
		}
	}
}

func statsFromWire(s network.Stats) player.Stats {
	return player.Stats{
		Skill:       s.Skill,
		Education:   s.Education,
		Health:      s.Health,
		Money:       s.Money,
		BankDeposit: s.BankDeposit,
	}
}
