package player

import (
	"errors"
	"fmt"
	"math"
)

// Direction the sprite faces; carried verbatim in PLAYER_MOVE.
const (
	FacingFront = "FRONT"
	FacingBack  = "BACK"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Stats are the economy values of a player. The session layer only carries
// them around; the in-scene economy mutates them.
type Stats struct {
	Skill       int `json:"skill"`
	Education   int `json:"education"`
	Health      int `json:"health"`
	Money       int `json:"money"`
	BankDeposit int `json:"bankDeposit"`
}

// StartingStats is what every player begins the game with.
func StartingStats() Stats {
	return Stats{Health: 100, Money: 500}
}

// Player is the local model of one participant, local or remote.
type Player struct {
	ID        int
	Stats     Stats
	Pos       Position
	Dest      *Position
	Facing    string
	Moving    bool
	Remaining float64

	// Remote players are driven by relayed PLAYER_MOVE lines.
	Remote bool
	// Departed players left the session; their stats are frozen.
	Departed bool
}

// New creates a player standing at Home with a full day ahead.
func New(id int, remote bool, dayHours float64) *Player {
	return &Player{
		ID:        id,
		Stats:     StartingStats(),
		Pos:       Home,
		Facing:    FacingFront,
		Remaining: dayHours,
		Remote:    remote,
	}
}

// Spend takes hours from the turn budget, never going below zero, and
// returns what was actually taken.
func (p *Player) Spend(hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	old := p.Remaining
	p.Remaining = math.Max(0, p.Remaining-hours)
	return old - p.Remaining
}

// SetRemaining clamps a relayed budget to [0, max].
func (p *Player) SetRemaining(hours, max float64) {
	p.Remaining = math.Min(math.Max(0, hours), max)
}

// HasTime reports whether any budget is left.
func (p *Player) HasTime() bool {
	return p.Remaining > 0
}

// ResetBudget gives the player a new day. Players below the health
// threshold get the reduced budget.
func (p *Player) ResetBudget(dayHours, lowHealthHours float64, lowHealthThreshold int) {
	if p.Stats.Health < lowHealthThreshold {
		p.Remaining = lowHealthHours
		return
	}
	p.Remaining = dayHours
}

// ApplyHealthPenalty lowers health, stopping at zero.
func (p *Player) ApplyHealthPenalty(amount int) {
	p.Stats.Health = max(0, p.Stats.Health-amount)
}

// WarpHome puts the player at Home with no pending path.
func (p *Player) WarpHome() {
	p.Pos = Home
	p.Dest = nil
	p.Moving = false
	p.Facing = FacingFront
}

// Snapshot is a copy of the player suitable for presentation.
type Snapshot struct {
	ID        int     `json:"id"`
	Stats     Stats   `json:"stats"`
	Remaining float64 `json:"remaining"`
	Departed  bool    `json:"departed"`
}

func (p *Player) Snapshot() Snapshot {
	return Snapshot{ID: p.ID, Stats: p.Stats, Remaining: p.Remaining, Departed: p.Departed}
}

func (p *Player) String() string {
	return fmt.Sprintf("Player_%d", p.ID)
}
