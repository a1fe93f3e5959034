package turn

// State of the local turn machine.
type State int

const (
	WaitingForTurnStart State = iota
	TurnActive
	WaitingForTurnCompletion
	WeekBoundary
	GameEnded
)

func (s State) String() string {
	switch s {
	case WaitingForTurnStart:
		return "waiting_for_turn_start"
	case TurnActive:
		return "turn_active"
	case WaitingForTurnCompletion:
		return "waiting_for_turn_completion"
	case WeekBoundary:
		return "week_boundary"
	case GameEnded:
		return "game_ended"
	}
	return "unknown"
}

// Snapshot is a copy of the turn state for presentation and tests.
type Snapshot struct {
	State           State
	CurrentPlayerID int
	TurnNumber      int
	Remaining       map[int]float64
}
