// Package turn implements the round-robin turn clock and the per-client
// turn state machine.
package turn

// Kind tells whether a turn update crossed a week boundary.
type Kind string

const (
	KindTurn Kind = "TURN"
	KindWeek Kind = "WEEK"
)

// Advance computes the turn that follows (playerID, turnNumber) in a session
// with connected players. Turn order runs 1..connected; past the last
// player it wraps to 1 and the turn number grows, never beyond maxTurns.
func Advance(playerID, turnNumber, connected, maxTurns int) (nextPlayer, nextTurn int, kind Kind) {
	if connected < 1 {
		connected = 1
	}
	if playerID+1 <= connected {
		return playerID + 1, turnNumber, KindTurn
	}
	return 1, min(turnNumber+1, maxTurns), KindWeek
}
