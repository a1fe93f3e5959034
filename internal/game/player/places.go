package player

import "math"

// Position is a point on the town map.
type Position struct {
	X, Y float64
}

// Distance is the straight line distance between two positions.
func (p Position) Distance(o Position) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Place is a location a player can walk to.
type Place struct {
	Name   string
	Spot   Position
	Facing string
}

// Home is the dormitory doorstep where every turn ends.
var Home = Position{X: 980, Y: 435}

// Places are the spots in front of each building on the map.
var Places = []Place{
	{Name: "gym", Spot: Position{697, 435}, Facing: FacingBack},
	{Name: "laundry", Spot: Position{544, 484}, Facing: FacingBack},
	{Name: "fried chicken", Spot: Position{366, 576}, Facing: FacingBack},
	{Name: "grocery", Spot: Position{527, 791}, Facing: FacingFront},
	{Name: "dormitory", Spot: Home, Facing: FacingFront},
	{Name: "bank", Spot: Position{1508, 585}, Facing: FacingBack},
	{Name: "collectibles", Spot: Position{1193, 569}, Facing: FacingBack},
	{Name: "garden", Spot: Position{874, 567}, Facing: FacingFront},
	{Name: "university", Spot: Position{1026, 899}, Facing: FacingFront},
	{Name: "job center", Spot: Position{720, 899}, Facing: FacingFront},
}

const (
	minMoveDistance = 10.0
	baseMoveCost    = 5.0
	maxMoveCost     = 7.0
)

// MoveCost is the hours a walk costs: 5 plus one per 100 units, capped at 7.
// Walks shorter than 10 units are not moves and report ok=false.
func MoveCost(from, to Position) (hours float64, ok bool) {
	d := from.Distance(to)
	if d < minMoveDistance {
		return 0, false
	}
	return math.Min(baseMoveCost+d/100, maxMoveCost), true
}
