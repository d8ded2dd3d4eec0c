package engine

import "fmt"

// Position is a cell coordinate on the field. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Offset returns p shifted by dx, dy.
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Side identifies which end of the field a team defends.
type Side int

const (
	// SideHome lines up near the last row and scores on row 0.
	SideHome Side = iota
	// SideAway lines up near row 0 and scores on the last row.
	SideAway
)

func (s Side) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side name.
func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "home":
		*s = SideHome
	case "away":
		*s = SideAway
	default:
		return fmt.Errorf("unknown side %q", string(b))
	}
	return nil
}

// Occupant is anything that can stand on a grid cell. The set is closed:
// either an *Agent or an Obstacle.
type Occupant interface {
	occupant()
}

// Obstacle is a non-agent occupant. It blocks the cell but projects no zone
// of control and cannot be blocked.
type Obstacle struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (*Obstacle) occupant() {}

// AsAgent returns the agent behind an occupant, if it is one.
func AsAgent(o Occupant) (*Agent, bool) {
	a, ok := o.(*Agent)
	return a, ok && a != nil
}

// Reason explains why an action did not happen. The empty reason means the
// action went through.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonPlayOver             Reason = "play_over"
	ReasonKnockedDown          Reason = "knocked_down"
	ReasonUnavailable          Reason = "unavailable"
	ReasonOutOfBounds          Reason = "out_of_bounds"
	ReasonOccupied             Reason = "occupied"
	ReasonSamePosition         Reason = "same_position"
	ReasonInsufficientMovement Reason = "insufficient_movement"
	ReasonDodgeFailed          Reason = "dodge_failed"
	ReasonNotAdjacent          Reason = "not_adjacent"
	ReasonFriendlyTarget       Reason = "friendly_target"
	ReasonTargetDown           Reason = "target_down"
	ReasonNoBall               Reason = "no_ball"
	ReasonNotAtBall            Reason = "not_at_ball"
	ReasonPickupFailed         Reason = "pickup_failed"
	ReasonNotStanding          Reason = "not_standing"
)
