// Package game defines the state types for the toroidal snake environment.
//
// These types carry no behaviour beyond copying and lookup. The transition
// function lives in package rules; learners live in package strategy. Every
// episode owns its own GameState, so Clone must never alias mutable data.
package game

// Point is a grid coordinate. (0,0) is top-left; y grows downward.
type Point struct {
	X int
	Y int
}

// Action is one of the four moves a snake can take.
type Action int8

const (
	ActionUp Action = iota
	ActionDown
	ActionLeft
	ActionRight
)

// NumActions is the size of the action enumeration.
const NumActions = 4

var actionNames = [NumActions]string{"Up", "Down", "Left", "Right"}

// Valid reports whether a is a recognised action.
func (a Action) Valid() bool {
	return a >= 0 && a < NumActions
}

func (a Action) String() string {
	if !a.Valid() {
		return "Unknown"
	}
	return actionNames[a]
}

// Opposite returns the reverse move. Unrecognised actions map to themselves.
func (a Action) Opposite() Action {
	switch a {
	case ActionUp:
		return ActionDown
	case ActionDown:
		return ActionUp
	case ActionLeft:
		return ActionRight
	case ActionRight:
		return ActionLeft
	}
	return a
}

// ItemType identifies what happens when a snake eats an item.
type ItemType int8

const (
	Apple ItemType = iota
	Box
	InvincibilityBall
	SickBall
)

func (t ItemType) String() string {
	switch t {
	case Apple:
		return "apple"
	case Box:
		return "box"
	case InvincibilityBall:
		return "invincibility"
	case SickBall:
		return "sick"
	}
	return "unknown"
}

type Item struct {
	Type ItemType
	Pos  Point
}

// Snake is one agent's body plus its per-tick bookkeeping.
// Body[0] is the head. Timers are inactive at zero.
type Snake struct {
	ID              int
	Body            []Point
	LastAction      Action
	InvincibleTimer int
	SickTimer       int
	Dead            bool

	// OldTail is the tail recorded before the last body shift; growth appends it.
	OldTail    Point
	HasOldTail bool
}

func (s *Snake) Head() Point {
	return s.Body[0]
}

// GameState is the complete state of one episode.
//
// Walls is row-major (index y*Width+x) and is never written after
// construction, so clones share it. Everything else is deep-copied.
type GameState struct {
	Width    int
	Height   int
	Walls    []bool
	Items    []Item
	Snakes   []Snake
	Turn     int
	MaxTurns int
	Scores   []float64
}

// Wall reports whether (x, y) is a wall. Coordinates are wrapped first.
func (s *GameState) Wall(p Point) bool {
	if len(s.Walls) == 0 {
		return false
	}
	p = s.Wrap(p)
	return s.Walls[p.Y*s.Width+p.X]
}

// Wrap maps any point onto the torus.
func (s *GameState) Wrap(p Point) Point {
	return Point{X: mod(p.X, s.Width), Y: mod(p.Y, s.Height)}
}

// ItemAt returns the index of the item at p, or -1.
func (s *GameState) ItemAt(p Point) int {
	for i := range s.Items {
		if s.Items[i].Pos == p {
			return i
		}
	}
	return -1
}

// Alive counts snakes that are not dead.
func (s *GameState) Alive() int {
	n := 0
	for i := range s.Snakes {
		if !s.Snakes[i].Dead {
			n++
		}
	}
	return n
}

// Terminal reports whether the episode is over: turn limit reached or no
// snake left alive.
func (s *GameState) Terminal() bool {
	return s.Turn >= s.MaxTurns || s.Alive() == 0
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:    s.Width,
		Height:   s.Height,
		Walls:    s.Walls,
		Turn:     s.Turn,
		MaxTurns: s.MaxTurns,
	}

	if len(s.Items) > 0 {
		out.Items = make([]Item, len(s.Items))
		copy(out.Items, s.Items)
	}
	if len(s.Scores) > 0 {
		out.Scores = make([]float64, len(s.Scores))
		copy(out.Scores, s.Scores)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = s.Snakes[i]
			out.Snakes[i].Body = nil
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}

func mod(v, n int) int {
	if n <= 0 {
		return v
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
