// Package rules implements the transition function for the toroidal snake game.
//
// Step advances every live snake simultaneously and mutates the state in
// place. SimulateStep is the pure variant used by learners to look ahead
// without touching the live state.
package rules

import (
	"math/rand"

	"github.com/brensch/snekq/game"
)

// Effect is what eating one item type does to a snake.
type Effect struct {
	Reward     float64
	Grow       bool
	Invincible bool
	Sick       bool
}

// Settings are the environment knobs for one episode.
type Settings struct {
	Effects         map[game.ItemType]Effect
	InvincibleTurns int
	SickTurns       int
	RespawnApples   bool
}

// DefaultSettings mirrors the classic ruleset: apples grow and score, boxes
// score, balls grant timers, eaten apples reappear elsewhere.
var DefaultSettings = Settings{
	Effects: map[game.ItemType]Effect{
		game.Apple:             {Reward: 1, Grow: true},
		game.Box:               {Reward: 2},
		game.InvincibilityBall: {Reward: 1, Invincible: true},
		game.SickBall:          {Sick: true},
	},
	InvincibleTurns: 20,
	SickTurns:       20,
	RespawnApples:   true,
}

// MoveHead returns the head position after action, wrapped onto the torus.
// Unrecognised actions leave the head unchanged.
func MoveHead(head game.Point, action game.Action, width, height int) game.Point {
	switch action {
	case game.ActionUp:
		if head.Y > 0 {
			head.Y--
		} else {
			head.Y = height - 1
		}
	case game.ActionDown:
		head.Y = (head.Y + 1) % height
	case game.ActionLeft:
		if head.X > 0 {
			head.X--
		} else {
			head.X = width - 1
		}
	case game.ActionRight:
		head.X = (head.X + 1) % width
	}
	return head
}

// SimulateStep returns the body that results from moving body one tick.
// The input is not modified. With grow set, the pre-move tail is appended.
func SimulateStep(body []game.Point, action game.Action, width, height int, grow bool) []game.Point {
	if len(body) == 0 {
		return nil
	}
	n := len(body)
	if grow {
		n++
	}
	out := make([]game.Point, n)
	copy(out[1:], body[:len(body)-1])
	if grow {
		out[n-1] = body[len(body)-1]
	}
	out[0] = MoveHead(body[0], action, width, height)
	return out
}

// SelfCollides reports whether the head of body overlaps any other segment.
func SelfCollides(body []game.Point) bool {
	if len(body) < 2 {
		return false
	}
	head := body[0]
	for _, p := range body[1:] {
		if p == head {
			return true
		}
	}
	return false
}

// IsLegalMove is the environment's legality check used by learners and UIs.
// A live snake of length > 1 may not reverse onto its own neck.
func IsLegalMove(state *game.GameState, agent int, action game.Action) bool {
	if state == nil || agent < 0 || agent >= len(state.Snakes) || !action.Valid() {
		return false
	}
	s := &state.Snakes[agent]
	if s.Dead || len(s.Body) == 0 {
		return false
	}
	if len(s.Body) > 1 && action == s.LastAction.Opposite() {
		return false
	}
	return true
}

// LegalMoves returns every action IsLegalMove accepts, in enumeration order.
func LegalMoves(state *game.GameState, agent int) []game.Action {
	moves := make([]game.Action, 0, game.NumActions)
	for a := game.Action(0); a < game.NumActions; a++ {
		if IsLegalMove(state, agent, a) {
			moves = append(moves, a)
		}
	}
	return moves
}

// WrapDistance is the Manhattan distance on the torus.
func WrapDistance(a, b game.Point, width, height int) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if width-dx < dx {
		dx = width - dx
	}
	if height-dy < dy {
		dy = height - dy
	}
	return dx + dy
}

// IsAdjacent reports whether a and b are one step apart on the torus.
func IsAdjacent(a, b game.Point, width, height int) bool {
	return WrapDistance(a, b, width, height) == 1
}

// Step advances state by one tick with one action per snake and returns the
// reward each snake earned. Missing actions count as unrecognised. The state
// is mutated in place.
func Step(state *game.GameState, actions []game.Action, rng *rand.Rand, settings Settings) []float64 {
	rewards := make([]float64, len(state.Snakes))
	if len(state.Scores) < len(state.Snakes) {
		scores := make([]float64, len(state.Snakes))
		copy(scores, state.Scores)
		state.Scores = scores
	}

	// 1-3. Record tail, shift tail-first, move head.
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Dead || len(s.Body) == 0 {
			continue
		}
		action := game.Action(-1)
		if i < len(actions) {
			action = actions[i]
		}

		s.OldTail = s.Body[len(s.Body)-1]
		s.HasOldTail = true
		for j := len(s.Body) - 1; j >= 1; j-- {
			s.Body[j] = s.Body[j-1]
		}
		s.Body[0] = MoveHead(s.Body[0], action, state.Width, state.Height)
		if action.Valid() {
			s.LastAction = action
		}
	}

	// 4. Items, in snake order.
	respawn := 0
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Dead || len(s.Body) == 0 || s.SickTimer > 0 {
			continue
		}
		idx := state.ItemAt(s.Body[0])
		if idx < 0 {
			continue
		}
		item := state.Items[idx]
		state.Items = append(state.Items[:idx], state.Items[idx+1:]...)

		eff := settings.Effects[item.Type]
		rewards[i] += eff.Reward
		if eff.Grow && s.HasOldTail {
			s.Body = append(s.Body, s.OldTail)
		}
		if eff.Invincible {
			s.InvincibleTimer = settings.InvincibleTurns
		}
		if eff.Sick {
			s.SickTimer = settings.SickTurns
		}
		if item.Type == game.Apple && settings.RespawnApples {
			respawn++
		}
	}

	// 5. Collisions against the post-move snapshot, applied together.
	dead := make([]bool, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Dead || len(s.Body) == 0 || s.InvincibleTimer > 0 {
			continue
		}
		dead[i] = collides(state, i)
	}
	for i := range state.Snakes {
		if dead[i] {
			state.Snakes[i].Dead = true
		}
	}

	// 6. Timers.
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Dead {
			continue
		}
		if s.InvincibleTimer > 0 {
			s.InvincibleTimer--
		}
		if s.SickTimer > 0 {
			s.SickTimer--
		}
	}

	for ; respawn > 0; respawn-- {
		if !PlaceRandomItem(state, game.Apple, rng) {
			break
		}
	}

	for i, r := range rewards {
		state.Scores[i] += r
	}
	state.Turn++
	return rewards
}

func collides(state *game.GameState, idx int) bool {
	s := &state.Snakes[idx]
	head := s.Body[0]
	if state.Wall(head) {
		return true
	}
	if SelfCollides(s.Body) {
		return true
	}
	for j := range state.Snakes {
		if j == idx {
			continue
		}
		other := &state.Snakes[j]
		if other.Dead {
			continue
		}
		for _, p := range other.Body {
			if p == head {
				return true
			}
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
