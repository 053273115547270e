package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/snekq/game"
)

// PlaceRandomItem puts one item of the given type on a random free cell: no
// wall, no live snake segment, no other item. It returns false when the grid
// has no room.
//
// A nil rng falls back to a deterministic choice derived from the state, so
// tests and replays stay reproducible.
func PlaceRandomItem(state *game.GameState, kind game.ItemType, rng *rand.Rand) bool {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return false
	}

	occupied := make(map[game.Point]struct{}, len(state.Items)+8)
	for _, s := range state.Snakes {
		if s.Dead {
			continue
		}
		for _, p := range s.Body {
			occupied[p] = struct{}{}
		}
	}
	for _, it := range state.Items {
		occupied[it.Pos] = struct{}{}
	}

	free := make([]game.Point, 0, state.Width*state.Height-len(occupied))
	for y := 0; y < state.Height; y++ {
		for x := 0; x < state.Width; x++ {
			p := game.Point{X: x, Y: y}
			if state.Wall(p) {
				continue
			}
			if _, ok := occupied[p]; ok {
				continue
			}
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return false
	}

	var idx int
	if rng != nil {
		idx = rng.Intn(len(free))
	} else {
		idx = int(stateHash(state, uint64(kind)) % uint64(len(free)))
	}
	state.Items = append(state.Items, game.Item{Type: kind, Pos: free[idx]})
	return true
}

// ReplaceApples drops every apple from state and places a single apple on a
// random free cell instead.
func ReplaceApples(state *game.GameState, rng *rand.Rand) bool {
	kept := state.Items[:0]
	for _, it := range state.Items {
		if it.Type != game.Apple {
			kept = append(kept, it)
		}
	}
	state.Items = kept
	return PlaceRandomItem(state, game.Apple, rng)
}

// stateHash mixes turn, grid size, item count and live heads. Cheap enough
// for the respawn path.
func stateHash(state *game.GameState, salt uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(state.Width))|(uint64(uint32(state.Height))<<32))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(state.Turn))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], salt)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(len(state.Items)))
	_, _ = h.Write(buf[:])

	for _, s := range state.Snakes {
		if s.Dead || len(s.Body) == 0 {
			continue
		}
		head := s.Body[0]
		binary.LittleEndian.PutUint64(buf[:], (uint64(uint32(head.X))<<32)|uint64(uint32(head.Y)))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
