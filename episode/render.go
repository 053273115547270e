package episode

import (
	"fmt"
	"strings"

	"github.com/brensch/snekq/game"
)

// Glyphs used by Render. Snake i draws its head as the uppercase letter
// 'A'+i and its body in lowercase; dead snakes draw as 'x'.
const (
	glyphWall  = '%'
	glyphEmpty = '.'
	glyphDead  = 'x'
)

var itemGlyphs = map[game.ItemType]byte{
	game.Apple:             '*',
	game.Box:               '#',
	game.InvincibilityBall: '+',
	game.SickBall:          '~',
}

// Render draws state as text, top row first, followed by a status line per
// snake.
func Render(state *game.GameState) string {
	if state == nil {
		return "<nil state>\n"
	}
	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = make([]byte, state.Width)
		for x := range grid[y] {
			grid[y][x] = glyphEmpty
			if state.Wall(game.Point{X: x, Y: y}) {
				grid[y][x] = glyphWall
			}
		}
	}
	for _, it := range state.Items {
		if g, ok := itemGlyphs[it.Type]; ok && inBounds(state, it.Pos) {
			grid[it.Pos.Y][it.Pos.X] = g
		}
	}
	for i, s := range state.Snakes {
		head := byte('A' + i%26)
		body := byte('a' + i%26)
		if s.Dead {
			head, body = glyphDead, glyphDead
		}
		for j := len(s.Body) - 1; j >= 0; j-- {
			p := s.Body[j]
			if !inBounds(state, p) {
				continue
			}
			if j == 0 {
				grid[p.Y][p.X] = head
			} else {
				grid[p.Y][p.X] = body
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d/%d\n", state.Turn, state.MaxTurns)
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	for i, s := range state.Snakes {
		score := 0.0
		if i < len(state.Scores) {
			score = state.Scores[i]
		}
		status := "alive"
		if s.Dead {
			status = "dead"
		}
		fmt.Fprintf(&sb, "%c len=%d score=%.0f %s", 'A'+i%26, len(s.Body), score, status)
		if s.InvincibleTimer > 0 {
			fmt.Fprintf(&sb, " invincible=%d", s.InvincibleTimer)
		}
		if s.SickTimer > 0 {
			fmt.Fprintf(&sb, " sick=%d", s.SickTimer)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func inBounds(state *game.GameState, p game.Point) bool {
	return p.X >= 0 && p.X < state.Width && p.Y >= 0 && p.Y < state.Height
}
