package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/snekq/game"
)

var (
	wallStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	deadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	snakeColors = []lipgloss.Color{"42", "212", "39", "214", "141", "203"}

	itemGlyphs = map[game.ItemType]string{
		game.Apple:             "●",
		game.Box:               "■",
		game.InvincibilityBall: "◆",
		game.SickBall:          "✚",
	}
	itemStyles = map[game.ItemType]lipgloss.Style{
		game.Apple:             lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		game.Box:               lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		game.InvincibilityBall: lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		game.SickBall:          lipgloss.NewStyle().Foreground(lipgloss.Color("118")),
	}
)

func snakeStyle(agent int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(snakeColors[agent%len(snakeColors)])
}

// renderBoard draws the grid two columns per cell so it reads square in most
// terminals. Live snakes draw over items, which draw over dead snakes.
func renderBoard(s *game.GameState) string {
	cells := make([]string, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			i := y*s.Width + x
			if s.Walls != nil && s.Walls[i] {
				cells[i] = wallStyle.Render("██")
			} else {
				cells[i] = emptyStyle.Render("· ")
			}
		}
	}
	set := func(p game.Point, v string) {
		if p.X < 0 || p.Y < 0 || p.X >= s.Width || p.Y >= s.Height {
			return
		}
		cells[p.Y*s.Width+p.X] = v
	}

	for _, sn := range s.Snakes {
		if !sn.Dead {
			continue
		}
		for _, p := range sn.Body {
			set(p, deadStyle.Render("x "))
		}
	}
	for _, it := range s.Items {
		set(it.Pos, itemStyles[it.Type].Render(itemGlyphs[it.Type]+" "))
	}
	for i, sn := range s.Snakes {
		if sn.Dead {
			continue
		}
		st := snakeStyle(i)
		for j := len(sn.Body) - 1; j >= 0; j-- {
			glyph := "▪ "
			if j == 0 {
				glyph = string(rune('A'+i)) + " "
			}
			set(sn.Body[j], st.Render(glyph))
		}
	}

	var b strings.Builder
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			b.WriteString(cells[y*s.Width+x])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderStatus(s *game.GameState, names []string, actions []game.Action) string {
	var b strings.Builder
	for i, sn := range s.Snakes {
		name := fmt.Sprintf("agent %d", i)
		if i < len(names) {
			name = names[i]
		}
		status := "alive"
		if sn.Dead {
			status = "dead"
		}
		var extra []string
		if sn.InvincibleTimer > 0 {
			extra = append(extra, fmt.Sprintf("invincible %d", sn.InvincibleTimer))
		}
		if sn.SickTimer > 0 {
			extra = append(extra, fmt.Sprintf("sick %d", sn.SickTimer))
		}
		if i < len(actions) && actions[i].Valid() {
			extra = append(extra, "moved "+actions[i].String())
		}
		score := 0.0
		if i < len(s.Scores) {
			score = s.Scores[i]
		}
		line := fmt.Sprintf("%c %-16s %-5s score %-6.1f len %-3d %s",
			'A'+i, name, status, score, len(sn.Body), strings.Join(extra, ", "))
		b.WriteString(snakeStyle(i).Render(strings.TrimRight(line, " ")) + "\n")
	}
	return b.String()
}
