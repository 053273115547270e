package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/snekq/episode"
)

const (
	minDelay = 10 * time.Millisecond
	maxDelay = 2 * time.Second
)

// source supplies frames to the player. Live sources produce frames lazily
// from a running episode; replay sources hold an archived episode.
type source interface {
	// Next returns the frame after the last one produced, false once the
	// episode is over.
	Next() (episode.Frame, bool)
	// Reset starts over and returns the first frame.
	Reset() (episode.Frame, error)
	Title() string
	Names() []string
}

type playTickMsg struct {
	gen int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type player struct {
	src     source
	frames  []episode.Frame
	idx     int
	ended   bool
	playing bool
	delay   time.Duration
	// gen invalidates ticks scheduled before a pause or speed change.
	gen int
	err error
}

func newPlayer(src source, delay time.Duration, autoplay bool) (player, error) {
	first, err := src.Reset()
	if err != nil {
		return player{}, err
	}
	return player{
		src:     src,
		frames:  []episode.Frame{first},
		delay:   clampDelay(delay),
		playing: autoplay,
	}, nil
}

func (p player) Init() tea.Cmd {
	if p.playing {
		return p.schedule()
	}
	return nil
}

func (p player) schedule() tea.Cmd {
	gen := p.gen
	return tea.Tick(p.delay, func(time.Time) tea.Msg {
		return playTickMsg{gen: gen}
	})
}

func (p player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		case " ", "p":
			p.playing = !p.playing
			p.gen++
			if p.playing {
				return p, p.schedule()
			}
		case "right", "l", "n":
			p.playing = false
			p.gen++
			p = p.forward()
		case "left", "h", "b":
			p.playing = false
			p.gen++
			if p.idx > 0 {
				p.idx--
			}
		case "home", "g":
			p.idx = 0
		case "+", "=", "up":
			p.delay = clampDelay(p.delay / 2)
			p.gen++
			if p.playing {
				return p, p.schedule()
			}
		case "-", "_", "down":
			p.delay = clampDelay(p.delay * 2)
			p.gen++
			if p.playing {
				return p, p.schedule()
			}
		case "r":
			return p.restart()
		}
	case playTickMsg:
		if !p.playing || msg.gen != p.gen {
			return p, nil
		}
		p = p.forward()
		if p.atEnd() {
			p.playing = false
			return p, nil
		}
		return p, p.schedule()
	}
	return p, nil
}

// forward moves one frame ahead, pulling from the source when the cursor is
// already on the newest frame.
func (p player) forward() player {
	if p.idx+1 < len(p.frames) {
		p.idx++
		return p
	}
	if p.ended {
		return p
	}
	f, ok := p.src.Next()
	if !ok {
		p.ended = true
		return p
	}
	p.frames = append(p.frames, f)
	p.idx++
	return p
}

func (p player) atEnd() bool {
	if p.idx+1 < len(p.frames) {
		return false
	}
	if p.ended {
		return true
	}
	return p.frames[p.idx].State.Terminal()
}

func (p player) restart() (tea.Model, tea.Cmd) {
	first, err := p.src.Reset()
	p.gen++
	if err != nil {
		p.err = err
		p.playing = false
		return p, nil
	}
	p.frames = []episode.Frame{first}
	p.idx = 0
	p.ended = false
	p.err = nil
	if p.playing {
		return p, p.schedule()
	}
	return p, nil
}

func (p player) View() string {
	f := p.frames[p.idx]
	s := f.State

	state := "paused"
	if p.playing {
		state = "playing"
	}
	if p.atEnd() {
		state = "finished"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(p.src.Title()) + "\n")
	fmt.Fprintf(&b, "turn %d/%d   frame %d/%d   %s   %s/tick\n",
		s.Turn, s.MaxTurns, p.idx+1, len(p.frames), state, p.delay)
	b.WriteString(frameStyle.Render(strings.TrimRight(renderBoard(s), "\n")) + "\n")
	b.WriteString(renderStatus(s, p.src.Names(), f.Actions))
	if p.err != nil {
		b.WriteString(errorStyle.Render(p.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("space play/pause  ←/→ step  +/- speed  r restart  q quit") + "\n")
	return b.String()
}

func clampDelay(d time.Duration) time.Duration {
	return min(max(d, minDelay), maxDelay)
}
