package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/episode"
)

type resultMsg struct {
	cycle int
	res   batch.Result
}

type frameMsg struct {
	cycle int
	frame episode.Frame
}

type doneMsg struct {
	err error
}

type TickMsg time.Time

const (
	curveWidth = 48
	maxRecent  = 8
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	testStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	trainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

type model struct {
	runID   string
	layout  string
	names   []string
	started time.Time
	now     time.Time

	cycle     int
	ticks     int64
	episodes  int
	failed    int
	lastTest  []float64
	lastTrain []float64
	curves    [][]float64

	board   string
	recent  []string
	done    bool
	err     error
	updates chan tea.Msg
	quit    func()
}

func initialModel(runID, layout string, names []string, updates chan tea.Msg, quit func()) model {
	now := time.Now()
	return model{
		runID:   runID,
		layout:  layout,
		names:   names,
		started: now,
		now:     now,
		curves:  make([][]float64, len(names)),
		updates: updates,
		quit:    quit,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.quit != nil {
				m.quit()
			}
			return m, tea.Quit
		}
	case TickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case resultMsg:
		m = m.applyResult(msg)
		return m, waitForUpdate(m.updates)
	case frameMsg:
		m.board = episode.Render(msg.frame.State)
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) applyResult(msg resultMsg) model {
	res := msg.res
	m.cycle = msg.cycle
	m.ticks += res.Ticks
	m.episodes += res.Completed
	m.failed += res.Failed

	if res.Mode == batch.ModeTest {
		m.lastTest = res.Mean
		for agent, mean := range res.Mean {
			if agent >= len(m.curves) {
				break
			}
			c := append(m.curves[agent], mean)
			if len(c) > curveWidth {
				c = c[len(c)-curveWidth:]
			}
			m.curves[agent] = c
		}
	} else {
		m.lastTrain = res.Mean
	}

	line := fmt.Sprintf("cycle %-4d %-5s mean=%s ok=%d failed=%d %s",
		msg.cycle, res.Mode, formatMeans(res.Mean), res.Completed, res.Failed, res.Duration.Round(time.Millisecond))
	m.recent = append([]string{line}, m.recent...)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[:maxRecent]
	}
	return m
}

func (m model) View() string {
	elapsed := m.now.Sub(m.started)
	ticksPerSec := 0.0
	if elapsed.Seconds() >= 1 {
		ticksPerSec = float64(m.ticks) / elapsed.Seconds()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("snektrain "+m.runID) + "\n")
	fmt.Fprintf(&b, "%s %s   %s %d   %s %s\n",
		labelStyle.Render("layout"), m.layout,
		labelStyle.Render("cycle"), m.cycle,
		labelStyle.Render("elapsed"), elapsed.Round(time.Second))
	fmt.Fprintf(&b, "%s %d   %s %d   %s %d   %s %.0f\n\n",
		labelStyle.Render("episodes"), m.episodes,
		labelStyle.Render("failed"), m.failed,
		labelStyle.Render("ticks"), m.ticks,
		labelStyle.Render("ticks/s"), ticksPerSec)

	for agent, name := range m.names {
		test, train := "-", "-"
		if agent < len(m.lastTest) {
			test = fmt.Sprintf("%.3f", m.lastTest[agent])
		}
		if agent < len(m.lastTrain) {
			train = fmt.Sprintf("%.3f", m.lastTrain[agent])
		}
		fmt.Fprintf(&b, "agent %d %-16s %s %s  %s\n",
			agent, name,
			testStyle.Render("test "+test),
			trainStyle.Render("train "+train),
			sparkline(m.curves[agent]))
	}

	if m.board != "" {
		b.WriteString("\n" + boardStyle.Render(strings.TrimRight(m.board, "\n")) + "\n")
	}

	b.WriteString("\n" + labelStyle.Render("recent batches") + "\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errStyle.Render("stopped: "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString("\ntraining finished\n")
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline scales values onto eight block heights between their min and max.
func sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func formatMeans(means []float64) string {
	parts := make([]string, len(means))
	for i, m := range means {
		parts[i] = fmt.Sprintf("%.2f", m)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
