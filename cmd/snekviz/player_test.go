package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/store"
	"github.com/brensch/snekq/strategy"
)

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, keys ...string) player {
	t.Helper()
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m.(player)
}

func liveFor(t *testing.T, layoutName string, maxTurns int) *liveSource {
	t.Helper()
	layout, err := game.BuiltinLayout(layoutName)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	strategies := make([]strategy.Strategy, len(layout.Snakes))
	for i := range strategies {
		strategies[i] = strategy.NewConstant(game.ActionRight)
	}
	return newLiveSource(layout, strategies, episode.Config{MaxTurns: maxTurns, Seed: 3})
}

func TestPlayerStepping(t *testing.T) {
	p, err := newPlayer(liveFor(t, "smallNoWall_alone", 5), 100*time.Millisecond, false)
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}
	if p.frames[0].State.Turn != 0 {
		t.Fatalf("first frame turn=%d", p.frames[0].State.Turn)
	}

	p = press(t, p, "right", "right", "right")
	if p.idx != 3 || p.frames[p.idx].State.Turn != 3 {
		t.Fatalf("idx=%d turn=%d want 3", p.idx, p.frames[p.idx].State.Turn)
	}
	if a := p.frames[p.idx].Actions; len(a) != 1 || a[0] != game.ActionRight {
		t.Fatalf("actions=%v", a)
	}

	p = press(t, p, "left", "left")
	if p.idx != 1 || len(p.frames) != 4 {
		t.Fatalf("idx=%d frames=%d after stepping back", p.idx, len(p.frames))
	}

	p = press(t, p, "right", "right", "right", "right", "right", "right", "right")
	if !p.atEnd() || p.frames[p.idx].State.Turn != 5 {
		t.Fatalf("should stop at the turn limit, idx=%d turn=%d", p.idx, p.frames[p.idx].State.Turn)
	}
	if len(p.frames) != 6 {
		t.Fatalf("frames=%d want 6", len(p.frames))
	}
}

func TestPlayerPlayPauseAndSpeed(t *testing.T) {
	p, err := newPlayer(liveFor(t, "smallNoWall_alone", 3), 100*time.Millisecond, false)
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}

	m, cmd := p.Update(key(" "))
	p = m.(player)
	if !p.playing || cmd == nil {
		t.Fatalf("space should start playback")
	}

	stale := playTickMsg{gen: p.gen - 1}
	m, _ = p.Update(stale)
	if m.(player).idx != 0 {
		t.Fatalf("stale tick advanced the player")
	}

	for i := 0; i < 3; i++ {
		m, cmd = p.Update(playTickMsg{gen: p.gen})
		p = m.(player)
	}
	if p.idx != 3 || p.playing || cmd != nil {
		t.Fatalf("idx=%d playing=%v; playback should stop at the end", p.idx, p.playing)
	}

	p = press(t, p, "+")
	if p.delay != 50*time.Millisecond {
		t.Fatalf("delay=%v after speed up", p.delay)
	}
	p = press(t, p, "-", "-", "-", "-", "-", "-", "-", "-")
	if p.delay != maxDelay {
		t.Fatalf("delay=%v want clamp at %v", p.delay, maxDelay)
	}
}

func TestPlayerRestart(t *testing.T) {
	src := liveFor(t, "small_duel", 10)
	p, err := newPlayer(src, 50*time.Millisecond, false)
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}
	firstID := p.frames[0].EpisodeID
	p = press(t, p, "right", "right", "r")
	if p.idx != 0 || len(p.frames) != 1 {
		t.Fatalf("restart idx=%d frames=%d", p.idx, len(p.frames))
	}
	if p.frames[0].EpisodeID == firstID {
		t.Fatalf("restart should start a new episode")
	}
	if src.resets != 2 {
		t.Fatalf("resets=%d", src.resets)
	}

	view := p.View()
	for _, want := range []string{"small_duel", "turn 0/10", "paused", "A constant-Right"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestReplaySource(t *testing.T) {
	layout, err := game.BuiltinLayout("small_alone")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	dir := t.TempDir()
	var ids []string
	for i := 0; i < 2; i++ {
		r, err := episode.New(layout, []strategy.Strategy{strategy.NewConstant(game.ActionRight)}, episode.Config{MaxTurns: 4 + i})
		if err != nil {
			t.Fatalf("episode: %v", err)
		}
		var rows []store.TurnRow
		r.RunPaced(context.Background(), time.Millisecond, func(f episode.Frame) {
			rows = append(rows, store.TurnRowFromFrame("run", i, f))
		})
		if _, err := store.WriteTurnsAtomic(dir, rows); err != nil {
			t.Fatalf("write: %v", err)
		}
		ids = append(ids, r.ID())
	}

	latest, err := loadReplay(dir, "", layout)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if latest.id != ids[1] || len(latest.rows) != 6 {
		t.Fatalf("latest id=%s rows=%d want %s with 6", latest.id, len(latest.rows), ids[1])
	}

	first, err := loadReplay(dir, ids[0], layout)
	if err != nil {
		t.Fatalf("load by id: %v", err)
	}
	p, err := newPlayer(first, time.Millisecond, false)
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}
	p = press(t, p, "right", "right", "right", "right", "right", "right")
	if len(p.frames) != 5 || !p.atEnd() {
		t.Fatalf("frames=%d atEnd=%v", len(p.frames), p.atEnd())
	}
	if !p.frames[4].State.Wall(game.Point{X: 0, Y: 0}) {
		t.Fatalf("replayed state lost the layout walls")
	}
	if got := p.frames[1].Actions[0]; got != game.ActionRight {
		t.Fatalf("replayed action=%v", got)
	}

	if _, err := loadReplay(dir, "missing", layout); !errors.Is(err, errNoEpisodes) {
		t.Fatalf("err=%v want errNoEpisodes", err)
	}
}

func TestRenderBoardMarksHeads(t *testing.T) {
	layout, err := game.BuiltinLayout("small_duel")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	state := layout.NewState(10)
	out := renderBoard(state)
	if lines := strings.Count(out, "\n"); lines != state.Height {
		t.Fatalf("lines=%d want %d", lines, state.Height)
	}
	if !strings.Contains(out, "A ") || !strings.Contains(out, "B ") {
		t.Fatalf("missing heads:\n%s", out)
	}
	t.Logf("\n%s", out)
}
