package main

import (
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/store"
	"github.com/brensch/snekq/viewer"
)

// sinks fans trainer callbacks out to whichever outputs are enabled. Every
// field except logger may be nil.
type sinks struct {
	runID  string
	layout string
	names  []string
	logger *slog.Logger

	history *store.HistoryWriter
	archive *archiver
	hub     *viewer.Hub
	ui      chan tea.Msg
}

func (s *sinks) onResult(cycle int, res batch.Result) {
	if s.history != nil {
		if err := s.history.Write(store.BatchRows(s.runID, s.layout, cycle, s.names, res)); err != nil {
			s.logger.Error("write history", "cycle", cycle, "err", err)
		}
	}
	if s.hub != nil {
		if err := s.hub.PublishBatch(cycle, s.names, res); err != nil {
			s.logger.Warn("publish batch", "cycle", cycle, "err", err)
		}
	}
	s.send(resultMsg{cycle: cycle, res: res})
}

func (s *sinks) onFrame(cycle int, f episode.Frame) {
	if s.archive != nil {
		s.archive.add(cycle, f)
	}
	if s.hub != nil {
		if err := s.hub.PublishFrame(cycle, f); err != nil {
			s.logger.Warn("publish frame", "cycle", cycle, "err", err)
		}
	}
	s.send(frameMsg{cycle: cycle, frame: f})
}

// send never blocks the trainer on a slow or closed dashboard.
func (s *sinks) send(msg tea.Msg) {
	if s.ui == nil {
		return
	}
	select {
	case s.ui <- msg:
	default:
	}
}

func (s *sinks) close() {
	if s.archive != nil {
		s.archive.flush()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Error("close history", "err", err)
		}
	}
}

// archiver buffers the frames of one visualize episode and writes them as a
// single parquet file when the episode ends.
type archiver struct {
	outDir string
	runID  string
	logger *slog.Logger

	mu      sync.Mutex
	episode string
	rows    []store.TurnRow
	files   []string
}

func (a *archiver) add(cycle int, f episode.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f.EpisodeID != a.episode {
		a.flushLocked()
		a.episode = f.EpisodeID
	}
	a.rows = append(a.rows, store.TurnRowFromFrame(a.runID, cycle, f))
	if f.State.Terminal() {
		a.flushLocked()
	}
}

func (a *archiver) flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushLocked()
}

func (a *archiver) flushLocked() {
	if len(a.rows) == 0 {
		return
	}
	path, err := store.WriteTurnsAtomic(a.outDir, a.rows)
	if err != nil {
		a.logger.Error("write episode archive", "episode", a.episode, "err", err)
	} else {
		a.logger.Info("episode archived", "episode", a.episode, "turns", len(a.rows), "path", path)
		a.files = append(a.files, path)
	}
	a.rows = nil
}
