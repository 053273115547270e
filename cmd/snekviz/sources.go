package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/store"
	"github.com/brensch/snekq/strategy"
)

// liveSource plays a fresh episode with the given strategies in eval mode.
// Every Reset uses the next seed so restarts show different games.
type liveSource struct {
	layout     *game.Layout
	strategies []strategy.Strategy
	cfg        episode.Config

	runner *episode.Runner
	resets int
}

func newLiveSource(layout *game.Layout, strategies []strategy.Strategy, cfg episode.Config) *liveSource {
	for _, s := range strategies {
		s.SetTrainMode(false)
	}
	cfg.Train = false
	return &liveSource{layout: layout, strategies: strategies, cfg: cfg}
}

func (l *liveSource) Reset() (episode.Frame, error) {
	cfg := l.cfg
	cfg.Seed = l.cfg.Seed + int64(l.resets)
	l.resets++
	r, err := episode.New(l.layout, l.strategies, cfg)
	if err != nil {
		return episode.Frame{}, err
	}
	l.runner = r
	return frameOf(r, nil, nil), nil
}

func (l *liveSource) Next() (episode.Frame, bool) {
	if l.runner == nil || l.runner.Done() {
		return episode.Frame{}, false
	}
	l.runner.Advance()
	if err := l.runner.Err(); err != nil {
		return episode.Frame{}, false
	}
	return frameOf(l.runner, l.runner.LastActions(), l.runner.LastRewards()), true
}

func (l *liveSource) Title() string {
	id := ""
	if l.runner != nil {
		id = l.runner.ID()
	}
	return fmt.Sprintf("%s  live  %s", l.layout.Name, id)
}

func (l *liveSource) Names() []string { return strategy.Names(l.strategies) }

func frameOf(r *episode.Runner, actions []game.Action, rewards []float64) episode.Frame {
	return episode.Frame{
		EpisodeID: r.ID(),
		Turn:      r.Turn(),
		State:     r.Snapshot(),
		Actions:   actions,
		Rewards:   rewards,
	}
}

// replaySource steps through an archived visualize episode.
type replaySource struct {
	layout *game.Layout
	id     string
	rows   []store.TurnRow
	pos    int
}

var errNoEpisodes = errors.New("no archived episodes found")

// loadReplay reads every episode archive under path (a file or directory)
// and picks episodeID, or the most recent episode when episodeID is empty.
func loadReplay(path, episodeID string, layout *game.Layout) (*replaySource, error) {
	files := []string{path}
	if info, err := os.Stat(path); err != nil {
		return nil, err
	} else if info.IsDir() {
		files = nil
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == "tmp" {
				return filepath.SkipDir
			}
			if ok, _ := filepath.Match("episode_*.parquet", d.Name()); ok && !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		// file names carry a nanosecond timestamp
		sort.Strings(files)
	}

	var match []store.TurnRow
	for i := len(files) - 1; i >= 0 && match == nil; i-- {
		rows, err := store.ReadTurns(files[i])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", files[i], err)
		}
		want := episodeID
		if want == "" && len(rows) > 0 {
			want = rows[len(rows)-1].EpisodeID
		}
		for _, r := range rows {
			if r.EpisodeID == want {
				match = append(match, r)
			}
		}
	}
	if len(match) == 0 {
		if episodeID != "" {
			return nil, fmt.Errorf("episode %s: %w", episodeID, errNoEpisodes)
		}
		return nil, errNoEpisodes
	}
	sort.SliceStable(match, func(i, j int) bool { return match[i].Turn < match[j].Turn })

	return &replaySource{layout: layout, id: match[0].EpisodeID, rows: match}, nil
}

func (r *replaySource) Reset() (episode.Frame, error) {
	r.pos = 0
	return r.frame(0), nil
}

func (r *replaySource) Next() (episode.Frame, bool) {
	if r.pos+1 >= len(r.rows) {
		return episode.Frame{}, false
	}
	r.pos++
	return r.frame(r.pos), true
}

func (r *replaySource) frame(i int) episode.Frame {
	row := r.rows[i]
	f := episode.Frame{
		EpisodeID: row.EpisodeID,
		Turn:      int(row.Turn),
		State:     row.State(r.layout),
		Actions:   make([]game.Action, len(row.Snakes)),
		Rewards:   make([]float64, len(row.Snakes)),
	}
	for j, s := range row.Snakes {
		f.Actions[j] = game.Action(s.Action)
		f.Rewards[j] = s.Reward
	}
	return f
}

func (r *replaySource) Title() string {
	name := "replay"
	if r.layout != nil {
		name = r.layout.Name
	}
	return fmt.Sprintf("%s  replay  %s", name, r.id)
}

// Names is unknown for archives; the status lines fall back to slot numbers.
func (r *replaySource) Names() []string { return nil }

// pretrain runs training batches so the live player shows a learned policy
// rather than random play.
func pretrain(layout *game.Layout, strategies []strategy.Strategy, cfg episode.Config, batches, episodes int) error {
	for i := 0; i < batches; i++ {
		_, err := batch.Run(layout, strategies, batch.Config{
			Episodes:         episodes,
			MaxTurns:         cfg.MaxTurns,
			Train:            true,
			Rules:            cfg.Rules,
			Seed:             cfg.Seed + int64(i)*7919,
			RandomFirstApple: cfg.RandomFirstApple,
		})
		if err != nil {
			return fmt.Errorf("pretrain batch %d: %w", i, err)
		}
	}
	return nil
}
