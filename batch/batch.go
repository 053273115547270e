// Package batch runs many independent episodes concurrently against one set
// of shared strategies and aggregates their per-agent scores.
package batch

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/strategy"
)

var (
	ErrNoEpisodes    = errors.New("batch needs at least one episode")
	ErrStrategyCount = episode.ErrStrategyCount
	ErrAllFailed     = errors.New("every episode in the batch failed")
)

// Batch modes recorded on Result and in history rows.
const (
	ModeTrain = "train"
	ModeTest  = "test"
)

// Config describes one batch of episodes sharing the same strategies.
type Config struct {
	Episodes    int
	MaxTurns    int
	Parallelism int
	Train       bool
	Rules       rules.Settings
	Seed        int64

	RandomFirstApple bool
}

// Result aggregates one batch. Mean, StdDev and Sum are per agent slot and
// only cover completed episodes.
type Result struct {
	Mode      string
	Episodes  int
	Completed int
	Failed    int
	Ticks     int64
	Updates   int64
	Mean      []float64
	StdDev    []float64
	Sum       []float64
	StartedAt time.Time
	Duration  time.Duration
	// FirstErr is the earliest failure by episode index, nil if none failed.
	FirstErr error
}

// Run plays cfg.Episodes episodes of layout concurrently and blocks until all
// of them have finished. Configuration errors are returned before any episode
// starts.
func Run(layout *game.Layout, strategies []strategy.Strategy, cfg Config) (Result, error) {
	if cfg.Episodes < 1 {
		return Result{}, ErrNoEpisodes
	}

	mode := ModeTest
	if cfg.Train {
		mode = ModeTrain
	}

	runners := make([]*episode.Runner, cfg.Episodes)
	for i := range runners {
		r, err := episode.New(layout, strategies, episode.Config{
			MaxTurns:         cfg.MaxTurns,
			Train:            cfg.Train,
			Rules:            cfg.Rules,
			Seed:             episodeSeed(cfg.Seed, i),
			RandomFirstApple: cfg.RandomFirstApple,
		})
		if err != nil {
			return Result{}, fmt.Errorf("%s batch: %w", mode, err)
		}
		runners[i] = r
	}

	for _, s := range strategies {
		s.SetTrainMode(cfg.Train)
	}

	limit := cfg.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	started := time.Now()
	results := make([]episode.Result, len(runners))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, r := range runners {
		g.Go(func() error {
			results[i] = r.Run()
			return nil
		})
	}
	// Episodes report failures through their results, so Wait never errors.
	_ = g.Wait()

	res := aggregate(mode, len(strategies), results)
	res.StartedAt = started
	res.Duration = time.Since(started)
	if res.Completed == 0 {
		return res, fmt.Errorf("%w: %d episodes: %w", ErrAllFailed, res.Failed, res.FirstErr)
	}
	return res, nil
}

func aggregate(mode string, agents int, results []episode.Result) Result {
	res := Result{
		Mode:     mode,
		Episodes: len(results),
		Mean:     make([]float64, agents),
		StdDev:   make([]float64, agents),
		Sum:      make([]float64, agents),
	}

	scores := make([][]float64, agents)
	for _, r := range results {
		res.Ticks += int64(r.Turns)
		res.Updates += r.Updates
		if r.Err != nil {
			res.Failed++
			if res.FirstErr == nil {
				res.FirstErr = r.Err
			}
			continue
		}
		res.Completed++
		for a := 0; a < agents && a < len(r.Scores); a++ {
			scores[a] = append(scores[a], r.Scores[a])
		}
	}

	for a, xs := range scores {
		if len(xs) == 0 {
			continue
		}
		res.Sum[a] = floats.Sum(xs)
		mean, std := stat.MeanStdDev(xs, nil)
		if math.IsNaN(std) {
			std = 0
		}
		res.Mean[a] = mean
		res.StdDev[a] = std
	}
	return res
}

func episodeSeed(base int64, i int) int64 {
	return base + int64(i)*1000003
}
