package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/strategy"
)

// Trainer alternates evaluation and training batches. Each cycle runs a test
// batch, optionally a paced visualize episode, then a train batch.
//
// By default the visualize episode plays inline and training waits for it,
// up to MaxTurns × VisualizeDelay per visualized cycle. With
// VisualizeInBackground it plays on its own goroutine against Frozen views of
// the strategies and training carries on; a due episode is skipped while the
// previous one is still playing.
type Trainer struct {
	Layout        *game.Layout
	Strategies    []strategy.Strategy
	TestEpisodes  int
	TrainEpisodes int
	MaxTurns      int
	Parallelism   int

	// Cycles bounds the loop; 0 runs until ctx is done.
	Cycles int
	// VisualizeEvery runs a paced episode on cycles divisible by it; 0 never.
	VisualizeEvery        int
	VisualizeDelay        time.Duration
	VisualizeInBackground bool

	Rules            rules.Settings
	RandomFirstApple bool
	Seed             int64
	Logger           *slog.Logger

	OnResult func(cycle int, res Result)
	OnFrame  func(cycle int, f episode.Frame)
}

// Run blocks until Cycles complete or ctx is done, including any background
// visualize episode. Cancellation is only observed between batches, so a
// running batch always finishes; a visualize episode stops at the next tick.
// Returns ctx.Err() when cancelled.
func (t *Trainer) Run(ctx context.Context) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if t.TestEpisodes < 1 && t.TrainEpisodes < 1 {
		return ErrNoEpisodes
	}

	var (
		bg      sync.WaitGroup
		playing atomic.Bool
	)
	defer bg.Wait()

	for cycle := 0; t.Cycles == 0 || cycle < t.Cycles; cycle++ {
		seed := t.Seed + int64(cycle)*7919

		if t.TestEpisodes > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := t.runBatch(logger, cycle, false, t.TestEpisodes, seed); err != nil {
				return err
			}
		}

		if t.VisualizeEvery > 0 && cycle%t.VisualizeEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch {
			case !t.VisualizeInBackground:
				if err := t.visualize(ctx, logger, cycle, seed, t.Strategies); err != nil {
					return err
				}
			case playing.CompareAndSwap(false, true):
				frozen := make([]strategy.Strategy, len(t.Strategies))
				for i, s := range t.Strategies {
					frozen[i] = strategy.Frozen(s)
				}
				bg.Add(1)
				go func(cycle int, seed int64) {
					defer bg.Done()
					defer playing.Store(false)
					if err := t.visualize(ctx, logger, cycle, seed, frozen); err != nil {
						logger.Warn("background visualize", "cycle", cycle, "err", err)
					}
				}(cycle, seed)
			default:
				logger.Debug("visualize skipped, previous episode still playing", "cycle", cycle)
			}
		}

		if t.TrainEpisodes > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := t.runBatch(logger, cycle, true, t.TrainEpisodes, seed+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Trainer) runBatch(logger *slog.Logger, cycle int, train bool, episodes int, seed int64) error {
	res, err := Run(t.Layout, t.Strategies, Config{
		Episodes:         episodes,
		MaxTurns:         t.MaxTurns,
		Parallelism:      t.Parallelism,
		Train:            train,
		Rules:            t.Rules,
		Seed:             seed,
		RandomFirstApple: t.RandomFirstApple,
	})
	if err != nil {
		return fmt.Errorf("cycle %d: %w", cycle, err)
	}

	for agent, s := range t.Strategies {
		logger.Info("batch complete",
			"cycle", cycle,
			"mode", res.Mode,
			"agent", agent,
			"strategy", s.Name(),
			"mean", res.Mean[agent],
			"stddev", res.StdDev[agent],
			"episodes", res.Completed,
			"failed", res.Failed,
			"ticks", res.Ticks,
			"duration", res.Duration,
		)
	}
	if res.Failed > 0 {
		logger.Warn("episodes failed", "cycle", cycle, "mode", res.Mode, "failed", res.Failed, "err", res.FirstErr)
	}
	if t.OnResult != nil {
		t.OnResult(cycle, res)
	}
	return nil
}

func (t *Trainer) visualize(ctx context.Context, logger *slog.Logger, cycle int, seed int64, strategies []strategy.Strategy) error {
	for _, s := range strategies {
		s.SetTrainMode(false)
	}
	r, err := episode.New(t.Layout, strategies, episode.Config{
		MaxTurns:         t.MaxTurns,
		Rules:            t.Rules,
		Seed:             seed + 2,
		RandomFirstApple: t.RandomFirstApple,
	})
	if err != nil {
		return fmt.Errorf("cycle %d visualize: %w", cycle, err)
	}

	logger.Info("visualize episode", "cycle", cycle, "episode", r.ID(), "delay", t.VisualizeDelay)
	res := r.RunPaced(ctx, t.VisualizeDelay, func(f episode.Frame) {
		if t.OnFrame != nil {
			t.OnFrame(cycle, f)
		}
	})
	if res.Err != nil && ctx.Err() == nil {
		logger.Warn("visualize episode failed", "cycle", cycle, "err", res.Err)
	}
	logger.Info("visualize done", "cycle", cycle, "turns", res.Turns, "scores", res.Scores)
	return nil
}
