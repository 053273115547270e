// Package episode runs one game from layout to termination.
//
// A Runner owns its GameState outright and must only be driven from a single
// goroutine. Strategies are shared with other runners and handle their own
// locking.
package episode

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/strategy"
)

// ErrStrategyCount reports a strategy list that does not match the layout.
var ErrStrategyCount = errors.New("strategy count does not match snake count")

// Config controls one episode. Seed drives item respawn; Train enables learner updates.
type Config struct {
	MaxTurns         int
	Train            bool
	Rules            rules.Settings
	Seed             int64
	RandomFirstApple bool
}

// Result is what a finished episode reports back to the orchestrator.
type Result struct {
	ID       string
	Turns    int
	Scores   []float64
	Updates  int64
	Duration time.Duration
	Err      error
}

// Frame is one tick as seen by a spectator: the state after the tick plus
// the actions and rewards that produced it.
type Frame struct {
	EpisodeID string
	Turn      int
	State     *game.GameState
	Actions   []game.Action
	Rewards   []float64
}

// Runner owns one episode: its state, the strategy per slot and the tick loop.
type Runner struct {
	id         string
	cfg        Config
	state      *game.GameState
	strategies []strategy.Strategy
	rng        *rand.Rand

	actions []game.Action
	rewards []float64
	updates int64
	started time.Time
	done    bool
	err     error
}

// New builds a runner at turn zero for layout, one strategy per snake.
func New(layout *game.Layout, strategies []strategy.Strategy, cfg Config) (*Runner, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(strategies) != len(layout.Snakes) {
		return nil, fmt.Errorf("%w: %d strategies for %d snakes", ErrStrategyCount, len(strategies), len(layout.Snakes))
	}
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("strategy %d is nil", i)
		}
	}
	if cfg.MaxTurns < 1 {
		return nil, fmt.Errorf("max turns must be positive, got %d", cfg.MaxTurns)
	}
	if cfg.Rules.Effects == nil {
		cfg.Rules = rules.DefaultSettings
	}

	r := &Runner{
		id:         uuid.NewString(),
		cfg:        cfg,
		state:      layout.NewState(cfg.MaxTurns),
		strategies: strategies,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		actions:    make([]game.Action, len(strategies)),
		rewards:    make([]float64, len(strategies)),
	}
	for i := range r.actions {
		r.actions[i] = -1
	}
	if cfg.RandomFirstApple {
		rules.ReplaceApples(r.state, r.rng)
	}
	return r, nil
}

func (r *Runner) ID() string { return r.id }

func (r *Runner) Turn() int { return r.state.Turn }

func (r *Runner) Done() bool { return r.done }

func (r *Runner) Updates() int64 { return r.updates }

// Err is the failure that ended the episode, if any.
func (r *Runner) Err() error { return r.err }

// Scores returns a copy of the cumulative per-snake scores.
func (r *Runner) Scores() []float64 {
	return append([]float64(nil), r.state.Scores...)
}

// Snapshot returns a deep copy of the current state.
func (r *Runner) Snapshot() *game.GameState {
	return r.state.Clone()
}

func (r *Runner) IsLegalMove(agent int, action game.Action) bool {
	return rules.IsLegalMove(r.state, agent, action)
}

// Advance plays one tick and reports the new turn and whether the episode is
// over. Calling it on a finished runner does nothing.
func (r *Runner) Advance() (turn int, done bool) {
	if r.done {
		return r.state.Turn, true
	}
	if r.started.IsZero() {
		r.started = time.Now()
	}
	if r.state.Terminal() {
		r.done = true
		return r.state.Turn, true
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.err = fmt.Errorf("episode %s turn %d: strategy panic: %v", r.id, r.state.Turn, rec)
			r.done = true
			turn, done = r.state.Turn, true
		}
	}()

	var before *game.GameState
	if r.cfg.Train {
		before = r.state.Clone()
	}

	for i := range r.actions {
		r.actions[i] = -1
		if r.state.Snakes[i].Dead {
			continue
		}
		r.actions[i] = r.strategies[i].ChooseAction(i, r.state)
	}

	rewards := rules.Step(r.state, r.actions, r.rng, r.cfg.Rules)
	copy(r.rewards, rewards)

	if r.cfg.Train {
		for i, s := range r.strategies {
			if before.Snakes[i].Dead {
				continue
			}
			s.Update(i, before, r.actions[i], r.state, rewards[i], r.state.Snakes[i].Dead)
			r.updates++
		}
	}

	r.done = r.state.Terminal()
	return r.state.Turn, r.done
}

// Run advances to completion as fast as possible.
func (r *Runner) Run() Result {
	for !r.done {
		r.Advance()
	}
	return r.result()
}

// RunPaced advances one tick per delay and hands every tick to onTick. It
// stops early only when ctx is done, in which case Result.Err is ctx.Err().
func (r *Runner) RunPaced(ctx context.Context, delay time.Duration, onTick func(Frame)) Result {
	if delay <= 0 {
		delay = time.Millisecond
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	if onTick != nil {
		onTick(r.frame())
	}
	for !r.done {
		select {
		case <-ctx.Done():
			res := r.result()
			res.Err = ctx.Err()
			return res
		case <-ticker.C:
		}
		r.Advance()
		if onTick != nil {
			onTick(r.frame())
		}
	}
	return r.result()
}

// LastActions returns the actions applied on the latest tick. Snakes that
// did not move, and every snake before the first tick, report -1.
func (r *Runner) LastActions() []game.Action {
	return append([]game.Action(nil), r.actions...)
}

// LastRewards returns the rewards handed out on the latest tick.
func (r *Runner) LastRewards() []float64 {
	return append([]float64(nil), r.rewards...)
}

func (r *Runner) frame() Frame {
	return Frame{
		EpisodeID: r.id,
		Turn:      r.state.Turn,
		State:     r.state.Clone(),
		Actions:   r.LastActions(),
		Rewards:   r.LastRewards(),
	}
}

func (r *Runner) result() Result {
	var d time.Duration
	if !r.started.IsZero() {
		d = time.Since(r.started)
	}
	return Result{
		ID:       r.id,
		Turns:    r.state.Turn,
		Scores:   r.Scores(),
		Updates:  r.updates,
		Duration: d,
		Err:      r.err,
	}
}
