// Package strategy holds the learners that pick moves for snakes.
//
// One Strategy instance serves one agent slot and is shared by every episode
// in a batch, so implementations serialise all access to their learned
// parameters behind a single mutex. The state arguments belong to the calling
// episode and are only read.
package strategy

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/brensch/snekq/game"
)

// Strategy is the contract between an episode runner and a learner.
type Strategy interface {
	Name() string
	ChooseAction(agent int, state *game.GameState) game.Action
	Update(agent int, state *game.GameState, action game.Action, next *game.GameState, reward float64, terminal bool)
	SetTrainMode(train bool)
	TrainMode() bool
	// Updates counts Update calls since construction.
	Updates() int64
}

// Params are the hyperparameters shared by both Q-learners.
type Params struct {
	Epsilon    float64
	Gamma      float64
	Alpha      float64
	NumActions int
	Seed       int64
}

// DefaultParams are the values the trainer uses when flags are not set.
var DefaultParams = Params{
	Epsilon:    0.1,
	Gamma:      0.9,
	Alpha:      0.1,
	NumActions: game.NumActions,
	Seed:       1,
}

// Validate checks every parameter is in range.
func (p Params) Validate() error {
	if p.Epsilon < 0 || p.Epsilon > 1 {
		return fmt.Errorf("epsilon %v out of [0,1]", p.Epsilon)
	}
	if p.Gamma < 0 || p.Gamma > 1 {
		return fmt.Errorf("gamma %v out of [0,1]", p.Gamma)
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		return fmt.Errorf("alpha %v out of (0,1]", p.Alpha)
	}
	if p.NumActions < 1 || p.NumActions > game.NumActions {
		return fmt.Errorf("num actions %d out of [1,%d]", p.NumActions, game.NumActions)
	}
	return nil
}

// learner is the bookkeeping every Q-learner carries: lock, rng, exploration
// rate and update counter. Callers of the unexported methods hold mu.
type learner struct {
	mu      sync.Mutex
	params  Params
	rng     *rand.Rand
	train   bool
	updates int64
}

func (l *learner) init(p Params) {
	l.params = p
	l.rng = rand.New(rand.NewSource(p.Seed))
	l.train = true
}

func (l *learner) SetTrainMode(train bool) {
	l.mu.Lock()
	l.train = train
	l.mu.Unlock()
}

func (l *learner) TrainMode() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.train
}

func (l *learner) Updates() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// Epsilon is the exploration rate currently in effect: the configured base in
// train mode, zero otherwise.
func (l *learner) Epsilon() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epsilon()
}

func (l *learner) epsilon() float64 {
	if !l.train {
		return 0
	}
	return l.params.Epsilon
}

func (l *learner) explore() bool {
	eps := l.epsilon()
	return eps > 0 && l.rng.Float64() < eps
}

// argmax returns the index of the strictly greatest value; ties keep the first.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[argmax(values)]
}
