package strategy

import (
	"sync/atomic"

	"github.com/brensch/snekq/game"
)

// Constant always plays the same move and learns nothing. Update calls are
// still counted.
type Constant struct {
	Action  game.Action
	train   atomic.Bool
	updates atomic.Int64
}

func NewConstant(a game.Action) *Constant {
	return &Constant{Action: a}
}

func (c *Constant) Name() string { return "constant-" + c.Action.String() }

func (c *Constant) ChooseAction(int, *game.GameState) game.Action { return c.Action }

func (c *Constant) Update(int, *game.GameState, game.Action, *game.GameState, float64, bool) {
	c.updates.Add(1)
}

func (c *Constant) SetTrainMode(train bool) { c.train.Store(train) }
func (c *Constant) TrainMode() bool         { return c.train.Load() }
func (c *Constant) Updates() int64          { return c.updates.Load() }

var (
	_ Strategy = (*Constant)(nil)
	_ Strategy = (*TabularQLearning)(nil)
	_ Strategy = (*LinearQLearning)(nil)
)
