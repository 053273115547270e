package strategy

import "github.com/brensch/snekq/game"

// GreedyChooser is implemented by learners that can pick their best known
// move without exploring, whatever their train mode.
type GreedyChooser interface {
	GreedyAction(agent int, state *game.GameState) game.Action
}

// Frozen wraps s so it can play alongside training without disturbing it.
// ChooseAction never explores, Update is dropped and train mode is pinned
// off. Learned parameters are still read live from s.
func Frozen(s Strategy) Strategy {
	return frozen{s: s}
}

type frozen struct {
	s Strategy
}

func (f frozen) Name() string { return f.s.Name() }

func (f frozen) ChooseAction(agent int, state *game.GameState) game.Action {
	if g, ok := f.s.(GreedyChooser); ok {
		return g.GreedyAction(agent, state)
	}
	return f.s.ChooseAction(agent, state)
}

func (frozen) Update(int, *game.GameState, game.Action, *game.GameState, float64, bool) {}
func (frozen) SetTrainMode(bool)                                                        {}
func (frozen) TrainMode() bool                                                          { return false }
func (frozen) Updates() int64                                                           { return 0 }

var (
	_ GreedyChooser = (*TabularQLearning)(nil)
	_ GreedyChooser = (*LinearQLearning)(nil)
)
