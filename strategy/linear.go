package strategy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/rules"
)

// NumFeatures is the length of the linear learner's feature vector.
const NumFeatures = 4

// FallbackAction is played when no move passes both legality filters.
const FallbackAction = game.ActionUp

// LinearQLearning approximates Q(s,a) as weights·features(s,a).
type LinearQLearning struct {
	learner
	weights []float64
}

// NewLinearQLearning returns a learner with weights drawn from [0,1).
func NewLinearQLearning(p Params) (*LinearQLearning, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l := &LinearQLearning{weights: make([]float64, NumFeatures)}
	l.init(p)
	for i := range l.weights {
		l.weights[i] = l.rng.Float64()
	}
	return l, nil
}

func (l *LinearQLearning) Name() string { return "linear" }

// Weights returns a copy of the current weight vector.
func (l *LinearQLearning) Weights() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]float64(nil), l.weights...)
}

func (l *LinearQLearning) ChooseAction(agent int, state *game.GameState) game.Action {
	l.mu.Lock()
	defer l.mu.Unlock()

	legal := l.legalActions(agent, state)
	if len(legal) == 0 {
		return FallbackAction
	}
	if l.explore() {
		return legal[l.rng.Intn(len(legal))]
	}
	best, _ := l.greedy(agent, state, legal)
	return best
}

// GreedyAction is ChooseAction with exploration off.
func (l *LinearQLearning) GreedyAction(agent int, state *game.GameState) game.Action {
	l.mu.Lock()
	defer l.mu.Unlock()

	legal := l.legalActions(agent, state)
	if len(legal) == 0 {
		return FallbackAction
	}
	best, _ := l.greedy(agent, state, legal)
	return best
}

func (l *LinearQLearning) Update(agent int, state *game.GameState, action game.Action, next *game.GameState, reward float64, terminal bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates++

	features := Features(agent, state, action)
	current := floats.Dot(l.weights, features)

	future := 0.0
	if !terminal {
		if legal := l.legalActions(agent, next); len(legal) > 0 {
			_, future = l.greedy(agent, next, legal)
		}
	}

	tdErr := reward + l.params.Gamma*future - current
	floats.AddScaled(l.weights, l.params.Alpha*tdErr, features)
}

// greedy returns the first action with the highest estimated value.
func (l *LinearQLearning) greedy(agent int, state *game.GameState, legal []game.Action) (game.Action, float64) {
	best := legal[0]
	bestQ := math.Inf(-1)
	for _, a := range legal {
		q := floats.Dot(l.weights, Features(agent, state, a))
		if q > bestQ {
			best, bestQ = a, q
		}
	}
	return best, bestQ
}

// legalActions keeps moves the environment allows that also do not run the
// head into the snake's own shifted body.
func (l *LinearQLearning) legalActions(agent int, state *game.GameState) []game.Action {
	if state == nil || agent < 0 || agent >= len(state.Snakes) {
		return nil
	}
	body := state.Snakes[agent].Body
	legal := make([]game.Action, 0, l.params.NumActions)
	for a := game.Action(0); int(a) < l.params.NumActions; a++ {
		if !rules.IsLegalMove(state, agent, a) {
			continue
		}
		if rules.SelfCollides(rules.SimulateStep(body, a, state.Width, state.Height, false)) {
			continue
		}
		legal = append(legal, a)
	}
	return legal
}

// Features computes the feature vector for agent taking action in state:
//
//	f0  bias, always 1
//	f1  items adjacent to the next head
//	f2  1 - min(1, nearest item distance / (width+height)), 0 with no items
//	f3  1 if the next head is not adjacent to its own body beyond the neck
//
// The move is simulated on a copy of the body. Landing on an apple simulates
// growth. Distances wrap around the torus.
func Features(agent int, state *game.GameState, action game.Action) []float64 {
	f := make([]float64, NumFeatures)
	f[0] = 1
	if state == nil || agent < 0 || agent >= len(state.Snakes) || len(state.Snakes[agent].Body) == 0 {
		return f
	}

	w, h := state.Width, state.Height
	body := state.Snakes[agent].Body
	nextHead := rules.MoveHead(body[0], action, w, h)
	idx := state.ItemAt(nextHead)
	grow := idx >= 0 && state.Items[idx].Type == game.Apple
	nextBody := rules.SimulateStep(body, action, w, h, grow)

	minDist := math.MaxInt
	for _, it := range state.Items {
		d := rules.WrapDistance(nextHead, it.Pos, w, h)
		if d == 1 {
			f[1]++
		}
		if d < minDist {
			minDist = d
		}
	}
	if len(state.Items) > 0 {
		f[2] = 1 - math.Min(1, float64(minDist)/float64(w+h))
	}

	f[3] = 1
	if len(body) > 2 {
		for _, p := range nextBody[2:] {
			if rules.IsAdjacent(nextHead, p, w, h) {
				f[3] = 0
				break
			}
		}
	}
	return f
}
