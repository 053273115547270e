package strategy

import (
	"strconv"
	"strings"

	"github.com/brensch/snekq/game"
)

// TabularQLearning keeps one action-value vector per distinct grid.
type TabularQLearning struct {
	learner
	q map[string][]float64
}

// NewTabularQLearning returns a learner with an empty table.
func NewTabularQLearning(p Params) (*TabularQLearning, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t := &TabularQLearning{q: make(map[string][]float64)}
	t.init(p)
	return t, nil
}

func (t *TabularQLearning) Name() string { return "tabular" }

func (t *TabularQLearning) ChooseAction(agent int, state *game.GameState) game.Action {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.explore() {
		return game.Action(t.rng.Intn(t.params.NumActions))
	}
	return game.Action(argmax(t.values(EncodeState(agent, state))))
}

// GreedyAction is ChooseAction with exploration off.
func (t *TabularQLearning) GreedyAction(agent int, state *game.GameState) game.Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return game.Action(argmax(t.values(EncodeState(agent, state))))
}

func (t *TabularQLearning) Update(agent int, state *game.GameState, action game.Action, next *game.GameState, reward float64, terminal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates++

	if int(action) < 0 || int(action) >= t.params.NumActions {
		return
	}
	q := t.values(EncodeState(agent, state))
	future := 0.0
	if !terminal {
		future = maxOf(t.values(EncodeState(agent, next)))
	}
	q[action] += t.params.Alpha * (reward + t.params.Gamma*future - q[action])
}

// QValues returns a copy of the action values for the agent's view of state.
// Unseen states report zeros and are not inserted.
func (t *TabularQLearning) QValues(agent int, state *game.GameState) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]float64, t.params.NumActions)
	copy(out, t.q[EncodeState(agent, state)])
	return out
}

// TableSize is the number of distinct states seen so far.
func (t *TabularQLearning) TableSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.q)
}

func (t *TabularQLearning) values(key string) []float64 {
	q, ok := t.q[key]
	if !ok {
		q = make([]float64, t.params.NumActions)
		t.q[key] = q
	}
	return q
}

// EncodeState renders the grid as seen by agent into a table key: one token
// per cell in row-major order, joined by '|'. A cell holding several things
// lists them bottom-up joined by '+' (e.g. "A+H" for a head on an apple).
//
//	W     wall             .     empty
//	A     apple            X     box
//	I     invincibility    K     sick ball
//	Oi    snake i head     oi.k  snake i body seg k
//	Di    dead snake head  di.k  dead snake body seg k
//	H     own head         Bk    own body seg k
//	h     own dead head    bk    own dead body seg k
func EncodeState(agent int, state *game.GameState) string {
	if state == nil {
		return ""
	}
	w, h := state.Width, state.Height
	cells := make([][]string, w*h)
	for i := range cells {
		if len(state.Walls) > i && state.Walls[i] {
			cells[i] = append(cells[i], "W")
		}
	}

	add := func(p game.Point, tok string) {
		p = state.Wrap(p)
		i := p.Y*w + p.X
		cells[i] = append(cells[i], tok)
	}

	for _, it := range state.Items {
		add(it.Pos, itemToken(it.Type))
	}
	for i, s := range state.Snakes {
		if i == agent {
			continue
		}
		head, seg := "O", "o"
		if s.Dead {
			head, seg = "D", "d"
		}
		id := strconv.Itoa(i)
		for j, p := range s.Body {
			if j == 0 {
				add(p, head+id)
			} else {
				add(p, seg+id+"."+strconv.Itoa(j))
			}
		}
	}
	if agent >= 0 && agent < len(state.Snakes) {
		own := state.Snakes[agent]
		head, seg := "H", "B"
		if own.Dead {
			head, seg = "h", "b"
		}
		for j := len(own.Body) - 1; j >= 1; j-- {
			add(own.Body[j], seg+strconv.Itoa(j))
		}
		if len(own.Body) > 0 {
			add(own.Body[0], head)
		}
	}

	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte('|')
		}
		if len(c) == 0 {
			b.WriteByte('.')
			continue
		}
		b.WriteString(strings.Join(c, "+"))
	}
	return b.String()
}

func itemToken(t game.ItemType) string {
	switch t {
	case game.Apple:
		return "A"
	case game.Box:
		return "X"
	case game.InvincibilityBall:
		return "I"
	case game.SickBall:
		return "K"
	}
	return "?"
}
