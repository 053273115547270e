package strategy

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/rules"
)

func openState(w, h int, bodies ...[]game.Point) *game.GameState {
	state := &game.GameState{
		Width:    w,
		Height:   h,
		Walls:    make([]bool, w*h),
		MaxTurns: 100,
		Scores:   make([]float64, len(bodies)),
	}
	for i, b := range bodies {
		state.Snakes = append(state.Snakes, game.Snake{ID: i, Body: b, LastAction: game.ActionUp})
	}
	return state
}

func params(eps, gamma, alpha float64) Params {
	return Params{Epsilon: eps, Gamma: gamma, Alpha: alpha, NumActions: game.NumActions, Seed: 7}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	bad := []Params{
		params(-0.1, 0.9, 0.1),
		params(1.1, 0.9, 0.1),
		params(0.1, 1.5, 0.1),
		params(0.1, 0.9, 0),
		params(0.1, 0.9, 2),
		{Epsilon: 0.1, Gamma: 0.9, Alpha: 0.1, NumActions: 5},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, p)
		}
	}
	if _, err := NewTabularQLearning(bad[0]); err == nil {
		t.Fatalf("tabular accepted bad params")
	}
	if _, err := NewLinearQLearning(bad[0]); err == nil {
		t.Fatalf("linear accepted bad params")
	}
}

func TestEpsilonFollowsTrainMode(t *testing.T) {
	tab, err := NewTabularQLearning(params(0.3, 0.9, 0.1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	lin, err := NewLinearQLearning(params(0.3, 0.9, 0.1))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}

	for _, l := range []interface {
		Strategy
		Epsilon() float64
	}{tab, lin} {
		l.SetTrainMode(true)
		if eps := l.Epsilon(); eps != 0.3 || !l.TrainMode() {
			t.Fatalf("%s: train epsilon=%v want 0.3", l.Name(), eps)
		}
		l.SetTrainMode(false)
		if eps := l.Epsilon(); eps != 0 || l.TrainMode() {
			t.Fatalf("%s: eval epsilon=%v want 0", l.Name(), eps)
		}
	}
}

func TestEncodeState_Identity(t *testing.T) {
	a := openState(4, 3, []game.Point{{X: 1, Y: 1}, {X: 1, Y: 2}})
	a.Walls[0] = true
	a.Items = []game.Item{{Type: game.Box, Pos: game.Point{X: 3, Y: 0}}}
	b := a.Clone()

	ka, kb := EncodeState(0, a), EncodeState(0, b)
	if ka != kb {
		t.Fatalf("equal grids encode differently:\n%s\n%s", ka, kb)
	}
	if n := len(strings.Split(ka, "|")); n != 12 {
		t.Fatalf("tokens=%d want 12", n)
	}
	want := "W|.|.|X|.|H|.|.|.|B1|.|."
	if ka != want {
		t.Fatalf("key=%s want=%s", ka, want)
	}
}

func TestEncodeState_Sensitivity(t *testing.T) {
	base := openState(5, 5,
		[]game.Point{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}},
		[]game.Point{{X: 0, Y: 4}, {X: 1, Y: 4}},
	)
	base.Snakes[1].Dead = true
	key := EncodeState(0, base)

	moved := base.Clone()
	moved.Snakes[0].Body[0] = game.Point{X: 1, Y: 2}

	item := base.Clone()
	item.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 0, Y: 0}}}

	kind := item.Clone()
	kind.Items[0].Type = game.SickBall

	// Same occupied cells, different segment order.
	order := base.Clone()
	order.Snakes[0].Body[1], order.Snakes[0].Body[2] = order.Snakes[0].Body[2], order.Snakes[0].Body[1]

	deadMoved := base.Clone()
	deadMoved.Snakes[1].Body = []game.Point{{X: 4, Y: 0}, {X: 4, Y: 1}}

	revived := base.Clone()
	revived.Snakes[1].Dead = false

	underHead := base.Clone()
	underHead.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 2, Y: 2}}}

	underDead := base.Clone()
	underDead.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 1, Y: 4}}}

	seen := map[string]string{key: "base"}
	for name, s := range map[string]*game.GameState{
		"moved":      moved,
		"item":       item,
		"kind":       kind,
		"order":      order,
		"dead-moved": deadMoved,
		"revived":    revived,
		"under-head": underHead,
		"under-dead": underDead,
	} {
		k := EncodeState(0, s)
		if prev, ok := seen[k]; ok {
			t.Fatalf("%s collides with %s: %s", name, prev, k)
		}
		seen[k] = name
	}
}

func TestEncodeState_SickHeadOverApple(t *testing.T) {
	s := openState(5, 5, []game.Point{{X: 1, Y: 2}})
	s.Snakes[0].SickTimer = 5
	s.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 2, Y: 2}}}

	rules.Step(s, []game.Action{game.ActionRight}, rand.New(rand.NewSource(1)), rules.DefaultSettings)
	if len(s.Items) != 1 || s.Snakes[0].Head() != (game.Point{X: 2, Y: 2}) {
		t.Fatalf("sick snake should walk over the apple: items=%v head=%v", s.Items, s.Snakes[0].Head())
	}

	bare := s.Clone()
	bare.Items = nil
	onApple, onEmpty := EncodeState(0, s), EncodeState(0, bare)
	if onApple == onEmpty {
		t.Fatalf("apple under head is invisible: %s", onApple)
	}
	if !strings.Contains(onApple, "|A+H|") {
		t.Fatalf("key=%s want stacked A+H cell", onApple)
	}
}

func TestEncodeState_OtherSnakes(t *testing.T) {
	s := openState(3, 1,
		[]game.Point{{X: 0, Y: 0}},
		[]game.Point{{X: 1, Y: 0}, {X: 2, Y: 0}},
	)
	if got := EncodeState(0, s); got != "H|O1|o1.1" {
		t.Fatalf("agent 0 view=%s", got)
	}
	if got := EncodeState(1, s); got != "O0|H|B1" {
		t.Fatalf("agent 1 view=%s", got)
	}
	s.Snakes[0].Dead = true
	if got := EncodeState(1, s); got != "D0|H|B1" {
		t.Fatalf("dead snake view=%s", got)
	}
	if got := EncodeState(0, s); got != "h|O1|o1.1" {
		t.Fatalf("own dead view=%s", got)
	}
}

func TestTabular_ConvergesWithZeroGamma(t *testing.T) {
	tab, err := NewTabularQLearning(params(0, 0, 0.5))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	s := openState(4, 4, []game.Point{{X: 1, Y: 1}})
	next := s.Clone()
	next.Snakes[0].Body[0] = game.Point{X: 2, Y: 1}

	for i := 0; i < 60; i++ {
		tab.Update(0, s, game.ActionRight, next, 3, false)
	}
	q := tab.QValues(0, s)
	if math.Abs(q[game.ActionRight]-3) > 1e-9 {
		t.Fatalf("Q(s,Right)=%v want 3", q[game.ActionRight])
	}
	if q[game.ActionUp] != 0 {
		t.Fatalf("untouched action moved: %v", q)
	}
	if tab.Updates() != 60 {
		t.Fatalf("updates=%d want 60", tab.Updates())
	}
	if tab.TableSize() != 2 {
		t.Fatalf("table size=%d want 2 (state and next)", tab.TableSize())
	}
}

func TestTabular_TerminalDropsBootstrap(t *testing.T) {
	tab, err := NewTabularQLearning(params(0, 1, 1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	s := openState(4, 4, []game.Point{{X: 1, Y: 1}})
	next := s.Clone()
	next.Snakes[0].Body[0] = game.Point{X: 2, Y: 1}

	// Give the next state a large value, then check terminal ignores it.
	tab.Update(0, next, game.ActionUp, s, 10, true)
	tab.Update(0, s, game.ActionRight, next, 1, true)
	if q := tab.QValues(0, s)[game.ActionRight]; q != 1 {
		t.Fatalf("terminal Q=%v want 1", q)
	}
	tab.Update(0, s, game.ActionRight, next, 1, false)
	if q := tab.QValues(0, s)[game.ActionRight]; q != 11 {
		t.Fatalf("bootstrapped Q=%v want 11", q)
	}
}

func TestTabular_GreedyInEvalMode(t *testing.T) {
	tab, err := NewTabularQLearning(params(1, 0, 1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	s := openState(4, 4, []game.Point{{X: 1, Y: 1}})
	tab.Update(0, s, game.ActionLeft, s, 5, true)
	tab.SetTrainMode(false)
	for i := 0; i < 50; i++ {
		if a := tab.ChooseAction(0, s); a != game.ActionLeft {
			t.Fatalf("eval choice=%s want Left", a)
		}
	}

	fresh := openState(5, 5, []game.Point{{X: 1, Y: 1}})
	if a := tab.ChooseAction(0, fresh); a != game.ActionUp {
		t.Fatalf("all-zero tie should pick the first action, got %s", a)
	}
}

func TestTabular_ExploresFullActionSet(t *testing.T) {
	tab, err := NewTabularQLearning(params(1, 0.9, 0.1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	s := openState(5, 5, []game.Point{{X: 2, Y: 2}, {X: 2, Y: 3}})
	seen := map[game.Action]bool{}
	for i := 0; i < 400; i++ {
		seen[tab.ChooseAction(0, s)] = true
	}
	// Includes the reversal; the tabular learner does not filter by legality.
	if len(seen) != game.NumActions {
		t.Fatalf("explored %v, want all actions", seen)
	}
}

func TestFeatures(t *testing.T) {
	s := openState(10, 10, []game.Point{{X: 5, Y: 5}})
	s.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 7, Y: 5}}}

	near := Features(0, s, game.ActionRight)
	far := Features(0, s, game.ActionLeft)
	t.Logf("right=%v left=%v", near, far)

	if near[0] != 1 || near[1] != 1 || math.Abs(near[2]-0.95) > 1e-12 || near[3] != 1 {
		t.Fatalf("right features=%v", near)
	}
	if far[1] != 0 || math.Abs(far[2]-0.85) > 1e-12 {
		t.Fatalf("left features=%v", far)
	}

	s.Items = nil
	if f := Features(0, s, game.ActionUp); f[1] != 0 || f[2] != 0 {
		t.Fatalf("no items should zero f1 and f2: %v", f)
	}
}

func TestFeatures_NextToOwnBody(t *testing.T) {
	body := []game.Point{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 2}}
	s := openState(7, 7, body)

	if f := Features(0, s, game.ActionRight); f[3] != 0 {
		t.Fatalf("head beside own body should clear f3: %v", f)
	}
	if f := Features(0, s, game.ActionUp); f[3] != 1 {
		t.Fatalf("open move should set f3: %v", f)
	}
	if body[0] != (game.Point{X: 2, Y: 2}) {
		t.Fatalf("features mutated the live body")
	}
}

func TestLinear_OnlyLegalActions(t *testing.T) {
	lin, err := NewLinearQLearning(params(1, 0.9, 0.1))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}

	// Curled snake heading left: Right reverses, Down bites the body.
	s := openState(6, 6, []game.Point{{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}})
	s.Snakes[0].LastAction = game.ActionLeft

	for i := 0; i < 300; i++ {
		a := lin.ChooseAction(0, s)
		if a != game.ActionUp && a != game.ActionLeft {
			t.Fatalf("illegal choice %s", a)
		}
	}

	lin.SetTrainMode(false)
	a := lin.ChooseAction(0, s)
	if a != game.ActionUp && a != game.ActionLeft {
		t.Fatalf("illegal greedy choice %s", a)
	}
}

func TestLinear_FallbackWhenNothingLegal(t *testing.T) {
	lin, err := NewLinearQLearning(params(0, 0.9, 0.1))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}
	s := openState(5, 5, []game.Point{{X: 2, Y: 2}})
	s.Snakes[0].Dead = true
	if a := lin.ChooseAction(0, s); a != FallbackAction {
		t.Fatalf("choice=%s want fallback", a)
	}
}

func TestLinear_UpdateMovesWeights(t *testing.T) {
	lin, err := NewLinearQLearning(params(0, 0, 0.5))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}
	before := lin.Weights()
	for _, w := range before {
		if w < 0 || w >= 1 {
			t.Fatalf("initial weight %v outside [0,1)", w)
		}
	}

	s := openState(10, 10, []game.Point{{X: 5, Y: 5}})
	s.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 7, Y: 5}}}
	f := Features(0, s, game.ActionRight)
	q0 := 0.0
	for i := range f {
		q0 += before[i] * f[i]
	}

	lin.Update(0, s, game.ActionRight, s, 10, true)

	after := lin.Weights()
	tdErr := 10 - q0
	for i := range after {
		want := before[i] + 0.5*tdErr*f[i]
		if math.Abs(after[i]-want) > 1e-9 {
			t.Fatalf("w[%d]=%v want %v", i, after[i], want)
		}
	}

	after[0] = 1000
	if lin.Weights()[0] == 1000 {
		t.Fatalf("Weights leaked internal slice")
	}
}

func withWeights(t *testing.T, l *LinearQLearning, w ...float64) {
	t.Helper()
	if len(w) != NumFeatures {
		t.Fatalf("weights=%v want %d values", w, NumFeatures)
	}
	l.mu.Lock()
	copy(l.weights, w)
	l.mu.Unlock()
}

// curled is a snake heading left with its body wrapped under the head:
// Right reverses and Down bites the body, so only Up and Left survive.
func curled() *game.GameState {
	s := openState(6, 6, []game.Point{{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}})
	s.Snakes[0].LastAction = game.ActionLeft
	return s
}

// appleAhead has a one-cell snake at (5,5) and an apple two cells right.
// Features: Right=[1,1,0.95,1], Up/Down/Left=[1,0,0.85,1].
func appleAhead() *game.GameState {
	s := openState(10, 10, []game.Point{{X: 5, Y: 5}})
	s.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 7, Y: 5}}}
	return s
}

func TestLinear_GreedyPicksBestLegal(t *testing.T) {
	headingDown := openState(10, 10, []game.Point{{X: 5, Y: 5}, {X: 5, Y: 4}})
	headingDown.Snakes[0].LastAction = game.ActionDown

	tests := []struct {
		name    string
		state   *game.GameState
		weights []float64
		want    game.Action
	}{
		{"apple pull", appleAhead(), []float64{0, 1, 0, 0}, game.ActionRight},
		{"distance pull", appleAhead(), []float64{0, 0, 1, 0}, game.ActionRight},
		{"apple push ties to first", appleAhead(), []float64{0, 0, -1, 0}, game.ActionUp},
		{"all zero ties to first", appleAhead(), []float64{0, 0, 0, 0}, game.ActionUp},
		{"tie skips illegal first", headingDown, []float64{1, 0, 0, 0}, game.ActionDown},
		// Down and Right score higher but are illegal.
		{"illegal best ignored", curled(), []float64{0.5, 0, 0, -1}, game.ActionUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := NewLinearQLearning(params(0, 0.9, 0.1))
			if err != nil {
				t.Fatalf("linear: %v", err)
			}
			withWeights(t, lin, tt.weights...)
			for i := 0; i < 20; i++ {
				if a := lin.ChooseAction(0, tt.state); a != tt.want {
					t.Fatalf("choice=%s want %s", a, tt.want)
				}
			}
		})
	}
}

func TestLinear_ExploresLegalSetUniformly(t *testing.T) {
	headingUp := openState(10, 10, []game.Point{{X: 5, Y: 5}, {X: 5, Y: 6}})

	tests := []struct {
		name  string
		state *game.GameState
		legal []game.Action
	}{
		{"single cell", appleAhead(), []game.Action{game.ActionUp, game.ActionDown, game.ActionLeft, game.ActionRight}},
		{"no reversal", headingUp, []game.Action{game.ActionUp, game.ActionLeft, game.ActionRight}},
		{"no self bite", curled(), []game.Action{game.ActionUp, game.ActionLeft}},
	}
	const draws = 6000
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := NewLinearQLearning(params(1, 0.9, 0.1))
			if err != nil {
				t.Fatalf("linear: %v", err)
			}
			// Greedy would always pick Right or Up; exploration must ignore weights.
			withWeights(t, lin, 0, 100, 100, 0)

			counts := map[game.Action]int{}
			for i := 0; i < draws; i++ {
				counts[lin.ChooseAction(0, tt.state)]++
			}
			if len(counts) != len(tt.legal) {
				t.Fatalf("counts=%v want exactly %v", counts, tt.legal)
			}
			expected := float64(draws) / float64(len(tt.legal))
			for _, a := range tt.legal {
				if got := float64(counts[a]); math.Abs(got-expected) > 0.1*expected {
					t.Fatalf("%s drawn %v times, want about %v (counts=%v)", a, got, expected, counts)
				}
			}
		})
	}
}

func TestLinear_UpdateTarget(t *testing.T) {
	stepped := openState(10, 10, []game.Point{{X: 6, Y: 5}})
	stepped.Snakes[0].LastAction = game.ActionRight
	stepped.Items = []game.Item{{Type: game.Apple, Pos: game.Point{X: 7, Y: 5}}}

	deadNext := stepped.Clone()
	deadNext.Snakes[0].Dead = true

	// Q(s,Right) = w·[1,1,0.95,1] for every case below.
	tests := []struct {
		name     string
		weights  []float64
		gamma    float64
		reward   float64
		next     *game.GameState
		terminal bool
		tdErr    float64
	}{
		// Q=0.985; next best is Right onto the apple, w·[1,0,1,1]=0.8.
		{"bootstraps from best next", []float64{0.1, 0.2, 0.3, 0.4}, 0.5, 1, stepped, false, 1 + 0.5*0.8 - 0.985},
		{"terminal drops future", []float64{0.1, 0.2, 0.3, 0.4}, 0.5, 1, stepped, true, 1 - 0.985},
		// Q=-0.5; legal next moves score -0.5, illegal ones would score 0.5.
		{"max over legal next only", []float64{0.5, 0, 0, -1}, 1, 2, curled(), false, 2 - 0.5 + 0.5},
		{"no legal next means zero future", []float64{0.1, 0.2, 0.3, 0.4}, 0.5, 1, deadNext, false, 1 - 0.985},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := NewLinearQLearning(params(0, tt.gamma, 0.1))
			if err != nil {
				t.Fatalf("linear: %v", err)
			}
			withWeights(t, lin, tt.weights...)

			lin.Update(0, appleAhead(), game.ActionRight, tt.next, tt.reward, tt.terminal)

			f := []float64{1, 1, 0.95, 1}
			got := lin.Weights()
			for i := range got {
				want := tt.weights[i] + 0.1*tt.tdErr*f[i]
				if math.Abs(got[i]-want) > 1e-9 {
					t.Fatalf("w=%v, w[%d]=%v want %v", got, i, got[i], want)
				}
			}
		})
	}
}

func TestFrozen(t *testing.T) {
	tab, err := NewTabularQLearning(params(1, 0, 1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	s := openState(5, 5, []game.Point{{X: 2, Y: 2}})
	tab.Update(0, s, game.ActionLeft, s, 5, true)

	lin, err := NewLinearQLearning(params(1, 0.9, 0.1))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}
	withWeights(t, lin, 0, 1, 0, 0)

	tests := []struct {
		base  Strategy
		state *game.GameState
		want  game.Action
	}{
		{tab, s, game.ActionLeft},
		{lin, appleAhead(), game.ActionRight},
		{NewConstant(game.ActionDown), s, game.ActionDown},
	}
	for _, tt := range tests {
		t.Run(tt.base.Name(), func(t *testing.T) {
			tt.base.SetTrainMode(true)
			before := tt.base.Updates()
			f := Frozen(tt.base)
			if f.Name() != tt.base.Name() {
				t.Fatalf("name=%s", f.Name())
			}
			f.SetTrainMode(true)
			if f.TrainMode() {
				t.Fatalf("frozen view reports train mode")
			}
			// Base explores with epsilon 1; the frozen view never does.
			for i := 0; i < 50; i++ {
				if a := f.ChooseAction(0, tt.state); a != tt.want {
					t.Fatalf("choice=%s want %s", a, tt.want)
				}
			}
			f.Update(0, tt.state, tt.want, tt.state, 100, true)
			f.SetTrainMode(false)
			if !tt.base.TrainMode() || tt.base.Updates() != before || f.Updates() != 0 {
				t.Fatalf("frozen view touched its base: train=%v updates=%d", tt.base.TrainMode(), tt.base.Updates())
			}
		})
	}
	if q := tab.QValues(0, s); q[game.ActionLeft] != 5 {
		t.Fatalf("frozen update leaked into the table: %v", q)
	}
	if w := lin.Weights(); w[1] != 1 || w[0] != 0 {
		t.Fatalf("frozen update leaked into the weights: %v", w)
	}
}

func TestConcurrentUpdatesAreCounted(t *testing.T) {
	tab, err := NewTabularQLearning(params(0.2, 0.9, 0.1))
	if err != nil {
		t.Fatalf("tabular: %v", err)
	}
	lin, err := NewLinearQLearning(params(0.2, 0.9, 0.1))
	if err != nil {
		t.Fatalf("linear: %v", err)
	}

	const workers, calls = 8, 200
	for _, st := range []Strategy{tab, lin, NewConstant(game.ActionLeft)} {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				s := openState(6, 6, []game.Point{{X: w % 6, Y: 0}})
				for i := 0; i < calls; i++ {
					a := st.ChooseAction(0, s)
					next := s.Clone()
					next.Snakes[0].Body[0].Y = (i + 1) % 6
					st.Update(0, s, a, next, 1, false)
				}
			}(w)
		}
		wg.Wait()
		if got := st.Updates(); got != workers*calls {
			t.Fatalf("%s: updates=%d want %d", st.Name(), got, workers*calls)
		}
	}
}

func TestConstant(t *testing.T) {
	c := NewConstant(game.ActionRight)
	if c.ChooseAction(0, nil) != game.ActionRight || c.Name() != "constant-Right" {
		t.Fatalf("constant strategy misbehaves: %s", c.Name())
	}
	c.SetTrainMode(true)
	if !c.TrainMode() {
		t.Fatalf("train mode not stored")
	}
}

func TestNewByKind(t *testing.T) {
	p := params(0.1, 0.9, 0.1)
	for kind, want := range map[string]string{
		"tabular":        "tabular",
		" Linear ":       "linear",
		"constant":       "constant-Up",
		"constant-left":  "constant-Left",
		"CONSTANT-RIGHT": "constant-Right",
	} {
		s, err := New(kind, p)
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		if s.Name() != want {
			t.Fatalf("New(%q).Name()=%q want %q", kind, s.Name(), want)
		}
	}
	for _, bad := range []string{"", "sarsa", "constant-sideways"} {
		if _, err := New(bad, p); err == nil {
			t.Fatalf("New(%q) should fail", bad)
		}
	}
	if _, err := New("tabular", params(2, 0.9, 0.1)); err == nil {
		t.Fatalf("invalid params should fail")
	}
}

func TestNewList(t *testing.T) {
	list, err := NewList("tabular, linear,,constant-down", params(0.1, 0.9, 0.1))
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	names := Names(list)
	if strings.Join(names, ",") != "tabular,linear,constant-Down" {
		t.Fatalf("names=%v", names)
	}
	if _, err := NewList(" , ", params(0.1, 0.9, 0.1)); err == nil {
		t.Fatalf("empty list should fail")
	}
	if _, err := NewList("tabular,nope", params(0.1, 0.9, 0.1)); err == nil || !strings.Contains(err.Error(), "agent 1") {
		t.Fatalf("err=%v want agent 1 failure", err)
	}
}
