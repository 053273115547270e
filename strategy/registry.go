package strategy

import (
	"fmt"
	"strings"

	"github.com/brensch/snekq/game"
)

// Kinds lists the names New understands. Constant strategies take a
// direction suffix, e.g. "constant-left"; bare "constant" moves up.
var Kinds = []string{"tabular", "linear", "constant"}

// New builds a strategy by kind name.
func New(kind string, p Params) (Strategy, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch {
	case kind == "tabular":
		t, err := NewTabularQLearning(p)
		if err != nil {
			return nil, err
		}
		return t, nil
	case kind == "linear":
		l, err := NewLinearQLearning(p)
		if err != nil {
			return nil, err
		}
		return l, nil
	case kind == "constant":
		return NewConstant(game.ActionUp), nil
	case strings.HasPrefix(kind, "constant-"):
		dir := strings.TrimPrefix(kind, "constant-")
		for a := game.Action(0); a < game.NumActions; a++ {
			if strings.EqualFold(a.String(), dir) {
				return NewConstant(a), nil
			}
		}
		return nil, fmt.Errorf("constant strategy: unknown direction %q", dir)
	}
	return nil, fmt.Errorf("unknown strategy %q (want one of %s)", kind, strings.Join(Kinds, ", "))
}

// NewList builds one strategy per comma-separated kind. Each learner gets its
// own seed derived from p.Seed so agents of the same kind do not explore in
// lockstep.
func NewList(kinds string, p Params) ([]Strategy, error) {
	var out []Strategy
	for i, k := range strings.Split(kinds, ",") {
		if strings.TrimSpace(k) == "" {
			continue
		}
		sp := p
		sp.Seed = p.Seed + int64(i)*104729
		s, err := New(k, sp)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no strategies in %q", kinds)
	}
	return out, nil
}

// Names returns Name() for each strategy, in slot order.
func Names(strategies []Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}
	return names
}
