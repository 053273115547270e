package game

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidLayout is wrapped by every layout validation failure.
var ErrInvalidLayout = errors.New("invalid layout")

// SnakeStart is the initial head position and heading of one snake.
type SnakeStart struct {
	Pos    Point
	Action Action
}

// Layout is a parsed map: grid size, wall mask, starting snakes and items.
// It is a template; NewState copies it so episodes never share mutable data.
type Layout struct {
	Name   string
	Width  int
	Height int
	Walls  []bool
	Snakes []SnakeStart
	Items  []Item
}

// Validate reports configuration errors. All errors wrap ErrInvalidLayout.
func (l *Layout) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: nil layout", ErrInvalidLayout)
	}
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidLayout, l.Width, l.Height)
	}
	if len(l.Walls) != 0 && len(l.Walls) != l.Width*l.Height {
		return fmt.Errorf("%w: wall mask has %d cells, want %d", ErrInvalidLayout, len(l.Walls), l.Width*l.Height)
	}
	if len(l.Snakes) == 0 {
		return fmt.Errorf("%w: no snakes", ErrInvalidLayout)
	}

	inside := func(p Point) bool {
		return p.X >= 0 && p.X < l.Width && p.Y >= 0 && p.Y < l.Height
	}
	wall := func(p Point) bool {
		return len(l.Walls) != 0 && l.Walls[p.Y*l.Width+p.X]
	}

	// seen holds every snake start and item cell; nothing may share a cell.
	seen := make(map[Point]bool, len(l.Snakes)+len(l.Items))
	for i, s := range l.Snakes {
		if !inside(s.Pos) {
			return fmt.Errorf("%w: snake %d starts outside the grid at (%d,%d)", ErrInvalidLayout, i, s.Pos.X, s.Pos.Y)
		}
		if wall(s.Pos) {
			return fmt.Errorf("%w: snake %d starts on a wall at (%d,%d)", ErrInvalidLayout, i, s.Pos.X, s.Pos.Y)
		}
		if seen[s.Pos] {
			return fmt.Errorf("%w: snakes share start (%d,%d)", ErrInvalidLayout, s.Pos.X, s.Pos.Y)
		}
		seen[s.Pos] = true
	}
	for _, it := range l.Items {
		if !inside(it.Pos) {
			return fmt.Errorf("%w: %s outside the grid at (%d,%d)", ErrInvalidLayout, it.Type, it.Pos.X, it.Pos.Y)
		}
		if wall(it.Pos) {
			return fmt.Errorf("%w: %s on a wall at (%d,%d)", ErrInvalidLayout, it.Type, it.Pos.X, it.Pos.Y)
		}
		if seen[it.Pos] {
			return fmt.Errorf("%w: %s on an occupied cell at (%d,%d)", ErrInvalidLayout, it.Type, it.Pos.X, it.Pos.Y)
		}
		seen[it.Pos] = true
	}
	return nil
}

// NewState builds a fresh episode state from the layout.
func (l *Layout) NewState(maxTurns int) *GameState {
	walls := l.Walls
	if len(walls) == 0 {
		walls = make([]bool, l.Width*l.Height)
	} else {
		walls = append([]bool(nil), walls...)
	}

	state := &GameState{
		Width:    l.Width,
		Height:   l.Height,
		Walls:    walls,
		MaxTurns: maxTurns,
		Scores:   make([]float64, len(l.Snakes)),
		Snakes:   make([]Snake, len(l.Snakes)),
	}
	if len(l.Items) > 0 {
		state.Items = append([]Item(nil), l.Items...)
	}
	for i, s := range l.Snakes {
		state.Snakes[i] = Snake{
			ID:         i,
			Body:       []Point{s.Pos},
			LastAction: s.Action,
		}
	}
	return state
}

// ParseLayout reads the text layout format:
//
//	%  wall          .  or space  empty
//	S  snake start   A  apple
//	B  box           I  invincibility ball
//	X  sick ball
//
// Rows may differ in length; short rows are padded with empty cells.
// Snake ids follow reading order.
func ParseLayout(name string, r io.Reader) (*Layout, error) {
	var rows []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" && len(rows) == 0 {
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read layout %s: %w", name, err)
	}
	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}

	l := &Layout{Name: name, Height: len(rows)}
	for _, row := range rows {
		if len(row) > l.Width {
			l.Width = len(row)
		}
	}
	if l.Width == 0 || l.Height == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidLayout, name)
	}

	l.Walls = make([]bool, l.Width*l.Height)
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			p := Point{X: x, Y: y}
			switch row[x] {
			case '%':
				l.Walls[y*l.Width+x] = true
			case '.', ' ':
			case 'S':
				l.Snakes = append(l.Snakes, SnakeStart{Pos: p, Action: ActionDown})
			case 'A':
				l.Items = append(l.Items, Item{Type: Apple, Pos: p})
			case 'B':
				l.Items = append(l.Items, Item{Type: Box, Pos: p})
			case 'I':
				l.Items = append(l.Items, Item{Type: InvincibilityBall, Pos: p})
			case 'X':
				l.Items = append(l.Items, Item{Type: SickBall, Pos: p})
			default:
				return nil, fmt.Errorf("%w: %s: unexpected %q at (%d,%d)", ErrInvalidLayout, name, row[x], x, y)
			}
		}
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return l, nil
}

var builtinLayouts = map[string]string{
	"smallNoWall_alone": `
..........
..........
..........
....S.....
..........
..........
.......A..
..........
`,
	"small_alone": `
%%%%%%%%%%
%........%
%..S.....%
%........%
%....A...%
%........%
%%%%%%%%%%
`,
	"small_duel": `
%%%%%%%%%%%%
%..........%
%..S.......%
%.....A....%
%....B.....%
%.......S..%
%..I....X..%
%%%%%%%%%%%%
`,
}

// BuiltinLayout returns one of the bundled layouts by name.
func BuiltinLayout(name string) (*Layout, error) {
	text, ok := builtinLayouts[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin layout %q", name)
	}
	return ParseLayout(name, strings.NewReader(text))
}

// BuiltinLayoutNames lists the bundled layouts.
func BuiltinLayoutNames() []string {
	return []string{"smallNoWall_alone", "small_alone", "small_duel"}
}

// LoadLayout resolves a builtin layout name first, then falls back to reading
// a layout file from disk. The file's base name becomes the layout name.
func LoadLayout(nameOrPath string) (*Layout, error) {
	if _, ok := builtinLayouts[nameOrPath]; ok {
		return BuiltinLayout(nameOrPath)
	}
	f, err := os.Open(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("layout %q is not builtin (%s) and could not be read: %w",
			nameOrPath, strings.Join(BuiltinLayoutNames(), ", "), err)
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(nameOrPath), filepath.Ext(nameOrPath))
	return ParseLayout(name, f)
}
