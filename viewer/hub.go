// Package viewer streams a running trainer to browsers: visualize frames and
// batch results go out over a websocket, history is served as JSON.
package viewer

import (
	"encoding/json"
	"sync"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
)

const (
	MessageFrame = "frame"
	MessageBatch = "batch"
)

// Point is the JSON form of a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Item struct {
	Type string `json:"type"`
	Point
}

type Snake struct {
	Agent      int     `json:"agent"`
	Alive      bool    `json:"alive"`
	Body       []Point `json:"body"`
	Action     string  `json:"action,omitempty"`
	Score      float64 `json:"score"`
	Invincible int     `json:"invincible,omitempty"`
	Sick       int     `json:"sick,omitempty"`
}

type FrameMessage struct {
	Type      string  `json:"type"`
	Cycle     int     `json:"cycle"`
	EpisodeID string  `json:"episode_id"`
	Turn      int     `json:"turn"`
	MaxTurns  int     `json:"max_turns"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Walls     []Point `json:"walls,omitempty"`
	Items     []Item  `json:"items"`
	Snakes    []Snake `json:"snakes"`
}

type BatchMessage struct {
	Type       string    `json:"type"`
	Cycle      int       `json:"cycle"`
	Mode       string    `json:"mode"`
	Strategies []string  `json:"strategies"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Ticks      int64     `json:"ticks"`
	Mean       []float64 `json:"mean"`
	StdDev     []float64 `json:"stddev"`
	DurationMs int64     `json:"duration_ms"`
}

// Hub fans messages out to every connected spectator. Slow spectators drop
// messages rather than stall the trainer.
type Hub struct {
	mu         sync.Mutex
	clients    map[chan []byte]struct{}
	history    []BatchMessage
	maxHistory int
	lastFrame  []byte
}

func NewHub(maxHistory int) *Hub {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Hub{
		clients:    make(map[chan []byte]struct{}),
		maxHistory: maxHistory,
	}
}

// Subscribe registers a spectator. The returned channel is primed with the
// latest frame, if any, and closed by Unsubscribe.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
	if h.lastFrame != nil {
		ch <- h.lastFrame
	}
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// History returns the retained batch results, oldest first.
func (h *Hub) History() []BatchMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]BatchMessage(nil), h.history...)
}

func (h *Hub) PublishFrame(cycle int, f episode.Frame) error {
	data, err := json.Marshal(NewFrameMessage(cycle, f))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFrame = data
	h.broadcastLocked(data)
	return nil
}

func (h *Hub) PublishBatch(cycle int, names []string, res batch.Result) error {
	msg := BatchMessage{
		Type:       MessageBatch,
		Cycle:      cycle,
		Mode:       res.Mode,
		Strategies: names,
		Completed:  res.Completed,
		Failed:     res.Failed,
		Ticks:      res.Ticks,
		Mean:       res.Mean,
		StdDev:     res.StdDev,
		DurationMs: res.Duration.Milliseconds(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, msg)
	if len(h.history) > h.maxHistory {
		h.history = h.history[len(h.history)-h.maxHistory:]
	}
	h.broadcastLocked(data)
	return nil
}

func (h *Hub) broadcastLocked(data []byte) {
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
}

func NewFrameMessage(cycle int, f episode.Frame) FrameMessage {
	s := f.State
	msg := FrameMessage{
		Type:      MessageFrame,
		Cycle:     cycle,
		EpisodeID: f.EpisodeID,
		Turn:      s.Turn,
		MaxTurns:  s.MaxTurns,
		Width:     s.Width,
		Height:    s.Height,
		Items:     make([]Item, 0, len(s.Items)),
		Snakes:    make([]Snake, 0, len(s.Snakes)),
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if s.Wall(game.Point{X: x, Y: y}) {
				msg.Walls = append(msg.Walls, Point{X: x, Y: y})
			}
		}
	}
	for _, it := range s.Items {
		msg.Items = append(msg.Items, Item{Type: it.Type.String(), Point: Point{X: it.Pos.X, Y: it.Pos.Y}})
	}
	for i, sn := range s.Snakes {
		out := Snake{
			Agent:      i,
			Alive:      !sn.Dead,
			Body:       make([]Point, 0, len(sn.Body)),
			Invincible: sn.InvincibleTimer,
			Sick:       sn.SickTimer,
		}
		if i < len(f.Actions) && f.Actions[i].Valid() {
			out.Action = f.Actions[i].String()
		}
		if i < len(s.Scores) {
			out.Score = s.Scores[i]
		}
		for _, p := range sn.Body {
			out.Body = append(out.Body, Point{X: p.X, Y: p.Y})
		}
		msg.Snakes = append(msg.Snakes, out)
	}
	return msg
}
