// Package store persists training history and replayable episodes as
// parquet files.
package store

import (
	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
)

// BatchRow is one agent slot's aggregate for one batch. A batch with two
// snakes produces two rows.
type BatchRow struct {
	RunID    string `parquet:"run_id,dict"`
	Cycle    int32  `parquet:"cycle"`
	Mode     string `parquet:"mode,dict"`
	Layout   string `parquet:"layout,dict"`
	Agent    int32  `parquet:"agent"`
	Strategy string `parquet:"strategy,dict"`

	Episodes  int32 `parquet:"episodes"`
	Completed int32 `parquet:"completed"`
	Failed    int32 `parquet:"failed"`
	Ticks     int64 `parquet:"ticks"`
	Updates   int64 `parquet:"updates"`

	Mean   float64 `parquet:"mean"`
	StdDev float64 `parquet:"stddev"`
	Sum    float64 `parquet:"sum"`

	StartedAtMs int64 `parquet:"started_at_ms"`
	DurationMs  int64 `parquet:"duration_ms"`
}

// TurnRow is a single (episode, turn) snapshot of a visualized episode.
//
// Items are stored column-wise like the rest of the archive format.
// Action is -1 on the initial frame and for snakes that were already dead.
type TurnRow struct {
	RunID     string `parquet:"run_id,dict"`
	EpisodeID string `parquet:"episode_id,dict"`
	Cycle     int32  `parquet:"cycle"`
	Turn      int32  `parquet:"turn"`
	MaxTurns  int32  `parquet:"max_turns"`
	Width     int32  `parquet:"width"`
	Height    int32  `parquet:"height"`

	ItemType []int32 `parquet:"item_type"`
	ItemX    []int32 `parquet:"item_x"`
	ItemY    []int32 `parquet:"item_y"`

	Snakes []TurnSnake `parquet:"snakes"`
}

type TurnSnake struct {
	Agent      int32   `parquet:"agent"`
	Alive      bool    `parquet:"alive"`
	BodyX      []int32 `parquet:"body_x"`
	BodyY      []int32 `parquet:"body_y"`
	Action     int32   `parquet:"action"`
	Reward     float64 `parquet:"reward"`
	Score      float64 `parquet:"score"`
	Invincible int32   `parquet:"invincible"`
	Sick       int32   `parquet:"sick"`
}

// BatchRows flattens a batch result into one row per agent slot.
func BatchRows(runID, layout string, cycle int, names []string, res batch.Result) []BatchRow {
	rows := make([]BatchRow, 0, len(res.Mean))
	for agent := range res.Mean {
		name := ""
		if agent < len(names) {
			name = names[agent]
		}
		rows = append(rows, BatchRow{
			RunID:       runID,
			Cycle:       int32(cycle),
			Mode:        res.Mode,
			Layout:      layout,
			Agent:       int32(agent),
			Strategy:    name,
			Episodes:    int32(res.Episodes),
			Completed:   int32(res.Completed),
			Failed:      int32(res.Failed),
			Ticks:       res.Ticks,
			Updates:     res.Updates,
			Mean:        res.Mean[agent],
			StdDev:      res.StdDev[agent],
			Sum:         res.Sum[agent],
			StartedAtMs: res.StartedAt.UnixMilli(),
			DurationMs:  res.Duration.Milliseconds(),
		})
	}
	return rows
}

// TurnRowFromFrame converts a spectator frame into an archive row.
func TurnRowFromFrame(runID string, cycle int, f episode.Frame) TurnRow {
	s := f.State
	row := TurnRow{
		RunID:     runID,
		EpisodeID: f.EpisodeID,
		Cycle:     int32(cycle),
		Turn:      int32(s.Turn),
		MaxTurns:  int32(s.MaxTurns),
		Width:     int32(s.Width),
		Height:    int32(s.Height),
	}
	if len(s.Items) > 0 {
		row.ItemType = make([]int32, 0, len(s.Items))
		row.ItemX = make([]int32, 0, len(s.Items))
		row.ItemY = make([]int32, 0, len(s.Items))
		for _, it := range s.Items {
			row.ItemType = append(row.ItemType, int32(it.Type))
			row.ItemX = append(row.ItemX, int32(it.Pos.X))
			row.ItemY = append(row.ItemY, int32(it.Pos.Y))
		}
	}

	row.Snakes = make([]TurnSnake, 0, len(s.Snakes))
	for i, sn := range s.Snakes {
		ts := TurnSnake{
			Agent:      int32(i),
			Alive:      !sn.Dead,
			Action:     -1,
			Invincible: int32(sn.InvincibleTimer),
			Sick:       int32(sn.SickTimer),
		}
		if i < len(f.Actions) {
			ts.Action = int32(f.Actions[i])
		}
		if i < len(f.Rewards) {
			ts.Reward = f.Rewards[i]
		}
		if i < len(s.Scores) {
			ts.Score = s.Scores[i]
		}
		if len(sn.Body) > 0 {
			ts.BodyX = make([]int32, 0, len(sn.Body))
			ts.BodyY = make([]int32, 0, len(sn.Body))
			for _, p := range sn.Body {
				ts.BodyX = append(ts.BodyX, int32(p.X))
				ts.BodyY = append(ts.BodyY, int32(p.Y))
			}
		}
		row.Snakes = append(row.Snakes, ts)
	}
	return row
}

// State rebuilds a game state from an archived turn. Walls are not archived;
// pass the layout the episode ran on to restore them, or nil for none.
func (r TurnRow) State(layout *game.Layout) *game.GameState {
	s := &game.GameState{
		Width:    int(r.Width),
		Height:   int(r.Height),
		Turn:     int(r.Turn),
		MaxTurns: int(r.MaxTurns),
		Scores:   make([]float64, len(r.Snakes)),
	}
	if layout != nil && len(layout.Walls) == int(r.Width*r.Height) {
		s.Walls = layout.Walls
	} else {
		s.Walls = make([]bool, int(r.Width*r.Height))
	}
	for i := range r.ItemType {
		if i >= len(r.ItemX) || i >= len(r.ItemY) {
			break
		}
		s.Items = append(s.Items, game.Item{
			Type: game.ItemType(r.ItemType[i]),
			Pos:  game.Point{X: int(r.ItemX[i]), Y: int(r.ItemY[i])},
		})
	}
	for i, ts := range r.Snakes {
		sn := game.Snake{
			ID:              int(ts.Agent),
			Dead:            !ts.Alive,
			InvincibleTimer: int(ts.Invincible),
			SickTimer:       int(ts.Sick),
		}
		if ts.Action >= 0 {
			sn.LastAction = game.Action(ts.Action)
		}
		for j := range ts.BodyX {
			if j >= len(ts.BodyY) {
				break
			}
			sn.Body = append(sn.Body, game.Point{X: int(ts.BodyX[j]), Y: int(ts.BodyY[j])})
		}
		s.Snakes = append(s.Snakes, sn)
		s.Scores[i] = ts.Score
	}
	return s
}
