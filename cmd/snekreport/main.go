package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/report"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginTop(1)
	headerCell   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell         = lipgloss.NewStyle().Padding(0, 1)
)

func main() {
	dir := flag.String("dir", getEnvOrDefault("OUT_DIR", "data/runs"), "Directory holding history and episode parquet files")
	runID := flag.String("run", "", "Run to summarise (default: most recent)")
	mode := flag.String("mode", batch.ModeTest, "Batch mode for the learning curve: test or train")
	every := flag.Int("every", 1, "Print every Nth cycle of the learning curve")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := printReport(ctx, os.Stdout, *dir, *runID, *mode, *every); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printReport(ctx context.Context, w io.Writer, dir, runID, mode string, every int) error {
	db, err := report.Open(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	defer db.Close()

	runs, err := db.Runs(ctx)
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "no runs under %s\n", dir)
		return nil
	}

	fmt.Fprintln(w, headingStyle.Render("Runs"))
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			r.Layout,
			strconv.Itoa(r.Cycles),
			strconv.Itoa(r.Batches),
			strconv.FormatInt(r.Ticks, 10),
			time.UnixMilli(r.StartedMs).Format(time.DateTime),
			(time.Duration(r.LastSeenMs-r.StartedMs) * time.Millisecond).Round(time.Second).String(),
		})
	}
	fmt.Fprintln(w, render([]string{"run", "layout", "cycles", "batches", "ticks", "started", "span"}, rows))

	if runID == "" {
		runID = runs[0].RunID
	}

	agents, err := db.Agents(ctx, runID)
	if err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	fmt.Fprintln(w, headingStyle.Render("Agents in "+runID))
	rows = rows[:0]
	for _, a := range agents {
		rows = append(rows, []string{
			strconv.Itoa(a.Agent),
			a.Strategy,
			fmt.Sprintf("%.3f", a.BestMean),
			strconv.Itoa(a.BestCycle),
			fmt.Sprintf("%.3f", a.LastMean),
			strconv.Itoa(a.LastCycle),
		})
	}
	fmt.Fprintln(w, render([]string{"agent", "strategy", "best mean", "best cycle", "last mean", "last cycle"}, rows))

	curve, err := db.Curve(ctx, runID, mode)
	if err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	if every < 1 {
		every = 1
	}
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Learning curve (%s)", mode)))
	rows = rows[:0]
	for _, p := range curve {
		if p.Cycle%every != 0 {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Cycle),
			strconv.Itoa(p.Agent),
			p.Strategy,
			fmt.Sprintf("%.3f", p.Mean),
			fmt.Sprintf("%.3f", p.StdDev),
			strconv.Itoa(p.Episodes),
		})
	}
	fmt.Fprintln(w, render([]string{"cycle", "agent", "strategy", "mean", "stddev", "episodes"}, rows))

	eps, err := db.Episodes(ctx, runID)
	if err != nil {
		return fmt.Errorf("episodes: %w", err)
	}
	if len(eps) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Archived episodes"))
		rows = rows[:0]
		for _, e := range eps {
			rows = append(rows, []string{
				e.EpisodeID,
				strconv.Itoa(e.Cycle),
				strconv.Itoa(e.Turns),
				fmt.Sprintf("%dx%d", e.Width, e.Height),
			})
		}
		fmt.Fprintln(w, render([]string{"episode", "cycle", "turns", "size"}, rows))
	}
	return nil
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cell
		}).
		String()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
