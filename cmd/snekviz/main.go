package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekq/episode"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/strategy"
)

func main() {
	layoutName := flag.String("layout", getEnvOrDefault("LAYOUT", "small_duel"), "Builtin layout name or path to a layout file")
	kinds := flag.String("strategies", getEnvOrDefault("STRATEGIES", ""), "Comma-separated strategy per snake (default: tabular for every snake)")
	maxTurns := flag.Int("max-turns", getEnvIntOrDefault("MAX_TURNS", 200), "Turn limit for live episodes")
	seed := flag.Int64("seed", getEnvInt64OrDefault("SEED", 1), "Seed for live episodes and learners")
	pretrainBatches := flag.Int("pretrain-batches", getEnvIntOrDefault("PRETRAIN_BATCHES", 0), "Training batches to run before playing live")
	pretrainEpisodes := flag.Int("pretrain-episodes", getEnvIntOrDefault("PRETRAIN_EPISODES", 100), "Episodes per pretraining batch")
	replay := flag.String("replay", getEnvOrDefault("REPLAY", ""), "Episode archive file or directory to replay instead of playing live")
	episodeID := flag.String("episode", getEnvOrDefault("EPISODE", ""), "Episode id to replay (default: most recent)")
	delay := flag.Duration("delay", getEnvDurationOrDefault("DELAY", 150*time.Millisecond), "Initial delay between ticks")
	paused := flag.Bool("paused", false, "Start paused")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "warn"), "Log level for pretraining output on stderr")
	flag.Parse()

	if err := runViz(vizOptions{
		layout:           *layoutName,
		strategies:       *kinds,
		maxTurns:         *maxTurns,
		seed:             *seed,
		pretrainBatches:  *pretrainBatches,
		pretrainEpisodes: *pretrainEpisodes,
		replay:           *replay,
		episodeID:        *episodeID,
		delay:            *delay,
		autoplay:         !*paused,
		logLevel:         *logLevel,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type vizOptions struct {
	layout           string
	strategies       string
	maxTurns         int
	seed             int64
	pretrainBatches  int
	pretrainEpisodes int
	replay           string
	episodeID        string
	delay            time.Duration
	autoplay         bool
	logLevel         string
}

func runViz(opts vizOptions) error {
	src, err := buildSource(opts)
	if err != nil {
		return err
	}
	p, err := newPlayer(src, opts.delay, opts.autoplay)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}

func buildSource(opts vizOptions) (source, error) {
	layout, err := game.LoadLayout(opts.layout)
	if err != nil {
		return nil, err
	}
	if opts.replay != "" {
		return loadReplay(opts.replay, opts.episodeID, layout)
	}

	kinds := opts.strategies
	if kinds == "" {
		kinds = "tabular"
		for i := 1; i < len(layout.Snakes); i++ {
			kinds += ",tabular"
		}
	}
	params := strategy.DefaultParams
	params.Seed = opts.seed
	strategies, err := strategy.NewList(kinds, params)
	if err != nil {
		return nil, err
	}

	cfg := episode.Config{MaxTurns: opts.maxTurns, Seed: opts.seed}
	if opts.pretrainBatches > 0 {
		level, err := logging.ParseLevel(opts.logLevel)
		if err != nil {
			return nil, err
		}
		logger := logging.New(os.Stderr, logging.FormatText, level)
		start := time.Now()
		if err := pretrain(layout, strategies, cfg, opts.pretrainBatches, opts.pretrainEpisodes); err != nil {
			return nil, err
		}
		logger.Info("pretraining done",
			"batches", opts.pretrainBatches,
			"episodes", opts.pretrainBatches*opts.pretrainEpisodes,
			"took", time.Since(start))
	}
	return newLiveSource(layout, strategies, cfg), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64OrDefault(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
