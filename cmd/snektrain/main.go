package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/brensch/snekq/batch"
	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/report"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/store"
	"github.com/brensch/snekq/strategy"
	"github.com/brensch/snekq/viewer"
)

type options struct {
	layout     string
	strategies string
	params     strategy.Params

	testEpisodes   int
	trainEpisodes  int
	maxTurns       int
	parallelism    int
	cycles         int
	visualizeEvery int
	visualizeDelay time.Duration
	visualizeBg    bool
	randomApple    bool
	noRespawn      bool
	seed           int64

	runID      string
	outDir     string
	rotateRows int
	listen     string
	tui        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.layout, "layout", getEnvOrDefault("LAYOUT", "smallNoWall_alone"), "Builtin layout name or path to a layout file")
	flag.StringVar(&opts.strategies, "strategies", getEnvOrDefault("STRATEGIES", "tabular"), "Comma-separated strategy per snake: tabular, linear, constant[-dir]")
	flag.Float64Var(&opts.params.Epsilon, "epsilon", getEnvFloatOrDefault("EPSILON", strategy.DefaultParams.Epsilon), "Exploration rate while training")
	flag.Float64Var(&opts.params.Gamma, "gamma", getEnvFloatOrDefault("GAMMA", strategy.DefaultParams.Gamma), "Discount factor")
	flag.Float64Var(&opts.params.Alpha, "alpha", getEnvFloatOrDefault("ALPHA", strategy.DefaultParams.Alpha), "Learning rate")
	flag.IntVar(&opts.testEpisodes, "test-episodes", getEnvIntOrDefault("TEST_EPISODES", 100), "Episodes per test batch")
	flag.IntVar(&opts.trainEpisodes, "train-episodes", getEnvIntOrDefault("TRAIN_EPISODES", 100), "Episodes per train batch")
	flag.IntVar(&opts.maxTurns, "max-turns", getEnvIntOrDefault("MAX_TURNS", 500), "Turn limit per episode")
	flag.IntVar(&opts.parallelism, "parallelism", getEnvIntOrDefault("PARALLELISM", runtime.GOMAXPROCS(0)), "Episodes run concurrently within a batch")
	flag.IntVar(&opts.cycles, "cycles", getEnvIntOrDefault("CYCLES", 0), "Test/train cycles to run (0 runs until interrupted)")
	flag.IntVar(&opts.visualizeEvery, "visualize-every", getEnvIntOrDefault("VISUALIZE_EVERY", 100), "Play a paced spectator episode every N cycles (0 disables)")
	flag.DurationVar(&opts.visualizeDelay, "visualize-delay", getEnvDurationOrDefault("VISUALIZE_DELAY", 100*time.Millisecond), "Delay between spectator ticks")
	flag.BoolVar(&opts.visualizeBg, "visualize-background", getEnvBoolOrDefault("VISUALIZE_BACKGROUND", true), "Keep training while the spectator episode plays")
	flag.BoolVar(&opts.randomApple, "random-first-apple", getEnvBoolOrDefault("RANDOM_FIRST_APPLE", false), "Replace layout apples with seeded random placements")
	flag.BoolVar(&opts.noRespawn, "no-respawn", getEnvBoolOrDefault("NO_RESPAWN", false), "Do not respawn eaten apples")
	flag.Int64Var(&opts.seed, "seed", getEnvInt64OrDefault("SEED", time.Now().UnixNano()), "Base seed for episodes and learners")
	flag.StringVar(&opts.runID, "run-id", getEnvOrDefault("RUN_ID", ""), "Run identifier recorded in history (default: random uuid)")
	flag.StringVar(&opts.outDir, "out-dir", getEnvOrDefault("OUT_DIR", "data/runs"), "Directory for parquet history and episode archives (empty disables)")
	flag.IntVar(&opts.rotateRows, "rotate-rows", getEnvIntOrDefault("ROTATE_ROWS", 1000), "History rows per parquet segment")
	flag.StringVar(&opts.listen, "listen", getEnvOrDefault("LISTEN", ""), "HTTP address for the websocket spectator (empty disables)")
	flag.BoolVar(&opts.tui, "tui", getEnvBoolOrDefault("TUI", false), "Show the terminal dashboard")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: text, json, pretty")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logPath := flag.String("log-path", getEnvOrDefault("LOG_PATH", "snektrain.log"), "Log file used while the dashboard owns the terminal")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var logOut io.Writer = os.Stderr
	if opts.tui {
		f, err := os.OpenFile(*logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, *logFormat, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("training stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	layout, err := game.LoadLayout(opts.layout)
	if err != nil {
		return err
	}
	if err := layout.Validate(); err != nil {
		return err
	}

	params := opts.params
	params.NumActions = game.NumActions
	params.Seed = opts.seed
	strategies, err := strategy.NewList(opts.strategies, params)
	if err != nil {
		return err
	}
	if len(strategies) != len(layout.Snakes) {
		return fmt.Errorf("%w: layout %s has %d snakes, got %d strategies",
			batch.ErrStrategyCount, layout.Name, len(layout.Snakes), len(strategies))
	}

	if opts.runID == "" {
		opts.runID = uuid.NewString()
	}
	names := strategy.Names(strategies)
	logger = logger.With("run", opts.runID)

	out := &sinks{
		runID:  opts.runID,
		layout: layout.Name,
		names:  names,
		logger: logger,
	}
	defer out.close()

	if opts.outDir != "" {
		history, err := store.NewHistoryWriter(opts.outDir, opts.rotateRows)
		if err != nil {
			return err
		}
		out.history = history
		out.archive = &archiver{
			outDir: filepath.Join(history.Dir(), "episodes"),
			runID:  opts.runID,
			logger: logger,
		}
	}

	if opts.listen != "" {
		out.hub = viewer.NewHub(0)
		var reports *report.Cache
		if opts.outDir != "" {
			reports = report.NewCache(opts.outDir, 5*time.Second, logger)
			defer reports.Close()
		}
		srv := &http.Server{
			Addr:              opts.listen,
			Handler:           viewer.NewServer(out.hub, reports, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("spectator server listening", "addr", opts.listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("spectator server", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	settings := rules.DefaultSettings
	settings.RespawnApples = !opts.noRespawn

	trainer := &batch.Trainer{
		Layout:                layout,
		Strategies:            strategies,
		TestEpisodes:          opts.testEpisodes,
		TrainEpisodes:         opts.trainEpisodes,
		MaxTurns:              opts.maxTurns,
		Parallelism:           opts.parallelism,
		Cycles:                opts.cycles,
		VisualizeEvery:        opts.visualizeEvery,
		VisualizeDelay:        opts.visualizeDelay,
		VisualizeInBackground: opts.visualizeBg,
		Rules:                 settings,
		RandomFirstApple:      opts.randomApple,
		Seed:                  opts.seed,
		Logger:                logger,
		OnResult:              out.onResult,
		OnFrame:               out.onFrame,
	}

	logger.Info("training started",
		"layout", layout.Name,
		"strategies", names,
		"test_episodes", opts.testEpisodes,
		"train_episodes", opts.trainEpisodes,
		"parallelism", opts.parallelism,
		"seed", opts.seed,
	)

	if !opts.tui {
		err = trainer.Run(ctx)
		logger.Info("training finished", "err", err)
		return err
	}

	out.ui = make(chan tea.Msg, 256)
	p := tea.NewProgram(initialModel(opts.runID, layout.Name, names, out.ui, cancel), tea.WithAltScreen())
	trainErr := make(chan error, 1)
	go func() {
		err := trainer.Run(ctx)
		p.Send(doneMsg{err: err})
		trainErr <- err
	}()
	if _, err := p.Run(); err != nil {
		cancel()
		<-trainErr
		return fmt.Errorf("dashboard: %w", err)
	}
	cancel()
	return <-trainErr
}
