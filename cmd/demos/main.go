package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/ray-project/ray-demos/internal/shared/config"
	"github.com/ray-project/ray-demos/internal/shared/logging"
	"github.com/ray-project/ray-demos/pkg/demos"
	"github.com/ray-project/ray-demos/pkg/task"

	_ "github.com/ray-project/ray-demos/examples/fibonacci"
	_ "github.com/ray-project/ray-demos/examples/grep"
	_ "github.com/ray-project/ray-demos/examples/imagefetch"
	_ "github.com/ray-project/ray-demos/examples/montecarlo"
	_ "github.com/ray-project/ray-demos/examples/nyctaxi"
	_ "github.com/ray-project/ray-demos/examples/wordcount"
)

func main() {
	var (
		demoName    = flag.String("demo", "", "demo to run (e.g., montecarlo, wordcount)")
		list        = flag.Bool("list", false, "list available demos and exit")
		configPath  = flag.String("config", "", "path to config file")
		parallelism = flag.Int("parallelism", 0, "pool parallelism (overrides config)")
	)
	options := make(map[string]string)
	flag.Func("opt", "demo option as key=value (repeatable)", func(raw string) error {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return fmt.Errorf("expected key=value, got %q", raw)
		}
		options[key] = value
		return nil
	})
	flag.Parse()

	if *list {
		for _, demo := range demos.List() {
			fmt.Printf("%-12s %s\n", demo.Name, demo.Description)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if *demoName == "" {
		logger.Fatal("Demo must be specified using the -demo flag", "available", demos.Names())
	}
	demo, err := demos.Get(*demoName)
	if err != nil {
		logger.Fatal("Unknown demo", "demo", *demoName, "available", demos.Names())
	}

	poolSize := cfg.Pool.EffectiveParallelism()
	if *parallelism > 0 {
		poolSize = *parallelism
	}
	pool := task.NewPool(
		task.WithParallelism(poolSize),
		task.WithDefaultCPUs(cfg.Pool.DefaultCPUs),
	)
	defer pool.Close()

	// config supplies defaults for options the flags left unset
	fillDefault(options, "block_size", strconv.Itoa(cfg.Dataset.BlockSize))
	fillDefault(options, "read_parallelism", strconv.Itoa(cfg.Dataset.ReadParallelism))
	fillDefault(options, "dir", cfg.Fetch.Dir)
	fillDefault(options, "timeout", cfg.Fetch.Timeout.String())

	env := &demos.Env{
		Pool:    pool,
		Logger:  logger,
		Options: options,
		Out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.New()
	logger.Info("Starting demo", "demo", demo.Name, "run_id", runID, "parallelism", pool.Parallelism())
	if err := demo.Run(ctx, env); err != nil {
		pool.Close()
		logger.Fatal("Demo failed", "demo", demo.Name, "run_id", runID, "error", err)
	}
	logger.Info("Demo completed successfully", "demo", demo.Name, "run_id", runID)
}

func fillDefault(options map[string]string, key, value string) {
	if _, ok := options[key]; !ok {
		options[key] = value
	}
}
