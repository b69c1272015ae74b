// Command foxsee is a UCI chess engine. Protocol traffic uses stdin and
// stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"go.uber.org/zap"

	"github.com/hailam/foxsee/internal/config"
	"github.com/hailam/foxsee/internal/engine"
	"github.com/hailam/foxsee/internal/obslog"
	"github.com/hailam/foxsee/internal/storage"
	"github.com/hailam/foxsee/internal/uci"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "foxsee:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	obslog.Init(obslog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Caller: cfg.Log.Caller})
	log := obslog.L()
	defer log.Sync()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info("cpu profiling enabled", zap.String("path", profilePath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	eng := engine.NewEngine(hashSize(ctx, cfg, store))
	eng.MaxDepth = cfg.Engine.MaxDepth
	eng.TimeManager.Overhead = cfg.Engine.MoveOverhead()
	eng.TimeManager.MovesToGo = cfg.Engine.MovesToGo

	log.Info("engine ready",
		zap.Int("hash_mb", eng.HashSize()),
		zap.Int("max_depth", eng.MaxDepth),
		zap.String("storage", cfg.Storage.Backend))

	err = uci.New(eng, store, os.Stdin, os.Stdout).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// hashSize prefers a hash size saved by an earlier setoption over the
// configured one.
func hashSize(ctx context.Context, cfg *config.Config, store storage.Store) int {
	if store == nil {
		return cfg.Engine.HashMB
	}
	p, err := store.LoadPreferences(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		obslog.L().Warn("load preferences failed", zap.Error(err))
	case engine.HashSizeSupported(p.HashMB):
		return p.HashMB
	}
	return cfg.Engine.HashMB
}
