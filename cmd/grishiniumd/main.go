// Grishinium proof-of-stake node daemon.
//
// Usage:
//
//	grishiniumd [--port=5000] [--data-dir=./data] [--testnet] [--peer=url ...]
//	grishiniumd --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fantasy-builders/grishinium/config"
	klog "github.com/fantasy-builders/grishinium/internal/log"
	"github.com/fantasy-builders/grishinium/internal/node"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code (spec.md §6: 0 clean shutdown, 1
// fatal startup error, 2 runtime panic in the main loop), so main itself
// stays a one-liner and defers still fire on every return path.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			code = 2
		}
	}()

	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(cfg.LogsDir(), "grishinium.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		return 1
	}
	logger := klog.WithComponent("main")

	logger.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.ListenPort).
		Bool("testnet", cfg.Testnet).
		Msg("starting grishiniumd")

	n, err := node.New(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize node")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := n.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start node")
		return 1
	}

	logger.Info().
		Str("node_id", n.Address().String()).
		Uint64("height", n.Height()).
		Msg("node started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	cancel()
	if err := n.Stop(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
		return 1
	}

	logger.Info().Msg("goodbye")
	return 0
}
