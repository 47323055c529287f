package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/remote"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	listen := flag.String("listen", "", "Override the worker listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Remote.ListenAddr = *listen
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(logger)

	worker, err := remote.NewWorker(cfg.Remote)
	if err != nil {
		logger.Error("initializing worker", logging.Error(err))
		os.Exit(1)
	}

	if cfg.Archive.Enabled {
		store, err := archive.NewStore(context.Background(), cfg.Archive)
		if err != nil {
			logger.Error("opening run archive", logging.Error(err))
			os.Exit(1)
		}
		defer store.Close()
		worker.SetArchiver(store)
		logger.Info("run archive enabled", logging.Path(cfg.Archive.Dir))
	}

	if err := worker.Start(); err != nil {
		logger.Error("starting worker", logging.Error(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down worker")
	if err := worker.Stop(); err != nil {
		logger.Warn("worker stop", logging.Error(err))
	}
}
