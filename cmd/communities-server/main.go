package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/remote"
	"github.com/dd0wney/cluso-communities/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.Int("port", 0, "Override the HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(logger)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Error("initializing server", logging.Error(err))
		os.Exit(1)
	}

	// SIGHUP re-reads the config file and applies the log level without
	// a restart.
	srv.SetReloadFunc(func() error {
		fresh, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(fresh.Log.Level))
		logger.Info("log level applied", logging.String("level", fresh.Log.Level))
		return nil
	})

	// A dial address moves solves onto a worker; otherwise they run
	// in-process.
	if cfg.Remote.DialAddr != "" {
		client, err := remote.NewClient(cfg.Remote)
		if err != nil {
			logger.Error("connecting to solve worker", logging.Error(err))
			os.Exit(1)
		}
		defer client.Close()
		srv.SetRunner(client)
		logger.Info("solves forwarded to worker",
			logging.String("addr", cfg.Remote.DialAddr))
	}

	if cfg.Archive.Enabled {
		store, err := archive.NewStore(context.Background(), cfg.Archive)
		if err != nil {
			logger.Error("opening run archive", logging.Error(err))
			os.Exit(1)
		}
		defer store.Close()
		srv.SetArchiver(store)
		logger.Info("run archive enabled", logging.Path(cfg.Archive.Dir))
	}

	if err := srv.Start(); err != nil {
		logger.Error("server failed", logging.Error(err))
		os.Exit(1)
	}
}
