package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/logging"
)

// GracefulConfig carries the timeouts for a graceful HTTP server. Zero
// values fall back to conservative defaults.
type GracefulConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ConfigReloadFunc re-reads configuration on SIGHUP.
type ConfigReloadFunc func() error

// GracefulServer drains in-flight requests before the process exits.
// SIGINT and SIGTERM shut down, SIGHUP reloads configuration, SIGUSR1
// delays briefly and then drains for rolling restarts.
type GracefulServer struct {
	httpServer   *http.Server
	logger       logging.Logger
	drainTimeout time.Duration
	done         chan struct{}
	once         sync.Once
	reloadFn     ConfigReloadFunc
	reloadMu     sync.RWMutex
}

// NewGracefulServer wraps handler in an http.Server with the given
// timeouts applied.
func NewGracefulServer(addr string, handler http.Handler, cfg GracefulConfig) *GracefulServer {
	return &GracefulServer{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     handler,
			ReadTimeout: config.DefaultOrPositive(cfg.ReadTimeout, 30*time.Second),
			// Solves can legitimately hold a response open for minutes
			WriteTimeout:   config.DefaultOrPositive(cfg.WriteTimeout, 5*time.Minute),
			IdleTimeout:    config.DefaultOrPositive(cfg.IdleTimeout, 120*time.Second),
			MaxHeaderBytes: 1 << 20,
		},
		logger:       logging.DefaultLogger().With(logging.Component("graceful")),
		drainTimeout: config.DefaultOrPositive(cfg.ShutdownTimeout, 30*time.Second),
		done:         make(chan struct{}),
	}
}

// Start listens until the server is shut down. The signal handler runs
// for the life of the process.
func (g *GracefulServer) Start() error {
	go g.watchSignals()

	g.logger.Info("starting http server", logging.String("addr", g.httpServer.Addr))
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests. Safe to call more than once.
func (g *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	g.once.Do(func() {
		close(g.done)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		g.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		err = g.httpServer.Shutdown(ctx)
		if err != nil {
			g.logger.Error("shutdown failed", logging.Error(err))
			return
		}
		g.logger.Info("server shutdown complete")
	})
	return err
}

func (g *GracefulServer) watchSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for sig := range sigs {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			g.logger.Info("shutdown signal received", logging.String("signal", sig.String()))
			if err := g.Shutdown(g.drainTimeout); err != nil {
				g.logger.Error("shutdown failed", logging.Error(err))
				os.Exit(1)
			}
			os.Exit(0)

		case syscall.SIGHUP:
			g.logger.Info("reload signal received")
			if err := g.ReloadConfig(); err != nil {
				g.logger.Error("configuration reload failed", logging.Error(err))
			}

		case syscall.SIGUSR1:
			g.logger.Info("rolling restart signal received")
			// Drain connections while health checks notice the node
			// going away, then shut down
			go func() {
				time.Sleep(5 * time.Second)
				if err := g.Shutdown(g.drainTimeout); err != nil {
					g.logger.Error("rolling restart shutdown failed", logging.Error(err))
				}
			}()
		}
	}
}

// IsShuttingDown reports whether Shutdown has begun.
func (g *GracefulServer) IsShuttingDown() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// ShutdownChannel closes once shutdown begins. Background loops select
// on it to stop.
func (g *GracefulServer) ShutdownChannel() <-chan struct{} {
	return g.done
}

// SetConfigReloadFunc installs the function SIGHUP invokes.
func (g *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	g.reloadMu.Lock()
	defer g.reloadMu.Unlock()
	g.reloadFn = fn
}

// ReloadConfig runs the installed reload function, if any.
func (g *GracefulServer) ReloadConfig() error {
	g.reloadMu.RLock()
	fn := g.reloadFn
	g.reloadMu.RUnlock()

	if fn == nil {
		g.logger.Warn("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := fn(); err != nil {
		g.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}

	g.logger.Info("configuration reload complete")
	return nil
}
