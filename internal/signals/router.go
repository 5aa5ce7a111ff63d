// Package signals routes process signals to the daemon through a channel so
// that reload and shutdown run on an ordinary goroutine.
package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"logsweep/internal/logging"
)

// State is the router lifecycle state.
type State int32

const (
	Running State = iota
	ReloadingConfig
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ReloadingConfig:
		return "reloading_config"
	case ShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Target receives the routed requests.
type Target interface {
	ReloadConfig() error
	Shutdown()
}

// Router turns SIGHUP into ReloadConfig and SIGTERM or SIGINT into Shutdown.
type Router struct {
	target Target
	logger *slog.Logger
	ch     chan os.Signal

	mu    sync.Mutex
	state State
}

// NewRouter returns a router in the Running state.
func NewRouter(target Target, logger *slog.Logger) *Router {
	return &Router{
		target: target,
		logger: logging.NewComponentLogger(logger, "signals"),
		ch:     make(chan os.Signal, 4),
	}
}

// Install subscribes the router to SIGHUP, SIGTERM and SIGINT. It replaces
// any earlier Ignore of SIGHUP.
func (r *Router) Install() {
	signal.Notify(r.ch, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
}

// Stop unsubscribes the router from process signals.
func (r *Router) Stop() {
	signal.Stop(r.ch)
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run consumes delivered signals until ctx is done or shutdown has been routed.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-r.ch:
			if r.Dispatch(sig) == ShuttingDown {
				return
			}
		}
	}
}

// Dispatch routes one signal and returns the resulting state. Once shutting
// down, every later signal is ignored.
func (r *Router) Dispatch(sig os.Signal) State {
	r.mu.Lock()
	if r.state == ShuttingDown {
		r.mu.Unlock()
		r.logger.Debug("signal ignored during shutdown", logging.String(logging.FieldSignal, sig.String()))
		return ShuttingDown
	}

	switch sig {
	case syscall.SIGHUP:
		r.state = ReloadingConfig
		r.mu.Unlock()
		r.logger.Info("reloading configuration",
			logging.String(logging.FieldEventType, "config_reload_requested"),
			logging.String(logging.FieldSignal, sig.String()),
		)
		if err := r.target.ReloadConfig(); err != nil {
			logging.WarnWithContext(r.logger, "configuration reload failed", "config_reload_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the configuration file and send SIGHUP again"),
				logging.String(logging.FieldImpact, "previous configuration remains active"),
			)
		}
		r.mu.Lock()
		if r.state == ReloadingConfig {
			r.state = Running
		}
		state := r.state
		r.mu.Unlock()
		return state
	case syscall.SIGTERM, syscall.SIGINT:
		r.state = ShuttingDown
		r.mu.Unlock()
		r.logger.Info("shutdown requested",
			logging.String(logging.FieldEventType, "shutdown_requested"),
			logging.String(logging.FieldSignal, sig.String()),
		)
		r.target.Shutdown()
		return ShuttingDown
	default:
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("unhandled signal", logging.String(logging.FieldSignal, sig.String()))
		return state
	}
}
