// Package shell hosts the dashboard window: it starts the browser and the
// configuration server, runs the adaptation engine on every page load and
// handles the restart and reset keys.
package shell

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/protect-viewer/internal/browser"
	"github.com/xkilldash9x/protect-viewer/internal/config"
	"github.com/xkilldash9x/protect-viewer/internal/observability"
	"github.com/xkilldash9x/protect-viewer/internal/protect"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

// ErrRestart is returned by Run when the user asked for a restart. The
// caller starts a fresh Shell.
var ErrRestart = errors.New("restart requested")

// errWindowClosed ends Run cleanly when the user closes the window.
var errWindowClosed = errors.New("window closed")

const (
	resetPrompt     = "Reset all Protect Viewer settings and restart?"
	shutdownTimeout = 5 * time.Second

	// The configuration screen has one user.
	maxConfigConns = 8
)

// Store is the persisted state the shell reads and writes.
type Store interface {
	protect.ConfigLoader
	SaveConfig(ctx context.Context, cfg protect.Configuration) error
	Clear(ctx context.Context) error
	LoadBounds() (*store.Bounds, error)
	SaveBounds(b store.Bounds) error
}

// Window is the dashboard tab as the shell sees it.
type Window interface {
	protect.Page
	LoadEvents() <-chan struct{}
	Done() <-chan struct{}
	Bounds(ctx context.Context) (store.Bounds, error)
	Confirm(ctx context.Context, message string) (bool, error)
	ForwardKeys(ctx context.Context, keys []string, handler func(key string)) error
}

// Launcher opens a window, restoring bounds when non-nil. The returned
// function shuts the window down.
type Launcher func(ctx context.Context, bounds *store.Bounds) (Window, func(context.Context) error, error)

// BrowserLauncher launches Chrome through chromedp.
func BrowserLauncher(cfg config.BrowserConfig, logger *zap.Logger) Launcher {
	return func(ctx context.Context, bounds *store.Bounds) (Window, func(context.Context) error, error) {
		m, err := browser.NewManager(ctx, cfg, bounds, logger)
		if err != nil {
			return nil, nil, err
		}
		return m.Session(), m.Shutdown, nil
	}
}

// TimingFromConfig converts engine settings.
func TimingFromConfig(e config.EngineConfig) protect.Timing {
	return protect.Timing{
		PollInterval:       e.PollInterval,
		SettleDelay:        e.SettleDelay,
		DefaultTimeout:     e.DefaultTimeout,
		VersionTimeout:     e.VersionTimeout,
		ReapplyDelay:       e.ReapplyDelay,
		OptionPollInterval: e.OptionPollInterval,
		WatchdogInterval:   e.WatchdogInterval,
		WatchdogLead:       e.WatchdogLead,
	}
}

// Shell is one lifetime of the dashboard window.
type Shell struct {
	cfg      *config.Config
	store    Store
	launch   Launcher
	metrics  *observability.Metrics
	logger   *zap.Logger
	requests chan request
}

// New returns a Shell. metrics may be nil.
func New(cfg *config.Config, st Store, launch Launcher, metrics *observability.Metrics, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{
		cfg:      cfg,
		store:    st,
		launch:   launch,
		metrics:  metrics,
		logger:   logger.Named("shell"),
		requests: make(chan request, 1),
	}
}

// Run shows the dashboard until ctx is done, the window closes or a restart
// is requested. It returns ErrRestart for the latter and nil otherwise,
// unless startup fails.
func (s *Shell) Run(ctx context.Context) error {
	bounds, err := s.store.LoadBounds()
	if err != nil {
		s.logger.Warn("Ignoring saved window bounds.", zap.Error(err))
		bounds = nil
	}

	ln, err := net.Listen("tcp", s.cfg.Shell.ConfigAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Shell.ConfigAddr, err)
	}
	configURL := "http://" + ln.Addr().String() + "/"
	ln = netutil.LimitListener(ln, maxConfigConns)

	window, shutdown, err := s.launch(ctx, bounds)
	if err != nil {
		ln.Close()
		return err
	}
	defer s.close(window, shutdown)

	var recorder protect.Recorder
	var metricsHandler http.Handler
	if s.metrics != nil {
		recorder = s.metrics
		if s.cfg.Shell.MetricsEnabled {
			metricsHandler = s.metrics.Handler()
		}
	}
	runner, err := protect.NewRunner(protect.Env{
		Page:             window,
		Config:           s.store,
		Logger:           s.logger,
		Timing:           TimingFromConfig(s.cfg.Engine),
		Recorder:         recorder,
		ConfigScreenURL:  configURL,
		SessionExpiryKey: s.cfg.Engine.SessionExpiryKey,
	})
	if err != nil {
		ln.Close()
		return err
	}

	keys := newKeyHandler(s.cfg.Shell.RestartKey, s.cfg.Shell.ResetKey, s.cfg.Shell.KeyCooldown, s.requests, s.logger)
	if err := window.ForwardKeys(ctx, []string{s.cfg.Shell.RestartKey, s.cfg.Shell.ResetKey}, keys.press); err != nil {
		s.logger.Warn("Keyboard shortcuts are unavailable.", zap.Error(err))
	}

	server := NewConfigServer(s.store, s.logger, metricsHandler, s.RequestRestart)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx, ln) })
	g.Go(func() error { return s.runLoop(gctx, window, runner, configURL) })
	g.Go(func() error { return s.supervise(gctx, window) })

	if err := s.openStart(ctx, window, configURL); err != nil {
		s.logger.Error("Could not open the start page.", zap.Error(err))
	}

	err = g.Wait()
	switch {
	case errors.Is(err, ErrRestart):
		if s.metrics != nil {
			s.metrics.Restarted()
		}
		return ErrRestart
	case errors.Is(err, errWindowClosed):
		s.logger.Info("Window closed.")
		return nil
	case err != nil && ctx.Err() == nil:
		return err
	default:
		return nil
	}
}

// RequestRestart asks Run to return ErrRestart. It never blocks.
func (s *Shell) RequestRestart() {
	select {
	case s.requests <- requestRestart:
	default:
	}
}

// openStart shows the dashboard, or the configuration screen when nothing
// usable is saved.
func (s *Shell) openStart(ctx context.Context, window Window, configURL string) error {
	target := configURL
	cfg, err := s.store.LoadConfig(ctx)
	switch {
	case err != nil:
		s.logger.Warn("Could not load configuration; showing the configuration screen.", zap.Error(err))
	case cfg == nil:
		s.logger.Info("No configuration saved; showing the configuration screen.")
	case cfg.Validate() != nil:
		s.logger.Warn("Saved configuration is incomplete.", zap.Error(cfg.Validate()))
	default:
		target = cfg.URL
	}
	return window.Navigate(ctx, target)
}

// activeRun is the run started for the latest page load.
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the run and waits for it to return. It is safe on nil.
func (r *activeRun) stop() {
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// startRun runs the engine once in its own goroutine. A run that finds no
// usable configuration sends the window to the configuration screen.
func (s *Shell) startRun(ctx context.Context, window Window, runner *protect.Runner, configURL string) *activeRun {
	runCtx, cancel := context.WithCancel(ctx)
	r := &activeRun{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		out := runner.Run(runCtx)
		if out.State == protect.StateFailed && errors.Is(out.Err, protect.ErrMissingConfiguration) {
			if err := window.Navigate(runCtx, configURL); err != nil {
				s.logger.Warn("Could not open the configuration screen.", zap.Error(err))
			}
		}
	}()
	return r
}

// runLoop starts a run for every page load. A new load cancels the current
// run and waits for it to return first, so runs never overlap.
func (s *Shell) runLoop(ctx context.Context, window Window, runner *protect.Runner, configURL string) error {
	var current *activeRun
	defer func() { current.stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-window.LoadEvents():
			current.stop()
			current = s.startRun(ctx, window, runner, configURL)
		}
	}
}

// supervise handles restart and reset requests and watches the window.
func (s *Shell) supervise(ctx context.Context, window Window) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-window.Done():
			return errWindowClosed
		case req := <-s.requests:
			switch req {
			case requestRestart:
				s.logger.Info("Restarting.")
				return ErrRestart
			case requestReset:
				ok, err := window.Confirm(ctx, resetPrompt)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					s.logger.Warn("Reset confirmation failed.", zap.Error(err))
					continue
				}
				if !ok {
					s.logger.Info("Reset canceled.")
					continue
				}
				if err := s.store.Clear(ctx); err != nil {
					s.logger.Error("Failed to clear settings.", zap.Error(err))
					continue
				}
				s.logger.Info("Settings cleared. Restarting.")
				return ErrRestart
			}
		}
	}
}

// close saves the window bounds and shuts the window down. It runs after
// ctx may already be canceled, so it uses its own deadline.
func (s *Shell) close(window Window, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	select {
	case <-window.Done():
	default:
		if b, err := window.Bounds(ctx); err != nil {
			s.logger.Debug("Could not read window bounds.", zap.Error(err))
		} else if err := s.store.SaveBounds(b); err != nil {
			s.logger.Warn("Could not save window bounds.", zap.Error(err))
		}
	}
	if err := shutdown(ctx); err != nil {
		s.logger.Warn("Window shutdown incomplete.", zap.Error(err))
	}
}
